package router

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aanand-mishra/users-api/internal/http/handlers/docs"
	"github.com/aanand-mishra/users-api/internal/http/handlers/user"
	"github.com/aanand-mishra/users-api/internal/logger"
	"github.com/aanand-mishra/users-api/internal/storage/memory"
)

func newHandler() http.Handler {
	return New(Options{
		Env: &user.Env{Storage: memory.New(), Logger: logger.Discard()},
	})
}

// Every API route must be described in the OpenAPI document and every
// documented operation must be routed.
func TestRoutesMatchDocs(t *testing.T) {
	routes, ok := newHandler().(chi.Routes)
	require.True(t, ok)

	doc := docs.Spec("")
	routed := map[string]bool{}

	err := chi.Walk(routes, func(method, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
		if strings.HasPrefix(route, DocsPath) {
			return nil
		}
		key := strings.ToLower(method) + " " + route
		routed[key] = true

		item, ok := doc.Paths[route]
		if assert.True(t, ok, "route %s is not documented", route) {
			assert.Contains(t, item, strings.ToLower(method), "operation %s is not documented", key)
		}
		return nil
	})
	require.NoError(t, err)

	for path, item := range doc.Paths {
		for method := range item {
			assert.True(t, routed[method+" "+path], "documented operation %s %s is not routed", method, path)
		}
	}
}

func TestRouter(t *testing.T) {
	h := newHandler()

	tests := []struct {
		name       string
		method     string
		target     string
		body       string
		wantStatus int
		wantBody   string
	}{
		{"list empty", http.MethodGet, "/users", "", http.StatusOK, "[]"},
		{"create", http.MethodPost, "/users", `{"name":"Ada","email":"ada@example.com","age":36}`, http.StatusCreated, `"name":"Ada"`},
		{"health", http.MethodGet, "/health", "", http.StatusOK, `"ok"`},
		{"docs page", http.MethodGet, DocsPath, "", http.StatusOK, "swagger-ui"},
		{"openapi", http.MethodGet, OpenAPIPath, "", http.StatusOK, `"openapi":"3.0.0"`},
		{"unknown route", http.MethodGet, "/nope", "", http.StatusNotFound, ""},
		{"wrong method", http.MethodPatch, "/users", "", http.StatusMethodNotAllowed, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.target, strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.wantBody)
		})
	}
}
