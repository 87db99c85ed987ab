package docs

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/aanand-mishra/users-api/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenAPI(t *testing.T) {
	rec := httptest.NewRecorder()
	OpenAPI("http://localhost:5000")(rec, httptest.NewRequest(http.MethodGet, "/api-docs/openapi.json", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var doc map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &doc))
	assert.Equal(t, "3.0.0", doc["openapi"])

	servers := doc["servers"].([]any)
	assert.Equal(t, "http://localhost:5000", servers[0].(map[string]any)["url"])

	paths := doc["paths"].(map[string]any)
	users := paths["/users"].(map[string]any)
	assert.Contains(t, users, "get")
	assert.Contains(t, users, "post")
	byID := paths["/users/{id}"].(map[string]any)
	assert.Contains(t, byID, "get")
	assert.Contains(t, byID, "put")
	assert.Contains(t, byID, "delete")

	schemas := doc["components"].(map[string]any)["schemas"].(map[string]any)
	user := schemas["User"].(map[string]any)
	assert.Equal(t, "object", user["type"])
	assert.Contains(t, user["properties"], "_id")

	patch := schemas["UserPatch"].(map[string]any)
	assert.Contains(t, patch["properties"], "_id", "a fetched record can be sent back")

	put := byID["put"].(map[string]any)
	content := put["requestBody"].(map[string]any)["content"].(map[string]any)
	assert.Contains(t, content, "application/json")
	assert.Contains(t, content, "application/x-www-form-urlencoded")
}

func TestSpec_RefsResolve(t *testing.T) {
	doc := Spec("")
	assert.Empty(t, doc.Servers)

	raw, err := json.Marshal(doc)
	require.NoError(t, err)

	var generic any
	require.NoError(t, json.Unmarshal(raw, &generic))

	var walk func(v any)
	walk = func(v any) {
		switch v := v.(type) {
		case map[string]any:
			if ref, ok := v["$ref"].(string); ok {
				name := ref[len("#/components/schemas/"):]
				assert.Contains(t, doc.Components.Schemas, name, "dangling $ref %s", ref)
			}
			for _, child := range v {
				walk(child)
			}
		case []any:
			for _, child := range v {
				walk(child)
			}
		}
	}
	walk(generic)
}

func TestUI(t *testing.T) {
	rec := httptest.NewRecorder()
	UI("/api-docs/openapi.json", logger.Discard())(rec, httptest.NewRequest(http.MethodGet, "/api-docs", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), "swagger-ui-bundle.js")
	assert.Contains(t, rec.Body.String(), "/api-docs/openapi.json")
	assert.Contains(t, rec.Body.String(), "<title>Users API</title>")
}
