// Package router assembles the HTTP surface of the service.
//
// Route table:
//
//	POST   /users                 → create a user
//	GET    /users                 → list all users
//	GET    /users/{id}            → fetch one user
//	PUT    /users/{id}            → partially update a user
//	DELETE /users/{id}            → delete a user
//	GET    /health                → store-backed readiness probe
//	GET    /api-docs              → Swagger UI
//	GET    /api-docs/openapi.json → OpenAPI 3.0 document
package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/aanand-mishra/users-api/internal/http/handlers/docs"
	"github.com/aanand-mishra/users-api/internal/http/handlers/health"
	"github.com/aanand-mishra/users-api/internal/http/handlers/user"
	"github.com/aanand-mishra/users-api/internal/http/middleware"
)

const (
	DocsPath    = "/api-docs"
	OpenAPIPath = DocsPath + "/openapi.json"
)

// Options configures New.
type Options struct {
	// Env carries the store, logger and not-found policy to the handlers.
	Env *user.Env

	// ServerURL is advertised in the OpenAPI document's servers list.
	// Empty leaves the list out so clients use the page's origin.
	ServerURL string

	// HealthTimeout bounds the store ping behind /health.
	HealthTimeout time.Duration
}

// New returns the root handler with middleware applied.
func New(opts Options) http.Handler {
	if opts.HealthTimeout <= 0 {
		opts.HealthTimeout = 2 * time.Second
	}
	log := opts.Env.Logger

	r := chi.NewRouter()

	// Order matters: the request id must exist before the logger reads it,
	// and Recoverer sits innermost so a recovered panic is still logged
	// as a 500.
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logger(log))
	r.Use(chimw.Recoverer)

	r.Post("/users", user.Create(opts.Env))
	r.Get("/users", user.List(opts.Env))
	r.Get("/users/{id}", user.GetByID(opts.Env))
	r.Put("/users/{id}", user.Update(opts.Env))
	r.Delete("/users/{id}", user.Delete(opts.Env))

	r.Get("/health", health.New(opts.Env.Storage, opts.HealthTimeout, log))

	r.Get(DocsPath, docs.UI(OpenAPIPath, log))
	r.Get(OpenAPIPath, docs.OpenAPI(opts.ServerURL))

	return r
}
