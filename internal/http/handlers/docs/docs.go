package docs

import (
	"html/template"
	"log/slog"
	"net/http"

	"github.com/aanand-mishra/users-api/internal/utils/response"
)

// uiPage renders the OpenAPI document with swagger-ui loaded from a CDN.
var uiPage = template.Must(template.New("swagger").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="utf-8">
  <title>{{.Title}}</title>
  <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css">
</head>
<body>
  <div id="swagger-ui"></div>
  <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js" crossorigin></script>
  <script>
    window.onload = function () {
      window.ui = SwaggerUIBundle({ url: {{.SpecURL}}, dom_id: "#swagger-ui" });
    };
  </script>
</body>
</html>
`))

// OpenAPI serves the document as JSON. It is built once.
func OpenAPI(serverURL string) http.HandlerFunc {
	doc := Spec(serverURL)
	return func(w http.ResponseWriter, r *http.Request) {
		response.WriteJSON(w, http.StatusOK, doc)
	}
}

// UI serves the Swagger UI page pointing at specURL.
func UI(specURL string, log *slog.Logger) http.HandlerFunc {
	data := struct {
		Title   string
		SpecURL string
	}{Title: Spec("").Info.Title, SpecURL: specURL}

	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := uiPage.Execute(w, data); err != nil {
			log.Error("failed to render swagger ui", slog.String("error", err.Error()))
		}
	}
}
