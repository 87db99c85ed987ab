// Package docs serves the machine-readable API description and a Swagger
// UI page that renders it.
package docs

import "github.com/google/jsonschema-go/jsonschema"

// Document is the subset of an OpenAPI 3.0 document this API needs.
type Document struct {
	OpenAPI    string              `json:"openapi"`
	Info       Info                `json:"info"`
	Servers    []Server            `json:"servers,omitempty"`
	Paths      map[string]PathItem `json:"paths"`
	Components Components          `json:"components"`
}

type Info struct {
	Title       string `json:"title"`
	Version     string `json:"version"`
	Description string `json:"description,omitempty"`
}

type Server struct {
	URL string `json:"url"`
}

// PathItem maps lower-case HTTP methods to operations.
type PathItem map[string]Operation

type Operation struct {
	Summary     string              `json:"summary"`
	Description string              `json:"description,omitempty"`
	OperationID string              `json:"operationId"`
	Tags        []string            `json:"tags,omitempty"`
	Parameters  []Parameter         `json:"parameters,omitempty"`
	RequestBody *RequestBody        `json:"requestBody,omitempty"`
	Responses   map[string]Response `json:"responses"`
}

type Parameter struct {
	Name        string             `json:"name"`
	In          string             `json:"in"`
	Required    bool               `json:"required"`
	Description string             `json:"description,omitempty"`
	Schema      *jsonschema.Schema `json:"schema"`
}

type RequestBody struct {
	Required bool                 `json:"required"`
	Content  map[string]MediaType `json:"content"`
}

type Response struct {
	Description string               `json:"description"`
	Content     map[string]MediaType `json:"content,omitempty"`
}

type MediaType struct {
	Schema *jsonschema.Schema `json:"schema"`
}

type Components struct {
	Schemas map[string]*jsonschema.Schema `json:"schemas"`
}

func ref(name string) *jsonschema.Schema {
	return &jsonschema.Schema{Ref: "#/components/schemas/" + name}
}

func jsonContent(s *jsonschema.Schema) map[string]MediaType {
	return map[string]MediaType{"application/json": {Schema: s}}
}

// bodyContent accepts the same schema as JSON or as a urlencoded form.
func bodyContent(s *jsonschema.Schema) map[string]MediaType {
	return map[string]MediaType{
		"application/json":                  {Schema: s},
		"application/x-www-form-urlencoded": {Schema: s},
	}
}

func errorResponse(description string) Response {
	return Response{Description: description, Content: jsonContent(ref("Error"))}
}

func ptr[T any](v T) *T { return &v }

// schemas returns the component schemas. Bounds mirror the validate tags
// of package types.
func schemas() map[string]*jsonschema.Schema {
	name := func() *jsonschema.Schema {
		return &jsonschema.Schema{Type: "string", MinLength: ptr(1), MaxLength: ptr(100)}
	}
	email := func() *jsonschema.Schema {
		return &jsonschema.Schema{Type: "string", Format: "email", MaxLength: ptr(254)}
	}
	age := func() *jsonschema.Schema {
		return &jsonschema.Schema{Type: "integer", Minimum: ptr(0.0), Maximum: ptr(150.0)}
	}

	return map[string]*jsonschema.Schema{
		"User": {
			Type:     "object",
			Required: []string{"_id", "name", "email", "age"},
			Properties: map[string]*jsonschema.Schema{
				"_id":   {Type: "string", Description: "Identifier assigned by the store"},
				"name":  name(),
				"email": email(),
				"age":   age(),
			},
		},
		"CreateUser": {
			Type:     "object",
			Required: []string{"name", "email"},
			Properties: map[string]*jsonschema.Schema{
				"name":  name(),
				"email": email(),
				"age":   age(),
			},
		},
		"UserPatch": {
			Type:        "object",
			Description: "Only the fields present are replaced",
			Properties: map[string]*jsonschema.Schema{
				"_id": {
					Type:        "string",
					Description: "Ignored; must match the path id when present",
				},
				"__v":   {Type: "integer", Description: "Ignored"},
				"name":  name(),
				"email": email(),
				"age":   age(),
			},
		},
		"FieldError": {
			Type:     "object",
			Required: []string{"field", "message"},
			Properties: map[string]*jsonschema.Schema{
				"field":   {Type: "string"},
				"message": {Type: "string"},
			},
		},
		"Error": {
			Type:     "object",
			Required: []string{"error", "kind"},
			Properties: map[string]*jsonschema.Schema{
				"error": {Type: "string", Description: "Standard HTTP status text"},
				"kind": {
					Type: "string",
					Enum: []any{"validation", "invalid_id", "rejected", "not_found", "store_unavailable", "internal"},
				},
				"fields": {Type: "array", Items: ref("FieldError")},
			},
		},
	}
}

// Spec builds the OpenAPI document. serverURL may be empty.
func Spec(serverURL string) Document {
	idParam := Parameter{
		Name:        "id",
		In:          "path",
		Required:    true,
		Description: "The user ID",
		Schema:      &jsonschema.Schema{Type: "string"},
	}
	patchBody := &RequestBody{Required: true, Content: bodyContent(ref("UserPatch"))}

	doc := Document{
		OpenAPI: "3.0.0",
		Info: Info{
			Title:       "Users API",
			Version:     "1.0.0",
			Description: "A simple CRUD API over users",
		},
		Paths: map[string]PathItem{
			"/users": {
				"post": {
					Summary:     "Create a new user",
					Description: "Adds a new user to the database.",
					OperationID: "createUser",
					Tags:        []string{"users"},
					RequestBody: &RequestBody{Required: true, Content: bodyContent(ref("CreateUser"))},
					Responses: map[string]Response{
						"201": {Description: "User created successfully", Content: jsonContent(ref("User"))},
						"400": errorResponse("Bad Request"),
						"503": errorResponse("Store unavailable"),
					},
				},
				"get": {
					Summary:     "Get all users",
					Description: "Fetch all users from the database.",
					OperationID: "listUsers",
					Tags:        []string{"users"},
					Responses: map[string]Response{
						"200": {
							Description: "List of users",
							Content:     jsonContent(&jsonschema.Schema{Type: "array", Items: ref("User")}),
						},
						"500": errorResponse("Internal Server Error"),
						"503": errorResponse("Store unavailable"),
					},
				},
			},
			"/users/{id}": {
				"get": {
					Summary:     "Get a user",
					OperationID: "getUser",
					Tags:        []string{"users"},
					Parameters:  []Parameter{idParam},
					Responses: map[string]Response{
						"200": {Description: "The user", Content: jsonContent(ref("User"))},
						"400": errorResponse("Malformed id"),
						"404": errorResponse("User not found"),
					},
				},
				"put": {
					Summary:     "Update user details",
					Description: "Updates an existing user's details by their ID. Unknown ids answer 200 with a null body unless strict not-found handling is enabled.",
					OperationID: "updateUser",
					Tags:        []string{"users"},
					Parameters:  []Parameter{idParam},
					RequestBody: patchBody,
					Responses: map[string]Response{
						"200": {Description: "User updated successfully", Content: jsonContent(ref("User"))},
						"400": errorResponse("Malformed id or invalid body"),
						"404": errorResponse("User not found (strict mode)"),
					},
				},
				"delete": {
					Summary:     "Delete a user",
					Description: "Deletes a user by their ID.",
					OperationID: "deleteUser",
					Tags:        []string{"users"},
					Parameters:  []Parameter{idParam},
					Responses: map[string]Response{
						"200": {
							Description: "User deleted successfully",
							Content: map[string]MediaType{
								"text/plain": {Schema: &jsonschema.Schema{Type: "string"}},
							},
						},
						"400": errorResponse("Malformed id"),
						"404": errorResponse("User not found (strict mode)"),
					},
				},
			},
			"/health": {
				"get": {
					Summary:     "Health check",
					OperationID: "health",
					Responses: map[string]Response{
						"200": {Description: "Store reachable"},
						"503": {Description: "Store unreachable"},
					},
				},
			},
		},
		Components: Components{Schemas: schemas()},
	}
	if serverURL != "" {
		doc.Servers = []Server{{URL: serverURL}}
	}
	return doc
}

