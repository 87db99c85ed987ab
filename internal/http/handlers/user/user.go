// Package user contains all HTTP handlers related to the User resource.
//
// HANDLER PATTERN USED HERE: THE CLOSURE / FACTORY PATTERN
// ────────────────────────────────────────────────────────────
// The router expects handler functions with the signature:
//
//	func(http.ResponseWriter, *http.Request)
//
// That signature has no room for extra parameters like a database.
// Each factory below accepts the shared *Env (built once at startup) and
// returns a function with the exact signature the router needs:
//
//	r.Post("/users", user.Create(env))
//
// Handlers keep no state between requests; every operation goes
// straight to env.Storage.
package user

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"reflect"
	"slices"
	"strings"

	"github.com/aanand-mishra/users-api/internal/storage"
	"github.com/aanand-mishra/users-api/internal/types"
	"github.com/aanand-mishra/users-api/internal/utils/response"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/form/v4"
	"github.com/go-playground/validator/v10"
)

// maxBodyBytes caps request bodies; a user record is a few hundred bytes.
const maxBodyBytes = 1 << 20

// DeletedMessage is the plain-text body of a successful delete.
const DeletedMessage = "User deleted"

// Env is the process-wide context shared by every handler.
type Env struct {
	Storage storage.Storage
	Logger  *slog.Logger

	// StrictNotFound turns the silent-success answers of update (200 null)
	// and delete (200 "User deleted") for unknown ids into 404s.
	StrictNotFound bool
}

// validate is safe for concurrent use and caches struct metadata, so one
// instance serves every request.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report json names ("email") instead of Go field names ("Email").
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func (e *Env) log(r *http.Request) *slog.Logger {
	return e.Logger.With(slog.String("request_id", middleware.GetReqID(r.Context())))
}

// formDecoder fills request structs from urlencoded bodies. It reads the
// json tags so a field has one name in both encodings.
var formDecoder = newFormDecoder()

func newFormDecoder() *form.Decoder {
	d := form.NewDecoder()
	d.SetTagName("json")
	return d
}

// decode reads the request body into dst and validates it.
// application/x-www-form-urlencoded bodies are decoded as forms; every
// other content type is read as JSON.
// Every failure is a KindValidation APIError.
func decode(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	var err error
	if mediaType == "application/x-www-form-urlencoded" {
		err = decodeForm(r, dst)
	} else {
		err = decodeJSON(r, dst)
	}
	if err != nil {
		return err
	}

	if err := validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			return response.ValidationError(verrs)
		}
		return response.New(response.KindValidation, err)
	}
	return nil
}

func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		return decodeError(err)
	}
	if dec.More() {
		return fieldError("body", "must contain a single JSON object", nil)
	}
	return nil
}

// decodeForm is lenient about unknown keys, as form posts usually carry
// extra inputs. Values are still converted to the field types, so
// "age=30" works and "age=x" does not.
func decodeForm(r *http.Request, dst any) error {
	if err := r.ParseForm(); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return fieldError("body", fmt.Sprintf("must not exceed %d bytes", maxErr.Limit), err)
		}
		return fieldError("body", "is not a valid form", err)
	}

	if err := formDecoder.Decode(dst, r.PostForm); err != nil {
		var derrs form.DecodeErrors
		if !errors.As(err, &derrs) {
			return response.New(response.KindValidation, err)
		}
		// Only numeric fields can fail to convert.
		names := make([]string, 0, len(derrs))
		for name := range derrs {
			names = append(names, name)
		}
		slices.Sort(names)
		fields := make([]response.FieldError, 0, len(names))
		for _, name := range names {
			fields = append(fields, response.FieldError{Field: name, Message: "must be a number"})
		}
		return &response.APIError{Kind: response.KindValidation, Fields: fields, Cause: err}
	}
	return nil
}

func fieldError(field, msg string, cause error) *response.APIError {
	return &response.APIError{
		Kind:   response.KindValidation,
		Fields: []response.FieldError{{Field: field, Message: msg}},
		Cause:  cause,
	}
}

// decodeError turns a json.Decoder failure into a field-level message.
func decodeError(err error) *response.APIError {
	var (
		syntaxErr *json.SyntaxError
		typeErr   *json.UnmarshalTypeError
		maxErr    *http.MaxBytesError
	)

	switch {
	// io.EOF means the body was completely empty; nothing to decode.
	case errors.Is(err, io.EOF):
		return fieldError("body", "is empty", err)
	case errors.As(err, &syntaxErr), errors.Is(err, io.ErrUnexpectedEOF):
		return fieldError("body", "is not valid JSON", err)
	case errors.As(err, &typeErr):
		field := typeErr.Field
		if field == "" {
			return fieldError("body", "must be a JSON object", err)
		}
		return fieldError(field, fmt.Sprintf("must be of type %s", typeErr.Type), err)
	case errors.As(err, &maxErr):
		return fieldError("body", fmt.Sprintf("must not exceed %d bytes", maxErr.Limit), err)
	case strings.HasPrefix(err.Error(), "json: unknown field "):
		field := strings.Trim(strings.TrimPrefix(err.Error(), "json: unknown field "), `"`)
		return fieldError(field, "is not allowed", err)
	default:
		return response.New(response.KindValidation, err)
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Create handles POST /users
//
// Request body (JSON, or an urlencoded form with the same keys):
//
//	{ "name": "Ann", "email": "a@x.com", "age": 30 }
//
// Success response (201 Created), the stored record:
//
//	{ "_id": "6650c1…", "name": "Ann", "email": "a@x.com", "age": 30 }
//
// Error responses:
//
//	400 Bad Request  (validation)         empty/malformed body, failed validation
//	400 Bad Request  (rejected)           the store refused the write
//	503 Unavailable  (store_unavailable)  the store could not be reached
//
// ─────────────────────────────────────────────────────────────────────────────
func Create(env *Env) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := env.log(r)
		log.Info("creating a user")

		var req types.CreateUserRequest
		if err := decode(w, r, &req); err != nil {
			response.WriteError(w, log, err)
			return
		}

		user, err := env.Storage.CreateUser(r.Context(), req)
		if err != nil {
			response.WriteError(w, log, response.FromStorageError(err, response.KindRejected))
			return
		}

		log.Info("user created", slog.String("id", user.ID))
		response.WriteJSON(w, http.StatusCreated, user)
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// List handles GET /users
// Returns a JSON array of all users, unfiltered and unpaginated, in the
// store's natural order. An empty store yields [] (not null).
//
// Error responses:
//
//	500 Internal     (internal)           store read failed
//	503 Unavailable  (store_unavailable)  the store could not be reached
//
// ─────────────────────────────────────────────────────────────────────────────
func List(env *Env) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := env.log(r)
		log.Info("listing users")

		users, err := env.Storage.ListUsers(r.Context())
		if err != nil {
			response.WriteError(w, log, response.FromStorageError(err, response.KindInternal))
			return
		}

		if users == nil {
			users = []types.User{}
		}
		response.WriteJSON(w, http.StatusOK, users)
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// GetByID handles GET /users/{id}
//
// Error responses:
//
//	400 Bad Request  (invalid_id)  id is not in the store's id format
//	404 Not Found    (not_found)   no user with that id
//
// ─────────────────────────────────────────────────────────────────────────────
func GetByID(env *Env) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		log := env.log(r).With(slog.String("id", id))
		log.Info("getting a user")

		user, err := env.Storage.GetUserByID(r.Context(), id)
		if err != nil {
			response.WriteError(w, log, response.FromStorageError(err, response.KindInternal))
			return
		}

		response.WriteJSON(w, http.StatusOK, user)
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Update handles PUT /users/{id}
// Merges the provided fields into the stored record; absent fields keep
// their values and the id never changes.
//
// Request body (JSON or urlencoded form), any subset of the fields:
//
//	{ "age": 31 }
//
// A whole record as returned by GET is accepted too. Its "_id" must
// match the path and, like "__v", is never written.
//
// Success response (200 OK), the record after the update.
//
// Unknown id: 200 with body null, or 404 (not_found) when
// StrictNotFound is set.
//
// Error responses:
//
//	400 Bad Request  (invalid_id | validation)  includes a mismatched "_id"
//	500 Internal     (internal)
//
// ─────────────────────────────────────────────────────────────────────────────
func Update(env *Env) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		log := env.log(r).With(slog.String("id", id))
		log.Info("updating a user")

		var patch types.UserPatch
		if err := decode(w, r, &patch); err != nil {
			response.WriteError(w, log, err)
			return
		}
		// Ids are hex or UUIDs, so case does not distinguish records.
		if patch.ID != nil && !strings.EqualFold(*patch.ID, id) {
			response.WriteError(w, log, fieldError("_id", "must match the id in the path", nil))
			return
		}

		user, err := env.Storage.UpdateUserByID(r.Context(), id, patch)
		if errors.Is(err, storage.ErrNotFound) && !env.StrictNotFound {
			log.Info("update matched no user")
			response.WriteJSON(w, http.StatusOK, nil)
			return
		}
		if err != nil {
			response.WriteError(w, log, response.FromStorageError(err, response.KindInternal))
			return
		}

		log.Info("user updated")
		response.WriteJSON(w, http.StatusOK, user)
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Delete handles DELETE /users/{id}
// Permanently removes a user.
//
// Success response (200 OK, text/plain):
//
//	User deleted
//
// Unknown id: the same 200 answer, or 404 (not_found) when
// StrictNotFound is set.
//
// Error responses:
//
//	400 Bad Request  (invalid_id)
//	500 Internal     (internal)
//
// ─────────────────────────────────────────────────────────────────────────────
func Delete(env *Env) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		log := env.log(r).With(slog.String("id", id))
		log.Info("deleting a user")

		err := env.Storage.DeleteUserByID(r.Context(), id)
		if errors.Is(err, storage.ErrNotFound) && !env.StrictNotFound {
			log.Info("delete matched no user")
			err = nil
		}
		if err != nil {
			response.WriteError(w, log, response.FromStorageError(err, response.KindInternal))
			return
		}

		log.Info("user deleted")
		response.WriteText(w, http.StatusOK, DeletedMessage)
	}
}
