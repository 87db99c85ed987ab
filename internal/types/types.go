// Package types holds all shared data structures (models) used across
// the application. Keeping them in one place prevents import cycles:
// handlers, storage, and utils can all import types without depending
// on each other.
package types

// User is a stored user record.
//
// The identifier is assigned by the storage backend when the record is
// created and never changes afterwards. Its format belongs to the backend
// (a 24-character hex ObjectID for MongoDB, a UUID for the SQL and memory
// backends), so handlers treat it as an opaque string.
//
// The JSON key "_id" keeps the wire format of a document store.
type User struct {
	ID    string `json:"_id"   db:"id"`
	Name  string `json:"name"  db:"name"`
	Email string `json:"email" db:"email"`
	Age   int    `json:"age"   db:"age"`
}

// CreateUserRequest is the validated input of POST /users.
//
// validate:"..." tags are checked by go-playground/validator before the
// request reaches the storage layer:
//
//   - name and email are required
//   - name is at most 100 characters, email at most 254 (RFC 5321)
//   - age is optional and must be between 0 and 150
type CreateUserRequest struct {
	Name  string `json:"name"  validate:"required,min=1,max=100"`
	Email string `json:"email" validate:"required,email,max=254"`
	Age   int    `json:"age"   validate:"gte=0,lte=150"`
}

// UserPatch is the input of PUT /users/{id}.
//
// Every field is a pointer: nil means "leave as is", so a body of
// {"age": 31} only replaces the age. Present fields obey the same
// bounds as CreateUserRequest.
//
// ID and Version are accepted so a record fetched with GET (or one
// carrying a document-store "__v") can be sent back as is. Neither is
// ever applied; the handler only checks that ID names the same record
// as the path.
type UserPatch struct {
	ID      *string `json:"_id,omitempty"   validate:"-"`
	Version *int    `json:"__v,omitempty"   validate:"-"`
	Name    *string `json:"name,omitempty"  validate:"omitempty,min=1,max=100"`
	Email   *string `json:"email,omitempty" validate:"omitempty,email,max=254"`
	Age     *int    `json:"age,omitempty"   validate:"omitempty,gte=0,lte=150"`
}

// IsEmpty reports whether the patch changes nothing. ID and Version
// do not count.
func (p UserPatch) IsEmpty() bool {
	return p.Name == nil && p.Email == nil && p.Age == nil
}

// Apply returns u with every non-nil field of p copied over it.
// The identifier is never touched.
func (p UserPatch) Apply(u User) User {
	if p.Name != nil {
		u.Name = *p.Name
	}
	if p.Email != nil {
		u.Email = *p.Email
	}
	if p.Age != nil {
		u.Age = *p.Age
	}
	return u
}

// NewUser builds the record a backend stores for a create request.
func NewUser(id string, req CreateUserRequest) User {
	return User{ID: id, Name: req.Name, Email: req.Email, Age: req.Age}
}
