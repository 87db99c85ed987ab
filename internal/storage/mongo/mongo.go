// Package mongo provides the MongoDB implementation of storage.Storage,
// the primary backend of the API. Users are stored one document per
// record in a single collection; the store assigns ObjectIDs and the
// API exposes their hex form as "_id".
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aanand-mishra/users-api/internal/storage"
	"github.com/aanand-mishra/users-api/internal/types"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// documentValidationFailure is the server error code for a write that a
// collection's $jsonSchema validator rejected.
const documentValidationFailure = 121

// Options configures the connection.
type Options struct {
	URI            string
	Database       string
	Collection     string
	ConnectTimeout time.Duration
}

// userDocument is the stored shape of a user.
type userDocument struct {
	ID    primitive.ObjectID `bson:"_id,omitempty"`
	Name  string             `bson:"name"`
	Email string             `bson:"email"`
	Age   int                `bson:"age"`
}

func (d userDocument) toUser() types.User {
	return types.User{ID: d.ID.Hex(), Name: d.Name, Email: d.Email, Age: d.Age}
}

// Mongo implements storage.Storage. The underlying *mongo.Client owns a
// connection pool and is safe for concurrent use.
type Mongo struct {
	client *mongo.Client
	coll   *mongo.Collection
}

var _ storage.Storage = (*Mongo)(nil)

// New connects to the server, checks it answers a ping, and returns a
// store bound to opts.Database / opts.Collection. The collection is
// created lazily by the first insert.
func New(ctx context.Context, opts Options) (*Mongo, error) {
	clientOpts := options.Client().ApplyURI(opts.URI)
	if opts.ConnectTimeout > 0 {
		clientOpts.SetConnectTimeout(opts.ConnectTimeout).
			SetServerSelectionTimeout(opts.ConnectTimeout)
	}

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("mongo.New: connect: %w", mapError(err))
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo.New: ping: %w", mapError(err))
	}

	return &Mongo{
		client: client,
		coll:   client.Database(opts.Database).Collection(opts.Collection),
	}, nil
}

// mapError translates driver errors into the storage sentinels.
func mapError(err error) error {
	if err == nil {
		return nil
	}

	var serverErr mongo.ServerError
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		return fmt.Errorf("%w: %v", storage.ErrNotFound, err)
	case mongo.IsDuplicateKeyError(err):
		return fmt.Errorf("%w: %v", storage.ErrDuplicate, err)
	case errors.As(err, &serverErr) && serverErr.HasErrorCode(documentValidationFailure):
		return fmt.Errorf("%w: %v", storage.ErrInvalidEntity, err)
	case mongo.IsTimeout(err), mongo.IsNetworkError(err), errors.Is(err, mongo.ErrClientDisconnected):
		return fmt.Errorf("%w: %v", storage.ErrUnavailable, err)
	}
	return err
}

// parseID converts a hex path id into an ObjectID.
func parseID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("%w: %q", storage.ErrInvalidID, id)
	}
	return oid, nil
}

// setDocument builds the $set document for a patch; only present fields
// are included, so absent fields keep their stored values.
func setDocument(p types.UserPatch) bson.D {
	set := bson.D{}
	if p.Name != nil {
		set = append(set, bson.E{Key: "name", Value: *p.Name})
	}
	if p.Email != nil {
		set = append(set, bson.E{Key: "email", Value: *p.Email})
	}
	if p.Age != nil {
		set = append(set, bson.E{Key: "age", Value: *p.Age})
	}
	return set
}

// CreateUser inserts one document. The ObjectID is generated client
// side, which is what the driver does anyway, so the inserted record can
// be returned without reading it back.
func (m *Mongo) CreateUser(ctx context.Context, req types.CreateUserRequest) (types.User, error) {
	doc := userDocument{
		ID:    primitive.NewObjectID(),
		Name:  req.Name,
		Email: req.Email,
		Age:   req.Age,
	}

	if _, err := m.coll.InsertOne(ctx, doc); err != nil {
		return types.User{}, fmt.Errorf("CreateUser: insert: %w", mapError(err))
	}
	return doc.toUser(), nil
}

// listOptions sorts by _id. ObjectIDs lead with their creation second,
// so this is insertion order for records created by one process, which
// natural order does not guarantee once documents move.
func listOptions() *options.FindOptions {
	return options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})
}

// ListUsers returns every document in _id order.
func (m *Mongo) ListUsers(ctx context.Context) ([]types.User, error) {
	cursor, err := m.coll.Find(ctx, bson.D{}, listOptions())
	if err != nil {
		return nil, fmt.Errorf("ListUsers: find: %w", mapError(err))
	}

	var docs []userDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("ListUsers: decode: %w", mapError(err))
	}

	users := make([]types.User, 0, len(docs))
	for _, d := range docs {
		users = append(users, d.toUser())
	}
	return users, nil
}

func (m *Mongo) GetUserByID(ctx context.Context, id string) (types.User, error) {
	oid, err := parseID(id)
	if err != nil {
		return types.User{}, err
	}

	var doc userDocument
	if err := m.coll.FindOne(ctx, bson.D{{Key: "_id", Value: oid}}).Decode(&doc); err != nil {
		return types.User{}, fmt.Errorf("GetUserByID %s: %w", id, mapError(err))
	}
	return doc.toUser(), nil
}

// UpdateUserByID is findOneAndUpdate with returnDocument=after.
func (m *Mongo) UpdateUserByID(ctx context.Context, id string, patch types.UserPatch) (types.User, error) {
	oid, err := parseID(id)
	if err != nil {
		return types.User{}, err
	}

	// An empty $set is a server error, so an empty patch is a plain read.
	if patch.IsEmpty() {
		return m.GetUserByID(ctx, id)
	}
	set := setDocument(patch)

	var doc userDocument
	err = m.coll.FindOneAndUpdate(ctx,
		bson.D{{Key: "_id", Value: oid}},
		bson.D{{Key: "$set", Value: set}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if err != nil {
		return types.User{}, fmt.Errorf("UpdateUserByID %s: %w", id, mapError(err))
	}
	return doc.toUser(), nil
}

// DeleteUserByID is findOneAndDelete; a miss reports ErrNotFound.
func (m *Mongo) DeleteUserByID(ctx context.Context, id string) error {
	oid, err := parseID(id)
	if err != nil {
		return err
	}

	if err := m.coll.FindOneAndDelete(ctx, bson.D{{Key: "_id", Value: oid}}).Err(); err != nil {
		return fmt.Errorf("DeleteUserByID %s: %w", id, mapError(err))
	}
	return nil
}

func (m *Mongo) Ping(ctx context.Context) error {
	if err := m.client.Ping(ctx, readpref.Primary()); err != nil {
		return fmt.Errorf("mongo ping: %w", mapError(err))
	}
	return nil
}

func (m *Mongo) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}
