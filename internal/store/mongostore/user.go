package mongostore

import (
	"context"
	"errors"
	"time"

	"github.com/brandpick/apiserver/internal/store"
	"github.com/brandpick/apiserver/types"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type userDoc struct {
	ID           primitive.ObjectID  `bson:"_id"`
	Name         string              `bson:"name"`
	Email        string              `bson:"email"`
	Role         string              `bson:"role"`
	PasswordHash string              `bson:"password"`
	Profile      *types.BrandProfile `bson:"profile,omitempty"`
	Services     map[string]string   `bson:"services,omitempty"`
	CreatedAt    time.Time           `bson:"createdAt"`
}

func (d userDoc) user() types.User {
	return types.User{
		ID:           d.ID.Hex(),
		Name:         d.Name,
		Email:        d.Email,
		Role:         d.Role,
		PasswordHash: d.PasswordHash,
		Profile:      d.Profile,
		Services:     d.Services,
		CreatedAt:    d.CreatedAt,
	}
}

// UserRepository handles persistence for users.
type UserRepository struct {
	collection *mongo.Collection
}

func NewUserRepository(database *mongo.Database) *UserRepository {
	return &UserRepository{collection: database.Collection(usersCollection)}
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (types.User, error) {
	oid, err := objectID(id)
	if err != nil {
		return types.User{}, err
	}
	return r.findOne(ctx, bson.M{"_id": oid})
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (types.User, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

// GetByServiceOrEmail finds the user linked to the given provider id, or
// failing that the user registered with email. An empty email never
// matches.
func (r *UserRepository) GetByServiceOrEmail(ctx context.Context, service, externalID, email string) (types.User, error) {
	user, err := r.findOne(ctx, bson.M{"services." + service: externalID})
	if !errors.Is(err, store.ErrNotFound) || email == "" {
		return user, err
	}
	return r.GetByEmail(ctx, email)
}

func (r *UserRepository) Create(ctx context.Context, user types.User) (types.User, error) {
	if user.ID == "" {
		user.ID = store.NewID()
	}
	oid, err := primitive.ObjectIDFromHex(user.ID)
	if err != nil {
		return types.User{}, err
	}
	user.CreatedAt = time.Now().UTC().Truncate(time.Millisecond)

	doc := userDoc{
		ID:           oid,
		Name:         user.Name,
		Email:        user.Email,
		Role:         user.Role,
		PasswordHash: user.PasswordHash,
		Profile:      user.Profile,
		Services:     user.Services,
		CreatedAt:    user.CreatedAt,
	}
	if _, err := r.collection.InsertOne(ctx, doc); err != nil {
		return types.User{}, mapWriteError(err)
	}
	return user, nil
}

// Update rewrites the mutable fields of a user. Role and email are kept.
func (r *UserRepository) Update(ctx context.Context, user types.User) (types.User, error) {
	oid, err := objectID(user.ID)
	if err != nil {
		return types.User{}, err
	}

	set := bson.M{
		"name":     user.Name,
		"password": user.PasswordHash,
		"services": user.Services,
	}
	update := bson.M{"$set": set}
	if user.Profile != nil {
		set["profile"] = user.Profile
	} else {
		update["$unset"] = bson.M{"profile": ""}
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var doc userDoc
	if err := r.collection.FindOneAndUpdate(ctx, bson.M{"_id": oid}, update, opts).Decode(&doc); err != nil {
		return types.User{}, mapReadError(err)
	}
	return doc.user(), nil
}

func (r *UserRepository) ListByRole(ctx context.Context, role string, offset, limit int) ([]types.User, int, error) {
	if offset < 0 {
		offset = 0
	}
	if limit < 1 {
		limit = 30
	}

	filter := bson.M{"role": role}
	total, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}
	var docs []userDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, 0, err
	}

	users := make([]types.User, 0, len(docs))
	for _, doc := range docs {
		users = append(users, doc.user())
	}
	return users, int(total), nil
}

func (r *UserRepository) findOne(ctx context.Context, filter bson.M) (types.User, error) {
	var doc userDoc
	if err := r.collection.FindOne(ctx, filter).Decode(&doc); err != nil {
		return types.User{}, mapReadError(err)
	}
	return doc.user(), nil
}
