package mongostore

import (
	"context"
	"time"

	"github.com/brandpick/apiserver/types"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type tokenDoc struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	Token     string             `bson:"token"`
	UserID    string             `bson:"userId"`
	UserEmail string             `bson:"userEmail"`
	Expires   time.Time          `bson:"expires"`
}

// TokenRepository persists single-use tokens of one kind. Each kind lives
// in its own collection.
type TokenRepository struct {
	collection *mongo.Collection
}

func NewTokenRepository(database *mongo.Database, kind types.TokenKind) *TokenRepository {
	return &TokenRepository{collection: database.Collection(string(kind))}
}

func (r *TokenRepository) Create(ctx context.Context, token types.Token) error {
	doc := tokenDoc{
		Token:     token.Token,
		UserID:    token.UserID,
		UserEmail: token.UserEmail,
		Expires:   token.Expires,
	}
	if _, err := r.collection.InsertOne(ctx, doc); err != nil {
		return mapWriteError(err)
	}
	return nil
}

// FindAndDelete removes the token issued to email and returns it. Tokens
// are single use, so a second call returns store.ErrNotFound.
func (r *TokenRepository) FindAndDelete(ctx context.Context, email, token string) (types.Token, error) {
	var doc tokenDoc
	filter := bson.M{"userEmail": email, "token": token}
	if err := r.collection.FindOneAndDelete(ctx, filter).Decode(&doc); err != nil {
		return types.Token{}, mapReadError(err)
	}
	return types.Token{
		Token:     doc.Token,
		UserID:    doc.UserID,
		UserEmail: doc.UserEmail,
		Expires:   doc.Expires,
	}, nil
}
