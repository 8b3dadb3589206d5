// Package mongostore implements the repositories on top of MongoDB.
// Records are kept in documents with ObjectID keys and converted to the
// shared types at the package boundary.
package mongostore

import (
	"errors"

	"github.com/brandpick/apiserver/internal/store"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

const (
	usersCollection     = "users"
	productsCollection  = "products"
	campaignsCollection = "campaigns"
)

// objectID parses a hex id. Malformed ids can never match a document, so
// they are reported as store.ErrNotFound.
func objectID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, store.ErrNotFound
	}
	return oid, nil
}

// objectIDs parses ids, dropping the malformed ones.
func objectIDs(ids []string) []primitive.ObjectID {
	oids := make([]primitive.ObjectID, 0, len(ids))
	for _, id := range ids {
		if oid, err := primitive.ObjectIDFromHex(id); err == nil {
			oids = append(oids, oid)
		}
	}
	return oids
}

func hexIDs(oids []primitive.ObjectID) []string {
	ids := make([]string, len(oids))
	for i, oid := range oids {
		ids[i] = oid.Hex()
	}
	return ids
}

func mapReadError(err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return store.ErrNotFound
	}
	return err
}

func mapWriteError(err error) error {
	if mongo.IsDuplicateKeyError(err) {
		return store.ErrDuplicate
	}
	return err
}
