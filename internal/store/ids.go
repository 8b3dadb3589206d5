package store

import "go.mongodb.org/mongo-driver/bson/primitive"

// NewID returns a new record identifier. Every backend uses the hex form
// of a Mongo ObjectID so ids stay valid when data moves between backends.
func NewID() string {
	return primitive.NewObjectID().Hex()
}

// IsValidID reports whether id has the shape produced by NewID.
func IsValidID(id string) bool {
	return primitive.IsValidObjectID(id)
}
