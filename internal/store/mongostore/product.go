package mongostore

import (
	"context"
	"time"

	"github.com/brandpick/apiserver/internal/store"
	"github.com/brandpick/apiserver/types"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type productDoc struct {
	ID               primitive.ObjectID `bson:"_id"`
	OwnerID          primitive.ObjectID `bson:"ownerId"`
	Name             string             `bson:"name"`
	Price            float64            `bson:"price"`
	Description      string             `bson:"description"`
	OutOfStock       *bool              `bson:"outOfStock,omitempty"`
	Type             string             `bson:"type,omitempty"`
	Sizes            string             `bson:"sizes,omitempty"`
	ImageKey         string             `bson:"imageKey,omitempty"`
	ImageContentType string             `bson:"imageContentType,omitempty"`
	CreatedAt        time.Time          `bson:"createdAt"`
}

func (d productDoc) product() types.Product {
	return types.Product{
		ID:               d.ID.Hex(),
		OwnerID:          d.OwnerID.Hex(),
		Name:             d.Name,
		Price:            d.Price,
		Description:      d.Description,
		OutOfStock:       d.OutOfStock,
		Type:             d.Type,
		Sizes:            d.Sizes,
		ImageKey:         d.ImageKey,
		ImageContentType: d.ImageContentType,
		CreatedAt:        d.CreatedAt,
	}
}

// ProductRepository handles persistence for products.
type ProductRepository struct {
	collection *mongo.Collection
}

func NewProductRepository(database *mongo.Database) *ProductRepository {
	return &ProductRepository{collection: database.Collection(productsCollection)}
}

func (r *ProductRepository) Get(ctx context.Context, id string) (types.Product, error) {
	oid, err := objectID(id)
	if err != nil {
		return types.Product{}, err
	}
	var doc productDoc
	if err := r.collection.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		return types.Product{}, mapReadError(err)
	}
	return doc.product(), nil
}

// GetByIDs returns the products matching ids. Unknown and malformed ids
// are skipped.
func (r *ProductRepository) GetByIDs(ctx context.Context, ids []string) ([]types.Product, error) {
	oids := objectIDs(ids)
	if len(oids) == 0 {
		return []types.Product{}, nil
	}
	return r.find(ctx, bson.M{"_id": bson.M{"$in": oids}}, options.Find())
}

// ListByOwner returns a page of the owner's products, newest first.
func (r *ProductRepository) ListByOwner(ctx context.Context, ownerID string, offset, limit int) ([]types.Product, int, error) {
	if offset < 0 {
		offset = 0
	}
	if limit < 1 {
		limit = 30
	}
	oid, err := objectID(ownerID)
	if err != nil {
		return []types.Product{}, 0, nil
	}

	filter := bson.M{"ownerId": oid}
	total, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))
	products, err := r.find(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}
	return products, int(total), nil
}

func (r *ProductRepository) Create(ctx context.Context, product types.Product) (types.Product, error) {
	if product.ID == "" {
		product.ID = store.NewID()
	}
	doc, err := newProductDoc(product)
	if err != nil {
		return types.Product{}, err
	}
	doc.CreatedAt = time.Now().UTC().Truncate(time.Millisecond)

	if _, err := r.collection.InsertOne(ctx, doc); err != nil {
		return types.Product{}, mapWriteError(err)
	}
	return doc.product(), nil
}

// Update rewrites the mutable product fields. Ownership is never changed.
func (r *ProductRepository) Update(ctx context.Context, product types.Product) (types.Product, error) {
	oid, err := objectID(product.ID)
	if err != nil {
		return types.Product{}, err
	}

	set := bson.M{
		"name":             product.Name,
		"price":            product.Price,
		"description":      product.Description,
		"type":             product.Type,
		"sizes":            product.Sizes,
		"imageKey":         product.ImageKey,
		"imageContentType": product.ImageContentType,
	}
	update := bson.M{"$set": set}
	if product.OutOfStock != nil {
		set["outOfStock"] = *product.OutOfStock
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var doc productDoc
	if err := r.collection.FindOneAndUpdate(ctx, bson.M{"_id": oid}, update, opts).Decode(&doc); err != nil {
		return types.Product{}, mapReadError(err)
	}
	return doc.product(), nil
}

func (r *ProductRepository) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]types.Product, error) {
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	var docs []productDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}

	products := make([]types.Product, 0, len(docs))
	for _, doc := range docs {
		products = append(products, doc.product())
	}
	return products, nil
}

func newProductDoc(product types.Product) (productDoc, error) {
	oid, err := primitive.ObjectIDFromHex(product.ID)
	if err != nil {
		return productDoc{}, err
	}
	ownerID, err := primitive.ObjectIDFromHex(product.OwnerID)
	if err != nil {
		return productDoc{}, err
	}
	return productDoc{
		ID:               oid,
		OwnerID:          ownerID,
		Name:             product.Name,
		Price:            product.Price,
		Description:      product.Description,
		OutOfStock:       product.OutOfStock,
		Type:             product.Type,
		Sizes:            product.Sizes,
		ImageKey:         product.ImageKey,
		ImageContentType: product.ImageContentType,
		CreatedAt:        product.CreatedAt,
	}, nil
}
