package mongostore

import (
	"context"
	"fmt"
	"time"

	"github.com/brandpick/apiserver/internal/store"
	"github.com/brandpick/apiserver/types"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type campaignDoc struct {
	ID        primitive.ObjectID   `bson:"_id"`
	OwnerID   primitive.ObjectID   `bson:"ownerId"`
	BrandID   primitive.ObjectID   `bson:"brandId"`
	Products  []primitive.ObjectID `bson:"products"`
	Expires   time.Time            `bson:"expires"`
	CreatedAt time.Time            `bson:"createdAt"`
}

func (d campaignDoc) campaign() types.Campaign {
	return types.Campaign{
		ID:        d.ID.Hex(),
		OwnerID:   d.OwnerID.Hex(),
		BrandID:   d.BrandID.Hex(),
		Products:  hexIDs(d.Products),
		Expires:   d.Expires,
		CreatedAt: d.CreatedAt,
	}
}

// campaignOwnerDoc is the shape produced by the dashboard $lookup.
type campaignOwnerDoc struct {
	ID        primitive.ObjectID   `bson:"_id"`
	OwnerID   primitive.ObjectID   `bson:"ownerId"`
	BrandID   primitive.ObjectID   `bson:"brandId"`
	Products  []primitive.ObjectID `bson:"products"`
	Expires   time.Time            `bson:"expires"`
	CreatedAt time.Time            `bson:"createdAt"`
	Owner     []userDoc            `bson:"owner"`
}

func (d campaignOwnerDoc) campaign() types.Campaign {
	return campaignDoc{
		ID:        d.ID,
		OwnerID:   d.OwnerID,
		BrandID:   d.BrandID,
		Products:  d.Products,
		Expires:   d.Expires,
		CreatedAt: d.CreatedAt,
	}.campaign()
}

// CampaignRepository handles persistence for campaigns.
type CampaignRepository struct {
	collection *mongo.Collection
}

func NewCampaignRepository(database *mongo.Database) *CampaignRepository {
	return &CampaignRepository{collection: database.Collection(campaignsCollection)}
}

// Create stores the campaign. Product ids are stored as ObjectIDs in the
// order given, so every id must be well formed.
func (r *CampaignRepository) Create(ctx context.Context, campaign types.Campaign) (types.Campaign, error) {
	if campaign.ID == "" {
		campaign.ID = store.NewID()
	}
	doc := campaignDoc{
		Products:  make([]primitive.ObjectID, 0, len(campaign.Products)),
		Expires:   campaign.Expires,
		CreatedAt: time.Now().UTC().Truncate(time.Millisecond),
	}

	var err error
	if doc.ID, err = primitive.ObjectIDFromHex(campaign.ID); err != nil {
		return types.Campaign{}, fmt.Errorf("campaign id: %w", err)
	}
	if doc.OwnerID, err = primitive.ObjectIDFromHex(campaign.OwnerID); err != nil {
		return types.Campaign{}, fmt.Errorf("owner id: %w", err)
	}
	if doc.BrandID, err = primitive.ObjectIDFromHex(campaign.BrandID); err != nil {
		return types.Campaign{}, fmt.Errorf("brand id: %w", err)
	}
	for _, id := range campaign.Products {
		oid, err := primitive.ObjectIDFromHex(id)
		if err != nil {
			return types.Campaign{}, fmt.Errorf("product id %q: %w", id, err)
		}
		doc.Products = append(doc.Products, oid)
	}

	if _, err := r.collection.InsertOne(ctx, doc); err != nil {
		return types.Campaign{}, mapWriteError(err)
	}
	return doc.campaign(), nil
}

// ListForBrand returns a page of the brand's campaigns joined with the
// picker that created each one, plus the brand's total campaign count.
func (r *CampaignRepository) ListForBrand(ctx context.Context, brandID string, offset, limit int) ([]types.CampaignWithOwner, int, error) {
	if offset < 0 {
		offset = 0
	}
	if limit < 1 {
		limit = 30
	}
	oid, err := objectID(brandID)
	if err != nil {
		return []types.CampaignWithOwner{}, 0, nil
	}

	filter := bson.M{"brandId": oid}
	total, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: filter}},
		{{Key: "$sort", Value: bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}}}},
		{{Key: "$skip", Value: int64(offset)}},
		{{Key: "$limit", Value: int64(limit)}},
		{{Key: "$lookup", Value: bson.D{
			{Key: "from", Value: usersCollection},
			{Key: "localField", Value: "ownerId"},
			{Key: "foreignField", Value: "_id"},
			{Key: "as", Value: "owner"},
		}}},
	}
	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, 0, err
	}
	var docs []campaignOwnerDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, 0, err
	}

	campaigns := make([]types.CampaignWithOwner, 0, len(docs))
	for _, doc := range docs {
		item := types.CampaignWithOwner{Campaign: doc.campaign()}
		if len(doc.Owner) > 0 {
			owner := doc.Owner[0].user()
			item.Owner = &owner
		}
		campaigns = append(campaigns, item)
	}
	return campaigns, int(total), nil
}
