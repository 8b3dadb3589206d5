package types

import "time"

// CampaignDuration is how long a campaign stays active after creation.
const CampaignDuration = 7 * 24 * time.Hour

// Campaign is a time-boxed bundle of products from one brand, created by
// a picker. Campaigns are immutable once stored.
type Campaign struct {
	// ID is the unique identifier of the campaign.
	ID string `json:"id" db:"id"`

	// OwnerID is the id of the picker that created the campaign.
	OwnerID string `json:"ownerId" db:"owner_id"`

	// BrandID is the id of the brand whose products are bundled.
	BrandID string `json:"brandId" db:"brand_id"`

	// Products holds the product ids exactly as the picker submitted them.
	Products []string `json:"products" db:"products"`

	// Expires is the creation time plus CampaignDuration. It is advisory
	// and never enforced by the store.
	Expires time.Time `json:"expires" db:"expires"`

	// CreatedAt is the timestamp at which the campaign was stored.
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

// CampaignWithOwner is a campaign expanded with the picker that owns it,
// as shown on the brand dashboard.
type CampaignWithOwner struct {
	Campaign
	Owner *User `json:"owner,omitempty"`
}
