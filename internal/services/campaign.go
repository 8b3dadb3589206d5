package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/brandpick/apiserver/internal/store"
	"github.com/brandpick/apiserver/types"
	"go.uber.org/zap"
)

// UserDirectory resolves users by id.
type UserDirectory interface {
	GetByID(ctx context.Context, id string) (types.User, error)
}

// ProductCatalog resolves products by id. Unknown ids are omitted from the
// result and no ordering is guaranteed.
type ProductCatalog interface {
	GetByIDs(ctx context.Context, ids []string) ([]types.Product, error)
}

// CampaignStore persists campaigns and lists them per brand.
type CampaignStore interface {
	Create(ctx context.Context, campaign types.Campaign) (types.Campaign, error)
	ListForBrand(ctx context.Context, brandID string, offset, limit int) ([]types.CampaignWithOwner, int, error)
}

// Campaign creation failures caused by the request itself.
var (
	ErrBrandNotFound   = errors.New("brand not found")
	ErrNotBrand        = errors.New("user is not a brand")
	ErrInvalidProducts = errors.New("invalid products list")
)

// IsInvalidRequest reports whether err is one of the campaign validation
// failures rather than an infrastructure error.
func IsInvalidRequest(err error) bool {
	return errors.Is(err, ErrBrandNotFound) ||
		errors.Is(err, ErrNotBrand) ||
		errors.Is(err, ErrInvalidProducts)
}

// CampaignService creates campaigns and lists them for brands.
type CampaignService struct {
	users     UserDirectory
	products  ProductCatalog
	campaigns CampaignStore
	options
}

func NewCampaignService(users UserDirectory, products ProductCatalog, campaigns CampaignStore, opts ...Option) *CampaignService {
	return &CampaignService{
		users:     users,
		products:  products,
		campaigns: campaigns,
		options:   newOptions(opts),
	}
}

// CreateCampaign bundles productIDs of brandID into a campaign owned by
// creatorID. The checks run in order and stop at the first failure, so a
// rejected request performs no writes. The read-then-write sequence is not
// atomic: a product changing hands between the check and the insert is
// not detected.
func (s *CampaignService) CreateCampaign(ctx context.Context, creatorID, brandID string, productIDs []string) (types.Campaign, error) {
	brand, err := s.users.GetByID(ctx, brandID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.Campaign{}, ErrBrandNotFound
		}
		return types.Campaign{}, fmt.Errorf("find brand: %w", err)
	}
	if !brand.IsBrand() {
		return types.Campaign{}, ErrNotBrand
	}

	products, err := s.products.GetByIDs(ctx, productIDs)
	if err != nil {
		return types.Campaign{}, fmt.Errorf("load products: %w", err)
	}
	if err := s.checkProducts(brandID, productIDs, products); err != nil {
		return types.Campaign{}, err
	}

	campaign, err := s.campaigns.Create(ctx, types.Campaign{
		OwnerID:  creatorID,
		BrandID:  brandID,
		Products: append([]string{}, productIDs...),
		Expires:  s.now().Add(types.CampaignDuration),
	})
	if err != nil {
		return types.Campaign{}, fmt.Errorf("store campaign: %w", err)
	}

	s.logger.Info("campaign created",
		zap.String("campaign_id", campaign.ID),
		zap.String("owner_id", creatorID),
		zap.String("brand_id", brandID),
		zap.Int("products", len(productIDs)),
	)
	s.publish(ctx, types.ChannelCampaignCreated, types.CampaignCreatedEvent{
		CampaignID: campaign.ID,
		OwnerID:    campaign.OwnerID,
		BrandID:    campaign.BrandID,
		Products:   campaign.Products,
		Expires:    campaign.Expires,
	})
	return campaign, nil
}

// checkProducts requires every resolved product to belong to brandID. An
// empty resolution passes unless strict mode also demands that every
// requested id resolved.
func (s *CampaignService) checkProducts(brandID string, requested []string, products []types.Product) error {
	found := make(map[string]struct{}, len(products))
	for _, product := range products {
		if product.OwnerID != brandID {
			return ErrInvalidProducts
		}
		found[product.ID] = struct{}{}
	}
	if !s.strictProducts {
		return nil
	}
	for _, id := range requested {
		if _, ok := found[id]; !ok {
			return fmt.Errorf("%w: unknown product %s", ErrInvalidProducts, id)
		}
	}
	return nil
}

// ListCampaignsForBrand returns one page of brandID's campaigns, each with
// its creator, and the total number of campaigns the brand has.
func (s *CampaignService) ListCampaignsForBrand(ctx context.Context, brandID string, page, limit int) ([]types.CampaignWithOwner, int, error) {
	page, limit = normalizePage(page, limit)
	return s.campaigns.ListForBrand(ctx, brandID, (page-1)*limit, limit)
}

func normalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	return page, limit
}

const (
	defaultPageSize = 30
	maxPageSize     = 100
)
