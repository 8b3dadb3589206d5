package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/brandpick/apiserver/types"
	"github.com/lib/pq"
)

// CampaignRepository handles persistence for campaigns.
type CampaignRepository struct {
	db *sql.DB
}

func NewCampaignRepository(db *sql.DB) *CampaignRepository {
	return &CampaignRepository{db: db}
}

func (r *CampaignRepository) Create(ctx context.Context, campaign types.Campaign) (types.Campaign, error) {
	if campaign.ID == "" {
		campaign.ID = NewID()
	}
	campaign.CreatedAt = time.Now()
	if campaign.Products == nil {
		campaign.Products = []string{}
	}

	const query = `
		INSERT INTO campaigns (id, owner_id, brand_id, products, expires, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`
	if _, err := r.db.ExecContext(
		ctx,
		query,
		campaign.ID,
		campaign.OwnerID,
		campaign.BrandID,
		pq.Array(campaign.Products),
		campaign.Expires,
		campaign.CreatedAt,
	); err != nil {
		return types.Campaign{}, mapWriteError(err)
	}
	return campaign, nil
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

	const countQuery = `SELECT COUNT(1) FROM campaigns WHERE brand_id = $1`
	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, brandID).Scan(&total); err != nil {
		return nil, 0, err
	}

	const listQuery = `
		SELECT c.id, c.owner_id, c.brand_id, c.products, c.expires, c.created_at,
		       u.id, u.name, u.email, u.role, u.password_hash, u.profile, u.services, u.created_at
		FROM campaigns c
		LEFT JOIN users u ON u.id = c.owner_id
		WHERE c.brand_id = $1
		ORDER BY c.created_at, c.id
		OFFSET $2 LIMIT $3`
	rows, err := r.db.QueryContext(ctx, listQuery, brandID, offset, limit)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	campaigns := make([]types.CampaignWithOwner, 0, limit)
	for rows.Next() {
		var item types.CampaignWithOwner
		var owner nullableUser
		if err := rows.Scan(
			&item.ID,
			&item.OwnerID,
			&item.BrandID,
			pq.Array(&item.Products),
			&item.Expires,
			&item.CreatedAt,
			&owner.ID,
			&owner.Name,
			&owner.Email,
			&owner.Role,
			&owner.PasswordHash,
			&owner.Profile,
			&owner.Services,
			&owner.CreatedAt,
		); err != nil {
			return nil, 0, err
		}
		if owner.ID.Valid {
			user, err := owner.user()
			if err != nil {
				return nil, 0, err
			}
			item.Owner = &user
		}
		campaigns = append(campaigns, item)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return campaigns, total, nil
}

// nullableUser receives the user side of a LEFT JOIN.
type nullableUser struct {
	ID           sql.NullString
	Name         sql.NullString
	Email        sql.NullString
	Role         sql.NullString
	PasswordHash sql.NullString
	Profile      []byte
	Services     []byte
	CreatedAt    sql.NullTime
}

func (n nullableUser) user() (types.User, error) {
	user := types.User{
		ID:           n.ID.String,
		Name:         n.Name.String,
		Email:        n.Email.String,
		Role:         n.Role.String,
		PasswordHash: n.PasswordHash.String,
		CreatedAt:    n.CreatedAt.Time,
	}
	if err := decodeUserDocs(&user, n.Profile, n.Services); err != nil {
		return types.User{}, err
	}
	return user, nil
}
