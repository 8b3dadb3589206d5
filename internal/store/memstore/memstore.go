// Package memstore keeps every record in process memory. It backs the
// "memory" driver for local development and the service and handler tests.
package memstore

import (
	"context"
	"sync"
	"time"

	"github.com/brandpick/apiserver/internal/store"
	"github.com/brandpick/apiserver/types"
)

// Store holds all collections behind one lock.
type Store struct {
	mu sync.RWMutex

	users      map[string]types.User
	userOrder  []string
	products   map[string]types.Product
	productIDs []string
	campaigns  []types.Campaign
	tokens     map[types.TokenKind]map[tokenKey]types.Token
}

type tokenKey struct {
	email string
	token string
}

func New() *Store {
	return &Store{
		users:    make(map[string]types.User),
		products: make(map[string]types.Product),
		tokens:   make(map[types.TokenKind]map[tokenKey]types.Token),
	}
}

func (s *Store) Users() *UserRepository {
	return &UserRepository{s: s}
}

func (s *Store) Products() *ProductRepository {
	return &ProductRepository{s: s}
}

func (s *Store) Campaigns() *CampaignRepository {
	return &CampaignRepository{s: s}
}

func (s *Store) Tokens(kind types.TokenKind) *TokenRepository {
	return &TokenRepository{s: s, kind: kind}
}

// UserRepository is the in-memory user collection.
type UserRepository struct {
	s *Store
}

func (r *UserRepository) GetByID(_ context.Context, id string) (types.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	user, ok := r.s.users[id]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	return cloneUser(user), nil
}

func (r *UserRepository) GetByEmail(_ context.Context, email string) (types.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, id := range r.s.userOrder {
		if user := r.s.users[id]; user.Email == email {
			return cloneUser(user), nil
		}
	}
	return types.User{}, store.ErrNotFound
}

func (r *UserRepository) GetByServiceOrEmail(ctx context.Context, service, externalID, email string) (types.User, error) {
	r.s.mu.RLock()
	for _, id := range r.s.userOrder {
		user := r.s.users[id]
		if linked, ok := user.Services[service]; ok && linked == externalID {
			r.s.mu.RUnlock()
			return cloneUser(user), nil
		}
	}
	r.s.mu.RUnlock()
	if email == "" {
		return types.User{}, store.ErrNotFound
	}
	return r.GetByEmail(ctx, email)
}

func (r *UserRepository) Create(_ context.Context, user types.User) (types.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, existing := range r.s.users {
		if existing.Email == user.Email {
			return types.User{}, store.ErrDuplicate
		}
	}
	if user.ID == "" {
		user.ID = store.NewID()
	}
	if _, ok := r.s.users[user.ID]; ok {
		return types.User{}, store.ErrDuplicate
	}
	user.CreatedAt = time.Now()

	r.s.users[user.ID] = cloneUser(user)
	r.s.userOrder = append(r.s.userOrder, user.ID)
	return cloneUser(user), nil
}

// Update rewrites the mutable fields of a user. Role and email are kept.
func (r *UserRepository) Update(_ context.Context, user types.User) (types.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	existing, ok := r.s.users[user.ID]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	existing.Name = user.Name
	existing.PasswordHash = user.PasswordHash
	existing.Profile = user.Profile
	existing.Services = user.Services
	existing = cloneUser(existing)

	r.s.users[user.ID] = existing
	return cloneUser(existing), nil
}

func (r *UserRepository) ListByRole(_ context.Context, role string, offset, limit int) ([]types.User, int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	matched := make([]types.User, 0)
	for _, id := range r.s.userOrder {
		if user := r.s.users[id]; user.Role == role {
			matched = append(matched, cloneUser(user))
		}
	}
	return page(matched, offset, limit), len(matched), nil
}

// ProductRepository is the in-memory product collection.
type ProductRepository struct {
	s *Store
}

func (r *ProductRepository) Get(_ context.Context, id string) (types.Product, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	product, ok := r.s.products[id]
	if !ok {
		return types.Product{}, store.ErrNotFound
	}
	return product, nil
}

// GetByIDs returns the products matching ids. Unknown ids are skipped and
// duplicates are returned once.
func (r *ProductRepository) GetByIDs(_ context.Context, ids []string) ([]types.Product, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	seen := make(map[string]struct{}, len(ids))
	products := make([]types.Product, 0, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if product, ok := r.s.products[id]; ok {
			products = append(products, product)
		}
	}
	return products, nil
}

// ListByOwner returns a page of the owner's products, newest first.
func (r *ProductRepository) ListByOwner(_ context.Context, ownerID string, offset, limit int) ([]types.Product, int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	matched := make([]types.Product, 0)
	for i := len(r.s.productIDs) - 1; i >= 0; i-- {
		if product := r.s.products[r.s.productIDs[i]]; product.OwnerID == ownerID {
			matched = append(matched, product)
		}
	}
	return page(matched, offset, limit), len(matched), nil
}

func (r *ProductRepository) Create(_ context.Context, product types.Product) (types.Product, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if product.ID == "" {
		product.ID = store.NewID()
	}
	if _, ok := r.s.products[product.ID]; ok {
		return types.Product{}, store.ErrDuplicate
	}
	product.CreatedAt = time.Now()

	r.s.products[product.ID] = product
	r.s.productIDs = append(r.s.productIDs, product.ID)
	return product, nil
}

// Update rewrites the mutable product fields. Ownership is never changed.
func (r *ProductRepository) Update(_ context.Context, product types.Product) (types.Product, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	existing, ok := r.s.products[product.ID]
	if !ok {
		return types.Product{}, store.ErrNotFound
	}
	product.OwnerID = existing.OwnerID
	product.CreatedAt = existing.CreatedAt

	r.s.products[product.ID] = product
	return product, nil
}

// CampaignRepository is the in-memory campaign collection.
type CampaignRepository struct {
	s *Store
}

func (r *CampaignRepository) Create(_ context.Context, campaign types.Campaign) (types.Campaign, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if campaign.ID == "" {
		campaign.ID = store.NewID()
	}
	campaign.CreatedAt = time.Now()
	campaign.Products = append([]string{}, campaign.Products...)

	r.s.campaigns = append(r.s.campaigns, campaign)
	return campaign, nil
}

// ListForBrand returns a page of the brand's campaigns in creation order,
// each joined with the picker that created it.
func (r *CampaignRepository) ListForBrand(_ context.Context, brandID string, offset, limit int) ([]types.CampaignWithOwner, int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	matched := make([]types.CampaignWithOwner, 0)
	for _, campaign := range r.s.campaigns {
		if campaign.BrandID != brandID {
			continue
		}
		item := types.CampaignWithOwner{Campaign: campaign}
		item.Products = append([]string{}, campaign.Products...)
		if owner, ok := r.s.users[campaign.OwnerID]; ok {
			owner = cloneUser(owner)
			item.Owner = &owner
		}
		matched = append(matched, item)
	}
	return page(matched, offset, limit), len(matched), nil
}

// Count returns the number of stored campaigns.
func (r *CampaignRepository) Count() int {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return len(r.s.campaigns)
}

// TokenRepository is the in-memory collection of one token kind.
type TokenRepository struct {
	s    *Store
	kind types.TokenKind
}

func (r *TokenRepository) Create(_ context.Context, token types.Token) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	tokens, ok := r.s.tokens[r.kind]
	if !ok {
		tokens = make(map[tokenKey]types.Token)
		r.s.tokens[r.kind] = tokens
	}
	key := tokenKey{email: token.UserEmail, token: token.Token}
	if _, ok := tokens[key]; ok {
		return store.ErrDuplicate
	}
	tokens[key] = token
	return nil
}

// FindAndDelete removes the token issued to email and returns it.
func (r *TokenRepository) FindAndDelete(_ context.Context, email, token string) (types.Token, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	key := tokenKey{email: email, token: token}
	found, ok := r.s.tokens[r.kind][key]
	if !ok {
		return types.Token{}, store.ErrNotFound
	}
	delete(r.s.tokens[r.kind], key)
	return found, nil
}

func page[T any](items []T, offset, limit int) []T {
	if offset < 0 {
		offset = 0
	}
	if limit < 1 {
		limit = 30
	}
	if offset >= len(items) {
		return []T{}
	}
	end := offset + limit
	if end > len(items) {
		end = len(items)
	}
	return items[offset:end]
}

func cloneUser(user types.User) types.User {
	if user.Profile != nil {
		profile := *user.Profile
		user.Profile = &profile
	}
	if user.Services != nil {
		services := make(map[string]string, len(user.Services))
		for k, v := range user.Services {
			services[k] = v
		}
		user.Services = services
	}
	return user
}
