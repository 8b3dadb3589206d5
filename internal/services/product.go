package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"

	"github.com/brandpick/apiserver/types"
	"go.uber.org/zap"
)

// ProductRepository defines persistence operations for products.
type ProductRepository interface {
	Get(ctx context.Context, id string) (types.Product, error)
	GetByIDs(ctx context.Context, ids []string) ([]types.Product, error)
	ListByOwner(ctx context.Context, ownerID string, offset, limit int) ([]types.Product, int, error)
	Create(ctx context.Context, product types.Product) (types.Product, error)
	Update(ctx context.Context, product types.Product) (types.Product, error)
}

// ImageStore keeps product images. *storage.Storage satisfies it.
type ImageStore interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}

var (
	// ErrStorageDisabled is returned by image operations when no object
	// storage backend is configured.
	ErrStorageDisabled = errors.New("object storage is disabled")

	// ErrNotOwner is returned when a brand touches another brand's product.
	ErrNotOwner = errors.New("product belongs to another brand")

	// ErrNoImage is returned when a product has no stored image.
	ErrNoImage = errors.New("product has no image")
)

// ProductService encapsulates product use-cases.
type ProductService struct {
	repo   ProductRepository
	images ImageStore
	options
}

// NewProductService constructs a ProductService. images may be nil, in
// which case image operations return ErrStorageDisabled.
func NewProductService(repo ProductRepository, images ImageStore, opts ...Option) *ProductService {
	return &ProductService{repo: repo, images: images, options: newOptions(opts)}
}

// Create stores a product owned by ownerID.
func (s *ProductService) Create(ctx context.Context, ownerID string, product types.Product) (types.Product, error) {
	product.ID = ""
	product.OwnerID = ownerID
	product.ImageKey = ""
	product.ImageContentType = ""
	return s.repo.Create(ctx, product)
}

func (s *ProductService) Get(ctx context.Context, id string) (types.Product, error) {
	return s.repo.Get(ctx, id)
}

// List returns one page of the owner's products, newest first.
func (s *ProductService) List(ctx context.Context, ownerID string, page, perPage int) ([]types.Product, int, error) {
	page, perPage = normalizePage(page, perPage)
	return s.repo.ListByOwner(ctx, ownerID, (page-1)*perPage, perPage)
}

// Update applies patch to the product with the given id.
func (s *ProductService) Update(ctx context.Context, id string, patch types.ProductPatch) (types.Product, error) {
	product, err := s.repo.Get(ctx, id)
	if err != nil {
		return types.Product{}, err
	}
	return s.repo.Update(ctx, patch.Apply(product))
}

// UploadImage stores the image of a product owned by ownerID and records
// its key on the product. A previous image is removed once the new one is
// in place.
func (s *ProductService) UploadImage(ctx context.Context, ownerID, id string, r io.Reader, size int64, contentType string) (types.Product, error) {
	if s.images == nil {
		return types.Product{}, ErrStorageDisabled
	}
	product, err := s.repo.Get(ctx, id)
	if err != nil {
		return types.Product{}, err
	}
	if product.OwnerID != ownerID {
		return types.Product{}, ErrNotOwner
	}

	key := productImageKey(product, s.now().UnixNano())
	if err := s.images.Put(ctx, key, r, size, contentType); err != nil {
		return types.Product{}, fmt.Errorf("store image: %w", err)
	}

	previous := product.ImageKey
	product.ImageKey = key
	product.ImageContentType = contentType
	updated, err := s.repo.Update(ctx, product)
	if err != nil {
		_ = s.images.Delete(ctx, key)
		return types.Product{}, err
	}

	if previous != "" && previous != key {
		if err := s.images.Delete(ctx, previous); err != nil {
			s.logger.Warn("delete previous image failed", zap.String("key", previous), zap.Error(err))
		}
	}
	return updated, nil
}

// OpenImage returns a reader for the product image and its content type.
// The caller closes the reader.
func (s *ProductService) OpenImage(ctx context.Context, id string) (io.ReadCloser, string, error) {
	if s.images == nil {
		return nil, "", ErrStorageDisabled
	}
	product, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, "", err
	}
	if product.ImageKey == "" {
		return nil, "", ErrNoImage
	}
	reader, err := s.images.Get(ctx, product.ImageKey)
	if err != nil {
		return nil, "", err
	}
	return reader, product.ImageContentType, nil
}

func productImageKey(product types.Product, version int64) string {
	return path.Join("products", product.OwnerID, product.ID, fmt.Sprintf("image-%d", version))
}
