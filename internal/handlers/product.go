package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/brandpick/apiserver/internal/services"
	"github.com/brandpick/apiserver/internal/storage"
	"github.com/brandpick/apiserver/internal/store"
	"github.com/brandpick/apiserver/types"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const (
	maxImageBytes      = 10 << 20
	maxMultipartMemory = 1 << 20
	formFieldImage     = "image"
)

// ProductHandler provides the brand product endpoints.
type ProductHandler struct {
	products *services.ProductService
	logger   *zap.Logger
}

func NewProductHandler(products *services.ProductService, logger *zap.Logger) *ProductHandler {
	return &ProductHandler{products: products, logger: logger}
}

// ProductRouter registers product routes on the given router. Callers
// mount it behind brand authorization.
func ProductRouter(r chi.Router, handler *ProductHandler) {
	r.Post("/", handler.CreateProduct)
	r.Get("/", handler.ListProducts)
	r.Route("/{id}", func(r chi.Router) {
		r.Get("/", handler.GetProduct)
		r.Patch("/", handler.UpdateProduct)
		r.Put("/image", handler.UploadImage)
		r.Get("/image", handler.GetImage)
	})
}

type ProductRequest struct {
	Name        string   `json:"name" validate:"required"`
	Price       *float64 `json:"price" validate:"required,min=0.01"`
	Description string   `json:"description" validate:"required,max=200"`
}

type ProductPatchRequest struct {
	Type       *string `json:"type" validate:"omitempty,oneof=clothes shoes jewelry"`
	Sizes      *string `json:"sizes" validate:"required_with=Type"`
	OutOfStock *bool   `json:"outOfStock"`
}

type ProductListResponse struct {
	Products []types.Product `json:"products"`
	Total    int             `json:"total"`
}

func (h *ProductHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	user, _ := UserFromContext(r.Context())

	var req ProductRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeRequestError(w, err)
		return
	}

	product, err := h.products.Create(r.Context(), user.ID, types.Product{
		Name:        req.Name,
		Price:       *req.Price,
		Description: req.Description,
	})
	if err != nil {
		writeInternalError(w, h.logger, "create product", err)
		return
	}

	writeJSON(w, http.StatusCreated, product)
}

func (h *ProductHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	user, _ := UserFromContext(r.Context())

	page, perPage, err := parsePagination(r, "perPage")
	if err != nil {
		writeRequestError(w, err)
		return
	}

	products, total, err := h.products.List(r.Context(), user.ID, page, perPage)
	if err != nil {
		writeInternalError(w, h.logger, "list products", err)
		return
	}

	writeJSON(w, http.StatusOK, ProductListResponse{Products: products, Total: total})
}

func (h *ProductHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeRequestError(w, err)
		return
	}

	product, err := h.products.Get(r.Context(), id)
	if err != nil {
		h.writeProductError(w, "get product", err)
		return
	}

	writeJSON(w, http.StatusOK, product)
}

func (h *ProductHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeRequestError(w, err)
		return
	}

	var req ProductPatchRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeRequestError(w, err)
		return
	}

	product, err := h.products.Update(r.Context(), id, types.ProductPatch{
		Type:       req.Type,
		Sizes:      req.Sizes,
		OutOfStock: req.OutOfStock,
	})
	if err != nil {
		h.writeProductError(w, "update product", err)
		return
	}

	writeJSON(w, http.StatusOK, product)
}

// UploadImage stores the multipart "image" file as the product image.
func (h *ProductHandler) UploadImage(w http.ResponseWriter, r *http.Request) {
	user, _ := UserFromContext(r.Context())

	id, err := idParam(r, "id")
	if err != nil {
		writeRequestError(w, err)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxImageBytes+maxMultipartMemory)
	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		writeRequestError(w, fieldError(formFieldImage, fmt.Sprintf("%q must be a file of at most %d bytes", formFieldImage, maxImageBytes)))
		return
	}
	file, header, err := r.FormFile(formFieldImage)
	if err != nil {
		writeRequestError(w, fieldError(formFieldImage, fmt.Sprintf("%q is required", formFieldImage)))
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	product, err := h.products.UploadImage(r.Context(), user.ID, id, file, header.Size, contentType)
	if err != nil {
		h.writeProductError(w, "upload product image", err)
		return
	}

	writeJSON(w, http.StatusOK, product)
}

func (h *ProductHandler) GetImage(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeRequestError(w, err)
		return
	}

	reader, contentType, err := h.products.OpenImage(r.Context(), id)
	if err != nil {
		h.writeProductError(w, "open product image", err)
		return
	}
	defer reader.Close()

	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	if n, err := io.Copy(w, reader); err != nil {
		h.logger.Warn("stream product image", zap.String("product_id", id), zap.Int64("written", n), zap.Error(err))
	}
}

func (h *ProductHandler) writeProductError(w http.ResponseWriter, action string, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "Product does not exist")
	case errors.Is(err, services.ErrNoImage), errors.Is(err, storage.ErrObjectNotFound):
		writeError(w, http.StatusNotFound, "Image does not exist")
	case errors.Is(err, services.ErrNotOwner):
		writeError(w, http.StatusForbidden, "Forbidden")
	case errors.Is(err, services.ErrStorageDisabled):
		writeError(w, http.StatusNotImplemented, "Image storage is not configured")
	default:
		writeInternalError(w, h.logger, action, err)
	}
}
