package services

import (
	"context"
	"errors"
	"testing"

	"github.com/brandpick/apiserver/internal/store"
	"github.com/brandpick/apiserver/internal/store/memstore"
	"github.com/brandpick/apiserver/types"
)

func TestAddProfile(t *testing.T) {
	s := memstore.New()
	service := NewUserService(s.Users())
	ctx := context.Background()
	brand := mustCreateUser(s, "brand@example.com", types.RoleBrand)

	profile := types.BrandProfile{Name: "Acme", Country: "PL", Website: "https://acme.test", Code: 48, Phone: "123"}
	got, err := service.AddProfile(ctx, brand.ID, profile)
	if err != nil {
		t.Fatalf("add profile: %v", err)
	}
	if got != profile {
		t.Fatalf("unexpected profile %+v", got)
	}

	stored, _ := service.GetByID(ctx, brand.ID)
	if stored.Profile == nil || *stored.Profile != profile {
		t.Fatalf("profile not stored: %+v", stored.Profile)
	}

	if _, err := service.AddProfile(ctx, store.NewID(), profile); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListBrandsCountsBrandsOnly(t *testing.T) {
	s := memstore.New()
	service := NewUserService(s.Users())
	for _, email := range []string{"b1@example.com", "b2@example.com"} {
		mustCreateUser(s, email, types.RoleBrand)
	}
	mustCreateUser(s, "p@example.com", types.RolePicker)
	mustCreateUser(s, "s@example.com", types.RoleShopper)

	brands, total, err := service.ListBrands(context.Background(), 1, 30)
	if err != nil {
		t.Fatalf("list brands: %v", err)
	}
	if total != 2 || len(brands) != 2 {
		t.Fatalf("expected 2 brands, got %d/%d", len(brands), total)
	}
	for _, brand := range brands {
		if !brand.IsBrand() {
			t.Fatalf("unexpected role %q", brand.Role)
		}
	}
}
