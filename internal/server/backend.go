package server

import (
	"context"
	"fmt"

	"github.com/brandpick/apiserver/config"
	"github.com/brandpick/apiserver/internal/db"
	"github.com/brandpick/apiserver/internal/services"
	"github.com/brandpick/apiserver/internal/store"
	"github.com/brandpick/apiserver/internal/store/memstore"
	"github.com/brandpick/apiserver/internal/store/mongostore"
	"github.com/brandpick/apiserver/types"
)

// repositories groups the storage collaborators of one backend.
type repositories struct {
	users         services.UserRepository
	products      services.ProductRepository
	campaigns     services.CampaignStore
	refreshTokens services.TokenRepository
	confirmTokens services.TokenRepository
	close         func(ctx context.Context) error
}

func openRepositories(ctx context.Context, cfg config.Config) (repositories, error) {
	switch cfg.Driver {
	case config.DriverMongo:
		client, database, err := db.OpenMongo(ctx, cfg.Mongo)
		if err != nil {
			return repositories{}, err
		}
		if err := db.EnsureIndexes(ctx, database); err != nil {
			_ = client.Disconnect(ctx)
			return repositories{}, err
		}
		return repositories{
			users:         mongostore.NewUserRepository(database),
			products:      mongostore.NewProductRepository(database),
			campaigns:     mongostore.NewCampaignRepository(database),
			refreshTokens: mongostore.NewTokenRepository(database, types.TokenRefresh),
			confirmTokens: mongostore.NewTokenRepository(database, types.TokenConfirm),
			close:         client.Disconnect,
		}, nil

	case config.DriverPostgres:
		conn, err := db.Open(ctx, cfg.Database)
		if err != nil {
			return repositories{}, fmt.Errorf("open postgres: %w", err)
		}
		return repositories{
			users:         store.NewUserRepository(conn),
			products:      store.NewProductRepository(conn),
			campaigns:     store.NewCampaignRepository(conn),
			refreshTokens: store.NewTokenRepository(conn, types.TokenRefresh),
			confirmTokens: store.NewTokenRepository(conn, types.TokenConfirm),
			close:         func(context.Context) error { return conn.Close() },
		}, nil

	case config.DriverMemory:
		return memoryRepositories(memstore.New()), nil

	default:
		return repositories{}, fmt.Errorf("unsupported DB_DRIVER %q", cfg.Driver)
	}
}

func memoryRepositories(s *memstore.Store) repositories {
	return repositories{
		users:         s.Users(),
		products:      s.Products(),
		campaigns:     s.Campaigns(),
		refreshTokens: s.Tokens(types.TokenRefresh),
		confirmTokens: s.Tokens(types.TokenConfirm),
		close:         func(context.Context) error { return nil },
	}
}
