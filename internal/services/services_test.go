package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/brandpick/apiserver/internal/store/memstore"
	"github.com/brandpick/apiserver/types"
)

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return fixedNow }

type publishedEvent struct {
	channel string
	event   any
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []publishedEvent
	err    error
}

func (p *recordingPublisher) PublishJSON(_ context.Context, channel string, event any) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return "", p.err
	}
	p.events = append(p.events, publishedEvent{channel: channel, event: event})
	return "msg-1", nil
}

func (p *recordingPublisher) published() []publishedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]publishedEvent{}, p.events...)
}

var errBackend = errors.New("backend unavailable")

type failingDirectory struct{}

func (failingDirectory) GetByID(context.Context, string) (types.User, error) {
	return types.User{}, errBackend
}

type failingCatalog struct{}

func (failingCatalog) GetByIDs(context.Context, []string) ([]types.Product, error) {
	return nil, errBackend
}

func mustCreateUser(s *memstore.Store, email, role string) types.User {
	user, err := s.Users().Create(context.Background(), types.User{Email: email, Role: role, Name: email})
	if err != nil {
		panic(err)
	}
	return user
}

func mustCreateProduct(s *memstore.Store, ownerID, name string) types.Product {
	product, err := s.Products().Create(context.Background(), types.Product{OwnerID: ownerID, Name: name, Price: 10, Description: name})
	if err != nil {
		panic(err)
	}
	return product
}
