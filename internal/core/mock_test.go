package core

import (
	"context"
	"errors"
	"sync"

	"github.com/chal0326/researchcms/internal/core/model"
	"github.com/chal0326/researchcms/internal/store"
	"github.com/chal0326/researchcms/internal/store/memstore"
)

var errInjected = errors.New("injected store failure")

// MockStore wraps an in-memory store and fails selected calls.
type MockStore struct {
	*memstore.Store

	mu               sync.Mutex
	FindEntitiesErr  error
	FailCreateEntity map[string]bool
	FailCreateEvent  bool
	FindCalls        int
}

func NewMockStore() *MockStore {
	return &MockStore{Store: memstore.New(), FailCreateEntity: map[string]bool{}}
}

func (m *MockStore) FindEntities(ctx context.Context, q store.EntityQuery) ([]model.Entity, error) {
	m.mu.Lock()
	m.FindCalls++
	err := m.FindEntitiesErr
	m.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return m.Store.FindEntities(ctx, q)
}

func (m *MockStore) CreateEntity(ctx context.Context, e model.Entity) (model.Entity, error) {
	if m.FailCreateEntity[e.Name] {
		return model.Entity{}, errInjected
	}
	return m.Store.CreateEntity(ctx, e)
}

func (m *MockStore) CreateEvent(ctx context.Context, ev model.TimelineEvent) (model.TimelineEvent, error) {
	if m.FailCreateEvent {
		return model.TimelineEvent{}, errInjected
	}
	return m.Store.CreateEvent(ctx, ev)
}
