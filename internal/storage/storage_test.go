package storage_test

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"editorial-cache/internal/storage"
)

// MockFactory is a mock implementation of StoreFactory for testing
type MockFactory struct {
	mock.Mock
}

func (m *MockFactory) Create(config storage.GenericConfig) (storage.Store, error) {
	args := m.Called(config)
	if store := args.Get(0); store != nil {
		return store.(storage.Store), args.Error(1)
	}
	return nil, args.Error(1)
}

// stubStore satisfies storage.Store; the registry never calls it
type stubStore struct{ storage.Store }

func TestRegistry_CreateDispatchesToFactory(t *testing.T) {
	registry := storage.NewRegistry()
	factory := new(MockFactory)
	store := &stubStore{}
	config := storage.GenericConfig{"database_path": "/tmp/x.db"}

	factory.On("Create", config).Return(store, nil).Once()
	registry.Register("sqlite", factory)

	got, err := registry.Create("sqlite", config)
	require.NoError(t, err)
	assert.Same(t, store, got)
	factory.AssertExpectations(t)
}

func TestRegistry_FactoryError(t *testing.T) {
	registry := storage.NewRegistry()
	factory := new(MockFactory)
	factory.On("Create", mock.Anything).Return(nil, errors.New("disk full"))
	registry.Register("sqlite", factory)

	_, err := registry.Create("sqlite", storage.GenericConfig{})
	assert.EqualError(t, err, "disk full")
}

func TestRegistry_UnknownType(t *testing.T) {
	registry := storage.NewRegistry()

	registry.Register("sqlite", new(MockFactory))

	_, err := registry.Create("postgres", storage.GenericConfig{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "available: sqlite")
}

func TestRegistry_AvailableTypes(t *testing.T) {
	registry := storage.NewRegistry()
	registry.Register("sqlite", new(MockFactory))
	registry.Register("memory", new(MockFactory))

	assert.Equal(t, []string{"memory", "sqlite"}, registry.GetAvailableTypes())
}

func TestGenericConfig_String(t *testing.T) {
	config := storage.GenericConfig{"path": "a.db", "size": 3}

	assert.Equal(t, "a.db", config.String("path"))
	assert.Equal(t, "", config.String("size"))
	assert.Equal(t, "", config.String("missing"))
}

func TestManuscript_JSONShape(t *testing.T) {
	m := storage.Manuscript{
		ID:             "M1",
		Journal:        "SICON",
		Authors:        []string{"A"},
		ExtractionDate: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		FullData:       json.RawMessage(`{"x":1}`),
	}

	data, err := json.Marshal(m)
	require.NoError(t, err)

	var fields map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &fields))
	assert.Contains(t, fields, "manuscript_id")
	assert.JSONEq(t, `{"x":1}`, string(fields["full_data"]))
	assert.NotContains(t, fields, "referees", "empty referee list is omitted")
}
