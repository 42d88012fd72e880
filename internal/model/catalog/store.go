package catalog

// Store exposes model catalog retrieval for HTTP handlers.
type Store interface {
	List() []Model
	FindByID(id string) (Model, bool)
	Default() Model
}

// MemoryStore implements Store with an in-memory slice.
type MemoryStore struct {
	items []Model
}

// NewMemoryStore returns a MemoryStore preloaded with the supplied models.
func NewMemoryStore(items []Model) *MemoryStore {
	return &MemoryStore{items: append([]Model(nil), items...)}
}

// List returns the catalog entries.
func (s *MemoryStore) List() []Model {
	return append([]Model(nil), s.items...)
}

// FindByID looks up a model by identifier.
func (s *MemoryStore) FindByID(id string) (Model, bool) {
	for _, item := range s.items {
		if item.ID == id {
			return item, true
		}
	}
	return Model{}, false
}

// Default returns the first catalog entry. Unknown selections fall back here.
func (s *MemoryStore) Default() Model {
	if len(s.items) == 0 {
		return Model{}
	}
	return s.items[0]
}
