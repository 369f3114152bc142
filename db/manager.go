package db

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"vector-store/config"
	"vector-store/store"
)

/*
Collection is a named vector store
*/
type Collection struct {
	Name   string
	Config config.CollectionConfig
	Store  *store.Store

	dropped atomic.Bool
}

/*
Dropped reports whether the collection has been removed from its manager
*/
func (c *Collection) Dropped() bool {
	return c.dropped.Load()
}

/*
CollectionInfo summarizes a collection
*/
type CollectionInfo struct {
	Name      string `json:"name"`
	Dimension int    `json:"dimension"`
	Size      int    `json:"size"`
}

/*
Info returns the collection's name, dimension and current record count
*/
func (c *Collection) Info() CollectionInfo {
	return CollectionInfo{
		Name:      c.Name,
		Dimension: c.Store.Dimension(),
		Size:      c.Store.Size(),
	}
}

/*
Manager handles multiple vector collections
*/
type Manager struct {
	collections map[string]*Collection
	mu          sync.RWMutex
	config      *config.Config
	log         logrus.FieldLogger
}

/*
ManagerOption configures a Manager
*/
type ManagerOption func(*Manager)

/*
WithManagerLogger sets the logger the manager and its stores write to
*/
func WithManagerLogger(l logrus.FieldLogger) ManagerOption {
	return func(m *Manager) {
		if l != nil {
			m.log = l
		}
	}
}

/*
NewManager creates a new collection manager
*/
func NewManager(cfg *config.Config, opts ...ManagerOption) *Manager {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	discard := logrus.New()
	discard.SetOutput(io.Discard)

	m := &Manager{
		collections: make(map[string]*Collection),
		config:      cfg,
		log:         discard,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func validName(name string) bool {
	return name != "" && name != "." && name != ".." && !strings.ContainsAny(name, `/\`)
}

/*
CreateCollection creates a new collection with the given name and configuration
*/
func (m *Manager) CreateCollection(name string, cc config.CollectionConfig) (*Collection, error) {
	if !validName(name) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidCollectionName, name)
	}

	s, err := store.New(cc.Dimension, store.WithLogger(m.log.WithField("collection", name)))
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.collections[name]; exists {
		return nil, fmt.Errorf("%w: %s", ErrCollectionExists, name)
	}

	c := &Collection{
		Name:   name,
		Config: cc,
		Store:  s,
	}
	m.collections[name] = c

	m.log.WithFields(logrus.Fields{"collection": name, "dimension": cc.Dimension}).Info("collection created")
	return c, nil
}

/*
EnsureConfigured creates every collection named in the configuration that doesn't exist yet
*/
func (m *Manager) EnsureConfigured() error {
	for name, cc := range m.config.Collections {
		if _, err := m.GetCollection(name); err == nil {
			continue
		}
		if _, err := m.CreateCollection(name, cc); err != nil && !errors.Is(err, ErrCollectionExists) {
			return fmt.Errorf("collection %s: %w", name, err)
		}
	}
	return nil
}

/*
GetCollection returns a collection by name
*/
func (m *Manager) GetCollection(name string) (*Collection, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	c, exists := m.collections[name]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrCollectionNotFound, name)
	}
	return c, nil
}

/*
DeleteCollection removes a collection by name
*/
func (m *Manager) DeleteCollection(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, exists := m.collections[name]
	if !exists {
		return fmt.Errorf("%w: %s", ErrCollectionNotFound, name)
	}

	// set before the map entry goes so a save holding a stale pointer skips it
	c.dropped.Store(true)
	delete(m.collections, name)
	m.log.WithField("collection", name).Info("collection deleted")
	return nil
}

/*
ListCollections returns the names of all collections, sorted
*/
func (m *Manager) ListCollections() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(m.collections))
	for name := range m.collections {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
