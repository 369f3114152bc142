package db

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/sirupsen/logrus"

	"vector-store/config"
	"vector-store/store"
)

const (
	configFile  = "config.json"
	recordsFile = "records.json"
)

/*
PersistenceManager handles saving and loading collections.

Collections are written as JSON snapshots taken through store.List, so no
store lock is held while touching the disk.
*/
type PersistenceManager struct {
	basePath string
	mu       sync.RWMutex
	log      logrus.FieldLogger
}

/*
NewPersistenceManager creates a new persistence manager rooted at basePath
*/
func NewPersistenceManager(basePath string, log logrus.FieldLogger) *PersistenceManager {
	if log == nil {
		discard := logrus.New()
		discard.SetOutput(io.Discard)
		log = discard
	}
	return &PersistenceManager{
		basePath: basePath,
		log:      log.WithField("data_path", basePath),
	}
}

// writeJSON replaces path atomically with the JSON encoding of v.
func writeJSON(path string, v any) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if err := json.NewEncoder(tmp).Encode(v); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

func readJSON(path string, v any) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	return json.NewDecoder(f).Decode(v)
}

/*
SaveCollection saves a collection to disk. A collection already deleted from
its manager is skipped, so a late save never brings its files back.
*/
func (p *PersistenceManager) SaveCollection(c *Collection) error {
	records := c.Store.List()

	p.mu.Lock()
	defer p.mu.Unlock()

	if c.Dropped() {
		p.log.WithField("collection", c.Name).Debug("skipping save of deleted collection")
		return nil
	}

	// Create collection directory if it doesn't exist
	dir := filepath.Join(p.basePath, c.Name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	if err := writeJSON(filepath.Join(dir, configFile), c.Config); err != nil {
		return fmt.Errorf("save %s config: %w", c.Name, err)
	}
	if err := writeJSON(filepath.Join(dir, recordsFile), records); err != nil {
		return fmt.Errorf("save %s records: %w", c.Name, err)
	}

	p.log.WithFields(logrus.Fields{"collection": c.Name, "records": len(records)}).Debug("collection saved")
	return nil
}

/*
LoadCollection loads a collection's configuration and records from disk
*/
func (p *PersistenceManager) LoadCollection(name string) (config.CollectionConfig, []store.Record, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	dir := filepath.Join(p.basePath, name)

	var cc config.CollectionConfig
	if err := readJSON(filepath.Join(dir, configFile), &cc); err != nil {
		return cc, nil, fmt.Errorf("load %s config: %w", name, err)
	}

	var records []store.Record
	if err := readJSON(filepath.Join(dir, recordsFile), &records); err != nil && !errors.Is(err, os.ErrNotExist) {
		return cc, nil, fmt.Errorf("load %s records: %w", name, err)
	}
	return cc, records, nil
}

/*
Restore creates the named collection in m and re-adds its persisted records.

Records whose embedding no longer fits the collection dimension, or whose id
is already present, are skipped.
*/
func (p *PersistenceManager) Restore(m *Manager, name string) error {
	cc, records, err := p.LoadCollection(name)
	if err != nil {
		return err
	}

	c, err := m.CreateCollection(name, cc)
	if err != nil {
		return err
	}

	skipped := 0
	for _, rec := range records {
		added, err := c.Store.Add(rec.ID, rec.Embedding, rec.DocumentID, rec.Metadata)
		if err != nil || !added {
			skipped++
			entry := p.log.WithFields(logrus.Fields{"collection": name, "id": rec.ID})
			if err != nil {
				entry = entry.WithError(err)
			}
			entry.Warn("skipping persisted record")
		}
	}

	p.log.WithFields(logrus.Fields{
		"collection": name,
		"records":    len(records) - skipped,
		"skipped":    skipped,
	}).Info("collection restored")
	return nil
}

/*
RestoreAll restores every persisted collection. Failures are logged and skipped.
*/
func (p *PersistenceManager) RestoreAll(m *Manager) error {
	names, err := p.ListCollections()
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}

	for _, name := range names {
		if err := p.Restore(m, name); err != nil {
			p.log.WithField("collection", name).WithError(err).Error("failed to restore collection")
		}
	}
	return nil
}

/*
SaveAll saves every collection of m, returning the first error after trying all of them
*/
func (p *PersistenceManager) SaveAll(m *Manager) error {
	var firstErr error
	for _, name := range m.ListCollections() {
		c, err := m.GetCollection(name)
		if err != nil {
			// deleted since listing
			continue
		}
		if err := p.SaveCollection(c); err != nil {
			p.log.WithField("collection", name).WithError(err).Error("failed to save collection")
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

/*
DeleteCollection removes a collection from disk
*/
func (p *PersistenceManager) DeleteCollection(name string) error {
	if !validName(name) {
		return fmt.Errorf("%w: %q", ErrInvalidCollectionName, name)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	return os.RemoveAll(filepath.Join(p.basePath, name))
}

/*
ListCollections returns the names of all saved collections
*/
func (p *PersistenceManager) ListCollections() ([]string, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	entries, err := os.ReadDir(p.basePath)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			names = append(names, entry.Name())
		}
	}
	return names, nil
}
