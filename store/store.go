/*
Package store implements a thread-safe, fixed-dimension collection of vector records.

Every operation runs under a single instance-wide mutex, so readers never
observe a partially applied add or update. Records handed to callers are
copies; mutating them has no effect on the store.
*/
package store

import (
	"fmt"
	"io"
	"slices"
	"sync"

	"github.com/sirupsen/logrus"

	"vector-store/vecmath"
)

/*
Store holds vector records keyed by id
*/
type Store struct {
	dimension int
	records   map[string]*Record
	mu        sync.Mutex
	log       logrus.FieldLogger
}

/*
Option configures a Store
*/
type Option func(*Store)

/*
WithLogger sets the logger used for debug tracing. The default discards everything.
*/
func WithLogger(l logrus.FieldLogger) Option {
	return func(s *Store) {
		if l != nil {
			s.log = l
		}
	}
}

func discardLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

/*
New creates an empty store that only accepts embeddings of the given dimension
*/
func New(dimension int, opts ...Option) (*Store, error) {
	if dimension <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidDimension, dimension)
	}

	s := &Store{
		dimension: dimension,
		records:   make(map[string]*Record),
		log:       discardLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.WithField("dimension", dimension)
	return s, nil
}

func (s *Store) checkDimension(embedding []float32) error {
	if len(embedding) != s.dimension {
		return &vecmath.DimensionMismatchError{Expected: s.dimension, Actual: len(embedding)}
	}
	return nil
}

/*
Add inserts a new record.

It returns false without touching the store if id is already present, and a
dimension error if the embedding has the wrong length.
*/
func (s *Store) Add(id string, embedding []float32, documentID, metadata string) (bool, error) {
	if err := s.checkDimension(embedding); err != nil {
		s.log.WithField("id", id).WithError(err).Debug("rejected add")
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.records[id]; exists {
		return false, nil
	}

	s.records[id] = &Record{
		ID:         id,
		Embedding:  slices.Clone(embedding),
		DocumentID: documentID,
		Metadata:   metadata,
	}
	return true, nil
}

/*
Update overwrites the fields of an existing record for which a non-empty value is given.

Empty embedding, documentID or metadata leave the stored value as is, so a
field can't be reset to empty through Update; delete and re-add instead.
It returns false if id is not present.
*/
func (s *Store) Update(id string, embedding []float32, documentID, metadata string) (bool, error) {
	if len(embedding) > 0 {
		if err := s.checkDimension(embedding); err != nil {
			s.log.WithField("id", id).WithError(err).Debug("rejected update")
			return false, err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, exists := s.records[id]
	if !exists {
		return false, nil
	}

	if len(embedding) > 0 {
		rec.Embedding = slices.Clone(embedding)
	}
	if documentID != "" {
		rec.DocumentID = documentID
	}
	if metadata != "" {
		rec.Metadata = metadata
	}
	return true, nil
}

/*
Get returns a snapshot of the record with the given id
*/
func (s *Store) Get(id string) (Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, exists := s.records[id]
	if !exists {
		return Record{}, false
	}
	return rec.clone(), true
}

/*
Delete removes a record, reporting whether it was present
*/
func (s *Store) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.records[id]; !exists {
		return false
	}
	delete(s.records, id)
	return true
}

/*
List returns a point-in-time copy of every record, in no particular order
*/
func (s *Store) List() []Record {
	s.mu.Lock()
	defer s.mu.Unlock()

	records := make([]Record, 0, len(s.records))
	for _, rec := range s.records {
		records = append(records, rec.clone())
	}
	return records
}

/*
Size returns the number of stored records
*/
func (s *Store) Size() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.records)
}

// Dimension is fixed at construction.
func (s *Store) Dimension() int {
	return s.dimension
}

/*
Clear removes all records
*/
func (s *Store) Clear() {
	s.mu.Lock()
	n := len(s.records)
	s.records = make(map[string]*Record)
	s.mu.Unlock()

	s.log.WithField("removed", n).Debug("store cleared")
}
