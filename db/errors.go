package db

import "errors"

var (
	// ErrCollectionExists is returned when trying to create a collection that already exists
	ErrCollectionExists = errors.New("collection already exists")

	// ErrCollectionNotFound is returned when trying to access a non-existent collection
	ErrCollectionNotFound = errors.New("collection not found")

	// ErrInvalidCollectionName is returned for names that can't be used as a directory
	ErrInvalidCollectionName = errors.New("invalid collection name")
)
