// Package tagstore defines the DICOM database contract the annotation
// providers read from, plus an in-memory implementation.
package tagstore

import (
	"errors"

	"github.com/jpfielding/cornertext.go/pkg/dicom/tag"
)

var (
	// ErrClosed is returned by reads against a store that is not open
	ErrClosed = errors.New("tag store is closed")
	// ErrNotFound is returned by lookups for instances a store does not hold
	ErrNotFound = errors.New("instance not found")
)

// Store resolves (instance UID, tag) to the tag's text value.
// A tag absent for the instance yields "" and a nil error.
type Store interface {
	IsOpen() bool
	InstanceValue(instanceUID string, t tag.Tag) (string, error)
}

// BatchStore can answer every tag for an instance in one round trip
type BatchStore interface {
	Store
	InstanceValues(instanceUID string, tags []tag.Tag) (map[tag.Tag]string, error)
}

// Values reads tags for instanceUID, batching when the store supports it.
// Tags the store has no value for map to "".
func Values(s Store, instanceUID string, tags []tag.Tag) (map[tag.Tag]string, error) {
	if b, ok := s.(BatchStore); ok {
		vals, err := b.InstanceValues(instanceUID, tags)
		if err != nil {
			return nil, err
		}
		out := make(map[tag.Tag]string, len(tags))
		for _, t := range tags {
			out[t] = vals[t]
		}
		return out, nil
	}
	out := make(map[tag.Tag]string, len(tags))
	for _, t := range tags {
		v, err := s.InstanceValue(instanceUID, t)
		if err != nil {
			return nil, err
		}
		out[t] = v
	}
	return out, nil
}
