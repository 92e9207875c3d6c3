package tagstore

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/jpfielding/cornertext.go/pkg/dicom"
	"github.com/jpfielding/cornertext.go/pkg/dicom/tag"
)

// Memory is a map-backed Store. The zero value is closed; use NewMemory.
type Memory struct {
	mu        sync.RWMutex
	open      bool
	instances map[string]map[tag.Tag]string
}

// NewMemory returns an open, empty store
func NewMemory() *Memory {
	return &Memory{
		open:      true,
		instances: make(map[string]map[tag.Tag]string),
	}
}

// Put sets a single value
func (m *Memory) Put(instanceUID string, t tag.Tag, value string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.instances == nil {
		m.instances = make(map[string]map[tag.Tag]string)
	}
	vals, ok := m.instances[instanceUID]
	if !ok {
		vals = make(map[tag.Tag]string)
		m.instances[instanceUID] = vals
	}
	vals[t] = value
}

// PutAll sets every value in vals for instanceUID
func (m *Memory) PutAll(instanceUID string, vals map[tag.Tag]string) {
	for t, v := range vals {
		m.Put(instanceUID, t, v)
	}
}

// PutDataset stores the annotation tags present in ds under its SOP Instance UID
func (m *Memory) PutDataset(ds *dicom.Dataset) (string, error) {
	uid := ds.SOPInstanceUID()
	if uid == "" {
		return "", fmt.Errorf("dataset has no SOP Instance UID")
	}
	for _, t := range tag.Annotation {
		if _, ok := ds.FindElement(t); ok {
			m.Put(uid, t, ds.Text(t))
		}
	}
	return uid, nil
}

// Close marks the store unreadable
func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.open = false
	return nil
}

func (m *Memory) IsOpen() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.open
}

func (m *Memory) InstanceValue(instanceUID string, t tag.Tag) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.open {
		return "", ErrClosed
	}
	return m.instances[instanceUID][t], nil
}

func (m *Memory) InstanceValues(instanceUID string, tags []tag.Tag) (map[tag.Tag]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.open {
		return nil, ErrClosed
	}
	out := make(map[tag.Tag]string, len(tags))
	for _, t := range tags {
		out[t] = m.instances[instanceUID][t]
	}
	return out, nil
}

// Instances returns the known instance UIDs
func (m *Memory) Instances() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	uids := make([]string, 0, len(m.instances))
	for uid := range m.instances {
		uids = append(uids, uid)
	}
	return uids
}

// LoadJSON reads {"<uid>": {"0010,0010": "DOE^JOHN", ...}} into a new store
func LoadJSON(r io.Reader) (*Memory, error) {
	var raw map[string]map[string]string
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decoding tag values: %w", err)
	}
	m := NewMemory()
	for uid, vals := range raw {
		for code, v := range vals {
			t, err := tag.ParseCode(code)
			if err != nil {
				return nil, fmt.Errorf("instance %s: %w", uid, err)
			}
			m.Put(strings.TrimSpace(uid), t, v)
		}
	}
	return m, nil
}
