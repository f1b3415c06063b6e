// Package targets persists the chat targets in the chatbots section of the
// config document.
package targets

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"

	"github.com/tidwall/gjson"
	"github.com/tidwall/pretty"
	"github.com/tidwall/sjson"

	"multibot/internal/config"
)

const (
	sectionPath = "chatbots"
	legacyPath  = "chatbot_input.coordinates"
)

// ErrNotFound is returned by Get and Delete for an unknown identifier.
var ErrNotFound = errors.New("target not in store")

// Store reads and writes entries in a JSON document on disk. Saves from one
// Store are serialized; two processes saving at once can still lose an update.
type Store struct {
	path string
	mu   sync.Mutex
}

// NewStore returns a store backed by the document at path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path returns the backing document path.
func (s *Store) Path() string { return s.path }

// Load returns the entries in document order. A document without a chatbots
// section yields an empty slice.
func (s *Store) Load() ([]Entry, error) {
	doc, err := s.read()
	if err != nil {
		return nil, err
	}
	return parseEntries(doc)
}

// Save replaces the chatbots section with entries, in order. Every other key
// of the document is kept. A missing document is created.
func (s *Store) Save(entries []Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save(entries)
}

// Put inserts e, or replaces the entry with the same identifier in place.
func (s *Store) Put(e Entry) error {
	if err := e.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.Load()
	if err != nil && !errors.Is(err, config.ErrConfigMissing) {
		return err
	}
	replaced := false
	for i := range entries {
		if entries[i].ID == e.ID {
			entries[i] = e
			replaced = true
			break
		}
	}
	if !replaced {
		entries = append(entries, e)
	}
	return s.save(entries)
}

// Get returns the entry with identifier id.
func (s *Store) Get(id string) (Entry, error) {
	entries, err := s.Load()
	if err != nil {
		return Entry{}, err
	}
	for _, e := range entries {
		if e.ID == id {
			return e, nil
		}
	}
	return Entry{}, fmt.Errorf("%w: %s", ErrNotFound, id)
}

// Delete removes the entry with identifier id.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.Load()
	if err != nil {
		return err
	}
	kept := entries[:0]
	for _, e := range entries {
		if e.ID != id {
			kept = append(kept, e)
		}
	}
	if len(kept) == len(entries) {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return s.save(kept)
}

func (s *Store) read() ([]byte, error) {
	b, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", config.ErrConfigMissing, s.path)
		}
		return nil, err
	}
	if !gjson.ValidBytes(b) {
		return nil, fmt.Errorf("%w: %s", config.ErrConfigMalformed, s.path)
	}
	return b, nil
}

func (s *Store) save(entries []Entry) error {
	doc, err := s.read()
	if errors.Is(err, config.ErrConfigMissing) {
		doc, err = []byte("{}"), nil
	}
	if err != nil {
		return err
	}

	section, err := encodeEntries(entries)
	if err != nil {
		return err
	}
	doc, err = sjson.SetRawBytes(doc, sectionPath, section)
	if err != nil {
		return fmt.Errorf("set %s: %w", sectionPath, err)
	}
	return os.WriteFile(s.path, pretty.Pretty(doc), 0644)
}

func parseEntries(doc []byte) ([]Entry, error) {
	section := gjson.GetBytes(doc, sectionPath)
	if !section.Exists() {
		section = gjson.GetBytes(doc, legacyPath)
	}
	if !section.Exists() || section.Type == gjson.Null {
		return []Entry{}, nil
	}
	if !section.IsObject() {
		return nil, fmt.Errorf("%w: %s is not an object", config.ErrConfigMalformed, sectionPath)
	}

	entries := []Entry{}
	var decodeErr error
	section.ForEach(func(key, value gjson.Result) bool {
		var e Entry
		if err := json.Unmarshal([]byte(value.Raw), &e); err != nil {
			decodeErr = fmt.Errorf("%w: entry %s: %v", config.ErrConfigMalformed, key.String(), err)
			return false
		}
		e.ID = key.String()
		entries = append(entries, e)
		return true
	})
	if decodeErr != nil {
		return nil, decodeErr
	}
	return entries, nil
}

// encodeEntries writes an object keyed by identifier in slice order. A later
// duplicate identifier overwrites the earlier value at the earlier position.
func encodeEntries(entries []Entry) ([]byte, error) {
	order := make([]string, 0, len(entries))
	values := make(map[string][]byte, len(entries))
	for _, e := range entries {
		raw, err := json.Marshal(e)
		if err != nil {
			return nil, fmt.Errorf("encode entry %s: %w", e.ID, err)
		}
		if _, seen := values[e.ID]; !seen {
			order = append(order, e.ID)
		}
		values[e.ID] = raw
	}

	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, id := range order {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, _ := json.Marshal(id)
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(values[id])
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
