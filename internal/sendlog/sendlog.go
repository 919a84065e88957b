// Package sendlog persists the append-only history of completed sends as a
// human-inspectable JSON array file.
package sendlog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Record is one completed transport call. Records are appended in
// send-completion order and never mutated or removed.
type Record struct {
	To           RecipientList `json:"to"`
	Subject      string        `json:"subject"`
	Body         string        `json:"body"`
	InvestorName string        `json:"investor_name,omitempty"`
	Timestamp    string        `json:"timestamp"`
}

// RecipientList unmarshals both the list shape and the legacy single-string
// shape of the "to" field. It always marshals back as a list.
type RecipientList []string

// UnmarshalJSON accepts either a JSON array of strings or a bare string.
func (r *RecipientList) UnmarshalJSON(data []byte) error {
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*r = list
		return nil
	}

	var single string
	if err := json.Unmarshal(data, &single); err != nil {
		return fmt.Errorf("recipient field is neither string nor list: %w", err)
	}
	*r = RecipientList{single}
	return nil
}

// PersistenceError indicates a send-log read or write failure. Callers must
// abort the triggering send-confirmation step rather than silently lose the
// record.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return "send log " + e.Op + " failed: " + e.Err.Error()
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// Store is a file-backed send log. The file is read fully and rewritten
// wholesale on each append; a single mutex serializes all access, so
// concurrent appends from overlapping requests or job firings cannot race
// within one process.
type Store struct {
	mu   sync.Mutex
	path string
}

// New creates a store backed by the given file path. The file is created on
// first append.
func New(path string) *Store {
	return &Store{path: path}
}

// Append adds one record to the end of the log.
func (s *Store) Append(rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.read()
	if err != nil {
		return err
	}

	records = append(records, rec)
	return s.write(records)
}

// All returns every record in append order. A missing file is an empty log.
func (s *Store) All() ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read()
}

// RecipientAddresses returns the deduplicated union of recipient addresses
// across all records.
func (s *Store) RecipientAddresses() (map[string]struct{}, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.read()
	if err != nil {
		return nil, err
	}

	addrs := make(map[string]struct{})
	for _, rec := range records {
		for _, to := range rec.To {
			addrs[to] = struct{}{}
		}
	}
	return addrs, nil
}

// read loads the full log. The caller must hold s.mu.
func (s *Store) read() ([]Record, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, &PersistenceError{Op: "read", Err: err}
	}

	var records []Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, &PersistenceError{Op: "parse", Err: err}
	}
	return records, nil
}

// write rewrites the full log atomically via a temp file in the same
// directory. The caller must hold s.mu.
func (s *Store) write(records []Record) error {
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return &PersistenceError{Op: "encode", Err: err}
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".sendlog-*")
	if err != nil {
		return &PersistenceError{Op: "write", Err: err}
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return &PersistenceError{Op: "write", Err: err}
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return &PersistenceError{Op: "write", Err: err}
	}

	if err := os.Rename(tmp.Name(), s.path); err != nil {
		os.Remove(tmp.Name())
		return &PersistenceError{Op: "write", Err: err}
	}
	return nil
}
