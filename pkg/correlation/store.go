/*
Copyright Swiss SSI Group. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package correlation

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/trustbloc/edge-core/pkg/storage"
)

const storeName = "correlation"

// Request progress statuses, in flow order.
const (
	StatusNotScanned = "not-scanned"
	StatusScanned    = "scanned"
	StatusVerified   = "verified"
)

// ErrNotFound is returned by Get when no record exists for the correlation id.
var ErrNotFound = errors.New("no status record for correlation id")

// StatusRecord is the progress snapshot stored per correlation id. Writers always
// replace the whole record - fields absent in a later write are gone.
type StatusRecord struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Expiry  string `json:"expiry,omitempty"`
	Payload string `json:"payload,omitempty"`
	Subject string `json:"subject,omitempty"`
	Name    string `json:"name,omitempty"`
	Details string `json:"details,omitempty"`
}

// StatusRank orders the known statuses so callers can detect a backwards
// transition. Unknown statuses rank lowest.
func StatusRank(status string) int {
	switch status {
	case StatusNotScanned:
		return 1
	case StatusScanned:
		return 2
	case StatusVerified:
		return 3
	default:
		return 0
	}
}

// Store maps a correlation id to its current StatusRecord. Eviction is a property
// of the backing storage provider - records may disappear at any time after creation.
type Store struct {
	s storage.Store
}

// New returns a correlation store backed by the given provider.
func New(prov storage.Provider) (*Store, error) {
	err := prov.CreateStore(storeName)
	if err != nil && !errors.Is(err, storage.ErrDuplicateStore) {
		return nil, fmt.Errorf("failed to create correlation store: %w", err)
	}

	s, err := prov.OpenStore(storeName)
	if err != nil {
		return nil, fmt.Errorf("failed to open correlation store: %w", err)
	}

	return &Store{s: s}, nil
}

// Put replaces the record stored under the correlation id.
func (s *Store) Put(id string, record *StatusRecord) error {
	bits, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal status record: %w", err)
	}

	return s.s.Put(id, bits)
}

// Get returns the record stored under the correlation id, or ErrNotFound.
func (s *Store) Get(id string) (*StatusRecord, error) {
	bits, err := s.s.Get(id)
	if err != nil {
		if errors.Is(err, storage.ErrValueNotFound) {
			return nil, ErrNotFound
		}

		return nil, err
	}

	record := &StatusRecord{}

	err = json.Unmarshal(bits, record)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal status record: %w", err)
	}

	return record, nil
}
