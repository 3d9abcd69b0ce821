/*
Copyright Swiss SSI Group. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package drivinglicense

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/trustbloc/edge-core/pkg/storage"
)

const storeName = "driverlicense"

// ErrNotFound is returned when no driver license record exists for a user.
var ErrNotFound = errors.New("driver license not found")

// DriverLicense is the domain record backing the ISO 18013-5 mDL claims.
type DriverLicense struct {
	UserName             string    `json:"userName"`
	FamilyName           string    `json:"familyName"`
	GivenName            string    `json:"givenName"`
	DateOfBirth          time.Time `json:"dateOfBirth"`
	IssueDate            time.Time `json:"issueDate"`
	ExpiryDate           time.Time `json:"expiryDate"`
	IssuingCountry       string    `json:"issuingCountry"`
	IssuingAuthority     string    `json:"issuingAuthority"`
	DocumentNumber       string    `json:"documentNumber"`
	AdministrativeNumber string    `json:"administrativeNumber"`
	DrivingPrivileges    string    `json:"drivingPrivileges"`
	UnDistinguishingSign string    `json:"unDistinguishingSign"`
}

// Service looks up driver license records by user name.
type Service struct {
	store storage.Store
}

// New returns a driver license service backed by the given provider.
func New(prov storage.Provider) (*Service, error) {
	err := prov.CreateStore(storeName)
	if err != nil && !errors.Is(err, storage.ErrDuplicateStore) {
		return nil, fmt.Errorf("failed to create driver license store: %w", err)
	}

	s, err := prov.OpenStore(storeName)
	if err != nil {
		return nil, fmt.Errorf("failed to open driver license store: %w", err)
	}

	return &Service{store: s}, nil
}

// Save stores the license under its user name.
func (s *Service) Save(license *DriverLicense) error {
	if license.UserName == "" {
		return errors.New("driver license is missing a user name")
	}

	bits, err := json.Marshal(license)
	if err != nil {
		return fmt.Errorf("failed to marshal driver license: %w", err)
	}

	return s.store.Put(license.UserName, bits)
}

// GetDriverLicense returns the license for the user, or ErrNotFound.
func (s *Service) GetDriverLicense(userName string) (*DriverLicense, error) {
	bits, err := s.store.Get(userName)
	if err != nil {
		if errors.Is(err, storage.ErrValueNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, userName)
		}

		return nil, err
	}

	license := &DriverLicense{}

	err = json.Unmarshal(bits, license)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal driver license: %w", err)
	}

	return license, nil
}
