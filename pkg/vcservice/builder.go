/*
Copyright Swiss SSI Group. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package vcservice

import (
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/google/uuid"

	"github.com/swiss-ssi-group/verifiedid-mdl-adapter/pkg/drivinglicense"
)

const (
	issuanceCallbackPath     = "/api/issuer/issuanceCallback"
	presentationCallbackPath = "/api/verifier/presentationCallback"

	clientName = "NDL Iso18013 DriversLicense"

	pinLength = 4

	birthDateFormat    = "2006-01-02"
	sortableTimeFormat = "2006-01-02T15:04:05"
)

type licenseProvider interface {
	GetDriverLicense(userName string) (*drivinglicense.DriverLicense, error)
}

// Builder constructs outbound issuance and presentation request payloads.
type Builder struct {
	settings *Settings
	licenses licenseProvider
}

// NewBuilder returns a payload builder for the given settings.
func NewBuilder(settings *Settings, licenses licenseProvider) *Builder {
	return &Builder{settings: settings, licenses: licenses}
}

// BuildIssuanceRequest builds an issuance payload for the named user. The
// correlation id in Callback.State is freshly generated and is the sole join key
// for callbacks and polling. Fails when the user has no driver license record.
func (b *Builder) BuildIssuanceRequest(host, userName string) (*IssuanceRequest, error) {
	license, err := b.licenses.GetDriverLicense(userName)
	if err != nil {
		return nil, fmt.Errorf("failed to get driver license for %s: %w", userName, err)
	}

	pin, err := generatePIN(pinLength)
	if err != nil {
		return nil, fmt.Errorf("failed to generate pin: %w", err)
	}

	return &IssuanceRequest{
		Authority:     b.settings.IssuerAuthority,
		IncludeQRCode: true,
		Registration:  Registration{ClientName: clientName},
		Callback: Callback{
			URL:     host + issuanceCallbackPath,
			State:   uuid.New().String(),
			Headers: CallbackHeaders{APIKey: b.settings.CallbackAPIKey},
		},
		Type:     b.settings.Type(),
		Manifest: b.settings.CredentialManifest,
		PIN:      &PIN{Value: pin, Length: pinLength},
		Claims: &DriverLicenseClaims{
			FamilyName:           license.FamilyName,
			GivenName:            license.GivenName,
			BirthDate:            license.DateOfBirth.Format(birthDateFormat),
			IssueDate:            license.IssueDate.Format(sortableTimeFormat),
			ExpiryDate:           license.ExpiryDate.Format(sortableTimeFormat),
			IssuingCountry:       license.IssuingCountry,
			IssuingAuthority:     license.IssuingAuthority,
			DocumentNumber:       license.DocumentNumber,
			AdministrativeNumber: license.AdministrativeNumber,
			DrivingPrivileges:    license.DrivingPrivileges,
			UnDistinguishingSign: license.UnDistinguishingSign,
		},
	}, nil
}

// BuildPresentationRequest builds a presentation payload asking the user's wallet
// for the configured credential type.
func (b *Builder) BuildPresentationRequest(host string) *PresentationRequest {
	return &PresentationRequest{
		Authority:      b.settings.IssuerAuthority,
		IncludeQRCode:  true,
		IncludeReceipt: true,
		Registration:   Registration{ClientName: clientName},
		Callback: Callback{
			URL:     host + presentationCallbackPath,
			State:   uuid.New().String(),
			Headers: CallbackHeaders{APIKey: b.settings.CallbackAPIKey},
		},
		RequestedCredentials: []RequestedCredential{
			{
				Type:            b.settings.Type(),
				Purpose:         "To verify your driving license",
				AcceptedIssuers: []string{b.settings.IssuerAuthority},
			},
		},
	}
}

// generatePIN draws a numeric PIN from a cryptographically secure source.
// rand.Int samples [0, max), so the shift keeps every value in [1, 9998] and the
// zero padding never collapses the string below the requested length.
func generatePIN(length int) (string, error) {
	max := big.NewInt(1)

	for i := 0; i < length; i++ {
		max.Mul(max, big.NewInt(10))
	}

	max.Sub(max, big.NewInt(2))

	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("%0*d", length, n.Int64()+1), nil
}
