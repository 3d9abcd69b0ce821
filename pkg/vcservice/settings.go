/*
Copyright Swiss SSI Group. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package vcservice

import (
	"errors"
	"fmt"
)

// DefaultCredentialType is the mDL credential type issued and verified by this adapter.
const DefaultCredentialType = "Iso18013DriversLicense"

// Settings is the static Verified ID client configuration. Loaded once at process
// start and never mutated.
type Settings struct {
	ClientID           string
	ClientSecret       string
	CertificateFile    string
	Authority          string
	Scope              string
	Endpoint           string
	CallbackAPIKey     string
	IssuerAuthority    string
	CredentialManifest string
	CredentialType     string
}

// Validate reports the first missing or conflicting setting.
func (s *Settings) Validate() error {
	required := map[string]string{
		"client id":        s.ClientID,
		"authority":        s.Authority,
		"scope":            s.Scope,
		"endpoint":         s.Endpoint,
		"callback api key": s.CallbackAPIKey,
		"issuer authority": s.IssuerAuthority,
	}

	for name, value := range required {
		if value == "" {
			return fmt.Errorf("credential settings: %s is required", name)
		}
	}

	if s.ClientSecret == "" && s.CertificateFile == "" {
		return errors.New("credential settings: either a client secret or a certificate is required")
	}

	if s.ClientSecret != "" && s.CertificateFile != "" {
		return errors.New("credential settings: client secret and certificate are mutually exclusive")
	}

	return nil
}

// Type returns the configured credential type, defaulting to the mDL type.
func (s *Settings) Type() string {
	if s.CredentialType != "" {
		return s.CredentialType
	}

	return DefaultCredentialType
}
