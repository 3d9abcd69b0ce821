/*
Copyright Swiss SSI Group. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package vcservice

// Callback notification codes recognized by the adapter. Any other code is
// acknowledged without a state change.
const (
	CodeRequestRetrieved     = "request-retrieved"
	CodePresentationVerified = "presentation-verified"
)

// IssuanceRequest is the outbound payload asking the Verified ID service to issue
// a credential. It is built per request, sent once and discarded.
type IssuanceRequest struct {
	Authority     string               `json:"authority"`
	IncludeQRCode bool                 `json:"includeQRCode"`
	Registration  Registration         `json:"registration"`
	Callback      Callback             `json:"callback"`
	Type          string               `json:"type"`
	Manifest      string               `json:"manifest"`
	PIN           *PIN                 `json:"pin,omitempty"`
	Claims        *DriverLicenseClaims `json:"claims,omitempty"`
}

// PresentationRequest is the outbound payload asking the Verified ID service to
// request a credential presentation from the user's wallet.
type PresentationRequest struct {
	Authority            string                `json:"authority"`
	IncludeQRCode        bool                  `json:"includeQRCode"`
	IncludeReceipt       bool                  `json:"includeReceipt"`
	Registration         Registration          `json:"registration"`
	Callback             Callback              `json:"callback"`
	RequestedCredentials []RequestedCredential `json:"requestedCredentials"`
}

// Registration names the relying application in the wallet UI.
type Registration struct {
	ClientName string `json:"clientName"`
}

// Callback tells the external service where to deliver status notifications.
// State is the correlation id threading the whole flow.
type Callback struct {
	URL     string          `json:"url"`
	State   string          `json:"state"`
	Headers CallbackHeaders `json:"headers"`
}

// CallbackHeaders carries the api-key header value echoed on inbound callbacks.
type CallbackHeaders struct {
	APIKey string `json:"api-key"`
}

// PIN protects an issuance request.
type PIN struct {
	Value  string `json:"value"`
	Length int    `json:"length"`
}

// RequestedCredential describes one credential type the verifier asks for.
type RequestedCredential struct {
	Type            string   `json:"type"`
	Purpose         string   `json:"purpose,omitempty"`
	AcceptedIssuers []string `json:"acceptedIssuers,omitempty"`
}

// DriverLicenseClaims is the ISO 18013-5 mDL claim block. Opaque to the request
// flow - the external service embeds it into the issued credential.
type DriverLicenseClaims struct {
	FamilyName           string `json:"family_name"`
	GivenName            string `json:"given_name"`
	BirthDate            string `json:"birth_date"`
	IssueDate            string `json:"issue_date"`
	ExpiryDate           string `json:"expiry_date"`
	IssuingCountry       string `json:"issuing_country"`
	IssuingAuthority     string `json:"issuing_authority"`
	DocumentNumber       string `json:"document_number"`
	AdministrativeNumber string `json:"administrative_number"`
	DrivingPrivileges    string `json:"driving_privileges"`
	UnDistinguishingSign string `json:"un_distinguishing_sign"`
}

// RequestResponse is the external service's answer to an issuance or presentation
// request. ID is overwritten with the locally generated correlation id before the
// response reaches the UI - the local value is authoritative.
type RequestResponse struct {
	RequestID string `json:"requestId,omitempty"`
	URL       string `json:"url,omitempty"`
	Expiry    string `json:"expiry,omitempty"`
	QRCode    string `json:"qrCode,omitempty"`
	PIN       string `json:"pin,omitempty"`
	ID        string `json:"id,omitempty"`
}

// CallbackMessage is the inbound webhook notification from the external service.
type CallbackMessage struct {
	Code    string           `json:"code"`
	State   string           `json:"state"`
	Subject string           `json:"subject,omitempty"`
	Issuers []CallbackIssuer `json:"issuers,omitempty"`
}

// CallbackIssuer is one credential presented by the user.
type CallbackIssuer struct {
	Authority string        `json:"authority,omitempty"`
	Domain    string        `json:"domain,omitempty"`
	Claims    CallbackClaim `json:"claims"`
}

// CallbackClaim holds the presented claims the UI cares about.
type CallbackClaim struct {
	Name    string `json:"name,omitempty"`
	Details string `json:"details,omitempty"`
}
