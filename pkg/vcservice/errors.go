/*
Copyright Swiss SSI Group. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package vcservice

import "fmt"

// Error is a structured failure surfaced on the adapter's wire contract.
type Error struct {
	Code        string
	Description string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Description)
}

// ErrorCode returns the wire error code.
func (e *Error) ErrorCode() string {
	return e.Code
}

// ErrorDescription returns the wire error description.
func (e *Error) ErrorDescription() string {
	return e.Description
}

// NewExternalServiceError wraps a non-success response from the Verified ID
// service, embedding the raw response body verbatim.
func NewExternalServiceError(rawBody string) *Error {
	return &Error{Code: "400", Description: "Something went wrong calling the API: " + rawBody}
}

// NewValidationError reports missing or malformed caller input.
func NewValidationError(description string) *Error {
	return &Error{Code: "400", Description: description}
}
