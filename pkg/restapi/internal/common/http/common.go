/*
Copyright Swiss SSI Group. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/trustbloc/edge-core/pkg/log"
)

var logger = log.New("mdl-adapter/common-http")

// ErrorResponse is the body written for every failed request.
type ErrorResponse struct {
	Err            string `json:"error"`
	ErrDescription string `json:"error_description"`
}

// wireError is implemented by component errors that carry their own
// error code and description for the wire contract.
type wireError interface {
	ErrorCode() string
	ErrorDescription() string
}

// WriteResponse writes interface value to response.
func WriteResponse(rw http.ResponseWriter, v interface{}) {
	rw.Header().Set("Content-Type", "application/json")

	err := json.NewEncoder(rw).Encode(v)
	if err != nil {
		logger.Errorf("unable to send a response: %s", err)
	}
}

// WriteErrorResponse writes the {error, error_description} shape with the given status.
func WriteErrorResponse(rw http.ResponseWriter, status int, code, description string) {
	rw.Header().Set("Content-Type", "application/json")
	rw.WriteHeader(status)

	err := json.NewEncoder(rw).Encode(&ErrorResponse{
		Err:            code,
		ErrDescription: description,
	})
	if err != nil {
		logger.Errorf("unable to send an error response: %s", err)
	}
}

// WriteError collapses err onto the wire contract, preserving the component's
// error code when it carries one.
func WriteError(rw http.ResponseWriter, status int, err error) {
	var wireErr wireError

	if errors.As(err, &wireErr) {
		WriteErrorResponse(rw, status, wireErr.ErrorCode(), wireErr.ErrorDescription())

		return
	}

	WriteErrorResponse(rw, status, "400", err.Error())
}
