/*
Copyright Swiss SSI Group. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package operation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/trustbloc/edge-core/pkg/log"
	"github.com/trustbloc/edge-core/pkg/storage"

	"github.com/swiss-ssi-group/verifiedid-mdl-adapter/pkg/correlation"
	"github.com/swiss-ssi-group/verifiedid-mdl-adapter/pkg/internal/common/support"
	"github.com/swiss-ssi-group/verifiedid-mdl-adapter/pkg/restapi"
	commhttp "github.com/swiss-ssi-group/verifiedid-mdl-adapter/pkg/restapi/internal/common/http"
	"github.com/swiss-ssi-group/verifiedid-mdl-adapter/pkg/vcservice"
)

var logger = log.New("mdl-adapter/verifier")

// API endpoints.
const (
	presentationRequestEndpoint  = "/api/verifier/presentation-request"
	presentationCallbackEndpoint = "/api/verifier/presentationCallback"
	presentationResponseEndpoint = "/api/verifier/presentation-response"
)

const (
	idQueryParam       = "id"
	apiKeyHeader       = "api-key"
	originalHostHeader = "X-Original-Host"

	notScannedMessage = "Request ready, please scan with Authenticator"
	scannedMessage    = "QR Code is scanned. Waiting for validation..."
	verifiedMessage   = "Presentation verified"

	missingIDErrMsg      = "Missing argument 'id'"
	invalidRequestErrMsg = "invalid request"
)

type requestSender interface {
	SendRequest(ctx context.Context, payload interface{}) (*vcservice.RequestResponse, bool, error)
}

// Config defines configuration for verifier operations.
type Config struct {
	Builder              *vcservice.Builder
	VCClient             requestSender
	StoreProvider        storage.Provider
	CallbackAPIKey       string
	StrictCallbackOrder  bool
	VerifyCallbackAPIKey bool
}

// Operation defines handlers for verifier operations.
type Operation struct {
	builder        *vcservice.Builder
	vcClient       requestSender
	store          *correlation.Store
	callbackAPIKey string
	strictOrder    bool
	verifyAPIKey   bool
}

// New returns a verifier operation instance.
func New(config *Config) (*Operation, error) {
	store, err := correlation.New(config.StoreProvider)
	if err != nil {
		return nil, err
	}

	return &Operation{
		builder:        config.Builder,
		vcClient:       config.VCClient,
		store:          store,
		callbackAPIKey: config.CallbackAPIKey,
		strictOrder:    config.StrictCallbackOrder,
		verifyAPIKey:   config.VerifyCallbackAPIKey,
	}, nil
}

// GetRESTHandlers get all controller API handlers available for this service.
func (o *Operation) GetRESTHandlers() []restapi.Handler {
	return []restapi.Handler{
		support.NewHTTPHandler(presentationRequestEndpoint, http.MethodGet, o.presentationRequest),
		support.NewHTTPHandler(presentationCallbackEndpoint, http.MethodPost, o.presentationCallback),
		support.NewHTTPHandler(presentationResponseEndpoint, http.MethodGet, o.presentationResponse),
	}
}

// The UI calls this endpoint to start a presentation. The request payload goes to
// the Verified ID service with a bearer token; a 201 seeds the correlation store
// so the UI can poll for progress under the generated state.
func (o *Operation) presentationRequest(rw http.ResponseWriter, req *http.Request) {
	payload := o.builder.BuildPresentationRequest(requestHost(req))

	resp, created, err := o.vcClient.SendRequest(req.Context(), payload)
	if err != nil {
		logger.Errorf("presentation request failed: %s", err)
		commhttp.WriteError(rw, http.StatusBadRequest, err)

		return
	}

	// the locally generated state is authoritative over whatever the service echoes
	resp.ID = payload.Callback.State

	if created {
		record := &correlation.StatusRecord{
			Status:  correlation.StatusNotScanned,
			Message: notScannedMessage,
			Expiry:  resp.Expiry,
		}

		if err := o.store.Put(payload.Callback.State, record); err != nil {
			logger.Errorf("failed to seed status record: %s", err)
			commhttp.WriteError(rw, http.StatusBadRequest, err)

			return
		}
	}

	commhttp.WriteResponse(rw, resp)
}

// The Verified ID service calls back here: once when the QR code is scanned and
// once when the presentation is verified. Each known code fully overwrites the
// status record; unknown codes are acknowledged without touching it.
func (o *Operation) presentationCallback(rw http.ResponseWriter, req *http.Request) {
	msg := &vcservice.CallbackMessage{}

	if err := json.NewDecoder(req.Body).Decode(msg); err != nil {
		commhttp.WriteErrorResponse(rw, http.StatusBadRequest, "400",
			fmt.Sprintf(invalidRequestErrMsg+": %s", err.Error()))

		return
	}

	if o.verifyAPIKey && req.Header.Get(apiKeyHeader) != o.callbackAPIKey {
		commhttp.WriteErrorResponse(rw, http.StatusUnauthorized, "401", "invalid callback api key")

		return
	}

	if msg.State == "" {
		commhttp.WriteErrorResponse(rw, http.StatusBadRequest, "400", invalidRequestErrMsg+": missing state")

		return
	}

	record, err := statusRecordFor(msg)
	if err != nil {
		commhttp.WriteError(rw, http.StatusBadRequest, err)

		return
	}

	if record == nil {
		rw.WriteHeader(http.StatusOK)

		return
	}

	if o.strictOrder && o.movesStatusBackward(msg.State, record.Status) {
		logger.Warnf("ignoring out-of-order callback %s for state %s", msg.Code, msg.State)
		rw.WriteHeader(http.StatusOK)

		return
	}

	if err := o.store.Put(msg.State, record); err != nil {
		logger.Errorf("failed to store callback result: %s", err)
		commhttp.WriteError(rw, http.StatusBadRequest, err)

		return
	}

	rw.WriteHeader(http.StatusOK)
}

// The UI polls this endpoint with the state returned by presentation-request.
// A miss is an empty 200: not-yet-created, never-existed and expired all look
// the same to the poller.
func (o *Operation) presentationResponse(rw http.ResponseWriter, req *http.Request) {
	id := req.URL.Query().Get(idQueryParam)
	if id == "" {
		commhttp.WriteErrorResponse(rw, http.StatusBadRequest, "400", missingIDErrMsg)

		return
	}

	record, err := o.store.Get(id)
	if err != nil {
		if errors.Is(err, correlation.ErrNotFound) {
			rw.WriteHeader(http.StatusOK)

			return
		}

		logger.Errorf("failed to read status record: %s", err)
		commhttp.WriteError(rw, http.StatusBadRequest, err)

		return
	}

	commhttp.WriteResponse(rw, record)
}

func (o *Operation) movesStatusBackward(state, next string) bool {
	existing, err := o.store.Get(state)
	if err != nil {
		return false
	}

	return correlation.StatusRank(existing.Status) > correlation.StatusRank(next)
}

func statusRecordFor(msg *vcservice.CallbackMessage) (*correlation.StatusRecord, error) {
	switch msg.Code {
	case vcservice.CodeRequestRetrieved:
		return &correlation.StatusRecord{Status: correlation.StatusScanned, Message: scannedMessage}, nil
	case vcservice.CodePresentationVerified:
		issuers, err := json.Marshal(msg.Issuers)
		if err != nil {
			return nil, fmt.Errorf("failed to serialize issuers: %w", err)
		}

		record := &correlation.StatusRecord{
			Status:  correlation.StatusVerified,
			Message: verifiedMessage,
			Payload: string(issuers),
			Subject: msg.Subject,
		}

		if len(msg.Issuers) > 0 {
			record.Name = msg.Issuers[0].Claims.Name
			record.Details = msg.Issuers[0].Claims.Details
		}

		return record, nil
	default:
		// unrecognized codes are acknowledged but change nothing
		return nil, nil
	}
}

func requestHost(req *http.Request) string {
	if original := req.Header.Get(originalHostHeader); original != "" {
		return "https://" + original
	}

	return "https://" + req.Host
}
