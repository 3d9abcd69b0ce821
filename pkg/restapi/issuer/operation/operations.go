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
	"github.com/swiss-ssi-group/verifiedid-mdl-adapter/pkg/drivinglicense"
	"github.com/swiss-ssi-group/verifiedid-mdl-adapter/pkg/internal/common/support"
	"github.com/swiss-ssi-group/verifiedid-mdl-adapter/pkg/restapi"
	commhttp "github.com/swiss-ssi-group/verifiedid-mdl-adapter/pkg/restapi/internal/common/http"
	"github.com/swiss-ssi-group/verifiedid-mdl-adapter/pkg/vcservice"
)

var logger = log.New("mdl-adapter/issuer")

// API endpoints.
const (
	issuanceRequestEndpoint  = "/api/issuer/issuance-request"
	issuanceCallbackEndpoint = "/api/issuer/issuanceCallback"
	issuanceResponseEndpoint = "/api/issuer/issuance-response"
)

const (
	idQueryParam       = "id"
	apiKeyHeader       = "api-key"
	userNameHeader     = "X-User-Name"
	originalHostHeader = "X-Original-Host"

	notScannedMessage = "Request ready, please scan with Authenticator"
	scannedMessage    = "QR Code is scanned. Waiting for issuance..."
	verifiedMessage   = "Presentation verified"

	missingIDErrMsg       = "Missing argument 'id'"
	missingUserNameErrMsg = "Missing user name"
	invalidRequestErrMsg  = "invalid request"
)

type requestSender interface {
	SendRequest(ctx context.Context, payload interface{}) (*vcservice.RequestResponse, bool, error)
}

// Config defines configuration for issuer operations.
type Config struct {
	Builder              *vcservice.Builder
	VCClient             requestSender
	StoreProvider        storage.Provider
	CallbackAPIKey       string
	StrictCallbackOrder  bool
	VerifyCallbackAPIKey bool
}

// Operation defines handlers for issuer operations.
type Operation struct {
	builder        *vcservice.Builder
	vcClient       requestSender
	store          *correlation.Store
	callbackAPIKey string
	strictOrder    bool
	verifyAPIKey   bool
}

// New returns an issuer operation instance.
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
		support.NewHTTPHandler(issuanceRequestEndpoint, http.MethodGet, o.issuanceRequest),
		support.NewHTTPHandler(issuanceCallbackEndpoint, http.MethodPost, o.issuanceCallback),
		support.NewHTTPHandler(issuanceResponseEndpoint, http.MethodGet, o.issuanceResponse),
	}
}

// The UI calls this endpoint to start issuing an mDL to the signed-in user. The
// fronting identity layer names the user through the X-User-Name header; the user
// must have a driver license record, otherwise issuance fails outright.
func (o *Operation) issuanceRequest(rw http.ResponseWriter, req *http.Request) {
	userName := req.Header.Get(userNameHeader)
	if userName == "" {
		commhttp.WriteErrorResponse(rw, http.StatusBadRequest, "400", missingUserNameErrMsg)

		return
	}

	payload, err := o.builder.BuildIssuanceRequest(requestHost(req), userName)
	if err != nil {
		if errors.Is(err, drivinglicense.ErrNotFound) {
			commhttp.WriteErrorResponse(rw, http.StatusBadRequest, "400", err.Error())

			return
		}

		logger.Errorf("failed to build issuance payload: %s", err)
		commhttp.WriteError(rw, http.StatusBadRequest, err)

		return
	}

	resp, created, err := o.vcClient.SendRequest(req.Context(), payload)
	if err != nil {
		logger.Errorf("issuance request failed: %s", err)
		commhttp.WriteError(rw, http.StatusBadRequest, err)

		return
	}

	// the locally generated state is authoritative over whatever the service echoes
	resp.ID = payload.Callback.State
	// the UI shows the pin next to the QR code
	resp.PIN = payload.PIN.Value

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

// The Verified ID service reports issuance progress here. Known codes fully
// overwrite the status record; unknown codes are acknowledged without touching it.
// nolint:dupl // issuer and verifier ingest callbacks the same way on purpose
func (o *Operation) issuanceCallback(rw http.ResponseWriter, req *http.Request) {
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

// The UI polls this endpoint with the state returned by issuance-request. A miss
// is an empty 200 - not-yet-created, never-existed and expired are all the same
// to the poller.
func (o *Operation) issuanceResponse(rw http.ResponseWriter, req *http.Request) {
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
