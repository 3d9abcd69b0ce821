/*
Copyright Swiss SSI Group. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package operation

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/trustbloc/edge-core/pkg/storage/memstore"
	mockstorage "github.com/trustbloc/edge-core/pkg/storage/mockstore"

	"github.com/swiss-ssi-group/verifiedid-mdl-adapter/pkg/correlation"
	"github.com/swiss-ssi-group/verifiedid-mdl-adapter/pkg/drivinglicense"
	"github.com/swiss-ssi-group/verifiedid-mdl-adapter/pkg/vcservice"
)

type mockSender struct {
	resp    *vcservice.RequestResponse
	created bool
	err     error
	payload interface{}
}

func (m *mockSender) SendRequest(_ context.Context, payload interface{}) (*vcservice.RequestResponse, bool, error) {
	m.payload = payload

	if m.err != nil {
		return nil, false, m.err
	}

	return m.resp, m.created, nil
}

func TestNew(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		o, err := New(config(t, &mockSender{}))
		require.NoError(t, err)
		require.NotNil(t, o)
		require.Len(t, o.GetRESTHandlers(), 3)
	})

	t.Run("store error", func(t *testing.T) {
		expected := errors.New("test")

		cfg := config(t, &mockSender{})
		cfg.StoreProvider = &mockstorage.Provider{ErrCreateStore: expected}

		_, err := New(cfg)
		require.True(t, errors.Is(err, expected))
	})
}

func TestIssuanceRequest(t *testing.T) {
	t.Run("created response carries the pin and seeds the store", func(t *testing.T) {
		sender := &mockSender{
			resp: &vcservice.RequestResponse{
				RequestID: "ext-1",
				URL:       "openid://vc/?request_uri=abc",
				Expiry:    "1636697820",
				ID:        "service-supplied-id",
			},
			created: true,
		}

		o, err := New(config(t, sender))
		require.NoError(t, err)

		rw := httptest.NewRecorder()
		o.issuanceRequest(rw, issuanceReq("alice@example.com"))

		require.Equal(t, http.StatusOK, rw.Code)

		resp := &vcservice.RequestResponse{}
		require.NoError(t, json.Unmarshal(rw.Body.Bytes(), resp))

		payload, ok := sender.payload.(*vcservice.IssuanceRequest)
		require.True(t, ok)

		// the adapter's own correlation id wins over the service's
		require.Equal(t, payload.Callback.State, resp.ID)
		require.Equal(t, payload.PIN.Value, resp.PIN)
		require.Len(t, resp.PIN, 4)

		record, err := o.store.Get(resp.ID)
		require.NoError(t, err)
		require.Equal(t, correlation.StatusNotScanned, record.Status)
		require.Equal(t, "1636697820", record.Expiry)
	})

	t.Run("non-created success does not seed the store", func(t *testing.T) {
		sender := &mockSender{resp: &vcservice.RequestResponse{}, created: false}

		o, err := New(config(t, sender))
		require.NoError(t, err)

		rw := httptest.NewRecorder()
		o.issuanceRequest(rw, issuanceReq("alice@example.com"))

		require.Equal(t, http.StatusOK, rw.Code)

		resp := &vcservice.RequestResponse{}
		require.NoError(t, json.Unmarshal(rw.Body.Bytes(), resp))

		_, err = o.store.Get(resp.ID)
		require.True(t, errors.Is(err, correlation.ErrNotFound))
	})

	t.Run("missing user name", func(t *testing.T) {
		o, err := New(config(t, &mockSender{}))
		require.NoError(t, err)

		rw := httptest.NewRecorder()
		o.issuanceRequest(rw, issuanceReq(""))

		require.Equal(t, http.StatusBadRequest, rw.Code)
		requireWireError(t, rw.Body.Bytes(), "400", "Missing user name")
	})

	t.Run("unknown user", func(t *testing.T) {
		o, err := New(config(t, &mockSender{}))
		require.NoError(t, err)

		rw := httptest.NewRecorder()
		o.issuanceRequest(rw, issuanceReq("nobody@example.com"))

		require.Equal(t, http.StatusBadRequest, rw.Code)

		result := struct {
			ErrDescription string `json:"error_description"`
		}{}
		require.NoError(t, json.Unmarshal(rw.Body.Bytes(), &result))
		require.Contains(t, result.ErrDescription, "driver license not found")
	})

	t.Run("callback url honors X-Original-Host", func(t *testing.T) {
		sender := &mockSender{resp: &vcservice.RequestResponse{}, created: true}

		o, err := New(config(t, sender))
		require.NoError(t, err)

		req := issuanceReq("alice@example.com")
		req.Header.Set(originalHostHeader, "public.example.com")

		o.issuanceRequest(httptest.NewRecorder(), req)

		payload, ok := sender.payload.(*vcservice.IssuanceRequest)
		require.True(t, ok)
		require.Equal(t, "https://public.example.com/api/issuer/issuanceCallback", payload.Callback.URL)
	})

	t.Run("external service failure embeds the raw body", func(t *testing.T) {
		sender := &mockSender{err: vcservice.NewExternalServiceError(`{"error":{"code":"badRequest"}}`)}

		o, err := New(config(t, sender))
		require.NoError(t, err)

		rw := httptest.NewRecorder()
		o.issuanceRequest(rw, issuanceReq("alice@example.com"))

		require.Equal(t, http.StatusBadRequest, rw.Code)
		requireWireError(t, rw.Body.Bytes(), "400",
			`Something went wrong calling the API: {"error":{"code":"badRequest"}}`)
	})
}

func TestIssuanceCallback(t *testing.T) {
	t.Run("request-retrieved marks the record scanned", func(t *testing.T) {
		o, err := New(config(t, &mockSender{}))
		require.NoError(t, err)

		require.NoError(t, o.store.Put("state-1", &correlation.StatusRecord{Status: correlation.StatusNotScanned}))

		rw := callback(t, o, &vcservice.CallbackMessage{Code: vcservice.CodeRequestRetrieved, State: "state-1"}, "")
		require.Equal(t, http.StatusOK, rw.Code)

		record, err := o.store.Get("state-1")
		require.NoError(t, err)
		require.Equal(t, correlation.StatusScanned, record.Status)
		require.Equal(t, "QR Code is scanned. Waiting for issuance...", record.Message)
	})

	t.Run("unknown code is acknowledged without a state change", func(t *testing.T) {
		o, err := New(config(t, &mockSender{}))
		require.NoError(t, err)

		require.NoError(t, o.store.Put("state-1", &correlation.StatusRecord{Status: correlation.StatusNotScanned}))

		rw := callback(t, o, &vcservice.CallbackMessage{Code: "issuance_error", State: "state-1"}, "")
		require.Equal(t, http.StatusOK, rw.Code)

		record, err := o.store.Get("state-1")
		require.NoError(t, err)
		require.Equal(t, correlation.StatusNotScanned, record.Status)
	})

	t.Run("missing state", func(t *testing.T) {
		o, err := New(config(t, &mockSender{}))
		require.NoError(t, err)

		rw := callback(t, o, &vcservice.CallbackMessage{Code: vcservice.CodeRequestRetrieved}, "")
		require.Equal(t, http.StatusBadRequest, rw.Code)
	})

	t.Run("api key verification", func(t *testing.T) {
		cfg := config(t, &mockSender{})
		cfg.VerifyCallbackAPIKey = true

		o, err := New(cfg)
		require.NoError(t, err)

		rw := callback(t, o, &vcservice.CallbackMessage{Code: vcservice.CodeRequestRetrieved, State: "state-1"}, "wrong")
		require.Equal(t, http.StatusUnauthorized, rw.Code)
	})
}

func TestIssuanceResponse(t *testing.T) {
	t.Run("returns the stored record", func(t *testing.T) {
		o, err := New(config(t, &mockSender{}))
		require.NoError(t, err)

		expected := &correlation.StatusRecord{
			Status:  correlation.StatusScanned,
			Message: "QR Code is scanned. Waiting for issuance...",
		}
		require.NoError(t, o.store.Put("state-1", expected))

		rw := httptest.NewRecorder()
		o.issuanceResponse(rw, httptest.NewRequest(
			http.MethodGet, issuanceResponseEndpoint+"?id=state-1", nil))

		require.Equal(t, http.StatusOK, rw.Code)

		record := &correlation.StatusRecord{}
		require.NoError(t, json.Unmarshal(rw.Body.Bytes(), record))
		require.Equal(t, expected, record)
	})

	t.Run("missing id", func(t *testing.T) {
		o, err := New(config(t, &mockSender{}))
		require.NoError(t, err)

		rw := httptest.NewRecorder()
		o.issuanceResponse(rw, httptest.NewRequest(http.MethodGet, issuanceResponseEndpoint, nil))

		require.Equal(t, http.StatusBadRequest, rw.Code)
		requireWireError(t, rw.Body.Bytes(), "400", "Missing argument 'id'")
	})

	t.Run("unknown id is an empty 200", func(t *testing.T) {
		o, err := New(config(t, &mockSender{}))
		require.NoError(t, err)

		rw := httptest.NewRecorder()
		o.issuanceResponse(rw, httptest.NewRequest(
			http.MethodGet, issuanceResponseEndpoint+"?id=unknown", nil))

		require.Equal(t, http.StatusOK, rw.Code)
		require.Empty(t, rw.Body.Bytes())
	})
}

func config(t *testing.T, sender *mockSender) *Config {
	t.Helper()

	provider := memstore.NewProvider()

	licenses, err := drivinglicense.New(provider)
	require.NoError(t, err)

	require.NoError(t, licenses.Save(&drivinglicense.DriverLicense{
		UserName:    "alice@example.com",
		FamilyName:  "Muster",
		GivenName:   "Alice",
		DateOfBirth: time.Date(1990, time.April, 12, 0, 0, 0, 0, time.UTC),
		IssueDate:   time.Date(2020, time.January, 1, 0, 0, 0, 0, time.UTC),
		ExpiryDate:  time.Date(2030, time.January, 1, 0, 0, 0, 0, time.UTC),
	}))

	return &Config{
		Builder: vcservice.NewBuilder(&vcservice.Settings{
			ClientID:           "test-client-id",
			ClientSecret:       "test-secret",
			Authority:          "https://login.example.com/test-tenant",
			Scope:              "test-scope/.default",
			Endpoint:           "https://verifiedid.example.com/request",
			CallbackAPIKey:     "test-api-key",
			IssuerAuthority:    "did:web:verifiedid.example.com",
			CredentialManifest: "https://verifiedid.example.com/manifest",
		}, licenses),
		VCClient:       sender,
		StoreProvider:  provider,
		CallbackAPIKey: "test-api-key",
	}
}

func issuanceReq(userName string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, issuanceRequestEndpoint, nil)
	if userName != "" {
		req.Header.Set(userNameHeader, userName)
	}

	return req
}

func callback(t *testing.T, o *Operation, msg *vcservice.CallbackMessage, apiKey string) *httptest.ResponseRecorder {
	t.Helper()

	body, err := json.Marshal(msg)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, issuanceCallbackEndpoint, bytes.NewReader(body))
	if apiKey != "" {
		req.Header.Set(apiKeyHeader, apiKey)
	}

	rw := httptest.NewRecorder()
	o.issuanceCallback(rw, req)

	return rw
}

func requireWireError(t *testing.T, body []byte, code, description string) {
	t.Helper()

	result := struct {
		Err            string `json:"error"`
		ErrDescription string `json:"error_description"`
	}{}

	require.NoError(t, json.Unmarshal(body, &result))
	require.Equal(t, code, result.Err)
	require.Equal(t, description, result.ErrDescription)
}
