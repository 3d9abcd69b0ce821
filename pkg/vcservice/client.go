/*
Copyright Swiss SSI Group. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package vcservice

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"io/ioutil"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"github.com/trustbloc/edge-core/pkg/log"
)

var logger = log.New("mdl-adapter/vcservice")

// requestTimeout bounds the outbound call. No retries - a retried POST would
// submit a second request with a second correlation id.
const requestTimeout = 30 * time.Second

type httpClient interface {
	Do(req *http.Request) (*http.Response, error)
}

type tokenProvider interface {
	GetAccessToken(ctx context.Context) (string, error)
}

// Client submits request payloads to the Verified ID request service.
type Client struct {
	endpoint   string
	httpClient httpClient
	tokens     tokenProvider
}

// NewClient returns a client for the request service at endpoint.
func NewClient(endpoint string, tlsConfig *tls.Config, tokens tokenProvider) *Client {
	return &Client{
		endpoint: endpoint,
		httpClient: &http.Client{
			Timeout:   requestTimeout,
			Transport: &http.Transport{TLSClientConfig: tlsConfig},
		},
		tokens: tokens,
	}
}

// SendRequest posts the payload with a bearer token. created reports whether the
// service answered 201 - only then may the caller seed the correlation store.
// A non-success response becomes an external service error embedding the raw body.
func (c *Client) SendRequest(ctx context.Context, payload interface{}) (resp *RequestResponse, created bool, err error) {
	bearer, err := c.tokens.GetAccessToken(ctx)
	if bearer == "" {
		if err == nil {
			err = errors.New("token provider returned an empty token")
		}

		return nil, false, err
	}

	reqBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, false, errors.Wrap(err, "failed to marshal request payload")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(reqBytes))
	if err != nil {
		return nil, false, errors.Wrap(err, "failed to create request")
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+bearer)

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, false, errors.Wrap(err, "request service call failed")
	}

	defer func() {
		if closeErr := httpResp.Body.Close(); closeErr != nil {
			logger.Warnf("failed to close response body: %s", closeErr)
		}
	}()

	body, err := ioutil.ReadAll(httpResp.Body)
	if err != nil {
		return nil, false, errors.Wrap(err, "failed to read response body")
	}

	if httpResp.StatusCode < http.StatusOK || httpResp.StatusCode >= http.StatusMultipleChoices {
		logger.Errorf("request service returned %d", httpResp.StatusCode)

		return nil, false, NewExternalServiceError(string(body))
	}

	resp = &RequestResponse{}

	if err := json.Unmarshal(body, resp); err != nil {
		return nil, false, errors.Wrap(err, "failed to parse request service response")
	}

	logger.Debugf("request service accepted request with status %d", httpResp.StatusCode)

	return resp, httpResp.StatusCode == http.StatusCreated, nil
}
