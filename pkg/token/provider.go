/*
Copyright Swiss SSI Group. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package token

import (
	"context"
	"crypto/rsa"
	"crypto/sha1" // nolint:gosec // AAD certificate thumbprints are SHA-1 by definition
	"crypto/tls"
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"encoding/pem"
	"errors"
	"fmt"
	"io/ioutil"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/coreos/go-oidc"
	"github.com/google/uuid"
	"github.com/trustbloc/edge-core/pkg/log"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
	jose "gopkg.in/square/go-jose.v2"
)

var logger = log.New("mdl-adapter/token")

const (
	// AADSTS70011: the scope for a client-credential grant must be of the form "resource/.default".
	unsupportedScopeHint = "AADSTS70011"

	clientAssertionType = "urn:ietf:params:oauth:client-assertion-type:jwt-bearer"

	fallbackTokenPath  = "/oauth2/v2.0/token"
	assertionLifetime  = 10 * time.Minute
	tokenClientTimeout = 30 * time.Second
)

// Error carries the error code and description surfaced when token acquisition fails.
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

// Config defines the client-credential configuration for the identity provider.
type Config struct {
	ClientID        string
	ClientSecret    string
	CertificateFile string
	Authority       string
	Scope           string
	TLSConfig       *tls.Config
}

// clientAuthenticator produces the grant configuration for one credential mode.
// The mode is selected once at construction, never per call.
type clientAuthenticator interface {
	grantConfig(clientID, tokenURL string, scopes []string) (*clientcredentials.Config, error)
}

// Provider acquires and caches client-credential access tokens.
type Provider struct {
	clientID   string
	authority  string
	scope      string
	auth       clientAuthenticator
	httpClient *http.Client

	mutex    sync.Mutex
	tokens   map[string]*oauth2.Token
	tokenURL string
}

// New returns a token provider for the configured credential.
func New(config *Config) (*Provider, error) {
	if config.ClientID == "" || config.Authority == "" || config.Scope == "" {
		return nil, errors.New("client id, authority and scope are required")
	}

	auth, err := newClientAuthenticator(config)
	if err != nil {
		return nil, err
	}

	return &Provider{
		clientID:  config.ClientID,
		authority: strings.TrimSuffix(config.Authority, "/"),
		scope:     config.Scope,
		auth:      auth,
		httpClient: &http.Client{
			Timeout:   tokenClientTimeout,
			Transport: &http.Transport{TLSClientConfig: config.TLSConfig},
		},
		tokens: make(map[string]*oauth2.Token),
	}, nil
}

func newClientAuthenticator(config *Config) (clientAuthenticator, error) {
	switch {
	case config.ClientSecret != "" && config.CertificateFile != "":
		return nil, errors.New("client secret and certificate are mutually exclusive")
	case config.ClientSecret != "":
		return &secretAuthenticator{secret: config.ClientSecret}, nil
	case config.CertificateFile != "":
		return newCertificateAuthenticator(config.CertificateFile)
	default:
		return nil, errors.New("either a client secret or a certificate is required")
	}
}

// GetAccessToken returns a bearer token for the configured scope. The cached token
// is reused while it remains valid and is shared across concurrent callers. On
// failure the token is empty and the returned error carries the provider's error
// code and description - callers must treat the empty token as the failure signal.
func (p *Provider) GetAccessToken(ctx context.Context) (string, error) {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	key := fmt.Sprintf("%s|%s|%s", p.authority, p.scope, p.clientID)

	if cached, ok := p.tokens[key]; ok && cached.Valid() {
		return cached.AccessToken, nil
	}

	tokenURL := p.resolveTokenURL(ctx)

	grant, err := p.auth.grantConfig(p.clientID, tokenURL, []string{p.scope})
	if err != nil {
		return "", classify(err)
	}

	acquired, err := grant.Token(context.WithValue(ctx, oauth2.HTTPClient, p.httpClient))
	if err != nil {
		return "", classify(err)
	}

	p.tokens[key] = acquired

	logger.Debugf("acquired access token for scope %s", p.scope)

	return acquired.AccessToken, nil
}

// resolveTokenURL discovers the token endpoint from the authority's provider
// metadata, falling back to the AAD v2.0 convention when discovery is unavailable.
func (p *Provider) resolveTokenURL(ctx context.Context) string {
	if p.tokenURL != "" {
		return p.tokenURL
	}

	idp, err := oidc.NewProvider(oidc.ClientContext(ctx, p.httpClient), p.authority)
	if err != nil {
		logger.Warnf("token endpoint discovery failed for %s, using fallback: %s", p.authority, err)

		p.tokenURL = p.authority + fallbackTokenPath

		return p.tokenURL
	}

	p.tokenURL = idp.Endpoint().TokenURL

	return p.tokenURL
}

func classify(err error) *Error {
	var retrieveErr *oauth2.RetrieveError

	if errors.As(err, &retrieveErr) && strings.Contains(string(retrieveErr.Body), unsupportedScopeHint) {
		return &Error{Code: "500", Description: "Scope provided is not supported"}
	}

	return &Error{
		Code:        "500",
		Description: "Something went wrong getting an access token for the client API:" + err.Error(),
	}
}

type secretAuthenticator struct {
	secret string
}

func (a *secretAuthenticator) grantConfig(clientID, tokenURL string, scopes []string) (*clientcredentials.Config, error) { // nolint:lll
	return &clientcredentials.Config{
		ClientID:     clientID,
		ClientSecret: a.secret,
		TokenURL:     tokenURL,
		Scopes:       scopes,
	}, nil
}

type certificateAuthenticator struct {
	key        *rsa.PrivateKey
	thumbprint string
}

func newCertificateAuthenticator(certificateFile string) (*certificateAuthenticator, error) {
	pemBytes, err := ioutil.ReadFile(certificateFile) // nolint:gosec // path comes from startup configuration
	if err != nil {
		return nil, fmt.Errorf("failed to read certificate file: %w", err)
	}

	auth := &certificateAuthenticator{}

	for block, rest := pem.Decode(pemBytes); block != nil; block, rest = pem.Decode(rest) {
		switch block.Type {
		case "CERTIFICATE":
			cert, certErr := x509.ParseCertificate(block.Bytes)
			if certErr != nil {
				return nil, fmt.Errorf("failed to parse certificate: %w", certErr)
			}

			sum := sha1.Sum(cert.Raw) // nolint:gosec // x5t header
			auth.thumbprint = base64.RawURLEncoding.EncodeToString(sum[:])
		case "RSA PRIVATE KEY":
			key, keyErr := x509.ParsePKCS1PrivateKey(block.Bytes)
			if keyErr != nil {
				return nil, fmt.Errorf("failed to parse private key: %w", keyErr)
			}

			auth.key = key
		case "PRIVATE KEY":
			key, keyErr := x509.ParsePKCS8PrivateKey(block.Bytes)
			if keyErr != nil {
				return nil, fmt.Errorf("failed to parse private key: %w", keyErr)
			}

			rsaKey, ok := key.(*rsa.PrivateKey)
			if !ok {
				return nil, errors.New("certificate private key is not RSA")
			}

			auth.key = rsaKey
		}
	}

	if auth.key == nil || auth.thumbprint == "" {
		return nil, errors.New("certificate file must contain a certificate and its private key")
	}

	return auth, nil
}

func (a *certificateAuthenticator) grantConfig(clientID, tokenURL string, scopes []string) (*clientcredentials.Config, error) { // nolint:lll
	assertion, err := a.signAssertion(clientID, tokenURL)
	if err != nil {
		return nil, fmt.Errorf("failed to sign client assertion: %w", err)
	}

	return &clientcredentials.Config{
		ClientID:  clientID,
		TokenURL:  tokenURL,
		Scopes:    scopes,
		AuthStyle: oauth2.AuthStyleInParams,
		EndpointParams: url.Values{
			"client_assertion_type": {clientAssertionType},
			"client_assertion":      {assertion},
		},
	}, nil
}

func (a *certificateAuthenticator) signAssertion(clientID, tokenURL string) (string, error) {
	signer, err := jose.NewSigner(
		jose.SigningKey{Algorithm: jose.RS256, Key: a.key},
		(&jose.SignerOptions{}).WithHeader(jose.HeaderKey("x5t"), a.thumbprint),
	)
	if err != nil {
		return "", err
	}

	now := time.Now()

	claims, err := json.Marshal(map[string]interface{}{
		"aud": tokenURL,
		"iss": clientID,
		"sub": clientID,
		"jti": uuid.New().String(),
		"nbf": now.Unix(),
		"exp": now.Add(assertionLifetime).Unix(),
	})
	if err != nil {
		return "", err
	}

	jws, err := signer.Sign(claims)
	if err != nil {
		return "", err
	}

	return jws.CompactSerialize()
}
