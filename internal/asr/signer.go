package asr

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// SignerConfig contains the identity used to authenticate connections
type SignerConfig struct {
	Host      string // Service host, e.g. "ws-api.xfyun.cn"
	Route     string // Service route, e.g. "/v2/iat"
	Scheme    string // Connection scheme; defaults to "wss"
	APIKey    string // API key identifying the caller
	APISecret string // Pre-shared secret for HMAC signing
}

// Signer produces short-lived signed connection URLs for the recognition
// service. The signature covers the host, a freshly generated date, and
// the pseudo request line; the service rejects stale timestamps, so a URL
// must be regenerated for every attempt and never cached.
type Signer struct {
	config SignerConfig
}

// NewSigner creates a signer with the given configuration
func NewSigner(config SignerConfig) (*Signer, error) {
	if config.Host == "" {
		return nil, fmt.Errorf("%w: host cannot be empty", ErrAuthSigning)
	}

	if config.Route == "" {
		return nil, fmt.Errorf("%w: route cannot be empty", ErrAuthSigning)
	}

	if config.APIKey == "" {
		return nil, fmt.Errorf("%w: api key cannot be empty", ErrAuthSigning)
	}

	if config.APISecret == "" {
		return nil, fmt.Errorf("%w: api secret cannot be empty", ErrAuthSigning)
	}

	if config.Scheme == "" {
		config.Scheme = "wss"
	}

	return &Signer{config: config}, nil
}

// SignedURL builds the authenticated connection URL for the given time.
// The canonical string signed with HMAC-SHA256 is:
//
//	host: <host>
//	date: <RFC 1123 date>
//	GET <route> HTTP/1.1
//
// The base64 signature is wrapped in an authorization descriptor, itself
// base64-encoded, and attached as query parameters together with the
// date and host.
func (s *Signer) SignedURL(now time.Time) string {
	date := now.UTC().Format(http.TimeFormat)

	canonical := fmt.Sprintf("host: %s\ndate: %s\nGET %s HTTP/1.1",
		s.config.Host, date, s.config.Route)

	mac := hmac.New(sha256.New, []byte(s.config.APISecret))
	mac.Write([]byte(canonical))
	signature := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	descriptor := fmt.Sprintf(
		`api_key="%s", algorithm="hmac-sha256", headers="host date request-line", signature="%s"`,
		s.config.APIKey, signature)
	authorization := base64.StdEncoding.EncodeToString([]byte(descriptor))

	params := url.Values{}
	params.Set("authorization", authorization)
	params.Set("date", date)
	params.Set("host", s.config.Host)

	return fmt.Sprintf("%s://%s%s?%s", s.config.Scheme, s.config.Host, s.config.Route, params.Encode())
}
