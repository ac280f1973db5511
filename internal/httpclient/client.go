// Package httpclient provides the JSON-over-HTTP client shared by the worker
// and the command line tools
package httpclient

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/hustsync/hustsync/internal/versions"
)

const (
	// DefaultTimeout bounds a whole request, including reading the body
	DefaultTimeout = 5 * time.Second

	// DefaultIdleConnTimeout is how long pooled connections are kept
	DefaultIdleConnTimeout = 20 * time.Second

	// MaxResponseSize is the maximum allowed response size (10MB)
	MaxResponseSize = 10 * 1024 * 1024
)

// Client sends and receives JSON documents
type Client interface {
	GetJSON(ctx context.Context, url string, out any) error
	PostJSON(ctx context.Context, url string, in, out any) error
	PutJSON(ctx context.Context, url string, in, out any) error
	Delete(ctx context.Context, url string) error
}

// Option configures a DefaultClient
type Option func(*clientConfig) error

type clientConfig struct {
	timeout     time.Duration
	idleTimeout time.Duration
	rootCAs     *x509.CertPool
	certs       []tls.Certificate
}

// WithTimeout overrides DefaultTimeout
func WithTimeout(d time.Duration) Option {
	return func(cfg *clientConfig) error {
		if d > 0 {
			cfg.timeout = d
		}
		return nil
	}
}

// WithCACert trusts only the PEM bundle at path.
// An empty path keeps the system roots.
func WithCACert(path string) Option {
	return func(cfg *clientConfig) error {
		if path == "" {
			return nil
		}
		pem, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read CA certificate: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return fmt.Errorf("no certificates found in %s", path)
		}
		cfg.rootCAs = pool
		return nil
	}
}

// WithClientCert presents the given key pair, for managers that verify clients
func WithClientCert(certFile, keyFile string) Option {
	return func(cfg *clientConfig) error {
		if certFile == "" || keyFile == "" {
			return nil
		}
		cert, err := tls.LoadX509KeyPair(certFile, keyFile)
		if err != nil {
			return fmt.Errorf("failed to load client certificate: %w", err)
		}
		cfg.certs = append(cfg.certs, cert)
		return nil
	}
}

// DefaultClient is the default Client implementation
type DefaultClient struct {
	client *http.Client
}

// New creates a client with a 5s timeout and a 20s idle pool
func New(opts ...Option) (*DefaultClient, error) {
	cfg := &clientConfig{
		timeout:     DefaultTimeout,
		idleTimeout: DefaultIdleConnTimeout,
	}
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.IdleConnTimeout = cfg.idleTimeout
	if cfg.rootCAs != nil || len(cfg.certs) > 0 {
		transport.TLSClientConfig = &tls.Config{
			MinVersion:   tls.VersionTLS12,
			RootCAs:      cfg.rootCAs,
			Certificates: cfg.certs,
		}
	}

	return &DefaultClient{
		client: &http.Client{
			Timeout:   cfg.timeout,
			Transport: transport,
		},
	}, nil
}

// GetJSON decodes the response of a GET into out
func (c *DefaultClient) GetJSON(ctx context.Context, url string, out any) error {
	return c.do(ctx, http.MethodGet, url, nil, out)
}

// PostJSON sends in as a JSON body and decodes the response into out when non-nil
func (c *DefaultClient) PostJSON(ctx context.Context, url string, in, out any) error {
	return c.do(ctx, http.MethodPost, url, in, out)
}

// PutJSON sends in as a JSON body and decodes the response into out when non-nil
func (c *DefaultClient) PutJSON(ctx context.Context, url string, in, out any) error {
	return c.do(ctx, http.MethodPut, url, in, out)
}

// Delete issues a DELETE and discards the response body
func (c *DefaultClient) Delete(ctx context.Context, url string) error {
	return c.do(ctx, http.MethodDelete, url, nil, nil)
}

func (c *DefaultClient) do(ctx context.Context, method, url string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", versions.UserAgent())
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json; charset=utf-8")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.ContentLength > MaxResponseSize {
		return fmt.Errorf("response size %d bytes exceeds maximum allowed size of %d bytes",
			resp.ContentLength, MaxResponseSize)
	}

	// +1 to detect if the limit was exceeded
	raw, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize+1))
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}
	if int64(len(raw)) > MaxResponseSize {
		return fmt.Errorf("response size exceeds maximum allowed size of %d bytes", MaxResponseSize)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return NewHTTPError(method, url, resp.StatusCode, errorMessage(raw))
	}

	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// errorMessage prefers the "error" field of a JSON error body
func errorMessage(raw []byte) string {
	var body struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(raw, &body); err == nil && body.Error != "" {
		return body.Error
	}
	if msg := strings.TrimSpace(string(raw)); msg != "" && len(msg) < 512 {
		return msg
	}
	return ""
}
