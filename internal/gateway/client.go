package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"
)

// DefaultBaseURL is the production API root
const DefaultBaseURL = "https://lang-translator.rentangoafrica.com/api/v1"

// TokenSource supplies the bearer token for outgoing requests
type TokenSource interface {
	Token() string
}

// Options configures a Client
type Options struct {
	BaseURL    string
	Timeout    time.Duration
	DeviceName string
	DeviceType string
	HTTPClient *http.Client
}

// Client wraps outbound calls to the translation API
type Client struct {
	baseURL    string
	http       *http.Client
	tokens     TokenSource
	deviceName string
	deviceType string
	logger     *logrus.Logger

	mu             sync.RWMutex
	onUnauthorized func()
}

// New creates a Client. tokens may be nil for anonymous use.
func New(opts Options, tokens TokenSource, logger *logrus.Logger) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.DeviceName == "" {
		opts.DeviceName = "SA-Translator"
	}
	if opts.DeviceType == "" {
		opts.DeviceType = "web"
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: opts.Timeout}
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Client{
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		http:       hc,
		tokens:     tokens,
		deviceName: opts.DeviceName,
		deviceType: opts.DeviceType,
		logger:     logger,
	}
}

// OnUnauthorized registers the hook fired when a non-auth endpoint answers 401
func (c *Client) OnUnauthorized(fn func()) {
	c.mu.Lock()
	c.onUnauthorized = fn
	c.mu.Unlock()
}

// Error is a non-2xx response from the API
type Error struct {
	Status  int
	Message string
	Path    string
}

func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %d %s", e.Path, e.Status, e.Message)
	}
	return fmt.Sprintf("%s: %d %s", e.Path, e.Status, http.StatusText(e.Status))
}

// MessageOr returns the server-provided message carried by err, or fallback
func MessageOr(err error, fallback string) string {
	var apiErr *Error
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return fallback
}

// IsUnauthorized reports whether err is a 401 from the API
func IsUnauthorized(err error) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized
}

// envelope is the {message, data} body every endpoint answers with
type envelope[T any] struct {
	Message string `json:"message"`
	Data    T      `json:"data"`
}

func isAuthPath(path string) bool {
	return strings.Contains(path, "auth/")
}

func (c *Client) deviceHeaders() map[string]string {
	return map[string]string{
		"X-Device-Name": c.deviceName,
		"X-Device-Type": c.deviceType,
	}
}

// do performs one request. body and out may be nil.
func (c *Client) do(ctx context.Context, method, path string, body any, headers map[string]string, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s body: %w", path, err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build %s request: %w", path, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	if c.tokens != nil {
		if token := c.tokens.Token(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read %s response: %w", path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &Error{Status: resp.StatusCode, Message: errorMessage(raw), Path: path}
		if resp.StatusCode == http.StatusUnauthorized && !isAuthPath(path) {
			c.logger.WithField("path", path).Warn("authorization rejected, clearing session")
			c.mu.RLock()
			hook := c.onUnauthorized
			c.mu.RUnlock()
			if hook != nil {
				hook()
			}
		}
		return apiErr
	}

	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

// errorMessage pulls a human-readable message out of an arbitrary error body
func errorMessage(raw []byte) string {
	if !gjson.ValidBytes(raw) {
		return ""
	}
	for _, path := range []string{"message", "error", "errors.0.message"} {
		if v := gjson.GetBytes(raw, path); v.Exists() && v.Type == gjson.String && v.String() != "" {
			return v.String()
		}
	}
	return ""
}
