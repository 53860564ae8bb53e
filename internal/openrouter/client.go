// Package openrouter is the HTTP client for the OpenRouter provisioning
// API: listing, creating, and patching API keys with a provisioning key.
//
// The client maps wire JSON into the keys vocabulary and reports every
// non-success response as an *APIError. It never retries; re-running the
// calling command is the retry path.
package openrouter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/roach88/keywarden/internal/keys"
)

// ErrNoKey means the provisioning credential was absent from the
// environment. Commands that never talk to the remote service do not
// construct a client and never see this.
var ErrNoKey = errors.New("OPENROUTER_PROVISIONING_KEY not set")

// DefaultTimeout bounds each remote call when the config gives none.
const DefaultTimeout = 30 * time.Second

// Config carries what the client needs. The provisioning key comes from
// the environment, never from a file.
type Config struct {
	BaseURL string
	Key     string
	Timeout time.Duration
}

// Client talks to the provisioning API. Safe for sequential use; the
// engine never issues concurrent calls.
type Client struct {
	baseURL string
	key     string
	http    *http.Client
}

// New builds a client, failing fast when no provisioning key is set so
// the operator hears about it before any work starts.
func New(cfg Config) (*Client, error) {
	if cfg.Key == "" {
		return nil, ErrNoKey
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		key:     cfg.Key,
		http:    &http.Client{Timeout: timeout},
	}, nil
}

// wireKey is the provisioning API's key representation.
type wireKey struct {
	Hash       string     `json:"hash"`
	Name       string     `json:"name"`
	Label      string     `json:"label"`
	Limit      keys.Limit `json:"limit"`
	Disabled   bool       `json:"disabled"`
	Usage      float64    `json:"usage"`
	LimitReset string     `json:"limit_reset"`
	CreatedAt  string     `json:"created_at"`
}

func (w wireKey) toKey() keys.RemoteKey {
	return keys.RemoteKey{
		Hash:     w.Hash,
		Name:     w.Name,
		Label:    w.Label,
		Limit:    w.Limit,
		Disabled: w.Disabled,
		Usage:    w.Usage,
		// Passthrough: the remote service owns this field, so an
		// unexpected value is preserved rather than rejected.
		Cadence:   keys.Cadence(strings.ToLower(w.LimitReset)),
		CreatedAt: w.CreatedAt,
	}
}

// List fetches every key the provisioning account owns. The listing is
// the sole source of truth for key existence.
func (c *Client) List(ctx context.Context) ([]keys.RemoteKey, error) {
	var out struct {
		Data []wireKey `json:"data"`
	}
	if err := c.do(ctx, "list keys", "", http.MethodGet, "/keys", nil, &out, http.StatusOK); err != nil {
		return nil, err
	}
	ks := make([]keys.RemoteKey, 0, len(out.Data))
	for _, w := range out.Data {
		ks = append(ks, w.toKey())
	}
	return ks, nil
}

type createRequest struct {
	Name       string   `json:"name"`
	Limit      *float64 `json:"limit,omitempty"`
	LimitReset *string  `json:"limit_reset,omitempty"`
}

// Create provisions a new key. The response carries the plaintext secret,
// which the remote service returns exactly once.
func (c *Client) Create(ctx context.Context, name string, limit keys.Limit, cadence keys.Cadence) (keys.ProvisionedKey, error) {
	req := createRequest{Name: name}
	if amount, ok := limit.Amount(); ok {
		req.Limit = &amount
	}
	if cadence != keys.CadenceNone {
		reset := cadence.String()
		req.LimitReset = &reset
	}

	var out struct {
		Data wireKey `json:"data"`
		Key  string  `json:"key"`
	}
	err := c.do(ctx, "create key", name, http.MethodPost, "/keys", req, &out, http.StatusOK, http.StatusCreated)
	if err != nil {
		return keys.ProvisionedKey{}, err
	}
	return keys.ProvisionedKey{Key: out.Data.toKey(), Secret: out.Key}, nil
}

// KeyUpdate selects which remote fields to change. Nil fields are left
// untouched. A non-nil unset Limit clears the ceiling: it is sent as an
// explicit JSON null, since omitting the field would leave the old limit
// in place.
type KeyUpdate struct {
	Limit    *keys.Limit
	Disabled *bool
	Cadence  *keys.Cadence
}

func (u KeyUpdate) payload() map[string]any {
	p := map[string]any{}
	if u.Limit != nil {
		if amount, ok := u.Limit.Amount(); ok {
			p["limit"] = amount
		} else {
			p["limit"] = nil
		}
	}
	if u.Disabled != nil {
		p["disabled"] = *u.Disabled
	}
	if u.Cadence != nil {
		p["limit_reset"] = u.Cadence.String()
	}
	return p
}

// Update patches a key in place.
func (c *Client) Update(ctx context.Context, hash string, upd KeyUpdate) error {
	return c.do(ctx, "update key", shortHash(hash), http.MethodPatch, "/keys/"+hash, upd.payload(), nil,
		http.StatusOK, http.StatusCreated, http.StatusNoContent)
}

// UpdateLimit changes only the credit limit.
func (c *Client) UpdateLimit(ctx context.Context, hash string, limit keys.Limit) error {
	return c.Update(ctx, hash, KeyUpdate{Limit: &limit})
}

// UpdateDisabled changes only the disabled flag.
func (c *Client) UpdateDisabled(ctx context.Context, hash string, disabled bool) error {
	return c.Update(ctx, hash, KeyUpdate{Disabled: &disabled})
}

// do runs one request and decodes the response into out when non-nil.
// Status codes outside ok become an *APIError tagged with op and target.
func (c *Client) do(ctx context.Context, op, target, method, path string, payload, out any, ok ...int) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("%s: encode request: %w", op, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("%s: build request: %w", op, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.key)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	if !slices.Contains(ok, resp.StatusCode) {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return &APIError{Op: op, Target: target, Status: resp.StatusCode, Detail: strings.TrimSpace(string(detail))}
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: decode response: %w", op, err)
	}
	return nil
}

func shortHash(hash string) string {
	if len(hash) <= 8 {
		return hash
	}
	return hash[:8] + "..."
}
