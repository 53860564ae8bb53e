package testutil

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/roach88/keywarden/internal/keys"
)

// wireKey mirrors the provisioning API's key representation.
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

func toWire(k keys.RemoteKey) wireKey {
	return wireKey{
		Hash:       k.Hash,
		Name:       k.Name,
		Label:      k.Label,
		Limit:      k.Limit,
		Disabled:   k.Disabled,
		Usage:      k.Usage,
		LimitReset: k.Cadence.String(),
		CreatedAt:  k.CreatedAt,
	}
}

// Serve runs an HTTP server speaking the provisioning wire protocol over
// the account. The server closes with the test.
func Serve(t *testing.T, account *Account) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/keys":
			handleList(w, account)
		case r.Method == http.MethodPost && r.URL.Path == "/keys":
			handleCreate(w, r, account)
		case r.Method == http.MethodPatch && strings.HasPrefix(r.URL.Path, "/keys/"):
			handlePatch(w, r, account, strings.TrimPrefix(r.URL.Path, "/keys/"))
		default:
			http.Error(w, "not found", http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func handleList(w http.ResponseWriter, account *Account) {
	listing := account.List()
	data := make([]wireKey, 0, len(listing))
	for _, k := range listing {
		data = append(data, toWire(k))
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": data})
}

func handleCreate(w http.ResponseWriter, r *http.Request, account *Account) {
	var req struct {
		Name       string     `json:"name"`
		Limit      keys.Limit `json:"limit"`
		LimitReset string     `json:"limit_reset"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	pk, err := account.CreateKey(req.Name, req.Limit, keys.Cadence(req.LimitReset))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"data": toWire(pk.Key),
		"key":  pk.Secret,
	})
}

func handlePatch(w http.ResponseWriter, r *http.Request, account *Account, hash string) {
	// Raw fields: a present-but-null limit clears the ceiling, which is
	// different from an absent one.
	var req map[string]json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if raw, ok := req["limit"]; ok {
		var limit keys.Limit
		if err := json.Unmarshal(raw, &limit); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if err := account.SetLimit(hash, limit); err != nil {
			writeAccountError(w, err)
			return
		}
	}
	if raw, ok := req["disabled"]; ok {
		var disabled bool
		if err := json.Unmarshal(raw, &disabled); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if err := account.SetDisabled(hash, disabled); err != nil {
			writeAccountError(w, err)
			return
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{})
}

func writeAccountError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	if errors.Is(err, ErrUnknownKey) {
		status = http.StatusNotFound
	}
	http.Error(w, err.Error(), status)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
