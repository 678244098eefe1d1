// Package verify answers whether a resource (doctor, room, station) has been
// verified by an administrator and may publish bookable slots.
package verify

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"
)

// Verifier reports whether a resource is verified.
type Verifier interface {
	IsVerified(ctx context.Context, resourceID string) (bool, error)
}

// HTTPVerifier queries an external registry service over HTTP.
type HTTPVerifier struct {
	baseURL string
	client  *http.Client
}

func NewHTTPVerifier(baseURL string) *HTTPVerifier {
	return &HTTPVerifier{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 5 * time.Second},
	}
}

type verificationResponse struct {
	Verified bool `json:"verified"`
}

func (v *HTTPVerifier) IsVerified(ctx context.Context, resourceID string) (bool, error) {
	url := fmt.Sprintf("%s/providers/%s/verification", v.baseURL, resourceID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false, fmt.Errorf("build verification request: %w", err)
	}

	resp, err := v.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("verification lookup: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return false, nil
	default:
		return false, fmt.Errorf("verification lookup: unexpected status %d", resp.StatusCode)
	}

	var body verificationResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return false, fmt.Errorf("decode verification response: %w", err)
	}
	return body.Verified, nil
}

// StaticVerifier holds a fixed set of verified resource IDs. Used in
// development mode and in tests.
type StaticVerifier struct {
	mu       sync.RWMutex
	verified map[string]bool
}

func NewStaticVerifier(ids ...string) *StaticVerifier {
	v := &StaticVerifier{verified: make(map[string]bool, len(ids))}
	for _, id := range ids {
		v.verified[id] = true
	}
	return v
}

func (v *StaticVerifier) IsVerified(_ context.Context, resourceID string) (bool, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.verified[resourceID], nil
}

// SetVerified marks or unmarks a resource as verified.
func (v *StaticVerifier) SetVerified(resourceID string, ok bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if ok {
		v.verified[resourceID] = true
	} else {
		delete(v.verified, resourceID)
	}
}

// AllowAll verifies everything. Development fallback when no registry is
// configured.
type AllowAll struct{}

func (AllowAll) IsVerified(context.Context, string) (bool, error) { return true, nil }
