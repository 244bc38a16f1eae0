// Package client wraps the remote APIs the provisioner drives during
// onboarding: the identity manager and the authorization endpoints of the
// assigned applications themselves.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/wolfeidau/provisioner/internal/security"
)

// HeaderTenant scopes every call to one tenant.
const HeaderTenant = "X-Tenant-Identifier"

// Remote failure classes the provisioning flow branches on.
var (
	ErrAlreadyExists = errors.New("remote resource already exists")
	ErrInvalidToken  = errors.New("remote service rejected the system token")
	ErrNotFound      = errors.New("remote resource not found")
)

// Caller is the shared REST transport. It propagates the call context from
// the request context: tenant header always, bearer token unless the scope
// is guest.
type Caller struct {
	httpClient *http.Client
}

func NewCaller(httpClient *http.Client) *Caller {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Caller{httpClient: httpClient}
}

func (c *Caller) do(ctx context.Context, method, url string, body, out any) error {
	var reqBody io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reqBody = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	if cc, ok := security.CallContextFrom(ctx); ok {
		req.Header.Set(HeaderTenant, cc.Tenant)
		if !cc.Guest {
			req.Header.Set("Authorization", "Bearer "+cc.Token)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, url, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		if out == nil {
			return nil
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("%s %s: failed to decode response: %w", method, url, err)
		}
		return nil

	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%s %s: %w", method, url, ErrInvalidToken)

	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%s %s: %w", method, url, ErrNotFound)

	case resp.StatusCode == http.StatusConflict:
		return fmt.Errorf("%s %s: %w", method, url, ErrAlreadyExists)

	default:
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%s %s: unexpected status %d: %s", method, url, resp.StatusCode, strings.TrimSpace(string(detail)))
	}
}

func joinURL(base string, parts ...string) string {
	url := strings.TrimRight(base, "/")
	for _, part := range parts {
		url += "/" + strings.Trim(part, "/")
	}
	return url
}
