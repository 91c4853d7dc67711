// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/pdiddy/hypothesis-engine/internal/httputil"
)

// HTTPOptions holds the request settings shared by every backend.
type HTTPOptions struct {
	Client     *http.Client
	Limiter    *httputil.Limiter
	UserAgent  string
	MaxRetries int
}

func (o HTTPOptions) client() *http.Client {
	if o.Client != nil {
		return o.Client
	}
	return http.DefaultClient
}

// getJSON issues a throttled, retried GET and decodes a 200 response into v.
func (o HTTPOptions) getJSON(ctx context.Context, api, reqURL string, header http.Header, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	for k, vals := range header {
		for _, val := range vals {
			req.Header.Add(k, val)
		}
	}
	if o.UserAgent != "" {
		req.Header.Set("User-Agent", o.UserAgent)
	}

	resp, err := o.Limiter.Do(ctx, o.client(), req, o.MaxRetries)
	if err != nil {
		return fmt.Errorf("%s API request: %w", api, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s API returned HTTP %d", api, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("parsing %s response: %w", api, err)
	}
	return nil
}
