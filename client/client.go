// Package client is the calling side of the extraction service: it collapses
// concurrent requests for the same listing into one call, backs off on rate
// limits, and can poll the asynchronous job endpoint to completion.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"propextract/httputil"
	"propextract/models"
)

const maxRateLimitRetries = 3

type Orchestrator struct {
	endpoint     string
	http         *http.Client
	group        singleflight.Group
	pollInterval time.Duration
}

func New(endpoint string, clients *httputil.Clients, pollInterval time.Duration) *Orchestrator {
	if pollInterval <= 0 {
		pollInterval = 2 * time.Second
	}
	return &Orchestrator{
		endpoint:     strings.TrimRight(endpoint, "/"),
		http:         clients.API,
		pollInterval: pollInterval,
	}
}

// NormalizeURL canonicalizes a listing URL for dedup: lowercased scheme and
// host, fragment dropped, trailing slash trimmed. Unparseable input is
// returned trimmed so callers still get a stable key.
func NormalizeURL(raw string) string {
	raw = strings.TrimSpace(raw)
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return strings.TrimRight(raw, "/")
	}
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""
	u.Path = strings.TrimRight(u.Path, "/")
	return u.String()
}

// Extract runs a synchronous extraction. Concurrent calls for the same
// normalized URL share one in-flight request and receive the same response.
func (o *Orchestrator) Extract(ctx context.Context, rawURL, userID string) (*models.ExtractionResponse, error) {
	key := NormalizeURL(rawURL)

	v, err, _ := o.group.Do(key, func() (any, error) {
		return o.post(ctx, "", key, userID)
	})
	if err != nil {
		return nil, err
	}

	var resp models.ExtractionResponse
	if err := json.Unmarshal(v.([]byte), &resp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &resp, nil
}

// ExtractAsync enqueues a job and polls until it reaches a terminal status.
func (o *Orchestrator) ExtractAsync(ctx context.Context, rawURL, userID string) (*models.ExtractionResponse, error) {
	key := NormalizeURL(rawURL)

	body, err := o.post(ctx, "?async=1", key, userID)
	if err != nil {
		return nil, err
	}

	var queued struct {
		JobID string `json:"jobId"`
	}
	if err := json.Unmarshal(body, &queued); err != nil || queued.JobID == "" {
		// Validation failures come back in the synchronous response shape.
		var resp models.ExtractionResponse
		if derr := json.Unmarshal(body, &resp); derr == nil && resp.Source != "" {
			return &resp, nil
		}
		return nil, fmt.Errorf("enqueue: unexpected response %s", body)
	}

	return o.poll(ctx, queued.JobID)
}

func (o *Orchestrator) poll(ctx context.Context, jobID string) (*models.ExtractionResponse, error) {
	ticker := time.NewTicker(o.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.endpoint+"/?id="+url.QueryEscape(jobID), nil)
		if err != nil {
			return nil, err
		}
		res, err := o.http.Do(req)
		if err != nil {
			return nil, fmt.Errorf("poll job %s: %w", jobID, err)
		}
		body, err := io.ReadAll(res.Body)
		res.Body.Close()
		if err != nil {
			return nil, err
		}

		var status struct {
			Status models.JobStatus `json:"status"`
			Result json.RawMessage  `json:"result"`
			Error  string           `json:"error"`
		}
		if err := json.Unmarshal(body, &status); err != nil {
			return nil, fmt.Errorf("decode job status: %w", err)
		}
		if !status.Status.Terminal() {
			continue
		}
		if len(status.Result) > 0 {
			var resp models.ExtractionResponse
			if err := json.Unmarshal(status.Result, &resp); err != nil {
				return nil, fmt.Errorf("decode job result: %w", err)
			}
			return &resp, nil
		}
		return nil, fmt.Errorf("job %s failed: %s", jobID, status.Error)
	}
}

// post sends one extraction request, retrying after the server-advertised
// delay when rate limited. Returns the raw 200 body.
func (o *Orchestrator) post(ctx context.Context, query, targetURL, userID string) ([]byte, error) {
	payload, err := json.Marshal(models.ExtractionRequest{Text: targetURL, UserID: userID})
	if err != nil {
		return nil, err
	}

	for attempt := 0; ; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.endpoint+"/"+query, bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")

		res, err := o.http.Do(req)
		if err != nil {
			return nil, fmt.Errorf("extract %s: %w", targetURL, err)
		}
		body, err := io.ReadAll(res.Body)
		res.Body.Close()
		if err != nil {
			return nil, err
		}

		if res.StatusCode == http.StatusTooManyRequests {
			if attempt >= maxRateLimitRetries {
				return nil, fmt.Errorf("extract %s: rate limited after %d retries", targetURL, attempt)
			}
			wait := retryAfter(body)
			log.Printf("Rate limited extracting %s, retrying in %s", targetURL, wait)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(wait):
			}
			continue
		}
		if res.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("extract %s: unexpected status %d", targetURL, res.StatusCode)
		}
		return body, nil
	}
}

func retryAfter(body []byte) time.Duration {
	var limited struct {
		RetryAfterSeconds int `json:"retryAfterSeconds"`
	}
	if err := json.Unmarshal(body, &limited); err == nil && limited.RetryAfterSeconds > 0 {
		return time.Duration(limited.RetryAfterSeconds) * time.Second
	}
	return time.Second
}
