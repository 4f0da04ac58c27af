// Package supabase talks to the hosted storage REST API.
package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"souviens_toi/internal/auth"
	"souviens_toi/internal/bucketurl"
)

// ErrRequestFailed wraps every non-success response from the storage API.
var ErrRequestFailed = errors.New("storage request failed")

type Config struct {
	ProjectURL string
	Bucket     string
	// APIKey is sent as the apikey header and, without a signed-in user, as
	// the bearer token.
	APIKey  string
	Timeout time.Duration
}

// Client implements object storage against a single bucket. Requests are
// authorized with the current user's token when one is in the context.
type Client struct {
	httpClient *http.Client
	projectURL string
	bucket     string
	apiKey     string
	logger     *slog.Logger
}

func New(cfg Config, logger *slog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		projectURL: cfg.ProjectURL,
		bucket:     cfg.Bucket,
		apiKey:     cfg.APIKey,
		logger:     logger.With("component", "storage", "backend", "rest", "bucket", cfg.Bucket),
	}
}

// Upload stores body at path. An existing object at path is not replaced.
func (c *Client) Upload(ctx context.Context, path, contentType string, body io.Reader) error {
	req, err := c.newRequest(ctx, http.MethodPost, bucketurl.ObjectEndpoint(c.projectURL, c.bucket, path), body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("x-upsert", "false")

	if err := c.do(req, nil); err != nil {
		return fmt.Errorf("upload %s: %w", path, err)
	}

	c.logger.Debug("object uploaded", "path", path)
	return nil
}

// Remove deletes the objects at paths. Missing objects are not an error.
func (c *Client) Remove(ctx context.Context, paths []string) error {
	if len(paths) == 0 {
		return nil
	}

	payload, err := json.Marshal(removeRequest{Prefixes: paths})
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodDelete, bucketurl.ObjectEndpoint(c.projectURL, c.bucket, ""), bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	if err := c.do(req, nil); err != nil {
		return fmt.Errorf("remove %d objects: %w", len(paths), err)
	}

	c.logger.Debug("objects removed", "paths", paths)
	return nil
}

func (c *Client) PublicURL(path string) string {
	return bucketurl.PublicURL(c.projectURL, c.bucket, path)
}

// SignedURL returns an absolute URL granting read access to path for ttl.
func (c *Client) SignedURL(ctx context.Context, path string, ttl time.Duration) (string, error) {
	payload, err := json.Marshal(signRequest{ExpiresIn: int(ttl.Seconds())})
	if err != nil {
		return "", fmt.Errorf("encode request: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, bucketurl.SignEndpoint(c.projectURL, c.bucket, path), bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	var resp signResponse
	if err := c.do(req, &resp); err != nil {
		return "", fmt.Errorf("sign %s: %w", path, err)
	}
	if resp.SignedURL == "" {
		return "", fmt.Errorf("sign %s: %w: empty signed url", path, ErrRequestFailed)
	}

	return bucketurl.AbsoluteSignedURL(c.projectURL, resp.SignedURL), nil
}

func (c *Client) newRequest(ctx context.Context, method, url string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	token := c.apiKey
	if user, ok := auth.CurrentUser(ctx); ok && user.Token != "" {
		token = user.Token
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("User-Agent", "SouviensToi/1.0")
	return req, nil
}

// do executes req and decodes a JSON response into out when out is non-nil.
func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var apiErr apiError
		_ = json.NewDecoder(resp.Body).Decode(&apiErr)
		msg := apiErr.Message
		if msg == "" {
			msg = apiErr.Error
		}
		return fmt.Errorf("%w: status %d: %s", ErrRequestFailed, resp.StatusCode, msg)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
