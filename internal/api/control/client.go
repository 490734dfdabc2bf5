package control

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/osa030/slidebox/internal/app/notification"
)

// Client talks to the control API.
type Client struct {
	base       string
	token      string
	httpClient *http.Client
}

// NewClient creates a client for the API at base. A nil httpClient means
// http.DefaultClient.
func NewClient(base, token string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		base:       strings.TrimRight(base, "/"),
		token:      token,
		httpClient: httpClient,
	}
}

// Status fetches the player snapshot and last screen.
func (c *Client) Status(ctx context.Context) (*StatusResponse, error) {
	resp, err := c.do(ctx, http.MethodGet, "/api/status")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var status StatusResponse
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return nil, errors.Wrap(err, "failed to decode status")
	}
	return &status, nil
}

// Press delivers a button edge by name.
func (c *Client) Press(ctx context.Context, button string) error {
	return c.discard(c.do(ctx, http.MethodPost, "/api/buttons/"+url.PathEscape(button)))
}

// Place puts a tag on the virtual reader.
func (c *Client) Place(ctx context.Context, id string) error {
	return c.discard(c.do(ctx, http.MethodPut, "/api/tag/"+url.PathEscape(id)))
}

// Remove takes the tag off the virtual reader.
func (c *Client) Remove(ctx context.Context) error {
	return c.discard(c.do(ctx, http.MethodDelete, "/api/tag"))
}

// Watch calls fn for every screen until ctx is cancelled or the server
// closes the stream.
func (c *Client) Watch(ctx context.Context, fn func(notification.Screen)) error {
	resp, err := c.do(ctx, http.MethodGet, "/api/screens")
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		data, ok := strings.CutPrefix(scanner.Text(), "data: ")
		if !ok {
			continue
		}
		var screen notification.Screen
		if err := json.Unmarshal([]byte(data), &screen); err != nil {
			return errors.Wrap(err, "failed to decode screen")
		}
		fn(screen)
	}
	if err := scanner.Err(); err != nil && ctx.Err() == nil {
		return errors.Wrap(err, "screen stream failed")
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create request")
	}
	if c.token != "" {
		req.Header.Set(TokenHeader, c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "%s %s", method, path)
	}
	if resp.StatusCode >= 300 {
		defer resp.Body.Close()
		var body ErrorResponse
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil || body.Error == "" {
			body.Error = http.StatusText(resp.StatusCode)
		}
		return nil, errors.Newf("%s %s: %s (%d)", method, path, body.Error, resp.StatusCode)
	}
	return resp, nil
}

func (c *Client) discard(resp *http.Response, err error) error {
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
