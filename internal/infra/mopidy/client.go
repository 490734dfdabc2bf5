// Package mopidy provides a JSON-RPC client for the Mopidy HTTP frontend.
package mopidy

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/slidebox/internal/domain/track"
)

// DefaultPath is where Mopidy serves JSON-RPC.
const DefaultPath = "/mopidy/rpc"

const protocolVersion = "2.0"

// Methods used by the player.
const (
	MethodStop            = "core.playback.stop"
	MethodGetState        = "core.playback.get_state"
	MethodPause           = "core.playback.pause"
	MethodResume          = "core.playback.resume"
	MethodPrevious        = "core.playback.previous"
	MethodNext            = "core.playback.next"
	MethodPlay            = "core.playback.play"
	MethodGetCurrentTrack = "core.playback.get_current_track"
	MethodTracklistClear  = "core.tracklist.clear"
	MethodTracklistAdd    = "core.tracklist.add"
)

// Client is a Mopidy JSON-RPC client. It does not serialize concurrent calls
// and never retries; callers that need ordering chain calls themselves.
type Client struct {
	endpoint   string
	httpClient *http.Client
}

// Config represents Mopidy client configuration.
type Config struct {
	URL     string        // Base URL (http://host:6680) or full RPC endpoint
	Timeout time.Duration // Per-call timeout
}

// New creates a new Mopidy client.
func New(cfg Config) (*Client, error) {
	if cfg.URL == "" {
		return nil, errors.New("mopidy URL is required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	return &Client{
		endpoint:   endpointFor(cfg.URL),
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

// Endpoint returns the RPC URL requests are posted to.
func (c *Client) Endpoint() string {
	return c.endpoint
}

// endpointFor appends the RPC path unless the URL already names it.
func endpointFor(raw string) string {
	raw = strings.TrimRight(strings.TrimSpace(raw), "/")
	if strings.HasSuffix(raw, DefaultPath) {
		return raw
	}
	return raw + DefaultPath
}

// Call issues one command and returns its raw result.
// A nil params omits the params member entirely.
func (c *Client) Call(ctx context.Context, method string, params *Params) (json.RawMessage, error) {
	body, err := json.Marshal(request{
		Method:  method,
		ID:      1,
		JSONRPC: protocolVersion,
		Params:  params,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "%s: failed to encode request", method)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrapf(err, "%s: failed to create request", method)
	}
	req.Header.Set("Content-Type", "application/json")

	zlog.Debug().Msgf("mopidy: call: method=%s", method)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, classifyTransport(err, method)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, classifyTransport(err, method)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, protocolError(errors.Newf("http status %d", resp.StatusCode), method)
	}

	var envelope response
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, errors.Mark(errors.Wrapf(err, "%s: failed to parse response", method), ErrParse)
	}
	if envelope.Error != nil {
		return nil, protocolError(envelope.Error, method)
	}

	return envelope.Result, nil
}

// command issues a call whose result is not needed.
func (c *Client) command(ctx context.Context, method string, params *Params) error {
	_, err := c.Call(ctx, method, params)
	return err
}

// Stop stops playback.
func (c *Client) Stop(ctx context.Context) error {
	return c.command(ctx, MethodStop, nil)
}

// Pause pauses playback.
func (c *Client) Pause(ctx context.Context) error {
	return c.command(ctx, MethodPause, nil)
}

// Resume resumes paused playback.
func (c *Client) Resume(ctx context.Context) error {
	return c.command(ctx, MethodResume, nil)
}

// Previous skips to the previous track.
func (c *Client) Previous(ctx context.Context) error {
	return c.command(ctx, MethodPrevious, nil)
}

// Next skips to the next track.
func (c *Client) Next(ctx context.Context) error {
	return c.command(ctx, MethodNext, nil)
}

// Play starts playback of the tracklist.
func (c *Client) Play(ctx context.Context) error {
	return c.command(ctx, MethodPlay, nil)
}

// ClearTracklist empties the tracklist.
func (c *Client) ClearTracklist(ctx context.Context) error {
	return c.command(ctx, MethodTracklistClear, nil)
}

// AddToTracklist appends everything uri resolves to.
// Mopidy answers with the added tl_tracks, so anything but a list is rejected.
func (c *Client) AddToTracklist(ctx context.Context, uri string) error {
	result, err := c.Call(ctx, MethodTracklistAdd, &Params{URI: uri})
	if err != nil {
		return err
	}
	if isNull(result) {
		return nil
	}
	var added []json.RawMessage
	if err := json.Unmarshal(result, &added); err != nil {
		return protocolError(err, MethodTracklistAdd)
	}
	zlog.Debug().Msgf("mopidy: tracklist add: uri=%s added=%d", uri, len(added))
	return nil
}

// GetState returns the playback state: playing, paused or stopped.
func (c *Client) GetState(ctx context.Context) (string, error) {
	result, err := c.Call(ctx, MethodGetState, nil)
	if err != nil {
		return "", err
	}

	var state string
	if err := json.Unmarshal(result, &state); err != nil {
		return "", protocolError(err, MethodGetState)
	}
	if err := validate.Var(state, "required,oneof=playing paused stopped"); err != nil {
		return "", protocolError(err, MethodGetState)
	}
	return state, nil
}

// GetCurrentTrack returns the current track, or nil when nothing is loaded.
func (c *Client) GetCurrentTrack(ctx context.Context) (*track.Track, error) {
	result, err := c.Call(ctx, MethodGetCurrentTrack, nil)
	if err != nil {
		return nil, err
	}
	if isNull(result) {
		return nil, nil
	}

	var schema trackSchema
	if err := json.Unmarshal(result, &schema); err != nil {
		return nil, protocolError(err, MethodGetCurrentTrack)
	}
	if err := validate.Struct(&schema); err != nil {
		return nil, protocolError(err, MethodGetCurrentTrack)
	}
	return schema.toTrack(), nil
}

func isNull(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}
