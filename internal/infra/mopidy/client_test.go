package mopidy

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// rpcServer answers every call with the canned body for its method.
func rpcServer(t *testing.T, replies map[string]string, seen *[]map[string]any) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, DefaultPath, r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)

		var envelope map[string]any
		require.NoError(t, json.Unmarshal(body, &envelope))
		if seen != nil {
			*seen = append(*seen, envelope)
		}

		reply, ok := replies[envelope["method"].(string)]
		if !ok {
			reply = `{"jsonrpc":"2.0","id":1,"result":null}`
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, reply)
	}))
}

func newTestClient(t *testing.T, url string) *Client {
	t.Helper()
	client, err := New(Config{URL: url, Timeout: time.Second})
	require.NoError(t, err)
	return client
}

func TestNew(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)

	tests := []struct {
		name     string
		url      string
		expected string
	}{
		{
			name:     "base URL",
			url:      "http://musicbox.local:6680",
			expected: "http://musicbox.local:6680/mopidy/rpc",
		},
		{
			name:     "base URL with trailing slash",
			url:      "http://musicbox.local/",
			expected: "http://musicbox.local/mopidy/rpc",
		},
		{
			name:     "full endpoint",
			url:      "http://192.168.1.20/mopidy/rpc",
			expected: "http://192.168.1.20/mopidy/rpc",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := New(Config{URL: tt.url})
			require.NoError(t, err)
			assert.Equal(t, tt.expected, client.Endpoint())
		})
	}
}

func TestCall_Envelope(t *testing.T) {
	var seen []map[string]any
	server := rpcServer(t, nil, &seen)
	defer server.Close()

	client := newTestClient(t, server.URL)
	ctx := context.Background()

	require.NoError(t, client.Stop(ctx))
	require.NoError(t, client.AddToTracklist(ctx, "local:track:1"))

	require.Len(t, seen, 2)

	assert.Equal(t, "core.playback.stop", seen[0]["method"])
	assert.Equal(t, float64(1), seen[0]["id"])
	assert.Equal(t, "2.0", seen[0]["jsonrpc"])
	assert.NotContains(t, seen[0], "params")

	assert.Equal(t, "core.tracklist.add", seen[1]["method"])
	assert.Equal(t, map[string]any{"uri": "local:track:1"}, seen[1]["params"])
}

func TestCommands_Methods(t *testing.T) {
	var seen []map[string]any
	server := rpcServer(t, nil, &seen)
	defer server.Close()

	client := newTestClient(t, server.URL)
	ctx := context.Background()

	calls := []struct {
		method string
		fn     func(context.Context) error
	}{
		{MethodStop, client.Stop},
		{MethodPause, client.Pause},
		{MethodResume, client.Resume},
		{MethodPrevious, client.Previous},
		{MethodNext, client.Next},
		{MethodPlay, client.Play},
		{MethodTracklistClear, client.ClearTracklist},
	}

	for i, c := range calls {
		require.NoError(t, c.fn(ctx), c.method)
		assert.Equal(t, c.method, seen[i]["method"])
	}
}

func TestGetState(t *testing.T) {
	tests := []struct {
		name    string
		reply   string
		want    string
		wantErr error
	}{
		{
			name:  "playing",
			reply: `{"jsonrpc":"2.0","id":1,"result":"playing"}`,
			want:  StatePlaying,
		},
		{
			name:  "stopped",
			reply: `{"jsonrpc":"2.0","id":1,"result":"stopped"}`,
			want:  StateStopped,
		},
		{
			name:    "unknown state",
			reply:   `{"jsonrpc":"2.0","id":1,"result":"buffering"}`,
			wantErr: ErrProtocol,
		},
		{
			name:    "wrong type",
			reply:   `{"jsonrpc":"2.0","id":1,"result":{"state":"playing"}}`,
			wantErr: ErrProtocol,
		},
		{
			name:    "rpc error",
			reply:   `{"jsonrpc":"2.0","id":1,"error":{"code":-32601,"message":"Method not found"}}`,
			wantErr: ErrProtocol,
		},
		{
			name:    "garbage body",
			reply:   `<html>oops</html>`,
			wantErr: ErrParse,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := rpcServer(t, map[string]string{MethodGetState: tt.reply}, nil)
			defer server.Close()

			state, err := newTestClient(t, server.URL).GetState(context.Background())
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, state)
		})
	}
}

func TestGetCurrentTrack(t *testing.T) {
	reply := `{
		"jsonrpc": "2.0",
		"id": 1,
		"result": {
			"__model__": "Track",
			"uri": "local:track:1",
			"name": "Song One",
			"length": 215000,
			"artists": [
				{"__model__": "Artist", "name": "First Artist", "uri": "local:artist:1"},
				{"__model__": "Artist", "name": "Second Artist"}
			],
			"album": {"__model__": "Album", "name": "The Album"}
		}
	}`
	server := rpcServer(t, map[string]string{MethodGetCurrentTrack: reply}, nil)
	defer server.Close()

	trk, err := newTestClient(t, server.URL).GetCurrentTrack(context.Background())
	require.NoError(t, err)
	require.NotNil(t, trk)

	assert.Equal(t, "local:track:1", trk.URI)
	assert.Equal(t, "Song One", trk.Name)
	assert.Equal(t, "First Artist", trk.Artist())
	assert.Equal(t, []string{"First Artist", "Second Artist"}, trk.Artists)
	assert.Equal(t, "The Album", trk.Album)
	assert.Equal(t, 215*time.Second, trk.Duration)
}

func TestGetCurrentTrack_Null(t *testing.T) {
	server := rpcServer(t, map[string]string{
		MethodGetCurrentTrack: `{"jsonrpc":"2.0","id":1,"result":null}`,
	}, nil)
	defer server.Close()

	trk, err := newTestClient(t, server.URL).GetCurrentTrack(context.Background())
	assert.NoError(t, err)
	assert.Nil(t, trk)
}

func TestGetCurrentTrack_ShapeMismatch(t *testing.T) {
	tests := []struct {
		name   string
		result string
	}{
		{name: "missing uri", result: `{"name":"Song"}`},
		{name: "artist without name", result: `{"uri":"local:track:1","artists":[{"uri":"x"}]}`},
		{name: "not a track model", result: `{"__model__":"Album","uri":"local:album:1"}`},
		{name: "artists not a list", result: `{"uri":"local:track:1","artists":"nobody"}`},
		{name: "negative length", result: `{"uri":"local:track:1","length":-5}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := rpcServer(t, map[string]string{
				MethodGetCurrentTrack: `{"jsonrpc":"2.0","id":1,"result":` + tt.result + `}`,
			}, nil)
			defer server.Close()

			_, err := newTestClient(t, server.URL).GetCurrentTrack(context.Background())
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrProtocol), "got %v", err)
		})
	}
}

func TestAddToTracklist_RejectsNonList(t *testing.T) {
	server := rpcServer(t, map[string]string{
		MethodTracklistAdd: `{"jsonrpc":"2.0","id":1,"result":"added"}`,
	}, nil)
	defer server.Close()

	err := newTestClient(t, server.URL).AddToTracklist(context.Background(), "local:track:1")
	assert.True(t, errors.Is(err, ErrProtocol), "got %v", err)
}

func TestCall_HTTPStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "not here", http.StatusNotFound)
	}))
	defer server.Close()

	err := newTestClient(t, server.URL).Play(context.Background())
	assert.True(t, errors.Is(err, ErrProtocol), "got %v", err)
}

func TestCall_NetworkError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	err := newTestClient(t, url).Play(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNetwork), "got %v", err)
	assert.False(t, errors.Is(err, ErrTimeout))
}

func TestCall_Timeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	client, err := New(Config{URL: server.URL, Timeout: 50 * time.Millisecond})
	require.NoError(t, err)

	err = client.Play(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTimeout), "got %v", err)
}

func TestCall_ContextDeadline(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	err := newTestClient(t, server.URL).Stop(ctx)
	assert.True(t, errors.Is(err, ErrTimeout), "got %v", err)
}
