// Package airtable fetches the playlist document: an Airtable-style export of
// the form {"records":[{"fields":{"tagId":..,"uri":..,"note":..}}]}.
package airtable

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/mitchellh/mapstructure"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/slidebox/internal/domain/playlist"
)

// Client fetches playlist records from a document URL.
type Client struct {
	url        string
	token      string
	httpClient *http.Client
}

// Config represents playlist source configuration.
type Config struct {
	URL     string        // Document URL (a static music.json or an Airtable table endpoint)
	Token   string        // Bearer token, only needed for the Airtable API
	Timeout time.Duration // Request timeout
}

// document is the top-level shape of the source.
type document struct {
	Records *[]struct {
		Fields map[string]any `json:"fields"`
	} `json:"records"`
}

// fields is decoded loosely: Airtable exports may carry numbers for tag ids,
// and older files name the column "tag" instead of "tagId".
type fields struct {
	TagID string `mapstructure:"tagId"`
	Tag   string `mapstructure:"tag"`
	URI   string `mapstructure:"uri"`
	Note  string `mapstructure:"note"`
}

// New creates a new playlist source client.
func New(cfg Config) (*Client, error) {
	if cfg.URL == "" {
		return nil, errors.New("playlist source URL is required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &Client{
		url:        cfg.URL,
		token:      cfg.Token,
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

// FetchRecords downloads and decodes the playlist document.
// Transport failures and non-2xx replies are marked playlist.ErrSourceUnavailable;
// malformed documents are marked playlist.ErrParse.
func (c *Client) FetchRecords(ctx context.Context) (playlist.Set, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create request")
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Mark(errors.Wrap(err, "failed to fetch playlist document"), playlist.ErrSourceUnavailable)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Mark(errors.Wrap(err, "failed to read playlist document"), playlist.ErrSourceUnavailable)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, errors.Mark(errors.Newf("playlist source returned status %d", resp.StatusCode), playlist.ErrSourceUnavailable)
	}

	return Parse(body)
}

// Parse decodes a playlist document. Duplicate tag ids are kept in order.
func Parse(body []byte) (playlist.Set, error) {
	var doc document
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, errors.Mark(errors.Wrap(err, "failed to parse playlist document"), playlist.ErrParse)
	}
	if doc.Records == nil {
		return nil, errors.Mark(errors.New("playlist document has no records list"), playlist.ErrParse)
	}

	records := make(playlist.Set, 0, len(*doc.Records))
	for i, r := range *doc.Records {
		var f fields
		decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
			WeaklyTypedInput: true,
			Result:           &f,
		})
		if err != nil {
			return nil, errors.Wrap(err, "failed to create decoder")
		}
		if err := decoder.Decode(r.Fields); err != nil {
			return nil, errors.Mark(errors.Wrapf(err, "record %d: bad fields", i), playlist.ErrParse)
		}

		tagID := f.TagID
		if tagID == "" {
			tagID = f.Tag
		}
		if tagID == "" {
			zlog.Warn().Msgf("airtable: record %d has no tag id and can never match", i)
		}

		records = append(records, playlist.Record{
			TagID: tagID,
			URI:   f.URI,
			Note:  f.Note,
		})
	}

	return records, nil
}
