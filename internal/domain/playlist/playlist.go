// Package playlist provides the playlist record domain entity.
package playlist

import "github.com/cockroachdb/errors"

// Errors
var (
	ErrNotFound          = errors.New("tag not in playlist")
	ErrNotLoaded         = errors.New("playlist index not loaded")
	ErrSourceUnavailable = errors.New("playlist source unavailable")
	ErrParse             = errors.New("malformed playlist document")
)

// Record maps a tag identifier to something the remote player can queue.
type Record struct {
	TagID string // Tag identifier as produced by the reader
	URI   string // Mopidy URI (album, playlist or track); empty means the tag is inert
	Note  string // Display label
}

// Inert reports whether the record matches a tag but has nothing to play.
func (r Record) Inert() bool {
	return r.URI == ""
}

// Set is an ordered collection of records as read from the source document.
type Set []Record

// Find returns the first record whose tag matches.
// Duplicate tag ids are allowed; the earliest one wins.
func (s Set) Find(tagID string) (Record, bool) {
	for _, r := range s {
		if r.TagID == tagID {
			return r, true
		}
	}
	return Record{}, false
}

// Duplicates returns tag ids that appear more than once, with their counts.
func (s Set) Duplicates() map[string]int {
	counts := make(map[string]int, len(s))
	for _, r := range s {
		counts[r.TagID]++
	}
	dups := make(map[string]int)
	for id, n := range counts {
		if n > 1 {
			dups[id] = n
		}
	}
	return dups
}
