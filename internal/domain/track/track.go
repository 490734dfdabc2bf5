// Package track provides the Track domain entity.
package track

import "time"

// Track represents the track the remote player reports as current.
type Track struct {
	URI      string        // Mopidy track URI
	Name     string        // Track name
	Artists  []string      // Artist names, in the order the backend lists them
	Album    string        // Album name
	Duration time.Duration // Track length (zero when the backend does not know)
}

// Artist returns the first listed artist, or an empty string.
func (t *Track) Artist() string {
	if len(t.Artists) == 0 {
		return ""
	}
	return t.Artists[0]
}
