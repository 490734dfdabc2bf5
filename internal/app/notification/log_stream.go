package notification

import (
	"strings"

	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
)

// LogStream renders screens to the log. It stands in for the OLED on hosts
// without a display attached.
type LogStream struct {
	logger zerolog.Logger
}

// NewLogStream creates a log-backed display using the global logger.
func NewLogStream() *LogStream {
	return &LogStream{logger: zlog.Logger}
}

// Send implements Stream.
func (l *LogStream) Send(s Screen) error {
	ev := l.logger.Info()
	if s.Kind == KindError {
		ev = l.logger.Warn()
	}
	ev.Str("screen", s.Kind.String()).
		Uint64("seq", s.SequenceNo).
		Msg("display: " + strings.Join(s.Lines, " | "))
	return nil
}
