package mopidy

import (
	"context"
	"fmt"
	"net"

	"github.com/cockroachdb/errors"
)

// Errors
var (
	ErrNetwork  = errors.New("mopidy network error")
	ErrTimeout  = errors.New("mopidy request timed out")
	ErrProtocol = errors.New("mopidy protocol error")
	ErrParse    = errors.New("mopidy response not parseable")
)

// RPCError is the error member of a JSON-RPC response.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("json-rpc error %d: %s", e.Code, e.Message)
}

// classifyTransport marks a transport failure as a timeout or network error.
func classifyTransport(err error, method string) error {
	wrapped := errors.Wrapf(err, "%s: failed to send request", method)

	if errors.Is(err, context.DeadlineExceeded) {
		return errors.Mark(wrapped, ErrTimeout)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return errors.Mark(wrapped, ErrTimeout)
	}
	return errors.Mark(wrapped, ErrNetwork)
}

// protocolError reports a response that does not have the expected shape.
func protocolError(err error, method string) error {
	return errors.Mark(errors.Wrapf(err, "%s: unexpected response", method), ErrProtocol)
}
