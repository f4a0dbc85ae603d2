package chclient

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/go-faster/errors"
)

// ServerError is a parsed ClickHouse HTTP exception body, of the form
// "Code: <n>. DB::Exception: <message>".
type ServerError struct {
	Code    int
	Message string
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("clickhouse: code %d: %s", e.Code, e.Message)
}

var serverErrorPattern = regexp.MustCompile(`^Code:\s*(\d+)\.\s*DB::Exception:\s*(.*)$`)

// parseServerError attempts to parse a non-2xx response body into a
// ServerError. ok is false when the body doesn't match the expected shape,
// in which case the caller should fall back to a generic transport error.
func parseServerError(body []byte) (se *ServerError, ok bool) {
	m := serverErrorPattern.FindSubmatch(body)
	if m == nil {
		return nil, false
	}
	code, err := strconv.Atoi(string(m[1]))
	if err != nil {
		return nil, false
	}
	return &ServerError{Code: code, Message: string(m[2])}, true
}

// ConfigError reports a client misconfiguration: a missing connection
// target, an invalid URL, or a host that never answered.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string { return "chclient: config: " + e.Reason }

// ErrCancelled is returned in preference to any other error once the
// caller's context is done, per the propagation policy that cancellation
// outranks other failures when both are possible.
var ErrCancelled = errors.New("chclient: cancelled")

// ErrTimeout is returned when a per-request timeout expires; distinct from
// ErrCancelled, which only ever comes from the caller's own context.
var ErrTimeout = errors.New("chclient: timeout")
