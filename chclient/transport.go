package chclient

import (
	"bytes"
	"context"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"

	"github.com/andybalholm/brotli"
	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/klauspost/compress/gzip"
	"github.com/pierrec/lz4/v4"
	"go.uber.org/zap"

	"chnative/internal/chlog"
)

// transport issues HTTP requests against the ClickHouse HTTP interface:
// query text and settings go in the query string, credentials in the
// X-ClickHouse-User/X-ClickHouse-Key headers, and the body is optionally
// compressed.
type transport struct {
	opts Options
	http *http.Client
	log  chlog.Logger
}

func newTransport(opts Options, log chlog.Logger) *transport {
	return &transport{
		opts: opts,
		http: &http.Client{Timeout: opts.RequestTimeout},
		log:  log,
	}
}

// request issues one POST against the ClickHouse HTTP endpoint. query is
// sent as the "query" URL parameter; body (if non-nil) is the request
// payload (e.g. a RowBinary insert batch, or empty for a plain statement).
// The returned response's Body is the caller's to close.
func (t *transport) request(ctx context.Context, query string, body io.Reader, contentEncoding string, qo QueryOptions) (*http.Response, error) {
	u, err := url.Parse(t.opts.Addr)
	if err != nil {
		return nil, &ConfigError{Reason: "invalid addr: " + err.Error()}
	}

	q := u.Query()
	q.Set("query", query)
	if t.opts.Database != "" {
		q.Set("database", t.opts.Database)
	}
	for k, v := range t.opts.ServerSettings {
		q.Set(k, v)
	}
	for k, v := range qo.Settings {
		q.Set(k, v)
	}
	u.RawQuery = q.Encode()

	if body == nil {
		body = strings.NewReader("")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), body)
	if err != nil {
		return nil, errors.Wrap(err, "chclient: build request")
	}

	queryID := qo.QueryID
	if queryID == "" {
		queryID = uuid.NewString()
	}
	req.Header.Set("X-ClickHouse-Query-Id", queryID)
	if t.opts.User != "" {
		req.Header.Set("X-ClickHouse-User", t.opts.User)
	}
	if t.opts.Password != "" {
		req.Header.Set("X-ClickHouse-Key", t.opts.Password)
	}
	if t.opts.Database != "" {
		req.Header.Set("X-ClickHouse-Database", t.opts.Database)
	}
	if contentEncoding != "" {
		req.Header.Set("Content-Encoding", contentEncoding)
	}

	t.log.Debug("chclient: request start", zap.String("query_id", queryID))
	resp, err := t.http.Do(req)
	if err != nil {
		// The caller's own context being done outranks a timeout: both can
		// be true at once (Client.Timeout fires by deriving its own
		// deadline from ctx), but cancellation is the more specific cause.
		if ctx.Err() != nil {
			return nil, ErrCancelled
		}
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return nil, ErrTimeout
		}
		var opErr *net.OpError
		if errors.As(err, &opErr) && opErr.Op == "dial" {
			return nil, &ConfigError{Reason: "unreachable host: " + err.Error()}
		}
		return nil, errors.Wrap(err, "chclient: http")
	}
	t.log.Debug("chclient: request end", zap.String("query_id", queryID), zap.Int("status", resp.StatusCode))

	if resp.StatusCode/100 != 2 {
		defer resp.Body.Close()
		raw, _ := io.ReadAll(resp.Body)
		if se, ok := parseServerError(raw); ok {
			return nil, se
		}
		return nil, errors.Newf("chclient: http %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	return resp, nil
}

// compressBody wraps raw with the encoding the client is configured to
// send, returning the wire name for Content-Encoding alongside it.
func compressBody(raw []byte, encoding string) (io.Reader, string, error) {
	switch encoding {
	case "", "none":
		return bytes.NewReader(raw), "", nil
	case "gzip":
		var buf bytes.Buffer
		w := gzip.NewWriter(&buf)
		if _, err := w.Write(raw); err != nil {
			return nil, "", err
		}
		if err := w.Close(); err != nil {
			return nil, "", err
		}
		return &buf, "gzip", nil
	case "lz4":
		var buf bytes.Buffer
		w := lz4.NewWriter(&buf)
		if _, err := w.Write(raw); err != nil {
			return nil, "", err
		}
		if err := w.Close(); err != nil {
			return nil, "", err
		}
		return &buf, "lz4", nil
	case "br":
		var buf bytes.Buffer
		w := brotli.NewWriter(&buf)
		if _, err := w.Write(raw); err != nil {
			return nil, "", err
		}
		if err := w.Close(); err != nil {
			return nil, "", err
		}
		return &buf, "br", nil
	default:
		return nil, "", errors.Newf("chclient: unknown compression %q", encoding)
	}
}
