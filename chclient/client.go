// Package chclient is the Query Façade: it composes the parameter
// renderer, HTTP transport, and row stream reader into the client-facing
// entry points (execute, scalar, reader, insert_binary, insert_raw_stream,
// ping, register_json_type), and implements chbulk.Uploader so
// chbulk.Copy can drive it directly.
package chclient

import (
	"bytes"
	"context"
	"io"

	"github.com/go-faster/errors"
	"go.uber.org/zap"

	"chnative/chbulk"
	"chnative/chparam"
	"chnative/chrow"
	"chnative/chtype"
	"chnative/chvalue"
	"chnative/internal/chlog"
)

var _ chbulk.Uploader = (*Client)(nil)

// Client is a connection to one ClickHouse HTTP endpoint. It shares one
// immutable Options record and one *http.Client across concurrent
// queries; nothing else is shared, so queries on the same Client are
// independent (no query holds a lock another query waits on).
type Client struct {
	opts Options
	reg  *chtype.Registry
	tr   *transport
	log  chlog.Logger
}

// New validates opts and returns a ready Client. logger may be nil, in
// which case logging is a no-op.
func New(opts Options, reg *chtype.Registry, logger *zap.Logger) (*Client, error) {
	opts = opts.withDefaults()
	if err := opts.validate(); err != nil {
		return nil, &ConfigError{Reason: err.Error()}
	}
	if reg == nil {
		reg = chtype.NewRegistry()
	}
	log := chlog.New(logger)
	return &Client{
		opts: opts,
		reg:  reg,
		tr:   newTransport(opts, log),
		log:  log,
	}, nil
}

// RegisterJSONType names a JSON column shape for later lookup; see
// chtype.Registry.RegisterJSONType.
func (c *Client) RegisterJSONType(name, typeText string) error {
	t, err := c.reg.Parse(typeText)
	if err != nil {
		return err
	}
	c.reg.RegisterJSONType(name, t)
	return nil
}

// bag builds a chparam.Bag from a plain name->value map with no declared
// types, so each parameter is rendered with the type hint of its
// {name:Type} placeholder; a placeholder without a hint fails as
// UntypedParameter. A caller who needs an explicit declared type should
// build a chparam.Bag directly and call chparam.Substitute themselves.
func bag(params map[string]chvalue.Value) chparam.Bag {
	b := make(chparam.Bag, len(params))
	for k, v := range params {
		b[k] = chparam.Param{Value: v}
	}
	return b
}

func (c *Client) render(sql string, params map[string]chvalue.Value) (string, error) {
	if len(params) == 0 {
		return sql, nil
	}
	return chparam.Substitute(sql, bag(params), c.reg)
}

// Execute runs sql (with optional params substituted) and returns the
// number of rows the server reports affected. The response body is
// consumed and discarded; use Reader for result rows.
func (c *Client) Execute(ctx context.Context, sql string, params map[string]chvalue.Value, qo QueryOptions) (int64, error) {
	rendered, err := c.render(sql, params)
	if err != nil {
		return 0, err
	}
	resp, err := c.tr.request(ctx, rendered, nil, "", qo)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	if _, err := io.Copy(io.Discard, resp.Body); err != nil {
		return 0, err
	}
	n, err := countSummaryRows(resp)
	if err != nil {
		return 0, err
	}
	return n, nil
}

// Scalar runs sql and returns the first column of the first row, or a
// null Value if the result set is empty.
func (c *Client) Scalar(ctx context.Context, sql string, params map[string]chvalue.Value, qo QueryOptions) (chvalue.Value, error) {
	r, err := c.Reader(ctx, sql, params, qo)
	if err != nil {
		return chvalue.Null(), err
	}
	defer r.Close()
	if !r.Read(ctx) {
		if err := r.Err(); err != nil {
			return chvalue.Null(), err
		}
		return chvalue.Null(), nil
	}
	if r.FieldCount() == 0 {
		return chvalue.Null(), nil
	}
	return r.Value(0)
}

// Reader runs sql with output format RowBinaryWithNamesAndTypes and
// returns a *chrow.Reader positioned before the first row.
func (c *Client) Reader(ctx context.Context, sql string, params map[string]chvalue.Value, qo QueryOptions) (*chrow.Reader, error) {
	rendered, err := c.render(sql, params)
	if err != nil {
		return nil, err
	}
	settings := mergeSettings(qo.Settings, map[string]string{"default_format": "RowBinaryWithNamesAndTypes"})
	resp, err := c.tr.request(ctx, rendered, nil, "", QueryOptions{Settings: settings, QueryID: qo.QueryID})
	if err != nil {
		return nil, err
	}
	return chrow.NewReader(resp.Body, c.reg)
}

// InsertBinary encodes rows against table's declared columns and posts
// them as RowBinary batches of up to Options.BatchSize rows, delegating
// to chbulk.Copy with up to Options.MaxParallel concurrent uploads.
func (c *Client) InsertBinary(ctx context.Context, table string, columns []string, rows [][]chvalue.Value) (int64, error) {
	res, err := chbulk.Copy(ctx, c, &sliceRowSource{rows: rows}, chbulk.Options{
		Table:       table,
		Columns:     columns,
		BatchSize:   c.opts.BatchSize,
		MaxParallel: c.opts.MaxParallel,
		Logger:      c.log,
	})
	if err != nil {
		return 0, err
	}
	return res.RowsWritten, nil
}

// InsertRawStream posts a pre-formatted stream (the caller picks the wire
// format, e.g. CSV or JSONEachRow) directly as an insert body, with no
// row-level encoding on this side. The body is compressed with the
// client's configured Options.Compression; chbulk batches sent by
// InsertBinary are always gzip regardless of that setting.
func (c *Client) InsertRawStream(ctx context.Context, table string, format string, stream io.Reader, columns []string) error {
	query := "INSERT INTO " + table
	if len(columns) > 0 {
		query += " (" + joinColumns(columns) + ")"
	}
	query += " FORMAT " + format

	raw, err := io.ReadAll(stream)
	if err != nil {
		return errors.Wrap(err, "chclient: read insert stream")
	}
	body, encoding, err := compressBody(raw, c.opts.Compression)
	if err != nil {
		return err
	}

	resp, err := c.tr.request(ctx, query, body, encoding, QueryOptions{})
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, err = io.Copy(io.Discard, resp.Body)
	return err
}

// Ping checks that the endpoint is reachable and answering.
func (c *Client) Ping(ctx context.Context) bool {
	resp, err := c.tr.request(ctx, "SELECT 1", nil, "", QueryOptions{})
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return true
}

// UploadInsert implements chbulk.Uploader: it posts a sealed batch body
// against query, already encoded in the requested encoding (e.g. gzip).
func (c *Client) UploadInsert(ctx context.Context, query string, body io.Reader, encoding string) (int64, error) {
	resp, err := c.tr.request(ctx, query, body, encoding, QueryOptions{})
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	n, err := countSummaryRows(resp)
	if err != nil {
		return 0, err
	}
	return n, nil
}

// DescribeTable implements chbulk.Uploader by running DESCRIBE TABLE and
// parsing each row's declared type text through the shared registry.
func (c *Client) DescribeTable(ctx context.Context, table string) (map[string]*chtype.Type, error) {
	r, err := c.Reader(ctx, "DESCRIBE TABLE "+table, nil, QueryOptions{})
	if err != nil {
		return nil, err
	}
	defer r.Close()

	out := make(map[string]*chtype.Type)
	for r.Read(ctx) {
		name, err := r.GetString(0)
		if err != nil {
			return nil, err
		}
		typeText, err := r.GetString(1)
		if err != nil {
			return nil, err
		}
		t, err := c.reg.Parse(typeText)
		if err != nil {
			return nil, errors.Wrapf(err, "column %q", name)
		}
		out[name] = t
	}
	if err := r.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func mergeSettings(a, b map[string]string) map[string]string {
	out := make(map[string]string, len(a)+len(b))
	for k, v := range a {
		out[k] = v
	}
	for k, v := range b {
		out[k] = v
	}
	return out
}

func joinColumns(columns []string) string {
	var buf bytes.Buffer
	for i, c := range columns {
		if i > 0 {
			buf.WriteString(", ")
		}
		buf.WriteString(c)
	}
	return buf.String()
}

type sliceRowSource struct {
	rows [][]chvalue.Value
	i    int
}

func (s *sliceRowSource) Next(ctx context.Context) ([]chvalue.Value, bool, error) {
	if s.i >= len(s.rows) {
		return nil, false, nil
	}
	row := s.rows[s.i]
	s.i++
	return row, true, nil
}
