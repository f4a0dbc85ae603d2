package chclient

import (
	"time"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Options configures a Client's connection and default request behavior.
// Per-call options (see QueryOptions) override these where they overlap.
type Options struct {
	Addr     string `validate:"required,url"`
	Database string `validate:"required"`
	User     string
	Password string

	// Compression names the Content-Encoding used for InsertRawStream
	// bodies: "gzip", "lz4", "br", or "" for none. InsertBinary batches
	// are always gzip.
	Compression string `validate:"omitempty,oneof=gzip lz4 br"`

	RequestTimeout time.Duration `validate:"omitempty,min=0"`

	BatchSize   int `validate:"omitempty,min=1"`
	MaxParallel int `validate:"omitempty,min=1"`

	// ServerSettings are appended as query-string setting overrides on
	// every request this client issues.
	ServerSettings map[string]string
}

func (o Options) validate() error {
	return validate.Struct(o)
}

func (o Options) withDefaults() Options {
	if o.RequestTimeout == 0 {
		o.RequestTimeout = 30 * time.Second
	}
	if o.BatchSize == 0 {
		o.BatchSize = 10_000
	}
	if o.MaxParallel == 0 {
		o.MaxParallel = 4
	}
	return o
}

// QueryOptions overrides Client-level defaults for a single call. A zero
// value applies no overrides.
type QueryOptions struct {
	Settings map[string]string
	QueryID  string
}
