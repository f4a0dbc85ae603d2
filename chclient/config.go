package chclient

import (
	"go.uber.org/zap"

	"chnative/chtype"
	"chnative/internal/chconfig"
)

// NewFromSettings builds a Client from a loaded chconfig.Settings, the
// YAML-driven counterpart to constructing an Options value by hand.
func NewFromSettings(s *chconfig.Settings, reg *chtype.Registry, logger *zap.Logger) (*Client, error) {
	return New(settingsToOptions(s), reg, logger)
}

func settingsToOptions(s *chconfig.Settings) Options {
	return Options{
		Addr:           s.Addr,
		Database:       s.Database,
		User:           s.User,
		Password:       s.Password,
		Compression:    s.Compression,
		BatchSize:      s.Batch.BatchSize,
		MaxParallel:    s.Batch.MaxParallel,
		ServerSettings: s.ServerSettings,
	}
}
