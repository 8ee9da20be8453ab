// Package warehouse materializes tables to a configured target. Every
// write is a full refresh: existing tables are dropped and recreated.
package warehouse

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"martflow/internal/dataset"
	"martflow/internal/snowflake"
	"martflow/pkg/errors"
	"martflow/pkg/models"
)

// Writer materializes tables.
type Writer interface {
	Write(ctx context.Context, tables []dataset.Table) error
	Close() error
}

// Open builds the writer for a target. The target password must already be
// resolved.
func Open(ctx context.Context, target models.Target, log *zap.Logger) (Writer, error) {
	if log == nil {
		log = zap.NewNop()
	}

	switch target.Type {
	case "csv":
		return NewCSVWriter(target.Path, log), nil
	case "xlsx":
		return NewXLSXWriter(target.Path, log), nil
	case "sqlite", "postgres":
		return OpenGorm(target, log)
	case "snowflake":
		cfg, err := snowflakeConfig(target)
		if err != nil {
			return nil, err
		}
		svc := snowflake.NewService(cfg, log)
		if err := svc.Connect(ctx); err != nil {
			return nil, err
		}
		return &SnowflakeWriter{svc: svc, log: log}, nil
	default:
		return nil, errors.New(errors.ErrCodeUnsupportedTarget, fmt.Sprintf("unsupported target type %q", target.Type)).
			WithSuggestions("Use one of: csv, xlsx, sqlite, postgres, snowflake")
	}
}

func parseTimeout(raw string) (time.Duration, error) {
	if raw == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, errors.ConfigError(fmt.Sprintf("invalid target timeout %q", raw), "targets.timeout")
	}
	return d, nil
}

func snowflakeConfig(t models.Target) (snowflake.Config, error) {
	timeout, err := parseTimeout(t.Timeout)
	if err != nil {
		return snowflake.Config{}, err
	}
	return snowflake.Config{
		Account:   t.Account,
		Username:  t.Username,
		Password:  t.Password,
		Database:  t.Database,
		Schema:    t.Schema,
		Warehouse: t.Warehouse,
		Role:      t.Role,
		Timeout:   timeout,
		BatchSize: t.BatchSize,
	}, nil
}

// SnowflakeWriter replaces each table in a Snowflake schema.
type SnowflakeWriter struct {
	svc *snowflake.Service
	log *zap.Logger
}

// NewSnowflakeWriter wraps a connected service.
func NewSnowflakeWriter(svc *snowflake.Service, log *zap.Logger) *SnowflakeWriter {
	return &SnowflakeWriter{svc: svc, log: log}
}

// Write implements Writer.
func (w *SnowflakeWriter) Write(ctx context.Context, tables []dataset.Table) error {
	for _, t := range tables {
		if err := w.svc.ReplaceTable(ctx, t); err != nil {
			return err
		}
		w.log.Info("table materialized", zap.String("target", "snowflake"), zap.String("table", t.Name), zap.Int("rows", t.Len()))
	}
	return nil
}

// Close implements Writer.
func (w *SnowflakeWriter) Close() error {
	return w.svc.Close()
}
