package warehouse

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"martflow/internal/common"
	"martflow/internal/dataset"
	"martflow/pkg/errors"
	"martflow/pkg/models"
)

const defaultBatchSize = 500

// GormWriter materializes tables into SQLite or PostgreSQL.
type GormWriter struct {
	db        *gorm.DB
	dialect   string
	batchSize int
	log       *zap.Logger
}

// Dialector picks the gorm driver for a target.
func Dialector(t models.Target) (gorm.Dialector, error) {
	switch t.Type {
	case "postgres":
		return postgres.Open(PostgresDSN(t)), nil
	case "sqlite":
		if t.Path == "" {
			return nil, errors.ConfigError("sqlite target requires a path", "targets.path")
		}
		if err := common.EnsureDir(filepath.Dir(t.Path)); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeFileOperation, "failed to create database directory").
				WithContext("path", t.Path)
		}
		return sqlite.Open(t.Path), nil
	default:
		return nil, errors.New(errors.ErrCodeUnsupportedTarget, fmt.Sprintf("%q is not a SQL target", t.Type))
	}
}

// PostgresDSN renders a postgres:// URL for the target. Credentials are
// percent-encoded, so passwords may hold spaces, quotes or '@'.
func PostgresDSN(t models.Target) string {
	port := t.Port
	if port == 0 {
		port = 5432
	}
	sslmode := t.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}

	u := url.URL{
		Scheme:   "postgres",
		Host:     net.JoinHostPort(t.Host, strconv.Itoa(port)),
		Path:     "/" + t.Database,
		RawQuery: url.Values{"sslmode": {sslmode}, "TimeZone": {"UTC"}}.Encode(),
	}
	if t.Password != "" {
		u.User = url.UserPassword(t.Username, t.Password)
	} else if t.Username != "" {
		u.User = url.User(t.Username)
	}
	return u.String()
}

// OpenGorm connects to a SQLite or PostgreSQL target.
func OpenGorm(t models.Target, log *zap.Logger) (*GormWriter, error) {
	dialector, err := Dialector(t)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: NewGormLogger(log, DefaultGormLoggerConfig()),
	})
	if err != nil {
		return nil, errors.ConnectionError(fmt.Sprintf("failed to open %s target", t.Type), err).
			WithContext("database", t.Database)
	}
	return NewGormWriter(db, t.Type, t.BatchSize, log), nil
}

// NewGormWriter wraps an open connection.
func NewGormWriter(db *gorm.DB, dialect string, batchSize int, log *zap.Logger) *GormWriter {
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &GormWriter{db: db, dialect: dialect, batchSize: batchSize, log: log}
}

// DB exposes the connection, mainly for inspection.
func (w *GormWriter) DB() *gorm.DB {
	return w.db
}

// Write implements Writer. Each table is replaced in its own transaction.
func (w *GormWriter) Write(ctx context.Context, tables []dataset.Table) error {
	for _, t := range tables {
		start := time.Now()
		err := w.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			return w.replace(tx, t)
		})
		if err != nil {
			if ctx.Err() != nil {
				return errors.Wrap(ctx.Err(), errors.ErrCodeCanceled, "write canceled").WithContext("table", t.Name)
			}
			return errors.Wrap(err, errors.ErrCodeSQLTransaction, "failed to materialize table").
				WithContext("table", t.Name).
				WithContext("target", w.dialect)
		}
		w.log.Info("table materialized",
			zap.String("target", w.dialect),
			zap.String("table", t.Name),
			zap.Int("rows", t.Len()),
			zap.Duration("duration", time.Since(start)))
	}
	return nil
}

func (w *GormWriter) replace(tx *gorm.DB, t dataset.Table) error {
	if tx.Migrator().HasTable(t.Name) {
		if err := tx.Migrator().DropTable(t.Name); err != nil {
			return err
		}
	}
	if err := tx.Exec(w.createTableSQL(t)).Error; err != nil {
		return err
	}
	if t.Len() == 0 {
		return nil
	}

	names := t.ColumnNames()
	for start := 0; start < len(t.Rows); start += w.batchSize {
		end := min(start+w.batchSize, len(t.Rows))
		batch := make([]map[string]interface{}, 0, end-start)
		for _, row := range t.Rows[start:end] {
			record := make(map[string]interface{}, len(names))
			for i, name := range names {
				record[name] = row[i]
			}
			batch = append(batch, record)
		}
		if err := tx.Table(t.Name).Create(batch).Error; err != nil {
			return err
		}
	}
	return nil
}

func (w *GormWriter) createTableSQL(t dataset.Table) string {
	cols := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		cols[i] = fmt.Sprintf("%q %s", c.Name, w.columnType(c.Type))
	}
	return fmt.Sprintf("CREATE TABLE %q (%s)", t.Name, strings.Join(cols, ", "))
}

func (w *GormWriter) columnType(t dataset.ColumnType) string {
	switch t {
	case dataset.Integer:
		if w.dialect == "postgres" {
			return "BIGINT"
		}
		return "INTEGER"
	case dataset.Decimal:
		return "DECIMAL(12,2)"
	case dataset.Date:
		return "DATE"
	default:
		return "TEXT"
	}
}

// Close implements Writer.
func (w *GormWriter) Close() error {
	sqlDB, err := w.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
