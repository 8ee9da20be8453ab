// Package snowflake materializes tables into a Snowflake schema over
// database/sql with the gosnowflake driver.
package snowflake

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	sf "github.com/snowflakedb/gosnowflake"
	"go.uber.org/zap"

	"martflow/internal/dataset"
	"martflow/pkg/errors"
)

// DefaultBatchSize is the number of rows per INSERT statement.
const DefaultBatchSize = 500

// Service provides the Snowflake operations a full refresh needs.
type Service struct {
	db        *sql.DB
	config    Config
	connected bool
	log       *zap.Logger
	retry     *errors.RetryConfig
}

// Config holds Snowflake connection configuration
type Config struct {
	Account   string
	Username  string
	Password  string
	Database  string
	Schema    string
	Warehouse string
	Role      string
	Timeout   time.Duration
	BatchSize int
}

// NewService creates a new Snowflake service
func NewService(config Config, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	retry := errors.DefaultRetryConfig()
	retry.OnRetry = func(attempt int, delay time.Duration, err error) {
		log.Warn("snowflake connect failed, retrying",
			zap.Int("attempt", attempt),
			zap.Duration("delay", delay),
			zap.Error(err),
		)
	}
	return &Service{config: config, log: log, retry: retry}
}

// NewServiceWithDB wraps an open database handle. Used with sqlmock.
func NewServiceWithDB(db *sql.DB, config Config, log *zap.Logger) *Service {
	s := NewService(config, log)
	s.db = db
	s.connected = true
	return s
}

// DSN renders the gosnowflake connection string.
func DSN(config Config) (string, error) {
	return sf.DSN(&sf.Config{
		Account:   config.Account,
		User:      config.Username,
		Password:  config.Password,
		Database:  config.Database,
		Schema:    config.Schema,
		Warehouse: config.Warehouse,
		Role:      config.Role,
	})
}

// Connect establishes a connection, retrying transient failures.
func (s *Service) Connect(ctx context.Context) error {
	if s.connected {
		return nil
	}
	if err := ValidateConfig(s.config); err != nil {
		return errors.Wrap(err, errors.ErrCodeConfigInvalid, "incomplete snowflake target")
	}

	dsn, err := DSN(s.config)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeConfigInvalid, "cannot build snowflake DSN")
	}

	return errors.Retry(ctx, s.retry, func(ctx context.Context) error {
		db, err := sql.Open("snowflake", dsn)
		if err != nil {
			return errors.ConnectionError("Failed to open Snowflake connection", err).
				WithContext("account", s.config.Account).
				WithContext("warehouse", s.config.Warehouse)
		}

		db.SetMaxOpenConns(4)
		db.SetConnMaxLifetime(10 * time.Minute)

		pingCtx, cancel := s.withTimeout(ctx)
		defer cancel()

		if err := db.PingContext(pingCtx); err != nil {
			_ = db.Close()

			if strings.Contains(strings.ToLower(err.Error()), "authentication") ||
				strings.Contains(strings.ToLower(err.Error()), "incorrect username or password") {
				return errors.New(errors.ErrCodeAuthenticationFailed, "Authentication failed").
					WithContext("user", s.config.Username).
					WithSuggestions(
						"Verify your username and password",
						"Run 'martflow auth set <target>' to store the password in the keyring",
					)
			}

			return errors.ConnectionError("Failed to connect to Snowflake", err).
				WithContext("account", s.config.Account).
				AsRecoverable()
		}

		s.db = db
		s.connected = true
		s.log.Debug("connected to snowflake",
			zap.String("account", s.config.Account),
			zap.String("database", s.config.Database),
			zap.String("schema", s.config.Schema),
		)
		return nil
	})
}

// Close closes the database connection
func (s *Service) Close() error {
	if !s.connected {
		return nil
	}
	s.connected = false
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close connection: %w", err)
	}
	return nil
}

// ReplaceTable loads rows into a side table and swaps it with the target.
// Snowflake commits DDL implicitly, so the target is only touched by the
// final SWAP and a failed load leaves it as it was.
func (s *Service) ReplaceTable(ctx context.Context, table dataset.Table) error {
	if !s.connected {
		return errors.New(errors.ErrCodeConnectionFailed, "Not connected to database").
			WithSuggestions("Call Connect() before writing tables")
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	target := s.qualify(table.Name)
	load := s.qualify(table.Name + LoadSuffix)

	if err := s.exec(ctx, table.Name, CreateTableSQL(load, table.Columns)); err != nil {
		return err
	}
	if err := s.insertRows(ctx, load, table); err != nil {
		s.dropQuietly(ctx, load)
		return err
	}

	for _, stmt := range []string{
		CreateIfMissingSQL(target, table.Columns),
		SwapSQL(load, target),
		DropSQL(load),
	} {
		if err := s.exec(ctx, table.Name, stmt); err != nil {
			return err
		}
	}

	s.log.Debug("table replaced", zap.String("table", table.Name), zap.Int("rows", len(table.Rows)))
	return nil
}

func (s *Service) insertRows(ctx context.Context, qualified string, table dataset.Table) error {
	batch := s.config.BatchSize
	if batch <= 0 {
		batch = DefaultBatchSize
	}

	for start := 0; start < len(table.Rows); start += batch {
		end := start + batch
		if end > len(table.Rows) {
			end = len(table.Rows)
		}
		rows := table.Rows[start:end]

		query := InsertSQL(qualified, table.ColumnNames(), len(rows))
		args := make([]any, 0, len(rows)*len(table.Columns))
		for _, row := range rows {
			args = append(args, bindRow(row)...)
		}

		if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
			return errors.SQLError(fmt.Sprintf("Failed to insert into %s", table.Name), query, err).
				WithContext("table", table.Name).
				WithContext("first_row", start)
		}
	}
	return nil
}

func (s *Service) exec(ctx context.Context, table, stmt string) error {
	if _, err := s.db.ExecContext(ctx, stmt); err != nil {
		return errors.SQLError(fmt.Sprintf("Failed to replace table %s", table), stmt, err).
			WithContext("table", table)
	}
	return nil
}

func (s *Service) dropQuietly(ctx context.Context, qualified string) {
	if _, err := s.db.ExecContext(ctx, DropSQL(qualified)); err != nil {
		s.log.Warn("could not drop load table", zap.String("table", qualified), zap.Error(err))
	}
}

func (s *Service) qualify(name string) string {
	if s.config.Schema == "" {
		return quote(name)
	}
	return quote(s.config.Schema) + "." + quote(name)
}

func (s *Service) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	timeout := s.config.Timeout
	if timeout == 0 {
		timeout = 5 * time.Minute
	}
	return context.WithTimeout(ctx, timeout)
}

// LoadSuffix names the side table a load writes before the swap.
const LoadSuffix = "__load"

// CreateTableSQL renders CREATE OR REPLACE TABLE for the columns.
func CreateTableSQL(qualified string, columns []dataset.Column) string {
	return fmt.Sprintf("CREATE OR REPLACE TABLE %s (%s)", qualified, columnDefs(columns))
}

// CreateIfMissingSQL renders CREATE TABLE IF NOT EXISTS, giving the first
// swap a partner.
func CreateIfMissingSQL(qualified string, columns []dataset.Column) string {
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", qualified, columnDefs(columns))
}

// SwapSQL exchanges two tables atomically.
func SwapSQL(load, target string) string {
	return fmt.Sprintf("ALTER TABLE %s SWAP WITH %s", load, target)
}

// DropSQL renders DROP TABLE IF EXISTS.
func DropSQL(qualified string) string {
	return "DROP TABLE IF EXISTS " + qualified
}

func columnDefs(columns []dataset.Column) string {
	defs := make([]string, len(columns))
	for i, c := range columns {
		defs[i] = quote(c.Name) + " " + columnType(c.Type)
	}
	return strings.Join(defs, ", ")
}

// InsertSQL renders a multi-row INSERT with positional placeholders.
func InsertSQL(qualified string, columns []string, rows int) string {
	quoted := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = quote(c)
	}
	tuple := "(" + strings.TrimSuffix(strings.Repeat("?, ", len(columns)), ", ") + ")"
	tuples := make([]string, rows)
	for i := range tuples {
		tuples[i] = tuple
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES %s", qualified, strings.Join(quoted, ", "), strings.Join(tuples, ", "))
}

func columnType(t dataset.ColumnType) string {
	switch t {
	case dataset.Integer:
		return "NUMBER(38,0)"
	case dataset.Decimal:
		return "NUMBER(12,2)"
	case dataset.Date:
		return "DATE"
	default:
		return "VARCHAR"
	}
}

// quote upper-cases an identifier and wraps it in double quotes, matching
// how Snowflake stores unquoted names.
func quote(ident string) string {
	return `"` + strings.ReplaceAll(strings.ToUpper(ident), `"`, `""`) + `"`
}

// bindRow converts row values to driver arguments. Decimals and dates are
// bound as text so no precision is lost.
func bindRow(row []any) []any {
	out := make([]any, len(row))
	for i, v := range row {
		if v == nil {
			out[i] = nil
			continue
		}
		switch v.(type) {
		case int64, string:
			out[i] = v
		default:
			out[i] = dataset.Format(v)
		}
	}
	return out
}

// ValidateConfig validates the Snowflake configuration
func ValidateConfig(config Config) error {
	if config.Account == "" {
		return fmt.Errorf("account is required")
	}
	if config.Username == "" {
		return fmt.Errorf("username is required")
	}
	if config.Password == "" {
		return fmt.Errorf("password is required")
	}
	if config.Database == "" {
		return fmt.Errorf("database is required")
	}
	if config.Warehouse == "" {
		return fmt.Errorf("warehouse is required")
	}
	return nil
}
