package warehouse

import (
	"context"
	"encoding/csv"
	"net/url"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"martflow/internal/dataset"
	"martflow/internal/money"
	"martflow/internal/snowflake"
	"martflow/pkg/errors"
	"martflow/pkg/models"
)

func sampleTables() []dataset.Table {
	d := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	return []dataset.Table{
		{
			Name: "dim_customers",
			Columns: []dataset.Column{
				{Name: "customer_id", Type: dataset.Integer},
				{Name: "name", Type: dataset.Text},
				{Name: "signup_date", Type: dataset.Date},
				{Name: "total_revenue", Type: dataset.Decimal},
			},
			Rows: [][]any{
				{int64(1), "Alice Smith", d, money.MustParse("109.97")},
				{int64(2), "Bob, Jr.", nil, money.MustParse("0.00")},
			},
		},
		{
			Name:    "rpt_sales_summary",
			Columns: []dataset.Column{{Name: "avg_revenue_per_unit", Type: dataset.Decimal}},
			Rows:    [][]any{{nil}},
		},
	}
}

func TestCSVWriter(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	w := NewCSVWriter(dir, zap.NewNop())

	require.NoError(t, w.Write(context.Background(), sampleTables()))
	require.NoError(t, w.Close())

	f, err := os.Open(filepath.Join(dir, "dim_customers.csv"))
	require.NoError(t, err)
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"customer_id", "name", "signup_date", "total_revenue"},
		{"1", "Alice Smith", "2024-03-01", "109.97"},
		{"2", "Bob, Jr.", "", "0.00"},
	}, records)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 2, "no temporary files are left behind")
}

func TestCSVWriterCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := NewCSVWriter(t.TempDir(), zap.NewNop()).Write(ctx, sampleTables())
	assert.Equal(t, errors.ErrCodeCanceled, errors.GetErrorCode(err))
}

func TestXLSXWriter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "marts.xlsx")
	w := NewXLSXWriter(path, zap.NewNop())
	require.NoError(t, w.Write(context.Background(), sampleTables()))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"dim_customers", "rpt_sales_summary"}, f.GetSheetList())

	rows, err := f.GetRows("dim_customers")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"customer_id", "name", "signup_date", "total_revenue"}, rows[0])
	assert.Equal(t, "Alice Smith", rows[1][1])
	assert.Equal(t, "2024-03-01", rows[1][2])
	assert.Equal(t, "109.97", rows[1][3])
}

func TestGormWriterSQLite(t *testing.T) {
	target := models.Target{Type: "sqlite", Path: filepath.Join(t.TempDir(), "db", "martflow.db"), BatchSize: 1}
	w, err := OpenGorm(target, zap.NewNop())
	require.NoError(t, err)
	defer w.Close()

	ctx := context.Background()
	require.NoError(t, w.Write(ctx, sampleTables()))
	// A second write replaces rather than appends.
	require.NoError(t, w.Write(ctx, sampleTables()))

	var count int64
	require.NoError(t, w.DB().Table("dim_customers").Count(&count).Error)
	assert.Equal(t, int64(2), count)

	var row struct {
		Name         string
		TotalRevenue float64
	}
	require.NoError(t, w.DB().Raw(`SELECT name, total_revenue FROM dim_customers WHERE customer_id = ?`, 1).Scan(&row).Error)
	assert.Equal(t, "Alice Smith", row.Name)
	assert.InDelta(t, 109.97, row.TotalRevenue, 0.001)

	var nulls int64
	require.NoError(t, w.DB().Raw(`SELECT COUNT(*) FROM rpt_sales_summary WHERE avg_revenue_per_unit IS NULL`).Scan(&nulls).Error)
	assert.Equal(t, int64(1), nulls)
}

func TestCreateTableSQL(t *testing.T) {
	tbl := sampleTables()[0]

	pg := NewGormWriter(nil, "postgres", 0, nil)
	assert.Equal(t,
		`CREATE TABLE "dim_customers" ("customer_id" BIGINT, "name" TEXT, "signup_date" DATE, "total_revenue" DECIMAL(12,2))`,
		pg.createTableSQL(tbl))
	assert.Equal(t, defaultBatchSize, pg.batchSize)

	lite := NewGormWriter(nil, "sqlite", 10, nil)
	assert.Contains(t, lite.createTableSQL(tbl), `"customer_id" INTEGER`)
}

func TestDialector(t *testing.T) {
	d, err := Dialector(models.Target{Type: "postgres", Host: "localhost", Username: "u", Password: "p", Database: "shop"})
	require.NoError(t, err)
	assert.Equal(t, "postgres", d.Name())

	_, err = Dialector(models.Target{Type: "sqlite"})
	assert.Equal(t, errors.ErrCodeConfigInvalid, errors.GetErrorCode(err))

	_, err = Dialector(models.Target{Type: "csv"})
	assert.Equal(t, errors.ErrCodeUnsupportedTarget, errors.GetErrorCode(err))
}

func TestPostgresDSN(t *testing.T) {
	tests := []struct {
		name     string
		target   models.Target
		password string
		hasPass  bool
		host     string
		sslmode  string
	}{
		{
			name:     "defaults",
			target:   models.Target{Host: "localhost", Username: "u", Password: "p", Database: "shop"},
			password: "p", hasPass: true, host: "localhost:5432", sslmode: "disable",
		},
		{
			name:     "password with separators",
			target:   models.Target{Host: "db", Port: 6543, Username: "mart user", Password: "p w'd@:/?#", Database: "shop", SSLMode: "require"},
			password: "p w'd@:/?#", hasPass: true, host: "db:6543", sslmode: "require",
		},
		{
			name:    "no password",
			target:  models.Target{Host: "db", Username: "u", Database: "shop"},
			host:    "db:5432",
			sslmode: "disable",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u, err := url.Parse(PostgresDSN(tt.target))
			require.NoError(t, err)

			assert.Equal(t, "postgres", u.Scheme)
			assert.Equal(t, tt.host, u.Host)
			assert.Equal(t, "/shop", u.Path)
			assert.Equal(t, tt.target.Username, u.User.Username())
			pw, ok := u.User.Password()
			assert.Equal(t, tt.hasPass, ok)
			assert.Equal(t, tt.password, pw)
			assert.Equal(t, tt.sslmode, u.Query().Get("sslmode"))
			assert.Equal(t, "UTC", u.Query().Get("TimeZone"))
		})
	}
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	w, err := Open(ctx, models.Target{Type: "csv", Path: t.TempDir()}, nil)
	require.NoError(t, err)
	assert.IsType(t, &CSVWriter{}, w)

	w, err = Open(ctx, models.Target{Type: "xlsx", Path: filepath.Join(t.TempDir(), "x.xlsx")}, nil)
	require.NoError(t, err)
	assert.IsType(t, &XLSXWriter{}, w)

	_, err = Open(ctx, models.Target{Type: "bigquery"}, nil)
	assert.Equal(t, errors.ErrCodeUnsupportedTarget, errors.GetErrorCode(err))

	_, err = Open(ctx, models.Target{Type: "snowflake", Account: "acct"}, nil)
	assert.Equal(t, errors.ErrCodeConfigInvalid, errors.GetErrorCode(err), "incomplete snowflake config fails before dialing")

	_, err = Open(ctx, models.Target{Type: "snowflake", Timeout: "soon"}, nil)
	assert.Equal(t, errors.ErrCodeConfigInvalid, errors.GetErrorCode(err))
}

func TestSnowflakeWriter(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	svc := snowflake.NewServiceWithDB(db, snowflake.Config{Schema: "MARTS"}, zap.NewNop())
	w := NewSnowflakeWriter(svc, zap.NewNop())

	tables := sampleTables()
	for range tables {
		mock.ExpectExec("CREATE OR REPLACE TABLE").WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectExec("INSERT INTO").WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("CREATE TABLE IF NOT EXISTS").WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectExec("SWAP WITH").WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectExec("DROP TABLE IF EXISTS").WillReturnResult(sqlmock.NewResult(0, 0))
	}
	mock.ExpectClose()

	require.NoError(t, w.Write(context.Background(), tables))
	require.NoError(t, w.Close())
	assert.NoError(t, mock.ExpectationsWereMet())
}
