package manifest

import (
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"martflow/internal/quality"
	"martflow/internal/testutil"
	"martflow/pkg/errors"
)

func fixedClock(times ...time.Time) func() time.Time {
	i := 0
	return func() time.Time {
		t := times[i]
		if i < len(times)-1 {
			i++
		}
		return t
	}
}

func TestManifestLifecycle(t *testing.T) {
	start := time.Date(2024, 3, 31, 12, 0, 0, 0, time.UTC)

	m := New("build", "shop", "local")
	m.now = fixedClock(start.Add(90 * time.Second))
	m.StartedAt = start
	_, err := uuid.Parse(m.RunID)
	require.NoError(t, err)

	res := testutil.DemoResults(t)
	m.RecordModels(res, []string{"dim_customers", "fct_daily_sales", "rpt_sales_summary"})

	require.Len(t, m.Models, 8, "every computed model, raw seeds excluded")
	assert.Equal(t, "stg_customers", m.Models[0].Name)
	assert.Equal(t, "staging", m.Models[0].Layer)
	assert.Equal(t, 6, m.Models[0].Rows)
	assert.False(t, m.Models[0].Materialized)

	last := m.Models[len(m.Models)-1]
	assert.Equal(t, "rpt_sales_summary", last.Name)
	assert.Equal(t, 1, last.Rows)
	assert.True(t, last.Materialized)

	report := quality.Suite(res, quality.Options{AsOf: start, Skip: []string{"assert_single_summary_row"}})
	m.RecordTests(report)
	require.NotNil(t, m.Tests)
	assert.Equal(t, 26, m.Tests.Total)
	assert.Equal(t, 26, m.Tests.Passed)
	assert.Equal(t, 1, m.Tests.Skipped)
	assert.Empty(t, m.Tests.Failures)

	m.Finish(nil)
	assert.Equal(t, StatusSuccess, m.Status)
	assert.Equal(t, 90.0, m.Elapsed)

	path := filepath.Join(t.TempDir(), "target", "run_results.json")
	require.NoError(t, m.Write(path))

	loaded, err := Read(path)
	require.NoError(t, err)
	assert.Equal(t, m.RunID, loaded.RunID)
	assert.Equal(t, m.Models, loaded.Models)
	assert.Equal(t, *m.Tests, *loaded.Tests)
	assert.True(t, start.Equal(loaded.StartedAt))
}

func TestFinishStatus(t *testing.T) {
	m := New("test", "shop", "local")
	m.Tests = &TestSummary{Failed: 1}
	m.Finish(nil)
	assert.Equal(t, StatusTestsFailed, m.Status)

	m.Finish(errors.New(errors.ErrCodeTestFailed, "2 data-quality tests failed"))
	assert.Equal(t, StatusTestsFailed, m.Status)
	assert.Empty(t, m.Error)

	m.Finish(fmt.Errorf("connection refused"))
	assert.Equal(t, StatusError, m.Status)
	assert.Equal(t, "connection refused", m.Error)
}

func TestRecordTestsListsFailures(t *testing.T) {
	rep := &quality.Report{Results: []quality.Result{
		{Name: "unique_stg_orders_order_id", Severity: quality.SeverityError, Failures: []quality.Failure{{Key: "1001"}, {Key: "1002"}}},
		{Name: "assert_no_future_orders", Severity: quality.SeverityWarn, Failures: []quality.Failure{{Key: "1010"}}},
		{Name: "not_null_stg_customers_email", Severity: quality.SeverityError},
	}}

	m := New("test", "shop", "local")
	m.RecordTests(rep)
	assert.Equal(t, 1, m.Tests.Failed)
	assert.Equal(t, 1, m.Tests.Warned)
	assert.Equal(t, 1, m.Tests.Passed)
	assert.Equal(t, []TestFailure{
		{Name: "assert_no_future_orders", Severity: "warn", Count: 1},
		{Name: "unique_stg_orders_order_id", Severity: "error", Count: 2},
	}, m.Tests.Failures)
}

func TestReadMissing(t *testing.T) {
	_, err := Read(filepath.Join(t.TempDir(), "run_results.json"))
	assert.Equal(t, errors.ErrCodeFileNotFound, errors.GetErrorCode(err))
}

func TestDetectRevisionOutsideRepository(t *testing.T) {
	m := New("run", "shop", "local")
	require.NoError(t, m.DetectRevision(t.TempDir()))
	assert.Nil(t, m.Revision)
}
