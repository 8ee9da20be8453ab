// Package manifest records what a run did in run_results.json. It is the
// only place run timestamps are kept; materialized tables carry none.
package manifest

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"

	"martflow/internal/common"
	"martflow/internal/git"
	"martflow/internal/pipeline"
	"martflow/internal/quality"
	"martflow/pkg/errors"
)

// Run outcomes.
const (
	StatusSuccess     = "success"
	StatusTestsFailed = "tests_failed"
	StatusError       = "error"
)

// Manifest is the content of run_results.json.
type Manifest struct {
	RunID      string        `json:"run_id"`
	Command    string        `json:"command"`
	Project    string        `json:"project"`
	Target     string        `json:"target"`
	Status     string        `json:"status"`
	Error      string        `json:"error,omitempty"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`
	Elapsed    float64       `json:"elapsed_seconds"`
	Revision   *git.Revision `json:"revision,omitempty"`
	Models     []ModelResult `json:"models"`
	Tests      *TestSummary  `json:"tests,omitempty"`

	now func() time.Time
}

// ModelResult describes one built model.
type ModelResult struct {
	Name         string  `json:"name"`
	Layer        string  `json:"layer"`
	Rows         int     `json:"rows"`
	DurationMs   float64 `json:"duration_ms"`
	Materialized bool    `json:"materialized"`
}

// TestSummary condenses a quality report.
type TestSummary struct {
	Total    int           `json:"total"`
	Passed   int           `json:"passed"`
	Warned   int           `json:"warned"`
	Failed   int           `json:"failed"`
	Skipped  int           `json:"skipped"`
	Failures []TestFailure `json:"failures,omitempty"`
}

// TestFailure is a test that found offending rows.
type TestFailure struct {
	Name     string `json:"name"`
	Severity string `json:"severity"`
	Count    int    `json:"count"`
}

// New starts a manifest for a command.
func New(command, project, target string) *Manifest {
	m := &Manifest{
		RunID:   uuid.NewString(),
		Command: command,
		Project: project,
		Target:  target,
		Models:  []ModelResult{},
		now:     func() time.Time { return time.Now().UTC() },
	}
	m.StartedAt = m.now()
	return m
}

// DetectRevision records the git revision of dir, when it is a repository.
func (m *Manifest) DetectRevision(dir string) error {
	rev, err := git.CurrentRevision(dir)
	if err != nil {
		return err
	}
	m.Revision = rev
	return nil
}

// RecordModels adds every model the pipeline built, in DAG order.
func (m *Manifest) RecordModels(res *pipeline.Results, materialized []string) {
	written := make(map[string]bool, len(materialized))
	for _, name := range materialized {
		written[name] = true
	}

	m.Models = m.Models[:0]
	for _, node := range pipeline.Models {
		elapsed, built := res.Timings[node.Name]
		if !built && !written[node.Name] {
			continue
		}
		rows := 0
		if t, ok := res.Table(node.Name); ok {
			rows = t.Len()
		}
		m.Models = append(m.Models, ModelResult{
			Name:         node.Name,
			Layer:        string(node.Layer),
			Rows:         rows,
			DurationMs:   float64(elapsed.Microseconds()) / 1000,
			Materialized: written[node.Name],
		})
	}
}

// RecordTests summarizes a quality report.
func (m *Manifest) RecordTests(rep *quality.Report) {
	s := &TestSummary{
		Total:   len(rep.Results),
		Passed:  rep.Count(quality.StatusPass),
		Warned:  rep.Count(quality.StatusWarn),
		Failed:  rep.Count(quality.StatusFail),
		Skipped: len(rep.Skipped),
	}
	for _, r := range rep.Results {
		if len(r.Failures) == 0 {
			continue
		}
		s.Failures = append(s.Failures, TestFailure{Name: r.Name, Severity: string(r.Severity), Count: len(r.Failures)})
	}
	sort.Slice(s.Failures, func(i, j int) bool { return s.Failures[i].Name < s.Failures[j].Name })
	m.Tests = s
}

// Finish stamps the end time and derives the status.
func (m *Manifest) Finish(err error) {
	m.FinishedAt = m.now()
	m.Elapsed = m.FinishedAt.Sub(m.StartedAt).Seconds()

	switch {
	case errors.IsCode(err, errors.ErrCodeTestFailed):
		m.Status = StatusTestsFailed
	case err != nil:
		m.Status = StatusError
		m.Error = err.Error()
	case m.Tests != nil && m.Tests.Failed > 0:
		m.Status = StatusTestsFailed
	default:
		m.Status = StatusSuccess
	}
}

// Write stores the manifest as indented JSON, replacing any previous one.
func (m *Manifest) Write(path string) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to encode manifest")
	}

	dir := filepath.Dir(path)
	if err := common.EnsureDir(dir); err != nil {
		return errors.Wrap(err, errors.ErrCodeFileOperation, "failed to create manifest directory").
			WithContext("path", dir)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, append(data, '\n'), common.FilePermissionNormal); err != nil {
		return errors.Wrap(err, errors.ErrCodeFileOperation, "failed to write manifest").
			WithContext("path", path)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return errors.Wrap(err, errors.ErrCodeFileOperation, "failed to write manifest").
			WithContext("path", path)
	}
	return nil
}

// Read loads a manifest written by Write.
func Read(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(err, errors.ErrCodeFileNotFound, "no run results found").
				WithContext("path", path).
				WithSuggestions("Run 'martflow run' or 'martflow build' first")
		}
		return nil, errors.Wrap(err, errors.ErrCodeFileOperation, "failed to read manifest")
	}
	m := &Manifest{}
	if err := json.Unmarshal(data, m); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeFileOperation, "manifest is not valid JSON").
			WithContext("path", path)
	}
	return m, nil
}
