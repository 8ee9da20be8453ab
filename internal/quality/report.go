package quality

import (
	"sort"
)

// Report is the outcome of a suite run. Results keep suite order; skipped
// tests are listed by name only.
type Report struct {
	Results []Result
	Skipped []string
}

func newReport(results []Result, opts Options) *Report {
	warn := toSet(opts.Warn)
	skip := toSet(opts.Skip)

	r := &Report{}
	for _, res := range results {
		if skip[res.Name] {
			r.Skipped = append(r.Skipped, res.Name)
			continue
		}
		if warn[res.Name] {
			res.Severity = SeverityWarn
		}
		r.Results = append(r.Results, res)
	}
	sort.Strings(r.Skipped)
	return r
}

func toSet(names []string) map[string]bool {
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[n] = true
	}
	return set
}

// Count returns how many tests ended with status s.
func (r *Report) Count(s Status) int {
	n := 0
	for _, res := range r.Results {
		if res.Status() == s {
			n++
		}
	}
	return n
}

// Failed reports whether any error-severity test failed.
func (r *Report) Failed() bool {
	return r.Count(StatusFail) > 0
}

// Find returns the result of the named test.
func (r *Report) Find(name string) (Result, bool) {
	for _, res := range r.Results {
		if res.Name == name {
			return res, true
		}
	}
	return Result{}, false
}

// Names lists every test the suite evaluated, skipped ones included.
func (r *Report) Names() []string {
	names := make([]string, 0, len(r.Results)+len(r.Skipped))
	for _, res := range r.Results {
		names = append(names, res.Name)
	}
	return append(names, r.Skipped...)
}
