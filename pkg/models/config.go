package models

// Config is the content of martflow.yaml.
type Config struct {
	Project  string            `yaml:"project" mapstructure:"project"`
	Sources  Sources           `yaml:"sources" mapstructure:"sources"`
	Pipeline Pipeline          `yaml:"pipeline" mapstructure:"pipeline"`
	Segments []Segment         `yaml:"segments" mapstructure:"segments"`
	Tests    Tests             `yaml:"tests" mapstructure:"tests"`
	Target   string            `yaml:"target" mapstructure:"target"`
	Targets  map[string]Target `yaml:"targets" mapstructure:"targets"`
	Logging  Logging           `yaml:"logging" mapstructure:"logging"`
	Metrics  Metrics           `yaml:"metrics" mapstructure:"metrics"`
	Manifest Manifest          `yaml:"manifest" mapstructure:"manifest"`
}

// Sources locates the three raw tables.
type Sources struct {
	Format string `yaml:"format" mapstructure:"format"` // "embedded", "csv", "xlsx"
	Path   string `yaml:"path" mapstructure:"path"`     // directory for csv, workbook for xlsx
}

// Pipeline tunes a run.
type Pipeline struct {
	Parallel bool   `yaml:"parallel" mapstructure:"parallel"` // run the customer and sales branches concurrently
	AsOf     string `yaml:"as_of" mapstructure:"as_of"`       // ingestion date, YYYY-MM-DD; empty means today
	Timeout  string `yaml:"timeout" mapstructure:"timeout"`   // e.g. "5m"
}

// Segment is one revenue tier. Segments are ordered from the highest
// threshold down; the last one has no threshold and catches the rest.
type Segment struct {
	Name       string `yaml:"name" mapstructure:"name"`
	MinRevenue string `yaml:"min_revenue,omitempty" mapstructure:"min_revenue"`
}

// Tests configures the data-quality suite.
type Tests struct {
	Warn []string `yaml:"warn,omitempty" mapstructure:"warn"` // test names downgraded to warnings
	Skip []string `yaml:"skip,omitempty" mapstructure:"skip"`
}

// Target is a materialization destination.
type Target struct {
	Type      string `yaml:"type" mapstructure:"type"` // "csv", "xlsx", "sqlite", "postgres", "snowflake"
	Path      string `yaml:"path,omitempty" mapstructure:"path"`
	Host      string `yaml:"host,omitempty" mapstructure:"host"`
	Port      int    `yaml:"port,omitempty" mapstructure:"port"`
	Account   string `yaml:"account,omitempty" mapstructure:"account"`
	Username  string `yaml:"username,omitempty" mapstructure:"username"`
	Password  string `yaml:"password,omitempty" mapstructure:"password"`
	Database  string `yaml:"database,omitempty" mapstructure:"database"`
	Schema    string `yaml:"schema,omitempty" mapstructure:"schema"`
	Warehouse string `yaml:"warehouse,omitempty" mapstructure:"warehouse"`
	Role      string `yaml:"role,omitempty" mapstructure:"role"`
	SSLMode   string `yaml:"sslmode,omitempty" mapstructure:"sslmode"`
	Timeout   string `yaml:"timeout,omitempty" mapstructure:"timeout"`
	BatchSize int    `yaml:"batch_size,omitempty" mapstructure:"batch_size"`
}

// Logging configures the zap logger.
type Logging struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"` // "console" or "json"
}

// Metrics configures Prometheus output.
type Metrics struct {
	Textfile string `yaml:"textfile,omitempty" mapstructure:"textfile"` // node-exporter textfile path
}

// Manifest configures run_results.json.
type Manifest struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	Path    string `yaml:"path" mapstructure:"path"`
}

// ActiveTarget returns the selected target and its name.
func (c *Config) ActiveTarget() (string, Target, bool) {
	t, ok := c.Targets[c.Target]
	return c.Target, t, ok
}
