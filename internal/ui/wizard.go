package ui

import (
	"fmt"
	"strconv"

	"github.com/AlecAivazis/survey/v2"
	"github.com/AlecAivazis/survey/v2/terminal"

	"martflow/internal/config"
	"martflow/pkg/errors"
	"martflow/pkg/models"
)

// ErrWizardCancelled is returned when the user aborts the wizard.
var ErrWizardCancelled = errors.New(errors.ErrCodeCanceled, "configuration cancelled")

type (
	askFunc    func(qs []*survey.Question, response interface{}, opts ...survey.AskOpt) error
	askOneFunc func(p survey.Prompt, response interface{}, opts ...survey.AskOpt) error
)

// ProjectAnswers is the first wizard step.
type ProjectAnswers struct {
	Project      string `survey:"project"`
	SourceFormat string `survey:"source_format"`
	SourcePath   string `survey:"source_path"`
	Parallel     bool   `survey:"parallel"`
}

// TargetAnswers is the second wizard step. Only the fields relevant to the
// chosen type are asked.
type TargetAnswers struct {
	Name      string `survey:"name"`
	Type      string `survey:"type"`
	Path      string `survey:"path"`
	Host      string `survey:"host"`
	Port      string `survey:"port"`
	Database  string `survey:"database"`
	Username  string `survey:"username"`
	Account   string `survey:"account"`
	Warehouse string `survey:"warehouse"`
	Schema    string `survey:"schema"`
	Role      string `survey:"role"`
}

// InitResult is what the wizard collected. The password never goes into
// the config file; the caller stores it in the keyring.
type InitResult struct {
	Config     *models.Config
	TargetName string
	Password   string
}

// InitWizard asks for a project configuration with survey prompts.
type InitWizard struct {
	currentStep int
	totalSteps  int
	ask         askFunc
	askOne      askOneFunc
}

// NewInitWizard creates a wizard bound to the terminal.
func NewInitWizard() *InitWizard {
	return &InitWizard{currentStep: 1, totalSteps: 3, ask: survey.Ask, askOne: survey.AskOne}
}

// Run executes the wizard.
func (w *InitWizard) Run() (*InitResult, error) {
	ShowHeader("martflow - project setup")

	project, err := w.projectStep()
	if err != nil {
		return nil, cancelled(err)
	}
	target, err := w.targetStep()
	if err != nil {
		return nil, cancelled(err)
	}

	res := &InitResult{Config: BuildConfig(project, target), TargetName: target.Name}

	if target.Type == "postgres" || target.Type == "snowflake" {
		prompt := &survey.Password{
			Message: "Password:",
			Help:    "Stored in the OS keyring, never in martflow.yaml. Leave empty to use MARTFLOW_PASSWORD.",
		}
		if err := w.askOne(prompt, &res.Password); err != nil {
			return nil, cancelled(err)
		}
	}

	if err := w.review(res); err != nil {
		return nil, cancelled(err)
	}
	return res, nil
}

func cancelled(err error) error {
	if err == terminal.InterruptErr {
		return ErrWizardCancelled
	}
	return err
}

func (w *InitWizard) projectStep() (*ProjectAnswers, error) {
	w.showProgress("Project")

	answers := &ProjectAnswers{}
	questions := []*survey.Question{
		{
			Name:     "project",
			Prompt:   &survey.Input{Message: "Project name:", Default: config.Default().Project},
			Validate: survey.Required,
		},
		{
			Name: "source_format",
			Prompt: &survey.Select{
				Message: "Raw data source:",
				Options: []string{"embedded", "csv", "xlsx"},
				Default: "embedded",
				Help:    "embedded uses the bundled demo seeds",
			},
		},
		{
			Name: "parallel",
			Prompt: &survey.Confirm{
				Message: "Build independent models in parallel?",
				Default: true,
			},
		},
	}
	if err := w.ask(questions, answers); err != nil {
		return nil, err
	}

	if answers.SourceFormat != "embedded" {
		help := "Directory holding raw_customers.csv, raw_orders.csv and raw_products.csv"
		def := "seeds"
		if answers.SourceFormat == "xlsx" {
			help = "Workbook with raw_customers, raw_orders and raw_products sheets"
			def = "seeds.xlsx"
		}
		q := []*survey.Question{{
			Name:     "source_path",
			Prompt:   &survey.Input{Message: "Source path:", Default: def, Help: help},
			Validate: survey.Required,
		}}
		if err := w.ask(q, answers); err != nil {
			return nil, err
		}
	}

	w.currentStep++
	return answers, nil
}

func (w *InitWizard) targetStep() (*TargetAnswers, error) {
	w.showProgress("Target")

	answers := &TargetAnswers{}
	questions := []*survey.Question{
		{
			Name:     "name",
			Prompt:   &survey.Input{Message: "Target name:", Default: "dev"},
			Validate: survey.Required,
		},
		{
			Name: "type",
			Prompt: &survey.Select{
				Message: "Target type:",
				Options: []string{"sqlite", "postgres", "snowflake", "csv", "xlsx"},
				Default: "sqlite",
			},
		},
	}
	if err := w.ask(questions, answers); err != nil {
		return nil, err
	}

	if err := w.ask(targetQuestions(answers.Type), answers); err != nil {
		return nil, err
	}

	w.currentStep++
	return answers, nil
}

func required(name, message, def string) *survey.Question {
	return &survey.Question{
		Name:     name,
		Prompt:   &survey.Input{Message: message, Default: def},
		Validate: survey.Required,
	}
}

func targetQuestions(targetType string) []*survey.Question {
	switch targetType {
	case "csv":
		return []*survey.Question{required("path", "Output directory:", "target/csv")}
	case "xlsx":
		return []*survey.Question{required("path", "Workbook path:", "target/marts.xlsx")}
	case "postgres":
		return []*survey.Question{
			required("host", "Host:", "localhost"),
			{
				Name:   "port",
				Prompt: &survey.Input{Message: "Port:", Default: "5432"},
				Validate: func(val interface{}) error {
					s, _ := val.(string)
					if _, err := strconv.Atoi(s); err != nil {
						return fmt.Errorf("port must be a number")
					}
					return nil
				},
			},
			required("database", "Database:", "analytics"),
			required("username", "Username:", "postgres"),
		}
	case "snowflake":
		return []*survey.Question{
			required("account", "Account:", ""),
			required("username", "Username:", ""),
			required("database", "Database:", "ANALYTICS"),
			required("schema", "Schema:", "MARTS"),
			required("warehouse", "Warehouse:", "COMPUTE_WH"),
			{Name: "role", Prompt: &survey.Input{Message: "Role:", Default: "TRANSFORMER"}},
		}
	default:
		return []*survey.Question{required("path", "Database file:", "target/martflow.db")}
	}
}

// BuildConfig turns wizard answers into a configuration built on the
// defaults.
func BuildConfig(p *ProjectAnswers, t *TargetAnswers) *models.Config {
	cfg := config.Default()
	cfg.Project = p.Project
	cfg.Sources = models.Sources{Format: p.SourceFormat, Path: p.SourcePath}
	cfg.Pipeline.Parallel = p.Parallel

	port, _ := strconv.Atoi(t.Port)
	cfg.Target = t.Name
	cfg.Targets = map[string]models.Target{
		t.Name: {
			Type:      t.Type,
			Path:      t.Path,
			Host:      t.Host,
			Port:      port,
			Database:  t.Database,
			Username:  t.Username,
			Account:   t.Account,
			Warehouse: t.Warehouse,
			Schema:    t.Schema,
			Role:      t.Role,
		},
	}
	return cfg
}

func (w *InitWizard) review(res *InitResult) error {
	w.showProgress("Review")

	cfg := res.Config
	PrintKeyValue("Project", cfg.Project)
	source := cfg.Sources.Format
	if cfg.Sources.Path != "" {
		source += " (" + cfg.Sources.Path + ")"
	}
	PrintKeyValue("Sources", source)
	target := cfg.Targets[res.TargetName]
	PrintKeyValue("Target", fmt.Sprintf("%s (%s)", res.TargetName, target.Type))
	PrintKeyValue("Parallel", strconv.FormatBool(cfg.Pipeline.Parallel))

	confirm := false
	if err := w.askOne(&survey.Confirm{Message: "Save this configuration?", Default: true}, &confirm); err != nil {
		return err
	}
	if !confirm {
		return ErrWizardCancelled
	}
	return nil
}

func (w *InitWizard) showProgress(step string) {
	fmt.Fprintf(Output, "\n%s [Step %d/%d] %s\n\n",
		ColorProgress("►"),
		w.currentStep,
		w.totalSteps,
		ColorBold(step),
	)
}

// Password prompts for a secret without echo.
func Password(message string) (string, error) {
	var secret string
	if err := survey.AskOne(&survey.Password{Message: message}, &secret); err != nil {
		return "", cancelled(err)
	}
	return secret, nil
}
