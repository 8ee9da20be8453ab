package cmd

import (
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"martflow/internal/common"
	"martflow/internal/config"
	"martflow/internal/security"
	"martflow/internal/source"
	"martflow/internal/ui"
	"martflow/pkg/errors"
	"martflow/pkg/models"
)

func newInitCmd(a *app) *cobra.Command {
	var (
		force    bool
		defaults bool
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create martflow.yaml interactively",
		Long: `Ask for the project, sources and target and write martflow.yaml to the
project directory. A csv source directory that does not exist yet is filled
with the bundled demo seeds. --defaults skips the questions.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := a.projectDir()
			path := filepath.Join(dir, config.FileName)
			if config.Exists(dir) && !force {
				return errors.New(errors.ErrCodeConfigInvalid, path+" already exists").
					WithSuggestions("Use --force to overwrite it")
			}

			cfg := config.Default()
			var password, targetName string
			if !defaults {
				res, err := ui.NewInitWizard().Run()
				if err != nil {
					return err
				}
				cfg, password, targetName = res.Config, res.Password, res.TargetName
			}

			if err := config.Save(cfg, path); err != nil {
				return err
			}
			ui.ShowSuccess("wrote " + path)

			if password != "" {
				if err := security.NewCredentialManager().Store(targetName, password); err != nil {
					return err
				}
				ui.ShowInfo("password for " + targetName + " stored in the OS keyring")
			}

			if err := copySeeds(dir, cfg.Sources); err != nil {
				return err
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing martflow.yaml")
	cmd.Flags().BoolVar(&defaults, "defaults", false, "write the default configuration without prompting")
	return cmd
}

// copySeeds fills a missing csv source directory with the demo seeds.
func copySeeds(projectDir string, src models.Sources) error {
	if src.Format != "csv" || src.Path == "" {
		return nil
	}
	dir := src.Path
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(projectDir, dir)
	}
	if _, err := os.Stat(dir); err == nil {
		return nil
	}

	if err := common.EnsureDir(dir); err != nil {
		return errors.Wrap(err, errors.ErrCodeFileOperation, "failed to create seed directory")
	}
	seeds := source.SeedFiles()
	entries, err := fs.ReadDir(seeds, ".")
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to list bundled seeds")
	}
	for _, e := range entries {
		data, err := fs.ReadFile(seeds, e.Name())
		if err != nil {
			return errors.Wrap(err, errors.ErrCodeInternal, "failed to read bundled seed")
		}
		if err := os.WriteFile(filepath.Join(dir, e.Name()), data, common.FilePermissionNormal); err != nil {
			return errors.Wrap(err, errors.ErrCodeFileOperation, "failed to write seed").
				WithContext("file", e.Name())
		}
	}
	ui.ShowInfo("copied demo seeds to " + dir)
	return nil
}
