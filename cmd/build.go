package cmd

import (
	"github.com/spf13/cobra"

	"martflow/internal/ui"
)

func newBuildCmd(a *app) *cobra.Command {
	var (
		force       bool
		allModels   bool
		maxFailures int
	)

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build, test and materialize only if the tests pass",
		Long: `Build every model, run the data-quality suite and materialize the
marts only when no error-severity test failed. --force materializes anyway
and still exits non-zero.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			if err := a.load(); err != nil {
				return err
			}
			ctx, cancel := a.context(cmd.Context())
			defer cancel()

			m := a.newManifest("build")
			defer func() { a.finish(m, err) }()

			res, err := a.runPipeline(ctx)
			if err != nil {
				return err
			}
			m.RecordModels(res, nil)

			rep, err := a.runSuite(res)
			if err != nil {
				return err
			}
			m.RecordTests(rep)

			ui.PrintSection("Data quality")
			ui.RenderReport(a.out, rep, maxFailures)

			if rep.Failed() && !force {
				ui.ShowWarning("nothing materialized; rerun with --force to write anyway")
				return testsFailedError(rep)
			}

			written, err := a.materialize(ctx, res.Tables(materializedLayers(allModels)...))
			m.RecordModels(res, written)
			if err != nil {
				return err
			}
			if rep.Failed() {
				return testsFailedError(rep)
			}
			ui.ShowSuccess("build complete")
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "materialize even when tests fail")
	cmd.Flags().BoolVar(&allModels, "all-models", false, "also materialize staging and intermediate models")
	cmd.Flags().IntVar(&maxFailures, "max-failures", 10, "failing rows to print per test (0 prints all)")
	return cmd
}
