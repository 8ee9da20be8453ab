package cmd

import (
	"github.com/spf13/cobra"

	"martflow/internal/ui"
)

func newTestCmd(a *app) *cobra.Command {
	var maxFailures int

	cmd := &cobra.Command{
		Use:   "test",
		Short: "Run the data-quality tests",
		Long: `Build every model in memory and run the data-quality suite: key
uniqueness and completeness, accepted values, referential integrity and the
business-rule assertions. Exits non-zero when an error-severity test fails.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			if err := a.load(); err != nil {
				return err
			}
			ctx, cancel := a.context(cmd.Context())
			defer cancel()

			m := a.newManifest("test")
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

			if rep.Failed() {
				return testsFailedError(rep)
			}
			ui.ShowSuccess("all tests passed")
			return nil
		},
	}

	cmd.Flags().IntVar(&maxFailures, "max-failures", 10, "failing rows to print per test (0 prints all)")
	return cmd
}
