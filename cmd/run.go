package cmd

import (
	"github.com/spf13/cobra"

	"martflow/internal/pipeline"
	"martflow/internal/ui"
)

func newRunCmd(a *app) *cobra.Command {
	var allModels bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Build every model and materialize the marts",
		Long: `Read the raw sources, build every model and write the marts and the
sales summary to the target. With --all-models the staging and intermediate
models are written too.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			if err := a.load(); err != nil {
				return err
			}
			ctx, cancel := a.context(cmd.Context())
			defer cancel()

			m := a.newManifest("run")
			defer func() { a.finish(m, err) }()

			res, err := a.runPipeline(ctx)
			if err != nil {
				return err
			}

			ui.PrintSection("Models")
			ui.RenderRunSummary(a.out, res)

			written, err := a.materialize(ctx, res.Tables(materializedLayers(allModels)...))
			m.RecordModels(res, written)
			if err != nil {
				return err
			}
			ui.ShowSuccess("run complete")
			return nil
		},
	}

	cmd.Flags().BoolVar(&allModels, "all-models", false, "also materialize staging and intermediate models")
	return cmd
}

func materializedLayers(all bool) []pipeline.Layer {
	if all {
		return []pipeline.Layer{pipeline.LayerStaging, pipeline.LayerIntermediate, pipeline.LayerMarts, pipeline.LayerReporting}
	}
	return []pipeline.Layer{pipeline.LayerMarts, pipeline.LayerReporting}
}
