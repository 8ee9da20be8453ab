package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"martflow/internal/pipeline"
	"martflow/internal/ui"
	"martflow/pkg/errors"
)

func newShowCmd(a *app) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:       "show <model>",
		Short:     "Build the models in memory and print one",
		Args:      cobra.ExactArgs(1),
		ValidArgs: pipeline.Models.Names(),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, ok := pipeline.Models.Node(args[0]); !ok {
				return unknownModel(args[0])
			}
			if err := a.load(); err != nil {
				return err
			}
			defer func() { _ = a.log.Sync() }()

			ctx, cancel := a.context(cmd.Context())
			defer cancel()

			res, err := a.runPipeline(ctx)
			if err != nil {
				return err
			}
			t, _ := res.Table(args[0])
			ui.RenderTable(a.out, t, limit)
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "rows to print (0 prints all)")
	return cmd
}

func unknownModel(name string) error {
	return errors.New(errors.ErrCodeConfigInvalid, fmt.Sprintf("unknown model %q", name)).
		WithSuggestions("Known models: " + strings.Join(pipeline.Models.Names(), ", "))
}
