package cmd

import (
	"github.com/spf13/cobra"

	"martflow/internal/ui"
)

func newSeedCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Load the raw sources into the target",
		Long:  `Write raw_customers, raw_orders and raw_products to the target as text tables, exactly as read.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			if err := a.load(); err != nil {
				return err
			}
			ctx, cancel := a.context(cmd.Context())
			defer cancel()

			m := a.newManifest("seed")
			defer func() { a.finish(m, err) }()

			raw, err := a.readSources(ctx)
			if err != nil {
				return err
			}
			if _, err := a.materialize(ctx, raw.Tables()); err != nil {
				return err
			}
			ui.ShowSuccess("seeds loaded")
			return nil
		},
	}
}
