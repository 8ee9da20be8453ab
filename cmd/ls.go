package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"martflow/internal/pipeline"
	"martflow/internal/ui"
)

func newLsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "ls [model]",
		Short: "List the models and their dependencies",
		Long:  `Print the model graph in build order. Given a model, print its upstream lineage instead.`,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				ui.RenderModels(a.out, pipeline.Models)
				return nil
			}

			node, ok := pipeline.Models.Node(args[0])
			if !ok {
				return unknownModel(args[0])
			}
			upstream, err := pipeline.Models.Lineage(node.Name)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "%s (%s)\n", ui.ColorBold(node.Name), node.Layer)
			if len(upstream) == 0 {
				fmt.Fprintln(a.out, "  no upstream models")
				return nil
			}
			fmt.Fprintf(a.out, "  upstream: %s\n", strings.Join(upstream, " -> "))
			return nil
		},
	}
}
