package cmd

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"martflow/internal/security"
	"martflow/internal/ui"
	"martflow/pkg/errors"
)

func newAuthCmd(a *app) *cobra.Command {
	auth := &cobra.Command{
		Use:   "auth",
		Short: "Manage target passwords in the OS keyring",
	}

	var fromStdin bool
	set := &cobra.Command{
		Use:   "set <target>",
		Short: "Store the password of a target",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var password string
			if fromStdin {
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && line == "" {
					return errors.Wrap(err, errors.ErrCodeConfigMissing, "no password on stdin")
				}
				password = strings.TrimRight(line, "\r\n")
			} else {
				p, err := ui.Password(fmt.Sprintf("Password for %s:", args[0]))
				if err != nil {
					return err
				}
				password = p
			}
			if password == "" {
				return errors.New(errors.ErrCodeConfigMissing, "empty password")
			}

			if err := security.NewCredentialManager().Store(args[0], password); err != nil {
				return err
			}
			ui.ShowSuccess("password stored for " + args[0])
			return nil
		},
	}
	set.Flags().BoolVar(&fromStdin, "password-stdin", false, "read the password from stdin")

	del := &cobra.Command{
		Use:   "delete <target>",
		Short: "Remove the stored password of a target",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := security.NewCredentialManager().Delete(args[0]); err != nil {
				return err
			}
			ui.ShowSuccess("password removed for " + args[0])
			return nil
		},
	}

	auth.AddCommand(set, del)
	return auth
}
