package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"notegrid.app/notegrid/internal/identity"
)

var identityCmd = &cobra.Command{
	Use:   "identity",
	Short: "Manage the secret identity code",
}

var identityGenerateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Print a new random identity code without registering it",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Fprintln(cmd.OutOrStdout(), identity.Generate())
		return nil
	},
}

var identityValidateCmd = &cobra.Command{
	Use:   "validate <code>",
	Short: "Check that a code has the identity format",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if !identity.Validate(identity.Normalize(args[0])) {
			return identity.ErrInvalidFormat
		}
		fmt.Fprintln(cmd.OutOrStdout(), "valid")
		return nil
	},
}

var identityLoginCmd = &cobra.Command{
	Use:   "login <code>",
	Short: "Use an existing code on this device",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := openClient()
		if err != nil {
			return err
		}
		defer c.close()

		id, err := c.engine.Login(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		data, _ := c.engine.Snapshot()
		fmt.Fprintf(cmd.OutOrStdout(), "logged in as %s (%d tasks, %d links)\n", id, len(data.Tasks), len(data.Links))
		return nil
	},
}

var identityRegisterCmd = &cobra.Command{
	Use:   "register",
	Short: "Create a new identity on the server and use it",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := openClient()
		if err != nil {
			return err
		}
		defer c.close()

		id, err := c.engine.Register(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s\nKeep this code secret: it is the only way to reach your data.\n", id)
		return nil
	},
}

var identityShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the saved identity code",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := openClient()
		if err != nil {
			return err
		}
		defer c.close()

		id, err := identity.NewProvider(c.store).Current(cmd.Context())
		if err != nil {
			return err
		}
		if id == "" {
			return errNoIdentity
		}
		fmt.Fprintln(cmd.OutOrStdout(), id)
		return nil
	},
}

var identityLogoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the identity and the local cache on this device",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := openClient()
		if err != nil {
			return err
		}
		defer c.close()

		if err := c.engine.Logout(cmd.Context()); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "logged out")
		return nil
	},
}

func init() {
	identityCmd.AddCommand(
		identityGenerateCmd,
		identityValidateCmd,
		identityLoginCmd,
		identityRegisterCmd,
		identityShowCmd,
		identityLogoutCmd,
	)
	rootCmd.AddCommand(identityCmd)
}
