package cmd

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var dataCmd = &cobra.Command{
	Use:   "data",
	Short: "Back up, restore and sync the whole record",
}

var dataExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write all tasks and links as JSON",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out, _ := cmd.Flags().GetString("out")
		return withSession(cmd.Context(), func(c *client) error {
			doc, err := c.engine.Export()
			if err != nil {
				return err
			}
			if out == "" || out == "-" {
				_, err = fmt.Fprintln(cmd.OutOrStdout(), string(doc))
				return err
			}
			return os.WriteFile(out, doc, 0o600)
		})
	},
}

var dataImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Replace all tasks and links with the contents of a backup",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var raw []byte
		var err error
		if args[0] == "-" {
			raw, err = io.ReadAll(cmd.InOrStdin())
		} else {
			raw, err = os.ReadFile(args[0])
		}
		if err != nil {
			return err
		}

		return withSession(cmd.Context(), func(c *client) error {
			res := c.engine.Import(raw)
			if !res.Success {
				return fmt.Errorf("import failed: %s", res.Error)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d tasks and %d links\n", res.TasksImported, res.LinksImported)
			return nil
		})
	},
}

var dataRefreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Fetch the record from the server into the local cache",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd.Context(), func(c *client) error {
			if err := c.engine.Refresh(cmd.Context()); err != nil {
				return err
			}
			data, _ := c.engine.Snapshot()
			fmt.Fprintf(cmd.OutOrStdout(), "%d tasks, %d links\n", len(data.Tasks), len(data.Links))
			return nil
		})
	},
}

var dataDeleteAccountCmd = &cobra.Command{
	Use:   "delete-account",
	Short: "Delete the account and everything in it from the server",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		yes, _ := cmd.Flags().GetBool("yes")
		if !yes && !confirm(cmd, "Delete the account and all of its tasks and links? [y/N] ") {
			return fmt.Errorf("aborted")
		}
		return withSession(cmd.Context(), func(c *client) error {
			if err := c.engine.DeleteAccount(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "account deleted")
			return nil
		})
	},
}

func confirm(cmd *cobra.Command, prompt string) bool {
	fmt.Fprint(cmd.OutOrStdout(), prompt)
	line, _ := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}

func init() {
	dataExportCmd.Flags().StringP("out", "o", "", "output file (default stdout)")
	dataDeleteAccountCmd.Flags().Bool("yes", false, "do not ask for confirmation")

	dataCmd.AddCommand(dataExportCmd, dataImportCmd, dataRefreshCmd, dataDeleteAccountCmd)
	rootCmd.AddCommand(dataCmd)
}
