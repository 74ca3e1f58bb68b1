package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	model "notegrid.app/notegrid/pkg/models"
)

var errEmptyURL = errors.New("url must not be empty")

var linksCmd = &cobra.Command{
	Use:     "links",
	Aliases: []string{"link"},
	Short:   "List and change saved links",
}

var linksListCmd = &cobra.Command{
	Use:   "list",
	Short: "List links in order",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		asJSON, _ := cmd.Flags().GetBool("json")
		return withSession(cmd.Context(), func(c *client) error {
			if asJSON {
				return printJSON(cmd.OutOrStdout(), c.engine.Links())
			}
			return printLinks(cmd.OutOrStdout(), c.engine.Links())
		})
	},
}

var linksAddCmd = &cobra.Command{
	Use:   "add <url>",
	Short: "Add a link as given",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		title, _ := cmd.Flags().GetString("title")
		favicon, _ := cmd.Flags().GetString("favicon")
		if strings.TrimSpace(args[0]) == "" {
			return errEmptyURL
		}
		return withSession(cmd.Context(), func(c *client) error {
			link, ok := c.engine.AddLink(model.LinkDraft{URL: args[0], Title: title, Favicon: favicon})
			if !ok {
				return errNoIdentity
			}
			fmt.Fprintln(cmd.OutOrStdout(), link.ID)
			return nil
		})
	},
}

var linksCaptureCmd = &cobra.Command{
	Use:   "capture <url>",
	Short: "Save a web page, skipping pages already saved",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		title, _ := cmd.Flags().GetString("title")
		return withSession(cmd.Context(), func(c *client) error {
			link, err := c.engine.CaptureLink(args[0], title)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "saved %s (%s)\n", link.Title, link.ID)
			return nil
		})
	},
}

var linksDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a link",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd.Context(), func(c *client) error {
			if !c.engine.DeleteLink(args[0]) {
				return fmt.Errorf("link %s not found", args[0])
			}
			return nil
		})
	},
}

var linksReorderCmd = &cobra.Command{
	Use:   "reorder <id>...",
	Short: "Put the given links first, in the given order",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd.Context(), func(c *client) error {
			if !c.engine.ReorderLinks(args) {
				return errNoIdentity
			}
			return printLinks(cmd.OutOrStdout(), c.engine.Links())
		})
	},
}

func init() {
	linksListCmd.Flags().Bool("json", false, "print JSON")
	linksAddCmd.Flags().String("title", "", "link title")
	linksAddCmd.Flags().String("favicon", "", "favicon URL")
	linksCaptureCmd.Flags().String("title", "", "page title; defaults to the host name")

	linksCmd.AddCommand(linksListCmd, linksAddCmd, linksCaptureCmd, linksDeleteCmd, linksReorderCmd)
	rootCmd.AddCommand(linksCmd)
}
