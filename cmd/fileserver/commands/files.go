package commands

import (
	"errors"

	"github.com/bert42/fileserver/internal/cli/output"
	"github.com/bert42/fileserver/pkg/client"
	"github.com/spf13/cobra"
)

func newStatCmd(g *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "stat <path>",
		Short: "Show file or directory metadata",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.run(cmd, func(c *client.Client, p *output.Printer) error {
				meta, err := c.Stat(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return p.Print(newMetadataView(args[0], meta))
			})
		},
	}
}

func newListCmd(g *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "list <directory>",
		Aliases: []string{"ls"},
		Short:   "List a directory",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.run(cmd, func(c *client.Client, p *output.Printer) error {
				entries, err := c.List(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return p.Print(newEntryList(entries))
			})
		},
	}
}

func newDeleteCmd(g *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "delete <path>",
		Aliases: []string{"rm"},
		Short:   "Delete a file or directory tree",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.run(cmd, func(c *client.Client, p *output.Printer) error {
				resp, err := c.Delete(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if !resp.Success {
					return errors.New(resp.Message)
				}

				if p.Format() != output.FormatTable {
					return p.Print(deleteView{Path: args[0], Message: resp.Message})
				}
				p.Printf("Successfully deleted '%s'\n", args[0])
				p.Printf("  Message: %s\n", resp.Message)
				return nil
			})
		},
	}
}
