package commands

import (
	"errors"

	"github.com/bert42/fileserver/internal/cli/output"
	"github.com/bert42/fileserver/pkg/client"
	"github.com/spf13/cobra"
)

func newConnectCmd(g *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "connect",
		Short: "Authenticate and list the available directories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.run(cmd, func(c *client.Client, p *output.Printer) error {
				resp, err := c.Authenticate(cmd.Context())
				if err != nil {
					return err
				}
				if !resp.Success {
					return errors.New(resp.Message)
				}

				if p.Format() != output.FormatTable {
					return p.Print(sessionView{ClientID: c.ClientID(), Message: resp.Message, Directories: resp.AvailableDirectories})
				}

				p.Printf("Connected to server successfully\n")
				p.Printf("  Message: %s\n", resp.Message)
				p.Printf("  Available directories:\n")
				for _, dir := range resp.AvailableDirectories {
					p.Printf("    - %s\n", dir)
				}
				return nil
			})
		},
	}
}

func newHealthCheckCmd(g *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "health-check",
		Short: "Show server health, uptime and version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.run(cmd, func(c *client.Client, p *output.Printer) error {
				resp, err := c.HealthCheck(cmd.Context())
				if err != nil {
					return err
				}
				return p.Print(newHealthView(resp))
			})
		},
	}
}
