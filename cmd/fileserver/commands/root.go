// Package commands implements the fileserver client command line.
package commands

import (
	"github.com/bert42/fileserver/internal/cli/output"
	"github.com/bert42/fileserver/pkg/client"
	"github.com/bert42/fileserver/pkg/config"
	"github.com/spf13/cobra"
)

// globalOptions holds the persistent flags shared by every command.
type globalOptions struct {
	configFile string
	server     string
	output     string
	clientID   string
}

// NewRootCmd builds the client command tree.
func NewRootCmd() *cobra.Command {
	g := &globalOptions{}

	root := &cobra.Command{
		Use:   "fileserver",
		Short: "Client for the fileserverd remote file service",
		Long: `fileserver talks to a fileserverd instance. Paths are virtual paths of the
form "<directory>/<relative path>", where <directory> is one of the names
returned by "fileserver connect".

Server address, timeout and retry attempts come from the client config file
($XDG_CONFIG_HOME/fileserver/client.yaml) and FILESERVER_CLIENT_* variables.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&g.configFile, "config", "c", "", "client config file (default: $XDG_CONFIG_HOME/fileserver/client.yaml)")
	flags.StringVarP(&g.server, "server", "s", "", "server address host:port (overrides config)")
	flags.StringVarP(&g.output, "output", "o", "table", "output format: table, json, yaml")
	flags.StringVar(&g.clientID, "client-id", "", "client identifier (default: client-<uuid>)")

	root.AddCommand(
		newConnectCmd(g),
		newHealthCheckCmd(g),
		newStatCmd(g),
		newListCmd(g),
		newReadCmd(g),
		newReadTextCmd(g),
		newWriteCmd(g),
		newWriteFileCmd(g),
		newDeleteCmd(g),
	)
	root.CompletionOptions.DisableDefaultCmd = true

	return root
}

// dial opens a client from the config file, environment and flags.
func (g *globalOptions) dial() (*client.Client, error) {
	cfg, err := config.LoadClient(g.configFile)
	if err != nil {
		return nil, err
	}

	address := cfg.Address()
	if g.server != "" {
		address = g.server
	}

	return client.Dial(client.Config{
		Address:       address,
		ClientID:      g.clientID,
		Timeout:       cfg.Timeout(),
		RetryAttempts: cfg.Client.RetryAttempts,
	})
}

func (g *globalOptions) printer(cmd *cobra.Command) (*output.Printer, error) {
	format, err := output.ParseFormat(g.output)
	if err != nil {
		return nil, err
	}
	return output.NewPrinter(cmd.OutOrStdout(), format), nil
}

// run dials, builds the printer and calls fn, closing the client after.
func (g *globalOptions) run(cmd *cobra.Command, fn func(*client.Client, *output.Printer) error) error {
	p, err := g.printer(cmd)
	if err != nil {
		return err
	}

	c, err := g.dial()
	if err != nil {
		return err
	}
	defer func() { _ = c.Close() }()

	return fn(c, p)
}
