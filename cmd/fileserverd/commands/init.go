package commands

import (
	"fmt"

	"github.com/bert42/fileserver/pkg/config"
	"github.com/spf13/cobra"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a sample configuration file",
	Long: `Write a sample server configuration file.

The file is created at $XDG_CONFIG_HOME/fileserver/config.yaml unless --config
is given.

Examples:
  fileserverd init
  fileserverd init --config /etc/fileserver/config.yaml
  fileserverd init --force`,
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite an existing config file")
}

func runInit(cmd *cobra.Command, args []string) error {
	configPath := GetConfigFile()

	var err error
	if configPath != "" {
		err = config.InitConfigToPath(configPath, initForce)
	} else {
		configPath, err = config.InitConfig(initForce)
	}
	if err != nil {
		return fmt.Errorf("failed to initialize config: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Configuration file created at: %s\n", configPath)
	fmt.Fprintln(out, "\nNext steps:")
	fmt.Fprintln(out, "  1. Point the directories at existing paths and adjust allowed_ips")
	fmt.Fprintf(out, "  2. Check it with: fileserverd check --config %s\n", configPath)
	fmt.Fprintf(out, "  3. Start the server with: fileserverd start --config %s\n", configPath)
	return nil
}
