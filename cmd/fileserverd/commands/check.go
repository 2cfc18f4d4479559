package commands

import (
	"fmt"

	"github.com/bert42/fileserver/pkg/config"
	"github.com/bert42/fileserver/pkg/privilege"
	"github.com/spf13/cobra"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate the configuration without serving",
	Long: `Load and validate the configuration, build the directory table and
allowlist, and resolve the configured user/group, then exit.`,
	RunE: runCheck,
}

func runCheck(cmd *cobra.Command, args []string) error {
	cfg, err := config.MustLoad(GetConfigFile())
	if err != nil {
		return err
	}

	engine, err := config.NewAccessEngine(cfg)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()

	target := config.PrivilegeTarget(cfg)
	if !target.IsZero() {
		plan, err := privilege.Resolve(privilege.System{}, target)
		if err != nil {
			return err
		}
		if plan.User != nil {
			fmt.Fprintf(out, "User: %s\n", plan.User.UserString())
		}
		if plan.Group != nil {
			fmt.Fprintf(out, "Group: %s\n", plan.Group.GroupString())
		}
	}

	fmt.Fprintf(out, "Directories: %d\n", len(engine.Directories()))
	fmt.Fprintf(out, "Allowed IPs: %d\n", engine.Allowlist().Len())
	fmt.Fprintf(out, "Configuration OK: %s\n", getConfigSource(GetConfigFile()))
	return nil
}
