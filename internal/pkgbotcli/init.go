package pkgbotcli

import (
	_ "embed"
	"errors"
	"fmt"
	"os"

	"github.com/contenox/pkgbot/libutil"
	"github.com/spf13/cobra"
)

//go:embed pkgbot.yaml
var initConfig string

func newInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init [path]",
		Short: "Write a starter config file (default: pkgbot.yaml).",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runInit,
	}
	cmd.Flags().BoolP("force", "f", false, "Overwrite an existing file without asking")
	return cmd
}

func runInit(cmd *cobra.Command, args []string) error {
	path := "pkgbot.yaml"
	if len(args) == 1 {
		path = args[0]
	}
	force, _ := cmd.Flags().GetBool("force")
	out := cmd.OutOrStdout()

	if _, err := os.Stat(path); err == nil && !force {
		overwrite, err := libutil.AskYesOrNo(cmd.InOrStdin(), out, fmt.Sprintf("%s already exists. Overwrite?", path))
		if err != nil && !errors.Is(err, libutil.ErrNoAnswer) {
			return err
		}
		if !overwrite {
			fmt.Fprintf(out, "\n  kept %s\n", path)
			return nil
		}
	}
	if err := os.WriteFile(path, []byte(initConfig), 0o600); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	fmt.Fprintf(out, "  Created %s\n", path)
	fmt.Fprintf(out, "Next: fill in the Slack settings, then run:\n  CONFIG_FILE=%s pkgbot serve\n", path)
	return nil
}
