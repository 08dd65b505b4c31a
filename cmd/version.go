package cmd

import (
	"github.com/spf13/cobra"

	"storeseo-cli/cmd/utils"
	"storeseo-cli/cmd/version"
)

var versionCheck bool

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of the storeseo CLI",
	Long: `Print the version number of the storeseo CLI.

With --check, also contacts the server; a warning is printed when the server
requires a newer client.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		utils.OutputInfo("storeseo CLI %s", version.FormatVersionForDisplay(version.CurrentVersion))
		if !versionCheck {
			return nil
		}
		a, err := newAssistant()
		if err != nil {
			return err
		}
		// The compatibility warning rides on any response header
		if err := a.ctrl.LoadContext(cmd.Context()); err != nil {
			utils.OutputWarning("could not reach %s: %s", a.cfg.URL, errorSlotOr(a.ctrl.Snapshot(), err))
		}
		return nil
	},
}

func init() {
	versionCmd.Flags().BoolVar(&versionCheck, "check", false, "Check compatibility with the server")
	rootCmd.AddCommand(versionCmd)
}
