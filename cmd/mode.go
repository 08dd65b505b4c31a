package cmd

import (
	"errors"
	"strings"

	"github.com/spf13/cobra"

	"storeseo-cli/cmd/utils"
	"storeseo-cli/internal/session"
)

var modeCmd = &cobra.Command{
	Use:   "mode [AUTOMATIC|PLAN|APPROVE]",
	Short: "Show or change the store's execution mode",
	Long: `Show or change the execution mode that governs how the assistant applies
changes to your store.

  AUTOMATIC  fixes applied instantly without approval
  PLAN       fixes grouped into plans for batch approval
  APPROVE    each fix requires individual approval

Examples:
  storeseo mode          # show the current mode
  storeseo mode plan     # switch to PLAN`,
	Args:      cobra.MaximumNArgs(1),
	ValidArgs: modeNames(),
	RunE: func(cmd *cobra.Command, args []string) error {
		var target session.ExecutionMode
		if len(args) == 1 {
			m, err := session.ParseMode(args[0])
			if err != nil {
				return err
			}
			target = m
		}

		a, err := newAssistant()
		if err != nil {
			return err
		}
		sc, err := loadStoreContext(cmd, a)
		if err != nil {
			return err
		}

		if target == "" {
			printModes(sc.ExecutionMode)
			return nil
		}
		if sc.ExecutionMode == target {
			utils.OutputInfo("Execution mode is already %s", target)
			return nil
		}

		if err := a.ctrl.RequestModeChange(cmd.Context(), target); err != nil {
			return errors.New(errorSlotOr(a.ctrl.Snapshot(), err))
		}
		if msg, ok := a.ctrl.Snapshot().LastAssistantMessage(); ok {
			utils.OutputSuccess("%s", msg)
		}
		return nil
	},
}

func modeNames() []string {
	var names []string
	for _, m := range session.Modes() {
		names = append(names, string(m), strings.ToLower(string(m)))
	}
	return names
}

func printModes(current session.ExecutionMode) {
	for _, m := range session.Modes() {
		marker := "  "
		if m == current {
			marker = "* "
		}
		utils.OutputInfoPlain("%s%-10s %s", marker, m, m.Description())
	}
	var names []string
	for _, m := range session.Modes() {
		names = append(names, string(m))
	}
	utils.OutputInfoPlain("\nChange it with: storeseo mode <%s>", strings.Join(names, "|"))
}

func init() {
	rootCmd.AddCommand(modeCmd)
}
