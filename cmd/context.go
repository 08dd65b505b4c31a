package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"storeseo-cli/cmd/utils"
	"storeseo-cli/internal/session"
)

var contextCmd = &cobra.Command{
	Use:   "context",
	Short: "Show the store context the assistant works with",
	Long: `Fetch and print the store context: execution mode, catalogue size, open SEO
issues, subscription plan and credit balance.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newAssistant()
		if err != nil {
			return err
		}
		sc, err := loadStoreContext(cmd, a)
		if err != nil {
			return err
		}
		printStoreContext(sc)
		return nil
	},
}

// loadStoreContext fetches the context through the controller.
func loadStoreContext(cmd *cobra.Command, a *assistant) (*session.StoreContext, error) {
	if err := a.ctrl.LoadContext(cmd.Context()); err != nil {
		return nil, fmt.Errorf("failed to load store context from %s: %s", a.cfg.URL, session.UserMessage(err, err.Error()))
	}
	return a.ctrl.Snapshot().Context, nil
}

func printStoreContext(sc *session.StoreContext) {
	utils.OutputInfoPlain("Execution mode: %s (%s)", sc.ExecutionMode, sc.ExecutionMode.Description())
	utils.OutputInfoPlain("Products:       %d", sc.ProductCount)
	utils.OutputInfoPlain("Open issues:    %d", sc.IssueCount)
	if sc.PlanName != "" {
		utils.OutputInfoPlain("Plan:           %s", sc.PlanName)
	}
	utils.OutputInfoPlain("Credits:        %s, %d used (%s)", sc.Credits.Display(), sc.Credits.Used, sc.Credits.Severity())
}

func init() {
	rootCmd.AddCommand(contextCmd)
}
