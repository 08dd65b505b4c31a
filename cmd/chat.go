package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"storeseo-cli/cmd/utils"
	"storeseo-cli/internal/session"
	"storeseo-cli/internal/tui"
)

var chatCmd = &cobra.Command{
	Use:   "chat [message]",
	Short: "Chat with the StoreSEO assistant",
	Long: `Chat with the StoreSEO assistant.

With a message, sends it once and prints the reply followed by your
remaining credits. Without one, opens the interactive assistant widget when
attached to a terminal, or reads the message from stdin otherwise.

Examples:
  storeseo chat "Generate meta descriptions for products that are missing them"
  echo "Which fixes should I apply first?" | storeseo chat
  storeseo chat`,
	RunE: func(cmd *cobra.Command, args []string) error {
		text := strings.Join(args, " ")
		if strings.TrimSpace(text) == "" {
			if stdinIsTerminal() {
				return runWidgetTUI(cmd.Context())
			}
			data, err := io.ReadAll(cmd.InOrStdin())
			if err != nil {
				return fmt.Errorf("failed to read message from stdin: %w", err)
			}
			text = string(data)
		}

		a, err := newAssistant()
		if err != nil {
			return err
		}
		return sendOnce(cmd.Context(), a.ctrl, text, stdoutIsTerminal())
	},
}

var stdinIsTerminal = func() bool {
	fd := os.Stdin.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

var stdoutIsTerminal = func() bool {
	fd := os.Stdout.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// sendOnce sends a single message and prints the reply and the credit balance.
// Markdown is rendered only for terminals.
func sendOnce(ctx context.Context, ctrl *session.Controller, text string, pretty bool) error {
	if err := ctrl.Send(ctx, text); err != nil {
		if errors.Is(err, session.ErrEmptyMessage) {
			return fmt.Errorf("nothing to send: message is empty")
		}
		return errors.New(errorSlotOr(ctrl.Snapshot(), err))
	}

	snap := ctrl.Snapshot()
	reply, _ := snap.LastAssistantMessage()
	if pretty {
		reply = tui.RenderMarkdown(reply, 100)
	}
	utils.OutputInfoPlain("%s", reply)
	printCredits(snap.Credits)
	return nil
}

// errorSlotOr prefers the message the widget would show over the raw error.
func errorSlotOr(s session.Snapshot, err error) string {
	if s.HasError() {
		return s.Error
	}
	return err.Error()
}

func printCredits(ledger *session.CreditLedger) {
	if ledger == nil {
		return
	}
	switch ledger.Severity() {
	case session.SeverityCritical:
		utils.OutputWarning("%s remaining, top up soon", ledger.Display())
	case session.SeverityLow:
		utils.OutputWarning("%s remaining", ledger.Display())
	default:
		utils.OutputInfoPlain("%s remaining", ledger.Display())
	}
}

func init() {
	rootCmd.AddCommand(chatCmd)
}
