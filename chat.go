package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tanpawarit/Chative-Account-Request/agent/agents/orchestrator"
)

const (
	resetCommand = "/reset"
	quitCommand  = "/quit"

	// maxLineBytes bounds one pasted turn; long backgrounds reach the
	// validator instead of stopping the scanner.
	maxLineBytes = 1 << 20
)

type chatService interface {
	HandleMessage(ctx context.Context, sessionID string, text string) (orchestrator.Reply, error)
	Reset(ctx context.Context, sessionID string) error
	Greeting(ctx context.Context) (string, error)
}

func newChatCmd() *cobra.Command {
	var sessionID string

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Run the account request bot in the terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			svc, closeFn, err := buildService(ctx)
			if err != nil {
				return err
			}
			defer closeQuietly(closeFn)

			return runChat(ctx, svc, cmd.InOrStdin(), cmd.OutOrStdout(), sessionID)
		},
	}
	cmd.Flags().StringVar(&sessionID, "session", "cli", "session id used for this terminal conversation")
	return cmd
}

// runChat reads one user turn per line. /reset starts over and /quit or EOF
// ends the session.
func runChat(ctx context.Context, svc chatService, in io.Reader, out io.Writer, sessionID string) error {
	if err := printGreeting(ctx, svc, out); err != nil {
		return err
	}

	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, bufio.MaxScanTokenSize), maxLineBytes)
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())

		switch line {
		case "":
			continue
		case quitCommand:
			return nil
		case resetCommand:
			if err := svc.Reset(ctx, sessionID); err != nil {
				return err
			}
			if err := printGreeting(ctx, svc, out); err != nil {
				return err
			}
			continue
		}

		reply, err := svc.HandleMessage(ctx, sessionID, line)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%s\n\n", reply.Text)
	}
}

func printGreeting(ctx context.Context, svc chatService, out io.Writer) error {
	greeting, err := svc.Greeting(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "%s\n\n", greeting)
	return nil
}
