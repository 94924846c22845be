// Command chatwatch follows the team chat from a terminal. Messages arrive over
// the websocket when it is reachable and through polling otherwise; each one
// is printed once.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"phrasedesk/internal/chat"
	"phrasedesk/internal/model"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		server  string
		token   string
		poll    time.Duration
		limit   int
		verbose bool
	)

	cmd := &cobra.Command{
		Use:   "chatwatch",
		Short: "Follow the phrasedesk team chat",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if token == "" {
				token = os.Getenv("PHRASEDESK_TOKEN")
			}
			if token == "" {
				return errors.New("an access token is required (--token or PHRASEDESK_TOKEN)")
			}
			zerolog.SetGlobalLevel(zerolog.InfoLevel)
			if verbose {
				zerolog.SetGlobalLevel(zerolog.DebugLevel)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			out := cmd.OutOrStdout()
			w := chat.NewWatcher(server, token, poll, func(m model.ChatMessage) {
				fmt.Fprintln(out, formatMessage(m))
			})
			w.Limit = limit
			return w.Run(ctx)
		},
	}

	cmd.Flags().StringVar(&server, "server", "http://localhost:8080", "phrasedesk base URL")
	cmd.Flags().StringVar(&token, "token", "", "access token (defaults to $PHRASEDESK_TOKEN)")
	cmd.Flags().DurationVar(&poll, "poll", 5*time.Second, "polling interval")
	cmd.Flags().IntVar(&limit, "limit", 50, "messages fetched per poll")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	return cmd
}

func formatMessage(m model.ChatMessage) string {
	at := m.CreatedAt.Local().Format("02/01 15:04")
	switch m.Type {
	case model.MessageTypeFile, model.MessageTypeAudio:
		line := fmt.Sprintf("[%s] %s enviou %s: %s", at, m.Username, m.Type, m.AttachmentURL)
		if m.Body != "" {
			line += " (" + m.Body + ")"
		}
		return line
	default:
		return fmt.Sprintf("[%s] %s: %s", at, m.Username, m.Body)
	}
}
