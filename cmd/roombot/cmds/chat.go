package cmds

import (
	"context"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-isatty"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/go-go-golems/roombot/pkg/events"
	"github.com/go-go-golems/roombot/pkg/ui"
)

func newChatCommand(app *App) *cobra.Command {
	var (
		plain bool
		style string
	)
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Chat with the booking assistant",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			rt, err := app.NewRuntime(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = rt.Close() }()

			if plain || !isTerminal() {
				return runLines(ctx, cmd, app, rt)
			}
			return runTUI(ctx, rt, style)
		},
	}
	cmd.Flags().BoolVar(&plain, "plain", false, "Use line mode even on a terminal")
	cmd.Flags().StringVar(&style, "style", "dark", "Markdown style for replies (dark, light, notty; empty disables)")
	return cmd
}

func isTerminal() bool {
	return isatty.IsTerminal(os.Stdin.Fd()) && isatty.IsTerminal(os.Stdout.Fd())
}

func runLines(ctx context.Context, cmd *cobra.Command, app *App, rt *Runtime) error {
	if _, err := rt.Boot(ctx, app.Settings.Timeout); err != nil {
		// the line session prints the offline banner itself
		log.Warn().Err(err).Msg("session not ready")
	}
	ls := &ui.LineSession{Session: rt.Controller, Conv: rt.Orchestrator}
	return ls.Run(ctx, cmd.InOrStdin(), cmd.OutOrStdout())
}

func runTUI(ctx context.Context, rt *Runtime, style string) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sessionCh, err := rt.Bus.Subscribe(ctx, events.TopicSession)
	if err != nil {
		return err
	}
	convCh, err := rt.Bus.Subscribe(ctx, events.TopicConversation)
	if err != nil {
		return err
	}

	updates := make(chan events.Event, 256)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(forwardEvents(gctx, sessionCh, updates))
	g.Go(forwardEvents(gctx, convCh, updates))

	rt.Controller.Activate(ctx)

	model := ui.NewModel(ctx, rt.Controller, rt.Orchestrator, updates,
		ui.WithRenderer(ui.NewMessageRenderer(style, 80)))
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(gctx))
	g.Go(func() error {
		defer cancel()
		if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
			return errors.Wrap(err, "run ui")
		}
		return nil
	})
	return g.Wait()
}

// forwardEvents copies events from in to out until in closes or ctx is done.
func forwardEvents(ctx context.Context, in <-chan events.Event, out chan<- events.Event) func() error {
	return func() error {
		for {
			select {
			case <-ctx.Done():
				return nil
			case e, ok := <-in:
				if !ok {
					return nil
				}
				select {
				case out <- e:
				case <-ctx.Done():
					return nil
				}
			}
		}
	}
}
