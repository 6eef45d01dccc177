// Package cmds holds the roombot cobra commands.
package cmds

import (
	"context"

	clay "github.com/go-go-golems/clay/pkg"
	"github.com/go-go-golems/glazed/pkg/cli"
	"github.com/go-go-golems/glazed/pkg/cmds/fields"
	"github.com/go-go-golems/glazed/pkg/cmds/logging"
	"github.com/go-go-golems/glazed/pkg/cmds/sources"
	"github.com/go-go-golems/glazed/pkg/cmds/values"
	"github.com/go-go-golems/glazed/pkg/help"
	help_cmd "github.com/go-go-golems/glazed/pkg/help/cmd"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/go-go-golems/roombot/pkg/config"
)

// Execute runs the roombot command line. Resources opened by a command are
// released even when the command fails.
func Execute(ctx context.Context) error {
	app := &App{}
	return execute(ctx, app, newRootCommand(app))
}

func execute(ctx context.Context, app *App, root *cobra.Command) error {
	defer func() {
		if err := app.Close(); err != nil {
			log.Warn().Err(err).Msg("could not release resources")
		}
	}()
	return root.ExecuteContext(ctx)
}

func NewRootCommand() *cobra.Command {
	return newRootCommand(&App{})
}

func newRootCommand(app *App) *cobra.Command {
	root := &cobra.Command{
		Use:           config.AppName,
		Short:         "roombot books meeting rooms by chatting with the booking assistant",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := logging.InitLoggerFromViper(); err != nil {
				return err
			}
			return app.Setup(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return app.Close()
		},
	}

	helpSystem := help.NewHelpSystem()
	help_cmd.SetupCobraRootCommand(helpSystem, root)

	cobra.CheckErr(clay.InitViper(config.AppName, root))
	config.AddFlags(root.PersistentFlags())

	askCmd, err := NewAskCommand(app)
	cobra.CheckErr(err)
	cobraAskCmd, err := cli.BuildCobraCommand(askCmd, cli.WithCobraMiddlewaresFunc(getMiddlewares))
	cobra.CheckErr(err)

	blocksCmd, err := NewCalendarBlocksCommand()
	cobra.CheckErr(err)
	cobraBlocksCmd, err := cli.BuildCobraCommand(blocksCmd, cli.WithCobraMiddlewaresFunc(getMiddlewares))
	cobra.CheckErr(err)

	calendarCmd := newCalendarCommand()
	calendarCmd.AddCommand(cobraBlocksCmd)

	root.AddCommand(
		newChatCommand(app),
		cobraAskCmd,
		calendarCmd,
		newSessionCommand(app),
	)
	return root
}

func getMiddlewares(
	_ *values.Values,
	cmd *cobra.Command,
	args []string,
) ([]sources.Middleware, error) {
	return []sources.Middleware{
		sources.FromCobra(cmd),
		sources.FromArgs(args),
		sources.FromEnv(config.EnvPrefix,
			fields.WithSource("env"),
		),
		sources.FromDefaults(),
	}, nil
}
