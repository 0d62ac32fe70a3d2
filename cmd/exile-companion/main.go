package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"runtime"

	"github.com/rs/zerolog"
	"github.com/urfave/cli/v3"

	"exile-companion/internal/app"
	"exile-companion/internal/ipc"
	"exile-companion/internal/models"
	"exile-companion/internal/stashgrid"
	"exile-companion/pkg/config"
	"exile-companion/pkg/global"
	"exile-companion/pkg/logger"
)

func main() {
	var (
		configPath string
		debug      bool
	)

	cmd := &cli.Command{
		Name:  "exile-companion",
		Usage: "Path of Exile trade companion: whisper notifications and stash grid overlay",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Usage:       "path to config file",
				Destination: &configPath,
			},
			&cli.BoolFlag{
				Name:        "debug",
				Usage:       "enable debug logging",
				Destination: &debug,
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "run",
				Usage: "Run the companion host (log tailing + surface endpoint)",
				Action: func(ctx context.Context, c *cli.Command) error {
					return runHost(ctx, configPath, debug)
				},
			},
			{
				Name:      "edit-grid",
				Usage:     "Open the stash grid in edit mode and print the confirmed bounds",
				UsageText: "exile-companion edit-grid [--quad]",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "quad",
						Usage: "edit the quad (24x24) grid instead of the normal one",
					},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					return runEditGrid(ctx, configPath, debug, c.Bool("quad"))
				},
			},
			{
				Name:  "example",
				Usage: "Ask the running host to inject example trade notifications",
				Action: func(ctx context.Context, c *cli.Command) error {
					return runExample(ctx, configPath, debug)
				},
			},
		},
		DefaultCommand: "run",
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// bootstrap builds the logger, loads configuration and wires the globals.
func bootstrap(configPath string, debug bool) (*logger.Logger, error) {
	logLevel := zerolog.InfoLevel
	if debug {
		logLevel = zerolog.DebugLevel
	}

	log, err := logger.NewLogger(
		logger.WithConsole(),
		logger.WithLevel(logLevel),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	cfg, err := config.FindConfig(configPath, log)
	if err != nil {
		log.Error("Failed to load configuration", err, "provided_path", configPath)
		log.Close()
		return nil, err
	}

	global.InitGlobals(cfg, log)
	return log, nil
}

func runHost(ctx context.Context, configPath string, debug bool) error {
	log, err := bootstrap(configPath, debug)
	if err != nil {
		return err
	}
	defer log.Close()

	log.Info("Starting Exile Companion",
		"pid", os.Getpid(),
		"os", runtime.GOOS,
		"arch", runtime.GOARCH,
		"debug", debug)

	host, err := app.NewApp()
	if err != nil {
		log.Error("Failed to initialize companion", err)
		return err
	}
	return host.Run(ctx)
}

func runEditGrid(ctx context.Context, configPath string, debug bool, quad bool) error {
	log, err := bootstrap(configPath, debug)
	if err != nil {
		return err
	}
	defer log.Close()

	ch, err := ipc.Dial(ctx, global.GetConfig().GetListenAddr(), log)
	if err != nil {
		return err
	}
	defer ch.Close()

	gridType := models.StashGridNormal
	if quad {
		gridType = models.StashGridQuad
	}

	requester := stashgrid.NewRequester(ch, log)
	bounds, err := requester.EditStashGrid(ctx, models.StashGridOptions{GridType: gridType})
	if err != nil {
		return err
	}
	if bounds == nil {
		fmt.Println("null")
		return nil
	}

	out, err := json.Marshal(bounds)
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

func runExample(ctx context.Context, configPath string, debug bool) error {
	log, err := bootstrap(configPath, debug)
	if err != nil {
		return err
	}
	defer log.Close()

	ch, err := ipc.Dial(ctx, global.GetConfig().GetListenAddr(), log)
	if err != nil {
		return err
	}
	defer ch.Close()

	env, err := ipc.NewEnvelope(ipc.KindExample, "", nil)
	if err != nil {
		return err
	}
	return ch.Send(env)
}
