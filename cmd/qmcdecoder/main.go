package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	qmcdecoder "github.com/devgianlu/go-qmcdecoder"
	log "github.com/sirupsen/logrus"
	flag "github.com/spf13/pflag"
)

type App struct {
	cfg *Config
	log *log.Entry
}

func NewApp(cfg *Config, entry *log.Entry) (*App, error) {
	if cfg.Workers < 1 {
		return nil, fmt.Errorf("invalid number of workers: %d", cfg.Workers)
	} else if cfg.BufferSize < 1 {
		return nil, fmt.Errorf("invalid buffer size: %d", cfg.BufferSize)
	}

	if cfg.OutputDir != "" {
		if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
			return nil, fmt.Errorf("failed creating output directory: %w", err)
		}
	}

	return &App{cfg: cfg, log: entry}, nil
}

// Run decodes every container found in the given paths and returns how many of them failed.
func (app *App) Run(ctx context.Context, paths []string) (int, error) {
	inputs, err := app.collectInputs(paths)
	if err != nil {
		return 0, err
	}

	if len(inputs) == 0 {
		app.log.Warnf("no containers found, supported extensions: %v", qmcdecoder.ContainerExtensions())
		return 0, nil
	}

	app.log.Debugf("decoding %d containers with %d workers", len(inputs), app.cfg.Workers)

	p := newPool(app.cfg.Workers, app.decodeFile)
	p.Start(ctx)

	go func() {
		defer p.Close()

		for _, input := range inputs {
			if !p.Submit(ctx, job{input: input, overwrite: app.cfg.Overwrite}) {
				return
			}
		}
	}()

	var decoded, skipped, failed int
	for res := range p.Results() {
		app.report(res)

		switch {
		case res.err != nil:
			failed++
		case res.skipped != "":
			skipped++
		default:
			decoded++
		}
	}

	app.log.Infof("decoded %d containers, skipped %d, failed %d", decoded, skipped, failed)
	return failed, ctx.Err()
}

func (app *App) report(res jobResult) {
	entry := app.log.WithField("file", res.input)

	if res.err != nil {
		entry.WithError(res.err).Error("failed decoding container")
	} else if res.skipped != "" {
		entry.Infof("skipped: %s", res.skipped)
	} else {
		entry.WithField("output", res.output).Infof("decoded %d bytes of %s audio", res.size, res.cipher)
	}
}

func main() {
	cfg, err := loadConfig(os.Args[1:])
	if errors.Is(err, flag.ErrHelp) {
		return
	} else if err != nil {
		log.WithError(err).Fatal("failed loading configuration")
	}

	if cfg.Version {
		fmt.Println(qmcdecoder.SystemInfoString())
		return
	}

	// parse and set log level
	logLevel, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.WithError(err).Fatalf("invalid log level: %s", cfg.LogLevel)
	} else {
		log.SetLevel(logLevel)
	}

	if len(cfg.Inputs) == 0 {
		log.Fatal("no input files or directories given")
	}

	app, err := NewApp(cfg, log.NewEntry(log.StandardLogger()))
	if err != nil {
		log.WithError(err).Fatal("failed creating app")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Watch {
		if err := app.Watch(ctx, cfg.Inputs); err != nil {
			stop()
			log.WithError(err).Fatal("failed watching directories")
		}

		return
	}

	failed, err := app.Run(ctx, cfg.Inputs)
	if err != nil && !errors.Is(err, context.Canceled) {
		stop()
		log.WithError(err).Fatal("failed decoding containers")
	} else if failed > 0 || err != nil {
		stop()
		os.Exit(1)
	}
}
