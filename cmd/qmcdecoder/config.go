package main

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	flag "github.com/spf13/pflag"
)

type Config struct {
	ConfigPath  string        `koanf:"config_path"`
	LogLevel    string        `koanf:"log_level"`
	Workers     int           `koanf:"workers"`
	BufferSize  int           `koanf:"buffer_size"`
	OutputDir   string        `koanf:"output_dir"`
	Overwrite   bool          `koanf:"overwrite"`
	Watch       bool          `koanf:"watch"`
	WatchSettle time.Duration `koanf:"watch_settle"`
	Version     bool          `koanf:"version"`
	Retry       struct {
		MaxElapsed      time.Duration `koanf:"max_elapsed"`
		InitialInterval time.Duration `koanf:"initial_interval"`
	} `koanf:"retry"`

	// Inputs are the positional arguments, files or directories.
	Inputs []string `koanf:"-"`
}

func loadConfig(args []string) (*Config, error) {
	f := flag.NewFlagSet("qmcdecoder", flag.ContinueOnError)
	f.Usage = func() {
		_, _ = fmt.Fprintf(os.Stderr, "usage: qmcdecoder [flags] <file or directory>...\n")
		f.PrintDefaults()
	}

	f.String("config_path", "config.yml", "the configuration file path")
	f.String("log_level", "info", "the log level: trace, debug, info, warn or error")
	f.IntP("workers", "j", runtime.NumCPU(), "the number of containers decoded concurrently")
	f.Int("buffer_size", 20480, "the size of the decode buffer in bytes")
	f.StringP("output_dir", "o", "", "write decoded files here instead of next to their containers")
	f.Bool("overwrite", false, "overwrite decoded files that already exist")
	f.BoolP("watch", "w", false, "keep watching the given directories for new containers")
	f.Duration("watch_settle", 2*time.Second, "how long a watched file must stay untouched before decoding it")
	f.Bool("version", false, "print version information and exit")

	if err := f.Parse(args); err != nil {
		return nil, err
	}

	k := koanf.New(".")

	// defaults
	if err := k.Load(confmap.Provider(map[string]interface{}{
		"log_level":              "info",
		"workers":                runtime.NumCPU(),
		"buffer_size":            20480,
		"watch_settle":           2 * time.Second,
		"retry.max_elapsed":      5 * time.Second,
		"retry.initial_interval": 100 * time.Millisecond,
	}, "."), nil); err != nil {
		return nil, fmt.Errorf("failed loading configuration defaults: %w", err)
	}

	// configuration file, if present
	configPath, _ := f.GetString("config_path")
	if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed reading configuration file: %w", err)
	}

	// command line flags, only the ones explicitly set override what was loaded before
	if err := k.Load(posflag.Provider(f, ".", k), nil); err != nil {
		return nil, fmt.Errorf("failed loading command line configuration: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed unmarshalling configuration: %w", err)
	}

	cfg.Inputs = f.Args()
	return &cfg, nil
}
