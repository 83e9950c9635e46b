// Package limbo is the command line interface of the limbo server.
package limbo

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"github.com/spf13/viper"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"go.minekube.com/limbo/pkg/edition/java/config"
	"go.minekube.com/limbo/pkg/edition/java/limbo"
	"go.minekube.com/limbo/pkg/version"
)

var terminationSignals = []os.Signal{syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT}

// Execute runs App() and calls os.Exit when finished.
func Execute() {
	if err := App().Run(os.Args); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

const envPrefix = "LIMBO"

func App() *cli.App {
	app := cli.NewApp()
	app.Name = "limbo"
	app.Usage = "Limbo holds Minecraft players in a lightweight virtual server."
	app.Description = `A minimal Minecraft Java edition server that logs players in
and keeps them connected without a world.`
	app.Version = version.String()

	// Use -V for version, -v is verbosity.
	cli.VersionFlag = &cli.BoolFlag{
		Name:    "version",
		Aliases: []string{"V"},
		Usage:   "print the version",
	}

	var (
		debug      bool
		configFile string
		verbosity  int
	)
	app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:        "config",
			Aliases:     []string{"c"},
			Usage:       `config file (default: ./config.yml)`,
			EnvVars:     []string{envPrefix + "_CONFIG"},
			Destination: &configFile,
		},
		&cli.BoolFlag{
			Name:        "debug",
			Aliases:     []string{"d"},
			Usage:       "Enable debug mode and highest log verbosity",
			Destination: &debug,
			EnvVars:     []string{envPrefix + "_DEBUG"},
		},
		&cli.IntFlag{
			Name:        "verbosity",
			Aliases:     []string{"v"},
			Usage:       "The higher the verbosity the more logs are shown",
			EnvVars:     []string{envPrefix + "_VERBOSITY"},
			Destination: &verbosity,
		},
	}
	app.Commands = []*cli.Command{configCommand()}
	app.Action = func(c *cli.Context) error {
		v := viper.New()
		if configFile != "" {
			v.SetConfigFile(configFile)
		}
		cfg, err := LoadConfig(v)
		if err != nil {
			return cli.Exit(err, 1)
		}
		if debug {
			cfg.Debug = true
		}

		log, err := newLogger(cfg.Debug, verbosity)
		if err != nil {
			return cli.Exit(fmt.Errorf("error creating logger: %w", err), 1)
		}
		if used := v.ConfigFileUsed(); used != "" {
			log.Info("using config file", "config", used)
		}

		warns, errs := cfg.Validate()
		for _, w := range warns {
			log.Info("config validation warning", "warning", w.Error())
		}
		if len(errs) != 0 {
			return cli.Exit(fmt.Errorf("invalid config: %w", errors.Join(errs...)), 1)
		}

		ctx, stop := signal.NotifyContext(c.Context, terminationSignals...)
		defer stop()

		s, err := limbo.New(limbo.Options{Config: cfg, Logger: log})
		if err != nil {
			return cli.Exit(err, 1)
		}
		if err = s.Start(ctx); err != nil {
			return cli.Exit(fmt.Errorf("error running limbo: %w", err), 1)
		}
		log.Info("limbo stopped")
		return nil
	}
	return app
}

// LoadConfig reads the config file of v, if any, overlays environment
// variables and defaults and returns the resulting config.
// If v has no config file set, ./config.yml is read if it exists.
func LoadConfig(v *viper.Viper) (*config.Config, error) {
	explicit := v.ConfigFileUsed() != ""
	if !explicit {
		v.SetConfigName("config")
		v.SetConfigType("yml")
		v.AddConfigPath(".")
	}
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	config.SetDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if explicit || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file %q: %w", v.ConfigFileUsed(), err)
		}
	}

	var cfg config.Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error loading config: %w", err)
	}
	return &cfg, nil
}

// newLogger returns a zap backed logger. Verbosity v maps to zap level -v.
func newLogger(debug bool, v int) (logr.Logger, error) {
	var cfg zap.Config
	if debug {
		cfg = zap.NewDevelopmentConfig()
		v = max(v, 127)
	} else {
		cfg = zap.NewProductionConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(zapcore.Level(-v))
	cfg.Encoding = "console"
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	zl, err := cfg.Build()
	if err != nil {
		return logr.Discard(), err
	}
	return zapr.NewLogger(zl), nil
}
