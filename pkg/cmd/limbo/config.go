package limbo

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"go.minekube.com/limbo/pkg/configs"
)

func configCommand() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Output default configuration file",
		Description: `Output the default configuration file to stdout or a file.
You can redirect to a file or use the --write flag:

	limbo config > config.yml
	limbo config --write              # Writes to config.yml

Available config types:
  - full (default): Full configuration with all options
  - minimal: Empty/minimal configuration (uses all defaults)`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "type",
				Aliases: []string{"t"},
				Usage:   "Config type: full or minimal",
				Value:   "full",
			},
			&cli.BoolFlag{
				Name:    "write",
				Aliases: []string{"w"},
				Usage:   "Write config to config.yml instead of stdout",
			},
		},
		Action: func(c *cli.Context) error {
			configType := c.String("type")
			var configBytes []byte

			switch configType {
			case "full":
				configBytes = configs.DefaultConfigBytes
			case "minimal":
				configBytes = configs.MinimalConfigBytes
			default:
				return cli.Exit(fmt.Sprintf("unknown config type: %s (valid types: full, minimal)", configType), 1)
			}

			if c.Bool("write") {
				outputFile := "config.yml"
				if err := os.WriteFile(outputFile, configBytes, 0644); err != nil {
					return cli.Exit(fmt.Errorf("error writing config to %q: %w", outputFile, err), 1)
				}
				_, _ = fmt.Fprintf(c.App.Writer, "Configuration written to %s\n", outputFile)
				return nil
			}

			if _, err := c.App.Writer.Write(configBytes); err != nil {
				return cli.Exit(fmt.Errorf("error writing config: %w", err), 1)
			}
			return nil
		},
	}
}
