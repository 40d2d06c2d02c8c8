package command

import (
	"errors"
	"fmt"

	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"

	"github.com/jagoanbunda/bunda-cli/internal/cli/config"
	"github.com/jagoanbunda/bunda-cli/internal/cli/output"
)

// ConfigCommand returns the config subcommand group.
func ConfigCommand() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Configuration management",
		Subcommands: []*cli.Command{
			{
				Name:   "show",
				Usage:  "Show the merged configuration",
				Action: configShow,
			},
			{
				Name:   "path",
				Usage:  "Print the configuration file path",
				Action: configPath,
			},
			{
				Name:  "init",
				Usage: "Write a default configuration file",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:    "force",
						Aliases: []string{"f"},
						Usage:   "Overwrite an existing file",
					},
				},
				Action: configInit,
			},
		},
	}
}

// configShow prints YAML unless -o asks otherwise. The YAML form is the
// file format, so its output can be saved as a config file.
func configShow(c *cli.Context) error {
	cfg, _, err := loadConfig(c)
	if err != nil {
		return err
	}
	format := output.FormatYAML
	if c.IsSet("output") {
		if format, err = output.ParseFormat(c.String("output")); err != nil {
			return err
		}
	}
	if format == output.FormatYAML {
		enc := yaml.NewEncoder(c.App.Writer)
		enc.SetIndent(2)
		if err := enc.Encode(cfg.Redacted()); err != nil {
			return err
		}
		return enc.Close()
	}
	return output.NewFormatter(format).Format(c.App.Writer, cfg.Redacted())
}

func configPath(c *cli.Context) error {
	path := c.String("config")
	if path == "" {
		path = config.DefaultPath()
	}
	fmt.Fprintln(c.App.Writer, path)
	return nil
}

func configInit(c *cli.Context) error {
	path := c.String("config")
	if path == "" {
		path = config.DefaultPath()
	}
	err := config.Init(path, c.Bool("force"))
	if errors.Is(err, config.ErrExists) {
		return fmt.Errorf("%w (use --force to overwrite)", err)
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "Wrote %s\n", path)
	return nil
}
