// Command counterviz analyzes COUNTER TR_J1 journal usage reports.
//
// Usage:
//
//	counterviz analyze --dir reports/ --cost FY21.xlsx=12000
//	counterviz serve
//	counterviz files --dir reports/
package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"counterviz/internal/config"
	"counterviz/pkg/contracts"
)

func main() {
	if err := newCLI().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newCLI() *cli.App {
	return &cli.App{
		Name:    config.AppName,
		Usage:   "Normalize, project and cost COUNTER TR_J1 journal usage reports",
		Version: contracts.GetFullVersionString(),
		// Cost amounts such as "1,250.50" must not be split.
		DisableSliceFlagSeparator: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to a YAML configuration file",
				EnvVars: []string{config.ConfigPathEnv},
			},
			&cli.StringFlag{
				Name:  "log-level",
				Value: "warn",
				Usage: "Log level of CLI commands (debug, info, warn, error)",
			},
		},
		Commands: []*cli.Command{
			analyzeCommand(),
			serveCommand(),
			filesCommand(),
		},
	}
}

// loadConfig honours --config, falling back to the standard lookup.
func loadConfig(c *cli.Context) (*config.Config, error) {
	if path := c.String("config"); path != "" {
		return config.LoadFile(path)
	}
	return config.Load()
}
