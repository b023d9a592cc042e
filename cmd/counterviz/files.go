package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/urfave/cli/v2"

	"counterviz/internal/files"
)

func filesCommand() *cli.Command {
	return &cli.Command{
		Name:  "files",
		Usage: "List the reports a directory analysis would load",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "dir",
				Usage: "Reports directory (defaults to storage.reports_dir)",
			},
		},
		Action: runFiles,
	}
}

func runFiles(c *cli.Context) error {
	dir := c.String("dir")
	if dir == "" {
		cfg, err := loadConfig(c)
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		dir = cfg.Storage.ReportsDir
	}

	reports, err := files.NewDiscovery("").FindReports(dir)
	if err != nil {
		return err
	}

	out := c.App.Writer
	latest, ok := files.GetLatestFile(reports)
	if !ok {
		fmt.Fprintf(out, "No reports found in %s\n", dir)
		return nil
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tFORMAT\tSIZE\tMODIFIED")
	for _, f := range reports {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", f.Name, f.Format, f.Size, f.ModTime.Format("2006-01-02 15:04"))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(out, "\nLatest: %s (modified %s)\n", latest.Name, latest.ModTime.Format("2006-01-02 15:04"))
	return nil
}
