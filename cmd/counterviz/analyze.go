package main

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/shopspring/decimal"
	"github.com/urfave/cli/v2"

	"counterviz/internal/app"
	"counterviz/internal/exporter"
	"counterviz/internal/infrastructure"
	"counterviz/internal/loader"
	"counterviz/internal/usage"
	"counterviz/pkg/contracts/domain"
)

func analyzeCommand() *cli.Command {
	return &cli.Command{
		Name:  "analyze",
		Usage: "Analyze a set of TR_J1 reports",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "dir",
				Usage: "Reports directory (defaults to storage.reports_dir)",
			},
			&cli.StringSliceFlag{
				Name:    "file",
				Aliases: []string{"f"},
				Usage:   "Report file to analyze; repeatable, overrides --dir",
			},
			&cli.StringFlag{
				Name:  "s3-bucket",
				Usage: "Load reports from this bucket instead of a directory",
			},
			&cli.StringFlag{
				Name:  "s3-prefix",
				Usage: "Key prefix of the reports in --s3-bucket",
			},
			&cli.StringFlag{
				Name:  "metric",
				Usage: "Metric to analyze (unique, total)",
			},
			&cli.StringSliceFlag{
				Name:  "cost",
				Usage: "Package cost of a report as NAME=AMOUNT; repeatable",
			},
			&cli.StringFlag{
				Name:  "cost-basis",
				Usage: "Cost-per-use basis (auto, actual)",
			},
			&cli.StringSliceFlag{
				Name:  "title",
				Usage: "Title to include in the trend view; repeatable",
			},
			&cli.Float64Flag{
				Name:  "min",
				Usage: "Smallest reporting period total shown in distributions",
			},
			&cli.Float64Flag{
				Name:  "max",
				Usage: "Largest reporting period total shown in distributions",
			},
			&cli.StringFlag{
				Name:  "export-dir",
				Usage: "Write an export of the analysis to this directory",
			},
			&cli.StringFlag{
				Name:  "export-format",
				Value: string(exporter.FormatXLSX),
				Usage: "Export format (xlsx, csv)",
			},
			&cli.StringFlag{
				Name:  "format",
				Value: "text",
				Usage: "Output format (text, json)",
			},
		},
		Action: runAnalyze,
	}
}

func runAnalyze(c *cli.Context) error {
	ctx := c.Context

	cfg, err := loadConfig(c)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	outFormat := strings.ToLower(c.String("format"))
	if outFormat != "text" && outFormat != "json" {
		return fmt.Errorf("unknown output format %q", c.String("format"))
	}

	req, err := requestFromFlags(c)
	if err != nil {
		return err
	}

	var exportFormat exporter.Format
	if dir := c.String("export-dir"); dir != "" {
		cfg.Storage.ExportDir = dir
		if exportFormat, err = exporter.ParseFormat(c.String("export-format")); err != nil {
			return err
		}
	}
	if bucket := c.String("s3-bucket"); bucket != "" {
		cfg.Storage.S3.Bucket = bucket
		cfg.Storage.S3.Prefix = c.String("s3-prefix")
	}
	if dir := c.String("dir"); dir != "" {
		cfg.Storage.ReportsDir = dir
	}

	logger := infrastructure.NewLogger(c.App.ErrWriter, c.String("log-level"))
	svc := app.NewAnalysisService(cfg, nil, logger)

	var report domain.AnalysisReport
	if paths := c.StringSlice("file"); len(paths) > 0 {
		report, err = svc.AnalyzeFiles(ctx, paths, req)
	} else {
		var src loader.Source
		if src, err = app.NewLibrarySource(ctx, cfg); err != nil {
			return err
		}
		report, err = svc.AnalyzeSource(ctx, src, req)
	}
	if err != nil {
		return err
	}

	var exported string
	if exportFormat != "" {
		if exported, err = svc.SaveExport(ctx, report, exportFormat); err != nil {
			return err
		}
	}

	out := c.App.Writer
	if outFormat == "json" {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}
	if err := writeReport(out, report); err != nil {
		return err
	}
	if exported != "" {
		fmt.Fprintf(out, "\nExported to %s\n", exported)
	}
	return nil
}

// requestFromFlags builds the analysis request from the analyze flags.
func requestFromFlags(c *cli.Context) (usage.Request, error) {
	var req usage.Request

	if m := c.String("metric"); m != "" {
		metric, err := domain.ParseMetricType(m)
		if err != nil {
			return req, err
		}
		req.Metric = metric
	}

	switch basis := domain.CostPolicy(strings.ToLower(c.String("cost-basis"))); basis {
	case "":
	case domain.CostPolicyAuto, domain.CostPolicyActual:
		req.CostPolicy = basis
	default:
		return req, fmt.Errorf("unknown cost basis %q", c.String("cost-basis"))
	}

	costs, err := parseCostFlags(c.StringSlice("cost"))
	if err != nil {
		return req, err
	}
	req.Costs = costs
	req.Titles = c.StringSlice("title")

	if c.IsSet("min") || c.IsSet("max") {
		rng := &usage.UsageRange{Min: c.Float64("min"), Max: c.Float64("max")}
		if !c.IsSet("max") {
			rng.Max = math.MaxFloat64
		}
		if rng.Min < 0 || rng.Max < rng.Min {
			return req, fmt.Errorf("invalid usage range %s..%s", formatCount(rng.Min), formatCount(rng.Max))
		}
		req.UsageRange = rng
	}
	return req, nil
}

// parseCostFlags reads NAME=AMOUNT pairs. The amount accepts the same
// spellings as the upload form ("$1,250.50").
func parseCostFlags(values []string) (map[string]decimal.Decimal, error) {
	if len(values) == 0 {
		return nil, nil
	}
	costs := make(map[string]decimal.Decimal, len(values))
	for _, v := range values {
		i := strings.LastIndex(v, "=")
		if i <= 0 {
			return nil, fmt.Errorf("cost %q is not NAME=AMOUNT", v)
		}
		name := strings.TrimSpace(v[:i])
		amount, err := usage.ParseCost(v[i+1:])
		if err != nil {
			return nil, fmt.Errorf("cost for %s: %w", name, err)
		}
		costs[name] = amount
	}
	return costs, nil
}

// writeReport prints the report as aligned plain-text tables.
func writeReport(w io.Writer, report domain.AnalysisReport) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	if report.Metric != "" {
		fmt.Fprintf(tw, "Metric: %s\n", report.Metric.Label())
	}
	if report.MetricError != "" {
		fmt.Fprintf(tw, "Metric unavailable: %s\n", report.MetricError)
	}

	if len(report.Files) > 0 {
		fmt.Fprintln(tw, "\nFILE\tDATE RANGE\tMONTHS\tJOURNALS")
		for _, f := range report.Files {
			fmt.Fprintf(tw, "%s\t%s\t%d\t%d\n", f.Name, f.DateRange, f.MonthCount, f.NumJournals)
		}
	}

	if len(report.Periods) > 0 {
		fmt.Fprintln(tw, "\nPERIOD\tSPAN\tTOTAL\tPROJECTED\tCOST\tCOST/USE\tBASIS")
		for _, p := range report.Periods {
			span := "full year"
			if !p.IsFullYear {
				span = fmt.Sprintf("partial (%d days)", p.SpanDays)
			}
			projected := "-"
			if p.ProjectedUsage != nil {
				projected = strconv.FormatInt(*p.ProjectedUsage, 10)
			}
			cost, perUse := "-", "-"
			if p.Cost != nil {
				cost = usage.FormatCost(*p.Cost)
			}
			if v, ok := p.SelectedCostPerUse(); ok {
				perUse = usage.FormatCost(v)
			}
			basis := string(p.CostBasis)
			if basis == "" {
				basis = "-"
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
				p.Identifier, span, formatCount(p.ReportingTotal), projected, cost, perUse, basis)
		}
	}

	if len(report.Rejected) > 0 {
		fmt.Fprintln(tw, "\nREJECTED\tKIND\tREASON")
		for _, r := range report.Rejected {
			fmt.Fprintf(tw, "%s\t%s\t%s\n", r.Name, r.Kind, r.Reason)
		}
	}

	if len(report.Warnings) > 0 {
		fmt.Fprintln(tw, "\nWARNING\tPERIOD\tMESSAGE")
		for _, wn := range report.Warnings {
			period := wn.Period
			if period == "" {
				period = strings.Join(wn.Periods, ", ")
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\n", wn.Code, period, wn.Message)
		}
	}

	if len(report.Files) == 0 && len(report.Rejected) == 0 {
		fmt.Fprintln(tw, "No reports found")
	}
	return tw.Flush()
}

func formatCount(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
