// Package analyze is a subcommand of the root command. It derives topdown metrics from
// profiler counter samples and classifies each sample by its dominant bottleneck.
package analyze

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"topdown/internal/app"
	"topdown/internal/arch"
	"topdown/internal/progress"
	"topdown/internal/report"
	"topdown/internal/table"
	"topdown/internal/topdown"
	"topdown/internal/util"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"golang.org/x/term"
)

const cmdName = "analyze"

var examples = []string{
	fmt.Sprintf("  Analyze Ivy Bridge samples:              $ %s %s --input run.json", app.Name, cmdName),
	fmt.Sprintf("  Analyze Broadwell samples as CSV:        $ %s %s --input run.json --arch broadwell --format csv", app.Name, cmdName),
	fmt.Sprintf("  Add a summary and write to a directory:  $ %s %s --input run.csv --summary --output ./results", app.Name, cmdName),
	fmt.Sprintf("  Add user-defined metrics:                $ %s %s --input run.json --metricfile metrics.yaml", app.Name, cmdName),
	fmt.Sprintf("  Export results to Prometheus:            $ %s %s --input run.json --prometheus-server :9090", app.Name, cmdName),
	fmt.Sprintf("  List supported architectures:            $ %s %s --list", app.Name, cmdName),
}

var Cmd = &cobra.Command{
	Use:           cmdName,
	Short:         "Derive topdown metrics and boundedness from counter samples",
	Long:          "",
	Example:       strings.Join(examples, "\n"),
	RunE:          runCmd,
	PreRunE:       validateFlags,
	GroupID:       "primary",
	Args:          cobra.NoArgs,
	SilenceErrors: true,
}

var (
	// input options
	flagInput string
	flagArch  string
	// output options
	flagFormat  string
	flagSummary bool
	// advanced options
	flagList             bool
	flagMetricFilePath   string
	flagPrometheusServer string
	flagRegionField      string
)

const (
	flagInputName = "input"
	flagArchName  = "arch"

	flagFormatName  = "format"
	flagSummaryName = "summary"

	flagListName             = "list"
	flagMetricFilePathName   = "metricfile"
	flagPrometheusServerName = "prometheus-server"
	flagRegionFieldName      = "region-field"
)

var formatOptions = []string{report.FormatTxt, report.FormatJson, report.FormatCsv, report.FormatXlsx}

func init() {
	Cmd.Flags().StringVar(&flagInput, flagInputName, "", "")
	Cmd.Flags().StringVar(&flagArch, flagArchName, arch.IvyBridge, "")

	Cmd.Flags().StringVar(&flagFormat, flagFormatName, report.FormatTxt, "")
	Cmd.Flags().BoolVar(&flagSummary, flagSummaryName, false, "")

	Cmd.Flags().BoolVar(&flagList, flagListName, false, "")
	Cmd.Flags().StringVar(&flagMetricFilePath, flagMetricFilePathName, "", "")
	Cmd.Flags().StringVar(&flagPrometheusServer, flagPrometheusServerName, "", "")
	Cmd.Flags().StringVar(&flagRegionField, flagRegionFieldName, "path", "")

	Cmd.SetUsageFunc(usageFunc)
}

func usageFunc(cmd *cobra.Command) error {
	cmd.Printf("Usage: %s [flags]\n\n", cmd.CommandPath())
	cmd.Printf("Examples:\n%s\n\n", cmd.Example)
	cmd.Println("Flags:")
	for _, group := range getFlagGroups() {
		cmd.Printf("  %s:\n", group.GroupName)
		for _, flag := range group.Flags {
			flagDefault := ""
			if cmd.Flags().Lookup(flag.Name).DefValue != "" {
				flagDefault = fmt.Sprintf(" (default: %s)", cmd.Flags().Lookup(flag.Name).DefValue)
			}
			cmd.Printf("    --%-20s %s%s\n", flag.Name, flag.Help, flagDefault)
		}
	}
	cmd.Println("\nGlobal Flags:")
	cmd.Parent().PersistentFlags().VisitAll(func(pf *pflag.Flag) {
		flagDefault := ""
		if pf.DefValue != "" {
			flagDefault = fmt.Sprintf(" (default: %s)", pf.DefValue)
		}
		cmd.Printf("  --%-20s %s%s\n", pf.Name, pf.Usage, flagDefault)
	})
	return nil
}

func getFlagGroups() []app.FlagGroup {
	var groups []app.FlagGroup
	flags := []app.Flag{
		{
			Name: flagInputName,
			Help: "profiler output with one row of counter values per region (.json, .jsonl, .ndjson, or .csv)",
		},
		{
			Name: flagArchName,
			Help: fmt.Sprintf("CPU architecture the counters were collected on, options: %s", strings.Join(arch.Names(), ", ")),
		},
	}
	groups = append(groups, app.FlagGroup{
		GroupName: "Input Options",
		Flags:     flags,
	})
	flags = []app.Flag{
		{
			Name: flagFormatName,
			Help: fmt.Sprintf("output format, options: %s", strings.Join(formatOptions, ", ")),
		},
		{
			Name: flagSummaryName,
			Help: "append statistics of each metric and counts of each boundedness category",
		},
	}
	groups = append(groups, app.FlagGroup{
		GroupName: "Output Options",
		Flags:     flags,
	})
	flags = []app.Flag{
		{
			Name: flagListName,
			Help: "show supported architectures and their counters and exit",
		},
		{
			Name: flagMetricFilePathName,
			Help: "YAML file with additional metric definitions, expressed in counter and metric names",
		},
		{
			Name: flagPrometheusServerName,
			Help: "address, e.g., :9090, on which to serve the results as Prometheus metrics until interrupted",
		},
		{
			Name: flagRegionFieldName,
			Help: "input field that names each sample's region, used as a Prometheus label",
		},
	}
	groups = append(groups, app.FlagGroup{
		GroupName: "Advanced Options",
		Flags:     flags,
	})
	return groups
}

func validateFlags(cmd *cobra.Command, args []string) error {
	if flagList {
		return nil
	}
	if flagInput == "" {
		return app.FlagValidationError(cmd, fmt.Sprintf("--%s is required", flagInputName))
	}
	if _, err := table.FormatFromPath(flagInput); err != nil {
		return app.FlagValidationError(cmd, err.Error())
	}
	exists, err := util.FileExists(flagInput)
	if err != nil {
		return app.FlagValidationError(cmd, fmt.Sprintf("input file: %v", err))
	}
	if !exists {
		return app.FlagValidationError(cmd, fmt.Sprintf("input file %s does not exist", flagInput))
	}
	// resolve early so that an unknown architecture fails before any input is read
	if _, err := arch.Resolve(flagArch); err != nil {
		return app.FlagValidationError(cmd, err.Error())
	}
	if !util.StringInList(flagFormat, formatOptions) {
		return app.FlagValidationError(cmd, fmt.Sprintf("invalid format: %s, valid options are: %s", flagFormat, strings.Join(formatOptions, ", ")))
	}
	outputDir, _ := cmd.Flags().GetString(app.FlagOutputDirName)
	if flagFormat == report.FormatXlsx && outputDir == "" && term.IsTerminal(int(os.Stdout.Fd())) {
		return app.FlagValidationError(cmd, fmt.Sprintf("%s format requires --%s or redirected output", report.FormatXlsx, app.FlagOutputDirName))
	}
	if flagMetricFilePath != "" {
		exists, err := util.FileExists(flagMetricFilePath)
		if err != nil || !exists {
			return app.FlagValidationError(cmd, fmt.Sprintf("metric file %s does not exist", flagMetricFilePath))
		}
	}
	if cmd.Flags().Changed(flagRegionFieldName) && flagPrometheusServer == "" {
		return app.FlagValidationError(cmd, fmt.Sprintf("--%s requires --%s", flagRegionFieldName, flagPrometheusServerName))
	}
	return nil
}

func runCmd(cmd *cobra.Command, args []string) error {
	appContext := cmd.Parent().Context().Value(app.Context{}).(app.Context)
	if flagList {
		printArchitectures(cmd.OutOrStdout())
		return nil
	}
	// progress is shown only when the report goes to a file
	var statusUpdate progress.MultiSpinnerUpdateFunc
	var multiSpinner *progress.MultiSpinner
	if appContext.OutputDir != "" {
		multiSpinner = progress.NewMultiSpinner()
		for _, stage := range []string{stageInput, stageAnalysis} {
			_ = multiSpinner.AddSpinner(stage)
		}
		multiSpinner.Start()
		statusUpdate = multiSpinner.Status
	}
	result, summary, err := analyze(flagInput, flagArch, flagMetricFilePath, flagSummary, statusUpdate)
	if multiSpinner != nil {
		multiSpinner.Finish()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		slog.Error(err.Error())
		cmd.SilenceUsage = true
		return err
	}
	out, err := render(flagFormat, result.Records, summary)
	if err != nil {
		err = fmt.Errorf("failed to render %s output: %w", flagFormat, err)
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		slog.Error(err.Error())
		cmd.SilenceUsage = true
		return err
	}
	if appContext.OutputDir == "" {
		if _, err = cmd.OutOrStdout().Write(out); err != nil {
			return err
		}
	} else {
		outputFile := filepath.Join(appContext.OutputDir, util.OutputFileName(flagInput, app.Name, flagFormat))
		if err = os.WriteFile(outputFile, out, 0644); err != nil { // #nosec G306
			err = fmt.Errorf("failed to write output file: %w", err)
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			slog.Error(err.Error())
			cmd.SilenceUsage = true
			return err
		}
		slog.Info("output file written", slog.String("file", outputFile))
		fmt.Fprintf(cmd.OutOrStdout(), "Report files:\n  %s\n", outputFile)
	}
	if flagPrometheusServer != "" {
		return serveMetrics(cmd.Context(), flagPrometheusServer, result.Samples, flagRegionField)
	}
	return nil
}

const (
	stageInput    = "input"
	stageAnalysis = "analysis"
)

// analyze loads the input and runs the topdown analysis. The summary is nil unless
// requested. statusUpdate may be nil.
func analyze(inputPath string, archName string, metricFilePath string, withSummary bool, statusUpdate progress.MultiSpinnerUpdateFunc) (result topdown.Result, summary *topdown.Summary, err error) {
	if statusUpdate == nil {
		statusUpdate = func(string, string) error { return nil }
	}
	var expressions *topdown.ExpressionSet
	if metricFilePath != "" {
		_ = statusUpdate(stageInput, "loading metric definitions")
		if expressions, err = topdown.LoadExpressions(metricFilePath); err != nil {
			_ = statusUpdate(stageInput, "failed to load metric definitions")
			return
		}
		slog.Info("loaded metric definitions", slog.String("file", metricFilePath), slog.Int("count", len(expressions.Definitions)))
	}
	_ = statusUpdate(stageInput, "loading samples")
	samples, err := table.Load(inputPath)
	if err != nil {
		_ = statusUpdate(stageInput, "failed to load samples")
		return
	}
	_ = statusUpdate(stageInput, fmt.Sprintf("loaded %d samples", len(samples.Rows)))
	slog.Info("loaded samples", slog.String("file", inputPath), slog.Int("rows", len(samples.Rows)), slog.Int("columns", len(samples.Columns)))
	_ = statusUpdate(stageAnalysis, "deriving metrics")
	if result, err = topdown.Analyze(samples, archName, topdown.Options{Expressions: expressions}); err != nil {
		_ = statusUpdate(stageAnalysis, "failed")
		return
	}
	if withSummary {
		_ = statusUpdate(stageAnalysis, "summarizing")
		s := topdown.Summarize(result.Samples)
		summary = &s
	}
	_ = statusUpdate(stageAnalysis, fmt.Sprintf("classified %d samples", len(result.Records)))
	return
}

// render formats the records, followed by the summary if present
func render(format string, records []topdown.Record, summary *topdown.Summary) ([]byte, error) {
	switch format {
	case report.FormatJson:
		out, err := report.CreateJSONLines(records)
		if err != nil || summary == nil {
			return out, err
		}
		summaryOut, err := report.CreateJSONLines([]summaryJSON{newSummaryJSON(*summary)})
		if err != nil {
			return nil, err
		}
		return append(out, summaryOut...), nil
	case report.FormatTxt:
		allTableValues := sampleTables(records)
		if summary != nil {
			allTableValues = append(allTableValues, summaryTables(*summary)...)
		}
		return report.Create(format, allTableValues)
	default:
		allTableValues := []table.TableValues{recordsTable(records)}
		if summary != nil {
			allTableValues = append(allTableValues, summaryTables(*summary)...)
		}
		return report.Create(format, allTableValues)
	}
}

func printArchitectures(w io.Writer) {
	for _, a := range arch.All() {
		fmt.Fprintf(w, "%s: %s, %d slots, L1 latency %d cycles\n", a.Name, a.Description, a.Slots, a.L1Latency)
		for _, c := range arch.Counters() {
			fmt.Fprintf(w, "  %-20s %s\n", c, a.Field(c))
		}
	}
}
