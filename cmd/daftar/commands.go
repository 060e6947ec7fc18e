package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"

	"github.com/daftar/daftar/internal/model"
	"github.com/daftar/daftar/pkg/analysis"
	"github.com/daftar/daftar/pkg/config"
	"github.com/daftar/daftar/pkg/dataset"
	"github.com/daftar/daftar/pkg/export"
	"github.com/daftar/daftar/pkg/ingest"
	"github.com/daftar/daftar/pkg/telemetry"
	"github.com/daftar/daftar/pkg/tui"
	"github.com/daftar/daftar/pkg/watch"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Analyze a registration export in the terminal",
	Long: `Analyze a registration export and print the report.

Accepts local CSV/XLSX paths and s3:// URIs.

Examples:
  daftar analyze -i pendaftaran.csv
  daftar analyze -i pendaftaran.csv --sections income,geography
  daftar analyze -i s3://exports/pendaftaran.csv --json
  daftar analyze -i pendaftaran.csv --engine duckdb`,
	RunE: runAnalyze,
}

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Display information about a registration export",
	RunE:  runInfo,
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the cleaned dataset or the report",
	Long: `Export the cleaned dataset to CSV, XLSX, or Arrow IPC, or with
--report the full report as an XLSX workbook (one sheet per section).

Examples:
  daftar export -i pendaftaran.csv -o cleaned.csv
  daftar export -i pendaftaran.csv -o cleaned.xlsx --format xlsx
  daftar export -i pendaftaran.csv -o report.xlsx --report`,
	RunE: runExport,
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Re-analyze a registration export whenever it changes",
	RunE:  runWatch,
}

func init() {
	analyzeCmd.Flags().StringVarP(&inputFile, "input", "i", "", "Input file (CSV, XLSX, or s3:// URI)")
	analyzeCmd.Flags().StringSliceVar(&sectionsFlag, "sections", nil, "Sections to show (default all)")
	analyzeCmd.Flags().StringVar(&engineFlag, "engine", "", "Aggregation engine: native | duckdb")
	analyzeCmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit the report as JSON")
	analyzeCmd.Flags().BoolVar(&noProgress, "no-progress", false, "Disable the progress bar")
	analyzeCmd.MarkFlagRequired("input")

	infoCmd.Flags().StringVarP(&inputFile, "input", "i", "", "Input file")
	infoCmd.MarkFlagRequired("input")

	exportCmd.Flags().StringVarP(&inputFile, "input", "i", "", "Input file")
	exportCmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output file")
	exportCmd.Flags().StringVar(&formatFlag, "format", "", "Export format: csv | xlsx | arrow (default from output extension)")
	exportCmd.Flags().BoolVar(&reportBook, "report", false, "Export the report workbook instead of the dataset")
	exportCmd.MarkFlagRequired("input")
	exportCmd.MarkFlagRequired("output")

	watchCmd.Flags().StringVarP(&inputFile, "input", "i", "", "Input file")
	watchCmd.Flags().StringSliceVar(&sectionsFlag, "sections", nil, "Sections to show (default all)")
	watchCmd.MarkFlagRequired("input")

	rootCmd.AddCommand(analyzeCmd, infoCmd, exportCmd, watchCmd)
}

// loadDataset loads and cleans an export, with a progress bar unless
// output must stay machine-readable.
func loadDataset(ctx context.Context, path string, quiet bool) (*dataset.Dataset, error) {
	opts := ingest.DefaultOptions()
	if !quiet {
		opts.WrapReader = func(r io.Reader, size int64) io.Reader {
			return tui.ProgressReader(r, size, "memuat data")
		}
	}
	return ingest.Load(ctx, path, opts)
}

// buildReport runs the full analysis for CLI commands.
func buildReport(ctx context.Context, ds *dataset.Dataset, engine string) (*analysis.Report, error) {
	cfg := config.Global()
	if engine == "" {
		engine = cfg.Analysis.Engine
	}

	counter, closeCounter, err := analysis.EngineCounter(engine, ds)
	if err != nil {
		return nil, err
	}
	defer closeCounter()

	return analysis.BuildReport(ctx, analysis.Meta{
		Source:      ds.SourceName,
		Rows:        ds.Len(),
		SkippedRows: ds.SkippedRows,
		Checksum:    ds.Checksum(),
	}, counter, analysis.Options{
		TopRegencies:    cfg.Analysis.TopRegencies,
		TopOccupations:  cfg.Analysis.TopOccupations,
		TopSchools:      cfg.Analysis.TopSchools,
		HighlightRegion: cfg.Analysis.HighlightRegion,
	})
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg := config.Global()

	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.Init(ctx, telemetry.OTLPConfig{
			Endpoint:       cfg.Telemetry.Endpoint,
			ServiceName:    "daftar",
			ServiceVersion: version,
			SamplingRatio:  cfg.Telemetry.SamplingRatio,
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "telemetry disabled: %v\n", err)
		} else {
			defer shutdown(context.Background())
		}
	}

	ctx, span := otel.Tracer("daftar/cli").Start(ctx, "analyze")
	defer span.End()

	ds, err := loadDataset(ctx, inputFile, jsonOutput || noProgress)
	if err != nil {
		return err
	}

	rep, err := buildReport(ctx, ds, engineFlag)
	if err != nil {
		return err
	}
	rep = rep.Filtered(sectionsFlag)

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(rep)
	}

	tui.PrintReport(os.Stdout, rep)
	return nil
}

func runInfo(cmd *cobra.Command, args []string) error {
	ds, err := loadDataset(cmd.Context(), inputFile, false)
	if err != nil {
		return err
	}

	fmt.Printf("\n%s\n", ds.SourceName)
	fmt.Printf("  rows:    %d\n", ds.Len())
	fmt.Printf("  skipped: %d\n", ds.SkippedRows)
	fmt.Printf("  columns: %d\n\n", len(model.Columns))
	fmt.Printf("  %-24s %9s %9s\n", "column", "distinct", "missing")
	for _, col := range model.Columns {
		missing := ds.CountWhere(col, dataset.PlaceholderUnknown)
		fmt.Printf("  %-24s %9d %9d\n", col, ds.NUnique(col), missing)
	}
	fmt.Println()
	return nil
}

func runExport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	ds, err := loadDataset(ctx, inputFile, false)
	if err != nil {
		return err
	}

	out, err := os.Create(outputFile)
	if err != nil {
		return err
	}
	defer out.Close()

	if reportBook {
		rep, err := buildReport(ctx, ds, engineFlag)
		if err != nil {
			return err
		}
		if err := export.WriteReportXLSX(out, rep); err != nil {
			return err
		}
		fmt.Printf("wrote report workbook to %s\n", outputFile)
		return nil
	}

	format := formatFlag
	if format == "" {
		format = extFormat(outputFile)
	}
	f, err := export.ParseFormat(format)
	if err != nil {
		return err
	}
	if err := export.Dataset(out, ds, f); err != nil {
		return err
	}
	fmt.Printf("wrote %d rows to %s\n", ds.Len(), outputFile)
	return nil
}

func extFormat(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '.' {
			return path[i+1:]
		}
	}
	return "csv"
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	analyzeOnce := func(path string) error {
		ds, err := loadDataset(ctx, path, true)
		if err != nil {
			return err
		}
		rep, err := buildReport(ctx, ds, engineFlag)
		if err != nil {
			return err
		}
		tui.PrintReport(os.Stdout, rep.Filtered(sectionsFlag))
		return nil
	}

	if err := analyzeOnce(inputFile); err != nil {
		return err
	}

	watcher, err := watch.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	watcher.OnChange = analyzeOnce
	watcher.OnError = func(path string, err error) {
		tui.PrintError(os.Stderr, err)
	}

	if err := watcher.Watch(inputFile); err != nil {
		return err
	}

	fmt.Printf("watching %s (ctrl-c to stop)\n", inputFile)
	if err := watcher.Run(ctx); err != nil && err != context.Canceled {
		return err
	}
	return nil
}
