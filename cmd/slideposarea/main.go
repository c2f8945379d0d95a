package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"slideposarea/internal/logger"
	"slideposarea/pkg/config"
	"slideposarea/pkg/processor"
	"slideposarea/pkg/report"
)

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: slideposarea [flags] <mode> [mode flags] <args>

Modes:
  single <input.xlsx>     Process a single input workbook
  batch  <input-dir>      Validate and process every workbook in a directory
  report <processed-dir>  Generate a summary report from processed workbooks

Flags:
`)
	flag.PrintDefaults()
}

func main() {
	verbose := flag.Bool("verbose", false, "Detailed progress output")
	quiet := flag.Bool("quiet", false, "Minimal output")
	configPath := flag.String("config", "slideposarea.yaml", "Configuration file (optional)")
	flag.Usage = usage
	flag.Parse()

	if *verbose && *quiet {
		fmt.Fprintln(os.Stderr, "Error: Cannot use both -verbose and -quiet")
		os.Exit(1)
	}
	if flag.NArg() < 1 {
		usage()
		os.Exit(1)
	}

	log := logger.New(*verbose, *quiet)

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("loading configuration")
	}

	switch flag.Arg(0) {
	case "single":
		modeSingle(flag.Args()[1:], cfg, log, *quiet)
	case "batch":
		modeBatch(flag.Args()[1:], cfg, log, *quiet)
	case "report":
		modeReport(flag.Args()[1:], cfg, log, *quiet)
	default:
		fmt.Fprintf(os.Stderr, "Unknown mode: %s\n", flag.Arg(0))
		usage()
		os.Exit(1)
	}
}

// modeSingle validates and processes one input workbook.
func modeSingle(args []string, cfg *config.Config, log zerolog.Logger, quiet bool) {
	fs := flag.NewFlagSet("single", flag.ExitOnError)
	outputDir := fs.String("output-dir", "", "Output directory (default from config)")
	fs.Parse(args)
	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Usage: slideposarea single [-output-dir dir] <input.xlsx>")
		os.Exit(1)
	}
	input := fs.Arg(0)
	outDir := pick(*outputDir, cfg.Output.Dir)

	if !quiet {
		fmt.Printf("Validating %s...\n", filepath.Base(input))
	}
	validator := processor.NewValidator(cfg.Analysis, outDir, log)
	if issues := validator.Validate(input); len(issues) > 0 {
		fmt.Println("Validation failed:")
		for _, issue := range issues {
			fmt.Printf("   - %s\n", issue)
		}
		os.Exit(1)
	}
	if !quiet {
		fmt.Println("Validation passed")
	}

	engine := processor.NewEngine(cfg.Analysis, log)
	outPath, err := engine.ProcessFile(input, outDir)
	if err != nil {
		log.Fatal().Err(err).Str("file", input).Msg("processing failed")
	}
	if !quiet {
		fmt.Printf("\nSuccessfully processed: %s\n", filepath.Base(outPath))
		fmt.Printf("   Output: %s\n", outPath)
	}
}

// modeBatch validates every workbook in a directory up front and only
// processes when the whole batch is clean.
func modeBatch(args []string, cfg *config.Config, log zerolog.Logger, quiet bool) {
	fs := flag.NewFlagSet("batch", flag.ExitOnError)
	outputDir := fs.String("output-dir", "", "Output directory (default from config)")
	dryRun := fs.Bool("dry-run", false, "Validate only, do not process")
	fs.Parse(args)
	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Usage: slideposarea batch [-output-dir dir] [-dry-run] <input-dir>")
		os.Exit(1)
	}
	inputDir := fs.Arg(0)
	outDir := pick(*outputDir, cfg.Output.Dir)

	files, err := processor.FindWorkbooks(inputDir)
	if err != nil {
		log.Fatal().Err(err).Msg("listing input workbooks")
	}
	if len(files) == 0 {
		fmt.Printf("No Excel files found in %s\n", inputDir)
		return
	}
	if !quiet {
		fmt.Printf("Found %d Excel file(s) in %s\n", len(files), inputDir)
	}

	banner(fmt.Sprintf("PRE-FLIGHT VALIDATION - Checking %d file(s)", len(files)))
	validator := processor.NewValidator(cfg.Analysis, outDir, log)
	results, clean := validator.ValidateAll(files)
	failed := 0
	for _, r := range results {
		if len(r.Issues) == 0 {
			log.Debug().Str("file", r.Path).Msg("validation passed")
			continue
		}
		failed++
		fmt.Printf("\n%s:\n", filepath.Base(r.Path))
		for _, issue := range r.Issues {
			fmt.Printf("   - %s\n", issue)
		}
	}
	if !clean {
		banner(fmt.Sprintf("%d file(s) failed validation", failed))
		fmt.Println("Please fix the issues above before processing.")
		os.Exit(1)
	}
	banner(fmt.Sprintf("All %d file(s) passed validation", len(files)))

	if *dryRun {
		fmt.Println("Dry run complete. No files were processed.")
		return
	}

	banner(fmt.Sprintf("PROCESSING %d FILE(S)", len(files)))
	engine := processor.NewEngine(cfg.Analysis, log)
	successful, errored := 0, 0
	for i, file := range files {
		if !quiet {
			fmt.Printf("[%d/%d] Processing %s...\n", i+1, len(files), filepath.Base(file))
		}
		outPath, err := engine.ProcessFile(file, outDir)
		if err != nil {
			errored++
			log.Error().Err(err).Str("file", file).Msg("processing failed")
			continue
		}
		successful++
		if !quiet {
			fmt.Printf("   Created: %s\n", filepath.Base(outPath))
		}
	}

	banner("BATCH PROCESSING COMPLETE")
	fmt.Printf("Successful: %d\n", successful)
	fmt.Printf("Failed: %d\n", errored)
	fmt.Printf("Output directory: %s\n", outDir)
	if errored > 0 {
		os.Exit(1)
	}
}

// modeReport builds a summary workbook from processed outputs.
func modeReport(args []string, cfg *config.Config, log zerolog.Logger, quiet bool) {
	fs := flag.NewFlagSet("report", flag.ExitOnError)
	output := fs.String("output", "", "Output filename (default: Summary-<timestamp>.xlsx)")
	fs.Parse(args)
	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Usage: slideposarea report [-output file] <processed-dir>")
		os.Exit(1)
	}
	processedDir := fs.Arg(0)

	processed, err := filepath.Glob(filepath.Join(processedDir, "*_processed.xlsx"))
	if err != nil || len(processed) == 0 {
		fmt.Printf("No processed files (*_processed.xlsx) found in %s\n", processedDir)
		os.Exit(1)
	}
	if !quiet {
		fmt.Printf("Found %d processed file(s)\n", len(processed))
	}

	outPath := *output
	if outPath == "" {
		timestamp := time.Now().Format("20060102_150405")
		outPath = filepath.Join(processedDir, fmt.Sprintf("Summary-%s.xlsx", timestamp))
	}

	if err := report.Generate(processed, outPath, log); err != nil {
		log.Fatal().Err(err).Msg("generating report")
	}
	if !quiet {
		fmt.Printf("\nSummary report created: %s\n", outPath)
	}
}

func banner(title string) {
	line := "============================================================"
	fmt.Printf("\n%s\n%s\n%s\n", line, title, line)
}

func pick(flagValue, configValue string) string {
	if flagValue != "" {
		return flagValue
	}
	return configValue
}
