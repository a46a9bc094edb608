package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	orderedmap "github.com/wk8/go-ordered-map/v2"
	"golang.org/x/sync/errgroup"

	"github.com/societymartingale/dockerfile-analyzer/internal/cache"
	"github.com/societymartingale/dockerfile-analyzer/internal/config"
	"github.com/societymartingale/dockerfile-analyzer/pkg/dockerfile"
)

var (
	// Version information (set by build)
	version   = "dev"
	commit    = "unknown"
	buildTime = "unknown"

	// Global flags
	cfgFile string
	verbose bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "dockerfile-analyzer",
	Short: "Static analysis for Dockerfiles",
	Long: `dockerfile-analyzer parses Dockerfiles and reports structural facts
about them without building anything.

Reported per file:
- Stage topology and multi-stage relationships (FROM, COPY/ADD --from)
- Base images decomposed into registry, name, tag and digest
- Unused build stages
- Exposed ports, instruction statistics, ARG/ENV/LABEL declarations`,
	Version: version,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if verbose {
			fmt.Fprintf(os.Stderr, "dockerfile-analyzer version: %s\n", version)
		}
	},
}

// analyzeCmd represents the analyze command
var analyzeCmd = &cobra.Command{
	Use:   "analyze [flags] [PATH...]",
	Short: "Analyze one or more Dockerfiles",
	Long: `Analyze the given Dockerfiles and print one report per file.
With no PATH, ./Dockerfile is analyzed. A PATH of "-" reads from stdin.
Files are analyzed concurrently; reports are printed in input order.`,
	RunE: runAnalyzeCommand,
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("dockerfile-analyzer version: %s\n", version)
		fmt.Printf("Git commit: %s\n", commit)
		fmt.Printf("Build time: %s\n", buildTime)
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.dockerfile-analyzer.json)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	// Analyze command flags
	analyzeCmd.Flags().String("format", config.FormatJSON, "report format (json, text)")
	analyzeCmd.Flags().Bool("pretty", false, "indent JSON output")
	analyzeCmd.Flags().Int("jobs", 0, "maximum number of files analyzed concurrently (0 = number of CPUs)")
	analyzeCmd.Flags().Bool("fail-fast", false, "stop at the first file that fails to analyze")

	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(versionCmd)

	viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
}

// initConfig reads in config file and ENV variables if set
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		viper.AddConfigPath(home)
		viper.AddConfigPath(".")
		viper.SetConfigType("json")
		viper.SetConfigName(".dockerfile-analyzer")
	}

	viper.SetEnvPrefix("DOCKERFILE_ANALYZER")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil && verbose {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// fileReport is the per-file outcome: an analysis or the error that
// prevented one.
type fileReport struct {
	ID       uuid.UUID
	Path     string
	Analysis *dockerfile.Analysis
	Err      error
}

// runAnalyzeCommand handles the analyze command execution
func runAnalyzeCommand(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfiguration(cmd)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	paths := args
	if len(paths) == 0 {
		paths = []string{"Dockerfile"}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Fprintln(os.Stderr, "\nAnalysis interrupted by user")
		cancel()
	}()

	reports, err := analyzeAll(ctx, cfg, paths)
	if err != nil {
		return err
	}

	failed := 0
	for _, report := range reports {
		if err := writeReport(os.Stdout, cfg, report); err != nil {
			return err
		}
		if report.Err != nil {
			failed++
		}
	}

	if failed > 0 {
		return errors.Errorf("%d of %d files failed to analyze", failed, len(reports))
	}
	return nil
}

// analyzeAll runs the per-file analyses concurrently, bounded by the
// configured job count. Report order matches input order regardless of
// completion order.
func analyzeAll(ctx context.Context, cfg *config.Config, paths []string) ([]*fileReport, error) {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Jobs)

	// Identical file contents are analyzed once and shared.
	results := cache.New()

	reports := make([]*fileReport, len(paths))
	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			analysis, err := analyzePath(results, path)
			if err != nil {
				if cfg.FailFast {
					return err
				}
				reports[i] = &fileReport{ID: uuid.New(), Path: path, Err: err}
				return nil
			}
			reports[i] = &fileReport{ID: uuid.New(), Path: path, Analysis: analysis}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return reports, nil
}

// analyzePath analyzes one input. "-" means stdin.
func analyzePath(results *cache.Cache, path string) (*dockerfile.Analysis, error) {
	if path == "-" {
		analysis, err := dockerfile.AnalyzeReader(os.Stdin)
		if err != nil {
			return nil, errors.Wrap(err, "analyzing stdin")
		}
		return analysis, nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s", path)
	}
	analysis, err := results.Analyze(content)
	if err != nil {
		return nil, errors.Wrapf(err, "analyzing %s", path)
	}
	return analysis, nil
}

// loadConfiguration loads the file/env configuration and applies
// command-line flag overrides on top.
func loadConfiguration(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(viper.GetString("config"))
	if err != nil {
		return nil, err
	}

	if cmd.Flags().Changed("format") {
		cfg.Format, _ = cmd.Flags().GetString("format")
	}
	if cmd.Flags().Changed("pretty") {
		cfg.Pretty, _ = cmd.Flags().GetBool("pretty")
	}
	if cmd.Flags().Changed("jobs") {
		jobs, _ := cmd.Flags().GetInt("jobs")
		if jobs > 0 {
			cfg.Jobs = jobs
		}
	}
	if cmd.Flags().Changed("fail-fast") {
		cfg.FailFast, _ = cmd.Flags().GetBool("fail-fast")
	}
	cfg.Debug = cfg.Debug || verbose

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// writeReport prints one report in the configured format.
func writeReport(w io.Writer, cfg *config.Config, report *fileReport) error {
	if cfg.Format == config.FormatText {
		return writeTextReport(w, report)
	}
	return writeJSONReport(w, cfg, report)
}

// writeJSONReport emits one envelope per file. The envelope preserves
// field order through the ordered-map representation of the analysis.
func writeJSONReport(w io.Writer, cfg *config.Config, report *fileReport) error {
	envelope := orderedmap.New[string, any]()
	envelope.Set("id", report.ID.String())
	envelope.Set("file", report.Path)
	if report.Err != nil {
		failure := orderedmap.New[string, any]()
		if kind := dockerfile.KindOf(report.Err); kind != "" {
			failure.Set("kind", string(kind))
		}
		failure.Set("message", report.Err.Error())
		envelope.Set("error", failure)
	} else {
		envelope.Set("analysis", report.Analysis.ToMap())
	}

	var (
		data []byte
		err  error
	)
	if cfg.Pretty {
		data, err = json.MarshalIndent(envelope, "", "  ")
	} else {
		data, err = json.Marshal(envelope)
	}
	if err != nil {
		return errors.Wrapf(err, "encoding report for %s", report.Path)
	}

	_, err = fmt.Fprintln(w, string(data))
	return err
}

func writeTextReport(w io.Writer, report *fileReport) error {
	fmt.Fprintf(w, "%s (%s)\n", report.Path, report.ID)
	if report.Err != nil {
		if kind := dockerfile.KindOf(report.Err); kind != "" {
			fmt.Fprintf(w, "  error (%s): %v\n", kind, report.Err)
		} else {
			fmt.Fprintf(w, "  error: %v\n", report.Err)
		}
		return nil
	}

	a := report.Analysis
	fmt.Fprintf(w, "  stages: %d", a.NumStages)
	if a.Multistage.IsMultistage {
		fmt.Fprint(w, " (multistage)")
	}
	fmt.Fprintln(w)

	images := make([]string, 0, len(a.Images))
	for _, image := range a.Images {
		images = append(images, image.Full)
	}
	fmt.Fprintf(w, "  images: %s\n", joinOrDash(images))
	fmt.Fprintf(w, "  stage names: %s\n", joinOrDash(a.StageNames))
	fmt.Fprintf(w, "  copied from: %s\n", joinOrDash(a.CopyFromStages))
	fmt.Fprintf(w, "  added from: %s\n", joinOrDash(a.AddFromStages))
	fmt.Fprintf(w, "  unused stages: %s\n", joinOrDash(a.Multistage.UnusedStages))
	fmt.Fprintf(w, "  exposed ports: %s\n", joinOrDash(a.ExposedPorts))
	fmt.Fprintf(w, "  instructions: %d\n", a.Instructions.TotalCount)
	return nil
}

func joinOrDash(values []string) string {
	if len(values) == 0 {
		return "-"
	}
	return strings.Join(values, ", ")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
