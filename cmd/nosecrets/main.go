// Command nosecrets is an offline secret scanner meant to run as a Git
// pre-commit gate: it loads a rule pack, scans a working tree or the
// currently staged Git index, and exits non-zero when a blocking
// finding survives suppression.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/nosecrets/nosecrets/internal/config"
	"github.com/nosecrets/nosecrets/internal/gitstage"
	"github.com/nosecrets/nosecrets/internal/render"
	"github.com/nosecrets/nosecrets/pkg/engine"
	"github.com/nosecrets/nosecrets/pkg/rules"
	"github.com/nosecrets/nosecrets/pkg/scan"
	"github.com/nosecrets/nosecrets/pkg/suppress"
)

// Exit codes, per the external interface contract: 0 clean, 1 blocking
// findings, 2 usage/configuration error, 3 internal error, 130 interrupted.
const (
	exitClean       = 0
	exitFindings    = 1
	exitUsage       = 2
	exitInternal    = 3
	exitInterrupted = 130
)

var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	root := &cobra.Command{
		Use:           "nosecrets",
		Short:         "Offline secret scanner for Git pre-commit gating",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	exitCode := exitClean
	root.AddCommand(newScanCmd(&exitCode))
	root.AddCommand(newIgnoreCmd(&exitCode))

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		if exitCode == exitClean {
			exitCode = exitUsage
		}
	}
	return exitCode
}

type scanFlags struct {
	staged     bool
	format     string
	output     string
	engineName string
	noColor    bool
	rulesPath  string
	configPath string
	ignorePath string
}

func newScanCmd(exitCode *int) *cobra.Command {
	f := &scanFlags{}

	cmd := &cobra.Command{
		Use:   "scan [paths...]",
		Short: "Scan files, directories, or the staged Git index for secrets",
		RunE: func(cmd *cobra.Command, args []string) error {
			code, err := runScan(cmd, args, f)
			*exitCode = code
			return err
		},
	}

	cmd.Flags().BoolVar(&f.staged, "staged", false, "scan the currently staged Git index instead of paths")
	cmd.Flags().StringVar(&f.format, "format", "text", "output format: text, json, or md")
	cmd.Flags().StringVar(&f.output, "output", "", "write output to file (auto-detects format from .json/.md extension)")
	cmd.Flags().StringVar(&f.engineName, "engine", "auto", "match engine: auto, go, or hyperscan")
	cmd.Flags().BoolVar(&f.noColor, "no-color", false, "disable colored text output")
	cmd.Flags().StringVar(&f.rulesPath, "rules", "", "additional rule file or directory (merged with the built-in rule pack)")
	cmd.Flags().StringVar(&f.configPath, "config", ".nosecrets.toml", "path to the suppression configuration file")
	cmd.Flags().StringVar(&f.ignorePath, "ignore-file", ".nosecretsignore", "path to the fingerprint ignore file")

	return cmd
}

func runScan(cmd *cobra.Command, args []string, f *scanFlags) (int, error) {
	if !f.staged && len(args) == 0 {
		return exitUsage, fmt.Errorf("scan requires --staged or at least one path")
	}

	ruleSet, err := loadRuleSet(f.rulesPath)
	if err != nil {
		return exitInternal, err
	}

	cfg, err := config.Load(f.configPath)
	if err != nil {
		return exitUsage, err
	}

	ignoreFile, err := loadIgnoreFile(f.ignorePath)
	if err != nil {
		return exitInternal, err
	}

	matchEngine, closeEngine, err := buildEngine(f.engineName, ruleSet)
	if err != nil {
		return exitUsage, err
	}
	defer closeEngine()

	input, err := buildScanInput(f.staged, args)
	if err != nil {
		return exitInternal, err
	}

	scanner := scan.NewScanner(ruleSet, cfg, ignoreFile, matchEngine)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	start := time.Now()
	result, scanErr := runWithGracePeriod(ctx, scanner, input)
	duration := time.Since(start)

	if scanErr != nil {
		if scanErr == scan.ErrInterrupted {
			return exitInterrupted, nil
		}
		return exitInternal, scanErr
	}

	blocking := blockingFindings(result.Findings, cfg)

	outputFormat := resolveFormat(f.format, f.output)
	useColor := !f.noColor && f.output == "" && outputFormat == "text" && render.IsTerminal()

	summary := render.Summary{
		FilesScanned: result.FilesScanned,
		FilesSkipped: result.FilesSkipped,
		TotalBytes:   result.TotalBytes,
		Duration:     duration,
	}

	output, err := renderOutput(outputFormat, result.Findings, summary, scanPathLabel(f.staged, args), useColor)
	if err != nil {
		return exitInternal, err
	}

	if f.output != "" {
		if err := os.WriteFile(f.output, []byte(output), 0o644); err != nil {
			return exitInternal, fmt.Errorf("writing output file: %w", err)
		}
		fmt.Fprintf(os.Stderr, "report written to %s\n", f.output)
	} else {
		fmt.Fprint(os.Stdout, output)
	}

	for _, d := range result.Diagnostics {
		fmt.Fprintf(os.Stderr, "warning: %s: %s\n", d.Path, diagnosticMessage(d))
	}

	if len(blocking) > 0 {
		return exitFindings, nil
	}
	return exitClean, nil
}

// runWithGracePeriod cancels the scan on SIGINT and gives the
// orchestrator up to two seconds to unwind in-flight workers before the
// caller gives up waiting, per the interrupt-handling contract: no
// partial findings are ever emitted.
func runWithGracePeriod(ctx context.Context, scanner *scan.Scanner, input scan.ScanInput) (scan.Result, error) {
	type outcome struct {
		result scan.Result
		err    error
	}
	done := make(chan outcome, 1)

	go func() {
		r, err := scanner.Scan(ctx, input)
		done <- outcome{r, err}
	}()

	select {
	case o := <-done:
		return o.result, o.err
	case <-ctx.Done():
		select {
		case o := <-done:
			return o.result, o.err
		case <-time.After(2 * time.Second):
			return scan.Result{}, scan.ErrInterrupted
		}
	}
}

func blockingFindings(findings []scan.Finding, cfg *suppress.Config) []scan.Finding {
	var out []scan.Finding
	for _, f := range findings {
		if f.Severity.Blocking() || (f.Severity == rules.Low && cfg.LowIsBlocking) {
			out = append(out, f)
		}
	}
	return out
}

func loadRuleSet(extraPath string) (*rules.CompiledRuleSet, error) {
	defaults, err := rules.LoadDefaultRules()
	if err != nil {
		return nil, fmt.Errorf("loading built-in rules: %w", err)
	}

	all := defaults
	if extraPath != "" {
		extra, err := loadRulesFromPath(extraPath)
		if err != nil {
			return nil, err
		}
		all = append(all, extra...)
	}

	crs, warnings, err := rules.Compile(all)
	if err != nil {
		return nil, fmt.Errorf("compiling rules: %w", err)
	}
	for _, w := range warnings {
		fmt.Fprintln(os.Stderr, "warning:", w)
	}
	return crs, nil
}

func loadRulesFromPath(path string) ([]rules.Rule, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("reading rules path %s: %w", path, err)
	}

	var files []string
	if info.IsDir() {
		entries, err := os.ReadDir(path)
		if err != nil {
			return nil, fmt.Errorf("reading rules directory %s: %w", path, err)
		}
		for _, e := range entries {
			if !e.IsDir() && strings.HasSuffix(e.Name(), ".toml") {
				files = append(files, filepath.Join(path, e.Name()))
			}
		}
	} else {
		files = append(files, path)
	}

	var all []rules.Rule
	for _, file := range files {
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("reading rule file %s: %w", file, err)
		}
		parsed, err := rules.LoadFile(data)
		if err != nil {
			return nil, fmt.Errorf("parsing rule file %s: %w", file, err)
		}
		all = append(all, parsed...)
	}
	return all, nil
}

func loadIgnoreFile(path string) (*suppress.IgnoreFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &suppress.IgnoreFile{}, nil
		}
		return nil, fmt.Errorf("reading ignore file %s: %w", path, err)
	}
	f, warnings := suppress.ParseIgnoreFile(data)
	for _, w := range warnings {
		fmt.Fprintln(os.Stderr, "warning:", w)
	}
	return f, nil
}

func buildEngine(name string, crs *rules.CompiledRuleSet) (engine.MatchEngine, func(), error) {
	switch name {
	case "", "go":
		return engine.NewGoEngine(), func() {}, nil
	case "hyperscan":
		hs, err := engine.NewHyperscanEngine(crs)
		if err != nil {
			return nil, nil, fmt.Errorf("building hyperscan engine: %w", err)
		}
		return hs, func() { _ = hs.Close() }, nil
	case "auto":
		hs, err := engine.NewHyperscanEngine(crs)
		if err != nil {
			return engine.NewGoEngine(), func() {}, nil
		}
		return hs, func() { _ = hs.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown engine %q (use auto, go, or hyperscan)", name)
	}
}

func buildScanInput(staged bool, args []string) (scan.ScanInput, error) {
	if staged {
		return gitstage.Load(".")
	}

	var input scan.ScanInput
	for _, path := range args {
		err := filepath.Walk(path, func(p string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if info.IsDir() {
				if info.Name() == ".git" {
					return filepath.SkipDir
				}
				return nil
			}
			if info.Mode()&os.ModeSymlink != 0 {
				return nil
			}
			input.Files = append(input.Files, scan.FileSource{Path: p})
			return nil
		})
		if err != nil {
			return scan.ScanInput{}, fmt.Errorf("walking %s: %w", path, err)
		}
	}
	return input, nil
}

func resolveFormat(format, output string) string {
	if output != "" && format == "text" {
		if strings.HasSuffix(output, ".json") {
			return "json"
		}
		if strings.HasSuffix(output, ".md") {
			return "md"
		}
	}
	return format
}

func renderOutput(format string, findings []scan.Finding, summary render.Summary, scanPath string, useColor bool) (string, error) {
	switch format {
	case "text":
		return render.Text(findings, summary, useColor), nil
	case "json":
		return render.JSON(findings)
	case "md", "markdown":
		return render.Markdown(findings, scanPath, summary), nil
	default:
		return "", fmt.Errorf("unknown format %q (use text, json, or md)", format)
	}
}

func scanPathLabel(staged bool, args []string) string {
	if staged {
		return "staged changes"
	}
	return strings.Join(args, ", ")
}

func diagnosticMessage(d scan.Diagnostic) string {
	switch d.Kind {
	case scan.DiagRuleTimeout:
		return fmt.Sprintf("rule %s timed out and was skipped for this file", d.RuleID)
	case scan.DiagFileReadError:
		return fmt.Sprintf("could not read file: %v", d.Err)
	default:
		return string(d.Kind)
	}
}

func newIgnoreCmd(exitCode *int) *cobra.Command {
	var pathGlob string
	var ignoreFilePath string

	cmd := &cobra.Command{
		Use:   "ignore <fingerprint>",
		Short: "Add a finding's fingerprint to the ignore file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fingerprint := args[0]

			data, err := os.ReadFile(ignoreFilePath)
			if err != nil && !os.IsNotExist(err) {
				*exitCode = exitInternal
				return fmt.Errorf("reading %s: %w", ignoreFilePath, err)
			}

			f, _ := suppress.ParseIgnoreFile(data)
			line, isDup := f.Append(fingerprint, pathGlob)
			if isDup {
				fmt.Fprintf(os.Stderr, "%s already present in %s\n", line, ignoreFilePath)
				return nil
			}

			out := data
			if len(out) > 0 && out[len(out)-1] != '\n' {
				out = append(out, '\n')
			}
			out = append(out, []byte(line+"\n")...)
			if err := os.WriteFile(ignoreFilePath, out, 0o644); err != nil {
				*exitCode = exitInternal
				return fmt.Errorf("writing %s: %w", ignoreFilePath, err)
			}
			fmt.Printf("added %s to %s\n", line, ignoreFilePath)
			return nil
		},
	}

	cmd.Flags().StringVar(&pathGlob, "path", "", "restrict the ignore entry to paths matching this glob")
	cmd.Flags().StringVar(&ignoreFilePath, "ignore-file", ".nosecretsignore", "path to the fingerprint ignore file")
	return cmd
}
