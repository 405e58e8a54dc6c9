package main

import (
	"bufio"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"pagefoundry.io/foundry/internal/domain"
	"pagefoundry.io/foundry/internal/pkg/webclient"
	"pagefoundry.io/foundry/internal/validation"
)

var (
	checksFile   string
	liveURL      string
	outputFormat string
)

var validateCmd = &cobra.Command{
	Use:   "validate <dir>",
	Short: "Validate a local artifact directory",
	Long: `Validate runs the static battery and the free-text checks over the files
in <dir>. With --url it also fetches the live page and re-applies the
live-observable checks. Checks come from --checks (one per line) or from
arguments after the directory.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runValidate,
}

func init() {
	validateCmd.Flags().StringVar(&checksFile, "checks", "", "file with one check per line")
	validateCmd.Flags().StringVar(&liveURL, "url", "", "published URL for live validation")
	validateCmd.Flags().StringVarP(&outputFormat, "output", "o", "text", "output format (text, yaml)")
}

func runValidate(cmd *cobra.Command, args []string) error {
	files, err := loadFileSet(args[0])
	if err != nil {
		return err
	}

	checks, err := loadChecks(args[1:])
	if err != nil {
		return err
	}

	var live *validation.LiveValidator
	if liveURL != "" {
		live = validation.NewLiveValidator(webclient.New(), validation.DefaultFetchTimeout)
	}

	report := validation.NewOrchestrator(live).Run(cmd.Context(), files, checks, liveURL)

	if outputFormat == "yaml" {
		return yaml.NewEncoder(os.Stdout).Encode(report)
	}
	printReport(report)
	if !report.Static.Passed || report.Checks.PassedCount < report.Checks.TotalCount {
		// Non-zero exit so CI can gate on it even though the service never does.
		os.Exit(1)
	}
	return nil
}

// loadFileSet reads every regular file under dir, keyed by relative path.
func loadFileSet(dir string) (domain.FileSet, error) {
	files := domain.FileSet{}
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if strings.HasPrefix(d.Name(), ".") && path != dir {
				return filepath.SkipDir
			}
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		files[filepath.ToSlash(rel)] = string(data)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", dir, err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%s contains no files", dir)
	}
	return files, nil
}

// loadChecks merges --checks file lines with positional check arguments.
func loadChecks(args []string) ([]string, error) {
	checks := append([]string(nil), args...)
	if checksFile == "" {
		return checks, nil
	}

	f, err := os.Open(checksFile)
	if err != nil {
		return nil, fmt.Errorf("open checks file: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		checks = append(checks, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read checks file: %w", err)
	}
	return checks, nil
}

func printReport(report *domain.ValidationReport) {
	pass := color.New(color.FgGreen).SprintFunc()
	fail := color.New(color.FgRed).SprintFunc()
	warn := color.New(color.FgYellow).SprintFunc()

	fmt.Println("Static files:")
	if report.Static.Passed {
		fmt.Printf("  %s structural battery passed\n", pass("✓"))
	}
	for _, e := range report.Static.Errors {
		fmt.Printf("  %s %s\n", fail("✗"), e)
	}
	for _, w := range report.Static.Warnings {
		fmt.Printf("  %s %s\n", warn("!"), w)
	}

	if report.Checks.TotalCount > 0 {
		fmt.Println("\nChecks:")
		for _, r := range report.Checks.Results {
			mark := pass("✓")
			if !r.Passed {
				mark = fail("✗")
			}
			fmt.Printf("  %s %s: %s\n", mark, r.Spec.RawText, r.Detail)
		}
		fmt.Printf("\n%d/%d checks passed\n", report.Checks.PassedCount, report.Checks.TotalCount)
	}

	if report.Live != nil {
		fmt.Println("\nLive page:")
		if report.Live.Passed {
			fmt.Printf("  %s HTTP %d, %d bytes in %dms\n", pass("✓"),
				report.Live.PageInfo.StatusCode,
				report.Live.PageInfo.HTMLSizeBytes,
				report.Live.PageInfo.ResponseTimeMS)
		}
		for _, e := range report.Live.Errors {
			fmt.Printf("  %s %s\n", fail("✗"), e)
		}
		for _, w := range report.Live.Warnings {
			fmt.Printf("  %s %s\n", warn("!"), w)
		}
	}
}
