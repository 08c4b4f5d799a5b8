// Command validate checks the question set files of a config directory.
// It checks:
//   - JSON or YAML structure, rejecting unknown YAML keys
//   - Required fields, split mode and health limits
//   - Question and unit lengths
//   - Duplicate questions (warning)
//   - Questions whose merged row is wider than the board (warning)
//
// It exits with a non-zero status if any file is invalid.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/wricardo/spellground/game/config"
	"github.com/wricardo/spellground/game/engine"
)

var errInvalidSets = errors.New("invalid question sets found")

// ValidationResult captures the outcome of validating a single file.
// Errors make a file invalid; Warnings and Info are reported either way.
type ValidationResult struct {
	File     string
	Valid    bool
	Errors   []string
	Warnings []string
	Info     []string
}

// validateFile loads and validates a single question set file
func validateFile(path string, cfg engine.PuzzleConfig) ValidationResult {
	result := ValidationResult{
		File:  filepath.Base(path),
		Valid: true,
	}

	set, err := config.ReadQuestionSet(path)
	if err != nil {
		result.Valid = false
		result.Errors = append(result.Errors, err.Error())
		return result
	}

	split := set.Split
	if split == "" {
		split = engine.SplitChar
	}
	result.Info = append(result.Info, fmt.Sprintf("✓ %q: %d questions, split=%s", set.Name, len(set.Questions), split))

	seen := make(map[string]int)
	measurer := engine.DefaultMeasurer()
	for i, q := range set.Questions {
		if first, dup := seen[q]; dup {
			result.Warnings = append(result.Warnings, fmt.Sprintf("Question %d %q repeats question %d", i+1, q, first+1))
		} else {
			seen[q] = i
		}

		width := rowWidth(engine.SplitUnits(q, split), measurer, cfg.MergeGap)
		if width > cfg.World.Width {
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("Question %d %q merges into a row %.0f wide, the board is %.0f", i+1, q, width, cfg.World.Width))
		}
	}

	return result
}

// rowWidth is the width of units laid side by side with gap between them
func rowWidth(units []string, m engine.TextMeasurer, gap float64) float64 {
	if len(units) == 0 {
		return 0
	}
	width := gap * float64(len(units)-1)
	for _, u := range units {
		width += m.Measure(u).X
	}
	return width
}

// questionSetFiles lists the question set files of dir in name order
func questionSetFiles(dir string) ([]string, error) {
	var files []string
	for _, pattern := range []string{"*.json", "*.yaml", "*.yml"} {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return nil, err
		}
		files = append(files, matches...)
	}
	sort.Strings(files)
	return files, nil
}

// report prints a concise report and tells whether every file was valid
func report(w io.Writer, results []ValidationResult) bool {
	allValid := true
	for _, result := range results {
		fmt.Fprintf(w, "\n%s %s\n", strings.Repeat("=", 20), result.File)

		if result.Valid {
			fmt.Fprintln(w, "✅ VALID")
			for _, info := range result.Info {
				fmt.Fprintln(w, "  "+info)
			}
		} else {
			fmt.Fprintln(w, "❌ INVALID")
			allValid = false
			for _, err := range result.Errors {
				fmt.Fprintln(w, "  ❌ "+err)
			}
		}
		for _, warning := range result.Warnings {
			fmt.Fprintln(w, "  ⚠️  "+warning)
		}
	}

	fmt.Fprintf(w, "\n%s\n", strings.Repeat("=", 40))
	if allValid {
		fmt.Fprintln(w, "✅ All question sets are valid!")
	} else {
		fmt.Fprintln(w, "❌ Some question sets have errors")
	}
	return allValid
}

func run(ctx context.Context, cmd *cli.Command) error {
	dir := cmd.String("config-dir")
	if cmd.Args().Present() {
		dir = cmd.Args().First()
	}

	files, err := questionSetFiles(dir)
	if err != nil {
		return fmt.Errorf("finding question set files: %w", err)
	}
	if len(files) == 0 {
		return fmt.Errorf("no question set files in %s", dir)
	}

	cfg := engine.DefaultPuzzleConfig()
	results := make([]ValidationResult, 0, len(files))
	for _, file := range files {
		results = append(results, validateFile(file, cfg))
	}

	w := cmd.Root().Writer
	if w == nil {
		w = os.Stdout
	}
	if !report(w, results) {
		return errInvalidSets
	}
	return nil
}

func newCommand() *cli.Command {
	return &cli.Command{
		Name:      "validate",
		Usage:     "Validate Spell Ground question set files",
		ArgsUsage: "[dir]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config-dir",
				Value:   "configs",
				Usage:   "Directory containing question sets",
				Sources: cli.EnvVars("CONFIG_DIR"),
			},
		},
		Action: run,
	}
}

func main() {
	if err := newCommand().Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
