// Command analyze prints quick, human-readable heuristics about the question
// sets in a config directory: unit counts per question, repeated units that
// produce interchangeable tiles, the widest tile, and how far the spiral and
// row-pack layouts of the largest question reach compared with the board.
package main

import (
	"context"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"

	"github.com/urfave/cli/v3"

	"github.com/wricardo/spellground/game/config"
	"github.com/wricardo/spellground/game/engine"
)

// Analysis summarizes one question set
type Analysis struct {
	Name         string
	Split        engine.SplitMode
	Questions    int
	MinUnits     int
	MaxUnits     int
	AvgUnits     float64
	Repeats      []string // questions with two or more identical units
	WidestTile   string
	WidestWidth  float64
	Largest      string // question with the most units
	SpiralExtent engine.Vec2
	RowExtent    engine.Vec2
}

// analyze computes the heuristics of set using cfg's layout tunables
func analyze(set *engine.QuestionSetConfig, cfg engine.PuzzleConfig) Analysis {
	split := set.Split
	if split == "" {
		split = engine.SplitChar
	}
	a := Analysis{
		Name:      set.Name,
		Split:     split,
		Questions: len(set.Questions),
		MinUnits:  math.MaxInt,
	}

	measurer := engine.DefaultMeasurer()
	total := 0
	var largest []string
	for _, q := range set.Questions {
		units := engine.SplitUnits(q, split)
		total += len(units)
		a.MinUnits = min(a.MinUnits, len(units))
		if len(units) > a.MaxUnits {
			a.MaxUnits = len(units)
			a.Largest = q
			largest = units
		}

		seen := make(map[string]bool, len(units))
		repeated := false
		for _, u := range units {
			if seen[u] {
				repeated = true
			}
			seen[u] = true
			if w := measurer.Measure(u).X; w > a.WidestWidth {
				a.WidestWidth = w
				a.WidestTile = u
			}
		}
		if repeated {
			a.Repeats = append(a.Repeats, q)
		}
	}
	if a.Questions > 0 {
		a.AvgUnits = float64(total) / float64(a.Questions)
	} else {
		a.MinUnits = 0
	}

	a.SpiralExtent = layoutExtent(largest, measurer, func(tiles []*engine.Tile) {
		engine.Spiral(tiles, engine.Vec2{}, cfg.SpiralMargin)
	})
	a.RowExtent = layoutExtent(largest, measurer, func(tiles []*engine.Tile) {
		engine.RowPack(tiles, engine.Vec2{}, cfg.RowGap)
	})
	return a
}

// layoutExtent lays tiles for units out with place and returns the size of
// their bounding box
func layoutExtent(units []string, m engine.TextMeasurer, place func([]*engine.Tile)) engine.Vec2 {
	if len(units) == 0 {
		return engine.Vec2{}
	}
	tiles := make([]*engine.Tile, len(units))
	for i, u := range units {
		size := m.Measure(u)
		tiles[i] = &engine.Tile{ID: i, Text: u, Width: size.X, Height: size.Y}
	}
	place(tiles)

	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, t := range tiles {
		minX = math.Min(minX, t.X-t.Width/2)
		maxX = math.Max(maxX, t.X+t.Width/2)
		minY = math.Min(minY, t.Y-t.Height/2)
		maxY = math.Max(maxY, t.Y+t.Height/2)
	}
	return engine.Vec2{X: maxX - minX, Y: maxY - minY}
}

func printAnalysis(w io.Writer, a Analysis, world engine.Bounds) {
	fmt.Fprintf(w, "Name: %s\n", a.Name)
	fmt.Fprintf(w, "Split: %s\n", a.Split)
	fmt.Fprintf(w, "Questions: %d\n", a.Questions)
	fmt.Fprintf(w, "Units per question: min %d, max %d, avg %.1f\n", a.MinUnits, a.MaxUnits, a.AvgUnits)
	fmt.Fprintf(w, "Widest tile: %q (%.0f px)\n", a.WidestTile, a.WidestWidth)

	if len(a.Repeats) > 0 {
		fmt.Fprintf(w, "ℹ️  %d questions repeat a unit, their tiles are interchangeable:\n", len(a.Repeats))
		for i, q := range a.Repeats {
			if i == 5 {
				fmt.Fprintf(w, "   ... and %d more\n", len(a.Repeats)-5)
				break
			}
			fmt.Fprintf(w, "   %q\n", q)
		}
	}

	fmt.Fprintf(w, "Largest question: %q\n", a.Largest)
	for _, l := range []struct {
		name   string
		extent engine.Vec2
	}{
		{"Spiral", a.SpiralExtent},
		{"Row pack", a.RowExtent},
	} {
		fmt.Fprintf(w, "  %s layout: %.0f x %.0f\n", l.name, l.extent.X, l.extent.Y)
		if l.extent.X > world.Width || l.extent.Y > world.Height {
			fmt.Fprintf(w, "  ⚠️  WARNING: %s layout exceeds the %.0f x %.0f board\n", l.name, world.Width, world.Height)
		}
	}
}

func run(ctx context.Context, cmd *cli.Command) error {
	dir := cmd.String("config-dir")
	if cmd.Args().Present() {
		dir = cmd.Args().First()
	}

	var files []string
	for _, pattern := range []string{"*.json", "*.yaml", "*.yml"} {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return err
		}
		files = append(files, matches...)
	}
	sort.Strings(files)

	w := cmd.Root().Writer
	if w == nil {
		w = os.Stdout
	}
	cfg := engine.DefaultPuzzleConfig()
	for _, file := range files {
		fmt.Fprintf(w, "\n=== Analyzing %s ===\n", filepath.Base(file))
		set, err := config.ReadQuestionSet(file)
		if err != nil {
			fmt.Fprintf(w, "Error reading file: %v\n", err)
			continue
		}
		printAnalysis(w, analyze(set, cfg), cfg.World)
	}
	return nil
}

func newCommand() *cli.Command {
	return &cli.Command{
		Name:      "analyze",
		Usage:     "Print layout heuristics for Spell Ground question sets",
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
