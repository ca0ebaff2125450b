// Command validate checks the board presets in a directory. For every .json,
// .yaml and .yml file it reports:
//   - parse errors and schema violations (grid size, start tiles, four probability)
//   - missing player messages
//   - boards that start full, where the first spawn can never succeed
//   - duplicate preset names
//
// It exits with a non-zero status if any preset is invalid.
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
	"github.com/wricardo/tile-grid-game/game/engine"
)

// ValidationResult captures the outcome of validating a single file.
// Info holds the summary lines of a valid preset, Errors the problems found.
type ValidationResult struct {
	File   string
	Name   string
	Valid  bool
	Errors []string
	Info   []string
}

func (r *ValidationResult) fail(format string, args ...interface{}) {
	r.Valid = false
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

// validateConfig loads and validates a single preset file.
func validateConfig(filePath string) ValidationResult {
	result := ValidationResult{
		File:   filepath.Base(filePath),
		Valid:  true,
		Errors: []string{},
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		result.fail("Failed to read file: %v", err)
		return result
	}

	config, err := engine.DecodeBoardConfig(filePath, data)
	if err != nil {
		result.fail("Invalid syntax: %v", err)
		return result
	}
	result.Name = config.Name

	if err := engine.ValidateBoardConfig(config); err != nil {
		result.fail("%s", strings.TrimPrefix(err.Error(), "config validation: "))
		return result
	}

	if config.Messages.Welcome == "" {
		result.fail("Missing required message: welcome")
	}
	if config.Messages.BoardFull == "" {
		result.fail("Missing required message: board_full")
	}

	cells := config.GridSize * config.GridSize
	if config.StartTiles == cells {
		result.fail("start_tiles (%d) fills the whole %dx%d board; spawning can never succeed",
			config.StartTiles, config.GridSize, config.GridSize)
	}

	if !result.Valid {
		return result
	}

	// Build the starting board to confirm the engine accepts the preset
	eng, err := engine.NewEngine(config, engine.NewSeededRandomSource(1))
	if err != nil {
		result.fail("Engine rejected preset: %v", err)
		return result
	}
	hints := eng.GetHints()

	result.Info = append(result.Info,
		fmt.Sprintf("✓ Name: %s", config.Name),
		fmt.Sprintf("✓ Grid: %dx%d", config.GridSize, config.GridSize),
		fmt.Sprintf("✓ Start tiles: %d", config.StartTiles),
		fmt.Sprintf("✓ Four probability: %g", config.FourProbability),
		fmt.Sprintf("✓ Available after reset: %d/%d", hints.AvailableCount, cells),
	)
	return result
}

// findPresets lists preset files in dir, sorted by name
func findPresets(dir string) ([]string, error) {
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

// validateDir validates every preset in dir and writes a report to w.
// It returns true when all presets are valid.
func validateDir(dir string, w io.Writer) (bool, error) {
	files, err := findPresets(dir)
	if err != nil {
		return false, fmt.Errorf("error finding config files: %w", err)
	}
	if len(files) == 0 {
		return false, fmt.Errorf("no presets found in %s", dir)
	}

	results := make([]ValidationResult, 0, len(files))
	names := make(map[string]string)
	for _, file := range files {
		result := validateConfig(file)
		if result.Name != "" {
			if other, exists := names[result.Name]; exists {
				result.fail("Duplicate preset name %q (also in %s)", result.Name, other)
			} else {
				names[result.Name] = result.File
			}
		}
		results = append(results, result)
	}

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
	}

	fmt.Fprintf(w, "\n%s\n", strings.Repeat("=", 40))
	if allValid {
		fmt.Fprintln(w, "✅ All configurations are valid!")
	} else {
		fmt.Fprintln(w, "❌ Some configurations have errors")
	}
	return allValid, nil
}

var errInvalidPresets = errors.New("invalid presets found")

func newApp(out io.Writer) *cli.Command {
	return &cli.Command{
		Name:      "validate",
		Usage:     "Validate board presets",
		ArgsUsage: "[dir]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "dir",
				Value:   "configs",
				Usage:   "Directory containing board presets",
				Sources: cli.EnvVars("CONFIG_DIR"),
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			dir := cmd.String("dir")
			if cmd.Args().Len() > 0 {
				dir = cmd.Args().First()
			}

			ok, err := validateDir(dir, out)
			if err != nil {
				return err
			}
			if !ok {
				return errInvalidPresets
			}
			return nil
		},
	}
}

func main() {
	if err := newApp(os.Stdout).Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
