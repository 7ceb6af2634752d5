// Package strip implements the batch mode that patches the wchar tag
// across whole toolchain trees.
package strip

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sync/atomic"

	"github.com/armtools/wchar-tag-helper/config"
	. "github.com/armtools/wchar-tag-helper/internal/cmd/globals"
	"github.com/armtools/wchar-tag-helper/patch/worker"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var (
	StripCmd = &cobra.Command{
		Use:   "strip [root ...]",
		Short: "Patch Tag_ABI_PCS_wchar_t across every object file under the given roots",
		RunE:  run,
	}

	configFile *string
	valueFlag  *uint8
	jobsFlag   *int
)

func init() {
	configFile = StripCmd.Flags().StringP("config", "f", "", "Specifies a JSON or YAML configuration file naming the targets to process")
	valueFlag = StripCmd.Flags().Uint8("value", 0, "Specifies the replacement value written to every matched object (0 marks it wchar_t-agnostic)")
	jobsFlag = StripCmd.Flags().IntP("jobs", "j", runtime.NumCPU(), "Bounds how many files are processed concurrently")
}

func run(cmd *cobra.Command, args []string) error {
	value, jobs, targets, err := resolveBatch(args)
	if err != nil {
		return err
	}

	files, err := collectFiles(targets)
	if err != nil {
		return fmt.Errorf("collect target files: %w", err)
	}

	if len(files) == 0 {
		Logger.Warn().Msg("No object files matched the configured targets")
		return nil
	}

	Logger.Info().Int("files", len(files)).Uint8("value", value).Msg("Starting batch patch")

	// One file's failure is logged and counted, never propagated, so
	// a malformed object can't abort the rest of the batch.
	group := new(errgroup.Group)
	group.SetLimit(jobs)

	var failed atomic.Int64
	for _, file := range files {
		file := file
		group.Go(func() error {
			wLogger := Logger.With().Str("file", file).Logger()

			wkr, err := worker.NewWorker(file, &value, wLogger)
			if err != nil {
				wLogger.Error().Err(err).Msg("Failed to prepare file for patching")
				failed.Add(1)
				return nil
			}

			if err = wkr.Process(cmd.Context()); err != nil {
				wLogger.Error().Err(err).Msg("File left unprocessed")
				failed.Add(1)
			}

			return nil
		})
	}

	_ = group.Wait()

	Logger.Info().
		Int("files", len(files)).
		Int64("failed", failed.Load()).
		Msg("Batch patch completed")

	return nil
}

// resolveBatch merges the command line and the optional configuration
// file into the batch parameters. Roots given on the command line take
// the flag value and default patterns.
func resolveBatch(args []string) (value uint8, jobs int, targets []config.Target, err error) {
	if *configFile == "" {
		if len(args) == 0 {
			return 0, 0, nil, errors.New("no configuration file and no roots given")
		}

		for _, root := range args {
			targets = append(targets, config.Target{Path: root, Patterns: config.DefaultPatterns})
		}

		if *valueFlag > 0x7f {
			return 0, 0, nil, fmt.Errorf("replacement value %d doesn't fit a single ULEB128 byte", *valueFlag)
		}

		return *valueFlag, *jobsFlag, targets, nil
	}

	format := config.ConfigFormatJSON
	if ext := filepath.Ext(*configFile); ext == ".yaml" || ext == ".yml" {
		format = config.ConfigFormatYAML
	}

	cfg, err := config.LoadConfigurationFromFile(*configFile, format)
	if err != nil {
		return 0, 0, nil, fmt.Errorf("load config from file: %w", err)
	}

	jobs = cfg.Jobs
	if jobs <= 0 {
		jobs = *jobsFlag
	}

	return cfg.Replacement(), jobs, cfg.Targets, nil
}

// collectFiles expands every target into the list of files to process.
// A target path that is a plain file is taken as-is; directories are
// walked for entries matching the target's base-name patterns.
func collectFiles(targets []config.Target) ([]string, error) {
	var files []string

	for _, target := range targets {
		stat, err := os.Stat(target.Path)
		if err != nil {
			return nil, err
		}

		if !stat.IsDir() {
			files = append(files, target.Path)
			continue
		}

		err = filepath.WalkDir(target.Path, func(path string, entry fs.DirEntry, err error) error {
			if err != nil {
				return err
			}

			if entry.IsDir() {
				return nil
			}

			if !entry.Type().IsRegular() {
				return nil
			}

			for _, pattern := range target.Patterns {
				match, err := filepath.Match(pattern, filepath.Base(path))
				if err != nil {
					return fmt.Errorf("pattern %q: %w", pattern, err)
				}

				if match {
					files = append(files, path)
					return nil
				}
			}

			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	return files, nil
}
