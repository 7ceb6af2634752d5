package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime/debug"
	"strconv"

	. "github.com/armtools/wchar-tag-helper/internal/cmd/globals"
	"github.com/armtools/wchar-tag-helper/internal/cmd/strip"
	"github.com/armtools/wchar-tag-helper/patch/worker"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	rootCmd = cobra.Command{
		Use:     "wchar-tag-helper <file> [wchar-size]",
		Version: "devel",
		Short:   "Inspect and patch the Tag_ABI_PCS_wchar_t build attribute of ARM EABI ELF files",
		Long: "Reports the Tag_ABI_PCS_wchar_t value of every ARM-attributes section in the given\n" +
			"object file or ar archive. With a second argument the tag is patched in place,\n" +
			"most commonly with 0 to mark the file as wchar_t-agnostic.",
		Args:              validateArgs,
		PersistentPreRunE: preRun,
		RunE:              run,
	}

	verbose *bool
)

func init() {
	if buildInfo, ok := debug.ReadBuildInfo(); ok {
		rootCmd.Version = buildInfo.Main.Version
	}

	verbose = rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enables logging of debug level logs by the utility")

	rootCmd.AddCommand(strip.StripCmd)
}

// validateArgs rejects bad argument shapes before any file is opened,
// so usage errors stay distinct from in-file parse errors.
func validateArgs(cmd *cobra.Command, args []string) error {
	if err := cobra.RangeArgs(1, 2)(cmd, args); err != nil {
		return err
	}

	if len(args) == 2 {
		if _, err := parseReplacement(args[1]); err != nil {
			return err
		}
	}

	return nil
}

// parseReplacement parses a replacement value argument, constrained to
// one byte of ULEB128 so a patch never changes the encoded length.
func parseReplacement(arg string) (uint8, error) {
	value, err := strconv.ParseUint(arg, 10, 8)
	if err != nil {
		return 0, fmt.Errorf("invalid Tag_ABI_PCS_wchar_t value %q", arg)
	}

	if value > 0x7f {
		return 0, fmt.Errorf("Tag_ABI_PCS_wchar_t value %d doesn't fit a single ULEB128 byte", value)
	}

	return uint8(value), nil
}

func preRun(_ *cobra.Command, _ []string) error {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if *verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	return nil
}

func run(cmd *cobra.Command, args []string) error {
	var replacement *uint8
	if len(args) == 2 {
		value, err := parseReplacement(args[1])
		if err != nil {
			return err
		}

		replacement = &value
	}

	wkr, err := worker.NewWorker(args[0], replacement, Logger.With().Str("file", args[0]).Logger())
	if err != nil {
		return fmt.Errorf("prepare worker: %w", err)
	}

	return wkr.Process(cmd.Context())
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		Logger.Fatal().Err(err).Msg("Utility encountered a fatal error")
	}
}
