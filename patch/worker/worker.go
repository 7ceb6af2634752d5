// Package worker processes one target file per Worker, dispatching
// between plain ELF objects and ar archives of them.
package worker

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/armtools/wchar-tag-helper/archive"
	"github.com/armtools/wchar-tag-helper/elfobj"
	"github.com/rs/zerolog"
)

// Worker scans one file for Tag_ABI_PCS_wchar_t occurrences and,
// when a replacement was supplied, patches them in place. A Worker
// owns its target exclusively while Process runs; concurrent workers
// must each hold a distinct target.
type Worker struct {
	target      string
	replacement *uint8
	logger      zerolog.Logger

	found   int
	patched int
	refused int
}

// NewWorker validates that the target exists and constructs a Worker
// for it. A nil replacement makes the worker inspect-only.
func NewWorker(target string, replacement *uint8, logger zerolog.Logger) (*Worker, error) {
	stat, err := os.Stat(target)
	switch {
	case err != nil && os.IsNotExist(err):
		return nil, fmt.Errorf("target file doesn't exist: %w", err)

	case err != nil:
		return nil, fmt.Errorf("stat target file: %w", err)

	case stat.IsDir():
		return nil, fmt.Errorf("target %q is a directory, expected an object file or archive", target)
	}

	return &Worker{
		target:      target,
		replacement: replacement,
		logger:      logger,
	}, nil
}

// Logger returns the logger this worker reports findings through.
func (worker *Worker) Logger() zerolog.Logger {
	return worker.logger
}

// Stats returns how many wchar tag occurrences the worker observed,
// how many it patched, and how many patches it refused as too large.
func (worker *Worker) Stats() (found, patched, refused int) {
	return worker.found, worker.patched, worker.refused
}

// Process scans the target, logging one line per wchar tag occurrence.
func (worker *Worker) Process(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	isArchive, err := archive.IsArchive(worker.target)
	if err != nil {
		return fmt.Errorf("probe file type: %w", err)
	}

	if isArchive {
		return worker.processArchive()
	}

	return worker.processObject()
}

func (worker *Worker) processObject() error {
	flags := os.O_RDONLY
	if worker.replacement != nil {
		flags = os.O_RDWR
	}

	file, err := os.OpenFile(worker.target, flags, 0)
	if err != nil {
		return fmt.Errorf("open target file: %w", err)
	}
	defer file.Close()

	findings, err := elfobj.Scan(file, worker.replacement)
	if err != nil {
		return err
	}

	worker.report(worker.logger, findings)
	return nil
}

func (worker *Worker) processArchive() error {
	changed, err := archive.Rewrite(worker.target, func(name string, member io.ReadWriteSeeker) (bool, error) {
		findings, err := elfobj.Scan(member, worker.replacement)
		if err != nil {
			return false, err
		}

		worker.report(worker.logger.With().Str("member", name).Logger(), findings)

		for _, finding := range findings {
			if finding.Patched {
				return true, nil
			}
		}

		return false, nil
	})
	if err != nil {
		return err
	}

	if changed > 0 {
		worker.logger.Info().Int("members", changed).Msg("Repacked archive with patched members")
	}

	return nil
}

func (worker *Worker) report(logger zerolog.Logger, findings []elfobj.Finding) {
	if len(findings) == 0 {
		logger.Debug().Msg("No Tag_ABI_PCS_wchar_t occurrences found")
		return
	}

	for _, finding := range findings {
		worker.found++

		switch {
		case finding.Err != nil:
			worker.refused++
			logger.Warn().
				Int("section", finding.Section).
				Uint64("value", finding.Value).
				Err(finding.Err).
				Msg("Tag_ABI_PCS_wchar_t left unpatched")

		case finding.Patched:
			worker.patched++
			logger.Info().
				Int("section", finding.Section).
				Uint64("value", finding.Value).
				Uint8("patched-to", finding.NewValue).
				Msg("Tag_ABI_PCS_wchar_t patched")

		default:
			logger.Info().
				Int("section", finding.Section).
				Uint64("value", finding.Value).
				Msg("Tag_ABI_PCS_wchar_t")
		}
	}
}
