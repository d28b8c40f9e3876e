package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"

	exportpipe "github.com/examlens/go-exportpipe"
)

// run executes every job config, fanning independent jobs across an
// exporter pool. Each job internally stays strictly sequential.
func run(flags *cliFlags, jobPaths []string) error {
	logger := newLogger(flags)
	slog.SetDefault(logger)

	sink, err := exportpipe.NewDirSink(flags.out)
	if err != nil {
		return err
	}

	opts := []exportpipe.Option{exportpipe.WithLogger(logger)}
	if flags.settle > 0 {
		opts = append(opts, exportpipe.WithSettleInterval(flags.settle))
	}
	if flags.pacing > 0 {
		opts = append(opts, exportpipe.WithPacingDelay(flags.pacing))
	}
	if flags.timeout > 0 {
		opts = append(opts, exportpipe.WithTimeout(flags.timeout))
	}
	if flags.verbose {
		opts = append(opts, exportpipe.WithProgress(func(ev exportpipe.ProgressEvent) {
			if ev.State != exportpipe.StateIdle {
				fmt.Fprintf(os.Stderr, "[%d/%d] %s: %s\n", ev.Index+1, ev.Total, ev.Surface, ev.State)
			}
		}))
	}

	poolSize := exportpipe.ResolvePoolSize(flags.workers)
	if poolSize > len(jobPaths) {
		poolSize = len(jobPaths)
	}
	pool := exportpipe.NewExporterPool(poolSize, opts...)
	defer pool.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)

	for _, path := range jobPaths {
		wg.Add(1)
		go func(path string) {
			defer wg.Done()
			if err := runJob(ctx, flags, pool, sink, path); err != nil {
				mu.Lock()
				errs = append(errs, fmt.Errorf("%s: %w", path, err))
				mu.Unlock()
			}
		}(path)
	}
	wg.Wait()

	return errors.Join(errs...)
}

// runJob loads one job config and exports it.
func runJob(ctx context.Context, flags *cliFlags, pool *exportpipe.ExporterPool, sink exportpipe.DeliverySink, path string) error {
	cfg, err := LoadJobConfig(path)
	if err != nil {
		return err
	}
	if flags.format != "" {
		cfg.Format = flags.format
	}

	job, closeProvider, err := buildJob(cfg, filepath.Dir(path), sink)
	if err != nil {
		return err
	}
	defer func() { _ = closeProvider() }()

	exp := pool.Acquire()
	defer pool.Release(exp)

	result, err := exp.Export(ctx, job)
	if err != nil {
		return err
	}

	if !flags.quiet {
		for _, a := range result.Delivered {
			fmt.Printf("Created %s\n", filepath.Join(flags.out, a.Label))
		}
	}
	for _, f := range result.Failed {
		fmt.Fprintf(os.Stderr, "Failed %s: %v\n", f.Surface, f.Err)
	}
	if len(result.Failed) > 0 {
		return fmt.Errorf("%d of %d surfaces failed", len(result.Failed), len(result.Failed)+len(result.Delivered))
	}
	return nil
}

// newLogger builds the process logger from verbosity flags.
func newLogger(flags *cliFlags) *slog.Logger {
	level := slog.LevelInfo
	switch {
	case flags.quiet:
		level = slog.LevelError
	case flags.verbose:
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
