package main

import (
	"fmt"
	"time"

	flag "github.com/spf13/pflag"
)

// cliFlags holds all flags for the export command.
type cliFlags struct {
	out     string
	format  string
	workers int
	settle  time.Duration
	pacing  time.Duration
	timeout time.Duration
	quiet   bool
	verbose bool
	version bool
}

// parseFlags parses CLI arguments. Returns the flags and the positional
// job config paths.
func parseFlags(args []string) (*cliFlags, []string, error) {
	fs := flag.NewFlagSet("exportpipe", flag.ContinueOnError)
	f := &cliFlags{}

	fs.StringVarP(&f.out, "out", "o", "exports", "output directory for delivered artifacts")
	fs.StringVarP(&f.format, "format", "f", "", "override job format: single-image, paginated-document, per-section-image")
	fs.IntVarP(&f.workers, "workers", "w", 0, "parallel jobs (0 = auto from CPU count)")
	fs.DurationVar(&f.settle, "settle", 0, "settle interval before each capture (0 = default)")
	fs.DurationVar(&f.pacing, "pacing", 0, "pacing delay between deliveries (0 = default)")
	fs.DurationVar(&f.timeout, "timeout", 0, "per-capture timeout (0 = default)")
	fs.BoolVarP(&f.quiet, "quiet", "q", false, "only show errors")
	fs.BoolVarP(&f.verbose, "verbose", "v", false, "show per-surface progress")
	fs.BoolVar(&f.version, "version", false, "print version and exit")

	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "usage: exportpipe [flags] <job.yaml>...\n\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args[1:]); err != nil {
		return nil, nil, err
	}

	return f, fs.Args(), nil
}
