package cli

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/odyssey-erp/periods/internal/catalog"
	"github.com/odyssey-erp/periods/internal/period"
)

// OffsetOptions defines the flags of the offset command.
type OffsetOptions struct {
	Zone   string
	At     string
	Stdout io.Writer
	Stderr io.Writer
}

// OffsetCommand prints the UTC offset a zone has in effect at a wall-clock time.
func OffsetCommand(opts OffsetOptions) int {
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	loc, err := period.LoadZone(opts.Zone)
	if err != nil {
		_, _ = fmt.Fprintf(opts.Stderr, "offset: %v\n", err)
		return ExitUsage
	}
	at := time.Now().In(loc)
	if opts.At != "" {
		if at, err = time.ParseInLocation(catalog.WallClockLayout, opts.At, loc); err != nil {
			_, _ = fmt.Fprintf(opts.Stderr, "offset: --at: %v\n", err)
			return ExitUsage
		}
	}
	_, _ = fmt.Fprintf(opts.Stdout, "%s %s %s\n", loc, at.Format(time.RFC3339), period.ResolvedOffset(at))
	return ExitOK
}
