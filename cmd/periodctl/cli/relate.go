package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/odyssey-erp/periods/internal/period"
)

// Exit codes returned by the offline commands.
const (
	ExitOK            = 0
	ExitUsage         = 1
	ExitInvalidPeriod = 2
)

// RelateOptions defines the flags of the relate command. A and B are "start/end" pairs.
type RelateOptions struct {
	A          string
	B          string
	Zone       string
	Granule    string
	JSONOutput bool
	Stdout     io.Writer
	Stderr     io.Writer
}

// RelateSummary is the JSON output of the relate command.
type RelateSummary struct {
	A          PeriodSummary            `json:"a"`
	B          PeriodSummary            `json:"b"`
	Relation   period.Relation          `json:"relation"`
	Converse   period.Relation          `json:"converse"`
	Predicates map[period.Relation]bool `json:"predicates"`
}

// PeriodSummary describes one period and its derived values.
type PeriodSummary struct {
	Start        time.Time `json:"start"`
	End          time.Time `json:"end"`
	Offset       string    `json:"offset"`
	Duration     string    `json:"duration"`
	NumberOfDays int       `json:"number_of_days"`
}

// RelateCommand relates two periods given on the command line and prints the outcome.
func RelateCommand(opts RelateOptions) int {
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	a, code := buildPeriod("a", opts.A, opts.Zone, opts.Granule, opts.Stderr)
	if code != ExitOK {
		return code
	}
	b, code := buildPeriod("b", opts.B, opts.Zone, opts.Granule, opts.Stderr)
	if code != ExitOK {
		return code
	}

	rel := period.Relate(a, b)
	summary := RelateSummary{
		A:          summarise(a),
		B:          summarise(b),
		Relation:   rel,
		Converse:   rel.Converse(),
		Predicates: period.Evaluate(a, b),
	}
	if opts.JSONOutput {
		if err := json.NewEncoder(opts.Stdout).Encode(summary); err != nil {
			_, _ = fmt.Fprintf(opts.Stderr, "relate: encode json: %v\n", err)
			return ExitUsage
		}
		return ExitOK
	}
	renderRelateHuman(opts.Stdout, summary)
	return ExitOK
}

func buildPeriod(name, raw, zone, granule string, stderr io.Writer) (period.Period, int) {
	startRaw, endRaw, ok := strings.Cut(strings.TrimSpace(raw), "/")
	if !ok || startRaw == "" || endRaw == "" {
		_, _ = fmt.Fprintf(stderr, "relate: --%s must be start/end, got %q\n", name, raw)
		return period.Period{}, ExitUsage
	}

	g := period.Microsecond
	if granule != "" {
		var err error
		if g, err = period.ParseGranule(granule); err != nil {
			_, _ = fmt.Fprintf(stderr, "relate: %v\n", err)
			return period.Period{}, ExitUsage
		}
	}
	p, err := period.ParseBounds(period.Bounds{Start: startRaw, End: endRaw, Zone: zone}, g)
	if err != nil {
		if period.IsConstraint(err) {
			_, _ = fmt.Fprintf(stderr, "relate: period %s: %v\n", name, err)
			return period.Period{}, ExitInvalidPeriod
		}
		_, _ = fmt.Fprintf(stderr, "relate: --%s: %v\n", name, err)
		return period.Period{}, ExitUsage
	}
	return p, ExitOK
}

func summarise(p period.Period) PeriodSummary {
	return PeriodSummary{
		Start:        p.Start(),
		End:          p.End(),
		Offset:       p.Offset(),
		Duration:     p.Duration().String(),
		NumberOfDays: p.NumberOfDays(),
	}
}

func renderRelateHuman(out io.Writer, s RelateSummary) {
	_, _ = fmt.Fprintf(out, "a: %s -> %s (%s, %s, %d day(s))\n",
		s.A.Start.Format(time.RFC3339Nano), s.A.End.Format(time.RFC3339Nano), s.A.Offset, s.A.Duration, s.A.NumberOfDays)
	_, _ = fmt.Fprintf(out, "b: %s -> %s (%s, %s, %d day(s))\n",
		s.B.Start.Format(time.RFC3339Nano), s.B.End.Format(time.RFC3339Nano), s.B.Offset, s.B.Duration, s.B.NumberOfDays)
	_, _ = fmt.Fprintf(out, "a %s b\n", s.Relation)
	_, _ = fmt.Fprintf(out, "b %s a\n", s.Converse)
	for _, rel := range period.Relations() {
		mark := " "
		if s.Predicates[rel] {
			mark = "x"
		}
		_, _ = fmt.Fprintf(out, " [%s] %s\n", mark, rel)
	}
}
