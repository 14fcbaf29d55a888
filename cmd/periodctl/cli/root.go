// Package cli implements the periodctl commands.
package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/odyssey-erp/periods/jobs"
)

// exitError carries a command's exit code through cobra.
type exitError struct {
	code int
}

func (e exitError) Error() string {
	return fmt.Sprintf("exit status %d", e.code)
}

// Report prints err unless the command already did and returns the process exit code.
func Report(err error, w io.Writer) int {
	if err == nil {
		return ExitOK
	}
	var e exitError
	if errors.As(err, &e) {
		return e.code
	}
	_, _ = fmt.Fprintf(w, "periodctl: %v\n", err)
	return ExitUsage
}

func codeErr(code int) error {
	if code == ExitOK {
		return nil
	}
	return exitError{code: code}
}

// NewRootCommand builds the periodctl command tree writing to out and errOut.
func NewRootCommand(out, errOut io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:           "periodctl",
		Short:         "Inspect periods, offsets and the period catalog jobs",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(out)
	root.SetErr(errOut)
	root.AddCommand(newRelateCommand(out, errOut), newOffsetCommand(out, errOut), newJobsCommand(out))
	return root
}

func newRelateCommand(out, errOut io.Writer) *cobra.Command {
	opts := RelateOptions{Stdout: out, Stderr: errOut}
	cmd := &cobra.Command{
		Use:   "relate",
		Short: "Report the Allen relation between two periods",
		Example: `  periodctl relate --a 2024-01-01T00:00:00Z/2024-01-08T00:00:00Z --b 2024-01-08T00:00:00Z/2024-01-15T00:00:00Z
  periodctl relate --zone Europe/London --a 2024-03-01T00:00:00/2024-03-30T00:00:00 --b 2024-03-10T00:00:00/2024-03-20T00:00:00 --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return codeErr(RelateCommand(opts))
		},
	}
	cmd.Flags().StringVar(&opts.A, "a", "", "first period as start/end")
	cmd.Flags().StringVar(&opts.B, "b", "", "second period as start/end")
	cmd.Flags().StringVarP(&opts.Zone, "zone", "z", "", "IANA zone for wall-clock bounds")
	cmd.Flags().StringVarP(&opts.Granule, "granule", "g", "", "truncate bounds to microsecond, second, minute, hour or day")
	cmd.Flags().BoolVar(&opts.JSONOutput, "json", false, "print JSON")
	_ = cmd.MarkFlagRequired("a")
	_ = cmd.MarkFlagRequired("b")
	return cmd
}

func newOffsetCommand(out, errOut io.Writer) *cobra.Command {
	opts := OffsetOptions{Stdout: out, Stderr: errOut}
	cmd := &cobra.Command{
		Use:   "offset",
		Short: "Print the UTC offset a zone has in effect",
		RunE: func(cmd *cobra.Command, args []string) error {
			return codeErr(OffsetCommand(opts))
		},
	}
	cmd.Flags().StringVarP(&opts.Zone, "zone", "z", "UTC", "IANA zone")
	cmd.Flags().StringVar(&opts.At, "at", "", "wall-clock time, defaults to now")
	return cmd
}

func newJobsCommand(out io.Writer) *cobra.Command {
	var redisAddr string
	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "Trigger and inspect background jobs",
	}
	cmd.PersistentFlags().StringVar(&redisAddr, "redis", envOr("REDIS_ADDR", "127.0.0.1:6379"), "Redis address")

	var batchSize int
	trigger := &cobra.Command{
		Use:   "trigger [job]",
		Short: "Enqueue a job, by default " + jobs.TaskIntegrityScan,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := jobs.TaskIntegrityScan
			if len(args) == 1 {
				name = args[0]
			}
			c, err := NewJobsCLI(redisAddr)
			if err != nil {
				return err
			}
			defer func() { _ = c.Close() }()
			info, err := c.Trigger(cmd.Context(), name, batchSize)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(out, "enqueued %s id=%s queue=%s\n", info.Type, info.ID, info.Queue)
			return nil
		},
	}
	trigger.Flags().IntVar(&batchSize, "batch-size", 500, "rows per scan batch")

	stats := &cobra.Command{
		Use:   "stats",
		Short: "Print queue statistics as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := NewJobsCLI(redisAddr)
			if err != nil {
				return err
			}
			defer func() { _ = c.Close() }()
			s, err := c.InspectQueue(cmd.Context())
			if err != nil {
				return err
			}
			return json.NewEncoder(out).Encode(s)
		},
	}
	cmd.AddCommand(trigger, stats)
	return cmd
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
