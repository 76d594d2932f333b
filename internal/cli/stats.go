package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/threadstate/internal/metrics"
	"github.com/roach88/threadstate/internal/store"
)

// StatsResult summarizes database contents and this process's counters.
type StatsResult struct {
	Threads              int              `json:"threads"`
	ConfiguredThreads    int              `json:"configured_threads"`
	EnabledThreads       int              `json:"enabled_threads"`
	VerificationEvents   int              `json:"verification_events"`
	PendingNotifications int              `json:"pending_notifications"`
	Counters             []metrics.Sample `json:"counters"`
}

var statsQueries = []struct {
	query string
	dest  func(*StatsResult) *int
}{
	{`SELECT COUNT(*) FROM threads`, func(r *StatsResult) *int { return &r.Threads }},
	{`SELECT COUNT(*) FROM disappearing_configurations`, func(r *StatsResult) *int { return &r.ConfiguredThreads }},
	{`SELECT COUNT(*) FROM disappearing_configurations WHERE enabled = 1`, func(r *StatsResult) *int { return &r.EnabledThreads }},
	{`SELECT COUNT(*) FROM verification_events`, func(r *StatsResult) *int { return &r.VerificationEvents }},
	{`SELECT COUNT(*) FROM sync_outbox WHERE sent_at IS NULL`, func(r *StatsResult) *int { return &r.PendingNotifications }},
}

// NewStatsCommand creates the stats command.
func NewStatsCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show row counts and operation counters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(opts, cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			var result StatsResult
			err = a.read(func(tx *store.Tx) error {
				for _, q := range statsQueries {
					if err := tx.QueryRow(q.query).Scan(q.dest(&result)); err != nil {
						return fmt.Errorf("stats: %w", err)
					}
				}
				return nil
			})
			if err != nil {
				return failed("failed to read stats", err)
			}

			result.Counters, err = metrics.Snapshot(a.registry)
			if err != nil {
				return failed("failed to gather counters", err)
			}

			return a.out.Success(result, func(w io.Writer) {
				tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
				fmt.Fprintf(tw, "Threads:\t%d\n", result.Threads)
				fmt.Fprintf(tw, "Configured:\t%d (%d enabled)\n", result.ConfiguredThreads, result.EnabledThreads)
				fmt.Fprintf(tw, "Verification events:\t%d\n", result.VerificationEvents)
				fmt.Fprintf(tw, "Pending notifications:\t%d\n", result.PendingNotifications)
				if opts.Verbose {
					for _, s := range result.Counters {
						fmt.Fprintf(tw, "%s{%s}:\t%g\n", s.Name, s.Labels, s.Value)
					}
				}
				tw.Flush()
			})
		},
	}
}
