package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/threadstate/internal/duration"
)

// DurationResult is one selectable disappearing messages duration.
type DurationResult struct {
	Index   int    `json:"index"`
	Seconds uint32 `json:"seconds"`
	Label   string `json:"label"`
	Default bool   `json:"default,omitempty"`
}

// DurationsResult lists the selectable durations.
type DurationsResult struct {
	Durations  []DurationResult `json:"durations"`
	MaxSeconds uint32           `json:"max_seconds"`
}

// NewDurationsCommand creates the durations command. It needs no database.
func NewDurationsCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "durations",
		Short: "List selectable disappearing message durations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			result := DurationsResult{MaxSeconds: duration.MaxDurationSeconds()}
			for i, s := range duration.ValidDurationsSeconds() {
				result.Durations = append(result.Durations, DurationResult{
					Index:   i,
					Seconds: s,
					Label:   duration.String(s),
					Default: s == duration.DefaultDurationSeconds,
				})
			}

			f := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout(), Verbose: opts.Verbose}
			return f.Success(result, func(w io.Writer) {
				tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "INDEX\tSECONDS\tLABEL")
				for _, d := range result.Durations {
					label := d.Label
					if d.Default {
						label += " (default)"
					}
					fmt.Fprintf(tw, "%d\t%d\t%s\n", d.Index, d.Seconds, label)
				}
				tw.Flush()
			})
		},
	}
}
