package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/threadstate/internal/identity"
	"github.com/roach88/threadstate/internal/store"
	"github.com/roach88/threadstate/internal/thread"
	"github.com/roach88/threadstate/internal/verification"
)

// VerificationEventResult is an audit log entry with its preview text.
type VerificationEventResult struct {
	verification.Event
	Preview string `json:"preview"`
}

func newVerificationEventResult(e verification.Event) VerificationEventResult {
	return VerificationEventResult{Event: e, Preview: e.Describe(e.RecipientAddress.String())}
}

// NewVerifyCommand creates the verify command group.
func NewVerifyCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Record and list identity verification changes",
	}
	cmd.AddCommand(newVerifyRecordCommand(opts))
	cmd.AddCommand(newVerifyListCommand(opts))
	return cmd
}

func newVerifyRecordCommand(opts *RootOptions) *cobra.Command {
	var (
		threadID  string
		recipient string
		stateName string
		local     bool
	)

	cmd := &cobra.Command{
		Use:   "record",
		Short: "Append a verification state change to a thread's audit log",
		Long: `Append a verification state change to a thread's audit log.

Recipients are a service id, an E.164 phone number, or both joined by "|".
States are default, verified, and no-longer-verified.

Examples:
  threadstate verify record --thread t1 --recipient +14155550101 --state verified --local`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			addr, err := identity.ParseAddress(recipient)
			if err != nil {
				return WrapExitError(ExitCommandError, "invalid --recipient", err)
			}
			state, err := verification.ParseState(stateName)
			if err != nil {
				return WrapExitError(ExitCommandError, "invalid --state", err)
			}

			a, err := openApp(opts, cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			var event verification.Event
			err = a.write(func(tx *store.Tx) error {
				var err error
				event, err = a.audit.Record(tx, thread.ID(threadID), addr, state, local)
				return err
			})
			if err != nil {
				return failed("failed to record verification change", err)
			}

			result := newVerificationEventResult(event)
			return a.out.Success(result, func(w io.Writer) {
				fmt.Fprintf(w, "#%d %s\n", result.SortID, result.Preview)
			})
		},
	}

	cmd.Flags().StringVar(&threadID, "thread", "", "thread unique id (required)")
	cmd.Flags().StringVar(&recipient, "recipient", "", "participant address (required)")
	cmd.Flags().StringVar(&stateName, "state", "", "new verification state (required)")
	cmd.Flags().BoolVar(&local, "local", false, "the change was made on this device")
	_ = cmd.MarkFlagRequired("thread")
	_ = cmd.MarkFlagRequired("recipient")
	_ = cmd.MarkFlagRequired("state")
	return cmd
}

func newVerifyListCommand(opts *RootOptions) *cobra.Command {
	var threadID string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List a thread's verification changes in order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(opts, cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			var events []verification.Event
			err = a.read(func(tx *store.Tx) error {
				var err error
				events, err = a.audit.ListForThread(tx, threadID)
				return err
			})
			if err != nil {
				return failed("failed to list verification changes", err)
			}

			results := make([]VerificationEventResult, 0, len(events))
			for _, e := range events {
				results = append(results, newVerificationEventResult(e))
			}
			return a.out.Success(results, func(w io.Writer) {
				if len(results) == 0 {
					fmt.Fprintln(w, "No verification changes.")
					return
				}
				for _, r := range results {
					fmt.Fprintf(w, "#%d %s\n", r.SortID, r.Preview)
				}
			})
		},
	}

	cmd.Flags().StringVar(&threadID, "thread", "", "thread unique id (required)")
	_ = cmd.MarkFlagRequired("thread")
	return cmd
}
