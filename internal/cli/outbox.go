package cli

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/roach88/threadstate/internal/outbox"
	"github.com/roach88/threadstate/internal/store"
)

// NewOutboxCommand creates the outbox command group.
func NewOutboxCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "outbox",
		Short: "Inspect and acknowledge pending sync notifications",
	}
	cmd.AddCommand(newOutboxListCommand(opts))
	cmd.AddCommand(newOutboxAckCommand(opts))
	return cmd
}

func newOutboxListCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List unsent notifications in order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(opts, cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			var pending []outbox.Notification
			err = a.read(func(tx *store.Tx) error {
				var err error
				pending, err = a.outbox.Pending(tx)
				return err
			})
			if err != nil {
				return failed("failed to list notifications", err)
			}

			return a.out.Success(pending, func(w io.Writer) {
				if len(pending) == 0 {
					fmt.Fprintln(w, "No pending notifications.")
					return
				}
				for _, n := range pending {
					fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", n.Seq, n.Kind, n.UniqueThreadID, n.Payload)
				}
			})
		},
	}
}

func newOutboxAckCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "ack SEQ",
		Short: "Mark a notification as sent",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			seq, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return WrapExitError(ExitCommandError, "invalid sequence number", err)
			}

			a, err := openApp(opts, cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			err = a.write(func(tx *store.Tx) error {
				return a.outbox.MarkSent(tx, seq)
			})
			if err != nil {
				return failed("failed to acknowledge notification", err)
			}

			return a.out.Success(map[string]int64{"seq": seq}, func(w io.Writer) {
				fmt.Fprintf(w, "Acknowledged notification %d\n", seq)
			})
		},
	}
}
