package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/threadstate/internal/store"
	"github.com/roach88/threadstate/internal/thread"
)

// ThreadResult describes one thread in command output.
type ThreadResult struct {
	UniqueID  string `json:"unique_id"`
	CreatedAt uint64 `json:"created_at,omitempty"`
}

// NewThreadCommand creates the thread command group.
func NewThreadCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "thread",
		Short: "Create, delete, and list threads",
	}
	cmd.AddCommand(newThreadCreateCommand(opts))
	cmd.AddCommand(newThreadDeleteCommand(opts))
	cmd.AddCommand(newThreadListCommand(opts))
	return cmd
}

func newThreadCreateCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "create ID...",
		Short: "Create threads (existing ids are left unchanged)",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(opts, cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			err = a.write(func(tx *store.Tx) error {
				for _, id := range args {
					if err := thread.Create(tx, a.clock, id); err != nil {
						return fmt.Errorf("create thread %q: %w", id, err)
					}
				}
				return nil
			})
			if err != nil {
				return failed("failed to create threads", err)
			}

			created := make([]ThreadResult, 0, len(args))
			for _, id := range args {
				created = append(created, ThreadResult{UniqueID: id})
			}
			return a.out.Success(created, func(w io.Writer) {
				for _, t := range created {
					fmt.Fprintf(w, "Created thread %s\n", t.UniqueID)
				}
			})
		},
	}
}

func newThreadDeleteCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a thread with its configuration and verification history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(opts, cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			id := args[0]
			err = a.write(func(tx *store.Tx) error {
				a.configs.Invalidate(tx, id)
				return thread.Delete(tx, id)
			})
			if err != nil {
				return failed("failed to delete thread", err)
			}

			return a.out.Success(ThreadResult{UniqueID: id}, func(w io.Writer) {
				fmt.Fprintf(w, "Deleted thread %s\n", id)
			})
		},
	}
}

func newThreadListCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List threads",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(opts, cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			var records []thread.Record
			err = a.read(func(tx *store.Tx) error {
				var err error
				records, err = thread.List(tx)
				return err
			})
			if err != nil {
				return failed("failed to list threads", err)
			}

			results := make([]ThreadResult, 0, len(records))
			for _, r := range records {
				results = append(results, ThreadResult{UniqueID: r.UniqueID, CreatedAt: r.CreatedAt})
			}
			return a.out.Success(results, func(w io.Writer) {
				if len(results) == 0 {
					fmt.Fprintln(w, "No threads.")
					return
				}
				for _, r := range results {
					fmt.Fprintln(w, r.UniqueID)
				}
			})
		},
	}
}
