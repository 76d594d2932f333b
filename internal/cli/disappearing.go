package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/threadstate/internal/disappearing"
	"github.com/roach88/threadstate/internal/store"
	"github.com/roach88/threadstate/internal/thread"
)

// ConfigurationResult describes a thread's disappearing messages settings.
type ConfigurationResult struct {
	UniqueThreadID  string `json:"unique_thread_id"`
	Enabled         bool   `json:"enabled"`
	DurationSeconds uint32 `json:"duration_seconds"`
	DurationIndex   int    `json:"duration_index"`
	DurationLabel   string `json:"duration_label"`
	Changed         *bool  `json:"changed,omitempty"`
	Clamped         bool   `json:"clamped,omitempty"`
}

func newConfigurationResult(cfg disappearing.Configuration) ConfigurationResult {
	return ConfigurationResult{
		UniqueThreadID:  cfg.UniqueID(),
		Enabled:         cfg.IsEnabled(),
		DurationSeconds: cfg.DurationSeconds(),
		DurationIndex:   cfg.DurationIndex(),
		DurationLabel:   cfg.DurationString(),
	}
}

func (r ConfigurationResult) writeText(w io.Writer) {
	state := "off"
	if r.Enabled {
		state = "on"
	}
	fmt.Fprintf(w, "Thread:    %s\n", r.UniqueThreadID)
	fmt.Fprintf(w, "Enabled:   %s\n", state)
	fmt.Fprintf(w, "Duration:  %s (%d seconds)\n", r.DurationLabel, r.DurationSeconds)
	if r.Clamped {
		fmt.Fprintln(w, "Note:      duration clamped to the maximum")
	}
	if r.Changed != nil {
		fmt.Fprintf(w, "Changed:   %t\n", *r.Changed)
	}
}

// NewConfigCommand creates the config command group for disappearing
// messages settings.
func NewConfigCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or change a thread's disappearing messages settings",
	}
	cmd.AddCommand(newConfigShowCommand(opts))
	cmd.AddCommand(newConfigSetCommand(opts))
	return cmd
}

func newConfigShowCommand(opts *RootOptions) *cobra.Command {
	var threadID string

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show a thread's settings (defaults when never configured)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(opts, cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			var cfg disappearing.Configuration
			err = a.read(func(tx *store.Tx) error {
				var err error
				cfg, err = a.configs.FetchOrBuildDefault(tx, thread.ID(threadID))
				return err
			})
			if err != nil {
				return failed("failed to fetch configuration", err)
			}

			result := newConfigurationResult(cfg)
			return a.out.Success(result, result.writeText)
		},
	}

	cmd.Flags().StringVar(&threadID, "thread", "", "thread unique id (required)")
	_ = cmd.MarkFlagRequired("thread")
	return cmd
}

func newConfigSetCommand(opts *RootOptions) *cobra.Command {
	var (
		threadID string
		enable   bool
		disable  bool
		seconds  uint32
	)

	cmd := &cobra.Command{
		Use:   "set",
		Short: "Change a thread's settings",
		Long: `Change a thread's disappearing messages settings.

The current settings are read and the requested change is applied to a copy
within a single write transaction. Nothing is written, and no sync notification is queued, when the result
matches what is stored.

Examples:
  threadstate config set --thread t1 --enabled --duration 3600
  threadstate config set --thread t1 --disabled`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(opts, cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			change := configChange{
				enable:      enable,
				disable:     disable,
				durationSet: cmd.Flags().Changed("duration"),
				seconds:     seconds,
			}
			candidate, changed, err := setConfiguration(a, threadID, change)
			if err != nil {
				return failed("failed to apply configuration", err)
			}
			clamped := change.durationSet && seconds != candidate.DurationSeconds()

			result := newConfigurationResult(candidate)
			result.Changed = &changed
			result.Clamped = clamped
			return a.out.Success(result, result.writeText)
		},
	}

	cmd.Flags().StringVar(&threadID, "thread", "", "thread unique id (required)")
	cmd.Flags().BoolVar(&enable, "enabled", false, "turn disappearing messages on")
	cmd.Flags().BoolVar(&disable, "disabled", false, "turn disappearing messages off")
	cmd.Flags().Uint32Var(&seconds, "duration", 0, "message lifetime in seconds")
	_ = cmd.MarkFlagRequired("thread")
	cmd.MarkFlagsMutuallyExclusive("enabled", "disabled")
	cmd.MarkFlagsOneRequired("enabled", "disabled", "duration")
	return cmd
}

// configChange is the set of edits requested on the command line.
type configChange struct {
	enable      bool
	disable     bool
	durationSet bool
	seconds     uint32
}

func (c configChange) applyTo(cfg disappearing.Configuration) disappearing.Configuration {
	switch {
	case c.enable && c.durationSet:
		cfg = cfg.CopyAsEnabledWithDurationSeconds(c.seconds)
	case c.durationSet:
		cfg = cfg.CopyWithDurationSeconds(c.seconds)
	}
	switch {
	case c.enable && !c.durationSet:
		cfg = cfg.CopyWithIsEnabled(true)
	case c.disable:
		cfg = cfg.CopyWithIsEnabled(false)
	}
	return cfg
}

// setConfiguration reads the thread's settings, applies change and saves the
// result in one write transaction, so a concurrent writer can not slip in
// between the read and the save.
func setConfiguration(a *app, threadID string, change configChange) (disappearing.Configuration, bool, error) {
	var candidate disappearing.Configuration
	var changed bool
	err := a.write(func(tx *store.Tx) error {
		current, err := a.configs.FetchOrBuildDefault(tx, thread.ID(threadID))
		if err != nil {
			return err
		}
		candidate = change.applyTo(current)
		changed, err = a.configs.Apply(tx, candidate)
		return err
	})
	if err != nil {
		return disappearing.Configuration{}, false, err
	}
	return candidate, changed, nil
}
