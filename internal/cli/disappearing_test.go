package cli

import (
	"sync"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/threadstate/internal/disappearing"
	"github.com/roach88/threadstate/internal/store"
	"github.com/roach88/threadstate/internal/testutil"
	"github.com/roach88/threadstate/internal/thread"
)

func openTestApp(t *testing.T, db string) *app {
	t.Helper()
	a, err := openApp(&RootOptions{Database: db, Format: "json"}, &cobra.Command{})
	require.NoError(t, err)
	t.Cleanup(a.Close)

	require.NoError(t, a.write(func(tx *store.Tx) error {
		return thread.Create(tx, testutil.NewClock(), "t1")
	}))
	return a
}

func storedConfiguration(t *testing.T, a *app) disappearing.Configuration {
	t.Helper()
	var cfg disappearing.Configuration
	require.NoError(t, a.write(func(tx *store.Tx) error {
		var err error
		cfg, err = a.configs.FetchOrBuildDefault(tx, thread.ID("t1"))
		return err
	}))
	return cfg
}

func TestSetConfiguration_SeesConcurrentWriter(t *testing.T) {
	a := openTestApp(t, tempDB(t))

	_, changed, err := setConfiguration(a, "t1", configChange{enable: true, durationSet: true, seconds: 3600})
	require.NoError(t, err)
	require.True(t, changed)

	// The app's cache now holds the 3600 second value.
	require.NoError(t, a.read(func(tx *store.Tx) error {
		_, err := a.configs.FetchOrBuildDefault(tx, thread.ID("t1"))
		return err
	}))

	// Another writer shortens the duration before the next set runs.
	other, err := disappearing.NewStore(0)
	require.NoError(t, err)
	require.NoError(t, a.write(func(tx *store.Tx) error {
		cfg, err := other.FetchOrBuildDefault(tx, thread.ID("t1"))
		if err != nil {
			return err
		}
		return other.Save(tx, cfg.CopyWithDurationSeconds(30))
	}))

	got, changed, err := setConfiguration(a, "t1", configChange{disable: true})
	require.NoError(t, err)
	assert.True(t, changed)
	assert.False(t, got.IsEnabled())
	assert.Equal(t, uint32(30), got.DurationSeconds(), "disable must keep the other writer's duration")

	stored := storedConfiguration(t, a)
	assert.False(t, stored.IsEnabled())
	assert.Equal(t, uint32(30), stored.DurationSeconds())
}

func TestSetConfiguration_ConcurrentSetsDoNotLoseUpdates(t *testing.T) {
	a := openTestApp(t, tempDB(t))

	_, _, err := setConfiguration(a, "t1", configChange{enable: true, durationSet: true, seconds: 3600})
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make(chan error, 2)
	for _, change := range []configChange{
		{disable: true},
		{durationSet: true, seconds: 30},
	} {
		wg.Add(1)
		go func(change configChange) {
			defer wg.Done()
			_, _, err := setConfiguration(a, "t1", change)
			errs <- err
		}(change)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	stored := storedConfiguration(t, a)
	assert.False(t, stored.IsEnabled(), "disable survives")
	assert.Equal(t, uint32(30), stored.DurationSeconds(), "duration survives")
}

func TestConfigSet_DisableKeepsDuration(t *testing.T) {
	db := tempDB(t)
	executeJSON(t, db, nil, "thread", "create", "t1")
	executeJSON(t, db, nil, "config", "set", "--thread", "t1", "--enabled", "--duration", "3600")

	var result ConfigurationResult
	resp := executeJSON(t, db, &result, "config", "set", "--thread", "t1", "--disabled")
	require.Equal(t, "ok", resp.Status)
	assert.False(t, result.Enabled)
	assert.Equal(t, uint32(3600), result.DurationSeconds)
	require.NotNil(t, result.Changed)
	assert.True(t, *result.Changed)
}
