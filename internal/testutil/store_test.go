package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/threadstate/internal/store"
)

func TestSeedThread_Idempotent(t *testing.T) {
	st := OpenStore(t)
	SeedThread(t, st, "t1", "t2")
	SeedThread(t, st, "t1")

	Read(t, st, func(tx *store.Tx) error {
		var count int
		require.NoError(t, tx.QueryRow(`SELECT COUNT(*) FROM threads`).Scan(&count))
		assert.Equal(t, 2, count)
		return nil
	})
}
