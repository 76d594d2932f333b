package outbox

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/threadstate/internal/store"
	"github.com/roach88/threadstate/internal/testutil"
)

type testPayload struct {
	Enabled bool `json:"enabled"`
}

func TestEnqueue_AndPending(t *testing.T) {
	st := testutil.OpenStore(t)
	o := New(testutil.NewClock())

	testutil.Write(t, st, func(tx *store.Tx) error {
		if _, err := o.Enqueue(tx, KindDisappearingConfiguration, "t1", testPayload{Enabled: true}); err != nil {
			return err
		}
		_, err := o.Enqueue(tx, KindVerificationState, "t2", testPayload{})
		return err
	})

	testutil.Read(t, st, func(tx *store.Tx) error {
		pending, err := o.Pending(tx)
		require.NoError(t, err)
		require.Len(t, pending, 2)

		assert.Equal(t, KindDisappearingConfiguration, pending[0].Kind)
		assert.Equal(t, "t1", pending[0].UniqueThreadID)
		assert.Equal(t, testutil.EpochMillis, pending[0].CreatedAt)
		assert.Less(t, pending[0].Seq, pending[1].Seq)

		var p testPayload
		require.NoError(t, json.Unmarshal(pending[0].Payload, &p))
		assert.True(t, p.Enabled)
		return nil
	})
}

func TestEnqueue_ReadOnlyTx(t *testing.T) {
	st := testutil.OpenStore(t)
	o := New(testutil.NewClock())

	err := st.Read(t.Context(), func(tx *store.Tx) error {
		_, err := o.Enqueue(tx, KindDisappearingConfiguration, "t1", testPayload{})
		return err
	})
	assert.True(t, store.IsTransactionMisuse(err))
}

func TestEnqueue_UnmarshalablePayload(t *testing.T) {
	st := testutil.OpenStore(t)
	o := New(testutil.NewClock())

	err := st.Write(t.Context(), func(tx *store.Tx) error {
		_, err := o.Enqueue(tx, KindDisappearingConfiguration, "t1", make(chan int))
		return err
	})
	assert.Error(t, err)
}

func TestMarkSent(t *testing.T) {
	st := testutil.OpenStore(t)
	o := New(testutil.NewClock())

	var seq int64
	testutil.Write(t, st, func(tx *store.Tx) error {
		var err error
		seq, err = o.Enqueue(tx, KindDisappearingConfiguration, "t1", testPayload{})
		return err
	})

	testutil.Write(t, st, func(tx *store.Tx) error {
		return o.MarkSent(tx, seq)
	})

	testutil.Read(t, st, func(tx *store.Tx) error {
		pending, err := o.Pending(tx)
		require.NoError(t, err)
		assert.NotNil(t, pending)
		assert.Empty(t, pending)
		return nil
	})

	err := st.Write(t.Context(), func(tx *store.Tx) error {
		return o.MarkSent(tx, seq)
	})
	assert.True(t, store.IsNotFound(err), "second MarkSent must report not found")
}
