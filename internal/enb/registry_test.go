package enb

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/your-org/mme-s1ap-core/internal/model"
)

func testENBID(n uint32) model.ENBID {
	return model.ENBID{PLMN: model.PLMN{MCC: "001", MNC: "01"}, Kind: model.ENBIDMacro, Value: n}
}

func TestOnNewPeerLifecycle(t *testing.T) {
	r := NewRegistry()

	d, err := r.OnNewPeer(1, 4, 4)
	require.NoError(t, err)
	assert.Equal(t, StateInit, d.State)
	assert.Equal(t, uint16(1), d.NextOutboundStream)
}

func TestBeginCompleteSetup(t *testing.T) {
	r := NewRegistry()
	_, err := r.OnNewPeer(1, 4, 4)
	require.NoError(t, err)

	id := testENBID(1)
	require.NoError(t, r.BeginSetup(1, id))
	d, ok := r.Get(1)
	require.True(t, ok)
	assert.Equal(t, StateResetting, d.State)

	require.NoError(t, r.CompleteSetup(1, id, "enb-1", 32, nil))
	d, ok = r.Get(1)
	require.True(t, ok)
	assert.Equal(t, StateReady, d.State)
	assert.Equal(t, "enb-1", d.Name)

	assoc, ok := r.FindByENBID(id)
	require.True(t, ok)
	assert.Equal(t, AssociationID(1), assoc)
}

func TestBeginSetupRejectsDuplicateENBID(t *testing.T) {
	r := NewRegistry()
	id := testENBID(1)

	_, err := r.OnNewPeer(1, 4, 4)
	require.NoError(t, err)
	require.NoError(t, r.BeginSetup(1, id))
	require.NoError(t, r.CompleteSetup(1, id, "enb-1", 32, nil))

	_, err = r.OnNewPeer(2, 4, 4)
	require.NoError(t, err)
	err = r.BeginSetup(2, id)
	assert.ErrorIs(t, err, ErrDuplicateENBID)
}

func TestBeginResetRequiresReady(t *testing.T) {
	r := NewRegistry()
	_, err := r.OnNewPeer(1, 4, 4)
	require.NoError(t, err)

	err = r.BeginReset(1)
	assert.ErrorIs(t, err, ErrNotReady)

	id := testENBID(1)
	require.NoError(t, r.BeginSetup(1, id))
	require.NoError(t, r.CompleteSetup(1, id, "enb-1", 32, nil))
	require.NoError(t, r.BeginReset(1))

	d, ok := r.Get(1)
	require.True(t, ok)
	assert.Equal(t, StateResetting, d.State)
}

func TestShutdownRemovesImmediatelyWhenNoUEs(t *testing.T) {
	r := NewRegistry()
	_, err := r.OnNewPeer(1, 4, 4)
	require.NoError(t, err)

	_, err = r.Shutdown(1)
	require.NoError(t, err)

	_, ok := r.Get(1)
	assert.False(t, ok, "descriptor with no UEs should be removed immediately on shutdown")
}

func TestShutdownDefersRemovalUntilUECountDrains(t *testing.T) {
	r := NewRegistry()
	_, err := r.OnNewPeer(1, 4, 4)
	require.NoError(t, err)
	r.IncUECount(1)

	_, err = r.Shutdown(1)
	require.NoError(t, err)

	d, ok := r.Get(1)
	require.True(t, ok, "descriptor with attached UEs must survive shutdown until drained")
	assert.Equal(t, StateShutdown, d.State)

	r.DecUECount(1)
	_, ok = r.Get(1)
	assert.False(t, ok, "descriptor should be removed once UE count drains to zero under SHUTDOWN")
}

func TestAllocateOutboundStreamWrapsAndNeverZero(t *testing.T) {
	d := &Descriptor{InStreams: 3, NextOutboundStream: 1}

	s1 := d.AllocateOutboundStream()
	s2 := d.AllocateOutboundStream()
	s3 := d.AllocateOutboundStream()

	assert.Equal(t, uint16(1), s1)
	assert.Equal(t, uint16(2), s2)
	assert.Equal(t, uint16(1), s3, "cursor must wrap to 1, never hand out 0")
}

func TestCountAndSnapshot(t *testing.T) {
	r := NewRegistry()
	_, err := r.OnNewPeer(1, 4, 4)
	require.NoError(t, err)
	_, err = r.OnNewPeer(2, 4, 4)
	require.NoError(t, err)

	assert.Equal(t, 2, r.Count())
	assert.Len(t, r.Snapshot(), 2)
}
