package ue

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/your-org/mme-s1ap-core/internal/enb"
	"github.com/your-org/mme-s1ap-core/internal/model"
)

func readyDescriptor(assoc enb.AssociationID) *enb.Descriptor {
	r := enb.NewRegistry()
	_, _ = r.OnNewPeer(assoc, 4, 4)
	id := model.ENBID{PLMN: model.PLMN{MCC: "001", MNC: "01"}, Kind: model.ENBIDMacro, Value: uint32(assoc)}
	_ = r.BeginSetup(assoc, id)
	_ = r.CompleteSetup(assoc, id, "enb", 32, nil)
	d, _ := r.Get(assoc)
	return d
}

func TestNewRejectsNonReadyDescriptor(t *testing.T) {
	s := NewStore()
	d := &enb.Descriptor{Association: 1, State: enb.StateInit}

	_, err := s.New(d, 1, 1, 1, true)
	assert.ErrorIs(t, err, ErrENBNotReady)
}

func TestNewAndDualLookupAgree(t *testing.T) {
	s := NewStore()
	d := readyDescriptor(1)

	ref, err := s.New(d, 0x1234, 1, 42, true)
	require.NoError(t, err)

	byMME, ok := s.LookupByMMEUEID(42)
	require.True(t, ok)
	byENB, ok := s.LookupByENBUEID(1, 0x1234)
	require.True(t, ok)

	assert.Same(t, ref, byMME)
	assert.Same(t, ref, byENB)
}

func TestNewRejectsDuplicateMMEUEID(t *testing.T) {
	s := NewStore()
	d := readyDescriptor(1)

	_, err := s.New(d, 1, 1, 42, true)
	require.NoError(t, err)

	_, err = s.New(d, 2, 1, 42, true)
	assert.ErrorIs(t, err, ErrDuplicateMMEUEID)
}

func TestNewUnboundReferenceThenBindMMEUEID(t *testing.T) {
	s := NewStore()
	d := readyDescriptor(1)

	ref, err := s.New(d, 0x1234, 1, 0, false)
	require.NoError(t, err)
	assert.False(t, ref.HasMMEUEID)

	_, ok := s.LookupByMMEUEID(0)
	assert.False(t, ok, "an unbound reference must not be indexed by MME-UE-ID")

	require.NoError(t, s.BindMMEUEID(ref, 99))
	assert.True(t, ref.HasMMEUEID)

	byMME, ok := s.LookupByMMEUEID(99)
	require.True(t, ok)
	assert.Same(t, ref, byMME)
}

func TestRemoveIsIdempotent(t *testing.T) {
	s := NewStore()
	d := readyDescriptor(1)

	ref, err := s.New(d, 1, 1, 42, true)
	require.NoError(t, err)

	s.Remove(ref)
	assert.NotPanics(t, func() { s.Remove(ref) })

	_, ok := s.LookupByMMEUEID(42)
	assert.False(t, ok)
	_, ok = s.LookupByENBUEID(1, 1)
	assert.False(t, ok)
}

func TestRemoveCancelsTimers(t *testing.T) {
	s := NewStore()
	d := readyDescriptor(1)

	ref, err := s.New(d, 1, 1, 42, true)
	require.NoError(t, err)

	fired := make(chan struct{}, 1)
	ref.ReleaseTimer.Arm(0, func() { fired <- struct{}{} })
	// Drain the immediate fire so it doesn't race with Stop below; the
	// invariant under test is that Stop is safe and the handle clears.
	<-fired

	s.Remove(ref)
	assert.False(t, ref.ReleaseTimer.Active())
}

func TestForAssociationThenRemoveDrainsStore(t *testing.T) {
	s := NewStore()
	d := readyDescriptor(1)

	_, err := s.New(d, 1, 1, 10, true)
	require.NoError(t, err)
	_, err = s.New(d, 2, 1, 11, true)
	require.NoError(t, err)

	refs := s.ForAssociation(1)
	require.Len(t, refs, 2)

	for _, ref := range refs {
		s.Remove(ref)
	}

	assert.Equal(t, 0, s.Count())
	assert.Empty(t, s.ForAssociation(1))
}

func TestIDsAreMaskedTo24Bits(t *testing.T) {
	s := NewStore()
	d := readyDescriptor(1)

	ref, err := s.New(d, 0xFFFFFFFF, 1, 0xFFFFFFFF, true)
	require.NoError(t, err)

	assert.Equal(t, MMEUEID(0x00FFFFFF), ref.MMEUEID)
	assert.Equal(t, ENBUEID(0x00FFFFFF), ref.ENBUEID)
}
