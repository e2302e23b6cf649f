// Package ue implements the per-UE S1AP reference store (spec.md
// section 4.2): allocation, dual-identity lookup, and the stream/timer
// bookkeeping each reference owns. Grounded on the same context-manager
// shape as internal/enb (nf/amf/internal/context.UEContextManager).
package ue

import (
	"errors"
	"sync"

	"github.com/your-org/mme-s1ap-core/internal/enb"
	"github.com/your-org/mme-s1ap-core/internal/timer"
)

// State is the UE's S1AP connection state (spec.md section 3).
type State int

const (
	StateIdle State = iota
	StateConnected
	StateWaitingReleaseComplete
	StateHandoverInProgress
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateConnected:
		return "CONNECTED"
	case StateWaitingReleaseComplete:
		return "WAITING_RELEASE_COMPLETE"
	case StateHandoverInProgress:
		return "HANDOVER_IN_PROGRESS"
	default:
		return "UNKNOWN"
	}
}

// MMEUEID is the MME-assigned UE identifier (24-bit, spec.md section 3).
type MMEUEID uint32

// ENBUEID is the eNodeB-assigned UE identifier (24-bit, spec.md section 3).
type ENBUEID uint32

const id24BitMask = 0x00FFFFFF

// Reference is a per-UE S1AP state record (spec.md section 3). It
// holds a non-owning back-reference to its eNodeB descriptor's
// association, never a pointer to the descriptor itself, so that
// removing a UE reference never races the descriptor's own lifecycle
// (spec.md section 9's "never a raw pointer" design note).
type Reference struct {
	Association enb.AssociationID
	MMEUEID     MMEUEID
	ENBUEID     ENBUEID
	HasMMEUEID  bool // false for a target-side reference pending HandoverNotify

	InStream  uint16
	OutStream uint16

	State State

	ReleaseTimer   timer.Handle
	HandoverTimer  timer.Handle
	LastReleaseCause string

	// TransparentContainer holds an opaque byte sequence forwarded
	// during handover preparation/resource allocation. Cleared on
	// removal (spec.md section 5: "drops its transparent-container
	// byte buffers").
	TransparentContainer []byte
}

var (
	// ErrNotFound is returned by lookups that miss.
	ErrNotFound = errors.New("ue: reference not found")
	// ErrENBNotReady is returned by New when the owning descriptor is
	// not in the READY state (spec.md section 4.2).
	ErrENBNotReady = errors.New("ue: owning eNodeB descriptor is not READY")
	// ErrDuplicateMMEUEID is returned if an MME-UE-ID collides.
	ErrDuplicateMMEUEID = errors.New("ue: MME-UE-ID already in use")
)

// Store indexes UE references by both MME-UE-ID and (association,
// eNodeB-UE-ID), matching spec.md section 4.2's dual-identity lookup
// requirement.
type Store struct {
	mu        sync.RWMutex
	byMMEUEID map[MMEUEID]*Reference
	byENBUEID map[enb.AssociationID]map[ENBUEID]*Reference
}

// NewStore creates an empty UE reference store.
func NewStore() *Store {
	return &Store{
		byMMEUEID: make(map[MMEUEID]*Reference),
		byENBUEID: make(map[enb.AssociationID]map[ENBUEID]*Reference),
	}
}

// New allocates a UE reference under the given eNodeB descriptor
// (spec.md section 4.2's new-ue operation). The descriptor must be
// READY. The outbound stream is taken from the descriptor's cursor,
// which this call advances (enb.Descriptor.AllocateOutboundStream).
// Passing mmeUEID == 0 with hasMMEUEID == false creates a
// target-side reference with no MME-UE-ID bound yet (handover case,
// spec.md section 4.3's "On HandoverRequestAcknowledge").
func (s *Store) New(d *enb.Descriptor, enbUEID ENBUEID, inStream uint16, mmeUEID MMEUEID, hasMMEUEID bool) (*Reference, error) {
	if d.State != enb.StateReady {
		return nil, ErrENBNotReady
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	mmeUEID &= id24BitMask
	if hasMMEUEID {
		if _, exists := s.byMMEUEID[mmeUEID]; exists {
			return nil, ErrDuplicateMMEUEID
		}
	}

	ref := &Reference{
		Association: d.Association,
		MMEUEID:     mmeUEID & id24BitMask,
		ENBUEID:     enbUEID & id24BitMask,
		HasMMEUEID:  hasMMEUEID,
		InStream:    inStream,
		OutStream:   d.AllocateOutboundStream(),
		State:       StateIdle,
	}

	if hasMMEUEID {
		s.byMMEUEID[mmeUEID] = ref
	}
	byENB, ok := s.byENBUEID[d.Association]
	if !ok {
		byENB = make(map[ENBUEID]*Reference)
		s.byENBUEID[d.Association] = byENB
	}
	byENB[ref.ENBUEID] = ref

	return ref, nil
}

// BindMMEUEID binds an MME-UE-ID to a previously-unbound target-side
// reference, implementing spec.md section 4.3's "Do not bind MME-UE-ID
// to the target association until this event" (HandoverNotify).
func (s *Store) BindMMEUEID(ref *Reference, mmeUEID MMEUEID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	mmeUEID &= id24BitMask
	if _, exists := s.byMMEUEID[mmeUEID]; exists {
		return ErrDuplicateMMEUEID
	}
	ref.MMEUEID = mmeUEID
	ref.HasMMEUEID = true
	s.byMMEUEID[ref.MMEUEID] = ref
	return nil
}

// LookupByMMEUEID implements spec.md section 4.2's lookup-by-mme-id.
func (s *Store) LookupByMMEUEID(id MMEUEID) (*Reference, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ref, ok := s.byMMEUEID[id]
	return ref, ok
}

// LookupByENBUEID implements spec.md section 4.2's lookup-by-enb-id.
func (s *Store) LookupByENBUEID(assoc enb.AssociationID, id ENBUEID) (*Reference, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	byENB, ok := s.byENBUEID[assoc]
	if !ok {
		return nil, false
	}
	ref, ok := byENB[id]
	return ref, ok
}

// Remove implements spec.md section 4.2's remove operation: cancels
// all armed timers, detaches the reference from every index, and
// drops its transparent-container buffer. It is a no-op if the
// reference is already gone (spec.md section 8: "a duplicate
// UEContextReleaseComplete for an already-removed UE is a no-op").
func (s *Store) Remove(ref *Reference) {
	if ref == nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ref.ReleaseTimer.Stop()
	ref.HandoverTimer.Stop()
	ref.TransparentContainer = nil

	if ref.HasMMEUEID {
		if cur, ok := s.byMMEUEID[ref.MMEUEID]; ok && cur == ref {
			delete(s.byMMEUEID, ref.MMEUEID)
		}
	}
	if byENB, ok := s.byENBUEID[ref.Association]; ok {
		if cur, ok := byENB[ref.ENBUEID]; ok && cur == ref {
			delete(byENB, ref.ENBUEID)
		}
		if len(byENB) == 0 {
			delete(s.byENBUEID, ref.Association)
		}
	}
}

// ForAssociation returns a snapshot slice of every reference attached
// to an association, for batch iteration (spec.md section 4.1's
// "iterate UEs in batches of N"). The engine is responsible for
// chunking this slice and calling Remove on each reference once its
// batch's upward event has been published.
func (s *Store) ForAssociation(assoc enb.AssociationID) []*Reference {
	s.mu.RLock()
	defer s.mu.RUnlock()
	byENB, ok := s.byENBUEID[assoc]
	if !ok {
		return nil
	}
	out := make([]*Reference, 0, len(byENB))
	for _, ref := range byENB {
		out = append(out, ref)
	}
	return out
}

// Count returns the number of currently-tracked UE references,
// including target-side references not yet bound to an MME-UE-ID.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, byENB := range s.byENBUEID {
		n += len(byENB)
	}
	return n
}

// View is a read-only snapshot of a Reference's identity and state,
// safe to copy (unlike Reference itself, which embeds timer.Handle's
// mutex).
type View struct {
	Association enb.AssociationID
	MMEUEID     MMEUEID
	ENBUEID     ENBUEID
	HasMMEUEID  bool
	InStream    uint16
	OutStream   uint16
	State       State
}

func (r *Reference) view() View {
	return View{
		Association: r.Association,
		MMEUEID:     r.MMEUEID,
		ENBUEID:     r.ENBUEID,
		HasMMEUEID:  r.HasMMEUEID,
		InStream:    r.InStream,
		OutStream:   r.OutStream,
		State:       r.State,
	}
}

// Snapshot returns a read-only view of every tracked reference, for
// the admin read surface and tests.
func (s *Store) Snapshot() []View {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]View, 0, len(s.byMMEUEID))
	for _, byENB := range s.byENBUEID {
		for _, ref := range byENB {
			out = append(out, ref.view())
		}
	}
	return out
}
