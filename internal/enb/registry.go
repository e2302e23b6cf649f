// Package enb implements the eNodeB association registry (spec.md
// section 4.1): S1 Setup lifecycle, reset, and shutdown for the peers
// of the MME's S1 interface. It is grounded on the teacher's
// context-manager shape (nf/amf/internal/context.UEContextManager,
// nf/gnb/internal/cu.CentralUnit): a struct with a sync.RWMutex
// guarding a map, with typed errors instead of the original source's
// sentinel-integer returns (spec.md section 9).
package enb

import (
	"errors"
	"sync"
	"time"

	"github.com/your-org/mme-s1ap-core/internal/model"
)

// State is the eNodeB descriptor lifecycle state (spec.md section 3).
type State int

const (
	StateInit State = iota
	StateResetting
	StateReady
	StateShutdown
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "INIT"
	case StateResetting:
		return "RESETTING"
	case StateReady:
		return "READY"
	case StateShutdown:
		return "SHUTDOWN"
	default:
		return "UNKNOWN"
	}
}

// AssociationID identifies a transport association (spec.md section 1).
type AssociationID uint64

// Descriptor is a per-eNodeB state record (spec.md section 3).
type Descriptor struct {
	Association AssociationID
	ENBID       model.ENBID
	Name        string
	DefaultDRX  uint8
	SupportedTA []model.TAI

	InStreams          uint16
	OutStreams         uint16
	NextOutboundStream uint16 // cursor; 0 is reserved, wraps 1..InStreams-1

	State State

	ueCount int // maintained by the S1AP engine via IncUECount/DecUECount
}

// HasUEs reports whether any UE references are currently attached.
func (d *Descriptor) HasUEs() bool { return d.ueCount > 0 }

// UECount returns the number of UE references currently attached.
func (d *Descriptor) UECount() int { return d.ueCount }

var (
	// ErrAssociationBusy is returned by OnNewPeer when a descriptor for
	// the association already exists and is not eligible for reuse.
	ErrAssociationBusy = errors.New("enb: association already has an active descriptor")
	// ErrNotFound is returned when no descriptor exists for a lookup.
	ErrNotFound = errors.New("enb: no descriptor for association")
	// ErrDuplicateENBID is returned when an eNodeB ID is already bound
	// to a different association (spec.md section 4.1).
	ErrDuplicateENBID = errors.New("enb: eNodeB ID already registered under a different association")
	// ErrNotReady is returned when an operation requires State == READY.
	ErrNotReady = errors.New("enb: descriptor is not in READY state")
)

// Registry maps an association identifier to its eNodeB descriptor. It
// corresponds to spec.md section 4.1's Peer Registry component.
type Registry struct {
	mu          sync.RWMutex
	byAssoc     map[AssociationID]*Descriptor
	assocByENBID map[string]AssociationID // model.ENBID.String() -> assoc, for duplicate detection
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		byAssoc:      make(map[AssociationID]*Descriptor),
		assocByENBID: make(map[string]AssociationID),
	}
}

// OnNewPeer implements spec.md section 4.1's on-new-peer operation: if
// no descriptor exists, create one in state INIT; if one exists and is
// in SHUTDOWN or RESETTING, reject -- the caller must wait for the old
// descriptor to be fully torn down before reusing the association id.
func (r *Registry) OnNewPeer(assoc AssociationID, inStreams, outStreams uint16) (*Descriptor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.byAssoc[assoc]; ok {
		if existing.State == StateShutdown || existing.State == StateResetting {
			return nil, ErrAssociationBusy
		}
	}

	d := &Descriptor{
		Association:        assoc,
		InStreams:           inStreams,
		OutStreams:          outStreams,
		NextOutboundStream: 1,
		State:              StateInit,
	}
	r.byAssoc[assoc] = d
	return d, nil
}

// Get returns the descriptor for an association, if any.
func (r *Registry) Get(assoc AssociationID) (*Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.byAssoc[assoc]
	return d, ok
}

// FindByENBID returns the association bound to a given eNodeB ID.
func (r *Registry) FindByENBID(id model.ENBID) (AssociationID, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	assoc, ok := r.assocByENBID[id.String()]
	return assoc, ok
}

// BeginSetup transitions a descriptor INIT -> RESETTING or READY ->
// RESETTING, rejecting a duplicate eNodeB ID bound elsewhere
// (spec.md section 4.1).
func (r *Registry) BeginSetup(assoc AssociationID, id model.ENBID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	d, ok := r.byAssoc[assoc]
	if !ok {
		return ErrNotFound
	}

	if existingAssoc, bound := r.assocByENBID[id.String()]; bound && existingAssoc != assoc {
		return ErrDuplicateENBID
	}

	d.State = StateResetting
	return nil
}

// CompleteSetup transitions RESETTING -> READY and records the
// eNodeB's identity, name, DRX and served TAs, per spec.md section 4.1.
func (r *Registry) CompleteSetup(assoc AssociationID, id model.ENBID, name string, drx uint8, tas []model.TAI) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	d, ok := r.byAssoc[assoc]
	if !ok {
		return ErrNotFound
	}

	d.ENBID = id
	d.Name = name
	d.DefaultDRX = drx
	d.SupportedTA = tas
	d.State = StateReady
	r.assocByENBID[id.String()] = assoc
	return nil
}

// BeginReset transitions READY -> RESETTING, rejecting any other state
// (spec.md section 4.1: "accept only when descriptor is READY").
func (r *Registry) BeginReset(assoc AssociationID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	d, ok := r.byAssoc[assoc]
	if !ok {
		return ErrNotFound
	}
	if d.State != StateReady {
		return ErrNotReady
	}
	d.State = StateResetting
	return nil
}

// CompleteReset transitions RESETTING -> READY after the engine has
// finished processing a reset.
func (r *Registry) CompleteReset(assoc AssociationID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	d, ok := r.byAssoc[assoc]
	if !ok {
		return ErrNotFound
	}
	d.State = StateReady
	return nil
}

// Shutdown transitions any state -> SHUTDOWN (transport close,
// spec.md section 3). If the descriptor has no attached UEs it is
// removed immediately; otherwise it is removed once DecUECount drains
// the count to zero.
func (r *Registry) Shutdown(assoc AssociationID) (*Descriptor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	d, ok := r.byAssoc[assoc]
	if !ok {
		return nil, ErrNotFound
	}
	d.State = StateShutdown
	if !d.HasUEs() {
		r.removeLocked(d)
	}
	return d, nil
}

// Remove unconditionally deletes a descriptor (used once the engine
// has finished fanning out deregistration events for its UEs).
func (r *Registry) Remove(assoc AssociationID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if d, ok := r.byAssoc[assoc]; ok {
		r.removeLocked(d)
	}
}

func (r *Registry) removeLocked(d *Descriptor) {
	delete(r.byAssoc, d.Association)
	if bound, ok := r.assocByENBID[d.ENBID.String()]; ok && bound == d.Association {
		delete(r.assocByENBID, d.ENBID.String())
	}
}

// IncUECount records a UE attach against its owning descriptor.
func (r *Registry) IncUECount(assoc AssociationID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if d, ok := r.byAssoc[assoc]; ok {
		d.ueCount++
	}
}

// DecUECount records a UE detach; if the descriptor is SHUTDOWN and
// the count reaches zero, the descriptor is removed (spec.md section 3:
// "a descriptor with zero UE references under SHUTDOWN/RESET may be
// released immediately").
func (r *Registry) DecUECount(assoc AssociationID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.byAssoc[assoc]
	if !ok {
		return
	}
	if d.ueCount > 0 {
		d.ueCount--
	}
	if d.State == StateShutdown && !d.HasUEs() {
		r.removeLocked(d)
	}
}

// AllocateOutboundStream returns the next outbound stream for a newly
// attached UE and advances the cursor, implementing the wrap policy of
// spec.md section 4.2: wrap to 1 when reaching InStreams, never 0.
func (d *Descriptor) AllocateOutboundStream() uint16 {
	s := d.NextOutboundStream
	next := d.NextOutboundStream + 1
	if next >= d.InStreams {
		next = 1
	}
	d.NextOutboundStream = next
	return s
}

// Count returns the number of descriptors currently tracked, for the
// admin read surface and metrics.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byAssoc)
}

// ReadyCount returns the number of descriptors currently in the READY
// state, for the S1 Setup overload-capacity check (spec.md section
// 4.1): a descriptor mid-setup is in RESETTING, not READY, so it never
// counts against its own admission.
func (r *Registry) ReadyCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, d := range r.byAssoc {
		if d.State == StateReady {
			n++
		}
	}
	return n
}

// Snapshot returns a shallow copy of every descriptor, for the admin
// read surface and tests. Mutating the returned descriptors does not
// affect the registry.
func (r *Registry) Snapshot() []Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Descriptor, 0, len(r.byAssoc))
	for _, d := range r.byAssoc {
		out = append(out, *d)
	}
	return out
}

// SetupOverloadTimeToWait is the S1SetupFailure time-to-wait value used
// when rejecting setup due to capacity overload or PLMN mismatch
// (spec.md section 4.1: 20s).
const SetupOverloadTimeToWait = 20 * time.Second
