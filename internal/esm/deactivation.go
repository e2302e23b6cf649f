// Package esm implements the EPS Session Management dedicated-bearer
// deactivation procedure (spec.md section 4.4): a per-UE, per-bearer
// transaction with a bounded retransmission timer, owned by the NAS/ESM
// side of the core independently of the S1AP engine's UE reference
// (spec.md section 5: "the ESM procedure table is owned by the
// NAS/ESM task... no pointers to live entities cross task boundaries").
// Grounded on the original source's
// EpsBearerContextDeactivation.c.
package esm

import (
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/your-org/mme-s1ap-core/common/metrics"
	"github.com/your-org/mme-s1ap-core/internal/config"
	"github.com/your-org/mme-s1ap-core/internal/timer"
)

// MaxRetransmissions is the retransmission counter bound named in
// spec.md section 3/4.4 (EPS_BEARER_DEACTIVATE_COUNTER_MAX in the
// original source).
const MaxRetransmissions = 5

// TransactionID is the ESM procedure transaction identifier (PTI).
type TransactionID uint8

// BearerID is an EPS bearer identity.
type BearerID uint8

// Cause is the ESM cause code carried on the deactivation request. The
// source labels the retransmission timer T3492 in code comments but
// T3495 in documentation; this core names the timer by its role
// (deactivate-request retransmission) rather than by either label,
// per SPEC_FULL.md section 12's Open Question decision.
type Cause int

const (
	CauseRegularDeactivation Cause = iota
	CauseReactivationRequested
)

// Sink is the narrow collaborator this procedure sends the outbound
// DEACTIVATE-EPS-BEARER-CONTEXT-REQUEST NAS message through, and the
// upward dedicated-bearer-deactivation-complete notification.
type Sink interface {
	SendDeactivateRequest(mmeUEID uint32, pti TransactionID, ebi BearerID, cause Cause)
	NotifyDeactivationComplete(mmeUEID uint32, ebi BearerID)
	ReleaseBearer(mmeUEID uint32, ebi BearerID)
}

// Procedure is a single deactivate-bearer transaction (spec.md
// section 3).
type Procedure struct {
	MMEUEID           uint32
	PTI               TransactionID
	LinkedDefaultEBI  BearerID
	TargetEBI         BearerID
	PDNConnectionID   uint8
	RetransmitCounter int

	timer timer.Handle
}

var (
	// ErrPDNNotFound is returned by Initiate when no PDN context exists
	// for the requested bearer (spec.md section 4.4 step 1).
	ErrPDNNotFound = errors.New("esm: PDN connection does not exist")
	// ErrUnknown is returned by Accept/Timeout when the procedure has
	// already been freed.
	ErrUnknown = errors.New("esm: no such deactivation procedure")
)

// Table owns every in-flight deactivation procedure, keyed by
// (MME-UE-ID, EPS bearer ID) since at most one deactivation runs per
// bearer at a time.
type Table struct {
	mu    sync.Mutex
	byKey map[key]*Procedure

	cfg    *config.Config
	sink   Sink
	logger *zap.Logger
}

type key struct {
	mmeUEID uint32
	ebi     BearerID
}

// NewTable creates an empty deactivation-procedure table.
func NewTable(cfg *config.Config, sink Sink, logger *zap.Logger) *Table {
	return &Table{
		byKey:  make(map[key]*Procedure),
		cfg:    cfg,
		sink:   sink,
		logger: logger,
	}
}

// Initiate starts a deactivation procedure (spec.md section 4.4): it
// arms the retransmission timer and sends the first
// DEACTIVATE-EPS-BEARER-CONTEXT-REQUEST. It keeps no PDN or bearer
// state, so it does not mark the PDN context or its bearer as pending.
// pdnExists is supplied by the caller since PDN context ownership lives
// outside this package's scope.
func (t *Table) Initiate(mmeUEID uint32, pti TransactionID, linkedEBI, targetEBI BearerID, pdnConnID uint8, pdnExists bool) (*Procedure, error) {
	if !pdnExists {
		return nil, ErrPDNNotFound
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	k := key{mmeUEID: mmeUEID, ebi: targetEBI}
	if existing, ok := t.byKey[k]; ok {
		existing.timer.Stop()
		delete(t.byKey, k)
	}

	p := &Procedure{
		MMEUEID:          mmeUEID,
		PTI:              pti,
		LinkedDefaultEBI: linkedEBI,
		TargetEBI:        targetEBI,
		PDNConnectionID:  pdnConnID,
	}
	t.byKey[k] = p
	t.armLocked(p)

	t.sink.SendDeactivateRequest(mmeUEID, pti, targetEBI, CauseRegularDeactivation)
	return p, nil
}

func (t *Table) armLocked(p *Procedure) {
	p.timer.Arm(t.cfg.Timers.ESMDeactivate, func() {
		t.onTimeout(p.MMEUEID, p.TargetEBI)
	})
}

// Accept implements spec.md section 4.4's accept path: stop the timer,
// release the bearer, free the procedure.
func (t *Table) Accept(mmeUEID uint32, ebi BearerID) error {
	t.mu.Lock()
	k := key{mmeUEID: mmeUEID, ebi: ebi}
	p, ok := t.byKey[k]
	if !ok {
		t.mu.Unlock()
		return ErrUnknown
	}
	delete(t.byKey, k)
	t.mu.Unlock()

	p.timer.Stop()
	t.sink.ReleaseBearer(mmeUEID, ebi)
	return nil
}

// onTimeout implements spec.md section 4.4's timer-expiry path:
// increment the counter, re-issue below the bound, or locally release
// and notify upward on the fifth expiry.
func (t *Table) onTimeout(mmeUEID uint32, ebi BearerID) {
	t.mu.Lock()
	k := key{mmeUEID: mmeUEID, ebi: ebi}
	p, ok := t.byKey[k]
	if !ok {
		t.mu.Unlock()
		return
	}
	p.RetransmitCounter++
	counter := p.RetransmitCounter
	if counter < MaxRetransmissions {
		t.armLocked(p)
		t.mu.Unlock()
		metrics.ESMDeactivationRetransmissions.Inc()
		t.sink.SendDeactivateRequest(mmeUEID, p.PTI, ebi, CauseRegularDeactivation)
		return
	}

	delete(t.byKey, k)
	t.mu.Unlock()

	metrics.ESMDeactivationsExhausted.Inc()
	t.logger.Info("ESM deactivation retransmission bound reached, releasing locally",
		zap.Uint32("mme_ue_id", mmeUEID),
		zap.Uint8("ebi", uint8(ebi)),
	)
	t.sink.ReleaseBearer(mmeUEID, ebi)
	t.sink.NotifyDeactivationComplete(mmeUEID, ebi)
}

// Count returns the number of in-flight procedures, for tests and the
// admin read surface.
func (t *Table) Count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.byKey)
}

// RetransmitCounter returns the current retransmission count for a
// procedure, for tests.
func (t *Table) RetransmitCounter(mmeUEID uint32, ebi BearerID) (int, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	p, ok := t.byKey[key{mmeUEID: mmeUEID, ebi: ebi}]
	if !ok {
		return 0, false
	}
	return p.RetransmitCounter, true
}
