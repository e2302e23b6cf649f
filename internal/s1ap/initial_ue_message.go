package s1ap

import (
	"context"

	"go.uber.org/zap"

	"github.com/your-org/mme-s1ap-core/internal/enb"
	"github.com/your-org/mme-s1ap-core/internal/mmeapp"
	"github.com/your-org/mme-s1ap-core/internal/transport"
	"github.com/your-org/mme-s1ap-core/internal/ue"
)

// handleInitialUEMessage implements spec.md §4.2's new-ue operation
// for the common case: the first message an eNodeB sends for a UE
// with no S1AP reference yet. A reference is allocated under the
// owning descriptor with no MME-UE-ID bound (HasMMEUEID false), the
// same unbound-reference shape Store.New already uses for the
// target side of a handover; the MME-app binds an MME-UE-ID once it
// has allocated one, via AssignMMEUEID.
func (e *Engine) handleInitialUEMessage(ctx context.Context, assoc enb.AssociationID, stream uint16, pdu transport.PDU) error {
	req, ok := pdu.Payload.(InitialUEMessageIEs)
	if !ok {
		return newError(ErrorProtocolViolation, "InitialUEMessage payload has unexpected type", nil)
	}

	d, ok := e.enbs.Get(assoc)
	if !ok {
		return newError(ErrorProtocolViolation, "InitialUEMessage on an unregistered association", nil)
	}

	if _, exists := e.ues.LookupByENBUEID(assoc, req.ENBUEID); exists {
		return newError(ErrorIdentityMismatch, "InitialUEMessage for an eNB-UE-ID already in use", nil)
	}

	ref, err := e.ues.New(d, req.ENBUEID, stream, ue.MMEUEID(0), false)
	if err != nil {
		return newError(ErrorResourceExhausted, "failed to allocate UE reference for InitialUEMessage", err)
	}
	e.enbs.IncUECount(assoc)
	e.RefreshGauges()

	e.logger.Debug("InitialUEMessage: new UE reference allocated",
		zap.Uint64("association", uint64(assoc)),
		zap.Uint32("enb_ue_id", uint32(req.ENBUEID)),
		zap.Uint16("out_stream", ref.OutStream),
	)

	e.sink.Publish(mmeapp.Event{
		Kind:        mmeapp.EventInitialUEMessage,
		HasMMEUEID:  false,
		ENBUEID:     ref.ENBUEID,
		HasENBUEID:  true,
		ENBID:       d.ENBID,
		Association: assoc,
		Stream:      stream,
		Payload:     req,
	})
	return nil
}

// AssignMMEUEID lets the MME-app bind the MME-UE-ID it allocated for a
// UE reference created by handleInitialUEMessage (spec.md §3: "MME-
// assigned UE ID ... allocated by the MME-app on first ingress").
func (e *Engine) AssignMMEUEID(assoc enb.AssociationID, enbUEID ue.ENBUEID, mmeUEID ue.MMEUEID) error {
	ref, ok := e.ues.LookupByENBUEID(assoc, enbUEID)
	if !ok {
		return newError(ErrorIdentityMismatch, "AssignMMEUEID for unknown eNB-UE-ID", nil)
	}
	if err := e.ues.BindMMEUEID(ref, mmeUEID); err != nil {
		return newError(ErrorIdentityMismatch, "failed to bind MME-UE-ID for InitialUEMessage", err)
	}
	return nil
}
