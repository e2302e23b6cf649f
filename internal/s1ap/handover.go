package s1ap

import (
	"context"

	"go.uber.org/zap"

	"github.com/your-org/mme-s1ap-core/common/metrics"
	"github.com/your-org/mme-s1ap-core/internal/enb"
	"github.com/your-org/mme-s1ap-core/internal/mmeapp"
	"github.com/your-org/mme-s1ap-core/internal/model"
	"github.com/your-org/mme-s1ap-core/internal/transport"
	"github.com/your-org/mme-s1ap-core/internal/ue"
)

// handleHandoverRequired implements the source-side HandoverPreparation
// initiating message (named HandoverRequired in the 3GPP procedure,
// spec.md §4.3): requires the UE reference exist and be CONNECTED,
// then forwards the opaque transparent container upward.
func (e *Engine) handleHandoverRequired(ctx context.Context, assoc enb.AssociationID, pdu transport.PDU) error {
	req, ok := pdu.Payload.(HandoverRequiredIEs)
	if !ok {
		return newError(ErrorProtocolViolation, "HandoverRequired payload has unexpected type", nil)
	}

	ref, ok := e.ues.LookupByMMEUEID(req.MMEUEID)
	if !ok || ref.State != ue.StateConnected {
		return newError(ErrorIdentityMismatch, "HandoverRequired for a UE reference not CONNECTED", nil)
	}

	ref.TransparentContainer = req.SourceToTarget

	e.sink.Publish(mmeapp.Event{
		Kind:        mmeapp.EventHandoverRequired,
		MMEUEID:     ref.MMEUEID,
		HasMMEUEID:  true,
		ENBUEID:     ref.ENBUEID,
		HasENBUEID:  true,
		ENBID:       e.enbIDFor(assoc),
		Association: assoc,
		Payload:     req,
	})
	return nil
}

// handleHandoverCancel implements the source-side HandoverCancel
// procedure: requires the UE reference exist and be CONNECTED, then
// forwards upward with the association identifier (spec.md §4.3).
func (e *Engine) handleHandoverCancel(ctx context.Context, assoc enb.AssociationID, pdu transport.PDU) error {
	req, ok := pdu.Payload.(HandoverCancelIEs)
	if !ok {
		return newError(ErrorProtocolViolation, "HandoverCancel payload has unexpected type", nil)
	}

	ref, ok := e.ues.LookupByMMEUEID(req.MMEUEID)
	if !ok || ref.State != ue.StateConnected {
		return newError(ErrorIdentityMismatch, "HandoverCancel for a UE reference not CONNECTED", nil)
	}

	e.sink.Publish(mmeapp.Event{
		Kind:        mmeapp.EventHandoverCancel,
		MMEUEID:     ref.MMEUEID,
		HasMMEUEID:  true,
		ENBUEID:     ref.ENBUEID,
		HasENBUEID:  true,
		ENBID:       e.enbIDFor(assoc),
		Association: assoc,
		Payload:     req.Cause,
	})
	return nil
}

// handleENBStatusTransfer parses the bearer status list and forwards
// it opaquely upward (spec.md §4.3).
func (e *Engine) handleENBStatusTransfer(ctx context.Context, assoc enb.AssociationID, pdu transport.PDU) error {
	req, ok := pdu.Payload.(ENBStatusTransferIEs)
	if !ok {
		return newError(ErrorProtocolViolation, "eNBStatusTransfer payload has unexpected type", nil)
	}

	ref, ok := e.ues.LookupByMMEUEID(req.MMEUEID)
	if !ok {
		return newError(ErrorIdentityMismatch, "eNBStatusTransfer for unknown MME-UE-ID", nil)
	}

	e.sink.Publish(mmeapp.Event{
		Kind:        mmeapp.EventENBStatusTransfer,
		MMEUEID:     ref.MMEUEID,
		HasMMEUEID:  true,
		ENBUEID:     ref.ENBUEID,
		HasENBUEID:  true,
		ENBID:       e.enbIDFor(assoc),
		Association: assoc,
		Payload:     req.Bearers,
	})
	return nil
}

// handleHandoverResourceAllocationOutcome dispatches the target-side
// HandoverRequestAcknowledge (successful) and HandoverFailure
// (unsuccessful) outcomes (spec.md §4.3).
func (e *Engine) handleHandoverResourceAllocationOutcome(ctx context.Context, assoc enb.AssociationID, stream uint16, pdu transport.PDU) error {
	switch pdu.Direction {
	case transport.DirectionSuccessful:
		return e.handleHandoverRequestAcknowledge(ctx, assoc, stream, pdu)
	case transport.DirectionUnsuccessful:
		return e.handleHandoverFailure(ctx, assoc, pdu)
	default:
		return newError(ErrorProtocolViolation, "HandoverResourceAllocation in unexpected direction", nil)
	}
}

// handleHandoverRequestAcknowledge creates a new UE reference under
// the target descriptor (spec.md §4.3). Any failure along the way --
// missing descriptor, allocation failure, empty admitted list --
// synthesizes an upward HandoverFailure(system-failure) and, if a
// reference was already created, fires an immediate release command,
// grounded on the original source's target-side error handling in
// s1ap_mme_handle_handover_resource_allocation_response.
func (e *Engine) handleHandoverRequestAcknowledge(ctx context.Context, assoc enb.AssociationID, stream uint16, pdu transport.PDU) error {
	ack, ok := pdu.Payload.(HandoverRequestAcknowledgeIEs)
	if !ok {
		return newError(ErrorProtocolViolation, "HandoverRequestAcknowledge payload has unexpected type", nil)
	}

	d, ok := e.enbs.Get(assoc)
	if !ok {
		e.failHandoverAllocation(ack.SourceMMEUEID, nil, assoc)
		return newError(ErrorResourceExhausted, "HandoverRequestAcknowledge references an unknown association", nil)
	}

	if len(ack.AdmittedERABs) == 0 {
		e.failHandoverAllocation(ack.SourceMMEUEID, nil, assoc)
		return newError(ErrorResourceExhausted, "HandoverRequestAcknowledge carries an empty admitted E-RAB list", nil)
	}

	ref, err := e.ues.New(d, ack.TargetENBUEID, stream, ue.MMEUEID(0), false)
	if err != nil {
		e.failHandoverAllocation(ack.SourceMMEUEID, nil, assoc)
		return newError(ErrorResourceExhausted, "failed to allocate target-side UE reference", err)
	}
	e.enbs.IncUECount(assoc)

	ref.TransparentContainer = ack.TargetToSource
	ref.State = ue.StateConnected
	ref.HandoverTimer.Arm(e.cfg.Timers.HandoverCompletion, func() {
		e.onHandoverCompletionTimerExpiry(assoc, ref)
	})
	e.RefreshGauges()

	e.sink.Publish(mmeapp.Event{
		Kind:        mmeapp.EventHandoverRequestAcknowledge,
		MMEUEID:     ack.SourceMMEUEID,
		HasMMEUEID:  true,
		ENBUEID:     ref.ENBUEID,
		HasENBUEID:  true,
		ENBID:       d.ENBID,
		Association: assoc,
		Payload:     ack,
	})
	return nil
}

// failHandoverAllocation implements the resource-exhaustion branch of
// spec.md §4.3: synthesize HandoverFailure(system-failure) upward and,
// if a reference was created before the failure was detected, issue a
// fire-and-forget release command.
func (e *Engine) failHandoverAllocation(sourceMMEUEID ue.MMEUEID, ref *ue.Reference, assoc enb.AssociationID) {
	if ref != nil {
		e.send(assoc, ref.OutStream, transport.PDU{
			ProcedureCode: int(ProcedureUEContextRelease),
			Direction:     transport.DirectionInitiating,
			Payload: UEContextReleaseCommandIEs{
				MMEUEID: ref.MMEUEID,
				ENBUEID: ref.ENBUEID,
				Cause:   model.CauseTransport(model.CauseTransportUnspecified),
			},
		})
		e.ues.Remove(ref)
		e.enbs.DecUECount(assoc)
	}
	e.sink.Publish(mmeapp.Event{
		Kind:        mmeapp.EventHandoverFailure,
		MMEUEID:     sourceMMEUEID,
		HasMMEUEID:  true,
		Association: assoc,
		Payload:     model.UpwardCauseSystemFailure,
	})
}

func (e *Engine) onHandoverCompletionTimerExpiry(assoc enb.AssociationID, ref *ue.Reference) {
	e.logger.Warn("handover completion timer expired",
		zap.Uint32("enb_ue_id", uint32(ref.ENBUEID)),
	)
	metrics.HandoverCompletionTimerExpirations.Inc()
}

// handleHandoverFailure surfaces the target's rejection upward, mapped
// to the abstract handover-failed category (spec.md §4.3).
func (e *Engine) handleHandoverFailure(ctx context.Context, assoc enb.AssociationID, pdu transport.PDU) error {
	fail, ok := pdu.Payload.(HandoverFailureIEs)
	if !ok {
		return newError(ErrorProtocolViolation, "HandoverFailure payload has unexpected type", nil)
	}

	e.sink.Publish(mmeapp.Event{
		Kind:        mmeapp.EventHandoverFailure,
		MMEUEID:     fail.SourceMMEUEID,
		HasMMEUEID:  true,
		Association: assoc,
		Payload:     model.UpwardCauseHandoverFailed,
	})
	return nil
}

// handleHandoverNotify locates the target-side reference by (target
// descriptor, target eNB-UE-ID) and forwards TAI/ECGI upward. It does
// not bind the MME-UE-ID itself: the MME-app binds it after this event
// through BindTargetMMEUEID (spec.md §4.3's dual-identity design note).
func (e *Engine) handleHandoverNotify(ctx context.Context, assoc enb.AssociationID, stream uint16, pdu transport.PDU) error {
	notify, ok := pdu.Payload.(HandoverNotifyIEs)
	if !ok {
		return newError(ErrorProtocolViolation, "HandoverNotify payload has unexpected type", nil)
	}

	ref, ok := e.ues.LookupByENBUEID(assoc, notify.TargetENBUEID)
	if !ok {
		return newError(ErrorIdentityMismatch, "HandoverNotify for unknown target eNB-UE-ID", nil)
	}

	e.sink.Publish(mmeapp.Event{
		Kind:        mmeapp.EventHandoverNotify,
		MMEUEID:     ref.MMEUEID,
		HasMMEUEID:  ref.HasMMEUEID,
		ENBUEID:     ref.ENBUEID,
		HasENBUEID:  true,
		ENBID:       e.enbIDFor(assoc),
		Association: assoc,
		Stream:      stream,
		Payload:     notify,
	})
	return nil
}

// BindTargetMMEUEID lets the MME-app complete the HandoverNotify
// binding once it has confirmed the subscriber's identity (spec.md
// §4.3: "do not bind MME-UE-ID to the target association until this
// event").
func (e *Engine) BindTargetMMEUEID(assoc enb.AssociationID, enbUEID ue.ENBUEID, mmeUEID ue.MMEUEID) error {
	ref, ok := e.ues.LookupByENBUEID(assoc, enbUEID)
	if !ok {
		return newError(ErrorIdentityMismatch, "BindTargetMMEUEID for unknown target eNB-UE-ID", nil)
	}
	if err := e.ues.BindMMEUEID(ref, mmeUEID); err != nil {
		return newError(ErrorIdentityMismatch, "failed to bind MME-UE-ID at handover notify", err)
	}
	return nil
}
