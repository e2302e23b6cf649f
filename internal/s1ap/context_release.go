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

// handleUEContextReleaseRequest implements the peer-initiated half of
// the three-way UE-context release (spec.md §4.3), grounded on
// s1ap_mme_handle_ue_context_release_request: a peer-reported release
// request is forwarded upward; the MME-app decides whether and with
// what cause to actually command the release.
func (e *Engine) handleUEContextReleaseRequest(ctx context.Context, assoc enb.AssociationID, stream uint16, pdu transport.PDU) error {
	req, ok := pdu.Payload.(UEContextReleaseRequestIEs)
	if !ok {
		return newError(ErrorProtocolViolation, "UEContextReleaseRequest payload has unexpected type", nil)
	}

	ref, ok := e.ues.LookupByMMEUEID(req.MMEUEID)
	if !ok {
		e.logger.Warn("UEContextReleaseRequest for unknown MME-UE-ID", zap.Uint32("mme_ue_id", uint32(req.MMEUEID)))
		return nil
	}
	if ref.ENBUEID != req.ENBUEID {
		return newError(ErrorIdentityMismatch, "UEContextReleaseRequest eNB-UE-ID mismatch", nil)
	}

	e.sink.Publish(mmeapp.Event{
		Kind:        mmeapp.EventUEContextReleaseRequest,
		MMEUEID:     ref.MMEUEID,
		HasMMEUEID:  true,
		ENBUEID:     ref.ENBUEID,
		HasENBUEID:  true,
		ENBID:       e.enbIDFor(assoc),
		Association: assoc,
		Stream:      stream,
		Payload:     req.Cause,
	})
	return nil
}

// ReleaseCommand implements the MME-app-facing half of the three-way
// release (spec.md §4.3). It is exported because the release decision
// -- which cause to use -- belongs to the MME-app collaborator, not to
// this engine; the engine only knows how to execute it once commanded.
func (e *Engine) ReleaseCommand(assoc enb.AssociationID, mmeUEID ue.MMEUEID, cause model.UpwardCause) error {
	ref, ok := e.ues.LookupByMMEUEID(mmeUEID)
	if !ok {
		return newError(ErrorIdentityMismatch, "release commanded for unknown MME-UE-ID", nil)
	}

	if cause.IsImplicitRelease() {
		e.ues.Remove(ref)
		e.enbs.DecUECount(assoc)
		e.sink.Publish(e.releaseCompleteEvent(assoc, ref))
		e.RefreshGauges()
		return nil
	}

	wire := cause.ToWireCause()

	if cause.IsImmediateFailure() {
		e.send(assoc, ref.OutStream, transport.PDU{
			ProcedureCode: int(ProcedureUEContextRelease),
			Direction:     transport.DirectionInitiating,
			Payload: UEContextReleaseCommandIEs{
				MMEUEID: ref.MMEUEID,
				ENBUEID: ref.ENBUEID,
				Cause:   wire,
			},
		})
		e.ues.Remove(ref)
		e.enbs.DecUECount(assoc)
		e.sink.Publish(e.releaseCompleteEvent(assoc, ref))
		e.RefreshGauges()
		return nil
	}

	e.send(assoc, ref.OutStream, transport.PDU{
		ProcedureCode: int(ProcedureUEContextRelease),
		Direction:     transport.DirectionInitiating,
		Payload: UEContextReleaseCommandIEs{
			MMEUEID: ref.MMEUEID,
			ENBUEID: ref.ENBUEID,
			Cause:   wire,
		},
	})
	ref.State = ue.StateWaitingReleaseComplete
	ref.LastReleaseCause = wire.Group.String()
	ref.ReleaseTimer.Arm(e.cfg.Timers.UEContextRelease, func() {
		e.onReleaseTimerExpiry(assoc, ref)
	})
	return nil
}

func (e *Engine) onReleaseTimerExpiry(assoc enb.AssociationID, ref *ue.Reference) {
	e.logger.Info("release timer expired, synthesizing release-complete",
		zap.Uint32("mme_ue_id", uint32(ref.MMEUEID)),
	)
	metrics.ReleaseTimerExpirations.Inc()
	e.ues.Remove(ref)
	e.enbs.DecUECount(assoc)
	e.sink.Publish(e.releaseCompleteEvent(assoc, ref))
	e.RefreshGauges()
}

// handleUEContextReleaseComplete implements the successful-outcome arm
// of UEContextRelease: stop the release timer, notify upward, remove
// the reference. A release-complete for an already-removed UE is a
// no-op returning success (spec.md §8).
func (e *Engine) handleUEContextReleaseComplete(ctx context.Context, assoc enb.AssociationID, pdu transport.PDU) error {
	comp, ok := pdu.Payload.(UEContextReleaseCompleteIEs)
	if !ok {
		return newError(ErrorProtocolViolation, "UEContextReleaseComplete payload has unexpected type", nil)
	}

	ref, ok := e.ues.LookupByMMEUEID(comp.MMEUEID)
	if !ok {
		return nil
	}

	e.ues.Remove(ref)
	e.enbs.DecUECount(assoc)
	e.sink.Publish(e.releaseCompleteEvent(assoc, ref))
	e.RefreshGauges()
	return nil
}

func (e *Engine) releaseCompleteEvent(assoc enb.AssociationID, ref *ue.Reference) mmeapp.Event {
	return mmeapp.Event{
		Kind:        mmeapp.EventUEContextReleaseComplete,
		MMEUEID:     ref.MMEUEID,
		HasMMEUEID:  ref.HasMMEUEID,
		ENBUEID:     ref.ENBUEID,
		HasENBUEID:  true,
		ENBID:       e.enbIDFor(assoc),
		Association: assoc,
	}
}
