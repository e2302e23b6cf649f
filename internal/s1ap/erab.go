package s1ap

import (
	"context"

	"github.com/your-org/mme-s1ap-core/internal/enb"
	"github.com/your-org/mme-s1ap-core/internal/mmeapp"
	"github.com/your-org/mme-s1ap-core/internal/transport"
)

// handleERABSetupOutcome dispatches E-RABSetup's successful and
// unsuccessful outcomes, supplementing the distilled spec with the
// per-E-RAB lifecycle the original source tracks in
// s1ap_mme_handle_erab_setup_response / ..._failure (SPEC_FULL.md §11).
func (e *Engine) handleERABSetupOutcome(ctx context.Context, assoc enb.AssociationID, pdu transport.PDU) error {
	switch pdu.Direction {
	case transport.DirectionSuccessful:
		resp, ok := pdu.Payload.(ERABSetupResponseIEs)
		if !ok {
			return newError(ErrorProtocolViolation, "E-RABSetupResponse payload has unexpected type", nil)
		}
		ref, ok := e.ues.LookupByMMEUEID(resp.MMEUEID)
		if !ok {
			return newError(ErrorIdentityMismatch, "E-RABSetupResponse for unknown MME-UE-ID", nil)
		}
		e.sink.Publish(mmeapp.Event{
			Kind: mmeapp.EventERABSetupOutcome, MMEUEID: ref.MMEUEID, HasMMEUEID: true,
			ENBUEID: ref.ENBUEID, HasENBUEID: true, ENBID: e.enbIDFor(assoc), Association: assoc,
			Payload: resp,
		})
		return nil
	case transport.DirectionUnsuccessful:
		fail, ok := pdu.Payload.(ERABSetupFailureIEs)
		if !ok {
			return newError(ErrorProtocolViolation, "E-RABSetupFailure payload has unexpected type", nil)
		}
		ref, ok := e.ues.LookupByMMEUEID(fail.MMEUEID)
		if !ok {
			return newError(ErrorIdentityMismatch, "E-RABSetupFailure for unknown MME-UE-ID", nil)
		}
		e.sink.Publish(mmeapp.Event{
			Kind: mmeapp.EventERABSetupOutcome, MMEUEID: ref.MMEUEID, HasMMEUEID: true,
			ENBUEID: ref.ENBUEID, HasENBUEID: true, ENBID: e.enbIDFor(assoc), Association: assoc,
			Payload: fail,
		})
		return nil
	default:
		return newError(ErrorProtocolViolation, "E-RABSetup in unexpected direction", nil)
	}
}

// handleERABReleaseOutcome handles E-RABRelease's successful outcome
// (the original source wires no failure direction for this procedure).
func (e *Engine) handleERABReleaseOutcome(ctx context.Context, assoc enb.AssociationID, pdu transport.PDU) error {
	resp, ok := pdu.Payload.(ERABReleaseResponseIEs)
	if !ok {
		return newError(ErrorProtocolViolation, "E-RABReleaseResponse payload has unexpected type", nil)
	}
	ref, ok := e.ues.LookupByMMEUEID(resp.MMEUEID)
	if !ok {
		return newError(ErrorIdentityMismatch, "E-RABReleaseResponse for unknown MME-UE-ID", nil)
	}
	e.sink.Publish(mmeapp.Event{
		Kind: mmeapp.EventERABReleaseOutcome, MMEUEID: ref.MMEUEID, HasMMEUEID: true,
		ENBUEID: ref.ENBUEID, HasENBUEID: true, ENBID: e.enbIDFor(assoc), Association: assoc,
		Payload: resp,
	})
	return nil
}

// handleERABReleaseIndication forwards a peer-initiated E-RAB release
// indication upward without waiting for any MME-app command.
func (e *Engine) handleERABReleaseIndication(ctx context.Context, assoc enb.AssociationID, pdu transport.PDU) error {
	ind, ok := pdu.Payload.(ERABReleaseIndicationIEs)
	if !ok {
		return newError(ErrorProtocolViolation, "E-RABReleaseIndication payload has unexpected type", nil)
	}
	ref, ok := e.ues.LookupByMMEUEID(ind.MMEUEID)
	if !ok {
		return newError(ErrorIdentityMismatch, "E-RABReleaseIndication for unknown MME-UE-ID", nil)
	}
	e.sink.Publish(mmeapp.Event{
		Kind: mmeapp.EventERABReleaseIndication, MMEUEID: ref.MMEUEID, HasMMEUEID: true,
		ENBUEID: ref.ENBUEID, HasENBUEID: true, ENBID: e.enbIDFor(assoc), Association: assoc,
		Payload: ind,
	})
	return nil
}

// handleUECapabilityInfoIndication forwards UE radio capability info
// upward without any state change, grounded on
// s1ap_mme_handle_ue_cap_indication (SPEC_FULL.md §11).
func (e *Engine) handleUECapabilityInfoIndication(ctx context.Context, assoc enb.AssociationID, pdu transport.PDU) error {
	ind, ok := pdu.Payload.(UECapabilityInfoIndicationIEs)
	if !ok {
		return newError(ErrorProtocolViolation, "UECapabilityInfoIndication payload has unexpected type", nil)
	}
	ref, ok := e.ues.LookupByMMEUEID(ind.MMEUEID)
	if !ok {
		return newError(ErrorIdentityMismatch, "UECapabilityInfoIndication for unknown MME-UE-ID", nil)
	}
	e.sink.Publish(mmeapp.Event{
		Kind: mmeapp.EventUECapabilityInfoIndication, MMEUEID: ref.MMEUEID, HasMMEUEID: true,
		ENBUEID: ref.ENBUEID, HasENBUEID: true, ENBID: e.enbIDFor(assoc), Association: assoc,
		Payload: ind.RadioCapability,
	})
	return nil
}
