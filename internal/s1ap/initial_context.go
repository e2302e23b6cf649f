package s1ap

import (
	"context"

	"github.com/your-org/mme-s1ap-core/internal/enb"
	"github.com/your-org/mme-s1ap-core/internal/mmeapp"
	"github.com/your-org/mme-s1ap-core/internal/transport"
	"github.com/your-org/mme-s1ap-core/internal/ue"
)

// handleInitialContextSetupOutcome dispatches InitialContextSetup's
// successful and unsuccessful outcomes (spec.md §4.3).
func (e *Engine) handleInitialContextSetupOutcome(ctx context.Context, assoc enb.AssociationID, pdu transport.PDU) error {
	switch pdu.Direction {
	case transport.DirectionSuccessful:
		return e.handleInitialContextSetupResponse(ctx, assoc, pdu)
	case transport.DirectionUnsuccessful:
		return e.handleInitialContextSetupFailure(ctx, assoc, pdu)
	default:
		return newError(ErrorProtocolViolation, "InitialContextSetup in unexpected direction", nil)
	}
}

// handleInitialContextSetupResponse cross-checks (MME-UE-ID,
// eNB-UE-ID) against the stored reference, rejects an empty admitted
// E-RAB list as a protocol failure, transitions the UE to CONNECTED,
// and forwards the admitted list upward (spec.md §4.3).
func (e *Engine) handleInitialContextSetupResponse(ctx context.Context, assoc enb.AssociationID, pdu transport.PDU) error {
	resp, ok := pdu.Payload.(InitialContextSetupResponseIEs)
	if !ok {
		return newError(ErrorProtocolViolation, "InitialContextSetupResponse payload has unexpected type", nil)
	}

	ref, ok := e.ues.LookupByMMEUEID(resp.MMEUEID)
	if !ok {
		return newError(ErrorIdentityMismatch, "InitialContextSetupResponse for unknown MME-UE-ID", nil)
	}
	if ref.ENBUEID != resp.ENBUEID {
		return newError(ErrorIdentityMismatch, "InitialContextSetupResponse eNB-UE-ID mismatch", nil)
	}
	if len(resp.AdmittedERABs) == 0 {
		return newError(ErrorProtocolViolation, "InitialContextSetupResponse carries an empty admitted E-RAB list", nil)
	}

	ref.State = ue.StateConnected

	e.sink.Publish(mmeapp.Event{
		Kind:        mmeapp.EventInitialContextSetupResponse,
		MMEUEID:     ref.MMEUEID,
		HasMMEUEID:  true,
		ENBUEID:     ref.ENBUEID,
		HasENBUEID:  true,
		ENBID:       e.enbIDFor(assoc),
		Association: assoc,
		Payload:     resp.AdmittedERABs,
	})
	return nil
}

// handleInitialContextSetupFailure surfaces the cause upward without
// deleting the UE reference -- the upper layer decides (spec.md §4.3).
func (e *Engine) handleInitialContextSetupFailure(ctx context.Context, assoc enb.AssociationID, pdu transport.PDU) error {
	fail, ok := pdu.Payload.(InitialContextSetupFailureIEs)
	if !ok {
		return newError(ErrorProtocolViolation, "InitialContextSetupFailure payload has unexpected type", nil)
	}

	ref, ok := e.ues.LookupByMMEUEID(fail.MMEUEID)
	if !ok {
		return newError(ErrorIdentityMismatch, "InitialContextSetupFailure for unknown MME-UE-ID", nil)
	}

	e.sink.Publish(mmeapp.Event{
		Kind:        mmeapp.EventInitialContextSetupFailure,
		MMEUEID:     ref.MMEUEID,
		HasMMEUEID:  true,
		ENBUEID:     ref.ENBUEID,
		HasENBUEID:  true,
		ENBID:       e.enbIDFor(assoc),
		Association: assoc,
		Payload:     fail.Cause,
	})
	return nil
}
