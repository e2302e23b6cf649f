package s1ap

import (
	"context"

	"github.com/your-org/mme-s1ap-core/internal/enb"
	"github.com/your-org/mme-s1ap-core/internal/mmeapp"
	"github.com/your-org/mme-s1ap-core/internal/model"
	"github.com/your-org/mme-s1ap-core/internal/transport"
)

// handleErrorIndication parses (MME-UE-ID, eNB-UE-ID, cause) and drops
// silently if no UE reference is found; otherwise forwards upward
// tagged as the handover-failed cause category for MME-app
// adjudication (spec.md §4.3), grounded on
// s1ap_mme_handle_error_ind_message.
func (e *Engine) handleErrorIndication(ctx context.Context, assoc enb.AssociationID, pdu transport.PDU) error {
	ind, ok := pdu.Payload.(ErrorIndicationIEs)
	if !ok {
		return newError(ErrorProtocolViolation, "ErrorIndication payload has unexpected type", nil)
	}

	if !ind.HasMMEUEID {
		return nil
	}
	ref, ok := e.ues.LookupByMMEUEID(ind.MMEUEID)
	if !ok {
		return nil
	}

	e.sink.Publish(mmeapp.Event{
		Kind:        mmeapp.EventErrorIndication,
		MMEUEID:     ref.MMEUEID,
		HasMMEUEID:  true,
		ENBUEID:     ref.ENBUEID,
		HasENBUEID:  true,
		ENBID:       e.enbIDFor(assoc),
		Association: assoc,
		Payload:     model.UpwardCauseHandoverFailed,
	})
	return nil
}
