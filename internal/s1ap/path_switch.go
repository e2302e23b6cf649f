package s1ap

import (
	"context"

	"github.com/your-org/mme-s1ap-core/internal/enb"
	"github.com/your-org/mme-s1ap-core/internal/mmeapp"
	"github.com/your-org/mme-s1ap-core/internal/model"
	"github.com/your-org/mme-s1ap-core/internal/transport"
	"github.com/your-org/mme-s1ap-core/internal/ue"
)

// handlePathSwitch implements spec.md §4.3's PathSwitchRequest: the
// old UE reference is removed (its eNB-UE-ID will change) and a new
// one is created under the arriving association, grounded on
// s1ap_mme_handle_path_switch_request.
func (e *Engine) handlePathSwitch(ctx context.Context, assoc enb.AssociationID, stream uint16, pdu transport.PDU) error {
	req, ok := pdu.Payload.(PathSwitchRequestIEs)
	if !ok {
		return newError(ErrorProtocolViolation, "PathSwitchRequest payload has unexpected type", nil)
	}

	old, ok := e.ues.LookupByMMEUEID(req.SourceMMEUEID)
	if !ok {
		e.send(assoc, stream, transport.PDU{
			ProcedureCode: int(ProcedurePathSwitchRequest),
			Direction:     transport.DirectionUnsuccessful,
			Payload: PathSwitchRequestFailureIEs{
				MMEUEID: req.SourceMMEUEID,
				Cause:   model.CauseMisc(model.CauseMiscUnspecified),
			},
		})
		return nil
	}

	oldAssoc := old.Association
	e.ues.Remove(old)
	e.enbs.DecUECount(oldAssoc)

	d, ok := e.enbs.Get(assoc)
	if !ok {
		return newError(ErrorProtocolViolation, "PathSwitchRequest arrived on an unregistered association", nil)
	}

	next, err := e.ues.New(d, req.NewENBUEID, stream, req.SourceMMEUEID, true)
	if err != nil {
		return newError(ErrorResourceExhausted, "failed to allocate path-switch UE reference", err)
	}
	e.enbs.IncUECount(assoc)
	next.State = ue.StateConnected
	e.RefreshGauges()

	e.sink.Publish(mmeapp.Event{
		Kind:        mmeapp.EventPathSwitchRequest,
		MMEUEID:     next.MMEUEID,
		HasMMEUEID:  true,
		ENBUEID:     next.ENBUEID,
		HasENBUEID:  true,
		ENBID:       d.ENBID,
		Association: assoc,
		Stream:      stream,
		Payload:     req,
	})
	return nil
}
