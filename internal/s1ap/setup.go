package s1ap

import (
	"context"

	"go.uber.org/zap"

	"github.com/your-org/mme-s1ap-core/internal/enb"
	"github.com/your-org/mme-s1ap-core/internal/mmeapp"
	"github.com/your-org/mme-s1ap-core/internal/model"
	"github.com/your-org/mme-s1ap-core/internal/transport"
	"github.com/your-org/mme-s1ap-core/internal/ue"
)

// handleS1SetupRequest implements spec.md section 4.1's S1 Setup
// procedure: capacity and PLMN checks, then either S1SetupResponse or
// S1SetupFailure, grounded on the original source's
// s1ap_mme_handle_s1_setup_request.
func (e *Engine) handleS1SetupRequest(ctx context.Context, assoc enb.AssociationID, stream uint16, pdu transport.PDU) error {
	if stream != transport.StreamZero {
		e.logger.Warn("rejecting S1 setup: received on non-zero stream",
			zap.Uint64("association", uint64(assoc)),
			zap.Uint16("stream", stream),
		)
		e.send(assoc, transport.StreamZero, transport.PDU{
			ProcedureCode: int(ProcedureS1Setup),
			Direction:     transport.DirectionUnsuccessful,
			Payload: S1SetupFailureIEs{
				Cause: model.CauseProtocol(model.CauseProtocolUnspecified),
			},
		})
		return nil
	}

	req, ok := pdu.Payload.(S1SetupRequestIEs)
	if !ok {
		return newError(ErrorProtocolViolation, "S1SetupRequest payload has unexpected type", nil)
	}

	if err := e.enbs.BeginSetup(assoc, req.ENBID); err != nil {
		e.logger.Warn("rejecting S1 setup: duplicate eNodeB ID",
			zap.String("enb_id", req.ENBID.String()),
			zap.Error(err),
		)
		e.send(assoc, stream, transport.PDU{
			ProcedureCode: int(ProcedureS1Setup),
			Direction:     transport.DirectionUnsuccessful,
			Payload: S1SetupFailureIEs{
				Cause:      model.CauseMisc(model.CauseMiscUnknownPLMN),
				TimeToWait: int(enb.SetupOverloadTimeToWait.Seconds()),
			},
		})
		return nil
	}

	if e.enbs.ReadyCount() >= e.cfg.Limits.MaxENBs {
		e.logger.Warn("rejecting S1 setup: capacity exceeded", zap.Int("max_enbs", e.cfg.Limits.MaxENBs))
		e.send(assoc, stream, transport.PDU{
			ProcedureCode: int(ProcedureS1Setup),
			Direction:     transport.DirectionUnsuccessful,
			Payload: S1SetupFailureIEs{
				Cause:      model.CauseMisc(model.CauseMiscControlProcessingOverload),
				TimeToWait: int(enb.SetupOverloadTimeToWait.Seconds()),
			},
		})
		return nil
	}

	if !e.anyTAServed(req.SupportedTAs) {
		e.logger.Warn("rejecting S1 setup: no overlap between Supported-TAs and served PLMNs",
			zap.Int("supported_tas", len(req.SupportedTAs)),
		)
		e.send(assoc, stream, transport.PDU{
			ProcedureCode: int(ProcedureS1Setup),
			Direction:     transport.DirectionUnsuccessful,
			Payload: S1SetupFailureIEs{
				Cause:      model.CauseMisc(model.CauseMiscUnknownPLMN),
				TimeToWait: int(enb.SetupOverloadTimeToWait.Seconds()),
			},
		})
		return nil
	}

	if err := e.enbs.CompleteSetup(assoc, req.ENBID, req.ENBName, req.DefaultDRX, req.SupportedTAs); err != nil {
		return newError(ErrorProtocolViolation, "failed to complete S1 setup", err)
	}

	e.logger.Info("S1 setup complete",
		zap.String("enb_id", req.ENBID.String()),
		zap.String("enb_name", req.ENBName),
		zap.Uint64("association", uint64(assoc)),
	)

	e.send(assoc, stream, transport.PDU{
		ProcedureCode: int(ProcedureS1Setup),
		Direction:     transport.DirectionSuccessful,
		Payload: S1SetupResponseIEs{
			ServedGUMMEIs:    []model.GUMMEI{e.cfg.Served.GUMMEI.ToModel()},
			RelativeCapacity: uint8(e.cfg.Limits.RelativeCapacity),
		},
	})
	return nil
}

// anyTAServed reports whether any of the requested Supported-TAs name a
// PLMN this core serves (spec.md section 4.1: "Compare the requested
// Supported-TAs list against the MME-served PLMNs; on no overlap,
// reply S1SetupFailure"). The eNodeB's own Global-ID PLMN is not part
// of this check -- an eNodeB may belong to one PLMN while only serving
// tracking areas of another that this core handles.
func (e *Engine) anyTAServed(tas []model.TAI) bool {
	served := e.cfg.ServedPLMNs()
	for _, ta := range tas {
		for _, p := range served {
			if p.Equal(ta.PLMN) {
				return true
			}
		}
	}
	return false
}

// ResetRequiredPayload is the Payload carried by EventResetRequired: it
// echoes the inbound Reset so the MME-app can decide which of the
// named UEs to actually tear down, then hand the same values back to
// Engine.CompleteReset to acknowledge (spec.md section 4.1).
type ResetRequiredPayload struct {
	Full    bool
	Partial []ResetUEPair
}

// handleReset implements the request half of spec.md section 4.1's
// Reset procedure, grounded on s1ap_mme_handle_enb_reset: validate and
// move the descriptor to RESETTING, then publish an upward
// EventResetRequired and wait for the MME-app's decision. It does not
// itself tear down any UE or send ResetAcknowledge -- that is
// Engine.CompleteReset's job, mirroring the original source's split of
// the reset request from s1ap_handle_enb_initiated_reset_ack.
func (e *Engine) handleReset(ctx context.Context, assoc enb.AssociationID, stream uint16, pdu transport.PDU) error {
	req, ok := pdu.Payload.(ResetIEs)
	if !ok {
		return newError(ErrorProtocolViolation, "Reset payload has unexpected type", nil)
	}

	if !req.Full {
		if d, ok := e.enbs.Get(assoc); ok && len(req.Partial) > d.UECount() {
			return newError(ErrorProtocolViolation, "partial reset names more UEs than are connected", nil)
		}
	}

	if err := e.enbs.BeginReset(assoc); err != nil {
		return newError(ErrorProtocolViolation, "reset rejected: descriptor not READY", err)
	}

	e.sink.Publish(mmeapp.Event{
		Kind:        mmeapp.EventResetRequired,
		ENBID:       e.enbIDFor(assoc),
		Association: assoc,
		Stream:      stream,
		Payload:     ResetRequiredPayload{Full: req.Full, Partial: req.Partial},
	})
	return nil
}

// CompleteReset implements the MME-app-facing completion half of the
// Reset procedure (spec.md section 4.1: "later, on receipt of a
// reset-ack from the upward layer, encode ResetAcknowledge listing the
// acknowledged pairs"). full and partial must echo the
// ResetRequiredPayload of the EventResetRequired being acknowledged. A
// full reset tears down every UE under the association in batches
// (removeAndPublishBatched); a partial reset tears down only the named
// pairs that still resolve to a reference, logging and skipping any
// that don't.
func (e *Engine) CompleteReset(assoc enb.AssociationID, stream uint16, full bool, partial []ResetUEPair) error {
	var acked []ResetUEPair
	if full {
		e.removeAndPublishBatched(assoc)
	} else {
		for _, pair := range partial {
			ref, ok := e.resolveResetPair(assoc, pair)
			if !ok {
				e.logger.Warn("skipping reset entry naming neither ID",
					zap.Uint64("association", uint64(assoc)),
				)
				continue
			}
			e.publishPeerDeregistration(assoc, ref)
			e.ues.Remove(ref)
			e.enbs.DecUECount(assoc)
			acked = append(acked, pair)
		}
	}

	if err := e.enbs.CompleteReset(assoc); err != nil {
		return newError(ErrorProtocolViolation, "failed to complete reset", err)
	}
	e.RefreshGauges()

	e.send(assoc, stream, transport.PDU{
		ProcedureCode: int(ProcedureReset),
		Direction:     transport.DirectionSuccessful,
		Payload:       ResetAcknowledgeIEs{Acknowledged: acked},
	})
	return nil
}

func (e *Engine) resolveResetPair(assoc enb.AssociationID, pair ResetUEPair) (*ue.Reference, bool) {
	if pair.HasMMEUEID {
		if ref, ok := e.ues.LookupByMMEUEID(pair.MMEUEID); ok {
			return ref, true
		}
	}
	if pair.HasENBUEID {
		if ref, ok := e.ues.LookupByENBUEID(assoc, pair.ENBUEID); ok {
			return ref, true
		}
	}
	return nil, false
}

