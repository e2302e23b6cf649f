package s1ap

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/your-org/mme-s1ap-core/common/metrics"
	"github.com/your-org/mme-s1ap-core/internal/config"
	"github.com/your-org/mme-s1ap-core/internal/enb"
	"github.com/your-org/mme-s1ap-core/internal/mmeapp"
	"github.com/your-org/mme-s1ap-core/internal/transport"
	"github.com/your-org/mme-s1ap-core/internal/ue"
)

// Engine is the S1AP procedure engine (spec.md section 4.3): it owns
// the eNodeB registry and the UE reference store and drives every
// procedure named in SPEC_FULL.md section 10's package layout. It is
// grounded on the teacher's CentralUnit shape
// (nf/gnb/internal/cu.CentralUnit): one struct holding its state
// stores plus its collaborators, with one method per inbound message.
type Engine struct {
	cfg *config.Config

	enbs *enb.Registry
	ues  *ue.Store

	transport transport.StreamTransport
	codec     transport.Codec
	sink      mmeapp.Sink

	logger *zap.Logger
	tracer trace.Tracer
}

// NewEngine wires an Engine from its collaborators (spec.md section 1's
// external-collaborator boundaries: transport, codec, sink are all
// supplied by the caller, never constructed here).
func NewEngine(cfg *config.Config, tp transport.StreamTransport, codec transport.Codec, sink mmeapp.Sink, logger *zap.Logger) *Engine {
	return &Engine{
		cfg:       cfg,
		enbs:      enb.NewRegistry(),
		ues:       ue.NewStore(),
		transport: tp,
		codec:     codec,
		sink:      sink,
		logger:    logger,
		tracer:    otel.Tracer("s1ap-engine"),
	}
}

// Registry exposes the eNodeB registry for the admin read surface.
func (e *Engine) Registry() *enb.Registry { return e.enbs }

// UEStore exposes the UE reference store for the admin read surface.
func (e *Engine) UEStore() *ue.Store { return e.ues }

// send encodes a PDU and hands it to the transport, logging but not
// returning an error if delivery fails -- the association's own
// failure detection (peer disconnect) is what drives cleanup, not the
// send call site (spec.md section 5: "never block on user code except
// mailbox enqueue").
func (e *Engine) send(assoc enb.AssociationID, stream uint16, pdu transport.PDU) {
	raw, err := e.codec.EncodePDU(pdu)
	if err != nil {
		e.logger.Error("failed to encode outbound PDU",
			zap.Uint64("association", uint64(assoc)),
			zap.Int("procedure_code", pdu.ProcedureCode),
			zap.Error(err),
		)
		return
	}
	if err := e.transport.Send(assoc, stream, raw); err != nil {
		e.logger.Warn("failed to send outbound PDU",
			zap.Uint64("association", uint64(assoc)),
			zap.Int("procedure_code", pdu.ProcedureCode),
			zap.Error(err),
		)
	}
}

// Dispatch decodes and routes one inbound PDU (spec.md section 4.3).
// Routing is keyed by procedure code; the handlers of procedures with
// more than one outcome (InitialContextSetup, HandoverResourceAllocation,
// E-RABSetup) branch on direction themselves, and the other handlers do
// not look at direction. Unknown procedure codes are logged and dropped
// rather than treated as a fatal error, matching the original source's
// behavior for procedures this core does not implement (e.g.
// E-RABModify).
func (e *Engine) Dispatch(ctx context.Context, assoc enb.AssociationID, stream uint16, raw []byte) error {
	pdu, err := e.codec.DecodePDU(raw)
	if err != nil {
		return newError(ErrorProtocolViolation, "failed to decode inbound PDU", err)
	}

	code := ProcedureCode(pdu.ProcedureCode)
	ctx, span := e.tracer.Start(ctx, "Engine.Dispatch")
	defer span.End()
	span.SetAttributes(
		attribute.Int64("association", int64(assoc)),
		attribute.String("procedure", code.String()),
	)

	err = e.route(ctx, code, assoc, stream, pdu)

	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	metrics.RecordS1APProcedure(code.String(), outcome)
	return err
}

func (e *Engine) route(ctx context.Context, code ProcedureCode, assoc enb.AssociationID, stream uint16, pdu transport.PDU) error {
	switch code {
	case ProcedureS1Setup:
		return e.handleS1SetupRequest(ctx, assoc, stream, pdu)
	case ProcedureInitialUEMessage:
		return e.handleInitialUEMessage(ctx, assoc, stream, pdu)
	case ProcedureReset:
		return e.handleReset(ctx, assoc, stream, pdu)
	case ProcedureErrorIndication:
		return e.handleErrorIndication(ctx, assoc, pdu)
	case ProcedureInitialContextSetup:
		return e.handleInitialContextSetupOutcome(ctx, assoc, pdu)
	case ProcedureUEContextReleaseRequest:
		return e.handleUEContextReleaseRequest(ctx, assoc, stream, pdu)
	case ProcedureUEContextRelease:
		return e.handleUEContextReleaseComplete(ctx, assoc, pdu)
	case ProcedurePathSwitchRequest:
		return e.handlePathSwitch(ctx, assoc, stream, pdu)
	case ProcedureHandoverPreparation:
		return e.handleHandoverRequired(ctx, assoc, pdu)
	case ProcedureHandoverCancel:
		return e.handleHandoverCancel(ctx, assoc, pdu)
	case ProcedureENBStatusTransfer:
		return e.handleENBStatusTransfer(ctx, assoc, pdu)
	case ProcedureHandoverResourceAllocation:
		return e.handleHandoverResourceAllocationOutcome(ctx, assoc, stream, pdu)
	case ProcedureHandoverNotification:
		return e.handleHandoverNotify(ctx, assoc, stream, pdu)
	case ProcedureUECapabilityInfoIndication:
		return e.handleUECapabilityInfoIndication(ctx, assoc, pdu)
	case ProcedureERABSetup:
		return e.handleERABSetupOutcome(ctx, assoc, pdu)
	case ProcedureERABRelease:
		return e.handleERABReleaseOutcome(ctx, assoc, pdu)
	case ProcedureERABReleaseIndication:
		return e.handleERABReleaseIndication(ctx, assoc, pdu)
	default:
		e.logger.Debug("dropping unhandled procedure",
			zap.String("procedure", code.String()),
			zap.Uint64("association", uint64(assoc)),
		)
		return nil
	}
}

// OnPeerConnected implements spec.md section 4.1's on-new-peer event.
func (e *Engine) OnPeerConnected(assoc enb.AssociationID, inStreams, outStreams uint16) error {
	_, err := e.enbs.OnNewPeer(assoc, inStreams, outStreams)
	if err != nil {
		return newError(ErrorProtocolViolation, "peer connect rejected", err)
	}
	e.logger.Info("eNodeB association opened", zap.Uint64("association", uint64(assoc)))
	e.RefreshGauges()
	return nil
}

// OnPeerDisconnected implements spec.md section 4.1's peer-disconnect
// teardown: every attached UE reference is dropped and reported
// upward as a deregistration before the descriptor itself is removed.
func (e *Engine) OnPeerDisconnected(assoc enb.AssociationID) {
	_, ok := e.enbs.Get(assoc)
	if !ok {
		return
	}

	e.removeAndPublishBatched(assoc)
	e.enbs.Remove(assoc)
	e.logger.Info("eNodeB association closed", zap.Uint64("association", uint64(assoc)))
	e.RefreshGauges()
}

// RefreshGauges republishes the eNodeB/UE-reference Prometheus gauges
// from the registry and store's current sizes. cmd/mme calls this on
// a ticker; the engine also calls it after operations that change
// either population outside the request/response hot path.
func (e *Engine) RefreshGauges() {
	metrics.SetConnectedENBs(e.enbs.ReadyCount())
	metrics.SetActiveUEReferences(e.ues.Count())
}

func wrapf(kind ErrorKind, format string, args ...any) *CoreError {
	return newError(kind, fmt.Sprintf(format, args...), nil)
}
