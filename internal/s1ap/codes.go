// Package s1ap implements the S1AP procedure engine (spec.md
// section 4.3): the dispatch table keyed by (procedure code,
// direction) and the per-procedure logic described there. Procedure
// code numbering follows 3GPP TS 36.413 as surfaced by the S1AP
// decoder in the retrieval pack's monitoring repository
// (pkg/decoder/s1ap/s1ap.go's getS1APProcedureName table).
package s1ap

// ProcedureCode identifies an S1AP procedure (spec.md section 6).
type ProcedureCode int

const (
	ProcedureHandoverPreparation ProcedureCode = iota
	ProcedureHandoverResourceAllocation
	ProcedureHandoverNotification
	ProcedurePathSwitchRequest
	ProcedureHandoverCancel
	ProcedureERABSetup
	ProcedureERABModify
	ProcedureERABRelease
	ProcedureERABReleaseIndication
	ProcedureInitialContextSetup
	ProcedurePaging
	ProcedureDownlinkNASTransport
	ProcedureInitialUEMessage
	ProcedureUplinkNASTransport
	ProcedureReset
	ProcedureErrorIndication
	ProcedureNASNonDeliveryIndication
	ProcedureS1Setup
	ProcedureUEContextReleaseRequest
	_ // DownlinkS1cdma2000tunnelling -- unused by this core
	_ // UplinkS1cdma2000tunnelling -- unused by this core
	ProcedureUEContextModification
	ProcedureUECapabilityInfoIndication
	ProcedureUEContextRelease
	ProcedureENBStatusTransfer
)

func (p ProcedureCode) String() string {
	switch p {
	case ProcedureHandoverPreparation:
		return "HandoverPreparation"
	case ProcedureHandoverResourceAllocation:
		return "HandoverResourceAllocation"
	case ProcedureHandoverNotification:
		return "HandoverNotification"
	case ProcedurePathSwitchRequest:
		return "PathSwitchRequest"
	case ProcedureHandoverCancel:
		return "HandoverCancel"
	case ProcedureERABSetup:
		return "E-RABSetup"
	case ProcedureERABModify:
		return "E-RABModify"
	case ProcedureERABRelease:
		return "E-RABRelease"
	case ProcedureERABReleaseIndication:
		return "E-RABReleaseIndication"
	case ProcedureInitialContextSetup:
		return "InitialContextSetup"
	case ProcedurePaging:
		return "Paging"
	case ProcedureDownlinkNASTransport:
		return "DownlinkNASTransport"
	case ProcedureInitialUEMessage:
		return "InitialUEMessage"
	case ProcedureUplinkNASTransport:
		return "UplinkNASTransport"
	case ProcedureReset:
		return "Reset"
	case ProcedureErrorIndication:
		return "ErrorIndication"
	case ProcedureNASNonDeliveryIndication:
		return "NASNonDeliveryIndication"
	case ProcedureS1Setup:
		return "S1Setup"
	case ProcedureUEContextReleaseRequest:
		return "UEContextReleaseRequest"
	case ProcedureUEContextModification:
		return "UEContextModification"
	case ProcedureUECapabilityInfoIndication:
		return "UECapabilityInfoIndication"
	case ProcedureUEContextRelease:
		return "UEContextRelease"
	case ProcedureENBStatusTransfer:
		return "eNBStatusTransfer"
	default:
		return "Unknown"
	}
}
