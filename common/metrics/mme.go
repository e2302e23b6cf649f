package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MME S1AP/ESM core metrics.
var (
	ConnectedENBs = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "mme_connected_enbs",
			Help: "Number of eNodeB associations currently in READY state",
		},
	)

	ActiveUEReferences = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "mme_active_ue_references",
			Help: "Number of UE S1AP references currently tracked",
		},
	)

	S1APProcedures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mme_s1ap_procedures_total",
			Help: "Total number of S1AP procedures processed, by procedure and outcome",
		},
		[]string{"procedure", "outcome"},
	)

	ReleaseTimerExpirations = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mme_release_timer_expirations_total",
			Help: "Total number of UE-context release timer expirations without a peer ReleaseComplete",
		},
	)

	HandoverCompletionTimerExpirations = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mme_handover_completion_timer_expirations_total",
			Help: "Total number of handover-completion timer expirations",
		},
	)

	ESMDeactivationRetransmissions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mme_esm_deactivation_retransmissions_total",
			Help: "Total number of DEACTIVATE-EPS-BEARER-CONTEXT-REQUEST retransmissions",
		},
	)

	ESMDeactivationsExhausted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mme_esm_deactivations_exhausted_total",
			Help: "Total number of ESM deactivation procedures that reached the retransmission bound",
		},
	)
)

// RecordS1APProcedure records one processed S1AP procedure.
func RecordS1APProcedure(procedure, outcome string) {
	S1APProcedures.WithLabelValues(procedure, outcome).Inc()
}

// SetConnectedENBs sets the gauge of READY eNodeB associations.
func SetConnectedENBs(count int) {
	ConnectedENBs.Set(float64(count))
}

// SetActiveUEReferences sets the gauge of tracked UE references.
func SetActiveUEReferences(count int) {
	ActiveUEReferences.Set(float64(count))
}
