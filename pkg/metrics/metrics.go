// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	ResultOK      = "ok"
	ResultPending = "pending"
	ResultError   = "error"
)

var (
	AssetsOnboarded = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "assetd",
		Name:      "assets_onboarded_total",
		Help:      "Assets onboarded, by result (ok, pending locator, error).",
	}, []string{"result"})

	LocatorsAttached = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "assetd",
		Name:      "locators_attached_total",
		Help:      "Code image locators attached, by trigger.",
	}, []string{"trigger"})

	ManualPreviews = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "assetd",
		Name:      "manual_previews_total",
		Help:      "Manual previews served, by reference kind and result.",
	}, []string{"kind", "result"})

	ArtifactBytes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "assetd",
		Name:      "artifact_stored_bytes_total",
		Help:      "Bytes written to the artifact store, by backend.",
	}, []string{"backend"})

	ToolCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "assetd",
		Name:      "tool_calls_total",
		Help:      "Agent tool invocations, by tool and result.",
	}, []string{"tool", "result"})
)

// Result maps an error onto the result label.
func Result(err error) string {
	if err != nil {
		return ResultError
	}
	return ResultOK
}
