// Package metrics exposes Prometheus counters for the session bridge.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "storefront"

// Bridge counts federated login outcomes. It implements session.Recorder.
type Bridge struct {
	LoginsTotal         *prometheus.CounterVec
	FallbackLoginsTotal prometheus.Counter
	SessionsLostTotal   prometheus.Counter
}

// NewBridge creates the bridge counters and registers them on reg when it is
// not nil.
func NewBridge(reg prometheus.Registerer) (*Bridge, error) {
	m := &Bridge{
		LoginsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "bridge",
			Name:      "logins_total",
			Help:      "Federated login attempts by outcome.",
		}, []string{"outcome"}),
		FallbackLoginsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "bridge",
			Name:      "fallback_logins_total",
			Help:      "Registrations answered with a fallback login.",
		}),
		SessionsLostTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "bridge",
			Name:      "provider_sessions_lost_total",
			Help:      "Provider sessions that ended without a local logout.",
		}),
	}

	if reg != nil {
		for _, c := range []prometheus.Collector{m.LoginsTotal, m.FallbackLoginsTotal, m.SessionsLostTotal} {
			if err := reg.Register(c); err != nil {
				return nil, err
			}
		}
	}
	return m, nil
}

func (m *Bridge) LoginFinished(outcome string) { m.LoginsTotal.WithLabelValues(outcome).Inc() }

func (m *Bridge) FallbackLogin() { m.FallbackLoginsTotal.Inc() }

func (m *Bridge) SessionLost() { m.SessionsLostTotal.Inc() }
