// Package metrics holds the prometheus collectors of the token refresh and streaming machinery.
// A nil *Collectors is valid and records nothing.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace string = "consult"

const (
	OutcomeSuccess   string = "success"
	OutcomeFailure   string = "failure"
	OutcomeTimeout   string = "timeout"
	OutcomeCancelled string = "cancelled"
)

type Collectors struct {
	refreshes  *prometheus.CounterVec
	replays    *prometheus.CounterVec
	terminated prometheus.Counter
	streams    *prometheus.CounterVec
	chunks     prometheus.Counter
}

// RefreshFinished counts one refresh token exchange
func (c *Collectors) RefreshFinished(outcome string) {
	if c == nil {
		return
	}
	c.refreshes.WithLabelValues(outcome).Inc()
}

// RequestReplayed counts a request that was re-issued after a 401, stale is true when
// the replay used a token another caller had already refreshed
func (c *Collectors) RequestReplayed(stale bool) {
	if c == nil {
		return
	}
	reason := "refreshed"
	if stale {
		reason = "stale"
	}
	c.replays.WithLabelValues(reason).Inc()
}

func (c *Collectors) SessionTerminated() {
	if c == nil {
		return
	}
	c.terminated.Inc()
}

func (c *Collectors) StreamFinished(outcome string) {
	if c == nil {
		return
	}
	c.streams.WithLabelValues(outcome).Inc()
}

func (c *Collectors) ChunkReceived() {
	if c == nil {
		return
	}
	c.chunks.Inc()
}

// NewCollectors creates the collectors and registers them with the registerer
func NewCollectors(reg prometheus.Registerer) (*Collectors, error) {
	c := &Collectors{
		refreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "token_refreshes_total",
			Help:      "Number of refresh token exchanges by outcome.",
		}, []string{"outcome"}),
		replays: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "request_replays_total",
			Help:      "Number of requests re-issued after an unauthorized response.",
		}, []string{"reason"}),
		terminated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_terminated_total",
			Help:      "Number of sessions ended because the credentials could not be renewed.",
		}),
		streams: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "consult_streams_total",
			Help:      "Number of streamed consultations by outcome.",
		}, []string{"outcome"}),
		chunks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "consult_stream_chunks_total",
			Help:      "Number of content chunks received from streamed consultations.",
		}),
	}
	for _, collector := range []prometheus.Collector{c.refreshes, c.replays, c.terminated, c.streams, c.chunks} {
		err := reg.Register(collector)
		if err != nil {
			return nil, err
		}
	}
	return c, nil
}
