// Package metrics collects and exposes Prometheus metrics for the relay.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Collector struct {
	messagesSent     prometheus.Counter
	sendsRejected    *prometheus.CounterVec
	acksDelivered    prometheus.Counter
	acksRead         prometheus.Counter
	fanoutFailures   prometheus.Counter
	liveDestinations prometheus.Gauge
}

func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		messagesSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "messenger_messages_sent_total",
			Help: "Messages persisted with status SENT.",
		}),
		sendsRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "messenger_sends_rejected_total",
			Help: "Send operations rejected before persistence, by reason.",
		}, []string{"reason"}),
		acksDelivered: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "messenger_acks_delivered_total",
			Help: "Delivered acknowledgments that advanced a message.",
		}),
		acksRead: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "messenger_acks_read_total",
			Help: "Read acknowledgments that advanced a message.",
		}),
		fanoutFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "messenger_fanout_failures_total",
			Help: "Pushes to a live destination that failed.",
		}),
		liveDestinations: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "messenger_live_destinations",
			Help: "Currently registered websocket destinations.",
		}),
	}

	reg.MustRegister(
		c.messagesSent,
		c.sendsRejected,
		c.acksDelivered,
		c.acksRead,
		c.fanoutFailures,
		c.liveDestinations,
	)
	return c
}

func (c *Collector) RecordMessageSent() { c.messagesSent.Inc() }

func (c *Collector) RecordSendRejected(reason string) { c.sendsRejected.WithLabelValues(reason).Inc() }

func (c *Collector) RecordAckDelivered() { c.acksDelivered.Inc() }

func (c *Collector) RecordAckRead() { c.acksRead.Inc() }

func (c *Collector) RecordFanoutFailure() { c.fanoutFailures.Inc() }

func (c *Collector) DestinationOpened() { c.liveDestinations.Inc() }

func (c *Collector) DestinationClosed() { c.liveDestinations.Dec() }

// Handler returns the /metrics scrape handler.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
