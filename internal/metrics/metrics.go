// Package metrics registers the server's Prometheus collectors. Everything is
// registered with promauto on the default registry and served by the HTTP API
// under /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ConnectionsTotal counts every accepted TCP connection.
	ConnectionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "confab_connections_total",
		Help: "Accepted TCP connections since start.",
	})

	// ActiveConnections tracks connections currently being served.
	ActiveConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "confab_active_connections",
		Help: "Connections currently open.",
	})

	// ChannelLinesTotal counts lines appended to channel buffers.
	ChannelLinesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "confab_channel_lines_total",
		Help: "Lines appended to channel buffers.",
	})

	// BroadcastDeliveriesTotal counts per-recipient channel deliveries.
	BroadcastDeliveriesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "confab_broadcast_deliveries_total",
		Help: "Channel line deliveries to individual recipients.",
	})

	// WhispersTotal counts direct whispers delivered on a channel.
	WhispersTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "confab_whispers_total",
		Help: "Whispers delivered directly to a channel member.",
	})

	// InboxDeliveriesTotal counts messages stored in account inboxes.
	InboxDeliveriesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "confab_inbox_deliveries_total",
		Help: "Messages delivered to offline account inboxes.",
	})
)
