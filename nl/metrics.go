//go:build linux

package nl

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricsOnce sync.Once
	metrics     *transportMetrics
)

// transportMetrics counts what the session layer otherwise hides. The
// discarded-bytes counter is the only upstream signal for the lossy
// malformed-frame recovery path.
type transportMetrics struct {
	requestsTotal       prometheus.Counter
	framesTotal         prometheus.Counter
	staleFramesTotal    prometheus.Counter
	discardedBytesTotal prometheus.Counter
}

func getMetrics() *transportMetrics {
	metricsOnce.Do(func() {
		metrics = &transportMetrics{
			requestsTotal: promauto.NewCounter(prometheus.CounterOpts{
				Name: "netlink_ng_requests_total",
				Help: "Requests sent to the kernel.",
			}),
			framesTotal: promauto.NewCounter(prometheus.CounterOpts{
				Name: "netlink_ng_frames_total",
				Help: "Reply frames processed, including stale duplicates.",
			}),
			staleFramesTotal: promauto.NewCounter(prometheus.CounterOpts{
				Name: "netlink_ng_stale_frames_total",
				Help: "Reply frames discarded for carrying an old sequence number.",
			}),
			discardedBytesTotal: promauto.NewCounter(prometheus.CounterOpts{
				Name: "netlink_ng_discarded_bytes_total",
				Help: "Receive buffer bytes dropped because a frame header could not be parsed.",
			}),
		}
	})
	return metrics
}
