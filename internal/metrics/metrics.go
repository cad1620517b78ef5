/*
 * MIT License
 *
 * Copyright (c) 2020 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

// Package metrics exposes the node's operational counters and gauges
// (membership size, outbound queue depth, heartbeats sent/received,
// files stored, repairs performed) on a Prometheus HTTP endpoint, per
// SPEC_FULL.md §2's metrics component.
package metrics

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics is the fixed set of collectors a ringnode process exports.
// Unlike the teacher's prometheus/metrics package — a generic
// name+type+label builder with no implementation source in the
// retrieval pack, only tests — this node has a small, closed set of
// series known at compile time, so they are declared directly as
// typed fields rather than built through a generic registration
// layer (see DESIGN.md for the full justification).
type Metrics struct {
	Registry *prometheus.Registry

	MembershipSize   prometheus.Gauge
	QueueDepth       prometheus.Gauge
	HeartbeatsSent   prometheus.Counter
	HeartbeatsRecv   prometheus.Counter
	FilesStored      prometheus.Gauge
	RepairsPerformed prometheus.Counter
}

// New builds a fresh registry and registers every collector.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		Registry: reg,
		MembershipSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "ringnode",
			Name:      "membership_size",
			Help:      "Number of members currently known to this node's ring.",
		}),
		QueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "ringnode",
			Name:      "outbound_queue_depth",
			Help:      "Number of dispatches currently buffered in the outbound queue.",
		}),
		HeartbeatsSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ringnode",
			Name:      "heartbeats_sent_total",
			Help:      "Total heartbeats sent to this node's successor(s).",
		}),
		HeartbeatsRecv: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ringnode",
			Name:      "heartbeats_received_total",
			Help:      "Total heartbeats received that passed the source check, including ones from non-predecessors that are discarded.",
		}),
		FilesStored: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "ringnode",
			Name:      "files_stored",
			Help:      "Number of distributed files this node currently stores locally.",
		}),
		RepairsPerformed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ringnode",
			Name:      "repairs_performed_total",
			Help:      "Total master-led repair passes completed after a peer failure.",
		}),
	}

	reg.MustRegister(
		m.MembershipSize,
		m.QueueDepth,
		m.HeartbeatsSent,
		m.HeartbeatsRecv,
		m.FilesStored,
		m.RepairsPerformed,
	)
	return m
}

// Server exposes Metrics on a /metrics endpoint, shut down gracefully
// on context cancellation — the same lifecycle shape as the node's
// other long-lived components (one goroutine, one context).
type Server struct {
	Addr    string
	Metrics *Metrics

	srv *http.Server
}

func (s *Server) Run(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(s.Metrics.Registry, promhttp.HandlerOpts{}))

	s.srv = &http.Server{Addr: s.Addr, Handler: mux}

	ln, err := net.Listen("tcp", s.Addr)
	if err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() { errCh <- s.srv.Serve(ln) }()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}
