// Package metrics exposes netconf client activity as Prometheus metrics, collected through
// client trace hooks.
package metrics

import (
	"time"

	"github.com/damianoneill/ncclient/netconf/client"
	"github.com/damianoneill/ncclient/netconf/common"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/crypto/ssh"
)

// Collectors holds the metrics maintained by the hooks it delivers.
type Collectors struct {
	connects         *prometheus.CounterVec
	connectDuration  prometheus.Histogram
	sessionsActive   prometheus.Gauge
	stateTransitions *prometheus.CounterVec
	rpcs             *prometheus.CounterVec
	rpcDuration      prometheus.Histogram
	bytesRead        prometheus.Counter
	bytesWritten     prometheus.Counter
	errors           *prometheus.CounterVec
	unmatchedReplies prometheus.Counter
}

// New delivers a new set of collectors. They must be registered before use.
func New() *Collectors {
	return &Collectors{
		connects: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ncclient_connects_total",
				Help: "Number of transport connection attempts by result",
			},
			[]string{"result"},
		),
		connectDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "ncclient_connect_duration_seconds",
				Help:    "Time taken to establish the ssh transport",
				Buckets: prometheus.DefBuckets,
			},
		),
		sessionsActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "ncclient_sessions_established",
				Help: "Number of sessions currently established",
			},
		),
		stateTransitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ncclient_session_transitions_total",
				Help: "Number of session state transitions by target state",
			},
			[]string{"state"},
		),
		rpcs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ncclient_rpcs_total",
				Help: "Number of synchronous rpc executions by result",
			},
			[]string{"result"},
		),
		rpcDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "ncclient_rpc_duration_seconds",
				Help:    "Time taken to execute an rpc and receive its reply",
				Buckets: prometheus.DefBuckets,
			},
		),
		bytesRead: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "ncclient_transport_read_bytes_total",
				Help: "Bytes read from netconf transports",
			},
		),
		bytesWritten: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "ncclient_transport_written_bytes_total",
				Help: "Bytes written to netconf transports",
			},
		),
		errors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ncclient_errors_total",
				Help: "Number of errors reported by sessions, by context",
			},
			[]string{"context"},
		),
		unmatchedReplies: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "ncclient_unmatched_replies_total",
				Help: "Number of received messages that matched no pending request",
			},
		),
	}
}

// Register registers the collectors with r.
func (c *Collectors) Register(r prometheus.Registerer) error {
	for _, col := range []prometheus.Collector{
		c.connects, c.connectDuration, c.sessionsActive, c.stateTransitions, c.rpcs,
		c.rpcDuration, c.bytesRead, c.bytesWritten, c.errors, c.unmatchedReplies,
	} {
		if err := r.Register(col); err != nil {
			return err
		}
	}
	return nil
}

// Hooks delivers client trace hooks that maintain the collectors. They can be combined
// with logging hooks using Chain.
func (c *Collectors) Hooks() *client.ClientTrace {
	return &client.ClientTrace{
		ConnectDone: func(target string, err error, d time.Duration) {
			c.connects.WithLabelValues(result(err)).Inc()
			if err == nil {
				c.connectDuration.Observe(d.Seconds())
			}
		},
		StateChange: func(instance, target string, from, to client.State) {
			c.stateTransitions.WithLabelValues(to.String()).Inc()
			if to == client.Established {
				c.sessionsActive.Inc()
			} else if from == client.Established {
				c.sessionsActive.Dec()
			}
		},
		ReadDone: func(p []byte, n int, err error, d time.Duration) {
			c.bytesRead.Add(float64(n))
		},
		WriteDone: func(p []byte, n int, err error, d time.Duration) {
			c.bytesWritten.Add(float64(n))
		},
		Error: func(context, target string, err error) {
			c.errors.WithLabelValues(context).Inc()
		},
		UnmatchedReply: func(instance, target, messageID string) {
			c.unmatchedReplies.Inc()
		},
		ExecuteDone: func(req common.Request, async bool, res *common.RPCReply, err error, d time.Duration) {
			if async {
				return
			}
			c.rpcs.WithLabelValues(result(err)).Inc()
			c.rpcDuration.Observe(d.Seconds())
		},
	}
}

// Chain delivers hooks that invoke each hook of first, then the corresponding hook of second.
// Hooks left unset in either are skipped.
func Chain(first, second *client.ClientTrace) *client.ClientTrace {
	return &client.ClientTrace{
		ConnectStart: func(target string) {
			if first.ConnectStart != nil {
				first.ConnectStart(target)
			}
			if second.ConnectStart != nil {
				second.ConnectStart(target)
			}
		},
		ConnectDone: func(target string, err error, d time.Duration) {
			if first.ConnectDone != nil {
				first.ConnectDone(target, err, d)
			}
			if second.ConnectDone != nil {
				second.ConnectDone(target, err, d)
			}
		},
		DialStart: func(cfg *ssh.ClientConfig, target string) {
			if first.DialStart != nil {
				first.DialStart(cfg, target)
			}
			if second.DialStart != nil {
				second.DialStart(cfg, target)
			}
		},
		DialDone: func(cfg *ssh.ClientConfig, target string, err error, d time.Duration) {
			if first.DialDone != nil {
				first.DialDone(cfg, target, err, d)
			}
			if second.DialDone != nil {
				second.DialDone(cfg, target, err, d)
			}
		},
		HelloDone: func(msg *common.HelloMessage) {
			if first.HelloDone != nil {
				first.HelloDone(msg)
			}
			if second.HelloDone != nil {
				second.HelloDone(msg)
			}
		},
		StateChange: func(instance, target string, from, to client.State) {
			if first.StateChange != nil {
				first.StateChange(instance, target, from, to)
			}
			if second.StateChange != nil {
				second.StateChange(instance, target, from, to)
			}
		},
		ConnectionClosed: func(target string, err error) {
			if first.ConnectionClosed != nil {
				first.ConnectionClosed(target, err)
			}
			if second.ConnectionClosed != nil {
				second.ConnectionClosed(target, err)
			}
		},
		ReadStart: func(p []byte) {
			if first.ReadStart != nil {
				first.ReadStart(p)
			}
			if second.ReadStart != nil {
				second.ReadStart(p)
			}
		},
		ReadDone: func(p []byte, n int, err error, d time.Duration) {
			if first.ReadDone != nil {
				first.ReadDone(p, n, err, d)
			}
			if second.ReadDone != nil {
				second.ReadDone(p, n, err, d)
			}
		},
		WriteStart: func(p []byte) {
			if first.WriteStart != nil {
				first.WriteStart(p)
			}
			if second.WriteStart != nil {
				second.WriteStart(p)
			}
		},
		WriteDone: func(p []byte, n int, err error, d time.Duration) {
			if first.WriteDone != nil {
				first.WriteDone(p, n, err, d)
			}
			if second.WriteDone != nil {
				second.WriteDone(p, n, err, d)
			}
		},
		Error: func(context, target string, err error) {
			if first.Error != nil {
				first.Error(context, target, err)
			}
			if second.Error != nil {
				second.Error(context, target, err)
			}
		},
		UnmatchedReply: func(instance, target, messageID string) {
			if first.UnmatchedReply != nil {
				first.UnmatchedReply(instance, target, messageID)
			}
			if second.UnmatchedReply != nil {
				second.UnmatchedReply(instance, target, messageID)
			}
		},
		ExecuteStart: func(req common.Request, async bool) {
			if first.ExecuteStart != nil {
				first.ExecuteStart(req, async)
			}
			if second.ExecuteStart != nil {
				second.ExecuteStart(req, async)
			}
		},
		ExecuteDone: func(req common.Request, async bool, res *common.RPCReply, err error, d time.Duration) {
			if first.ExecuteDone != nil {
				first.ExecuteDone(req, async, res, err, d)
			}
			if second.ExecuteDone != nil {
				second.ExecuteDone(req, async, res, err, d)
			}
		},
	}
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
