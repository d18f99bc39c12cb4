package report

import (
	"time"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	errTypeLabel  = "error_type"
	endpointLabel = "endpoint"
)

var (
	resultSend = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sowilo_report_send",
		Help: "The number of smoke test results sent to the collector.",
	}, []string{
		endpointLabel,
	})

	resultSendError = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sowilo_report_send_errors",
		Help: "The errors that occured while sending smoke test results.",
	}, []string{
		endpointLabel,
		errTypeLabel,
	})

	resultSendLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name: "sowilo_report_send_latency",
		Help: "The time to send smoke test results to the collector.",
	}, []string{
		endpointLabel,
	})

	resultVerificationError = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sowilo_report_verification_errors",
		Help: "The number of invalid smoke test results.",
	}, []string{
		errTypeLabel,
	})
)

func instrumentSend(endpoint string, send func() error) error {
	start := time.Now()
	err := send()

	resultSendLatency.With(prometheus.Labels{
		endpointLabel: endpoint,
	}).Observe(time.Since(start).Seconds())

	if err != nil {
		resultSendError.With(prometheus.Labels{
			endpointLabel: endpoint,
			errTypeLabel:  errors.Type(err),
		}).Inc()
		return err
	}

	resultSend.With(prometheus.Labels{
		endpointLabel: endpoint,
	}).Inc()
	return nil
}

func instrumentVerificationError(err error) {
	resultVerificationError.With(prometheus.Labels{
		errTypeLabel: errors.Type(err),
	}).Inc()
}
