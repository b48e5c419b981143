package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordConfirmation(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.RecordConfirmation("algorand", "confirmed", 2)
	m.RecordConfirmation("algorand", "confirmed", 0)
	m.RecordConfirmation("algorand", "timeout", 5)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.confirmationsTotal.WithLabelValues("algorand", "confirmed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.confirmationsTotal.WithLabelValues("algorand", "timeout")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.confirmationsTotal.WithLabelValues("solana", "confirmed")))
}

func TestRecordRPCCall(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.RecordRPCCall("Status", "success", "algorand", 0.1)
	m.RecordRPCCall("Status", "error", "algorand", 0.3)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.ledgerRPCCallsTotal.WithLabelValues("Status", "success", "algorand")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ledgerRPCCallsTotal.WithLabelValues("Status", "error", "algorand")))
}

func TestRecordCustodyCall(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.RecordCustodyCall("GetUser", nil, 0.2)
	m.RecordCustodyCall("Sign", errors.New("401"), 0.2)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.custodyCallsTotal.WithLabelValues("GetUser", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.custodyCallsTotal.WithLabelValues("Sign", "error")))
}

func TestRecordNATSPublish(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.RecordNATSPublish("confirmations.algorand.TX1", "success", 0.002)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.natsMessagesPublished.WithLabelValues("confirmations.algorand.TX1", "success")))
}

func TestTimer(t *testing.T) {
	var recorded float64
	stop := Timer(time.Now().Add(-time.Second), func(d float64) { recorded = d })
	stop()
	assert.GreaterOrEqual(t, recorded, 1.0)
}

func TestNewMetrics_SeparateRegistries(t *testing.T) {
	// registering twice on distinct registries must not panic
	assert.NotPanics(t, func() {
		NewMetrics(prometheus.NewRegistry())
		NewMetrics(prometheus.NewRegistry())
	})
}
