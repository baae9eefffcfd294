package observability

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestNewMetricsWithRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetricsWithRegistry(reg, "test")

	m.TransactionsProcessed.WithLabelValues("ok").Inc()
	m.TransactionsProcessed.WithLabelValues("ok").Inc()
	m.TransactionsProcessed.WithLabelValues("error").Inc()
	m.CurrentSlot.Set(12)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.TransactionsProcessed.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.TransactionsProcessed.WithLabelValues("error")))
	assert.Equal(t, 12.0, testutil.ToFloat64(m.CurrentSlot))

	n, err := testutil.GatherAndCount(reg, "test_ledger_transactions_processed_total")
	assert.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestRecordHelpers(t *testing.T) {
	before := testutil.ToFloat64(DefaultMetrics.RPCRequests.WithLabelValues("getSlot", "error"))
	RecordRPCCall("getSlot", 0.01, errors.New("boom"))
	assert.Equal(t, before+1, testutil.ToFloat64(DefaultMetrics.RPCRequests.WithLabelValues("getSlot", "error")))

	beforeIx := testutil.ToFloat64(DefaultMetrics.InstructionsProcessed.WithLabelValues("mint_token", "ok"))
	RecordInstruction("mint_token", true)
	assert.Equal(t, beforeIx+1, testutil.ToFloat64(DefaultMetrics.InstructionsProcessed.WithLabelValues("mint_token", "ok")))

	UpdateSlot(77)
	assert.Equal(t, 77.0, testutil.ToFloat64(DefaultMetrics.CurrentSlot))
}
