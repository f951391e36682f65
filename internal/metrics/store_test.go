package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestRegisterStoreIsIdempotent(t *testing.T) {
	reg := prometheus.NewRegistry()
	require.NoError(t, RegisterStore(reg))
	require.NoError(t, RegisterStore(reg))
}

func TestObserveOpCountsFailures(t *testing.T) {
	beforeUnique := testutil.ToFloat64(StoreUniqueViolations.WithLabelValues("metrics_test"))
	beforeConflict := testutil.ToFloat64(StoreWriteFailures.WithLabelValues("metrics_test"))

	ObserveOp("metrics_test", ResultUnique, time.Now())
	ObserveOp("metrics_test", ResultConflict, time.Now())
	ObserveOp("metrics_test", ResultOK, time.Now())

	require.Equal(t, beforeUnique+1, testutil.ToFloat64(StoreUniqueViolations.WithLabelValues("metrics_test")))
	require.Equal(t, beforeConflict+1, testutil.ToFloat64(StoreWriteFailures.WithLabelValues("metrics_test")))
}
