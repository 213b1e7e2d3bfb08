package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserveCheckout(t *testing.T) {
	before := testutil.ToFloat64(checkoutsTotal.WithLabelValues("pix", ResultOK))
	ObserveCheckout("pix", ResultOK)
	assert.Equal(t, before+1, testutil.ToFloat64(checkoutsTotal.WithLabelValues("pix", ResultOK)))
}

func TestObserveRepairLabels(t *testing.T) {
	okBefore := testutil.ToFloat64(statusRepairsTotal.WithLabelValues(ResultOK))
	failedBefore := testutil.ToFloat64(statusRepairsTotal.WithLabelValues(ResultFailed))

	ObserveRepair(true)
	ObserveRepair(false)
	ObserveRepair(false)

	assert.Equal(t, okBefore+1, testutil.ToFloat64(statusRepairsTotal.WithLabelValues(ResultOK)))
	assert.Equal(t, failedBefore+2, testutil.ToFloat64(statusRepairsTotal.WithLabelValues(ResultFailed)))
}
