package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordTable(t *testing.T) {
	before := testutil.ToFloat64(rowsSyncedTotal.WithLabelValues("dim_film", "insert"))

	RecordTable("dim_film", 3, 1, 2)

	assert.Equal(t, before+3, testutil.ToFloat64(rowsSyncedTotal.WithLabelValues("dim_film", "insert")))
	assert.GreaterOrEqual(t, testutil.ToFloat64(rowsDroppedTotal.WithLabelValues("dim_film")), 2.0)
}

func TestRecordWatermark(t *testing.T) {
	ts := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	RecordWatermark("actor", ts)
	assert.Equal(t, float64(ts.Unix()), testutil.ToFloat64(watermarkGauge.WithLabelValues("actor")))
}

func TestRecordValidation(t *testing.T) {
	before := testutil.ToFloat64(validationRunsTotal)
	RecordValidation([]string{"payment_count"})
	assert.Equal(t, before+1, testutil.ToFloat64(validationRunsTotal))
	assert.GreaterOrEqual(t, testutil.ToFloat64(validationMismatchesTotal.WithLabelValues("payment_count")), 1.0)
}
