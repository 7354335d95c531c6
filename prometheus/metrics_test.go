package prometheus

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestTrackStoreOperationObserves(t *testing.T) {
	before := testutil.CollectAndCount(StoreOperationDuration)

	TrackStoreOperation("find")(time.Now())

	assert.Equal(t, before+1, testutil.CollectAndCount(StoreOperationDuration))
}

func TestRecordError(t *testing.T) {
	before := testutil.ToFloat64(ErrorCounter.WithLabelValues("validation"))

	RecordError("validation")

	assert.Equal(t, before+1, testutil.ToFloat64(ErrorCounter.WithLabelValues("validation")))
}

func TestRecordUserOperation(t *testing.T) {
	before := testutil.ToFloat64(UserOperationCounter.WithLabelValues("create"))

	RecordUserOperation("create")

	assert.Equal(t, before+1, testutil.ToFloat64(UserOperationCounter.WithLabelValues("create")))
}
