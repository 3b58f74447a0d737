package metrics_test

import (
	"testing"
	"time"

	"github.com/ser-0xff/ioselect/metrics"
	"github.com/stretchr/testify/assert"
)

func TestMetrics(t *testing.T) {
	metrics.Add(metrics.Wait, 1)
	assert.Equal(t, uint64(1), metrics.Get(metrics.Wait))
	metrics.Add(metrics.Wait, 1)
	assert.Equal(t, uint64(2), metrics.Get(metrics.Wait))
	metrics.Add(metrics.Max+1, 1)
	metrics.Add(metrics.WaitNoWait, 8)
	metrics.Add(metrics.Events, 99)
	metrics.Add(metrics.Wakes, 191)
	metrics.Add(metrics.BufferGrowths, 3)
	metrics.Add(metrics.Registrations, 1191)
	metrics.Add(metrics.Deregistrations, 1190)
	assert.Equal(t, uint64(0), metrics.Get(metrics.Max+1))
	assert.Equal(t, uint64(0), metrics.Get(-1))

	all := metrics.GetAll()
	assert.Equal(t, uint64(2), all[metrics.Wait])
	assert.Equal(t, uint64(99), all[metrics.Events])

	metrics.ShowMetrics()
	metrics.ShowMetricsOfPeriod(time.Millisecond)
}
