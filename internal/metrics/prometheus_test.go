package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollectors(reg)

	c.TaskStarted("annotate")
	c.CollectionAssigned("annotate", "landsat")
	c.CollectionAssigned("annotate", "")
	c.TaskFinished("annotate", time.Second, nil)
	c.TaskStarted("annotate")
	c.TaskFinished("annotate", time.Second, errors.New("boom"))
	c.WorkdirRemoved()

	assert.Equal(t, float64(1), testutil.ToFloat64(c.TaskRuns.WithLabelValues("annotate", "success")))
	assert.Equal(t, float64(1), testutil.ToFloat64(c.TaskRuns.WithLabelValues("annotate", "error")))
	assert.Equal(t, float64(0), testutil.ToFloat64(c.TasksInFlight))
	assert.Equal(t, float64(1), testutil.ToFloat64(c.CollectionAssignments.WithLabelValues("annotate", "none")))
	assert.Equal(t, float64(1), testutil.ToFloat64(c.WorkdirsRemoved))
	assert.Equal(t, 1, testutil.CollectAndCount(c.TaskDuration))
}
