package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Collectors 记录任务运行指标，实现 task.Observer。
type Collectors struct {
	TaskRuns              *prometheus.CounterVec
	TaskDuration          *prometheus.HistogramVec
	TasksInFlight         prometheus.Gauge
	CollectionAssignments *prometheus.CounterVec
	WorkdirsRemoved       prometheus.Counter
}

// NewCollectors 创建并注册指标。
func NewCollectors(reg prometheus.Registerer) *Collectors {
	c := &Collectors{
		TaskRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stactask_task_runs_total",
			Help: "任务运行次数",
		}, []string{"task", "status"}),
		TaskDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "stactask_task_duration_seconds",
			Help:    "单次任务耗时",
			Buckets: prometheus.DefBuckets,
		}, []string{"task"}),
		TasksInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "stactask_tasks_in_flight",
			Help: "正在运行的任务数",
		}),
		CollectionAssignments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stactask_collection_assignments_total",
			Help: "按集合统计的输出 Item 数，未分配的记为 none",
		}, []string{"task", "collection"}),
		WorkdirsRemoved: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "stactask_workdirs_removed_total",
			Help: "清理任务删除的工作目录数",
		}),
	}
	if reg != nil {
		reg.MustRegister(c.TaskRuns, c.TaskDuration, c.TasksInFlight, c.CollectionAssignments, c.WorkdirsRemoved)
	}
	return c
}

func (c *Collectors) TaskStarted(string) {
	c.TasksInFlight.Inc()
}

func (c *Collectors) TaskFinished(task string, elapsed time.Duration, err error) {
	c.TasksInFlight.Dec()
	status := "success"
	if err != nil {
		status = "error"
	}
	c.TaskRuns.WithLabelValues(task, status).Inc()
	c.TaskDuration.WithLabelValues(task).Observe(elapsed.Seconds())
}

func (c *Collectors) CollectionAssigned(task, collection string) {
	if collection == "" {
		collection = "none"
	}
	c.CollectionAssignments.WithLabelValues(task, collection).Inc()
}

// WorkdirRemoved 实现 job.JanitorObserver。
func (c *Collectors) WorkdirRemoved() {
	c.WorkdirsRemoved.Inc()
}
