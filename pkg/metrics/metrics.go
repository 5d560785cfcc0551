package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	// Mutations 写操作计数，result ∈ success | <error kind>
	Mutations = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "tracker_mutations_total", Help: "Total mutation gateway calls by operation and result"},
		[]string{"operation", "result"},
	)
	// RealtimeEvents 已应用的实时变更事件
	RealtimeEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "tracker_realtime_events_total", Help: "Total realtime change events applied to the cache"},
		[]string{"table", "type"},
	)
	// BulkLoadFailures 批量加载中失败的集合读取
	BulkLoadFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "tracker_bulk_load_failures_total", Help: "Total failed collection reads during bulk load"},
		[]string{"collection"},
	)
)

// Register 注册到默认 Registry，仅在进程启动时调用一次
func Register() {
	prometheus.MustRegister(Mutations, RealtimeEvents, BulkLoadFailures)
}
