// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// 選考サービス・支払いハンドラー・HTTP層から利用する。
type MetricsCollector interface {
	RecordTransition(from, to, outcome string)
	RecordPayment(outcome string)
	RecordAccountProvisioned()
	RecordSeatHolders(count int)
	RecordHTTPStatus(statusCode int)
	RecordWebhookLatency(duration time.Duration)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	transitions     *prometheus.CounterVec
	payments        *prometheus.CounterVec
	accountsCreated prometheus.Counter
	seatHolders     prometheus.Gauge
	httpStatus      *prometheus.CounterVec
	webhookLatency  prometheus.Histogram
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "admissions_transition_total",
			Help: "ステータス遷移要求の結果別の合計数",
		}, []string{"from", "to", "outcome"}),
		payments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "admissions_payment_events_total",
			Help: "支払い確定イベントの処理結果別の合計数",
		}, []string{"outcome"}),
		accountsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "admissions_accounts_provisioned_total",
			Help: "支払い確定により作成されたアカウントの合計数",
		}),
		seatHolders: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "admissions_seat_holders",
			Help: "直近に観測したコホートの座席保有者数",
		}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "admissions_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		webhookLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "admissions_webhook_latency_seconds",
			Help:    "支払いWebhook処理のレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
	}

	reg.MustRegister(
		c.transitions,
		c.payments,
		c.accountsCreated,
		c.seatHolders,
		c.httpStatus,
		c.webhookLatency,
	)

	return c
}

// RecordTransition はステータス遷移要求の結果を記録する。
func (c *Collector) RecordTransition(from, to, outcome string) {
	c.transitions.WithLabelValues(from, to, outcome).Inc()
}

// RecordPayment は支払い確定イベントの処理結果を記録する。
func (c *Collector) RecordPayment(outcome string) {
	c.payments.WithLabelValues(outcome).Inc()
}

// RecordAccountProvisioned はアカウント作成を記録する。
func (c *Collector) RecordAccountProvisioned() {
	c.accountsCreated.Inc()
}

// RecordSeatHolders は座席保有者数を記録する。
func (c *Collector) RecordSeatHolders(count int) {
	c.seatHolders.Set(float64(count))
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordWebhookLatency はWebhook処理のレイテンシを記録する。
func (c *Collector) RecordWebhookLatency(duration time.Duration) {
	c.webhookLatency.Observe(duration.Seconds())
}

// Nop は何も記録しないMetricsCollector。テストやメトリクス無効時に使う。
type Nop struct{}

func (Nop) RecordTransition(from, to, outcome string)   {}
func (Nop) RecordPayment(outcome string)                {}
func (Nop) RecordAccountProvisioned()                   {}
func (Nop) RecordSeatHolders(count int)                 {}
func (Nop) RecordHTTPStatus(statusCode int)             {}
func (Nop) RecordWebhookLatency(duration time.Duration) {}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// SetupMetricsRoute は/metricsエンドポイントを提供するHTTPハンドラーを返す。
// Prometheusスクレイプに対応する。
func SetupMetricsRoute(gatherer prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler(gatherer))
	return mux
}

var (
	_ MetricsCollector = (*Collector)(nil)
	_ MetricsCollector = Nop{}
)
