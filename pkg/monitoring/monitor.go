package monitoring

import (
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: []float64{0.1, 0.5, 1, 2, 5},
		},
		[]string{"method", "endpoint"},
	)

	// AnswerChecks 按题型和结果统计判题次数
	AnswerChecks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lesson_gate_answer_checks_total",
			Help: "Answers checked, by exercise kind and result",
		},
		[]string{"kind", "result"},
	)

	// ShuffleFallbacks 选择题未带打乱标签、退回存储标签判题的次数
	ShuffleFallbacks = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "lesson_gate_shuffle_fallbacks_total",
			Help: "Multiple choice answers checked against the stored label",
		},
	)

	// LessonAttempts outcome: passed / failed / locked
	LessonAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lesson_gate_lesson_attempts_total",
			Help: "Lesson completion attempts by outcome",
		},
		[]string{"outcome"},
	)

	LessonGrades = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "lesson_gate_lesson_grade",
			Help:    "Distribution of submitted lesson grades",
			Buckets: prometheus.LinearBuckets(0, 1, 11),
		},
	)
)

var registerOnce sync.Once

func Init() {
	registerOnce.Do(func() {
		prometheus.MustRegister(RequestCounter)
		prometheus.MustRegister(RequestDuration)
		prometheus.MustRegister(AnswerChecks)
		prometheus.MustRegister(ShuffleFallbacks)
		prometheus.MustRegister(LessonAttempts)
		prometheus.MustRegister(LessonGrades)
	})
}

func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		duration := time.Since(start).Seconds()
		status := c.Writer.Status()

		RequestCounter.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			strconv.Itoa(status),
		).Inc()

		RequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
		).Observe(duration)
	}
}

func PrometheusHandler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
