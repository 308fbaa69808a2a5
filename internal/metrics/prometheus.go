package metrics

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	AnswerDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "season_qa_answer_duration_seconds",
			Help:    "Answer latency in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 20},
		},
		[]string{"intent"},
	)

	AnswersTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "season_qa_answers_total",
			Help: "Answers served by intent and source",
		},
		[]string{"intent", "source"},
	)

	AnswerErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "season_qa_answer_errors_total",
			Help: "Requests that failed outward",
		},
		[]string{"kind"},
	)

	EnrichmentFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "season_qa_enrichment_fallbacks_total",
			Help: "Broad answers served deterministically, by reason",
		},
		[]string{"reason"},
	)

	StoreFetchFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "season_qa_store_fetch_failures_total",
			Help: "Failed reads against the season store",
		},
		[]string{"kind"},
	)

	LLMTokensUsed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "season_qa_llm_tokens_used",
			Help: "Total LLM tokens used",
		},
		[]string{"provider", "type"},
	)

	NotesStored = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "season_qa_notes_stored_total",
			Help: "Knowledge notes written",
		},
	)
)

func Init() {
	prometheus.MustRegister(AnswerDuration)
	prometheus.MustRegister(AnswersTotal)
	prometheus.MustRegister(AnswerErrors)
	prometheus.MustRegister(EnrichmentFailures)
	prometheus.MustRegister(StoreFetchFailures)
	prometheus.MustRegister(LLMTokensUsed)
	prometheus.MustRegister(NotesStored)
}

func MetricsHandler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}
