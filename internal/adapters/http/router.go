package httpadapter

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/halden-labs/answercore/internal/core/domain"
	"github.com/halden-labs/answercore/internal/core/ports"
	"github.com/halden-labs/answercore/internal/observability/metrics"
)

type Router struct {
	search  ports.SearchService
	answer  ports.AnswerService
	options Options
}

type Options struct {
	Metrics *metrics.TenantMetrics

	RateLimitRPS   float64
	RateLimitBurst int
	MaxInflight    int
	InflightWait   time.Duration
}

func NewRouter(search ports.SearchService, answer ports.AnswerService, options Options) *Router {
	if options.InflightWait <= 0 {
		options.InflightWait = 100 * time.Millisecond
	}
	return &Router{
		search:  search,
		answer:  answer,
		options: options,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.HandleFunc("/v1/search", rt.handleSearch)
	mux.HandleFunc("/v1/answer", rt.handleAnswer)
	if rt.options.Metrics != nil {
		mux.Handle("/metrics", rt.options.Metrics.Handler())
	}

	var handler http.Handler = mux
	handler = backpressureMiddleware(handler, rt.options.MaxInflight, rt.options.InflightWait)
	handler = rateLimitMiddleware(handler, rt.options.RateLimitRPS, rt.options.RateLimitBurst)
	if rt.options.Metrics != nil {
		handler = rt.options.Metrics.Middleware(handler)
	}
	handler = accessLogMiddleware(handler)
	handler = requestIDMiddleware(handler)
	return handler
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) handleSearch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	query, err := parseQuery(r)
	if err != nil {
		writeError(w, err)
		return
	}

	result, err := rt.search.Search(r.Context(), query)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (rt *Router) handleAnswer(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	query, err := parseQuery(r)
	if err != nil {
		writeError(w, err)
		return
	}

	answer, err := rt.answer.Answer(r.Context(), query)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, answer)
}

func parseQuery(r *http.Request) (domain.Query, error) {
	query := domain.Query{
		Tenant: strings.TrimSpace(r.Header.Get(tenantHeader)),
		Text:   r.URL.Query().Get("q"),
		Mode:   domain.Mode(r.URL.Query().Get("mode")),
	}

	if raw := r.URL.Query().Get("k"); raw != "" {
		k, err := strconv.Atoi(raw)
		if err != nil {
			return domain.Query{}, fmt.Errorf("%w: k must be an integer", domain.ErrInvalidInput)
		}
		query.K = k
	}

	if raw := r.URL.Query().Get("rerank"); raw != "" {
		rerank, err := strconv.ParseBool(raw)
		if err != nil {
			return domain.Query{}, fmt.Errorf("%w: rerank must be a boolean", domain.ErrInvalidInput)
		}
		query.Rerank = rerank
	}

	if raw := r.URL.Query().Get("rerank_topk"); raw != "" {
		topK, err := strconv.Atoi(raw)
		if err != nil {
			return domain.Query{}, fmt.Errorf("%w: rerank_topk must be an integer", domain.ErrInvalidInput)
		}
		query.RerankTopK = topK
	}

	return query, nil
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
