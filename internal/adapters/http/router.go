package httpadapter

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/time/rate"

	"github.com/tshaffer/memorappy/internal/core/domain"
	"github.com/tshaffer/memorappy/internal/core/ports"
	"github.com/tshaffer/memorappy/internal/observability/metrics"
)

const defaultMaxBodyBytes = 1 << 20

type RouterOptions struct {
	Service        string
	RateLimitRPS   float64
	RateLimitBurst int
	MaxBodyBytes   int64
	Metrics        *metrics.HTTPServerMetrics
	Logger         *slog.Logger
}

type Router struct {
	opts    RouterOptions
	query   ports.QueryResolver
	submit  ports.ReviewSubmitter
	reviews ports.ReviewReader
	logger  *slog.Logger
	limiter *rate.Limiter
}

func NewRouter(
	opts RouterOptions,
	query ports.QueryResolver,
	submit ports.ReviewSubmitter,
	reviews ports.ReviewReader,
) *Router {
	if opts.Service == "" {
		opts.Service = "memorappy-api"
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = defaultMaxBodyBytes
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var limiter *rate.Limiter
	if opts.RateLimitRPS > 0 {
		burst := opts.RateLimitBurst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(opts.RateLimitRPS), burst)
	}

	return &Router{
		opts:    opts,
		query:   query,
		submit:  submit,
		reviews: reviews,
		logger:  logger,
		limiter: limiter,
	}
}

func (rt *Router) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(accessLogMiddleware(rt.logger))
	r.Use(middleware.Recoverer)
	if rt.opts.Metrics != nil {
		m := rt.opts.Metrics
		service := rt.opts.Service
		r.Use(func(next http.Handler) http.Handler { return m.Middleware(service, next) })
	}
	r.Use(rateLimitMiddleware(rt.limiter, rt.recordLimited))
	if contract, err := loadContract(); err != nil {
		rt.logger.Error("openapi_contract_unavailable", "error", err)
	} else {
		r.Use(contractValidationMiddleware(contract, rt.opts.MaxBodyBytes))
	}

	r.Get("/healthz", rt.healthz)
	r.Get("/openapi.yaml", serveContract)
	if rt.opts.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", rt.opts.Metrics.Handler())
	}

	r.Post("/v1/reviews/query", rt.queryReviews)
	r.Post("/v1/reviews", rt.submitReview)
	r.Get("/v1/reviews/{id}", rt.getReview)

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		writeError(w, req, http.StatusNotFound, "not_found", "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		writeError(w, req, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
	})
	return r
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type queryRequest struct {
	Query string `json:"query"`
}

func (rt *Router) queryReviews(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if !rt.decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeError(w, r, http.StatusBadRequest, "invalid_input", "query is required")
		return
	}

	result, err := rt.query.ResolveQuery(r.Context(), req.Query)
	if err != nil {
		rt.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (rt *Router) submitReview(w http.ResponseWriter, r *http.Request) {
	var draft domain.ReviewDraft
	if !rt.decode(w, r, &draft) {
		return
	}

	review, err := rt.submit.Submit(r.Context(), draft)
	if err != nil {
		rt.writeDomainError(w, r, err)
		return
	}
	w.Header().Set("Location", "/v1/reviews/"+review.ID)
	writeJSON(w, http.StatusCreated, review)
}

func (rt *Router) getReview(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if id == "" {
		writeError(w, r, http.StatusBadRequest, "invalid_input", "review id is required")
		return
	}

	review, err := rt.reviews.GetReviewByID(r.Context(), id)
	if err != nil {
		rt.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, review)
}

func (rt *Router) decode(w http.ResponseWriter, r *http.Request, out any) bool {
	body := http.MaxBytesReader(w, r.Body, rt.opts.MaxBodyBytes)
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			writeError(w, r, http.StatusRequestEntityTooLarge, "body_too_large", "request body too large")
		case errors.Is(err, io.EOF):
			writeError(w, r, http.StatusBadRequest, "invalid_input", "request body is required")
		default:
			writeError(w, r, http.StatusBadRequest, "invalid_input", "invalid json: "+err.Error())
		}
		return false
	}
	return true
}

func (rt *Router) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	status := mapErrorToHTTPStatus(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		rt.logger.Error("http_unhandled_error", "request_id", requestIDFromContext(r.Context()), "error", err)
		message = "internal error"
	}
	writeError(w, r, status, errorCode(err), message)
}

func (rt *Router) recordLimited(r *http.Request) {
	if rt.opts.Metrics != nil {
		rt.opts.Metrics.RecordRateLimited(rt.opts.Service, r.URL.Path)
	}
}

type errorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code"`
	RequestID string `json:"request_id,omitempty"`
}

func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	writeJSON(w, status, errorResponse{
		Error:     message,
		Code:      code,
		RequestID: requestIDFromContext(r.Context()),
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
