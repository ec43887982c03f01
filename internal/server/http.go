package server

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/pankaj-dahiya-devops/aws-mcp/internal/models"
)

// maxBodyBytes caps the size of a request envelope.
const maxBodyBytes = 1 << 20

type requestLogger struct {
	logrus.FieldLogger
}

func (l *requestLogger) Print(v ...interface{}) {
	l.FieldLogger.Info(v...)
}

// NewRouter returns the HTTP surface: POST / accepts a request envelope and
// GET /metrics serves Prometheus metrics.
func NewRouter(srv *Server, logger logrus.FieldLogger) chi.Router {
	router := chi.NewRouter()
	logger = logger.WithField("component", "api")
	router.Use(middleware.RequestLogger(&middleware.DefaultLogFormatter{Logger: &requestLogger{logger}, NoColor: true}))
	router.Use(middleware.Recoverer)

	h := &httpHandler{srv: srv, logger: logger}
	router.Post("/", h.dispatch)
	router.Handle("/metrics", promhttp.Handler())

	return router
}

type httpHandler struct {
	srv    *Server
	logger logrus.FieldLogger
}

func (h *httpHandler) dispatch(w http.ResponseWriter, r *http.Request) {
	logger := newRequestLogger(h.logger, r)

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		writeErrorResponse(logger, w, http.StatusInternalServerError, "read request body: %v", err)
		return
	}

	status, resp := h.srv.HandleBody(r.Context(), body)
	writeResponseAsJSON(logger, w, status, resp)
}

func newRequestLogger(logger logrus.FieldLogger, r *http.Request) logrus.FieldLogger {
	return logger.WithFields(logrus.Fields{
		"method": r.Method,
		"url":    r.URL.String(),
		"logID":  uuid.NewString(),
	})
}

func writeErrorResponse(logger logrus.FieldLogger, w http.ResponseWriter, status int, message string, args ...interface{}) {
	writeResponseAsJSON(logger, w, status, models.Failure(fmt.Sprintf(message, args...)))
}

// writeResponseAsJSON marshals resp and writes it with the given status.
func writeResponseAsJSON(logger logrus.FieldLogger, w http.ResponseWriter, code int, resp interface{}) {
	enc, err := json.Marshal(resp)
	if err != nil {
		logger.WithError(err).Error("failed JSON-encoding HTTP response")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if _, err = w.Write(enc); err != nil {
		logger.WithError(err).Error("failed writing HTTP response")
	}
}
