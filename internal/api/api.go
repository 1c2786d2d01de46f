package api

import (
	"context"
	"errors"
	"iter"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog/log"
	"github.com/skybi/cost-estimator/internal/api/schema"
	"github.com/skybi/cost-estimator/internal/config"
	"github.com/skybi/cost-estimator/internal/estimator"
	"github.com/skybi/cost-estimator/internal/function"
)

// Payload represents the body of an invocation
type Payload struct {
	Prompt *string `json:"prompt" required:"true"`
}

// BatchEntrypoint handles an invocation synchronously; its result is sent as the JSON response body
type BatchEntrypoint func(ctx context.Context, payload *Payload) (any, error)

// StreamEntrypoint handles an invocation by producing events which are streamed to the caller as they arrive
type StreamEntrypoint func(ctx context.Context, payload *Payload) iter.Seq2[estimator.Event, error]

// Service represents the agent runtime host serving exactly one entrypoint
type Service struct {
	server *http.Server

	Config *config.Config

	// Batch or Stream is served at 'POST /invocations'; Stream takes precedence
	Batch  BatchEntrypoint
	Stream StreamEntrypoint

	// Verifier verifies inbound bearer tokens; nil disables inbound authorization
	Verifier TokenVerifier

	writer *schema.Writer
}

// Router creates the HTTP handler of the runtime host
func (service *Service) Router() http.Handler {
	// Create the HTTP schema writer
	service.writer = &schema.Writer{
		InternalErrorHook: func(err error) {
			log.Error().Err(err).Msg("the runtime host experienced an unexpected error")
		},
	}

	// Create the HTTP router
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Recoverer)
	router.Use(middleware.RedirectSlashes)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: service.Config.AllowedOrigins,
		AllowedMethods: []string{
			http.MethodHead,
			http.MethodGet,
			http.MethodPost,
		},
		AllowedHeaders: []string{"*"},
		ExposedHeaders: []string{sessionHeader},
	}))
	router.NotFound(func(writer http.ResponseWriter, _ *http.Request) {
		service.writer.WriteErrors(writer, http.StatusNotFound, schema.ErrNotFound)
	})
	router.MethodNotAllowed(func(writer http.ResponseWriter, _ *http.Request) {
		service.writer.WriteErrors(writer, http.StatusMethodNotAllowed, schema.ErrMethodNotAllowed)
	})

	// Register the API endpoint handlers
	router.Get("/ping", service.EndpointPing)

	middlewares := []func(http.HandlerFunc) http.HandlerFunc{service.MiddlewareSession}
	if service.Verifier != nil {
		middlewares = append(middlewares, service.MiddlewareVerifyToken)
	}
	router.Post("/invocations", function.Nest[http.HandlerFunc](service.EndpointInvocations, middlewares...))

	return router
}

// Startup starts up the runtime host; errors other than a regular shutdown are sent to errs
func (service *Service) Startup(errs chan<- error) {
	server := &http.Server{
		Addr:    service.Config.ListenAddress,
		Handler: service.Router(),
	}
	service.server = server
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs <- err
		}
	}()
}

// Shutdown shuts down the runtime host
func (service *Service) Shutdown() {
	if service.server != nil {
		service.server.Close()
		service.server = nil
	}
}

// EndpointPing handles the 'GET /ping' endpoint
func (service *Service) EndpointPing(writer http.ResponseWriter, _ *http.Request) {
	service.writer.WriteJSON(writer, map[string]string{"status": "Healthy"})
}
