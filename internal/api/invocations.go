package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/skybi/cost-estimator/internal/api/schema"
	"github.com/skybi/cost-estimator/internal/estimator"
	"github.com/skybi/cost-estimator/internal/runtime"
)

const sessionHeader = runtime.SessionHeader

type contextKey string

const contextKeySession contextKey = "session"

var errNoEntrypoint = errors.New("no entrypoint registered")

// SessionID returns the runtime session of the request context
func SessionID(ctx context.Context) string {
	id, _ := ctx.Value(contextKeySession).(string)
	return id
}

// MiddlewareSession assigns every invocation to a session, using the one the caller sent if present.
// The session id is echoed in the response headers.
func (service *Service) MiddlewareSession(next http.HandlerFunc) http.HandlerFunc {
	return func(writer http.ResponseWriter, request *http.Request) {
		id := request.Header.Get(sessionHeader)
		if id == "" {
			id = uuid.NewString()
		}
		writer.Header().Set(sessionHeader, id)

		request = request.WithContext(context.WithValue(request.Context(), contextKeySession, id))
		next(writer, request)
	}
}

// EndpointInvocations handles the 'POST /invocations' endpoint
func (service *Service) EndpointInvocations(writer http.ResponseWriter, request *http.Request) {
	payload, validationErrs, err := schema.UnmarshalBody[Payload](request)
	if err != nil {
		service.writer.WriteInternalError(writer, err)
		return
	}
	if len(validationErrs) > 0 {
		service.writer.WriteErrors(writer, http.StatusBadRequest, validationErrs...)
		return
	}

	logger := log.With().Str("session", SessionID(request.Context())).Logger()
	switch {
	case service.Stream != nil:
		logger.Info().Msg("streaming invocation")
		service.stream(writer, request, payload)
	case service.Batch != nil:
		logger.Info().Msg("batch invocation")
		result, err := service.Batch(request.Context(), payload)
		if err != nil {
			service.writer.WriteInternalError(writer, err)
			return
		}
		service.writer.WriteJSON(writer, result)
	default:
		service.writer.WriteInternalError(writer, errNoEntrypoint)
	}
}

// stream writes every event as one server-sent event.
// A failure of the entrypoint is reported as a final error event since the status line has already been sent.
func (service *Service) stream(writer http.ResponseWriter, request *http.Request, payload *Payload) {
	events := service.writer.WriteEventStream(writer)
	for event, err := range service.Stream(request.Context(), payload) {
		if err != nil {
			log.Error().Err(err).Str("session", SessionID(request.Context())).Msg("streaming invocation failed")
			event = estimator.ErrorEvent(err)
		}
		if sendErr := events.Send(event); sendErr != nil {
			// The client is gone; leaving the loop stops the producer
			log.Debug().Err(sendErr).Msg("could not write event")
			return
		}
	}
}
