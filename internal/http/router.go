package http

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"ai-voice-agent-service/internal/service/voice"
	"ai-voice-agent-service/internal/telephony"
)

// Deps are the handlers mounted on the service router.
type Deps struct {
	Voice     *voice.Service
	Telephony *telephony.Client
	MediaWS   http.Handler
}

// NewRouter constructs the HTTP router for the service: the media WebSocket
// endpoint, the transcript read API and outbound call initiation.
func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()

	// Basic middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	// Health endpoints
	r.Get("/v1/liveness", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/v1/readiness", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	// Telephony gateway media channel
	r.Handle("/media", deps.MediaWS)

	// API routes
	r.Route("/v1", func(r chi.Router) {
		r.Get("/transcript/{callID}", transcriptHandler(deps.Voice))
		if deps.Telephony != nil {
			r.Post("/calls", placeCallHandler(deps.Telephony))
		}
	})

	return r
}

// transcriptHandler serves the ordered turn log for a call, live sessions
// first, archive second. An unknown call ID yields an empty list, not 404.
func transcriptHandler(svc *voice.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		callID := chi.URLParam(r, "callID")
		turns := svc.Transcript(callID)

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(turns); err != nil {
			log.Error().Err(err).Str("callId", callID).Msg("Failed to encode transcript")
		}
	}
}

type placeCallRequest struct {
	To   string `json:"to"`
	From string `json:"from"`
}

type placeCallResponse struct {
	CallID string `json:"callId"`
}

// placeCallHandler instructs the telephony gateway to dial out and attach
// the answered call to this pipeline's media endpoint.
func placeCallHandler(client *telephony.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req placeCallRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.To == "" || req.From == "" {
			http.Error(w, "to and from are required", http.StatusBadRequest)
			return
		}

		callID, err := client.PlaceCall(r.Context(), req.To, req.From)
		if err != nil {
			log.Error().Err(err).Str("to", req.To).Msg("Outbound call failed")
			http.Error(w, "call initiation failed", http.StatusBadGateway)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusAccepted)
		_ = json.NewEncoder(w).Encode(placeCallResponse{CallID: callID})
	}
}
