package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/uditkarode/cpu-event-boost/internal/boost"
	"github.com/uditkarode/cpu-event-boost/internal/display"
)

type DisplayRequest struct {
	Display int    `json:"display"`
	Blank   string `json:"blank"`
}

type DelayRequest struct {
	DelayMs    int64 `json:"delay_ms"`
	DurationMs int64 `json:"duration_ms,omitempty"`
}

type BoostRequest struct {
	DurationMs int64 `json:"duration_ms,omitempty"`
}

type EventResponse struct {
	Outcome boost.Outcome `json:"outcome"`
	Modes   string        `json:"modes"`
}

type StateResponse struct {
	Modes           string    `json:"modes"`
	ScreenOn        bool      `json:"screen_on"`
	Active          []string  `json:"active"`
	EffectiveMode   string    `json:"effective_mode"`
	ExpiryPending   bool      `json:"expiry_pending"`
	MaxBoostExpires time.Time `json:"max_boost_expires"`
}

func (s *Server) handleDisplay(w http.ResponseWriter, r *http.Request) {
	var req DisplayRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	blank, err := display.ParseBlankState(req.Blank)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.logger.V(5).Info("display event received", "requestID", middleware.GetReqID(r.Context()), "blank", blank.String())
	s.display.PublishTransition(display.Event{Display: req.Display, Blank: blank})

	writeJSON(w, http.StatusAccepted, EventResponse{
		Outcome: boost.OutcomeAccepted,
		Modes:   s.coord.Snapshot().String(),
	})
}

func (s *Server) handleDelay(w http.ResponseWriter, r *http.Request) {
	var req DelayRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.DelayMs < 0 || req.DurationMs < 0 {
		writeError(w, http.StatusBadRequest, "delay_ms and duration_ms must not be negative")
		return
	}

	outcome := s.coord.OnDelayObserved(
		time.Duration(req.DelayMs)*time.Millisecond,
		time.Duration(req.DurationMs)*time.Millisecond,
	)
	s.logger.V(5).Info("delay event received", "requestID", middleware.GetReqID(r.Context()),
		"delayMs", req.DelayMs, "outcome", outcome)

	writeJSON(w, http.StatusAccepted, EventResponse{
		Outcome: outcome,
		Modes:   s.coord.Snapshot().String(),
	})
}

func (s *Server) handleBoost(w http.ResponseWriter, r *http.Request) {
	var req BoostRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.DurationMs < 0 {
		writeError(w, http.StatusBadRequest, "duration_ms must not be negative")
		return
	}

	duration := time.Duration(req.DurationMs) * time.Millisecond
	if duration == 0 {
		duration = s.opts.InputBoostDuration
	}

	outcome := s.coord.OnMaxBoostRequest(duration)
	s.logger.V(5).Info("max boost request received", "requestID", middleware.GetReqID(r.Context()),
		"duration", duration, "outcome", outcome)

	writeJSON(w, http.StatusAccepted, EventResponse{
		Outcome: outcome,
		Modes:   s.coord.Snapshot().String(),
	})
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	modes := s.coord.Snapshot()

	active := []string{}
	for _, mode := range boost.AllModes {
		if mode != boost.ScreenOn && modes.Has(mode) {
			active = append(active, mode.String())
		}
	}

	effective := "floor"
	if mode, ok := boost.EffectiveMode(modes); ok {
		effective = mode.String()
	} else if !modes.Has(boost.ScreenOn) {
		effective = "hardware_min"
	}

	writeJSON(w, http.StatusOK, StateResponse{
		Modes:           modes.String(),
		ScreenOn:        modes.Has(boost.ScreenOn),
		Active:          active,
		EffectiveMode:   effective,
		ExpiryPending:   s.coord.ExpiryPending(),
		MaxBoostExpires: s.coord.MaxBoostExpiry(),
	})
}
