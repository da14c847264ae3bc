/**
 * @description
 * This file contains the HTTP handlers for the tip-service's API endpoints.
 * Handlers parse incoming requests, call the application service, and write
 * the HTTP response. They act as the bridge between the web layer and the
 * business logic layer.
 *
 * @dependencies
 * - encoding/json, log, net/http: Standard Go libraries.
 * - github.com/go-chi/chi/v5: For URL parameter extraction.
 * - internal/app, internal/domain, internal/store: For service logic, models, and custom errors.
 */

package api

import (
	"encoding/json"
	"errors"
	"log"
	"net"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/tippay/tip-service/internal/app"
	"github.com/tippay/tip-service/internal/domain"
	"github.com/tippay/tip-service/internal/notify"
	"github.com/tippay/tip-service/internal/store"
	"github.com/tippay/tip-service/pkg/razorpay"
)

// TipHandlers holds the application service and the overlay notification hub.
type TipHandlers struct {
	service  *app.Service
	hub      *notify.Hub
	verifier SignatureVerifier
}

// SignatureVerifier authenticates raw webhook bodies against the gateway's
// signature header. Satisfied by the razorpay client.
type SignatureVerifier interface {
	VerifyWebhookSignature(body []byte, signatureHeader string) error
}

// NewTipHandlers creates a new instance of TipHandlers.
func NewTipHandlers(service *app.Service, hub *notify.Hub, verifier SignatureVerifier) *TipHandlers {
	return &TipHandlers{service: service, hub: hub, verifier: verifier}
}

// overlayProfileResponse is the public descriptor served to the tip page and
// the overlay. It deliberately exposes no email, earnings, or credentials.
type overlayProfileResponse struct {
	StreamerID      uuid.UUID              `json:"streamer_id"`
	Username        string                 `json:"username"`
	OverlaySettings domain.OverlaySettings `json:"overlay_settings"`
}

type profileResponse struct {
	Streamer   *domain.Streamer `json:"streamer"`
	RecentTips []domain.Tip     `json:"recent_tips"`
}

// CreateOrderHandler handles public requests to open a gateway order for a tip.
func (h *TipHandlers) CreateOrderHandler(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")

	var req domain.CreateOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Amount <= 0 {
		h.writeError(w, http.StatusBadRequest, "Tip amount must be positive")
		return
	}

	resp, err := h.service.CreateTipOrder(r.Context(), username, clientIP(r), req)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrStreamerNotFound):
			h.writeError(w, http.StatusNotFound, "Streamer not found")
		case errors.Is(err, app.ErrStreamerInactive):
			h.writeError(w, http.StatusForbidden, "Streamer is not accepting tips")
		case errors.Is(err, app.ErrAmountOutOfRange):
			h.writeError(w, http.StatusBadRequest, "Tip amount is outside the streamer's allowed range")
		case errors.Is(err, app.ErrRateLimited):
			h.writeError(w, http.StatusTooManyRequests, "Too many tip requests, please slow down")
		case errors.Is(err, razorpay.ErrGatewayUnavailable):
			h.writeError(w, http.StatusBadGateway, "Payment gateway is unavailable, please retry")
		default:
			log.Printf("level=error component=api endpoint=create_order username=%s err=%v", username, err)
			h.writeError(w, http.StatusInternalServerError, "Unable to create tip order")
		}
		return
	}

	h.writeJSON(w, http.StatusCreated, resp)
}

// OverlayProfileHandler serves the public overlay descriptor for a username.
func (h *TipHandlers) OverlayProfileHandler(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")

	streamer, err := h.service.GetOverlayProfile(r.Context(), username)
	if err != nil {
		if errors.Is(err, store.ErrStreamerNotFound) {
			h.writeError(w, http.StatusNotFound, "Streamer not found")
			return
		}
		log.Printf("level=error component=api endpoint=overlay_profile username=%s err=%v", username, err)
		h.writeError(w, http.StatusInternalServerError, "Unable to load overlay profile")
		return
	}

	h.writeJSON(w, http.StatusOK, overlayProfileResponse{
		StreamerID:      streamer.ID,
		Username:        streamer.Username,
		OverlaySettings: streamer.OverlaySettings,
	})
}

// ProfileHandler serves the authenticated streamer's dashboard profile.
func (h *TipHandlers) ProfileHandler(w http.ResponseWriter, r *http.Request) {
	streamerID, ok := GetStreamerID(r.Context())
	if !ok {
		h.writeError(w, http.StatusInternalServerError, "Could not get streamer ID from context")
		return
	}

	streamer, recent, err := h.service.GetStreamerProfile(r.Context(), streamerID)
	if err != nil {
		if errors.Is(err, store.ErrStreamerNotFound) {
			h.writeError(w, http.StatusNotFound, "Streamer not found")
			return
		}
		log.Printf("level=error component=api endpoint=profile streamer_id=%s err=%v", streamerID, err)
		h.writeError(w, http.StatusInternalServerError, "Unable to load profile")
		return
	}

	h.writeJSON(w, http.StatusOK, profileResponse{Streamer: streamer, RecentTips: recent})
}

// AnalyticsHandler serves aggregated tip analytics for the authenticated streamer.
func (h *TipHandlers) AnalyticsHandler(w http.ResponseWriter, r *http.Request) {
	streamerID, ok := GetStreamerID(r.Context())
	if !ok {
		h.writeError(w, http.StatusInternalServerError, "Could not get streamer ID from context")
		return
	}

	period := r.URL.Query().Get("period")
	switch period {
	case "", "24h", "7d", "30d":
	default:
		h.writeError(w, http.StatusBadRequest, "Period must be one of 24h, 7d, 30d")
		return
	}

	analytics, err := h.service.Analytics(r.Context(), streamerID, period)
	if err != nil {
		log.Printf("level=error component=api endpoint=analytics streamer_id=%s err=%v", streamerID, err)
		h.writeError(w, http.StatusInternalServerError, "Unable to compute analytics")
		return
	}

	h.writeJSON(w, http.StatusOK, analytics)
}

// UpdateOverlaySettingsHandler persists new overlay configuration for the
// authenticated streamer and broadcasts it to connected overlays.
func (h *TipHandlers) UpdateOverlaySettingsHandler(w http.ResponseWriter, r *http.Request) {
	streamerID, ok := GetStreamerID(r.Context())
	if !ok {
		h.writeError(w, http.StatusInternalServerError, "Could not get streamer ID from context")
		return
	}

	var settings domain.OverlaySettings
	if err := json.NewDecoder(r.Body).Decode(&settings); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.service.UpdateOverlaySettings(r.Context(), streamerID, settings); err != nil {
		switch {
		case errors.Is(err, app.ErrInvalidOverlay):
			h.writeError(w, http.StatusBadRequest, "Minimum tip amount must be positive and not exceed the maximum")
		case errors.Is(err, store.ErrStreamerNotFound):
			h.writeError(w, http.StatusNotFound, "Streamer not found")
		default:
			log.Printf("level=error component=api endpoint=update_overlay streamer_id=%s err=%v", streamerID, err)
			h.writeError(w, http.StatusInternalServerError, "Unable to update overlay settings")
		}
		return
	}

	h.writeJSON(w, http.StatusOK, settings)
}

// SetAlertTokenHandler stores the streamer's alert provider credential.
func (h *TipHandlers) SetAlertTokenHandler(w http.ResponseWriter, r *http.Request) {
	streamerID, ok := GetStreamerID(r.Context())
	if !ok {
		h.writeError(w, http.StatusInternalServerError, "Could not get streamer ID from context")
		return
	}

	var req struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if strings.TrimSpace(req.AccessToken) == "" {
		h.writeError(w, http.StatusBadRequest, "Access token is required")
		return
	}

	if err := h.service.SetAlertToken(r.Context(), streamerID, req.AccessToken); err != nil {
		if errors.Is(err, store.ErrStreamerNotFound) {
			h.writeError(w, http.StatusNotFound, "Streamer not found")
			return
		}
		log.Printf("level=error component=api endpoint=set_alert_token streamer_id=%s err=%v", streamerID, err)
		h.writeError(w, http.StatusInternalServerError, "Unable to save alert token")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{"status": "saved"})
}

// clientIP extracts the originating client address, trusting the first entry
// of X-Forwarded-For when the service runs behind a proxy.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		parts := strings.Split(fwd, ",")
		if ip := strings.TrimSpace(parts[0]); ip != "" {
			return ip
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// writeJSON is a helper for writing JSON responses.
func (h *TipHandlers) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// writeError is a helper for writing JSON error responses.
func (h *TipHandlers) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
