/**
 * @description
 * This file contains the Server-Sent Events endpoint that streams overlay
 * events to the browser source running in the streamer's broadcast software.
 * Each connection subscribes to the streamer's topic on the notification hub
 * and relays events until the client disconnects.
 */

package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/tippay/tip-service/internal/store"
)

const sseKeepaliveInterval = 15 * time.Second

// OverlayStreamHandler streams overlay events for a streamer over SSE.
func (h *TipHandlers) OverlayStreamHandler(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")

	streamer, err := h.service.GetOverlayProfile(r.Context(), username)
	if err != nil {
		if errors.Is(err, store.ErrStreamerNotFound) {
			h.writeError(w, http.StatusNotFound, "Streamer not found")
			return
		}
		log.Printf("level=error component=api endpoint=overlay_stream username=%s err=%v", username, err)
		h.writeError(w, http.StatusInternalServerError, "Unable to open event stream")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		h.writeError(w, http.StatusInternalServerError, "Streaming is not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	events, cancel := h.hub.Subscribe(streamer.ID)
	defer cancel()

	// Prime the connection so the overlay knows the stream is live and can
	// apply current settings before the first tip arrives.
	h.writeSSE(w, "connected", streamer.OverlaySettings)
	flusher.Flush()

	log.Printf("level=info component=api endpoint=overlay_stream msg=\"overlay connected\" streamer=%s", streamer.Username)

	keepalive := time.NewTicker(sseKeepaliveInterval)
	defer keepalive.Stop()

	for {
		select {
		case <-r.Context().Done():
			log.Printf("level=info component=api endpoint=overlay_stream msg=\"overlay disconnected\" streamer=%s", streamer.Username)
			return
		case <-keepalive.C:
			fmt.Fprint(w, ": keepalive\n\n")
			flusher.Flush()
		case event, open := <-events:
			if !open {
				return
			}
			h.writeSSE(w, event.Kind, event.Data)
			flusher.Flush()
		}
	}
}

func (h *TipHandlers) writeSSE(w http.ResponseWriter, eventName string, data interface{}) {
	payload, err := json.Marshal(data)
	if err != nil {
		log.Printf("level=error component=api endpoint=overlay_stream msg=\"failed to marshal event\" event=%s err=%v", eventName, err)
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", eventName, payload)
}
