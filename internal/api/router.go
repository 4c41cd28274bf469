package api

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func NewRouter(h *Handlers) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", promhttp.Handler())

	get := func(fn http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet {
				http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
				return
			}
			fn(w, r)
		}
	}
	post := func(fn http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
				return
			}
			fn(w, r)
		}
	}

	mux.HandleFunc("/readyz", get(h.HandleReady))
	mux.HandleFunc("/status", get(h.HandleStatus))
	mux.HandleFunc("/faces", get(h.HandleListFaces))
	mux.HandleFunc("/events", get(h.HandleListEvents))
	mux.HandleFunc("/ws/events", h.HandleEventFeed)
	mux.HandleFunc("/voice/start", post(h.HandleStartVoice))
	mux.HandleFunc("/voice/stop", post(h.HandleStopVoice))

	return mux
}
