// Package api serves the station's local HTTP API: recent package records,
// station status, pallet selection, and raw device commands.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/banshee-data/parcel.station/internal/fusion"
	"github.com/banshee-data/parcel.station/internal/monitoring"
	"github.com/banshee-data/parcel.station/internal/serialmux"
)

// ANSI escape codes for request logging
const colorCyan = "\033[36m"
const colorReset = "\033[0m"
const colorYellow = "\033[33m"
const colorBoldGreen = "\033[1;32m"
const colorBoldRed = "\033[1;31m"

// PackageStore is the slice of the database the API reads.
type PackageStore interface {
	Packages(ctx context.Context, limit int) ([]fusion.PackageRecord, error)
	StatusCounts(ctx context.Context) (map[string]int, error)
}

type Server struct {
	store     PackageStore
	pallets   *fusion.PalletRegistry
	admission *fusion.Admission
	scale     serialmux.SerialMuxInterface
	scanner   serialmux.SerialMuxInterface
}

func NewServer(store PackageStore, pallets *fusion.PalletRegistry, admission *fusion.Admission, scale, scanner serialmux.SerialMuxInterface) *Server {
	return &Server{
		store:     store,
		pallets:   pallets,
		admission: admission,
		scale:     scale,
		scanner:   scanner,
	}
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Flush() {
	if flusher, ok := lrw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

func statusCodeColor(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return colorBoldGreen + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 300 && statusCode < 400:
		return colorYellow + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 400:
		return colorBoldRed + strconv.Itoa(statusCode) + colorReset
	default:
		return strconv.Itoa(statusCode)
	}
}

// LoggingMiddleware logs method, path, query, status, and duration.
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{w, http.StatusOK}
		next.ServeHTTP(lrw, r)
		monitoring.Logf(
			"[%s] %s %s%s%s %vms",
			statusCodeColor(lrw.statusCode), r.Method,
			colorCyan, r.RequestURI, colorReset,
			float64(time.Since(start).Nanoseconds())/1e6,
		)
	})
}

func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/packages", s.listPackages)
	mux.HandleFunc("/api/status", s.showStatus)
	mux.HandleFunc("/api/pallets", s.listPallets)
	mux.HandleFunc("/api/pallets/select", s.selectPallet)
	mux.HandleFunc("/api/command", s.sendCommandHandler)
	return mux
}

func (s *Server) writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func (s *Server) listPackages(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.Method != http.MethodGet {
		s.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	limit := 100
	if l := r.URL.Query().Get("limit"); l != "" {
		parsed, err := strconv.Atoi(l)
		if err != nil || parsed < 1 {
			s.writeJSONError(w, http.StatusBadRequest, "Invalid 'limit' parameter")
			return
		}
		limit = parsed
	}

	packages, err := s.store.Packages(r.Context(), limit)
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError,
			fmt.Sprintf("Failed to retrieve packages: %v", err))
		return
	}
	if packages == nil {
		packages = []fusion.PackageRecord{}
	}
	json.NewEncoder(w).Encode(packages)
}

func (s *Server) showStatus(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.Method != http.MethodGet {
		s.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	counts, err := s.store.StatusCounts(r.Context())
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError,
			fmt.Sprintf("Failed to retrieve status counts: %v", err))
		return
	}

	json.NewEncoder(w).Encode(map[string]interface{}{
		"busy":            s.admission.Busy(),
		"selected_pallet": s.pallets.Selected(),
		"package_counts":  counts,
	})
}

func (s *Server) listPallets(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.Method != http.MethodGet {
		s.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	json.NewEncoder(w).Encode(map[string]interface{}{
		"profiles": s.pallets.Profiles(),
		"selected": s.pallets.Selected().Name,
	})
}

func (s *Server) selectPallet(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	name := r.FormValue("name")
	if name == "" {
		http.Error(w, "Missing 'name' parameter", http.StatusBadRequest)
		return
	}

	if err := s.pallets.Select(name); err != nil {
		http.Error(w, fmt.Sprintf("Failed to select pallet: %v", err), http.StatusNotFound)
		return
	}
	io.WriteString(w, "Pallet selected")
}

func (s *Server) sendCommandHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var mux serialmux.SerialMuxInterface
	switch device := r.FormValue("device"); device {
	case "scale":
		mux = s.scale
	case "scanner":
		mux = s.scanner
	default:
		http.Error(w, "Unknown 'device' parameter", http.StatusBadRequest)
		return
	}
	if mux == nil {
		http.Error(w, "Device not attached", http.StatusServiceUnavailable)
		return
	}

	command := r.FormValue("command")
	if err := mux.SendCommand(command); err != nil {
		http.Error(w, "Failed to send command", http.StatusInternalServerError)
		return
	}
	io.WriteString(w, "Command sent successfully")
}
