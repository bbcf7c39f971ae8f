package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"atfcf/internal/company"
)

const (
	maxEnrichBody      = 1 << 20
	maxEnrichCompanies = 1000
)

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, "home", page{Active: "home"})
}

func (s *Server) handleCalc(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, "calc", page{Active: "calc", Body: s.calcHTML})
}

func (s *Server) handleSP500(w http.ResponseWriter, r *http.Request) {
	records := s.enricher.Enrich(r.Context(), s.roster)
	s.render(w, r, "sp500", page{
		Active:   "sp500",
		Records:  records,
		WithData: company.CountWithData(records),
	})
}

func (s *Server) handleClearCache(w http.ResponseWriter, r *http.Request) {
	s.cache.ClearCache()
	writeJSON(w, http.StatusOK, map[string]string{"message": "Cache cleared successfully"})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleEnrich accepts a JSON array of {name, ticker} and answers with one
// record per company in the same order.
func (s *Server) handleEnrich(w http.ResponseWriter, r *http.Request) {
	var companies []company.Company

	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxEnrichBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&companies); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid request body: unexpected data after JSON array")
		return
	}

	if len(companies) > maxEnrichCompanies {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("too many companies: %d (max %d)", len(companies), maxEnrichCompanies))
		return
	}

	for i := range companies {
		companies[i].Ticker = strings.TrimSpace(companies[i].Ticker)
		if companies[i].Ticker == "" {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("company %d has no ticker", i+1))
			return
		}
	}

	writeJSON(w, http.StatusOK, s.enricher.Enrich(r.Context(), companies))
}

// render executes a page into a buffer first so a template error never
// leaves a half-written response.
func (s *Server) render(w http.ResponseWriter, r *http.Request, name string, data page) {
	var buf bytes.Buffer
	if err := s.pages[name].ExecuteTemplate(&buf, "layout", data); err != nil {
		s.logger.Error("failed to render page", "page", name, "path", r.URL.Path, "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	buf.WriteTo(w)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
