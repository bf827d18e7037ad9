package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"slices"
	"strconv"

	"github.com/gorilla/mux"

	"cycleview/internal/analyzer"
	"cycleview/internal/api"
	"cycleview/internal/export"
	"cycleview/internal/metrics"
	"cycleview/internal/models"
	"cycleview/internal/view"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// upstreamError maps a fetch failure to a response.
func (s *Server) upstreamError(w http.ResponseWriter, r *http.Request, err error) {
	var te *api.TransportError
	if errors.As(err, &te) {
		s.log.Warn("upstream request failed", "path", r.URL.Path, "request_id", r.Header.Get(requestIDHeader), "err", err)
		writeError(w, http.StatusBadGateway, "snapshots API unavailable")
		return
	}
	s.log.Error("request failed", "path", r.URL.Path, "request_id", r.Header.Get(requestIDHeader), "err", err)
	writeError(w, http.StatusInternalServerError, "internal error")
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) devices(w http.ResponseWriter, _ *http.Request) {
	devices := s.cfg.Devices
	if devices == nil {
		devices = []string{}
	}
	writeJSON(w, http.StatusOK, map[string][]string{"devices": devices})
}

// ParseCriteria reads filter criteria from query parameters q, time,
// minCycle, maxCycle, minDuration and maxDuration. Empty parameters are
// unset.
func ParseCriteria(q url.Values) (models.FilterCriteria, error) {
	var c models.FilterCriteria
	var err error

	c.SearchQuery = q.Get("q")
	if c.TimeFilter, err = models.ParseTimeFilter(q.Get("time")); err != nil {
		return c, err
	}
	if c.MinCycleNumber, err = optInt(q, "minCycle"); err != nil {
		return c, err
	}
	if c.MaxCycleNumber, err = optInt(q, "maxCycle"); err != nil {
		return c, err
	}
	if c.MinDuration, err = optFloat(q, "minDuration"); err != nil {
		return c, err
	}
	if c.MaxDuration, err = optFloat(q, "maxDuration"); err != nil {
		return c, err
	}
	return c, nil
}

func optInt(q url.Values, key string) (*int, error) {
	v := q.Get(key)
	if v == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return nil, fmt.Errorf("%s: not an integer: %q", key, v)
	}
	return &n, nil
}

func optFloat(q url.Values, key string) (*float64, error) {
	v := q.Get(key)
	if v == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return nil, fmt.Errorf("%s: not a number: %q", key, v)
	}
	return &f, nil
}

// request is the parsed common part of every device route.
type request struct {
	imei     string
	cycle    int
	limit    int
	criteria models.FilterCriteria
}

func (s *Server) parse(w http.ResponseWriter, r *http.Request) (request, bool) {
	vars := mux.Vars(r)
	req := request{imei: vars["imei"], limit: s.cfg.API.Limit}

	if c, ok := vars["cycle"]; ok {
		n, err := strconv.Atoi(c)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid cycle number")
			return req, false
		}
		req.cycle = n
	}

	q := r.URL.Query()
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return req, false
		}
		req.limit = n
	}

	criteria, err := ParseCriteria(q)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return req, false
	}
	req.criteria = criteria
	return req, true
}

type cyclesResponse struct {
	view.View
	Filters map[string]any `json:"filters"`
}

func (s *Server) cycles(w http.ResponseWriter, r *http.Request) {
	req, ok := s.parse(w, r)
	if !ok {
		return
	}

	list, err := s.src.ListCycles(r.Context(), req.imei, req.limit)
	if err != nil {
		s.upstreamError(w, r, err)
		return
	}

	v := view.Build(req.imei, list, req.criteria, s.filter, nil, s.now())
	writeJSON(w, http.StatusOK, cyclesResponse{View: v, Filters: list.Filters})
}

func (s *Server) cycle(w http.ResponseWriter, r *http.Request) {
	req, ok := s.parse(w, r)
	if !ok {
		return
	}

	list, err := s.src.ListCycles(r.Context(), req.imei, req.limit)
	if err != nil {
		s.upstreamError(w, r, err)
		return
	}
	detail, err := s.src.GetCycleDetail(r.Context(), req.imei, req.cycle)
	if err != nil {
		s.upstreamError(w, r, err)
		return
	}

	filtered := s.filter.Filter(list.Items, req.criteria, s.now())
	cv := view.BuildCycle(list.Items, filtered, req.cycle, detail)
	for _, a := range cv.Anomalies {
		metrics.AnomaliesDetected.WithLabelValues(a.Type).Inc()
	}

	writeJSON(w, http.StatusOK, cv)
}

func (s *Server) exportAll(w http.ResponseWriter, r *http.Request) {
	req, ok := s.parse(w, r)
	if !ok {
		return
	}

	list, err := s.src.ListCycles(r.Context(), req.imei, req.limit)
	if err != nil {
		s.upstreamError(w, r, err)
		return
	}

	filtered := s.filter.Filter(list.Items, req.criteria, s.now())
	if len(filtered) == 0 {
		writeError(w, http.StatusNotFound, "no cycles to export")
		return
	}

	s.writeCSV(w, r, export.BulkFilename(req.imei, len(filtered), len(list.Items)), filtered)
}

func (s *Server) exportCycle(w http.ResponseWriter, r *http.Request) {
	req, ok := s.parse(w, r)
	if !ok {
		return
	}

	detail, err := s.src.GetCycleDetail(r.Context(), req.imei, req.cycle)
	if err != nil {
		s.upstreamError(w, r, err)
		return
	}

	s.writeCSV(w, r, export.CycleFilename(req.cycle, req.imei), []models.CycleSummary{detail.CycleSummary})
}

func (s *Server) writeCSV(w http.ResponseWriter, r *http.Request, filename string, cycles []models.CycleSummary) {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)

	if err := export.WriteCSV(w, cycles); err != nil {
		s.log.Warn("writing export", "file", filename, "request_id", r.Header.Get(requestIDHeader), "err", err)
		return
	}
	metrics.CyclesExported.Add(float64(len(cycles)))
}

func (s *Server) temperatureChart(w http.ResponseWriter, r *http.Request) {
	req, ok := s.parse(w, r)
	if !ok {
		return
	}

	resolution := r.URL.Query().Get("resolution")
	if resolution == "" {
		resolution = "5deg"
	}
	if !slices.Contains(analyzer.Resolutions, resolution) {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("resolution must be one of %v", analyzer.Resolutions))
		return
	}

	detail, err := s.src.GetCycleDetail(r.Context(), req.imei, req.cycle)
	if err != nil {
		s.upstreamError(w, r, err)
		return
	}

	bins := analyzer.TemperatureBins(detail.TemperatureDist(resolution))
	title := fmt.Sprintf("Temperature Distribution, cycle #%d (%s)", req.cycle, resolution)
	writeSVG(w, temperatureChart(title, bins))
}

func (s *Server) sohChart(w http.ResponseWriter, r *http.Request) {
	req, ok := s.parse(w, r)
	if !ok {
		return
	}

	list, err := s.src.ListCycles(r.Context(), req.imei, req.limit)
	if err != nil {
		s.upstreamError(w, r, err)
		return
	}

	filtered := s.filter.Filter(list.Items, req.criteria, s.now())
	writeSVG(w, sohChart("SOH Trend, "+req.imei, analyzer.Trend(filtered)))
}

func writeSVG(w http.ResponseWriter, svg []byte) {
	w.Header().Set("Content-Type", "image/svg+xml")
	w.WriteHeader(http.StatusOK)
	w.Write(svg)
}
