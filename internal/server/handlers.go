package server

import (
	"encoding/json"
	stderrors "errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/vtprint/vtp/pkg/engine"
	"github.com/vtprint/vtp/pkg/errors"
	"github.com/vtprint/vtp/pkg/geom"
	"github.com/vtprint/vtp/pkg/pipeline"
)

// Response headers of /v1/transform.
const (
	HeaderRunID      = "X-VTP-Run-ID"
	HeaderCache      = "X-VTP-Cache"
	HeaderLinesIn    = "X-VTP-Lines-In"
	HeaderLinesOut   = "X-VTP-Lines-Out"
	HeaderMoves      = "X-VTP-Moves"
	HeaderSubMoves   = "X-VTP-Sub-Moves"
	HeaderResyncs    = "X-VTP-Resyncs"
	HeaderDepositedE = "X-VTP-Deposited-E"
	HeaderBaselineE  = "X-VTP-Baseline-E"
)

func (s *Server) healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// RegionInfo describes one region.
type RegionInfo struct {
	Index      int    `json:"index"`
	Name       string `json:"name"`
	Multiplier string `json:"multiplier"`
	Geometry   string `json:"geometry"`
}

func (s *Server) regions(w http.ResponseWriter, r *http.Request) {
	regions := s.table.Regions()
	out := make([]RegionInfo, len(regions))
	for i, rg := range regions {
		m, g := rg.Exprs()
		out[i] = RegionInfo{Index: rg.Index, Name: rg.Name, Multiplier: m, Geometry: g}
	}
	writeJSON(w, http.StatusOK, out)
}

// ClassifyRequest is the body of /v1/classify.
type ClassifyRequest struct {
	X *float64 `json:"x"`
	Y *float64 `json:"y"`
	Z *float64 `json:"z"`
}

// ClassifyResponse reports the region of a point and its field values.
// Region is null outside every region, where the values are unity.
type ClassifyResponse struct {
	Region     *string `json:"region"`
	Multiplier float64 `json:"multiplier"`
	Geometry   float64 `json:"geometry"`
}

func (s *Server) classify(w http.ResponseWriter, r *http.Request) {
	var req ClassifyRequest
	dec := json.NewDecoder(io.LimitReader(r.Body, 1<<16))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		s.writeError(w, r, errors.Wrap(errors.ErrCodeInvalidInput, err, "decode point"))
		return
	}
	if req.X == nil || req.Y == nil || req.Z == nil {
		s.writeError(w, r, errors.New(errors.ErrCodeInvalidInput, "x, y and z are required"))
		return
	}
	p := geom.Pt(*req.X, *req.Y, *req.Z)

	rg := s.classifier.Classify(p)
	v, err := s.table.Evaluate(rg, p)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	resp := ClassifyResponse{Multiplier: v.Multiplier, Geometry: v.Geometry}
	if rg != nil {
		name := rg.Name
		resp.Region = &name
	}
	writeJSON(w, http.StatusOK, resp)
}

// TransformResponse is returned by /v1/transform when the client accepts JSON.
type TransformResponse struct {
	RunID    string       `json:"run_id"`
	CacheHit bool         `json:"cache_hit"`
	Output   string       `json:"output"`
	Stats    engine.Stats `json:"stats"`
}

func (s *Server) transform(w http.ResponseWriter, r *http.Request) {
	program, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.maxBody))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if stderrors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorBody{
				Error:     "program exceeds " + strconv.FormatInt(tooLarge.Limit, 10) + " bytes",
				Code:      string(errors.ErrCodeInvalidInput),
				RequestID: RequestID(r.Context()),
			})
			return
		}
		s.writeError(w, r, errors.Wrap(errors.ErrCodeInvalidInput, err, "read program"))
		return
	}

	refresh, _ := strconv.ParseBool(r.URL.Query().Get("refresh"))
	res, err := s.runner.Execute(r.Context(), pipeline.Options{
		Program: program,
		Config:  s.cfg,
		Table:   s.table,
		Refresh: refresh,
		Logger:  s.logger.With("request", RequestID(r.Context())),
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	h := w.Header()
	h.Set(HeaderRunID, res.RunID)
	h.Set(HeaderCache, map[bool]string{true: "hit", false: "miss"}[res.CacheHit])
	h.Set(HeaderLinesIn, strconv.Itoa(res.Stats.LinesIn))
	h.Set(HeaderLinesOut, strconv.Itoa(res.Stats.LinesOut))
	h.Set(HeaderMoves, strconv.Itoa(res.Stats.MovesTransformed))
	h.Set(HeaderSubMoves, strconv.Itoa(res.Stats.SubMoves))
	h.Set(HeaderResyncs, strconv.Itoa(res.Stats.Resyncs))
	h.Set(HeaderDepositedE, strconv.FormatFloat(res.Stats.DepositedE, 'f', 5, 64))
	h.Set(HeaderBaselineE, strconv.FormatFloat(res.Stats.BaselineE, 'f', 5, 64))

	if strings.Contains(r.Header.Get("Accept"), "application/json") {
		writeJSON(w, http.StatusOK, TransformResponse{
			RunID:    res.RunID,
			CacheHit: res.CacheHit,
			Output:   string(res.Output),
			Stats:    res.Stats,
		})
		return
	}
	h.Set("Content-Type", "text/x-gcode; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(res.Output)
}
