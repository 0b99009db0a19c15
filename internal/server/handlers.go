package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/KaramelBytes/csvscope-cli/internal/analysis"
	"github.com/KaramelBytes/csvscope-cli/internal/charts"
	"github.com/KaramelBytes/csvscope-cli/internal/dataset"
	"github.com/KaramelBytes/csvscope-cli/internal/export"
	"github.com/KaramelBytes/csvscope-cli/internal/history"
	"github.com/KaramelBytes/csvscope-cli/internal/ingest"
	"github.com/KaramelBytes/csvscope-cli/internal/quality"
)

type columnInfo struct {
	Name  string       `json:"name"`
	Kind  dataset.Kind `json:"kind"`
	Nulls int          `json:"nulls"`
}

type sessionView struct {
	ID        string                `json:"id"`
	Name      string                `json:"name"`
	Rows      int                   `json:"rows"`
	Cols      int                   `json:"cols"`
	Columns   []columnInfo          `json:"columns,omitempty"`
	Encoding  string                `json:"encoding"`
	Delimiter string                `json:"delimiter,omitempty"`
	TotalRows int                   `json:"total_rows"`
	Warnings  []string              `json:"warnings"`
	Issues    []analysis.Issue      `json:"issues"`
	Cleaning  *analysis.CleanResult `json:"cleaning"`
	CreatedAt time.Time             `json:"created_at"`
}

func viewOf(s *Session, withColumns bool) sessionView {
	v := sessionView{
		ID:        s.ID,
		Name:      s.Name,
		Rows:      s.Clean.NumRows(),
		Cols:      s.Clean.NumCols(),
		Encoding:  s.Load.Encoding,
		TotalRows: s.Load.TotalRows,
		Warnings:  append([]string{}, s.Load.Warnings...),
		Issues:    append([]analysis.Issue{}, s.Issues...),
		Cleaning:  s.Cleaning,
		CreatedAt: s.CreatedAt,
	}
	if s.Load.Delimiter != 0 {
		v.Delimiter = string(s.Load.Delimiter)
	}
	if withColumns {
		for i := range s.Clean.Columns {
			c := &s.Clean.Columns[i]
			v.Columns = append(v.Columns, columnInfo{Name: c.Name, Kind: c.Kind, Nulls: c.NullCount()})
		}
	}
	return v
}

// readUpload reads the multipart "file" field and loads it.
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request) (string, *ingest.Result, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, s.opt.MaxUploadBytes+multipartOverhead)
	file, header, err := r.FormFile("file")
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			writeError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("File size exceeds the %d MB limit.", s.opt.MaxUploadBytes>>20))
			return "", nil, false
		}
		writeError(w, http.StatusBadRequest, "multipart field \"file\" is required")
		return "", nil, false
	}
	defer file.Close()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, file); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("read upload: %v", err))
		return "", nil, false
	}
	name := header.Filename
	if err := ingest.CheckFile(name, int64(buf.Len()), s.opt.MaxUploadBytes); err != nil {
		s.writeLoadError(w, err)
		return "", nil, false
	}
	res, err := ingest.Load(name, buf.Bytes(), s.opt.Ingest)
	if err != nil {
		s.writeLoadError(w, err)
		return "", nil, false
	}
	return name, res, true
}

func (s *Server) writeLoadError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	if ve, ok := ingest.AsValidation(err); ok {
		switch ve.Kind {
		case ingest.KindExtension:
			status = http.StatusBadRequest
		case ingest.KindSize:
			status = http.StatusRequestEntityTooLarge
		default:
			status = http.StatusUnprocessableEntity
		}
	} else if dataset.IsInvalidInput(err) {
		status = http.StatusUnprocessableEntity
	}
	if status == http.StatusInternalServerError {
		s.log.Error("load failed", "error", err)
	}
	writeError(w, status, err.Error())
}

func (s *Server) session(w http.ResponseWriter, r *http.Request) (*Session, bool) {
	sess, err := s.store.Get(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return nil, false
	}
	return sess, true
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	name, res, ok := s.readUpload(w, r)
	if !ok {
		return
	}
	sess := NewSession(name, res, s.opt.Clean)
	s.store.Add(sess)
	s.log.Info("session created", "id", sess.ID, "file", name, "rows", sess.Raw.NumRows(), "cols", sess.Raw.NumCols())
	writeJSON(w, http.StatusCreated, viewOf(sess, true))
}

func (s *Server) handleListSessions(w http.ResponseWriter, _ *http.Request) {
	out := []sessionView{}
	for _, sess := range s.store.List() {
		out = append(out, viewOf(sess, false))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	if sess, ok := s.session(w, r); ok {
		writeJSON(w, http.StatusOK, viewOf(sess, true))
	}
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Delete(chi.URLParam(r, "id")); err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	out := analysis.Summarize(sess.Clean)
	if out == nil {
		out = []analysis.ColumnStats{}
	}
	writeJSON(w, http.StatusOK, out)
}

type qualityView struct {
	*quality.Report
	Label           string   `json:"label"`
	Recommendations []string `json:"recommendations"`
}

func newQualityView(rep *quality.Report) qualityView {
	recs := rep.Recommendations()
	if recs == nil {
		recs = []string{}
	}
	return qualityView{Report: rep, Label: rep.Label(), Recommendations: recs}
}

func (s *Server) handleQuality(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	rep, err := s.scorer.Score(sess.Raw)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, newQualityView(rep))
}

func (s *Server) handleScore(w http.ResponseWriter, r *http.Request) {
	name, res, ok := s.readUpload(w, r)
	if !ok {
		return
	}
	rep, err := s.scorer.Score(res.Dataset)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if s.opt.History != nil {
		if _, err := s.opt.History.Record(r.Context(), history.NewRun(name, res.Dataset, rep)); err != nil {
			s.log.Warn("history record failed", "error", err)
		}
	}
	writeJSON(w, http.StatusOK, newQualityView(rep))
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.opt.History == nil {
		writeError(w, http.StatusNotFound, "history is disabled")
		return
	}
	limit := history.DefaultLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}
	runs, err := s.opt.History.List(r.Context(), limit)
	if err != nil {
		s.log.Error("history list failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list history")
		return
	}
	writeJSON(w, http.StatusOK, runs)
}

func (s *Server) handleInsights(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	sections, err := analysis.ParseSections(q["section"])
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if sections == 0 {
		writeError(w, http.StatusBadRequest, "no sections selected")
		return
	}
	seed := time.Now().UnixNano()
	if v := q.Get("seed"); v != "" {
		if seed, err = strconv.ParseInt(v, 10, 64); err != nil {
			writeError(w, http.StatusBadRequest, "seed must be an integer")
			return
		}
	}
	writeJSON(w, http.StatusOK, analysis.ComputeInsights(sess.Clean, sections, seed))
}

func (s *Server) handleCorrelations(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	m := analysis.Correlation(sess.Clean)
	if m == nil {
		writeError(w, http.StatusUnprocessableEntity, "need at least two numeric columns for a correlation matrix")
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (s *Server) handleListCharts(w http.ResponseWriter, r *http.Request) {
	if sess, ok := s.session(w, r); ok {
		writeJSON(w, http.StatusOK, sess.Charts())
	}
}

func (s *Server) handleAddChart(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var body struct {
		Kind   string `json:"kind"`
		Column string `json:"column"`
		Second string `json:"second"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}
	kind, err := charts.ParseKind(body.Kind)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	b, err := sess.AddChart(charts.Request{Kind: kind, Column: body.Column, Second: body.Second})
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, b)
}

func (s *Server) handleDeleteChart(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	id, err := strconv.Atoi(chi.URLParam(r, "chartID"))
	if err != nil {
		writeError(w, http.StatusNotFound, "chart not found")
		return
	}
	if err := sess.RemoveChart(id); err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	rep, err := s.scorer.Score(sess.Raw)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	d := export.Dashboard{
		Source:      sess.Name,
		Rows:        sess.Clean.NumRows(),
		Cols:        sess.Clean.NumCols(),
		Quality:     rep,
		Cleaning:    sess.Cleaning,
		Summary:     analysis.Summarize(sess.Clean),
		Correlation: analysis.Correlation(sess.Clean),
		Generated:   time.Now(),
	}
	for _, b := range sess.Charts() {
		d.Charts = append(d.Charts, b.Chart)
	}
	var buf bytes.Buffer
	if err := export.WriteDashboard(&buf, d); err != nil {
		s.log.Error("render report failed", "session", sess.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to generate PDF")
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="dashboard_summary.pdf"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}
