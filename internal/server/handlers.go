package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/KaramelBytes/segmenta/internal/apperr"
	"github.com/KaramelBytes/segmenta/internal/export"
	"github.com/KaramelBytes/segmenta/internal/pipeline"
	"github.com/KaramelBytes/segmenta/internal/session"
)

var allowedExt = map[string]bool{".csv": true, ".tsv": true, ".xlsx": true}

func (s *Server) handleRoot(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "segmenta API ready"})
}

func (s *Server) handleSession(w http.ResponseWriter, _ *http.Request) {
	slot := s.store.Open("")
	writeJSON(w, http.StatusOK, map[string]string{"session_id": slot.ID()})
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	// Multipart framing adds a little on top of the file itself.
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload+1<<20)
	file, hdr, err := r.FormFile("file")
	if err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			s.writeError(w, r, apperr.New(apperr.ErrBadRequest, "upload", "file too large; maximum size is %dMB", s.maxUpload>>20))
			return
		}
		s.writeError(w, r, apperr.Wrap(apperr.ErrBadRequest, "upload", fmt.Errorf("read form file: %w", err)))
		return
	}
	defer file.Close()

	name := filepath.Base(hdr.Filename)
	if !allowedExt[strings.ToLower(filepath.Ext(name))] {
		s.writeError(w, r, apperr.New(apperr.ErrFormat, "upload", "invalid file type %q; only .csv, .tsv and .xlsx are supported", filepath.Ext(name)))
		return
	}
	content, err := io.ReadAll(io.LimitReader(file, s.maxUpload+1))
	if err != nil {
		s.writeError(w, r, apperr.Wrap(apperr.ErrBadRequest, "upload", err))
		return
	}
	if int64(len(content)) > s.maxUpload {
		s.writeError(w, r, apperr.New(apperr.ErrBadRequest, "upload", "file too large; maximum size is %dMB", s.maxUpload>>20))
		return
	}

	slot := s.store.Open(r.Header.Get(SessionHeader))
	var res *pipeline.LoadResult
	err = slot.Do(func(st *session.State) error {
		res, err = s.pipe.Load(st, name, content, r.FormValue("sheet_name"))
		return err
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":     "success",
		"session_id": slot.ID(),
		"filename":   res.Filename,
		"sheet":      res.Sheet,
		"data":       res.Description,
		"has_sheets": res.HasSheets,
	})
}

// withSession resolves the header's session and runs fn holding its lock.
func (s *Server) withSession(w http.ResponseWriter, r *http.Request, fn func(*session.State) error) bool {
	id := r.Header.Get(SessionHeader)
	if id == "" {
		s.writeError(w, r, apperr.New(apperr.ErrBadRequest, "session", "missing %s header", SessionHeader))
		return false
	}
	slot, err := s.store.Get(id)
	if err != nil {
		s.writeError(w, r, err)
		return false
	}
	if err := slot.Do(fn); err != nil {
		s.writeError(w, r, err)
		return false
	}
	return true
}

func (s *Server) handleSelectSheet(w http.ResponseWriter, r *http.Request) {
	sheet := r.URL.Query().Get("sheet_name")
	var res *pipeline.LoadResult
	ok := s.withSession(w, r, func(st *session.State) error {
		if st.Upload != nil && !strings.HasSuffix(strings.ToLower(st.Upload.Filename), ".xlsx") {
			return apperr.New(apperr.ErrBadRequest, "select-sheet", "sheet selection is only available for .xlsx files")
		}
		var err error
		res, err = s.pipe.SelectSheet(st, sheet)
		return err
	})
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":     "success",
		"sheet_name": res.Sheet,
		"data":       res.Description,
	})
}

func (s *Server) handleSheets(w http.ResponseWriter, r *http.Request) {
	var sheets any
	ok := s.withSession(w, r, func(st *session.State) error {
		info, err := s.pipe.Sheets(st)
		sheets = info
		return err
	})
	if ok {
		writeJSON(w, http.StatusOK, map[string]any{"status": "success", "sheets": sheets})
	}
}

// decodeBody reads an optional JSON body; an empty body leaves v untouched.
func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return apperr.Wrap(apperr.ErrBadRequest, "decode", err)
	}
	return nil
}

func (s *Server) handlePreprocess(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SelectedColumns []string `json:"selected_columns"`
	}
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	var rep any
	ok := s.withSession(w, r, func(st *session.State) error {
		out, err := s.pipe.Preprocess(st, req.SelectedColumns)
		rep = out
		return err
	})
	if ok {
		writeJSON(w, http.StatusOK, map[string]any{"status": "success", "processed_data": rep})
	}
}

func (s *Server) handleKMeans(w http.ResponseWriter, r *http.Request) {
	var req pipeline.KRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	var res *pipeline.KMeansResult
	ok := s.withSession(w, r, func(st *session.State) error {
		var err error
		res, err = s.pipe.KMeans(st, req)
		return err
	})
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":     "success",
		"k_info":     export.KInfoOf(&res.KInfo),
		"fit_info":   export.FitInfoOf(res.FitInfo),
		"clustering": export.ClusteringOf(res.Clustering),
		"statistics": export.Statistics(res.Statistics),
	})
}

func (s *Server) handleConclusion(w http.ResponseWriter, r *http.Request) {
	var sum any
	ok := s.withSession(w, r, func(st *session.State) error {
		out, err := s.pipe.Conclude(st)
		sum = out
		return err
	})
	if ok {
		writeJSON(w, http.StatusOK, map[string]any{"status": "success", "conclusions": sum})
	}
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	format := strings.ToLower(r.URL.Query().Get("format"))
	if format == "" {
		format = export.FormatJSON
	}
	switch format {
	case export.FormatJSON, export.FormatCSV, export.FormatYAML:
	default:
		s.writeError(w, r, apperr.New(apperr.ErrBadRequest, "export", "unsupported format %q", format))
		return
	}
	var rep *export.Report
	ok := s.withSession(w, r, func(st *session.State) error {
		var err error
		rep, err = s.pipe.Export(st)
		return err
	})
	if !ok {
		return
	}
	w.Header().Set("Content-Type", export.ContentType(format))
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="clusters.%s"`, format))
	if err := export.Write(w, format, rep); err != nil {
		s.logger.Error("export write failed", "error", err)
	}
}

func (s *Server) handlePersist(w http.ResponseWriter, r *http.Request) {
	var req struct {
		IDColumn string `json:"id_column"`
		Key      string `json:"key"`
	}
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if s.persister == nil {
		s.writeError(w, r, apperr.New(apperr.ErrPersistence, "persist", "persistence is not configured"))
		return
	}
	var rows int
	ok := s.withSession(w, r, func(st *session.State) error {
		pairs, err := s.pipe.Assignments(st, req.IDColumn)
		if err != nil {
			return err
		}
		rows, err = s.persister.Save(r.Context(), req.Key, pairs)
		return err
	})
	if ok {
		writeJSON(w, http.StatusOK, map[string]any{"status": "success", "key": req.Key, "rows": rows})
	}
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	id := r.Header.Get(SessionHeader)
	if id == "" {
		s.writeError(w, r, apperr.New(apperr.ErrBadRequest, "session", "missing %s header", SessionHeader))
		return
	}
	if err := s.store.Clear(id); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset successful", "session_id": id})
}
