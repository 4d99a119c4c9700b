package server

import (
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"

	"github.com/KaramelBytes/crosstab-cli/internal/core"
	"github.com/KaramelBytes/crosstab-cli/internal/export"
	"github.com/KaramelBytes/crosstab-cli/internal/pipeline"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

const (
	contentJSON = "application/json; charset=utf-8"
	contentCSV  = "text/csv; charset=utf-8"
	contentXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

func (s *Server) handleChiSquare(w http.ResponseWriter, r *http.Request) {
	format := queryDefault(r, "format", "json")
	if format != "json" && format != "csv" {
		s.writeError(w, r, core.NewConfigError("unsupported format %q (want json or csv)", format))
		return
	}
	mode, err := pipeline.ParseMode(r.URL.Query().Get("mode"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.parseUpload(w, r); err != nil {
		s.writeError(w, r, err)
		return
	}
	src, err := formSource(r, "file", true)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	res, err := s.pipe.Run(pipeline.Input{Responses: src, Mode: mode})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("X-Run-ID", res.RunID)
	cs := res.ChiSquare
	if format == "csv" {
		b, err := export.CSV(cs.Annotated())
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		w.Header().Set("Content-Type", contentCSV)
		w.Header().Set("Content-Disposition", attachment(export.ResultsFileName(res.Started)))
		_, _ = w.Write(b)
		return
	}
	settings := s.pipe.Settings()
	writeJSON(w, http.StatusOK, export.NewChiSquareJSON(res.RunID, string(cs.Mode), cs.Report, cs.Summary, cs.Annotated(), settings.Untestable))
}

func (s *Server) handleCrosstab(w http.ResponseWriter, r *http.Request) {
	format := queryDefault(r, "format", "json")
	if format != "json" && format != "xlsx" {
		s.writeError(w, r, core.NewConfigError("unsupported format %q (want json or xlsx)", format))
		return
	}
	if err := s.parseUpload(w, r); err != nil {
		s.writeError(w, r, err)
		return
	}
	data, err := formSource(r, "data", true)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	defs, err := formSource(r, "definitions", true)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	row, col := r.FormValue("row"), r.FormValue("col")
	if row == "" || col == "" {
		s.writeError(w, r, core.NewConfigError("form values row and col are required"))
		return
	}
	res, err := s.pipe.Run(pipeline.Input{Raw: data, Definitions: defs, RowQID: row, ColQID: col})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("X-Run-ID", res.RunID)
	if format == "xlsx" {
		b, err := export.WorkbookBytes(res.Crosstab)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		w.Header().Set("Content-Type", contentXLSX)
		w.Header().Set("Content-Disposition", attachment(export.WorkbookFileName(row, col)))
		_, _ = w.Write(b)
		return
	}
	writeJSON(w, http.StatusOK, export.NewCrosstabJSON(res.Crosstab, res.RunID))
}

func (s *Server) handleQuestions(w http.ResponseWriter, r *http.Request) {
	if err := s.parseUpload(w, r); err != nil {
		s.writeError(w, r, err)
		return
	}
	defs, err := formSource(r, "definitions", true)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	data, err := formSource(r, "data", false)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	res, err := s.pipe.Run(pipeline.Input{Raw: data, Definitions: defs})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("X-Run-ID", res.RunID)
	writeJSON(w, http.StatusOK, map[string]any{"run_id": res.RunID, "options": res.Options})
}

func (s *Server) parseUpload(w http.ResponseWriter, r *http.Request) error {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)
	if err := r.ParseMultipartForm(s.maxUpload); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return core.NewInputError("upload exceeds %d bytes", tooLarge.Limit)
		}
		return core.NewInputError("invalid multipart upload: %v", err)
	}
	return nil
}

// formSource reads an uploaded file field. A missing optional field yields nil.
func formSource(r *http.Request, field string, required bool) (*pipeline.Source, error) {
	f, hdr, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		if required {
			return nil, core.NewInputError("missing upload field %q", field)
		}
		return nil, nil
	}
	if err != nil {
		return nil, core.NewInputError("read upload %q: %v", field, err)
	}
	defer f.Close()
	return readSource(f, hdr)
}

func readSource(f multipart.File, hdr *multipart.FileHeader) (*pipeline.Source, error) {
	b, err := io.ReadAll(f)
	if err != nil {
		return nil, core.NewInputError("read upload %s: %v", hdr.Filename, err)
	}
	return &pipeline.Source{Name: filepath.Base(hdr.Filename), Data: b}, nil
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	fields := []zap.Field{
		zap.String("request_id", middleware.GetReqID(r.Context())),
		zap.Int("status", status),
		zap.Error(err),
	}
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", fields...)
	} else {
		s.logger.Warn("request rejected", fields...)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", contentJSON)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func queryDefault(r *http.Request, key, def string) string {
	if v := r.URL.Query().Get(key); v != "" {
		return v
	}
	return def
}

func attachment(name string) string {
	return `attachment; filename="` + name + `"`
}
