package http

import (
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"finops/internal/config"
	apierrors "finops/internal/errors"
)

// FileInfo describes one downloadable artefact
type FileInfo struct {
	Name     string    `json:"name"`
	Kind     string    `json:"kind"`
	Size     int64     `json:"size"`
	Modified time.Time `json:"modified"`
	URL      string    `json:"url"`
}

// FilesHandler lists and serves the files the pipelines write. Only known
// outputs and PNGs in the images directory are reachable.
type FilesHandler struct {
	paths        *config.Paths
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewFilesHandler creates a new files handler
func NewFilesHandler(paths *config.Paths, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *FilesHandler {
	return &FilesHandler{
		paths:        paths,
		logger:       logger.With(slog.String("component", "files_handler")),
		errorHandler: errorHandler,
	}
}

// Routes mounts under /api/files
func (h *FilesHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.ListFiles)
	r.Get("/{name}", h.DownloadFile)
	return r
}

func (h *FilesHandler) outputs() []string {
	p := h.paths
	return []string{
		p.DimDateCSV, p.DimDepartmentCSV, p.DimRegionCSV, p.FactFinancialsCSV, p.FactOperationsCSV,
		p.FinancialsAnalyticalCSV, p.OperationsAnalyticalCSV, p.CombinedMonthlyCSV, p.FinanceWorkbook,
		p.SalesProcessedCSV, p.SalesReportWorkbook,
		p.FinancialProcessedCSV, p.ForecastResultsCSV,
	}
}

// resolve maps a public file name to its path on disk
func (h *FilesHandler) resolve(name string) (string, bool) {
	if name == "" || name != filepath.Base(name) || strings.Contains(name, "..") {
		return "", false
	}
	for _, path := range h.outputs() {
		if filepath.Base(path) == name {
			return path, true
		}
	}
	if strings.EqualFold(filepath.Ext(name), ".png") {
		return filepath.Join(h.paths.ImagesDir, name), true
	}
	return "", false
}

func fileKind(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv":
		return "csv"
	case ".xlsx":
		return "excel"
	case ".png":
		return "chart"
	default:
		return "other"
	}
}

// ListFiles handles GET /api/files
func (h *FilesHandler) ListFiles(w http.ResponseWriter, r *http.Request) {
	candidates := h.outputs()
	if entries, err := os.ReadDir(h.paths.ImagesDir); err == nil {
		for _, e := range entries {
			if !e.IsDir() && strings.EqualFold(filepath.Ext(e.Name()), ".png") {
				candidates = append(candidates, filepath.Join(h.paths.ImagesDir, e.Name()))
			}
		}
	}

	files := make([]FileInfo, 0, len(candidates))
	for _, path := range candidates {
		st, err := os.Stat(path)
		if err != nil || st.IsDir() {
			continue
		}
		name := filepath.Base(path)
		files = append(files, FileInfo{
			Name:     name,
			Kind:     fileKind(name),
			Size:     st.Size(),
			Modified: st.ModTime(),
			URL:      "/api/files/" + name,
		})
	}
	sort.Slice(files, func(i, j int) bool {
		if files[i].Kind != files[j].Kind {
			return files[i].Kind < files[j].Kind
		}
		return files[i].Name < files[j].Name
	})

	render.JSON(w, r, map[string]any{"files": files})
}

// DownloadFile handles GET /api/files/{name}
func (h *FilesHandler) DownloadFile(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	reqID := middleware.GetReqID(r.Context())

	path, ok := h.resolve(name)
	if !ok {
		h.errorHandler.HandleError(w, r, apierrors.InvalidParameter("name", name))
		return
	}

	f, err := os.Open(path)
	if err != nil {
		h.logger.WarnContext(r.Context(), "requested file not available",
			slog.String("request_id", reqID),
			slog.String("file", name),
			slog.String("error", err.Error()))
		h.errorHandler.HandleError(w, r, apierrors.NotFoundError("file "+name))
		return
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	switch fileKind(name) {
	case "csv":
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	case "excel":
		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	}

	h.logger.InfoContext(r.Context(), "serving file",
		slog.String("request_id", reqID),
		slog.String("file", name),
		slog.Int64("size", st.Size()))
	http.ServeContent(w, r, name, st.ModTime(), f)
}
