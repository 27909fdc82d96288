package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/AngelCh415/bidopt/internal/config"
	"github.com/AngelCh415/bidopt/internal/engine"
	"github.com/AngelCh415/bidopt/internal/ingest"
	"github.com/AngelCh415/bidopt/internal/metrics"
	"github.com/AngelCh415/bidopt/internal/models"
	"github.com/AngelCh415/bidopt/internal/report"
	"github.com/AngelCh415/bidopt/internal/store"
	"github.com/AngelCh415/bidopt/internal/utils"
)

type server struct {
	log   *slog.Logger
	cfg   config.Config
	eng   *engine.Engine
	st    *store.MemoryStore
	fetch *ingest.Fetcher
	m     *metrics.Collector
}

func NewRouter(log *slog.Logger, cfg config.Config, eng *engine.Engine, st *store.MemoryStore, fetch *ingest.Fetcher, m *metrics.Collector, metricsHandler http.Handler) http.Handler {
	s := &server{log: log, cfg: cfg, eng: eng, st: st, fetch: fetch, m: m}

	mux := chi.NewRouter()
	mux.Use(utils.RequestID)
	mux.Use(utils.Logger(log))

	mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); w.Write([]byte("ok")) })
	mux.Get("/readyz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); w.Write([]byte("ready")) })
	mux.Method(http.MethodGet, "/metrics", metricsHandler)

	mux.Post("/optimize/run", s.handleOptimize)
	mux.Get("/runs", s.handleListRuns)
	mux.Get("/runs/{id}/report", s.handleReport)

	return mux
}

type runResponse struct {
	RunID   string            `json:"run_id"`
	Summary models.RunSummary `json:"summary"`
}

func (s *server) handleOptimize(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/") {
		if err := r.ParseMultipartForm(s.cfg.MaxUploadBytes); err != nil {
			s.fail(w, http.StatusBadRequest, "parse upload: "+err.Error())
			return
		}
	}

	runCfg, err := s.runConfig(r)
	if err != nil {
		s.fail(w, http.StatusBadRequest, err.Error())
		return
	}

	internal, err := s.loadTable(r, "internal", "internal_url", ingest.ReadXLSX, s.fetch.FetchXLSX)
	if err != nil {
		s.fail(w, http.StatusBadRequest, "internal table: "+err.Error())
		return
	}
	advertiser, err := s.loadTable(r, "advertiser", "advertiser_url", ingest.ReadCSV, s.fetch.FetchCSV)
	if err != nil {
		s.fail(w, http.StatusBadRequest, "advertiser table: "+err.Error())
		return
	}

	rep, summary, err := s.eng.Run(r.Context(), internal, advertiser, runCfg)
	if err != nil {
		s.m.Runs.WithLabelValues("error").Inc()
		var cfgErr *models.ConfigurationError
		var colErr *engine.ColumnResolutionError
		switch {
		case errors.As(err, &cfgErr):
			s.fail(w, http.StatusBadRequest, err.Error())
		case errors.As(err, &colErr):
			s.fail(w, http.StatusUnprocessableEntity, err.Error())
		default:
			s.fail(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	artifact, err := report.Bytes(rep, report.Fills)
	if err != nil {
		s.m.Runs.WithLabelValues("error").Inc()
		s.fail(w, http.StatusInternalServerError, "build report: "+err.Error())
		return
	}

	run := store.Run{
		ID:        uuid.NewString(),
		CreatedAt: time.Now().UTC(),
		Summary:   *summary,
		Artifact:  artifact,
		Filename:  "optimization_results.xlsx",
	}
	s.st.Put(run)
	s.m.Runs.WithLabelValues("ok").Inc()
	s.m.Duration.Observe(time.Since(start).Seconds())

	writeJSON(w, http.StatusOK, runResponse{RunID: run.ID, Summary: *summary})
}

func (s *server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	type item struct {
		RunID     string            `json:"run_id"`
		CreatedAt time.Time         `json:"created_at"`
		Summary   models.RunSummary `json:"summary"`
	}
	runs := s.st.List()
	out := make([]item, 0, len(runs))
	for _, run := range runs {
		out = append(out, item{RunID: run.ID, CreatedAt: run.CreatedAt, Summary: run.Summary})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *server) handleReport(w http.ResponseWriter, r *http.Request) {
	run, ok := s.st.Get(chi.URLParam(r, "id"))
	if !ok {
		s.fail(w, http.StatusNotFound, "unknown run")
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="`+run.Filename+`"`)
	w.WriteHeader(http.StatusOK)
	w.Write(run.Artifact)
}

// runConfig assembles the per-run knobs from form/query params, falling
// back to the configured defaults. Targets and weight arrive as whole
// percents, the way operators type them.
func (s *server) runConfig(r *http.Request) (models.RunConfig, error) {
	d := s.cfg.Defaults

	mainCol, err := ingest.ColumnRef(param(r, "main_col", d.MainCol))
	if err != nil {
		return models.RunConfig{}, err
	}
	secCol, err := ingest.ColumnRef(param(r, "sec_col", d.SecCol))
	if err != nil {
		return models.RunConfig{}, err
	}
	mainTarget, err := paramFloat(r, "main_target", d.MainTarget)
	if err != nil {
		return models.RunConfig{}, err
	}
	secTarget, err := paramFloat(r, "sec_target", d.SecTarget)
	if err != nil {
		return models.RunConfig{}, err
	}
	mainWeight, err := paramFloat(r, "main_weight", d.MainWeight)
	if err != nil {
		return models.RunConfig{}, err
	}

	return models.RunConfig{
		PrimaryColumn:   mainCol,
		SecondaryColumn: secCol,
		TargetPrimary:   mainTarget / 100.0,
		TargetSecondary: secTarget / 100.0,
		WeightPrimary:   mainWeight / 100.0,
		WeightSecondary: (100.0 - mainWeight) / 100.0,
	}, nil
}

// loadTable reads a table from the uploaded file field, or from the *_url
// param when no file was sent.
func (s *server) loadTable(r *http.Request, fileField, urlField string,
	read func(io.Reader) (ingest.Table, error),
	fetch func(context.Context, string) (ingest.Table, error),
) (ingest.Table, error) {
	if r.MultipartForm != nil {
		if f, _, err := r.FormFile(fileField); err == nil {
			defer f.Close()
			return read(f)
		}
	}
	if url := param(r, urlField, ""); url != "" {
		return fetch(r.Context(), url)
	}
	return ingest.Table{}, errors.New("missing file upload and url")
}

func (s *server) fail(w http.ResponseWriter, code int, msg string) {
	s.log.Error("request failed", slog.Int("code", code), slog.String("err", msg))
	writeJSON(w, code, map[string]string{"error": msg})
}

func param(r *http.Request, name, def string) string {
	if v := strings.TrimSpace(r.FormValue(name)); v != "" {
		return v
	}
	return def
}

func paramFloat(r *http.Request, name string, def float64) (float64, error) {
	v := r.FormValue(name)
	if strings.TrimSpace(v) == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return 0, errors.New("bad " + name)
	}
	return f, nil
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	enc := json.NewEncoder(w)
	enc.SetIndent("", " ")
	enc.Encode(v)
}
