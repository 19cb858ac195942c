package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/vantage/pkg/domain/model"
	"github.com/secmon-lab/vantage/pkg/domain/types"
	"github.com/secmon-lab/vantage/pkg/service/metrics"
	"github.com/secmon-lab/vantage/pkg/usecase"
)

const maxUploadSize = 32 << 20

// AgingRequest is the body of POST /api/aging
type AgingRequest struct {
	Records []model.DefectRecord `json:"records"`
	AsOf    types.Date           `json:"asOf"`
}

// VelocityRequest is the body of POST /api/velocity
type VelocityRequest struct {
	Events []model.BacklogEvent `json:"events"`
}

// VelocityResponse is the response of POST /api/velocity
type VelocityResponse struct {
	Series []model.BacklogPoint `json:"series"`
}

// NotifyRequest is the body of POST /api/datasets/{id}/notify
type NotifyRequest struct {
	Channel string `json:"channel"`
}

func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return goerr.Wrap(err, "invalid request body", goerr.T(model.ErrTagInvalidInput))
	}
	return nil
}

func (s *Server) handleAging(w http.ResponseWriter, r *http.Request) {
	var req AgingRequest
	if err := decodeJSON(r, &req); err != nil {
		handleError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, s.governance.Aging(r.Context(), req.Records, req.AsOf))
}

func (s *Server) handleVelocity(w http.ResponseWriter, r *http.Request) {
	var req VelocityRequest
	if err := decodeJSON(r, &req); err != nil {
		handleError(w, r, err)
		return
	}

	series, err := s.governance.Velocity(r.Context(), req.Events)
	if err != nil {
		handleError(w, r, err)
		return
	}
	if series == nil {
		series = []model.BacklogPoint{}
	}
	writeJSON(w, r, http.StatusOK, VelocityResponse{Series: series})
}

func (s *Server) handleImportDataset(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		handleError(w, r, goerr.Wrap(err, "invalid multipart form", goerr.T(model.ErrTagInvalidInput)))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		handleError(w, r, goerr.Wrap(err, "file is required", goerr.T(model.ErrTagInvalidInput)))
		return
	}
	defer file.Close()

	result, err := s.governance.ImportDataset(r.Context(), r.FormValue("name"), header.Filename, file)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, result)
}

func (s *Server) handleListDatasets(w http.ResponseWriter, r *http.Request) {
	infos, err := s.governance.ListDatasets(r.Context())
	if err != nil {
		handleError(w, r, err)
		return
	}
	if infos == nil {
		infos = []*model.DatasetInfo{}
	}
	writeJSON(w, r, http.StatusOK, map[string]any{"datasets": infos})
}

func (s *Server) handleGetDataset(w http.ResponseWriter, r *http.Request) {
	dataset, err := s.governance.GetDataset(r.Context(), datasetID(r))
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, dataset)
}

func (s *Server) handleDeleteDataset(w http.ResponseWriter, r *http.Request) {
	if err := s.governance.DeleteDataset(r.Context(), datasetID(r)); err != nil {
		handleError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	filter, asOf, err := parseReportQuery(r.URL.Query())
	if err != nil {
		handleError(w, r, err)
		return
	}

	report, err := s.governance.AnalyzeDataset(r.Context(), datasetID(r), filter, asOf)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, report)
}

func (s *Server) handleNotify(w http.ResponseWriter, r *http.Request) {
	if s.notify == nil || !s.notify.Enabled() {
		handleError(w, r, goerr.New("Slack is not configured", goerr.T(usecase.ErrTagSlackDisabled)))
		return
	}

	var req NotifyRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(r, &req); err != nil {
			handleError(w, r, err)
			return
		}
	}

	report, err := s.notify.NotifyDataset(r.Context(), types.ChannelID(req.Channel), datasetID(r), model.Filter{})
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]any{
		"datasetId": report.DatasetID,
		"verdict":   report.Summary.Verdict,
	})
}

// handleMetrics exposes the governance gauges of a dataset, the most recently imported one by default
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	id := types.DatasetID(r.URL.Query().Get("dataset"))
	if id == "" {
		infos, err := s.governance.ListDatasets(r.Context())
		if err != nil {
			handleError(w, r, err)
			return
		}
		if len(infos) == 0 {
			w.Header().Set("Content-Type", metrics.ContentType)
			w.WriteHeader(http.StatusOK)
			return
		}
		id = infos[0].ID
	}

	report, err := s.governance.AnalyzeDataset(r.Context(), id, model.Filter{}, types.Date{})
	if err != nil {
		handleError(w, r, err)
		return
	}

	var buf bytes.Buffer
	if err := metrics.Write(&buf, report); err != nil {
		handleError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", metrics.ContentType)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(buf.Bytes()); err != nil {
		ctxlog.From(r.Context()).Error("Failed to write metrics", "error", err)
	}
}

func datasetID(r *http.Request) types.DatasetID {
	return types.DatasetID(chi.URLParam(r, "id"))
}

// parseReportQuery reads report filters from query parameters. List parameters may be
// repeated or comma-separated.
func parseReportQuery(q url.Values) (model.Filter, types.Date, error) {
	var filter model.Filter

	dates := map[string]*types.Date{"from": &filter.From, "to": &filter.To}
	for key, dst := range dates {
		d, err := types.ParseDate(q.Get(key))
		if err != nil {
			return model.Filter{}, types.Date{}, goerr.Wrap(err, "invalid date parameter",
				goerr.T(model.ErrTagInvalidInput), goerr.V("param", key))
		}
		*dst = d
	}

	asOf, err := types.ParseDate(q.Get("as_of"))
	if err != nil {
		return model.Filter{}, types.Date{}, goerr.Wrap(err, "invalid date parameter",
			goerr.T(model.ErrTagInvalidInput), goerr.V("param", "as_of"))
	}

	filter.Statuses = splitValues(q["status"])
	filter.Severities = splitValues(q["severity"])
	for _, v := range splitValues(q["kpi"]) {
		filter.KPIStatuses = append(filter.KPIStatuses, types.ParseKPIStatus(v))
	}
	for _, v := range splitValues(q["id"]) {
		filter.DefectIDs = append(filter.DefectIDs, types.DefectID(v))
	}

	return filter, asOf, nil
}

func splitValues(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
