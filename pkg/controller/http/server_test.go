package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gt"
	controller "github.com/secmon-lab/vantage/pkg/controller/http"
	"github.com/secmon-lab/vantage/pkg/domain/interfaces/mocks"
	"github.com/secmon-lab/vantage/pkg/domain/model"
	"github.com/secmon-lab/vantage/pkg/domain/types"
	"github.com/secmon-lab/vantage/pkg/repository"
	"github.com/secmon-lab/vantage/pkg/usecase"
	"github.com/slack-go/slack"
)

const releaseCSV = `Defect_ID,Discovery_Date,Closed_Date,Status,Severity,App_Area,Root_Cause,Fix_Cost
D1,2026-02-02,2026-02-05,Closed,High,Billing,Config,1000
D2,2026-02-04,,Created,Critical,Search,Code,500
`

func newTestServer(t *testing.T, notify func(g *usecase.Governance) *usecase.Notify) (*controller.Server, *usecase.Governance) {
	ctx := ctxlog.With(context.Background(), slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)))
	g, err := usecase.NewGovernance(repository.NewMemory(), nil, usecase.WithClock(func() time.Time {
		return time.Date(2026, 2, 13, 9, 30, 0, 0, time.UTC)
	}))
	gt.NoError(t, err)

	var n *usecase.Notify
	if notify != nil {
		n = notify(g)
	}
	return controller.NewServer(ctx, ":0", g, n, nil), g
}

func doRequest(s *controller.Server, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.Handler.ServeHTTP(rec, req)
	return rec
}

func uploadDataset(t *testing.T, s *controller.Server, name, csv string) model.DatasetInfo {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", "release.csv")
	gt.NoError(t, err)
	_, err = fw.Write([]byte(csv))
	gt.NoError(t, err)
	gt.NoError(t, mw.WriteField("name", name))
	gt.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/datasets", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := doRequest(s, req)
	gt.Equal(t, rec.Code, http.StatusCreated)

	var result usecase.ImportResult
	gt.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	return result.Dataset
}

func TestHealth(t *testing.T) {
	s, _ := newTestServer(t, nil)

	rec := doRequest(s, httptest.NewRequest(http.MethodGet, "/health", nil))
	gt.Equal(t, rec.Code, http.StatusOK)

	var body map[string]string
	gt.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	gt.Equal(t, body["status"], "healthy")
	gt.Equal(t, body["service"], "vantage")
}

func TestAging(t *testing.T) {
	s, _ := newTestServer(t, nil)

	t.Run("ages inline records", func(t *testing.T) {
		body := `{"asOf":"2026-02-13","records":[
			{"id":"D1","discoveryDate":"2026-02-02","closedDate":"2026-02-05"},
			{"id":"D2","discoveryDate":"2026-02-04"},
			{"id":"D3","discoveryDate":"2026-02-10","closedDate":"2026-02-09"}
		]}`
		rec := doRequest(s, httptest.NewRequest(http.MethodPost, "/api/aging", strings.NewReader(body)))
		gt.Equal(t, rec.Code, http.StatusOK)

		var resp usecase.AgingResponse
		gt.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		gt.Equal(t, resp.AsOf.String(), "2026-02-13")
		gt.Equal(t, len(resp.Results), 2)
		gt.Equal(t, resp.Results[0].Days, 3)
		gt.Equal(t, resp.Results[0].KPIStatus, types.KPIMet)
		gt.Equal(t, resp.Results[1].Days, 7)
		gt.Equal(t, resp.Results[1].KPIStatus, types.KPIBreached)
		gt.Equal(t, len(resp.Invalid), 1)
		gt.Equal(t, resp.Invalid[0].Reason, model.ReasonClosedBeforeDiscovery)
	})

	t.Run("rejects malformed body", func(t *testing.T) {
		rec := doRequest(s, httptest.NewRequest(http.MethodPost, "/api/aging", strings.NewReader(`{"records":`)))
		gt.Equal(t, rec.Code, http.StatusBadRequest)
	})
}

func TestVelocity(t *testing.T) {
	s, _ := newTestServer(t, nil)

	t.Run("aggregates events in period order", func(t *testing.T) {
		body := `{"events":[
			{"period":"2026-W07","type":"created"},
			{"period":"2026-W06","type":"created"},
			{"period":"2026-W06","type":"created"},
			{"period":"2026-W07","type":"closed"},
			{"period":"2026-W08","type":"other"}
		]}`
		rec := doRequest(s, httptest.NewRequest(http.MethodPost, "/api/velocity", strings.NewReader(body)))
		gt.Equal(t, rec.Code, http.StatusOK)

		var resp controller.VelocityResponse
		gt.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		gt.Equal(t, len(resp.Series), 3)
		gt.Equal(t, resp.Series[0].Period, "2026-W06")
		gt.Equal(t, resp.Series[0].NetBacklog, 2)
		gt.Equal(t, resp.Series[1].NetBacklog, 2)
		gt.Equal(t, resp.Series[2].Period, "2026-W08")
		gt.Equal(t, resp.Series[2].NetBacklog, 2)
	})

	t.Run("empty input yields empty series", func(t *testing.T) {
		rec := doRequest(s, httptest.NewRequest(http.MethodPost, "/api/velocity", strings.NewReader(`{"events":[]}`)))
		gt.Equal(t, rec.Code, http.StatusOK)
		gt.S(t, rec.Body.String()).Contains(`"series":[]`)
	})

	t.Run("unknown event type counts as other", func(t *testing.T) {
		body := `{"events":[
			{"period":"2026-W06","type":"Created"},
			{"period":"2026-W07","type":"Reopened"}
		]}`
		rec := doRequest(s, httptest.NewRequest(http.MethodPost, "/api/velocity", strings.NewReader(body)))
		gt.Equal(t, rec.Code, http.StatusOK)

		var resp controller.VelocityResponse
		gt.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		gt.Equal(t, len(resp.Series), 2)
		gt.Equal(t, resp.Series[0].Inflow, 1)
		gt.Equal(t, resp.Series[1].Period, "2026-W07")
		gt.Equal(t, resp.Series[1].Inflow, 0)
		gt.Equal(t, resp.Series[1].Outflow, 0)
		gt.Equal(t, resp.Series[1].NetBacklog, 1)
	})

	t.Run("empty period is rejected", func(t *testing.T) {
		body := `{"events":[{"period":"","type":"created"}]}`
		rec := doRequest(s, httptest.NewRequest(http.MethodPost, "/api/velocity", strings.NewReader(body)))
		gt.Equal(t, rec.Code, http.StatusBadRequest)
	})
}

func TestDatasets(t *testing.T) {
	s, _ := newTestServer(t, nil)
	info := uploadDataset(t, s, "Release 4.2", releaseCSV)
	gt.Equal(t, info.Name, "Release 4.2")
	gt.Equal(t, info.RecordCount, 2)

	t.Run("list", func(t *testing.T) {
		rec := doRequest(s, httptest.NewRequest(http.MethodGet, "/api/datasets", nil))
		gt.Equal(t, rec.Code, http.StatusOK)

		var resp struct {
			Datasets []model.DatasetInfo `json:"datasets"`
		}
		gt.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		gt.Equal(t, len(resp.Datasets), 1)
		gt.Equal(t, resp.Datasets[0].ID, info.ID)
	})

	t.Run("get", func(t *testing.T) {
		rec := doRequest(s, httptest.NewRequest(http.MethodGet, "/api/datasets/"+info.ID.String(), nil))
		gt.Equal(t, rec.Code, http.StatusOK)

		var dataset model.Dataset
		gt.NoError(t, json.Unmarshal(rec.Body.Bytes(), &dataset))
		gt.Equal(t, len(dataset.Records), 2)
		gt.Equal(t, dataset.Records[1].ID, types.DefectID("D2"))
	})

	t.Run("get unknown dataset", func(t *testing.T) {
		rec := doRequest(s, httptest.NewRequest(http.MethodGet, "/api/datasets/missing", nil))
		gt.Equal(t, rec.Code, http.StatusNotFound)
	})

	t.Run("upload without file", func(t *testing.T) {
		var body bytes.Buffer
		mw := multipart.NewWriter(&body)
		gt.NoError(t, mw.WriteField("name", "empty"))
		gt.NoError(t, mw.Close())

		req := httptest.NewRequest(http.MethodPost, "/api/datasets", &body)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		rec := doRequest(s, req)
		gt.Equal(t, rec.Code, http.StatusBadRequest)
	})

	t.Run("delete", func(t *testing.T) {
		other := uploadDataset(t, s, "scratch", releaseCSV)
		rec := doRequest(s, httptest.NewRequest(http.MethodDelete, "/api/datasets/"+other.ID.String(), nil))
		gt.Equal(t, rec.Code, http.StatusNoContent)

		rec = doRequest(s, httptest.NewRequest(http.MethodDelete, "/api/datasets/"+other.ID.String(), nil))
		gt.Equal(t, rec.Code, http.StatusNotFound)
	})
}

func TestReport(t *testing.T) {
	s, _ := newTestServer(t, nil)
	info := uploadDataset(t, s, "Release 4.2", releaseCSV)
	path := "/api/datasets/" + info.ID.String() + "/report"

	t.Run("full report", func(t *testing.T) {
		rec := doRequest(s, httptest.NewRequest(http.MethodGet, path, nil))
		gt.Equal(t, rec.Code, http.StatusOK)

		var report model.Report
		gt.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
		gt.Equal(t, report.DatasetID, info.ID)
		gt.Equal(t, report.AsOf.String(), "2026-02-13")
		gt.Equal(t, len(report.Rows), 2)
		gt.Equal(t, report.Summary.KPIMetPct, 50.0)
		gt.Equal(t, report.Summary.Verdict, types.VerdictHold)
	})

	t.Run("filters by KPI status", func(t *testing.T) {
		rec := doRequest(s, httptest.NewRequest(http.MethodGet, path+"?kpi=Breached", nil))
		gt.Equal(t, rec.Code, http.StatusOK)

		var report model.Report
		gt.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
		gt.Equal(t, len(report.Rows), 1)
		gt.Equal(t, report.Rows[0].ID, types.DefectID("D2"))
	})

	t.Run("comma separated and repeated values", func(t *testing.T) {
		rec := doRequest(s, httptest.NewRequest(http.MethodGet, path+"?severity=critical,low&id=D1&id=D2", nil))
		gt.Equal(t, rec.Code, http.StatusOK)

		var report model.Report
		gt.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
		gt.Equal(t, len(report.Rows), 1)
		gt.Equal(t, report.Rows[0].ID, types.DefectID("D2"))
	})

	t.Run("explicit as-of", func(t *testing.T) {
		rec := doRequest(s, httptest.NewRequest(http.MethodGet, path+"?as_of=2026-02-06", nil))
		gt.Equal(t, rec.Code, http.StatusOK)

		var report model.Report
		gt.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
		gt.Equal(t, report.AsOf.String(), "2026-02-06")
		gt.Equal(t, report.Rows[1].AgingDays, 2)
	})

	t.Run("invalid date", func(t *testing.T) {
		rec := doRequest(s, httptest.NewRequest(http.MethodGet, path+"?from=02/01/2026", nil))
		gt.Equal(t, rec.Code, http.StatusBadRequest)
	})

	t.Run("inverted range", func(t *testing.T) {
		rec := doRequest(s, httptest.NewRequest(http.MethodGet, path+"?from=2026-03-01&to=2026-02-01", nil))
		gt.Equal(t, rec.Code, http.StatusBadRequest)
	})

	t.Run("invalid KPI status", func(t *testing.T) {
		rec := doRequest(s, httptest.NewRequest(http.MethodGet, path+"?kpi=Late", nil))
		gt.Equal(t, rec.Code, http.StatusBadRequest)
	})

	t.Run("unknown dataset", func(t *testing.T) {
		rec := doRequest(s, httptest.NewRequest(http.MethodGet, "/api/datasets/missing/report", nil))
		gt.Equal(t, rec.Code, http.StatusNotFound)
	})
}

func TestNotify(t *testing.T) {
	t.Run("Slack not configured", func(t *testing.T) {
		s, _ := newTestServer(t, nil)
		info := uploadDataset(t, s, "Release 4.2", releaseCSV)

		req := httptest.NewRequest(http.MethodPost, "/api/datasets/"+info.ID.String()+"/notify",
			strings.NewReader(`{"channel":"C123"}`))
		rec := doRequest(s, req)
		gt.Equal(t, rec.Code, http.StatusServiceUnavailable)
	})

	t.Run("posts summary", func(t *testing.T) {
		slackMock := &mocks.SlackClientMock{
			PostMessageFunc: func(ctx context.Context, channelID string, options ...slack.MsgOption) (string, string, error) {
				return channelID, "1234567890.123456", nil
			},
		}
		s, _ := newTestServer(t, func(g *usecase.Governance) *usecase.Notify {
			return usecase.NewNotify(g, slackMock)
		})
		info := uploadDataset(t, s, "Release 4.2", releaseCSV)

		req := httptest.NewRequest(http.MethodPost, "/api/datasets/"+info.ID.String()+"/notify",
			strings.NewReader(`{"channel":"C123"}`))
		rec := doRequest(s, req)
		gt.Equal(t, rec.Code, http.StatusOK)
		gt.S(t, rec.Body.String()).Contains(`"verdict":"HOLD"`)

		calls := slackMock.PostMessageCalls()
		gt.Equal(t, len(calls), 1)
		gt.Equal(t, calls[0].ChannelID, "C123")
	})

	t.Run("channel required without default", func(t *testing.T) {
		slackMock := &mocks.SlackClientMock{}
		s, _ := newTestServer(t, func(g *usecase.Governance) *usecase.Notify {
			return usecase.NewNotify(g, slackMock)
		})
		info := uploadDataset(t, s, "Release 4.2", releaseCSV)

		rec := doRequest(s, httptest.NewRequest(http.MethodPost, "/api/datasets/"+info.ID.String()+"/notify", nil))
		gt.Equal(t, rec.Code, http.StatusBadRequest)
		gt.Equal(t, len(slackMock.PostMessageCalls()), 0)
	})
}

func TestMetrics(t *testing.T) {
	t.Run("no dataset", func(t *testing.T) {
		s, _ := newTestServer(t, nil)
		rec := doRequest(s, httptest.NewRequest(http.MethodGet, "/metrics", nil))
		gt.Equal(t, rec.Code, http.StatusOK)
		gt.Equal(t, rec.Body.Len(), 0)
	})

	t.Run("latest dataset by default", func(t *testing.T) {
		s, _ := newTestServer(t, nil)
		info := uploadDataset(t, s, "Release 4.2", releaseCSV)

		rec := doRequest(s, httptest.NewRequest(http.MethodGet, "/metrics", nil))
		gt.Equal(t, rec.Code, http.StatusOK)
		gt.S(t, rec.Header().Get("Content-Type")).Contains("text/plain")
		gt.S(t, rec.Body.String()).Contains("vantage_defects{")
		gt.S(t, rec.Body.String()).Contains(info.ID.String())
	})

	t.Run("unknown dataset", func(t *testing.T) {
		s, _ := newTestServer(t, nil)
		rec := doRequest(s, httptest.NewRequest(http.MethodGet, "/metrics?dataset=missing", nil))
		gt.Equal(t, rec.Code, http.StatusNotFound)
	})
}

func TestRepositoryFailure(t *testing.T) {
	repo := &mocks.RepositoryMock{
		ListDatasetsFunc: func(ctx context.Context) ([]*model.DatasetInfo, error) {
			return nil, goerr.New("firestore unavailable")
		},
		PutDatasetFunc: func(ctx context.Context, dataset *model.Dataset) error {
			return goerr.New("firestore unavailable")
		},
	}
	g, err := usecase.NewGovernance(repo, nil)
	gt.NoError(t, err)
	s := controller.NewServer(context.Background(), ":0", g, nil, nil)

	t.Run("list", func(t *testing.T) {
		rec := doRequest(s, httptest.NewRequest(http.MethodGet, "/api/datasets", nil))
		gt.Equal(t, rec.Code, http.StatusInternalServerError)
		gt.S(t, rec.Body.String()).Contains("error")
	})

	t.Run("metrics", func(t *testing.T) {
		rec := doRequest(s, httptest.NewRequest(http.MethodGet, "/metrics", nil))
		gt.Equal(t, rec.Code, http.StatusInternalServerError)
	})

	t.Run("import", func(t *testing.T) {
		var body bytes.Buffer
		mw := multipart.NewWriter(&body)
		fw, err := mw.CreateFormFile("file", "release.csv")
		gt.NoError(t, err)
		_, err = fw.Write([]byte(releaseCSV))
		gt.NoError(t, err)
		gt.NoError(t, mw.Close())

		req := httptest.NewRequest(http.MethodPost, "/api/datasets", &body)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		rec := doRequest(s, req)
		gt.Equal(t, rec.Code, http.StatusInternalServerError)
		gt.Equal(t, len(repo.PutDatasetCalls()), 1)
	})
}
