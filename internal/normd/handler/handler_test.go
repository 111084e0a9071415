package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/lexstat/pivotnorm/internal/eval"
	"github.com/lexstat/pivotnorm/internal/normd"
	"github.com/lexstat/pivotnorm/internal/weighting"
)

func newTestHandler() *Handler {
	sweeper := eval.NewSweeper(
		func() eval.Classifier { return normd.NewCentroidClassifier() },
		weighting.AutoPivot(),
		2,
	)
	service := normd.New(nil, nil, sweeper, nil, 2)
	return New(service, nil, nil)
}

func postJSON(t *testing.T, handlerFn http.HandlerFunc, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handlerFn(rec, req)
	return rec
}

func TestFitTransformRoundTrip(t *testing.T) {
	h := newTestHandler()

	rec := postJSON(t, h.Fit, `{
		"corpus": [{"0": 2, "1": 1}, {"0": 1, "2": 3}, {"1": 1, "2": 1}],
		"params": {"pivot": "auto", "slope": 1}
	}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("fit status = %d, body %s", rec.Code, rec.Body)
	}
	var summary normd.ModelSummary
	if err := json.Unmarshal(rec.Body.Bytes(), &summary); err != nil {
		t.Fatalf("decoding fit response: %v", err)
	}
	if summary.NumDocs != 3 || summary.AvgDocLength != 3.0 {
		t.Fatalf("summary = %+v", summary)
	}

	rec = postJSON(t, h.Transform, `{"documents": [{"0": 2, "1": 1}]}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("transform status = %d, body %s", rec.Code, rec.Body)
	}
	var resp struct {
		Vectors []weighting.WeightVector `json:"vectors"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding transform response: %v", err)
	}
	if len(resp.Vectors) != 1 {
		t.Fatalf("vectors = %d, want 1", len(resp.Vectors))
	}
	if n := resp.Vectors[0].Norm(); n < 0.9999 || n > 1.0001 {
		t.Fatalf("slope-1 vector norm = %v, want 1", n)
	}
}

func TestTransformBeforeFitConflict(t *testing.T) {
	h := newTestHandler()
	rec := postJSON(t, h.Transform, `{"documents": [{"0": 1}]}`)
	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409; body %s", rec.Code, rec.Body)
	}
}

func TestFitRejectsUnknownParam(t *testing.T) {
	h := newTestHandler()
	rec := postJSON(t, h.Fit, `{
		"corpus": [{"0": 1}],
		"params": {"pivot": "auto", "slope": 1, "gamma": 2}
	}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400; body %s", rec.Code, rec.Body)
	}
}

func TestFitRejectsEmptyCorpus(t *testing.T) {
	h := newTestHandler()
	rec := postJSON(t, h.Fit, `{"corpus": [], "params": {}}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400; body %s", rec.Code, rec.Body)
	}
}

func TestBiasEndpoint(t *testing.T) {
	h := newTestHandler()
	rec := postJSON(t, h.Bias, `{
		"scores": [0.1, 0.9, 0.5, -0.2],
		"lengths": [100, 50, 75, 200],
		"k": 2,
		"direction": "ascending"
	}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
	var report eval.BiasReport
	if err := json.Unmarshal(rec.Body.Bytes(), &report); err != nil {
		t.Fatalf("decoding bias response: %v", err)
	}
	if report.TopKMeanLength != 150 || report.CorpusMeanLength != 106.25 {
		t.Fatalf("report = %+v", report)
	}

	rec = postJSON(t, h.Bias, `{"scores": [1], "lengths": [1, 2], "k": 1}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("mismatched lengths status = %d, want 400", rec.Code)
	}

	rec = postJSON(t, h.Bias, `{"scores": [1], "lengths": [1], "k": 1, "direction": "sideways"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad direction status = %d, want 400", rec.Code)
	}
}

func TestSweepEndpoint(t *testing.T) {
	h := newTestHandler()
	rec := postJSON(t, h.Sweep, `{
		"train": [{"0": 3, "1": 1}, {"0": 2, "1": 1}, {"2": 3, "3": 1}, {"2": 2, "3": 2}],
		"train_labels": [0, 0, 1, 1],
		"test": [{"0": 2, "1": 1}, {"2": 2, "3": 1}],
		"test_labels": [0, 1],
		"vocab_size": 4,
		"slopes": [0, 0.5, 1]
	}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
	var report eval.SweepReport
	if err := json.Unmarshal(rec.Body.Bytes(), &report); err != nil {
		t.Fatalf("decoding sweep response: %v", err)
	}
	if report.Best.Accuracy != 1.0 {
		t.Fatalf("best accuracy = %v, want 1.0", report.Best.Accuracy)
	}
}

func TestModelEndpointBeforeFit(t *testing.T) {
	h := newTestHandler()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/model", nil)
	rec := httptest.NewRecorder()
	h.Model(rec, req)
	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", rec.Code)
	}
}
