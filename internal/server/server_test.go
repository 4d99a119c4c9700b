package server

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/KaramelBytes/crosstab-cli/internal/pipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

const (
	responses = "QID,questions,choices,total,Male,Female\n" +
		"Q1,好きな色,A,15,10,5\n" +
		"Q1,好きな色,B,20,8,12\n" +
		"Q1,好きな色,全体,35,18,17\n"

	definitions = "## AREA 地区\n```yaml\nqid: AREA\nchoices:\n  1: 北\n  2: 南\n```\n" +
		"## SAT 満足度\n```yaml\nqid: SAT\nchoices:\n  1: 満足\n  2: 不満\n```\n"

	raw = "AREA,SAT\n1,1\n2,2\n2,1\n,1\n"
)

func newTestServer(maxMB int) *Server {
	return New(Config{MaxUploadMB: maxMB}, pipeline.New(pipeline.DefaultSettings(), nil), nil)
}

func upload(t *testing.T, target string, files map[string]string, values map[string]string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for field, content := range files {
		fw, err := mw.CreateFormFile(field, field+".csv")
		require.NoError(t, err)
		_, err = fw.Write([]byte(content))
		require.NoError(t, err)
	}
	for k, v := range values {
		require.NoError(t, mw.WriteField(k, v))
	}
	require.NoError(t, mw.Close())
	req := httptest.NewRequest(http.MethodPost, target, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func serve(s *Server, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	rec := serve(newTestServer(0), httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestChiSquare_JSONSparse(t *testing.T) {
	rec := serve(newTestServer(0), upload(t, "/api/chisq?mode=sparse", map[string]string{"file": responses}, nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get("X-Run-ID"))

	var got struct {
		Mode      string `json:"mode"`
		Questions []struct {
			QID    string   `json:"qid"`
			PValue *float64 `json:"p_value"`
			Mark   string   `json:"mark"`
		} `json:"questions"`
		Summary *struct {
			Rows [][]string `json:"rows"`
		} `json:"summary"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "sparse", got.Mode)
	require.Len(t, got.Questions, 1)
	require.NotNil(t, got.Questions[0].PValue)
	assert.InDelta(t, 0.2222, *got.Questions[0].PValue, 1e-3)
	require.NotNil(t, got.Summary)
	assert.Equal(t, "0.2222", got.Summary.Rows[0][2])
}

func TestChiSquare_CSV(t *testing.T) {
	rec := serve(newTestServer(0), upload(t, "/api/chisq?format=csv", map[string]string{"file": responses}, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte{0xEF, 0xBB, 0xBF}))
	assert.Contains(t, rec.Body.String(), "p値,有意水準")
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "cross_tab_results_")
}

func TestChiSquare_ErrorStatuses(t *testing.T) {
	s := newTestServer(0)

	rec := serve(s, upload(t, "/api/chisq", map[string]string{"file": "QID,questions,choices,total\nQ1,a,A,1\n"}, nil))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), `"error"`)

	rec = serve(s, upload(t, "/api/chisq", map[string]string{"other": responses}, nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(s, upload(t, "/api/chisq", map[string]string{"file": string([]byte{'Q', 0xFF, 0xFE, 0xFD})}, nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(s, upload(t, "/api/chisq?mode=wide", map[string]string{"file": responses}, nil))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestCrosstab_JSONAndXLSX(t *testing.T) {
	s := newTestServer(0)
	files := map[string]string{"data": raw, "definitions": definitions}
	values := map[string]string{"row": "AREA", "col": "SAT"}

	rec := serve(s, upload(t, "/api/crosstab", files, values))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var got struct {
		N      int `json:"n"`
		Counts struct {
			Index []string `json:"index"`
		} `json:"counts"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, 4, got.N)
	assert.Equal(t, []string{"No Answer", "北", "南", "Total"}, got.Counts.Index)

	rec = serve(s, upload(t, "/api/crosstab?format=xlsx", files, values))
	require.Equal(t, http.StatusOK, rec.Code)
	f, err := excelize.OpenReader(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, []string{"度数表", "構成比"}, f.GetSheetList())
}

func TestCrosstab_UnknownQuestion(t *testing.T) {
	rec := serve(newTestServer(0), upload(t, "/api/crosstab",
		map[string]string{"data": raw, "definitions": definitions},
		map[string]string{"row": "AREA", "col": "NOPE"}))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestQuestions(t *testing.T) {
	rec := serve(newTestServer(0), upload(t, "/api/questions", map[string]string{"definitions": definitions, "data": "SAT,OTHER\n1,2\n"}, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var got struct {
		Options []pipeline.Option `json:"options"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got.Options, 1)
	assert.Equal(t, "SAT: 満足度...", got.Options[0].Label)
}

func TestUploadLimit(t *testing.T) {
	big := responses + string(bytes.Repeat([]byte("Q9,x,A,1,1,1\n"), 100000))
	rec := serve(newTestServer(1), upload(t, "/api/chisq", map[string]string{"file": big}, nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
