package http

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/aukilabs/sowilo/sim"
	"github.com/segmentio/encoding/json"
	"github.com/stretchr/testify/require"
)

type reportSource struct {
	report *sim.FrameReport
}

func (s reportSource) LastReport() (sim.FrameReport, bool) {
	if s.report == nil {
		return sim.FrameReport{}, false
	}
	return *s.report, true
}

func TestHandleReadyCheck(t *testing.T) {
	ready := false
	h := HandleReadyCheck(func() bool { return ready })

	w := httptest.NewRecorder()
	h(w, httptest.NewRequest(http.MethodGet, "/ready", nil))
	require.Equal(t, http.StatusServiceUnavailable, w.Code)

	ready = true
	w = httptest.NewRecorder()
	h(w, httptest.NewRequest(http.MethodGet, "/ready", nil))
	require.Equal(t, http.StatusOK, w.Code)
}

func TestHandleVersion(t *testing.T) {
	w := httptest.NewRecorder()
	HandleVersion("v1.2.3")(w, httptest.NewRequest(http.MethodGet, "/version", nil))
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "v1.2.3", w.Body.String())
}

func TestHandleFrameReport(t *testing.T) {
	t.Run("no frame yet", func(t *testing.T) {
		w := httptest.NewRecorder()
		HandleFrameReport(reportSource{})(w, httptest.NewRequest(http.MethodGet, "/report", nil))
		require.Equal(t, http.StatusServiceUnavailable, w.Code)
	})

	t.Run("last frame", func(t *testing.T) {
		src := reportSource{report: &sim.FrameReport{
			RunID:           "run",
			Frame:           42,
			VisibleSections: 12,
			Digest:          7,
		}}

		w := httptest.NewRecorder()
		HandleFrameReport(src)(w, httptest.NewRequest(http.MethodGet, "/report", nil))
		require.Equal(t, http.StatusOK, w.Code)
		require.Equal(t, "application/json", w.Header().Get("Content-Type"))

		var got sim.FrameReport
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
		require.Equal(t, "run", got.RunID)
		require.Equal(t, int32(42), got.Frame)
		require.Equal(t, 12, got.VisibleSections)
		require.Equal(t, uint64(7), got.Digest)
	})

	t.Run("wrong method", func(t *testing.T) {
		w := httptest.NewRecorder()
		HandleFrameReport(reportSource{})(w, httptest.NewRequest(http.MethodPost, "/report", nil))
		require.Equal(t, http.StatusMethodNotAllowed, w.Code)
	})
}

func TestHandleWithCORS(t *testing.T) {
	h := HandleWithCORS(http.HandlerFunc(HandleHealthCheck))

	t.Run("preflight", func(t *testing.T) {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodOptions, "/health", nil))
		require.Equal(t, http.StatusNoContent, w.Code)
		require.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("request", func(t *testing.T) {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
		require.Equal(t, http.StatusOK, w.Code)
		require.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	})
}

func TestVerifyTokenHandler(t *testing.T) {
	next := func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}

	tests := []struct {
		name   string
		token  string
		header string
		query  string
		status int
	}{
		{name: "disabled", status: http.StatusTeapot},
		{name: "missing", token: "secret", status: http.StatusUnauthorized},
		{name: "wrong", token: "secret", header: "Bearer nope", status: http.StatusUnauthorized},
		{name: "header", token: "secret", header: "Bearer secret", status: http.StatusTeapot},
		{name: "query", token: "secret", query: "?token=secret", status: http.StatusTeapot},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/stream"+test.query, nil)
			if test.header != "" {
				r.Header.Set("Authorization", test.header)
			}

			w := httptest.NewRecorder()
			VerifyTokenHandler(test.token, next)(w, r)
			require.Equal(t, test.status, w.Code)
		})
	}
}

func TestMetricsPathFormatter(t *testing.T) {
	require.Equal(t, "", MetricsPathFormatter(http.StatusNotFound, "/wp-admin"))
	require.Equal(t, "", MetricsPathFormatter(http.StatusUnauthorized, "/stream"))
	require.Equal(t, "/report", MetricsPathFormatter(http.StatusOK, "/report"))
	require.Equal(t, "/debug", MetricsPathFormatter(http.StatusOK, "/debug/pprof/heap"))
}
