package smoketest

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aukilabs/sowilo/featureflag"
	"github.com/aukilabs/sowilo/sim"
	"github.com/aukilabs/sowilo/world"
	"github.com/stretchr/testify/require"
)

func testScenario() sim.Scenario {
	s := sim.DefaultScenario()
	s.Name = "smoke"
	s.World = world.Config{
		Seed:        11,
		MinSectionY: 0,
		MaxSectionY: 3,
		BaseHeight:  20,
	}
	s.ViewDistance = 2
	s.ChunkLoadsPerFrame = 30
	s.Workers = 2
	s.Frames = 20
	s.Camera.Height = 8
	s.Camera.Pitch = -45
	s.Edits.Radius = 12
	return s
}

func TestRun(t *testing.T) {
	t.Run("deterministic runs", func(t *testing.T) {
		res, err := Run(context.Background(), testScenario(), nil)
		require.NoError(t, err)
		require.True(t, res.Success)
		require.Zero(t, res.DivergedAt)
		require.Equal(t, 20, res.Frames)
		require.Positive(t, res.VisibleSections)
		require.NotEqual(t, res.RunIDs[0], res.RunIDs[1])
	})

	t.Run("cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		res, err := Run(ctx, testScenario(), featureflag.New(nil))
		require.Error(t, err)
		require.False(t, res.Success)
	})
}

func TestHandleSmokeTest(t *testing.T) {
	t.Run("smoke test success", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		results := make(chan Results, 1)
		h := HandleSmokeTest(ctx, Options{
			Scenario: testScenario(),
			SendResult: func(_ context.Context, res Results) error {
				results <- res
				return nil
			},
		})

		w := httptest.NewRecorder()
		h(w, httptest.NewRequest(http.MethodPost, "/smoke-test", strings.NewReader(`{"frames":10,"seed":3}`)))
		require.Equal(t, http.StatusAccepted, w.Code)

		select {
		case res := <-results:
			require.True(t, res.Success, res.Error)
			require.Equal(t, 10, res.Frames)
			require.Equal(t, uint64(3), res.Seed)

		case <-ctx.Done():
			t.Fatal("smoke test result not sent")
		}
	})

	t.Run("empty body uses the defaults", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		results := make(chan Results, 1)
		h := HandleSmokeTest(ctx, Options{
			Scenario: testScenario(),
			SendResult: func(_ context.Context, res Results) error {
				results <- res
				return nil
			},
		})

		w := httptest.NewRecorder()
		h(w, httptest.NewRequest(http.MethodPost, "/smoke-test", nil))
		require.Equal(t, http.StatusAccepted, w.Code)

		select {
		case res := <-results:
			require.Equal(t, defaultFrames, res.Frames)
			require.Equal(t, uint64(11), res.Seed)

		case <-ctx.Done():
			t.Fatal("smoke test result not sent")
		}
	})

	t.Run("bad requests", func(t *testing.T) {
		h := HandleSmokeTest(context.Background(), Options{
			Scenario: testScenario(),
			SendResult: func(context.Context, Results) error {
				t.Error("no smoke test should run")
				return nil
			},
		})

		tests := []struct {
			name   string
			method string
			body   string
			status int
		}{
			{name: "method", method: http.MethodGet, status: http.StatusMethodNotAllowed},
			{name: "invalid json", method: http.MethodPost, body: "{", status: http.StatusBadRequest},
			{name: "negative frames", method: http.MethodPost, body: `{"frames":-1}`, status: http.StatusBadRequest},
			{name: "too many frames", method: http.MethodPost, body: `{"frames":100000}`, status: http.StatusBadRequest},
		}

		for _, test := range tests {
			t.Run(test.name, func(t *testing.T) {
				w := httptest.NewRecorder()
				h(w, httptest.NewRequest(test.method, "/smoke-test", strings.NewReader(test.body)))
				require.Equal(t, test.status, w.Code)
			})
		}
	})
}
