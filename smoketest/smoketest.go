package smoketest

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/aukilabs/sowilo/featureflag"
	"github.com/aukilabs/sowilo/sim"
	"github.com/segmentio/encoding/json"
	"golang.org/x/sync/errgroup"
)

const (
	ErrTypeNotDeterministic = "smoke-test-not-deterministic"
	ErrTypeNothingVisible   = "smoke-test-nothing-visible"

	defaultFrames = 120
	maxFrames     = 10000
)

type Options struct {
	// The scenario both runs simulate.
	Scenario sim.Scenario

	// Flags both runs start with. Builds always complete within their frame
	// so that the runs can be compared.
	Flags featureflag.FeatureFlag

	SendResult func(context.Context, Results) error
}

// Request is the body of a smoke test request. Zero values keep the
// configured scenario.
type Request struct {
	Frames int    `json:"frames"`
	Seed   uint64 `json:"seed"`
}

// Results describes two runs of the same scenario.
type Results struct {
	Scenario string        `json:"scenario"`
	Seed     uint64        `json:"seed"`
	Frames   int           `json:"frames"`
	RunIDs   [2]string     `json:"run_ids"`
	Duration time.Duration `json:"duration"`

	// The frame of the first digest mismatch, zero when both runs matched.
	DivergedAt int32 `json:"diverged_at,omitempty"`

	Digest          uint64 `json:"digest"`
	VisibleSections int    `json:"visible_sections"`
	Sections        int    `json:"sections"`

	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// Run simulates the scenario twice side by side and checks that both runs
// render the same sections in the same order on every frame.
func Run(ctx context.Context, scenario sim.Scenario, flags featureflag.FeatureFlag) (Results, error) {
	start := time.Now()
	res := Results{
		Scenario: scenario.Name,
		Seed:     scenario.World.Seed,
		Frames:   scenario.Frames,
	}

	runFlags := featureflag.New(append(flags.Flags(), featureflag.FlagUpdateImmediately.String()))

	var digests [2][]uint64
	var last [2]sim.FrameReport

	g, gctx := errgroup.WithContext(ctx)
	for i := range digests {
		g.Go(func() error {
			s, err := sim.New(gctx, scenario, runFlags)
			if err != nil {
				return err
			}
			defer s.Close()
			res.RunIDs[i] = s.RunID

			digests[i] = make([]uint64, 0, scenario.Frames)
			for f := 0; f < scenario.Frames; f++ {
				if err := gctx.Err(); err != nil {
					return err
				}

				report, err := s.Step()
				if err != nil {
					return err
				}
				digests[i] = append(digests[i], report.Digest)
				last[i] = report
			}
			return nil
		})
	}

	err := g.Wait()
	res.Duration = time.Since(start)
	if err != nil {
		return res, errors.New("running simulation failed").
			WithTag("scenario", scenario.Name).
			Wrap(err)
	}

	res.Digest = last[0].Digest
	res.VisibleSections = last[0].VisibleSections
	res.Sections = last[0].Sections

	for f := range digests[0] {
		if digests[0][f] != digests[1][f] {
			res.DivergedAt = int32(f + 1)
			return res, errors.New("simulation runs diverged").
				WithType(ErrTypeNotDeterministic).
				WithTag("frame", res.DivergedAt).
				WithTag("run_ids", res.RunIDs)
		}
	}

	if res.VisibleSections == 0 {
		return res, errors.New("no section is visible").
			WithType(ErrTypeNothingVisible).
			WithTag("scenario", scenario.Name).
			WithTag("sections", res.Sections)
	}

	res.Success = true
	return res, nil
}

// HandleSmokeTest starts a smoke test in the background and responds right
// away. The results are passed to opts.SendResult.
func HandleSmokeTest(ctx context.Context, opts Options) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}

		b, err := io.ReadAll(r.Body)
		if err != nil {
			logs.Warn(errors.New("reading body failed").Wrap(err))
			w.WriteHeader(http.StatusInternalServerError)
			return
		}

		var req Request
		if len(b) != 0 {
			if err := json.Unmarshal(b, &req); err != nil {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
		}
		if req.Frames < 0 || req.Frames > maxFrames {
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		scenario := opts.Scenario
		scenario.Frames = defaultFrames
		if req.Frames != 0 {
			scenario.Frames = req.Frames
		}
		if req.Seed != 0 {
			scenario.World.Seed = req.Seed
		}

		go func() {
			res, err := Run(ctx, scenario, opts.Flags)
			if err != nil {
				res.Error = err.Error()
				logs.Warn(err)
			}

			if err := opts.SendResult(ctx, res); err != nil {
				logs.WithTag("scenario", scenario.Name).
					WithTag("seed", scenario.World.Seed).
					Warn(errors.New("sending smoke test result failed").Wrap(err))
			}
		}()

		w.WriteHeader(http.StatusAccepted)
	}
}
