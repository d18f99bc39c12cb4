package report

import (
	"bytes"
	"context"
	"net/http"
	"strconv"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/aukilabs/sowilo/smoketest"
	"github.com/cespare/xxhash/v2"
	"github.com/segmentio/encoding/json"
)

const (
	ErrTypeInvalidResults = "report-invalid-results"
	ErrTypeCollector      = "report-collector-error"

	// HeaderChecksum carries the xxhash of the request body.
	HeaderChecksum = "X-Sowilo-Checksum"
)

// Forwarder posts smoke test results to a collector endpoint.
type Forwarder struct {
	Endpoint   string
	ResultChan chan smoketest.Results // buffered

	// The client used to reach the collector. http.DefaultClient is used when
	// nil.
	Client *http.Client
}

// HandleResults forwards the results sent on ResultChan until ctx is done.
func (f Forwarder) HandleResults(ctx context.Context) {
	go func() {
		for {
			select {
			case <-ctx.Done():
				return

			case res := <-f.ResultChan:
				if err := VerifyResults(res); err != nil {
					instrumentVerificationError(err)
					logs.Warn(errors.New("invalid smoke test results").
						WithTag("scenario", res.Scenario).
						WithTag("run_ids", res.RunIDs).
						Wrap(err))
					continue
				}

				go func() {
					if err := f.Forward(ctx, res); err != nil {
						logs.Warn(errors.New("forwarding smoke test results failed").Wrap(err))
					}
				}()
			}
		}
	}()
}

// Send queues results without blocking.
func (f Forwarder) Send(ctx context.Context, res smoketest.Results) error {
	select {
	case f.ResultChan <- res:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return errors.New("result queue is full").
			WithTag("capacity", cap(f.ResultChan))
	}
}

// Forward posts results to the collector.
func (f Forwarder) Forward(ctx context.Context, res smoketest.Results) error {
	return instrumentSend(f.Endpoint, func() error {
		b, err := json.Marshal(res)
		if err != nil {
			return errors.New("encoding results failed").Wrap(err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.Endpoint, bytes.NewReader(b))
		if err != nil {
			return errors.New("creating request failed").Wrap(err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set(HeaderChecksum, strconv.FormatUint(xxhash.Sum64(b), 16))

		client := f.Client
		if client == nil {
			client = http.DefaultClient
		}

		resp, err := client.Do(req)
		if err != nil {
			return errors.New("posting results failed").
				WithTag("endpoint", f.Endpoint).
				Wrap(err)
		}
		defer resp.Body.Close()

		if resp.StatusCode >= http.StatusBadRequest {
			return errors.New("collector rejected results").
				WithType(ErrTypeCollector).
				WithTag("endpoint", f.Endpoint).
				WithTag("status", resp.StatusCode)
		}
		return nil
	})
}

// VerifyResults checks that results describe two completed runs.
func VerifyResults(res smoketest.Results) error {
	switch {
	case res.RunIDs[0] == "" || res.RunIDs[1] == "":
		return errors.New("missing run id").
			WithType(ErrTypeInvalidResults).
			WithTag("run_ids", res.RunIDs)

	case res.Frames <= 0:
		return errors.New("no frame was simulated").
			WithType(ErrTypeInvalidResults).
			WithTag("frames", res.Frames)

	case res.Success && (res.Error != "" || res.DivergedAt != 0):
		return errors.New("successful results carry a failure").
			WithType(ErrTypeInvalidResults).
			WithTag("error", res.Error).
			WithTag("diverged_at", res.DivergedAt)

	default:
		return nil
	}
}
