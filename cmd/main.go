package main

import (
	"context"
	"fmt"
	"net/http"
	"net/http/pprof"
	"net/url"
	"os"
	"reflect"
	"syscall"
	"time"

	"github.com/aukilabs/go-tooling/pkg/cli"
	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/events"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/aukilabs/go-tooling/pkg/metrics"
	"github.com/aukilabs/sowilo/featureflag"
	sowilohttp "github.com/aukilabs/sowilo/http"
	"github.com/aukilabs/sowilo/report"
	"github.com/aukilabs/sowilo/sim"
	"github.com/aukilabs/sowilo/smoketest"
	swebsocket "github.com/aukilabs/sowilo/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/segmentio/encoding/json"
	"golang.org/x/net/websocket"
)

var (
	// The Sowilo version number. Set at build.
	version = "v0.1.0"

	infoGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name:        "sowilo_info",
		Help:        "Sowilo information.",
		ConstLabels: prometheus.Labels{"version": version},
	})
)

// This will effectively disable obfuscation of the config struct. Without it, the keys would get obfuscated causing the cli package to generate garbled command-line options.
// https://github.com/burrowers/garble/issues/403
var _ = reflect.TypeOf(config{})

type config struct {
	Addr               string        `cli:""        env:"SOWILO_ADDR"                  help:"Listening address for the debug stream and reports."`
	AdminAddr          string        `cli:""        env:"SOWILO_ADMIN_ADDR"            help:"Admin listening address."`
	PublicEndpoint     string        `cli:""        env:"SOWILO_PUBLIC_ENDPOINT"       help:"The public endpoint where this Sowilo server is reachable."`
	Scenario           string        `cli:""        env:"SOWILO_SCENARIO"              help:"YAML scenario file. The default scenario is used when empty."`
	Seed               uint64        `cli:""        env:"SOWILO_SEED"                  help:"Overrides the world seed of the scenario."`
	Headless           bool          `cli:""        env:"SOWILO_HEADLESS"              help:"Simulates the scenario frames as fast as possible, prints the last report and exits."`
	SmokeTest          bool          `cli:""        env:"-"                            help:"Runs the scenario twice, checks that both runs match and exits."`
	Token              string        `cli:""        env:"SOWILO_TOKEN"                 help:"Bearer token required by the debug stream and the smoke test endpoint."`
	ResultsEndpoint    string        `cli:",hidden" env:"SOWILO_RESULTS_ENDPOINT"      help:"Endpoint where smoke test results are posted."`
	LogLevel           string        `cli:""        env:"SOWILO_LOG_LEVEL"             help:"Log level (debug|info|warning|error)."`
	LogIndent          bool          `cli:""        env:"SOWILO_LOG_INDENT"            help:"Indent logs."`
	HeartbeatInterval  time.Duration `cli:",hidden" env:"SOWILO_HEARTBEAT_INTERVAL"    help:"Debug stream heartbeat message interval."`
	ClientIdleTimeout  time.Duration `cli:",hidden" env:"SOWILO_CLIENT_IDLE_TIMEOUT"   help:"Time until an idle debug stream client will be disconnected."`
	LogSummaryInterval time.Duration `cli:",hidden" env:"SOWILO_LOG_SUMMARY_INTERVAL"  help:"The duration between each log summary by connection."`
	Events             eventsConfig  `cli:",hidden" env:"-"                            help:"Event pusher configuration."`
	FeatureFlags       []string      `cli:",hidden" env:"SOWILO_FEATURE_FLAGS"         help:"Comma separated feature flags."`
	Version            bool          `cli:""        env:"-"                            help:"Show version."`
	Help               bool          `cli:""        env:"-"                            help:"Show help."`
}

type eventsConfig struct {
	Endpoint      string        `cli:",hidden" env:"SOWILO_EVENTS_ENDPOINT"       help:"Endpoint to where events are pushed. Events are disabled when empty."`
	FlushInterval time.Duration `cli:",hidden" env:"SOWILO_EVENTS_FLUSH_INTERVAL" help:"The duration between each event flush."`
	BatchSize     int           `cli:",hidden" env:"SOWILO_EVENTS_BATCH_SIZE"     help:"The maximum number of events sent at once."`
	QueueSize     int           `cli:",hidden" env:"SOWILO_EVENTS_QUEUE_SIZE"     help:"The size of the queue where events are stored."`
}

func main() {
	conf := config{
		Addr:               ":4000",
		AdminAddr:          ":18190",
		PublicEndpoint:     "http://localhost:4000",
		LogLevel:           logs.InfoLevel.String(),
		HeartbeatInterval:  time.Second * 5,
		ClientIdleTimeout:  time.Minute * 5,
		LogSummaryInterval: time.Minute,
		Events: eventsConfig{
			FlushInterval: events.DefaultFlushInterval,
			BatchSize:     events.DefaultBatchSize,
			QueueSize:     events.DefaultQueueSize,
		},
	}

	// set the information gauge to 1, useful for SUM query
	infoGauge.Set(1)

	ctx, cancel := cli.ContextWithSignals(context.Background(),
		os.Interrupt,
		syscall.SIGTERM,
	)
	defer cancel()

	cli.Register().
		Help("Starts Sowilo, a voxel section visibility and build scheduling simulator.").
		Options(&conf)
	cli.Load()

	if conf.Version {
		fmt.Println(version)
		os.Exit(0)
	}

	if err := validateConfig(conf); err != nil {
		logs.Fatal(err)
	}

	logs.SetLevel(logs.ParseLevel(conf.LogLevel))
	logs.Encoder = json.Marshal
	if conf.LogIndent {
		logs.Encoder = func(v any) ([]byte, error) {
			return json.MarshalIndent(v, "", "  ")
		}
	}

	errors.Encoder = json.Marshal

	transport := metrics.HTTPTransport(http.DefaultTransport)

	if conf.Events.Endpoint != "" {
		eventsPusher := events.Pusher{
			Endpoint:      conf.Events.Endpoint,
			FlushInterval: conf.Events.FlushInterval,
			BatchSize:     conf.Events.BatchSize,
			QueueSize:     conf.Events.QueueSize,
			Transport:     transport,
		}
		go eventsPusher.Start()
		defer eventsPusher.Close()

		eventsLogger := events.Logger{
			Pusher:           &eventsPusher,
			SDKType:          "sowilo",
			SDKVersionFamily: version,
		}
		logs.SetLogger(eventsLogger.Log)
	}

	scenario, err := loadScenario(conf)
	if err != nil {
		logs.Fatal(err)
	}
	flags := featureflag.New(conf.FeatureFlags)

	switch {
	case conf.SmokeTest:
		res, err := smoketest.Run(ctx, scenario, flags)
		printJSON(res)
		if err != nil {
			logs.Fatal(err)
		}
		return

	case conf.Headless:
		if err := runHeadless(ctx, scenario, flags); err != nil {
			logs.Fatal(err)
		}
		return
	}

	simulation, err := sim.New(ctx, scenario, flags)
	if err != nil {
		logs.Fatal(errors.New("creating simulation failed").Wrap(err))
	}
	defer simulation.Close()

	readinessCheck := func() bool {
		_, ok := simulation.LastReport()
		return ok
	}

	var service http.ServeMux
	service.Handle("/health", sowilohttp.HandleWithCORS(http.HandlerFunc(sowilohttp.HandleHealthCheck)))
	service.Handle("/ready", sowilohttp.HandleWithCORS(sowilohttp.HandleReadyCheck(readinessCheck)))
	service.Handle("/version", sowilohttp.HandleWithCORS(sowilohttp.HandleVersion(version)))
	service.Handle("/report", sowilohttp.HandleWithCORS(sowilohttp.HandleFrameReport(simulation)))

	forwarder := report.Forwarder{
		Endpoint:   conf.ResultsEndpoint,
		ResultChan: make(chan smoketest.Results, 16),
		Client:     &http.Client{Transport: transport},
	}
	if conf.ResultsEndpoint != "" {
		forwarder.HandleResults(ctx)
	}

	service.HandleFunc("/smoke-test", sowilohttp.VerifyTokenHandler(conf.Token, smoketest.HandleSmokeTest(ctx, smoketest.Options{
		Scenario: scenario,
		Flags:    flags,
		SendResult: func(ctx context.Context, res smoketest.Results) error {
			logs.WithTag("results", res).Info("smoke test finished")
			if conf.ResultsEndpoint == "" {
				return nil
			}
			return forwarder.Send(ctx, res)
		},
	})))

	service.Handle("/stream", websocket.Server{
		Handshake: sowilohttp.VerifyToken(conf.Token),
		Handler: func(conn *websocket.Conn) {
			defer conn.Close()

			var h swebsocket.Handler = &swebsocket.StreamHandler{
				Source:                  simulation,
				RunID:                   simulation.RunID,
				ClientHeartbeatInterval: conf.HeartbeatInterval,
				ClientIdleTimeout:       conf.ClientIdleTimeout,
			}
			h = swebsocket.HandlerWithLogs(h, conf.LogSummaryInterval)
			h = swebsocket.HandlerWithMetrics(h, conf.PublicEndpoint)
			defer h.Close()

			swebsocket.Handle(ctx, conn, h)
		},
	})

	var admin http.ServeMux
	admin.Handle("/metrics", promhttp.Handler())
	admin.HandleFunc("/health", sowilohttp.HandleHealthCheck)
	admin.HandleFunc("/debug/pprof/", pprof.Index)
	admin.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	admin.HandleFunc("/debug/pprof/profile", pprof.Profile)
	admin.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	admin.HandleFunc("/debug/pprof/trace", pprof.Trace)
	admin.Handle("/debug/pprof/goroutine", pprof.Handler("goroutine"))
	admin.Handle("/debug/pprof/heap", pprof.Handler("heap"))
	admin.Handle("/debug/pprof/threadcreate", pprof.Handler("threadcreate"))
	admin.Handle("/debug/pprof/block", pprof.Handler("block"))
	admin.HandleFunc("/ready", sowilohttp.HandleReadyCheck(readinessCheck))

	go func() {
		defer cancel()

		if err := simulation.Run(ctx); err != nil {
			logs.Error(errors.New("simulation stopped").Wrap(err))
		}
	}()

	logs.WithTag("version", version).
		WithTag("log_level", conf.LogLevel).
		WithTag("endpoint", conf.PublicEndpoint).
		WithTag("scenario", scenario.Name).
		WithTag("seed", scenario.World.Seed).
		WithTag("run_id", simulation.RunID).
		Info("starting sowilo server")

	sowilohttp.ListenAndServe(ctx,
		&http.Server{Addr: conf.Addr, Handler: metrics.HTTPHandler(&service,
			sowilohttp.MetricsPathFormatter)},
		&http.Server{Addr: conf.AdminAddr, Handler: &admin},
	)
}

func loadScenario(conf config) (sim.Scenario, error) {
	scenario := sim.DefaultScenario()
	if conf.Scenario != "" {
		var err error
		if scenario, err = sim.LoadScenario(conf.Scenario); err != nil {
			return scenario, err
		}
	}

	if conf.Seed != 0 {
		scenario.World.Seed = conf.Seed
	}
	return scenario, nil
}

func runHeadless(ctx context.Context, scenario sim.Scenario, flags featureflag.FeatureFlag) error {
	s, err := sim.New(ctx, scenario, flags)
	if err != nil {
		return errors.New("creating simulation failed").Wrap(err)
	}
	defer s.Close()

	report, err := s.RunFrames(ctx, scenario.Frames)
	if err != nil {
		return err
	}

	printJSON(report)
	return nil
}

func printJSON(v any) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		logs.Warn(errors.New("encoding output failed").Wrap(err))
		return
	}
	fmt.Println(string(b))
}

func validateConfig(conf config) error {
	if _, err := url.ParseRequestURI(conf.PublicEndpoint); err != nil {
		return errors.New("invalid public endpoint").Wrap(err)
	}

	if conf.ResultsEndpoint != "" {
		if _, err := url.ParseRequestURI(conf.ResultsEndpoint); err != nil {
			return errors.New("invalid results endpoint").Wrap(err)
		}
	}

	if conf.SmokeTest && conf.Headless {
		return errors.New("have to specify either headless or smoke test, not both")
	}

	if conf.HeartbeatInterval <= 0 || conf.ClientIdleTimeout <= 0 {
		return errors.New("debug stream intervals must be positive").
			WithTag("heartbeat_interval", conf.HeartbeatInterval).
			WithTag("client_idle_timeout", conf.ClientIdleTimeout)
	}

	return nil
}
