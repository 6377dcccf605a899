// Command etl runs the jobs of an ETL job file.
//
//	etl -c jobs.yaml [--logfile F] [--start N --stop M | --select 1,2] [--tags a,b] [--status-addr :8080]
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/kbukum/etlkit/config"
	_ "github.com/kbukum/etlkit/connector/csvfile"
	_ "github.com/kbukum/etlkit/connector/kafkabus"
	_ "github.com/kbukum/etlkit/connector/objstore"
	_ "github.com/kbukum/etlkit/connector/redisdb"
	_ "github.com/kbukum/etlkit/connector/sqldb"
	"github.com/kbukum/etlkit/driver"
	"github.com/kbukum/etlkit/logger"
	"github.com/kbukum/etlkit/observability"
	"github.com/kbukum/etlkit/status"
	_ "github.com/kbukum/etlkit/storage/local"
	_ "github.com/kbukum/etlkit/storage/s3"
	"github.com/kbukum/etlkit/version"
)

// Exit codes.
const (
	exitOK     = 0
	exitFailed = 1
	exitUsage  = 2
)

type options struct {
	configFile  string
	envFile     string
	logFile     string
	statusAddr  string
	showVersion bool
	selection   driver.Selection
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	var o options
	fs := pflag.NewFlagSet("etl", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVarP(&o.configFile, "config", "c", "", "job file (YAML)")
	fs.StringVar(&o.envFile, "env-file", "", ".env file with ETL_ overrides")
	fs.StringVar(&o.logFile, "logfile", "", "append logs to this file")
	fs.IntVar(&o.selection.Start, "start", 0, "lowest job priority to run")
	fs.IntVar(&o.selection.Stop, "stop", 0, "highest job priority to run (0 = no limit)")
	fs.IntSliceVar(&o.selection.Select, "select", nil, "job priorities to run, overrides --start/--stop")
	fs.StringSliceVar(&o.selection.Tags, "tags", nil, "only run jobs with these tags")
	fs.StringVar(&o.statusAddr, "status-addr", "", "serve /progress and /healthz on this address")
	fs.BoolVar(&o.showVersion, "version", false, "print the version and exit")

	if err := fs.Parse(args); err != nil {
		return o, err
	}
	if o.showVersion {
		return o, nil
	}
	if o.configFile == "" {
		return o, errors.New("--config is required")
	}
	if len(o.selection.Select) > 0 && (fs.Changed("start") || fs.Changed("stop")) {
		return o, errors.New("--select cannot be combined with --start/--stop")
	}
	if o.selection.Stop > 0 && o.selection.Start > o.selection.Stop {
		return o, fmt.Errorf("--start %d is greater than --stop %d", o.selection.Start, o.selection.Stop)
	}
	return o, nil
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	o, err := parseFlags(args, stderr)
	if err != nil {
		if !errors.Is(err, pflag.ErrHelp) {
			fmt.Fprintln(stderr, "etl:", err)
		}
		return exitUsage
	}
	if o.showVersion {
		fmt.Fprintln(stdout, "etl", version.Get())
		return exitOK
	}

	var loadOpts []config.LoaderOption
	if o.envFile != "" {
		loadOpts = append(loadOpts, config.WithEnvFile(o.envFile))
	}
	f, err := config.LoadFile(o.configFile, loadOpts...)
	if err != nil {
		fmt.Fprintln(stderr, "etl:", err)
		return exitUsage
	}
	if o.logFile != "" {
		f.Logging.Output = o.logFile
	}

	log, err := logger.Open(&f.Logging, f.Name)
	if err != nil {
		fmt.Fprintln(stderr, "etl:", err)
		return exitUsage
	}
	defer func() { _ = log.Close() }()
	logger.SetGlobalLogger(log)

	shutdown, metrics := initTelemetry(ctx, f, log)
	defer shutdown()

	d := driver.New(f,
		driver.WithLogger(log.WithComponent("driver")),
		driver.WithSelection(o.selection),
		driver.WithMetrics(metrics),
	)

	addr := o.statusAddr
	if addr == "" && f.Status.Enabled {
		addr = f.Status.Addr
	}
	if addr != "" {
		srv := status.New(addr, d, log)
		if err := srv.Start(ctx); err != nil {
			log.Error("status server not started", logger.Fields(logger.FieldError, err.Error()))
			return exitFailed
		}
		defer func() { _ = srv.Stop(context.WithoutCancel(ctx)) }()
	}

	log.Info("etl starting", logger.Fields("file", o.configFile, "version", version.Get().Short()))
	report, err := d.Run(ctx)
	report.Log(log)
	fmt.Fprint(stdout, report.String())
	if err != nil {
		log.Error("etl failed", logger.Fields(logger.FieldError, err.Error()))
		return exitFailed
	}
	return exitOK
}

// initTelemetry starts the OTLP exporters enabled in f. The returned
// function flushes and stops them.
func initTelemetry(ctx context.Context, f *config.File, log *logger.Logger) (func(), *observability.StageMetrics) {
	var shutdowns []func(context.Context) error
	obs := f.Observability
	ver := version.Get().Short()

	if obs.TracingEnabled {
		tp, err := observability.InitTracer(ctx, obs.TracerConfig(f.Name, ver))
		if err != nil {
			log.Warn("tracing disabled", logger.Fields(logger.FieldError, err.Error()))
		} else {
			shutdowns = append(shutdowns, tp.Shutdown)
		}
	}

	var metrics *observability.StageMetrics
	if obs.MetricsEnabled {
		mp, err := observability.InitMeter(ctx, obs.MeterConfig(f.Name, ver))
		if err != nil {
			log.Warn("metrics disabled", logger.Fields(logger.FieldError, err.Error()))
		} else {
			shutdowns = append(shutdowns, mp.Shutdown)
			if metrics, err = observability.NewStageMetrics(observability.Meter("etl")); err != nil {
				log.Warn("stage metrics disabled", logger.Fields(logger.FieldError, err.Error()))
				metrics = nil
			}
		}
	}

	return func() {
		ctx := context.WithoutCancel(ctx)
		for _, fn := range shutdowns {
			if err := fn(ctx); err != nil {
				log.Warn("telemetry shutdown", logger.Fields(logger.FieldError, err.Error()))
			}
		}
	}, metrics
}
