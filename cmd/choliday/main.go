package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
	"gopkg.in/yaml.v3"

	"github.com/username/choliday/internal/calendar"
	"github.com/username/choliday/internal/config"
	"github.com/username/choliday/internal/metrics"
	"github.com/username/choliday/internal/source"
	"github.com/username/choliday/pkg/dateutil"
)

// Exit statuses: 0 = workday, 1 = rest day
const exitError = 2

type options struct {
	configPath string
	date       string
	timezone   string
	strict     bool
	logLevel   string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := execute(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// execute runs the command line and returns the process exit status
func execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	opts := &options{}
	exitCode := exitError

	rootCmd := &cobra.Command{
		Use:   "choliday",
		Short: "Decide whether a date is a workday or a rest day",
		Long: "Decide whether a date is a workday or a rest day from ICS calendars,\n" +
			"a weekly workday pattern and the Saturday/Sunday default.\n" +
			"Prints true for a workday (exit 0) or false for a rest day (exit 1).",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			decision, err := decide(cmd.Context(), opts, stderr)
			if err != nil {
				return err
			}
			fmt.Fprintln(stdout, decision.Verdict.IsWorkday())
			exitCode = decision.Verdict.ExitCode()
			return nil
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&opts.configPath, "config", "c", "", "Config file path (default: choliday.{toml,yaml} in ., $HOME/.config/choliday, /etc/choliday)")
	flags.StringVarP(&opts.date, "date", "d", "", dateutil.TargetHelp)
	flags.StringVar(&opts.timezone, "timezone", "", "IANA timezone overriding base.timezone")
	flags.BoolVar(&opts.strict, "strict", false, "Fail when any calendar source cannot be fetched or parsed")
	flags.StringVar(&opts.logLevel, "log-level", "", "Log level overriding log.level (debug, info, warn, error)")

	rootCmd.AddCommand(explainCmd(opts, stdout, stderr, &exitCode))

	rootCmd.SetArgs(args)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitError
	}
	return exitCode
}

func explainCmd(opts *options, stdout, stderr io.Writer, exitCode *int) *cobra.Command {
	return &cobra.Command{
		Use:   "explain",
		Short: "Print the decision and the evidence behind it as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			decision, err := decide(cmd.Context(), opts, stderr)
			if err != nil {
				return err
			}

			enc := yaml.NewEncoder(stdout)
			enc.SetIndent(2)
			if err := enc.Encode(decision); err != nil {
				return fmt.Errorf("failed to encode decision: %w", err)
			}
			if err := enc.Close(); err != nil {
				return fmt.Errorf("failed to encode decision: %w", err)
			}

			*exitCode = decision.Verdict.ExitCode()
			return nil
		},
	}
}

// decide loads configuration, fetches every calendar source and runs the engine
func decide(ctx context.Context, opts *options, stderr io.Writer) (*calendar.Decision, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, err
	}

	if opts.timezone != "" {
		cfg.Base.Timezone = opts.timezone
	}
	if opts.strict {
		cfg.Calendar.Strict = true
	}
	if opts.logLevel != "" {
		cfg.Log.Level = opts.logLevel
	}

	settings, err := cfg.Settings()
	if err != nil {
		return nil, err
	}

	logger, err := newLogger(cfg.Log, stderr)
	if err != nil {
		return nil, err
	}
	defer func() { _ = logger.Sync() }()
	logger = logger.With(zap.String("run_id", uuid.NewString()))

	target, err := dateutil.ParseTarget(opts.date, time.Now().In(settings.Location))
	if err != nil {
		return nil, err
	}

	logger.Debug("Starting decision",
		zap.Time("target", target),
		zap.Int("sources", len(cfg.Calendar.Source)),
		zap.Stringer("priority", settings.Priority),
		zap.Stringer("workdays", settings.Workdays),
		zap.Bool("strict", settings.Strict))

	fetcher := source.NewFetcher(cfg.Calendar.GetTimeout(), logger)
	fetched := fetcher.FetchAll(ctx, cfg.Calendar.Source)
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("interrupted: %w", err)
	}

	engine := calendar.NewEngine(settings, logger)
	decision, err := engine.Evaluate(target, fetched)
	if err != nil {
		return nil, err
	}

	if cfg.Metrics.Textfile != "" {
		recorder := metrics.NewRecorder()
		recorder.Observe(decision, time.Now())
		if err := recorder.WriteTextfile(cfg.Metrics.Textfile); err != nil {
			logger.Warn("Failed to write metrics", zap.String("path", cfg.Metrics.Textfile), zap.Error(err))
		}
	}

	return decision, nil
}

func newLogger(cfg config.LogConfig, stderr io.Writer) (*zap.Logger, error) {
	level, err := parseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}

	if cfg.File != "" {
		return initFileLogger(cfg.File, level), nil
	}
	return initLogger(stderr, level), nil
}

func parseLevel(name string) (zapcore.Level, error) {
	if strings.TrimSpace(name) == "" {
		return zapcore.WarnLevel, nil
	}

	var zapLevel zapcore.Level
	if err := zapLevel.UnmarshalText([]byte(strings.ToLower(name))); err != nil {
		return 0, &config.ConfigError{Key: "log.level", Err: errors.New("unknown level " + name)}
	}
	return zapLevel, nil
}

// initLogger writes JSON logs to w; stdout is reserved for the answer
func initLogger(w io.Writer, level zapcore.Level) *zap.Logger {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "timestamp"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderConfig),
		zapcore.AddSync(w),
		level,
	)
	return zap.New(core)
}

func initFileLogger(logFile string, level zapcore.Level) *zap.Logger {
	// Setup lumberjack for log rotation
	logWriter := &lumberjack.Logger{
		Filename:   logFile,
		MaxSize:    10,   // MB
		MaxBackups: 3,    // Keep max 3 old log files
		MaxAge:     28,   // days
		Compress:   true, // Compress old logs with gzip
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "timestamp"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderConfig),
		zapcore.AddSync(logWriter),
		level,
	)
	return zap.New(core)
}
