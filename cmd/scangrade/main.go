package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pavelanni/scangrade/internal/answerkey"
	"github.com/pavelanni/scangrade/internal/grade"
	"github.com/pavelanni/scangrade/internal/handler"
	"github.com/pavelanni/scangrade/internal/model"
	"github.com/pavelanni/scangrade/internal/pipeline"
	"github.com/pavelanni/scangrade/internal/raster"
	"github.com/pavelanni/scangrade/internal/report"
	"github.com/pavelanni/scangrade/internal/store"
	"github.com/pavelanni/scangrade/internal/vision"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "scangrade",
		Short: "Grade scanned multiple-choice exams with a vision model",
	}

	serve := serveCmd()
	root.AddCommand(serve, gradeCmd(), exportCmd())

	// Make "serve" the default when no subcommand is given.
	root.RunE = serve.RunE

	// Register serve flags on root so bare `scangrade --addr ...` still works.
	root.Flags().AddFlagSet(serve.Flags())

	return root
}

func addVisionFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("provider", "gemini", "Vision model provider (gemini, openai)")
	f.String("gemini-api-key", "", "Gemini API key (or set SCANGRADE_GEMINI_API_KEY)")
	f.String("gemini-model", "gemini-1.5-flash", "Gemini model name")
	f.String("llm-url", "", "OpenAI-compatible API base URL (empty for the default endpoint)")
	f.String("llm-key", "", "API key for the OpenAI-compatible provider")
	f.String("llm-model", "gpt-4o-mini", "OpenAI-compatible model name")
	f.Int("page-cap", raster.DefaultPageCap, "Maximum pages inspected per exam")
	f.Float64("scale", grade.DefaultScale, "Grading scale")
	f.Float64("pass-mark", report.DefaultPassMark, "Passing score threshold")
	f.Duration("call-timeout", pipeline.DefaultCallTimeout, "Timeout per vision model call")
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP grading server",
		RunE:  runServe,
	}
	f := cmd.Flags()
	f.StringP("addr", "a", ":8080", "HTTP listen address")
	f.String("db", "scangrade.db", "SQLite database path (empty disables persistence)")
	f.Int("max-uploads", pipeline.MaxUploads, "Maximum PDF files per batch")
	f.String("api-token", "", "Bearer token required on API requests (empty disables auth)")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
	addVisionFlags(cmd)
	return cmd
}

func gradeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "grade [flags] exam.pdf...",
		Short: "Grade PDF files from the command line",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runGrade,
	}
	f := cmd.Flags()
	f.StringP("key", "k", "", "Answer key, e.g. \"1:a, 2:d, 3:v\" (required)")
	f.String("course-name", "", "Course name for the report")
	f.String("course-code", "", "Course code for the report")
	f.String("db", "", "SQLite database path to persist the run (empty skips persistence)")
	f.String("format", "json", "Output format (json, csv)")
	f.StringP("output", "o", "-", "Output file path (- for stdout)")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
	addVisionFlags(cmd)
	_ = cmd.MarkFlagRequired("key")
	return cmd
}

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export stored grading runs as JSON",
		RunE:  runExport,
	}
	f := cmd.Flags()
	f.String("db", "scangrade.db", "SQLite database path")
	f.StringP("output", "o", "-", "Output file path (- for stdout)")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
	return cmd
}

func setupLogging(cmd *cobra.Command) {
	v := viperForCmd(cmd)

	var logLevel slog.Level
	switch strings.ToLower(v.GetString("log-level")) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	handlerOpts := &slog.HandlerOptions{Level: logLevel}
	var logHandler slog.Handler
	switch strings.ToLower(v.GetString("log-format")) {
	case "json":
		logHandler = slog.NewJSONHandler(os.Stderr, handlerOpts)
	default:
		logHandler = slog.NewTextHandler(os.Stderr, handlerOpts)
	}
	slog.SetDefault(slog.New(logHandler))
}

// viperForCmd binds a command's flags and environment to a fresh viper instance.
func viperForCmd(cmd *cobra.Command) *viper.Viper {
	v := viper.New()
	_ = v.BindPFlags(cmd.Flags())

	v.SetEnvPrefix("SCANGRADE")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetConfigName("scangrade")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/scangrade")
	v.AddConfigPath("/etc/scangrade")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			slog.Warn("error reading config file", "error", err)
		}
	} else {
		slog.Info("loaded config file", "path", v.ConfigFileUsed())
	}

	return v
}

func buildExtractor(ctx context.Context, v *viper.Viper) (vision.Extractor, func(), error) {
	provider := strings.ToLower(strings.TrimSpace(v.GetString("provider")))
	switch provider {
	case "gemini":
		g, err := vision.NewGemini(ctx, v.GetString("gemini-api-key"), v.GetString("gemini-model"))
		if err != nil {
			return nil, nil, err
		}
		return g, func() { _ = g.Close() }, nil
	case "openai":
		c := vision.NewOpenAI(v.GetString("llm-url"), v.GetString("llm-key"), v.GetString("llm-model"))
		return c, func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown provider %q (expected gemini or openai)", provider)
	}
}

func pipelineConfig(v *viper.Viper) pipeline.Config {
	return pipeline.Config{
		PageCap:     v.GetInt("page-cap"),
		Scale:       v.GetFloat64("scale"),
		CallTimeout: v.GetDuration("call-timeout"),
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	var db *store.Store
	if dbPath := v.GetString("db"); dbPath != "" {
		var err error
		db, err = store.New(dbPath)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer db.Close()
	}

	extractor, closeExtractor, err := buildExtractor(cmd.Context(), v)
	if err != nil {
		return fmt.Errorf("create vision client: %w", err)
	}
	defer closeExtractor()

	pipe := pipeline.New(raster.Rasterizer{}, extractor, pipelineConfig(v))

	h, err := handler.New(db, pipe, handler.Config{
		Scale:      v.GetFloat64("scale"),
		PassMark:   v.GetFloat64("pass-mark"),
		MaxUploads: v.GetInt("max-uploads"),
		APIToken:   v.GetString("api-token"),
	})
	if err != nil {
		return fmt.Errorf("create handler: %w", err)
	}

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	h.Routes(r)

	addr := v.GetString("addr")
	slog.Info("starting server",
		"addr", addr,
		"provider", v.GetString("provider"),
		"page_cap", v.GetInt("page-cap"),
		"scale", v.GetFloat64("scale"),
		"pass_mark", v.GetFloat64("pass-mark"),
		"max_uploads", v.GetInt("max-uploads"),
		"persistence", v.GetString("db") != "",
	)
	return http.ListenAndServe(addr, r)
}

func runGrade(cmd *cobra.Command, args []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	key, err := answerkey.Parse(v.GetString("key"))
	if err != nil {
		return fmt.Errorf("parse answer key: %w", err)
	}
	if len(key) == 0 {
		return fmt.Errorf("answer key is empty")
	}
	if err := key.Validate(); err != nil {
		slog.Warn("answer key contains an unexpected token; it will never match", "error", err)
	}

	if len(args) > pipeline.MaxUploads {
		return fmt.Errorf("too many files: got %d, maximum is %d", len(args), pipeline.MaxUploads)
	}

	exams := make([]pipeline.Exam, 0, len(args))
	for _, path := range args {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		exams = append(exams, pipeline.Exam{Filename: filepath.Base(path), Data: data})
	}

	// Batches of up to 30 exams can run long; let Ctrl-C stop cleanly
	// between exams.
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	extractor, closeExtractor, err := buildExtractor(ctx, v)
	if err != nil {
		return fmt.Errorf("create vision client: %w", err)
	}
	defer closeExtractor()

	pipe := pipeline.New(raster.Rasterizer{}, extractor, pipelineConfig(v))

	results, warnings, runErr := pipe.Run(ctx, key, exams, func(done, total int, filename string) {
		slog.Info("graded exam", "file", filename, "done", done, "total", total)
	})
	if runErr != nil {
		slog.Warn("batch interrupted, reporting partial results", "error", runErr)
	}

	run := model.Run{
		CourseName:   v.GetString("course-name"),
		CourseCode:   v.GetString("course-code"),
		KeyText:      v.GetString("key"),
		NumQuestions: len(key),
		Scale:        v.GetFloat64("scale"),
		PassMark:     v.GetFloat64("pass-mark"),
		CreatedAt:    time.Now(),
	}

	if dbPath := v.GetString("db"); dbPath != "" {
		db, err := store.New(dbPath)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer db.Close()
		id, err := db.CreateRun(run, results, warnings)
		if err != nil {
			return fmt.Errorf("persist run: %w", err)
		}
		run.ID = id
		slog.Info("run persisted", "id", id, "db", dbPath)
	}

	w, closeOutput, err := openOutput(v.GetString("output"))
	if err != nil {
		return err
	}
	defer closeOutput()

	switch strings.ToLower(v.GetString("format")) {
	case "csv":
		if err := report.WriteCSV(w, results, run.PassMark); err != nil {
			return fmt.Errorf("write CSV: %w", err)
		}
	default:
		data, err := json.MarshalIndent(report.Build(run, results, warnings), "", "  ")
		if err != nil {
			return fmt.Errorf("marshal JSON: %w", err)
		}
		if _, err := w.Write(data); err != nil {
			return fmt.Errorf("write output: %w", err)
		}
		// Ensure trailing newline.
		_, _ = fmt.Fprintln(w)
	}

	return runErr
}

func runExport(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	views, err := db.ExportAllRuns()
	if err != nil {
		return fmt.Errorf("export runs: %w", err)
	}

	data, err := json.MarshalIndent(views, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal JSON: %w", err)
	}

	w, closeOutput, err := openOutput(v.GetString("output"))
	if err != nil {
		return err
	}
	defer closeOutput()

	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	// Ensure trailing newline.
	_, _ = fmt.Fprintln(w)

	return nil
}

func openOutput(path string) (io.Writer, func(), error) {
	if path == "" || path == "-" {
		return os.Stdout, func() {}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("create output file: %w", err)
	}
	return f, func() { _ = f.Close() }, nil
}
