package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"

	"github.com/joao-fontenele/dispatch-board/internal/api"
	"github.com/joao-fontenele/dispatch-board/internal/auth"
	"github.com/joao-fontenele/dispatch-board/internal/board"
	"github.com/joao-fontenele/dispatch-board/internal/config"
	"github.com/joao-fontenele/dispatch-board/internal/messaging"
	"github.com/joao-fontenele/dispatch-board/internal/notify"
	"github.com/joao-fontenele/dispatch-board/internal/push"
	"github.com/joao-fontenele/dispatch-board/internal/rabbit"
	"github.com/joao-fontenele/dispatch-board/internal/rooms"
	"github.com/joao-fontenele/dispatch-board/internal/snapshot"
	"github.com/joao-fontenele/dispatch-board/internal/telemetry"
)

const serviceVersion = "0.1.0"

type consumeFunc func(ctx context.Context, handler func(ctx context.Context, payload []byte) error) error

func main() {
	ctx := context.Background()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg, err := config.Load(".env")
	if err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	shutdownTracer, err := telemetry.InitTracerProvider(ctx, "dispatch-board", serviceVersion, cfg.OTLPEndpoint)
	if err != nil {
		logger.Error("failed to initialize tracer", "error", err)
		os.Exit(1)
	}
	defer func() { _ = shutdownTracer(ctx) }()

	metricsHandler, shutdownMeter, err := telemetry.InitMeterProvider("dispatch-board", serviceVersion)
	if err != nil {
		logger.Error("failed to initialize meter", "error", err)
		os.Exit(1)
	}
	defer func() { _ = shutdownMeter(ctx) }()

	b := board.New(logger.With("component", "board"),
		board.WithStrict(cfg.Strict),
		board.WithStaleGuard(cfg.StaleGuard),
	)

	stopMetrics, err := telemetry.RegisterBoardMetrics(otel.GetMeterProvider(), b)
	if err != nil {
		logger.Error("failed to register board metrics", "error", err)
		os.Exit(1)
	}
	defer func() { _ = stopMetrics() }()

	sinks := []notify.Sink{notify.NewLogSink(logger.With("component", "notify"))}
	if cfg.TelegramEnabled() {
		tg, err := notify.NewTelegramSink(cfg.TelegramBotToken, cfg.TelegramChatID)
		if err != nil {
			logger.Error("failed to initialize telegram notifications", "error", err)
			os.Exit(1)
		}
		sinks = append(sinks, tg)
	}
	toaster := notify.NewToaster(cfg.OperatorUserID, logger, sinks...)
	defer b.Subscribe(toaster.Observe)()

	var tokens auth.TokenSource = auth.Static(cfg.BackendToken)
	if cfg.BackendToken == "" {
		tokens = auth.NewMinted(cfg.BackendJWTSecret, cfg.OperatorUserID, 15*time.Minute)
	}

	httpClient := &http.Client{
		Timeout:   10 * time.Second,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}
	client := snapshot.NewClient(cfg.BackendURL, httpClient, tokens)
	loader := snapshot.NewLoader(client, b, toaster, cfg.BranchID, logger)

	var (
		subscriber rooms.Subscriber
		consume    consumeFunc
	)
	switch cfg.Transport {
	case config.TransportAMQP:
		rc, err := rabbit.Dial(cfg.AMQPURL, cfg.AMQPExchange)
		if err != nil {
			logger.Error("failed to connect to rabbitmq", "error", err)
			os.Exit(1)
		}
		defer func() { _ = rc.Close() }()
		subscriber, consume = rc, rc.Consume
	default:
		filter := messaging.NewRoomFilter()
		groupID := "dispatch-board-" + uuid.NewString()
		consumer := messaging.NewConsumer(cfg.KafkaBrokers, cfg.KafkaTopic, groupID,
			messaging.WithStartOffset(kafka.LastOffset),
			messaging.WithRoomFilter(filter),
		)
		defer func() { _ = consumer.Close() }()
		subscriber, consume = filter, consumer.Consume
	}

	roomManager := rooms.NewManager(subscriber, logger)
	for _, room := range []string{rooms.BranchKey(cfg.BranchID), rooms.TenantKey(cfg.TenantID)} {
		if err := roomManager.Join(ctx, room); err != nil {
			logger.Error("failed to join room", "error", err, "room", room)
			os.Exit(1)
		}
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	go toaster.Run(runCtx)

	pushHandler := push.NewHandler(b, logger.With("component", "push"))
	go func() {
		logger.Info("starting push consumer", "transport", cfg.Transport)
		if err := consume(runCtx, pushHandler.Handle); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("push consumer stopped", "error", err)
			toaster.ReportError(runCtx, err)
		}
	}()

	if err := loader.Refresh(runCtx); err != nil {
		logger.Warn("initial refresh failed, serving empty board", "error", err)
	}
	go loader.Run(runCtx, cfg.RefreshInterval)

	handler := api.NewHandler(b, roomManager, loader, logger)
	mux := http.NewServeMux()
	handler.Routes(mux, metricsHandler)

	server := &http.Server{
		Addr: ":" + cfg.Port,
		Handler: otelhttp.NewHandler(mux, "dispatch-board",
			otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
				if r.Pattern != "" {
					return r.Pattern
				}
				return r.Method + " " + r.URL.Path
			}),
		),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("starting dispatch board", "port", cfg.Port, "branch_id", cfg.BranchID, "tenant_id", cfg.TenantID)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
		os.Exit(1)
	}
}
