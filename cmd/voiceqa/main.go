package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"voiceqa-server/pkg/config"
	http_server "voiceqa-server/pkg/http"
	"voiceqa-server/pkg/llm"
	"voiceqa-server/pkg/messaging"
	"voiceqa-server/pkg/metrics"
	"voiceqa-server/pkg/pipeline"
	"voiceqa-server/pkg/sim"
	"voiceqa-server/pkg/storage"
	"voiceqa-server/pkg/stt"
	"voiceqa-server/pkg/tts"
	"voiceqa-server/pkg/util"
)

var (
	logger    = logrus.New()
	appConfig *config.Config

	synthManager *tts.ProviderManager
	transcriber  stt.Transcriber
	scorer       llm.Scorer
	store        storage.Store
	simulator    sim.Simulator

	amqpPublisher *messaging.AMQPPublisher
	orchestrator  *pipeline.Orchestrator
	registry      *pipeline.Registry
	workerPool    *util.WorkerPool
	retention     *util.RetentionService
	wsHub         *http_server.JobEventHub
	httpServer    *http_server.Server

	rootCtx    context.Context
	rootCancel context.CancelFunc
)

func main() {
	logger.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat: time.RFC3339Nano,
		FieldMap: logrus.FieldMap{
			logrus.FieldKeyTime:  "timestamp",
			logrus.FieldKeyLevel: "level",
			logrus.FieldKeyMsg:   "message",
		},
	})
	logger.SetOutput(os.Stdout)

	rootCtx, rootCancel = context.WithCancel(context.Background())
	defer rootCancel()

	if err := initialize(); err != nil {
		logger.WithError(err).Fatal("Failed to initialize application")
	}

	httpServer.Start()
	logger.Info("HTTP server started")

	// Graceful shutdown handling
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)

	sig := <-sigChan
	logger.WithField("signal", sig.String()).Info("Received shutdown signal, cleaning up...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), appConfig.HTTP.ShutdownTimeout)
	defer shutdownCancel()

	rootCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Error shutting down HTTP server")
	} else {
		logger.Info("HTTP server shut down successfully")
	}

	if retention != nil {
		retention.Stop(5 * time.Second)
	}

	// Let in-flight pipeline jobs finish before exiting
	workerPool.Stop(30 * time.Second)
	logger.Info("Worker pool stopped")

	if amqpPublisher != nil {
		amqpPublisher.Disconnect()
	}

	logger.Info("Shutdown complete")
}

func initialize() error {
	var err error
	appConfig, err = config.Load(logger)
	if err != nil {
		return err
	}
	appConfig.ConfigureLogger(logger)

	if err := os.MkdirAll(appConfig.Storage.Root, 0o755); err != nil {
		return err
	}

	metrics.Init(logger)

	if err := initProviders(); err != nil {
		return err
	}
	if err := initStorage(); err != nil {
		return err
	}
	initMessaging()

	simulator = sim.NewMockSimulator(logger, appConfig.Storage.Root)

	orchestrator = pipeline.NewOrchestrator(logger, appConfig, synthManager, simulator, store, transcriber, scorer)

	workerPool = util.NewWorkerPool(appConfig.Jobs.Workers, appConfig.Jobs.QueueSize)
	workerPool.Start()

	registry = pipeline.NewRegistry(logger, orchestrator, workerPool, appConfig.Storage.PublicPrefix)

	if amqpPublisher != nil {
		orchestrator.AddListener(func(event pipeline.Event) {
			metadata := map[string]interface{}{
				"status": string(event.Status),
			}
			if event.Step != "" {
				metadata["step"] = event.Step
			}
			if err := amqpPublisher.PublishJobEvent(event.JobUUID, event.Type, metadata); err != nil {
				logger.WithError(err).Debug("Failed to publish job event")
			}
		})
	}

	retention = util.NewRetentionService(logger, util.RetentionConfig{
		Interval: appConfig.Jobs.CleanupInterval,
		MaxAge:   appConfig.Jobs.RetentionAge,
	})
	retention.RegisterCleanupCallback(registry.Cleanup)
	retention.Start()

	httpServer = http_server.NewServer(logger, appConfig, registry, orchestrator)
	if amqpPublisher != nil {
		httpServer.SetAMQPClient(amqpPublisher)
	}

	if appConfig.HTTP.EnableWebSocket {
		wsHub = http_server.NewJobEventHub(logger)
		go wsHub.Run(rootCtx)
		httpServer.SetWebSocketHub(wsHub)
		orchestrator.AddListener(wsHub.BroadcastEvent)
	}

	logStartupConfig()
	return nil
}

func initProviders() error {
	apiKey := config.OpenAIAPIKey()

	// Speech synthesis
	synthManager = tts.NewProviderManager(logger, appConfig.TTS.DefaultProvider)

	switch appConfig.TTS.DefaultProvider {
	case "yating":
		provider := tts.NewYatingProvider(logger, &appConfig.TTS.Yating, appConfig.TTS.SampleRate, appConfig.TTS.RequestTimeout)
		if err := synthManager.RegisterProvider(provider); err != nil {
			return err
		}
	case "openai":
		provider := tts.NewOpenAIProvider(logger, apiKey, appConfig.TTS.SampleRate)
		if err := synthManager.RegisterProvider(provider); err != nil {
			return err
		}
	default:
		logger.WithField("provider", appConfig.TTS.DefaultProvider).Warn("Unknown synthesis provider, using mock")
		synthManager = tts.NewProviderManager(logger, "mock")
		if err := synthManager.RegisterProvider(tts.NewMockProvider(logger, appConfig.TTS.SampleRate)); err != nil {
			return err
		}
	}

	// Speech recognition
	switch appConfig.STT.DefaultProvider {
	case "google":
		transcriber = stt.NewGoogleTranscriber(logger, &appConfig.STT.Google, appConfig.STT.Language)
	case "openai":
		transcriber = stt.NewOpenAITranscriber(logger, apiKey, &appConfig.STT)
	default:
		logger.WithField("provider", appConfig.STT.DefaultProvider).Warn("Unknown transcription provider, using mock")
		transcriber = stt.NewMockTranscriber(logger)
	}
	if err := transcriber.Initialize(); err != nil {
		return err
	}

	// Semantic scoring
	openAIScorer := llm.NewOpenAIScorer(logger, apiKey, &appConfig.LLM)
	if err := openAIScorer.Initialize(); err != nil {
		return err
	}
	scorer = openAIScorer

	return nil
}

func initStorage() error {
	var err error
	switch appConfig.Storage.Backend {
	case "minio":
		store, err = storage.NewMinioStore(logger, &appConfig.Storage.Minio)
	case "memory":
		store = storage.NewMemoryStore()
	default:
		store, err = storage.NewLocalStore(logger, appConfig.Storage.Root)
	}
	return err
}

func initMessaging() {
	if appConfig.Messaging.AMQPUrl == "" {
		logger.Info("AMQP URL not configured, event publishing disabled")
		return
	}

	amqpPublisher = messaging.NewAMQPPublisher(logger, messaging.AMQPConfig{
		URL:       appConfig.Messaging.AMQPUrl,
		QueueName: appConfig.Messaging.QueueName,
		Durable:   true,
	})

	if err := amqpPublisher.Connect(); err != nil {
		logger.WithError(err).Warn("Failed to connect to AMQP, event publishing disabled")
		amqpPublisher = nil
	}
}

func logStartupConfig() {
	logger.WithFields(logrus.Fields{
		"http_port":    appConfig.HTTP.Port,
		"tts_provider": appConfig.TTS.DefaultProvider,
		"stt_provider": appConfig.STT.DefaultProvider,
		"llm_model":    appConfig.LLM.Model,
		"storage":      appConfig.Storage.Backend,
		"workers":      appConfig.Jobs.Workers,
	}).Info("Voice QA server starting")
}
