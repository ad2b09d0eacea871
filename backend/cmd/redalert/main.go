package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/jmoiron/sqlx"
	mqttbroker "github.com/mochi-mqtt/server/v2"
	"github.com/mochi-mqtt/server/v2/hooks/auth"
	"github.com/mochi-mqtt/server/v2/listeners"
	"github.com/redis/go-redis/v9"

	"redalert/backend/internal/account"
	"redalert/backend/internal/api"
	identity "redalert/backend/internal/auth"
	"redalert/backend/internal/config"
	ingest "redalert/backend/internal/mqtt"
	"redalert/backend/internal/monitor"
	"redalert/backend/internal/notify"
	"redalert/backend/internal/realtime"
	"redalert/backend/internal/services"
	"redalert/backend/internal/session"
	sharedapi "redalert/backend/internal/shared/api"
	"redalert/backend/internal/shared/helpers"
	"redalert/backend/pkg/generate"
	"redalert/backend/pkg/mqtt"
	"redalert/backend/pkg/router"
	"redalert/backend/pkg/utils"
)

func main() {
	sigCtx, sigCancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer sigCancel()

	config, err := config.New()
	if err != nil {
		fatalIfErr(slog.Default(), fmt.Errorf("failed to create config: %w", err))
	}

	defer func() {
		if err := config.Close(); err != nil {
			slog.Default().Error("failed to close config", utils.ErrAttr(err))
		}
	}()

	logger := helpers.GetLogger(config)

	if config.SessionSecretGenerated {
		logger.Warn("SESSION_SECRET not set, using a random secret; sessions will not survive a restart")
	}

	db, err := helpers.OpenDatabase(sigCtx, logger, config)
	fatalIfErr(logger, err)

	defer utils.LogOnError(logger, db.Close, "failed to close database")

	// Builders
	mb, err := mqtt.NewMQTTBuilder(logger, mqtt.MQTTClientOptions{
		BrokerURL: config.MQTTBroker,
		ClientID:  config.MQTTClientID,
		Username:  config.MQTTUsername,
		Password:  config.MQTTPassword,
	})
	fatalIfErr(logger, err)

	gateway := realtime.NewGateway(logger, realtime.NewSQLStore(db), realtime.NewMQTTBus(logger, mb.Client()))
	mqttHandler := ingest.NewMQTTHandler(logger, gateway)

	registerMQTTHandlers(logger, mb, mqttHandler)

	sessions, closeSessions := getSessionStore(logger, config)
	defer closeSessions()

	notifier := notify.NewMQTTNotifier(logger, mb.Client())
	monitors := monitor.NewManager(logger,
		gateway,
		notify.NewDispatcher(logger, notifier, config.AlertLead),
		config.FreshnessWindow,
	)

	svc := getServices(logger, config, db, gateway, sessions, monitors, mb)
	apiHandler := api.NewHandler(logger, svc, config.ResponderAPIKey)

	rb := router.NewRouteBuilder(logger, chi.NewRouter())
	registerHTTPHandlers(logger, rb, apiHandler)

	if config.Generate {
		err = generate.Generate(sigCtx, logger, api.DocsInfo(), generate.Sources{
			Routes:  rb,
			MQTT:    mb,
			DB:      db,
			Dialect: config.Dialect,
			TypePackages: []string{
				"redalert/backend/internal/shared/types",
				"redalert/backend/internal/mqtt/types",
			},
		}, config.DocsDir)
		if err != nil {
			fatalIfErr(logger, fmt.Errorf("failed to generate API documentation: %w", err))
		}

		logger.Info("API documentation generated", slog.String("dir", config.DocsDir))

		return
	}

	// MQTT Broker
	mqttAddr := fmt.Sprintf(":%d", config.MQTTBrokerPort)
	mqttBroker, err := getMQTTServer(logger, mqttAddr, ingest.BrokerCredentials{
		ClientID: config.MQTTClientID,
		Username: config.MQTTUsername,
		Password: config.MQTTPassword,
	})
	fatalIfErr(logger, err)

	go func() {
		logger.Info("MQTT broker listening", slog.String("address", mqttAddr))

		if err := mqttBroker.Serve(); err != nil {
			logger.Error("MQTT broker failed", utils.ErrAttr(err))
			sigCancel()
		}
	}()

	fatalIfErr(logger, mb.Connect())
	fatalIfErr(logger, gateway.Prime(sigCtx))

	ingestCtx, ingestCancel := context.WithCancel(context.WithoutCancel(sigCtx))
	mqttHandler.Start(ingestCtx)

	// HTTP Server
	httpServer := sharedapi.NewHTTPServer(logger, fmt.Sprintf(":%d", config.Port), rb.Router())
	httpServer.StartOnBackground(sigCancel)

	// Wait for signal (either OS or some failure)
	<-sigCtx.Done()
	logger.Info("received signal, shutting down...")

	logger.Info("http server shutting down...")

	if err := httpServer.ShutdownWithDefaultTimeout(); err != nil {
		logger.Error("http server shutdown failed", utils.ErrAttr(err))
	}

	logger.Info("stopping device monitors...", slog.Int("monitors", monitors.Len()))
	monitors.Close()
	notifier.Close()

	ingestCancel()
	mqttHandler.Wait()

	logger.Info("disconnecting from MQTT broker...")
	mb.Disconnect()

	logger.Info("mqtt broker shutting down...")

	if err := mqttBroker.Close(); err != nil {
		logger.Error("mqtt broker shutdown failed", utils.ErrAttr(err))
	}

	logger.Info("server exited gracefully")
}

func getMQTTServer(l *slog.Logger, addr string, creds ingest.BrokerCredentials) (*mqttbroker.Server, error) {
	server := mqttbroker.New(&mqttbroker.Options{
		Logger: l.With(slog.String("component", "mqtt-broker")),
	})
	tcp := listeners.NewTCP(listeners.Config{ID: "tcp", Address: addr})

	err := server.AddListener(tcp)
	if err != nil {
		return nil, err
	}

	if err := server.AddHook(new(auth.Hook), &auth.Options{Ledger: ingest.BrokerLedger(creds)}); err != nil {
		return nil, err
	}

	return server, nil
}

// getSessionStore uses Redis when configured and memory otherwise.
//
//nolint:ireturn // Returns the session.Store matching the configuration
func getSessionStore(l *slog.Logger, c *config.Config) (session.Store, func()) {
	if c.RedisAddr == "" {
		l.Info("Keeping sessions in memory")
		return session.NewMemoryStore(c.SessionTTL), func() {}
	}

	client := redis.NewClient(&redis.Options{
		Addr:     c.RedisAddr,
		Password: c.RedisPassword,
		DB:       c.RedisDB,
	})

	l.Info("Keeping sessions in Redis", slog.String("addr", c.RedisAddr))

	return session.NewRedisStore(client, c.SessionTTL), func() {
		utils.LogOnError(l, client.Close, "failed to close redis client")
	}
}

//nolint:ireturn // Returns the identity.Mailer matching the configuration
func getMailer(l *slog.Logger, c *config.Config) identity.Mailer {
	if c.SMTPHost == "" {
		l.Info("SMTP_HOST not set, outgoing mail is logged only")
		return identity.NewLogMailer(l)
	}

	mailer, err := identity.NewSMTPMailer(identity.SMTPConfig{
		Host:     c.SMTPHost,
		Port:     c.SMTPPort,
		Username: c.SMTPUsername,
		Password: c.SMTPPassword,
		From:     c.SMTPFrom,
	})
	fatalIfErr(l, err)

	return mailer
}

func getServices(
	l *slog.Logger,
	c *config.Config,
	db *sqlx.DB,
	gateway *realtime.Gateway,
	sessions session.Store,
	monitors *monitor.Manager,
	mb *mqtt.MQTTBuilder,
) *services.Services {
	users := identity.NewService(l, identity.NewSQLStore(db), getMailer(l, c), c.PublicURL)

	acc := account.NewService(l, account.Deps{
		Identity:   users,
		Database:   gateway,
		Sessions:   sessions,
		Issuer:     session.NewIssuer(c.SessionSecret, c.SessionTTL),
		Monitors:   monitors,
		SessionTTL: c.SessionTTL,
	})

	return services.NewServices(l,
		services.NewCoreService(l, mb, gateway, sessions),
		acc,
		monitors,
		services.NewResponderService(l, gateway),
	)
}

// registerHTTPHandlers registers all HTTP handlers.
func registerHTTPHandlers(l *slog.Logger, rb *router.RouteBuilder, h *api.Handler) {
	l.Info("Registering HTTP handlers...")

	mw := sharedapi.NewMiddlewareHandler(l)

	rb.Route("/api", func(rb *router.RouteBuilder) {
		rb.Use(mw.RequestIDMiddleware)
		rb.Use(mw.LoggerMiddleware)
		rb.Use(mw.RecoveryMiddleware)

		h.RegisterRoutes(rb)
		h.RegisterDocs(rb)
	})

	l.Info("HTTP handlers registered successfully", slog.Int("routes", len(rb.Routes())))
}

// registerMQTTHandlers registers every publication and subscription before
// the first connect.
func registerMQTTHandlers(l *slog.Logger, mb *mqtt.MQTTBuilder, h *ingest.Handler) {
	l.Info("Registering MQTT handlers...")

	realtime.RegisterPublications(mb)
	notify.RegisterPublications(mb)

	h.RegisterTelemetrySubscribe(mb)
	h.RegisterSummarySubscribe(mb)

	l.Info("MQTT handlers registered successfully", slog.Int("operations", len(mb.Operations())))
}

func fatalIfErr(l *slog.Logger, err error) {
	if err == nil {
		return
	}

	l.Error("error", utils.ErrAttr(err))
	os.Exit(1)
}
