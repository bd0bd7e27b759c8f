package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"stillwater/internal/api"
	"stillwater/internal/audit"
	"stillwater/internal/cache"
	"stillwater/internal/calendar"
	"stillwater/internal/config"
	"stillwater/internal/events"
	"stillwater/internal/flow"
	"stillwater/internal/metrics"
	"stillwater/internal/notify"
	"stillwater/internal/payment"
	"stillwater/internal/reminders"
	"stillwater/internal/repository"
	"stillwater/internal/service"
	"stillwater/internal/storage"
	"stillwater/internal/sweeper"
	"stillwater/internal/ws"
)

func main() {
	_ = godotenv.Load()

	output := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	logger := zerolog.New(output).With().Timestamp().Logger()

	cfg, err := config.Load(os.Getenv("STILLWATER_CONFIG_PATH"))
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	loc := cfg.Location()

	store, err := storage.New(cfg.DSN(), storage.Options{
		MaxOpenConns:    cfg.Postgres.MaxOpenConns,
		MaxIdleConns:    cfg.Postgres.MaxIdleConns,
		ConnMaxLifetime: time.Duration(cfg.Postgres.ConnLifetimeMin) * time.Minute,
	}, &logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("open postgres error")
	}
	defer store.Close()

	var availability *cache.AvailabilityCache
	var slots service.SlotReader = store
	if cfg.Redis.Address != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		availability = cache.New(rdb, cfg.CacheTTL(), &logger)
		slots = repository.NewFailoverSlotReader(store, availability, &logger)
	} else {
		logger.Warn().Msg("redis not configured; availability has no fallback path")
	}

	var gateway *payment.Client
	if cfg.Payment.KeyID != "" {
		gateway, err = payment.New(cfg.Payment.KeyID, cfg.Payment.KeySecret, &logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("payment gateway init error")
		}
	} else {
		logger.Warn().Msg("payment gateway not configured; paid sessions disabled")
	}

	cal := calendar.NewGenerator(cfg.AllowedWeekdays(), cfg.Booking.HorizonDays,
		cfg.PaidFrom(), calendar.DefaultWindow())

	bus := events.NewEventBus()
	trail := audit.NewTrail(store, &logger)
	defer trail.Close()

	hub := ws.NewHub(&logger, originChecker(cfg.Server.AllowedOrigins))
	go hub.Run()
	wireHub(bus, hub)

	if mailer, err := notify.NewEmailSender(notify.SMTPConfig{
		Host: cfg.SMTP.Host, Port: cfg.SMTP.Port,
		User: cfg.SMTP.User, Pass: cfg.SMTP.Pass, From: cfg.SMTP.From,
	}, &logger); err != nil {
		logger.Warn().Err(err).Msg("mail disabled")
	} else {
		notify.NewDispatcher(mailer, &logger).Attach(bus)

		reminder := reminders.NewService(store, mailer, loc, &logger)
		c := cron.New(cron.WithLocation(loc))
		if _, err := c.AddFunc("0 * * * *", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
			defer cancel()
			_ = reminder.Run(ctx)
		}); err != nil {
			logger.Error().Err(err).Msg("schedule reminders")
		}
		c.Start()
		defer c.Stop()
	}

	var gw service.PaymentGateway
	if gateway != nil {
		gw = gateway
	}
	engine := service.New(store, slots, cacheOrNil(availability), gw, bus, trail, cal,
		service.Config{
			PriceMinor:  cfg.Booking.PriceMinor,
			Currency:    cfg.Booking.Currency,
			MeetingHost: cfg.Booking.MeetingHost,
		}, loc, &logger)

	sweep := sweeper.NewService(sweeper.Config{
		Interval:   cfg.SweepInterval(),
		PendingTTL: cfg.PendingTTL(),
	}, store, engine, &logger)
	sweep.Start()
	defer sweep.Stop()

	if cfg.Monitoring.PrometheusEnabled {
		metrics.Register()
	}

	server := api.NewServer(engine, audit.NewExporter(store), hub.ServeWS,
		flow.NewSessionStore(30*time.Minute), api.Config{
			JWTSecret:      cfg.Server.JWTSecret,
			AdminEmails:    cfg.Server.AdminEmails,
			AllowedOrigins: cfg.Server.AllowedOrigins,
		}, &logger)

	root := http.NewServeMux()
	root.Handle("/", server.Router())
	if cfg.Monitoring.PrometheusEnabled {
		root.Handle("/metrics", promhttp.Handler())
	}

	readTimeout := 15 * time.Second
	if cfg.Server.ReadTimeoutSec > 0 {
		readTimeout = time.Duration(cfg.Server.ReadTimeoutSec) * time.Second
	}
	srv := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      root,
		ReadTimeout:  readTimeout,
		WriteTimeout: 30 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info().Str("address", cfg.Server.Address).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server shutdown")
	}
}

// wireHub relays slot events to connected websocket clients.
func wireHub(bus *events.EventBus, hub *ws.Hub) {
	relay := func(msgType string) events.EventHandler {
		return func(event events.Event) error {
			var payload events.SlotEvent
			if err := json.Unmarshal(event.Payload, &payload); err != nil {
				return err
			}
			hub.Broadcast(msgType, payload)
			return nil
		}
	}
	bus.Subscribe(events.TypeSlotBooked, relay("SLOT_BOOKED"))
	bus.Subscribe(events.TypeSlotReleased, relay("SLOT_RELEASED"))
}

func originChecker(allowed []string) func(r *http.Request) bool {
	if len(allowed) == 0 {
		return nil
	}
	set := make(map[string]bool, len(allowed))
	for _, origin := range allowed {
		set[origin] = true
	}
	return func(r *http.Request) bool {
		return set[r.Header.Get("Origin")]
	}
}

// cacheOrNil avoids handing the engine a typed nil interface.
func cacheOrNil(c *cache.AvailabilityCache) service.SlotCache {
	if c == nil {
		return nil
	}
	return c
}
