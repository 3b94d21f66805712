package main

import (
	"context"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/sirupsen/logrus"

	"backend-kantin/internal/admission"
	"backend-kantin/internal/config"
	"backend-kantin/internal/http/handler"
	"backend-kantin/internal/idempotency"
	"backend-kantin/internal/ledger"
	"backend-kantin/internal/realtime"
	"backend-kantin/internal/schedule"
	"backend-kantin/internal/store"
)

func main() {
	runtime.GOMAXPROCS(runtime.NumCPU())

	envErr := config.LoadEnv()
	settings := config.Load()
	logger := config.NewLogger(settings.LogLevel, settings.LogFormat)
	if envErr != nil {
		logger.WithError(envErr).Info(".env tidak ditemukan, pakai env system")
	}

	if err := run(settings, logger); err != nil {
		logger.WithError(err).Fatal("server berhenti")
	}
}

func run(settings config.Settings, logger *logrus.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if settings.JWTSecret == "" {
		logger.Warn("JWT_SECRET kosong, token tidak aman")
	}

	db, err := config.OpenDB(ctx, settings)
	if err != nil {
		return err
	}
	defer db.Close()

	st := store.New(db, settings.DBDriver)
	if err := st.Migrate(ctx); err != nil {
		return err
	}

	sched, err := schedule.Load(settings.Sessions, settings.Timezone)
	if err != nil {
		return err
	}
	for _, w := range sched.Windows() {
		logger.WithFields(logrus.Fields{
			"session": w.Name,
			"open":    w.OpenClock(),
			"close":   w.CloseClock(),
		}).Info("jadwal sesi")
	}
	resolver := schedule.NewResolver(sched, st, schedule.RealClock(), logger)

	hub := realtime.NewHub(settings.BroadcastBuffer, logger)
	go hub.Run(ctx)

	var idem idempotency.Store = idempotency.NewMemoryStore(idempotency.DefaultTTL)
	rdb, err := config.InitRedis(ctx, settings)
	if err != nil {
		logger.WithError(err).Warn("redis tidak tersedia, idempotency pakai memory")
	} else if rdb != nil {
		defer rdb.Close()
		idem = idempotency.NewRedisStore(rdb, idempotency.DefaultTTL)
		logger.Info("idempotency pakai redis")
	}

	if settings.AMQPURL != "" {
		pub, err := realtime.DialAMQP(settings.AMQPURL, settings.AMQPExchange)
		if err != nil {
			logger.WithError(err).Warn("rabbitmq tidak tersedia, mirror event dimatikan")
		} else {
			defer pub.Close()
			go realtime.NewMirror(hub, pub, logger).Run(ctx)
			logger.WithField("exchange", settings.AMQPExchange).Info("mirror event ke rabbitmq aktif")
		}
	}

	svc := admission.NewService(st, resolver, ledger.New(st), hub, idem, logger)

	app := fiber.New(fiber.Config{
		Prefork:       false,
		CaseSensitive: true,
		StrictRouting: true,
	})

	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, Idempotency-Key",
		AllowMethods: "GET, POST, PUT, DELETE",
	}))

	handler.New(svc, st, hub, settings, logger).Register(app)

	addr := settings.AppHost + ":" + settings.AppPort
	errc := make(chan error, 1)
	go func() {
		logger.Infof("Server jalan di %s", addr)
		errc <- app.Listen(addr)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutdown...")
	return app.ShutdownWithTimeout(10 * time.Second)
}
