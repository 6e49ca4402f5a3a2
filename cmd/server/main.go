package main

import (
    "log"

    "github.com/joho/godotenv"
    "github.com/labstack/echo/v4"

    "github.com/aquadapt/swimbook/internal/config"
    "github.com/aquadapt/swimbook/internal/database"
    "github.com/aquadapt/swimbook/internal/handler"
    appmw "github.com/aquadapt/swimbook/internal/middleware"
    "github.com/aquadapt/swimbook/internal/queue"
    "github.com/aquadapt/swimbook/internal/repository"
    "github.com/aquadapt/swimbook/internal/router"
    "github.com/aquadapt/swimbook/internal/service"
    "github.com/aquadapt/swimbook/internal/utils"
)

func main() {
    // .env is a development convenience; missing file is fine.
    _ = godotenv.Load()

    cfg := config.Load()

    db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
    if err != nil {
        log.Fatalf("database connect failed: %v", err)
    }
    defer db.Close()

    // Redis is optional: without it the limiter and the availability cache
    // disable themselves and everything else keeps working.
    rdb := config.NewRedisClient()
    if rdb == nil {
        log.Println("redis unavailable; rate limiting and response cache disabled")
    }

    // Row repositories.
    users := repository.NewUserRepo(db)
    tokens := repository.NewTokenRepo(db)
    swimmers := repository.NewSwimmerRepo(db)
    sessions := repository.NewSessionRepo(db)
    bookings := repository.NewBookingRepo(db)
    orders := repository.NewPurchaseOrderRepo(db)

    // Transactional flow stores.
    bookingFlow := repository.NewBookingFlowRepo(db, sessions, bookings, orders, swimmers)
    authFlow := repository.NewAuthorizationFlowRepo(db, orders, bookings, sessions)

    var notifier service.Notifier = service.NopNotifier{}
    if cfg.AMQPURL != "" {
        notifier = service.NewAMQPNotifier(cfg.AMQPURL)
        go func() {
            if err := queue.StartNotificationConsumer(cfg.AMQPURL); err != nil {
                log.Printf("notification consumer stopped: %v", err)
            }
        }()
    }

    holds := service.NewHoldService(sessions, cfg.HoldDuration)
    ledger := service.NewLedgerService(authFlow, notifier)
    booking := service.NewBookingService(bookingFlow, ledger, notifier, cfg.DailyLimit)

    e := echo.New()
    e.HideBanner = true
    e.Validator = utils.NewRequestValidator()

    router.Register(e, router.Handlers{
        Auth:     handler.NewAuthHandler(cfg, users, tokens),
        Sessions: handler.NewSessionHandler(sessions, holds),
        Admin:    handler.NewSessionAdminHandler(sessions, booking),
        Bookings: handler.NewBookingHandler(booking, bookings),
        Orders:   handler.NewPurchaseOrderHandler(orders, swimmers, ledger, uint32(cfg.RenewalAlert)),
        Swimmers: handler.NewSwimmerHandler(swimmers),
    }, cfg.JWTSecret,
        appmw.NewTokenBucket(config.LoadRateLimitConfig(), rdb),
        appmw.NewRedisCache(config.LoadCacheConfig(), rdb))

    addr := ":" + cfg.Port
    log.Printf("listening on %s (env=%s)", addr, cfg.Env)
    if err := e.Start(addr); err != nil {
        log.Fatal(err)
    }
}
