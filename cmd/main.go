package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/fjod/go_cart/storefront/internal/broadcast"
	c "github.com/fjod/go_cart/storefront/internal/cache"
	"github.com/fjod/go_cart/storefront/internal/cart"
	"github.com/fjod/go_cart/storefront/internal/checkout"
	"github.com/fjod/go_cart/storefront/internal/config"
	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/gateway"
	h "github.com/fjod/go_cart/storefront/internal/http"
	"github.com/fjod/go_cart/storefront/internal/logger"
	"github.com/fjod/go_cart/storefront/internal/poller"
	"github.com/fjod/go_cart/storefront/internal/publisher"
	"github.com/fjod/go_cart/storefront/internal/repository"
	"github.com/fjod/go_cart/storefront/internal/selection"
	"github.com/fjod/go_cart/storefront/internal/session"
	"github.com/fjod/go_cart/storefront/internal/stock"
	"github.com/fjod/go_cart/storefront/internal/voucher"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func main() {
	cfg := config.Load()
	log := logger.Init(os.Stdout, cfg.LogLevel)
	log.Info("storefront starting", "port", cfg.HTTPPort, "instance", cfg.InstanceID)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Session and remote collaborators
	sess := session.New()
	sess.SetRefresher(gateway.NewAuthAPI(gateway.NewClient("auth", cfg.AuthBaseURL, nil, cfg.GatewayTimeout)))

	cartAPI := gateway.NewCartAPI(gateway.NewClient("cart", cfg.CartBaseURL, sess, cfg.GatewayTimeout))
	productAPI := gateway.NewProductAPI(gateway.NewClient("product", cfg.ProductBaseURL, sess, cfg.GatewayTimeout))
	voucherAPI := gateway.NewVoucherAPI(gateway.NewClient("voucher", cfg.VoucherBaseURL, sess, cfg.GatewayTimeout))
	purchaseAPI := gateway.NewPurchaseAPI(gateway.NewClient("purchase", cfg.PurchaseBaseURL, sess, cfg.GatewayTimeout))

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: os.Getenv("REDIS_PASSWORD"),
		DB:       0,
	})
	defer redisClient.Close()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Error("redis connection failed", "addr", cfg.RedisAddr, "error", err)
		os.Exit(1)
	}
	log.Info("redis ping succeeded", "addr", cfg.RedisAddr)
	store := c.NewRedisStore(redisClient)

	// Cart and selection. The tracker restores after the cart reload that a
	// login, logout or subject switch triggers, so WatchSession must be
	// registered first.
	manager := cart.NewManager(cartAPI, sess)
	manager.WatchSession(sess, cfg.GatewayTimeout)

	tracker := selection.NewTracker(manager, sess, store)
	manager.OnReplace(tracker.Reconcile)
	sess.OnChange(func(present bool) {
		if !present {
			tracker.Reset()
			return
		}
		rctx, cancel := context.WithTimeout(context.Background(), cfg.GatewayTimeout)
		defer cancel()
		if err := tracker.Restore(rctx); err != nil {
			log.Warn("selection restore failed", "error", err)
		}
	})

	// Outbox and invalidation broadcast
	repo, err := repository.NewRepository(cfg.OutboxPath)
	if err != nil {
		log.Error("failed to open outbox", "path", cfg.OutboxPath, "error", err)
		os.Exit(1)
	}
	defer repo.Close()
	if err := repo.RunMigrations(); err != nil {
		log.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}
	log.Info("outbox migrations completed", "path", cfg.OutboxPath)

	bus := broadcast.NewBus()
	signaller := broadcast.NewSignal(bus, repo)
	unsubscribe := bus.Subscribe(func(inv domain.Invalidation) {
		subject := sess.Subject()
		if subject == "" || inv.Subject != subject {
			return
		}
		rctx, cancel := context.WithTimeout(context.Background(), cfg.GatewayTimeout)
		defer cancel()
		if err := manager.HandleEvent(rctx, cart.EventInvalidated); err != nil {
			log.Warn("cart reload after invalidation failed", "invalidation", inv.ID, "error", err)
		}
	})
	defer unsubscribe()

	writer := publisher.NewKafkaWriter(cfg.InvalidationTopic, cfg.KafkaBrokers...)
	defer writer.Close()
	outbox := publisher.NewOutboxPoller(repo, writer)

	consumer := poller.NewPoller(
		poller.NewReader(cfg.InvalidationTopic, "storefront-"+cfg.InstanceID, cfg.KafkaBrokers...),
		bus,
	)

	var workers sync.WaitGroup
	workers.Add(2)
	go func() {
		defer workers.Done()
		outbox.Run(ctx)
	}()
	go func() {
		defer workers.Done()
		consumer.Run(ctx)
	}()

	// Checkout
	vouchers := voucher.NewEngine(voucherAPI)
	checkoutService := checkout.NewCheckoutService(checkout.Deps{
		Credentials: sess,
		Cart:        manager,
		Selection:   tracker,
		Stock:       stock.NewPipeline(productAPI, cfg.StockConcurrency),
		Vouchers:    vouchers,
		Purchases:   purchaseAPI,
		Signal:      signaller,
	})

	handler := h.NewHandler(h.Deps{
		Cart:      manager,
		Selection: tracker,
		Vouchers:  vouchers,
		Checkout:  checkoutService,
		Session:   sess,
		State:     store,
	}, cfg.RequestTimeout, cfg.MaxRequestBody)

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      otelhttp.NewHandler(handler.Routes(), "storefront"),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("storefront listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()

	log.Info("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", "error", err)
	}
	consumer.Close()
	workers.Wait()

	log.Info("server exited")
}
