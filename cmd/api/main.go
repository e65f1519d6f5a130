package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog/log"

	"github.com/ariefcatur/go-storefront-orders/internal/cart"
	"github.com/ariefcatur/go-storefront-orders/internal/checkout"
	"github.com/ariefcatur/go-storefront-orders/internal/config"
	"github.com/ariefcatur/go-storefront-orders/internal/events"
	"github.com/ariefcatur/go-storefront-orders/internal/httpx"
	kafkax "github.com/ariefcatur/go-storefront-orders/internal/kafka"
	"github.com/ariefcatur/go-storefront-orders/internal/logging"
	"github.com/ariefcatur/go-storefront-orders/internal/memstore"
	"github.com/ariefcatur/go-storefront-orders/internal/metrics"
	"github.com/ariefcatur/go-storefront-orders/internal/orders"
	"github.com/ariefcatur/go-storefront-orders/internal/payment"
	"github.com/ariefcatur/go-storefront-orders/internal/postgres"
	"github.com/ariefcatur/go-storefront-orders/internal/redisx"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load(".")
	if err != nil {
		log.Fatal().Err(err).Msg("config")
	}
	logging.Setup(cfg.LogLevel, cfg.ServiceName, cfg.LogPretty)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Store
	var store orders.Store
	switch cfg.StoreDriver {
	case "memory":
		mem := memstore.New()
		mem.Seed(memstore.DemoCatalog(time.Now().UTC()))
		store = mem
		log.Warn().Msg("using in-memory store, data is lost on restart")
	default:
		db, err := postgres.Connect(ctx, cfg.PostgresDSN)
		if err != nil {
			log.Fatal().Err(err).Msg("db connect")
		}
		defer db.Close()
		if err := postgres.Migrate(ctx, db); err != nil {
			log.Fatal().Err(err).Msg("db migrate")
		}
		if cfg.SeedCatalog {
			if err := postgres.SeedProducts(ctx, db, memstore.DemoCatalog(time.Now().UTC())); err != nil {
				log.Fatal().Err(err).Msg("db seed")
			}
		}
		store = &orders.Repo{DB: db}
	}

	// Payments
	var proc payment.Processor
	if cfg.PaymentProvider == "stripe" {
		proc = payment.NewStripe(cfg.StripeSecretKey)
	} else {
		proc = payment.NewMock()
		log.Warn().Msg("using mock payment processor")
	}

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()
	var (
		idem   httpx.Idempotency
		status httpx.StatusCache
	)
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Warn().Err(err).Msg("redis unavailable, idempotency keys and status cache disabled")
	} else {
		idem = &redisx.Idempotency{RDB: rdb}
		status = &redisx.StatusCache{RDB: rdb}
	}

	// Kafka producers
	pPlaced := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicOrderPlaced, 1024)
	pPlaced.Start(ctx)
	pStatus := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicOrderStatus, 1024)
	pStatus.Start(ctx)
	sink := &events.Sink{Placed: pPlaced, Status: pStatus, Producer: cfg.ServiceName}

	// Metrics
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.NewServerMetrics(reg, "api")

	// Checkout
	coord := &checkout.Coordinator{Store: store, DeliveryWindow: cfg.DeliveryWindow(), Observer: m}
	preparer := checkout.NewPaymentPreparer(store, proc)
	preparer.Currency = cfg.Currency
	preparer.Pricing = checkout.Pricing{Shipping: cfg.ShippingCost, TaxRate: cfg.TaxRate}

	if cfg.FulfillmentToken == "" {
		log.Warn().Msg("FULFILLMENT_TOKEN not set, order completion is disabled")
	}

	router := httpx.NewRouter(m, reg)
	httpx.Mount(router,
		&httpx.ProductsHandler{Catalog: store},
		&httpx.CartHandler{Cart: &cart.Service{Store: store}},
		&httpx.OrdersHandler{
			Checkout: &checkout.Checkout{
				Card:   &checkout.CardStrategy{Coordinator: coord, Payments: proc, Pricing: preparer.Pricing},
				Cash:   &checkout.CashStrategy{Coordinator: coord},
				Events: sink,
			},
			Preparer:         preparer,
			Lifecycle:        &checkout.Lifecycle{Store: store, Events: sink},
			FulfillmentToken: cfg.FulfillmentToken,
			Idempotency:      idem,
			Status:           status,
		},
	)

	// HTTP server
	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router, ReadHeaderTimeout: 5 * time.Second}

	// graceful shutdown
	go func() {
		log.Info().Str("addr", cfg.HTTPAddr).Str("store", cfg.StoreDriver).Msg("HTTP listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("listen")
		}
	}()

	// wait signal
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Info().Msg("shutting down...")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)
	pPlaced.Close() // tutup inbox -> flush & close writer
	pStatus.Close()
	pPlaced.WaitClosed()
	pStatus.WaitClosed()
}
