package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"slices"

	"github.com/niksmo/farm-bridge/config"
	"github.com/niksmo/farm-bridge/internal/adapter/httphandler"
	"github.com/niksmo/farm-bridge/internal/adapter/kafka"
	"github.com/niksmo/farm-bridge/internal/adapter/storage"
	"github.com/niksmo/farm-bridge/internal/core/port"
	"github.com/niksmo/farm-bridge/internal/core/service"
	"github.com/niksmo/farm-bridge/pkg/schema"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/twmb/franz-go/pkg/sr"
)

type serdes struct {
	product       schema.Serde
	productFilter schema.Serde
}

type producers struct {
	products      kafka.ProductsProducer
	productFilter kafka.ProductFilterProducer
}

type processors struct {
	productFilter  *kafka.ProductFilterProcessor
	productBlocker *kafka.ProductBlockerProcessor
}

type repositories struct {
	sqldb    storage.SQLDB
	cache    *storage.RedisCache
	products port.ProductsStorage
	orders   storage.OrdersRepository
}

type App struct {
	ctx              context.Context
	cfg              config.Config
	serdes           serdes
	producers        producers
	processors       processors
	repositories     repositories
	service          service.Service
	productsConsumer kafka.ProductsConsumer
	httpServer       httphandler.HTTPServer

	// released in reverse order when startup fails
	closers []func()
}

// New builds every adapter and the core service.
// The context bounds startup pings and schema registration.
func New(ctx context.Context, cfg config.Config) (*App, error) {
	const op = "App.New"

	app := &App{ctx: ctx, cfg: cfg}
	app.initLogger()

	steps := []func() error{
		app.initSerdes,
		app.initStorage,
		app.initProducers,
		app.initProcessors,
		app.initCoreService,
		app.initConsumers,
		app.initHTTPServer,
	}
	for _, step := range steps {
		if err := step(); err != nil {
			app.release()
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}

	return app, nil
}

func (app *App) release() {
	for _, closeFn := range slices.Backward(app.closers) {
		closeFn()
	}
	app.closers = nil
}

func (app *App) initLogger() {
	opts := &slog.HandlerOptions{Level: app.cfg.LogLevel}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, opts))
	slog.SetDefault(logger)
}

func (app *App) initSerdes() error {
	const op = "App.initSerdes"
	urls := app.cfg.Broker.SchemaRegistryURLs
	topics := app.cfg.Broker.Topics

	srClient, err := sr.NewClient(sr.URLs(urls...))
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	schemaCreater := schema.NewSchemaCreater(srClient)

	productSerde, err := schema.NewSerdeProductV1(
		app.ctx,
		schema.TopicSubjectOpt(topics.ProductsFromAdmin, topics.ProductsToStorage),
		schema.SchemaIdentifierOpt(schemaCreater),
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	productFilterSerde, err := schema.NewSerdeProductFilterV1(
		app.ctx,
		schema.TopicSubjectOpt(topics.FilterProductStream),
		schema.SchemaIdentifierOpt(schemaCreater),
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	app.serdes.product = productSerde
	app.serdes.productFilter = productFilterSerde
	return nil
}

func (app *App) initStorage() error {
	const op = "App.initStorage"

	sqldb, err := storage.NewSQLDB(app.ctx, app.cfg.SQLDB)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	app.repositories.sqldb = sqldb
	app.closers = append(app.closers, sqldb.Close)
	app.repositories.products = storage.NewProductsRepository(sqldb)
	app.repositories.orders = storage.NewOrdersRepository(sqldb)

	redisCfg := app.cfg.Redis
	if redisCfg.Addr == "" {
		return nil
	}

	cache, err := storage.NewRedisCache(
		app.ctx, redisCfg.Addr, redisCfg.Password, redisCfg.DB,
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	app.repositories.cache = &cache
	app.closers = append(app.closers, cache.Close)
	app.repositories.products = storage.NewCachedProductsRepository(
		app.repositories.products, cache, redisCfg.SnapshotTTL,
	)
	return nil
}

func (app *App) initProducers() error {
	const op = "App.initProducers"

	seedBrokers := app.cfg.Broker.SeedBrokers
	topics := app.cfg.Broker.Topics

	productsProducer, err := kafka.NewProductsProducer(
		kafka.ProducerClientOpt(app.ctx, seedBrokers, topics.ProductsFromAdmin),
		kafka.ProducerEncoderOpt(app.serdes.product),
		kafka.ProducerBreakerOpt(topics.ProductsFromAdmin),
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	app.closers = append(app.closers, productsProducer.Close)

	productFilterProducer, err := kafka.NewProductFilterProducer(
		kafka.ProducerClientOpt(app.ctx, seedBrokers, topics.FilterProductStream),
		kafka.ProducerEncoderOpt(app.serdes.productFilter),
		kafka.ProducerBreakerOpt(topics.FilterProductStream),
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	app.closers = append(app.closers, productFilterProducer.Close)

	app.producers.products = productsProducer
	app.producers.productFilter = productFilterProducer
	return nil
}

func (app *App) initProcessors() error {
	const op = "App.initProcessors"

	seedBrokers := app.cfg.Broker.SeedBrokers
	topics := app.cfg.Broker.Topics

	productFilterProc, err := kafka.NewProductFilterProc(
		seedBrokers,
		topics.FilterProductStream,
		topics.FilterProductTable,
		app.serdes.productFilter,
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	productBlockerProc, err := kafka.NewProductBlockerProc(
		seedBrokers,
		app.cfg.Broker.Consumers.ProductBlockerGroup,
		topics.ProductsFromAdmin,
		topics.FilterProductTable,
		topics.ProductsToStorage,
		app.serdes.product,
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	app.processors.productFilter = productFilterProc
	app.processors.productBlocker = productBlockerProc
	return nil
}

func (app *App) initCoreService() error {
	app.service = service.New(
		app.producers.products,
		app.producers.productFilter,
		app.repositories.products,
		app.repositories.orders,
		app.processors.productFilter,
		app.processors.productBlocker,
	)
	return nil
}

func (app *App) initConsumers() error {
	const op = "App.initConsumers"

	productsConsumer, err := kafka.NewProductsConsumer(
		kafka.ConsumerClientOpt(
			app.cfg.Broker.SeedBrokers,
			app.cfg.Broker.Topics.ProductsToStorage,
			app.cfg.Broker.Consumers.ProductSaverGroup,
		),
		kafka.ConsumerDecoderOpt(app.serdes.product),
		kafka.ProductsConsumerSaverOpt(app.service),
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	app.productsConsumer = productsConsumer
	app.closers = append(app.closers, productsConsumer.Close)
	return nil
}

func (app *App) initHTTPServer() error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := httphandler.NewMetrics(reg)

	mux := http.NewServeMux()
	httphandler.RegisterProducts(mux, app.service, app.service, app.service)
	httphandler.RegisterCategories(mux, app.service)
	httphandler.RegisterOrders(mux, app.service)
	httphandler.RegisterFilter(mux, app.service)
	httphandler.RegisterMetrics(mux, reg)

	handler := httphandler.LogRequest(
		metrics.Middleware(httphandler.AllowJSON(mux)),
	)
	app.httpServer = httphandler.NewHTTPServer(
		app.cfg.HTTPServerAddr, handler, app.cfg.HTTPHandlerTimeout,
	)
	return nil
}

// Run blocks until the moderation processors are ready,
// then starts the consumer and the http server.
//
// stopFn is called when any of the components stops unexpectedly.
func (app *App) Run(stopFn context.CancelFunc) {
	app.service.Run(app.ctx, stopFn)
	go app.productsConsumer.Run(app.ctx)
	go app.httpServer.Run(stopFn)

	slog.Info("application is running")
}

func (app *App) Close(ctx context.Context) {
	slog.Info("application is closing...")

	app.httpServer.Close(ctx)
	app.productsConsumer.Close()
	app.service.Close()
	app.producers.products.Close()
	app.producers.productFilter.Close()
	if app.repositories.cache != nil {
		app.repositories.cache.Close()
	}
	app.repositories.sqldb.Close()

	slog.Info("application is closed")
}
