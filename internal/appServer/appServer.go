// launching the server, storage, compositor and the render event bus
package appServer

import (
	"context"
	"crypto/tls"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ds124wfegd/wallcraft/config"
	"github.com/ds124wfegd/wallcraft/internal/database"
	"github.com/ds124wfegd/wallcraft/internal/pkg/compositor"
	"github.com/ds124wfegd/wallcraft/internal/pkg/kafka"
	"github.com/ds124wfegd/wallcraft/internal/pkg/placeholder"
	"github.com/ds124wfegd/wallcraft/internal/pkg/rabbitMQ"
	"github.com/ds124wfegd/wallcraft/internal/pkg/source"
	"github.com/ds124wfegd/wallcraft/internal/pkg/storage"
	"github.com/ds124wfegd/wallcraft/internal/service"
	"github.com/ds124wfegd/wallcraft/internal/transport"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type Server struct {
	httpServer *http.Server
}

func (s *Server) Run(cfg *config.Config, handler http.Handler) error {
	s.httpServer = &http.Server{
		Addr:              cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:           handler,
		MaxHeaderBytes:    1 << 20,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      cfg.Server.Timeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
		ReadHeaderTimeout: 3 * time.Second,
		TLSConfig:         &tls.Config{MinVersion: tls.VersionTLS12},
		ErrorLog:          log.New(os.Stderr, "SERVER ERROR: ", log.LstdFlags),
	}
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// App is the wired application: the HTTP handler plus the background render
// consumer and everything that has to be released on shutdown.
type App struct {
	Handler http.Handler
	Service *service.Service

	consume  func(ctx context.Context) error
	closers  []func() error
	checks   []transport.HealthCheck
	storage  storage.FileStorage
	producer kafka.Producer
}

func Build(cfg *config.Config) (*App, error) {
	fileStorage, err := storage.NewFileStorage(cfg.App.StorageDir)
	if err != nil {
		return nil, err
	}
	app := &App{storage: fileStorage}
	app.checks = append(app.checks, transport.HealthCheck{Name: "storage", Check: func() error {
		if !fileStorage.Exists(".") {
			return errors.New("storage directory is gone")
		}
		return nil
	}})

	gallery := database.NewGalleryRepository(cfg.App.GalleryLimit)
	files := database.NewFileRepository(fileStorage)

	comp, err := compositor.New(compositor.Options{
		DecodeTimeout: cfg.Render.DecodeTimeout,
		EncodeTimeout: cfg.Render.EncodeTimeout,
		JPEGQuality:   cfg.Render.JPEGQuality,
		FontsDir:      cfg.Render.FontsDir,
		MaxPixels:     cfg.Render.MaxPixels,
	})
	if err != nil {
		_ = fileStorage.Cleanup()
		return nil, err
	}

	placeholders := placeholder.NewRenderer(comp.Fonts())

	opener := source.NewOpener(files, placeholders, &http.Client{Timeout: cfg.Source.FetchTimeout}, cfg.Source.MaxBytes)

	renderOpts := service.RenderOptions{
		DefaultResolution: cfg.App.DefaultResolution,
		RenderTimeout:     cfg.Render.RenderTimeout,
	}
	app.producer = app.events(cfg, &renderOpts)

	app.Service = service.NewService(gallery, files, comp, opener, app.producer,
		service.GalleryOptions{
			DefaultResolution: cfg.App.DefaultResolution,
			RandomBaseURL:     cfg.Source.RandomBaseURL,
			RandomMaxID:       cfg.Source.RandomMaxID,
			MaxUploadSize:     cfg.App.MaxUploadSize,
			MaxPixels:         cfg.Render.MaxPixels,
			Limit:             cfg.App.GalleryLimit,
		},
		renderOpts,
	)

	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}
	app.Handler = transport.InitRoutes(transport.NewImageHandler(app.Service, placeholders), cfg.Server.RequestTimeout, app.checks...)

	return app, nil
}

// events picks the render event bus. When the kafka or rabbitmq broker
// cannot be reached it falls back to the log driver: completions are logged
// and queued requests are rendered in-process.
func (a *App) events(cfg *config.Config, opts *service.RenderOptions) kafka.Producer {
	ev := cfg.Events

	switch ev.Driver {
	case config.DriverKafka:
		producer, err := kafka.NewProducer(ev.Kafka.Brokers, ev.Kafka.RequestsTopic, ev.Kafka.CompletedTopic)
		if err != nil {
			logrus.WithError(err).Warn("kafka unavailable, using log producer instead")
			break
		}
		consumer := kafka.NewConsumer(ev.Kafka.Brokers, ev.Kafka.RequestsTopic, ev.Kafka.GroupID, ev.Kafka.Workers)
		a.closers = append(a.closers, consumer.Close)

		opts.RequestsTopic = ev.Kafka.RequestsTopic
		opts.CompletedTopic = ev.Kafka.CompletedTopic
		a.consume = func(ctx context.Context) error {
			return consumer.Run(ctx, a.Service.HandleMessage)
		}
		return producer

	case config.DriverRabbitMQ:
		mq, err := rabbitMQ.NewRabbitMQ(rabbitMQ.RabbitMQConfig{
			URL:      ev.RabbitMQ.URL,
			Queues:   []string{ev.RabbitMQ.RequestsQueue, ev.RabbitMQ.CompletedQueue},
			Prefetch: ev.RabbitMQ.Prefetch,
		})
		if err != nil {
			logrus.WithError(err).Warn("rabbitmq unavailable, using log producer instead")
			break
		}
		return a.useQueue(mq, ev.RabbitMQ, opts)
	}

	opts.CompletedTopic = ev.Kafka.CompletedTopic
	return kafka.NewLogProducer()
}

// useQueue routes render requests and completions through q.
func (a *App) useQueue(q rabbitMQ.Queue, cfg config.RabbitMQConfig, opts *service.RenderOptions) kafka.Producer {
	opts.RequestsTopic = cfg.RequestsQueue
	opts.CompletedTopic = cfg.CompletedQueue
	a.consume = func(ctx context.Context) error {
		return q.Consume(ctx, cfg.RequestsQueue, a.Service.HandleMessage)
	}
	a.checks = append(a.checks, transport.HealthCheck{Name: "rabbitmq", Check: q.HealthCheck})
	return q
}

// StartConsumer runs the render request consumer until ctx is done. It is a
// no-op for the log driver.
func (a *App) StartConsumer(ctx context.Context) {
	if a.consume == nil {
		return
	}
	go func() {
		if err := a.consume(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logrus.WithError(err).Error("render consumer stopped")
		}
	}()
}

// Close releases the event bus and removes the storage directory.
func (a *App) Close() {
	for _, closeFn := range a.closers {
		if err := closeFn(); err != nil {
			logrus.WithError(err).Warn("error closing consumer")
		}
	}
	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			logrus.WithError(err).Warn("error closing producer")
		}
	}
	if err := a.storage.Cleanup(); err != nil {
		logrus.WithError(err).Warn("error removing storage dir")
	}
}

func NewServer(cfg *config.Config) {

	app, err := Build(cfg)
	if err != nil {
		logrus.Fatalf("error occured while building app: %s", err.Error())
	}

	ctx, cancel := context.WithCancel(context.Background())
	app.StartConsumer(ctx)

	srv := new(Server)
	go func() {
		if err := srv.Run(cfg, app.Handler); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.Fatalf("error occured while running http server: %s", err.Error())
		}
	}()

	logrus.WithFields(logrus.Fields{
		"port":   cfg.Server.Port,
		"events": cfg.Events.Driver,
	}).Print("App Started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)
	<-quit

	logrus.Print("App Shutting Down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logrus.Errorf("error occured on server shutting down: %s", err.Error())
	}
	cancel()
	app.Close()
}
