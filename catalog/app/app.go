package app

import (
	"context"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/IBM/sarama"
	"go.uber.org/zap"

	"github.com/virtuallib/catalog-service/catalog/config"
	"github.com/virtuallib/catalog-service/internal/handler"
	"github.com/virtuallib/catalog-service/internal/repository"
	"github.com/virtuallib/catalog-service/internal/server"
	"github.com/virtuallib/catalog-service/internal/service"
	"github.com/virtuallib/catalog-service/catalog/migrations"
	"github.com/virtuallib/catalog-service/pkg/auth"
	"github.com/virtuallib/catalog-service/pkg/kafka"
	"github.com/virtuallib/catalog-service/pkg/logger"
	"github.com/virtuallib/catalog-service/pkg/postgres"
)

func Run(cfg *config.Config) {
	log := logger.NewLogger(cfg.Log, "catalog")
	db, err := postgres.NewPostgresDB(context.Background(), &cfg.Database, migrations.MigrationFiles)
	if err != nil {
		log.Fatal("db init", zap.Error(err))
	}
	repo, err := repository.NewRepository(db, log)
	if err != nil {
		log.Fatal("repo", zap.Error(err))
	}

	var producer sarama.SyncProducer
	if cfg.Kafka.Enabled() {
		producer, err = kafka.NewProducer(cfg.Kafka)
		if err != nil {
			log.Fatal("kafka.NewProducer", zap.Error(err))
		}
	}

	svc := service.NewService(repo, producer, service.Config{
		ReservationTTL: cfg.App.ReservationTTL,
		SetupKey:       cfg.App.SetupKey,
	}, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Kafka.Enabled() {
		consumer, err := kafka.NewConsumer(cfg.Kafka, kafka.AuditConsumerGroup)
		if err != nil {
			log.Fatal("kafka.NewConsumer", zap.Error(err))
		}
		go kafka.Consume(ctx, consumer, handler.NewConsumer(svc.RecordReservationEvent, log), kafka.ReservationEventsTopic)
	}

	go expireWorker(ctx, svc, cfg.App.ExpireInterval, log)

	jwtManager := auth.NewManager(cfg.JWT)
	h := handler.New(svc, svc, svc, jwtManager, log)
	srv := server.NewServer(cfg.Server, h.NewRouter())
	log.Info("http server start ON: ",
		zap.String("addr",
			net.JoinHostPort(cfg.Server.Host, cfg.Server.Port)))
	go func() {
		if err := srv.Run(); err != nil {
			log.Error("server run", zap.Error(err))
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	termSig := <-sig

	log.Debug("Graceful shutdown", zap.Any("signal", termSig))

	closeCtx, closeCancel := context.WithTimeout(context.Background(), time.Second*5)
	defer closeCancel()

	if err = srv.Stop(closeCtx); err != nil {
		log.DPanic("srv.Stop", zap.Error(err))
	}
	cancel()
	db.Close()
	log.Info("Graceful shutdown finished")
}

// expireWorker sweeps overdue pending reservations on a fixed interval; the
// same sweep also runs lazily before every reservation listing.
func expireWorker(ctx context.Context, svc *service.Service, interval time.Duration, log *zap.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			n, err := svc.ExpireOverdue(ctx)
			if err != nil {
				log.Error("expire sweep", zap.Error(err))
				continue
			}
			if n > 0 {
				log.Info("expire sweep", zap.Int("expired", n))
			}
		case <-ctx.Done():
			return
		}
	}
}
