package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/virtuallib/catalog-service/internal/model"
	"github.com/virtuallib/catalog-service/internal/repository"
	"github.com/virtuallib/catalog-service/pkg/kafka"
)

type Config struct {
	// ReservationTTL is how long a pending reservation may wait for pickup.
	ReservationTTL time.Duration
	SetupKey       string
}

type Service struct {
	log      *zap.Logger
	repo     repository.Repository
	producer sarama.SyncProducer
	cfg      Config
}

// NewService wires the catalog service. producer may be nil; lifecycle
// events are then skipped.
func NewService(repo repository.Repository, producer sarama.SyncProducer, cfg Config, log *zap.Logger) *Service {
	return &Service{
		log:      log,
		repo:     repo,
		producer: producer,
		cfg:      cfg,
	}
}

func (s *Service) ListBooks(ctx context.Context, filter model.BookFilter) ([]model.Book, error) {
	return s.repo.ListBooks(ctx, filter)
}

func (s *Service) GetBook(ctx context.Context, id int) (model.Book, error) {
	return s.repo.GetBook(ctx, id)
}

func (s *Service) CreateBook(ctx context.Context, req model.CreateBookRequest) (model.Book, error) {
	book := model.Book{
		Title:       req.Title,
		Author:      req.Author,
		Genre:       req.Genre,
		Year:        req.Year,
		ISBN:        req.ISBN,
		Description: req.Description,
		Cover:       req.Cover,
		RoomNumber:  req.RoomNumber,
		Available:   true,
	}
	if req.Available != nil {
		book.Available = *req.Available
	}
	return s.repo.CreateBook(ctx, book)
}

func (s *Service) UpdateBook(ctx context.Context, id int, req model.UpdateBookRequest) (model.Book, error) {
	return s.repo.UpdateBook(ctx, id, req)
}

func (s *Service) DeleteBook(ctx context.Context, id int) error {
	return s.repo.DeleteBook(ctx, id)
}

func (s *Service) ListGenres(ctx context.Context) ([]string, error) {
	return s.repo.ListGenres(ctx)
}

// RecordReservationEvent persists a consumed lifecycle event to the audit table.
func (s *Service) RecordReservationEvent(ctx context.Context, ev model.ReservationEvent) error {
	return s.repo.InsertReservationEvent(ctx, ev)
}

func (s *Service) publishEvent(eventType string, res model.Reservation) {
	if s.producer == nil {
		return
	}
	ev := model.ReservationEvent{
		EventID:       uuid.New().String(),
		Type:          eventType,
		ReservationID: res.ID,
		BookID:        res.BookID,
		UserID:        res.UserID,
		Status:        res.Status,
		OccurredAt:    time.Now().UTC(),
	}
	data, err := json.Marshal(ev)
	if err != nil {
		s.log.Error("publishEvent marshal", zap.Error(err))
		return
	}
	msg := &sarama.ProducerMessage{
		Topic: kafka.ReservationEventsTopic,
		Key:   sarama.StringEncoder(ev.EventID),
		Value: sarama.ByteEncoder(data),
	}
	// events are best-effort audit; a broker failure must not fail the request
	if _, _, err := s.producer.SendMessage(msg); err != nil {
		s.log.Error("publishEvent send", zap.String("type", eventType), zap.Error(err))
	}
}
