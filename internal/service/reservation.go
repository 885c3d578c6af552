package service

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/virtuallib/catalog-service/internal/errs"
	"github.com/virtuallib/catalog-service/internal/model"
	"github.com/virtuallib/catalog-service/pkg/auth"
)

// ListReservations runs the expiry sweep first so callers never see an
// overdue pending reservation, then lists. Students only see their own.
func (s *Service) ListReservations(ctx context.Context, filter model.ReservationFilter, actor auth.Identity) ([]model.Reservation, error) {
	if _, err := s.ExpireOverdue(ctx); err != nil {
		return nil, err
	}
	if !actor.IsTeacher() {
		filter.UserID = actor.UserID
	}
	return s.repo.ListReservations(ctx, filter)
}

func (s *Service) GetReservation(ctx context.Context, id int, actor auth.Identity) (model.Reservation, error) {
	res, err := s.repo.GetReservation(ctx, id)
	if err != nil {
		return model.Reservation{}, err
	}
	if !actor.IsTeacher() && res.UserID != actor.UserID {
		return model.Reservation{}, errors.Wrap(errs.ErrForbidden, "you can only view your own reservations")
	}
	return res, nil
}

func (s *Service) CreateReservation(ctx context.Context, req model.CreateReservationRequest, actor auth.Identity) (model.Reservation, error) {
	user, err := s.repo.GetUserByID(ctx, actor.UserID)
	if err != nil {
		return model.Reservation{}, err
	}
	res, err := s.repo.CreateReservation(ctx, req, user)
	if err != nil {
		return model.Reservation{}, err
	}
	s.publishEvent(model.EventReservationCreated, res)
	return res, nil
}

// UpdateReservation applies the guarded transition table: only pending may
// leave; picked_up is a teacher action, cancelled belongs to the owning
// student, expired is applied by the server alone.
func (s *Service) UpdateReservation(ctx context.Context, id int, req model.UpdateReservationRequest, actor auth.Identity) (model.Reservation, error) {
	res, err := s.repo.GetReservation(ctx, id)
	if err != nil {
		return model.Reservation{}, err
	}

	if req.Status != nil && *req.Status != res.Status {
		to := *req.Status
		if res.Status.Terminal() {
			return model.Reservation{}, errs.ErrTerminalState
		}
		switch to {
		case model.StatusPickedUp:
			if !actor.IsTeacher() {
				return model.Reservation{}, errors.Wrap(errs.ErrForbidden, "only teachers can process pickups")
			}
		case model.StatusCancelled:
			if res.UserID != actor.UserID {
				return model.Reservation{}, errors.Wrap(errs.ErrForbidden, "you can only cancel your own reservation")
			}
		default:
			// pending re-entry and client-driven expiry are not transitions
			return model.Reservation{}, errors.Wrapf(errs.ErrForbidden, "status %q cannot be set", to)
		}

		res, err = s.repo.TransitionReservation(ctx, id, to)
		if err != nil {
			return model.Reservation{}, err
		}
		s.publishEvent(eventForStatus(to), res)
	}

	if req.PickupDate != nil || req.Notes != nil {
		if res.UserID != actor.UserID && !actor.IsTeacher() {
			return model.Reservation{}, errors.Wrap(errs.ErrForbidden, "you can only update your own reservations")
		}
		res, err = s.repo.UpdateReservationDetails(ctx, id, req.PickupDate, req.Notes)
		if err != nil {
			return model.Reservation{}, err
		}
	}
	return res, nil
}

func (s *Service) DeleteReservation(ctx context.Context, id int, actor auth.Identity) error {
	res, err := s.repo.GetReservation(ctx, id)
	if err != nil {
		return err
	}
	if !actor.IsTeacher() && res.UserID != actor.UserID {
		return errors.Wrap(errs.ErrForbidden, "you can only delete your own reservations")
	}
	return s.repo.DeleteReservation(ctx, id)
}

// ExpireOverdue flips pending reservations past the TTL to expired and
// publishes an event per expiry. Called lazily before listing and by the
// background worker.
func (s *Service) ExpireOverdue(ctx context.Context) (int, error) {
	cutoff := time.Now().UTC().Add(-s.cfg.ReservationTTL)
	expired, err := s.repo.ExpireOverdue(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	for _, res := range expired {
		s.publishEvent(model.EventReservationExpired, res)
	}
	return len(expired), nil
}

func eventForStatus(status model.Status) string {
	switch status {
	case model.StatusPickedUp:
		return model.EventReservationPickedUp
	case model.StatusCancelled:
		return model.EventReservationCancelled
	case model.StatusExpired:
		return model.EventReservationExpired
	default:
		return model.EventReservationCreated
	}
}
