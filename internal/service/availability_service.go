package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/iliyamo/ticket-seat-locking/internal/model"
	"github.com/iliyamo/ticket-seat-locking/internal/repository"
)

// AvailabilityService reports counter-level availability.  Active seat holds
// are deliberately not subtracted: a held seat only stops being available
// once the order flow advances the reserved counter.
type AvailabilityService struct {
	sessions    SessionRepository
	ticketTypes TicketTypeRepository
}

func NewAvailabilityService(sessions SessionRepository, ticketTypes TicketTypeRepository) *AvailabilityService {
	return &AvailabilityService{sessions: sessions, ticketTypes: ticketTypes}
}

// ForTicketType returns the availability of one ticket type.
func (s *AvailabilityService) ForTicketType(ctx context.Context, ticketTypeID uint64) (*model.Availability, error) {
	tt, err := s.ticketTypes.GetWithSession(ctx, ticketTypeID)
	if err != nil {
		if errors.Is(err, repository.ErrTicketTypeNotFound) {
			return nil, withDetail(ErrTicketTypeNotFound, "ticket type %d not found", ticketTypeID)
		}
		return nil, internal("load ticket type", err, zap.Uint64("ticket_type_id", ticketTypeID))
	}
	a := Calculate(tt.TicketType)
	return &a, nil
}

// ForSession returns the availability of every ticket type of a session.
func (s *AvailabilityService) ForSession(ctx context.Context, sessionID uint64) ([]model.Availability, error) {
	if _, err := s.sessions.GetWithEvent(ctx, sessionID); err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return nil, withDetail(ErrSessionNotFound, "session %d not found", sessionID)
		}
		return nil, internal("load session", err, zap.Uint64("session_id", sessionID))
	}
	tts, err := s.ticketTypes.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, internal("list ticket types", err, zap.Uint64("session_id", sessionID))
	}
	out := make([]model.Availability, len(tts))
	for i, tt := range tts {
		out[i] = Calculate(tt)
	}
	return out, nil
}

// Calculate derives available = total - reserved.  A reserved counter above
// the total reads as zero available.
func Calculate(tt model.TicketType) model.Availability {
	available := tt.TotalQuantity - tt.ReservedQuantity
	if available < 0 {
		available = 0
	}
	return model.Availability{
		TicketTypeID: tt.ID,
		Name:         tt.Name,
		Available:    available,
		Reserved:     tt.ReservedQuantity,
		Total:        tt.TotalQuantity,
	}
}
