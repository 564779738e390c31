package contact

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/joao-fontenele/dropship-storefront/internal/domain"
)

const relayTimeout = 10 * time.Second

type Store interface {
	Save(ctx context.Context, m *domain.ContactMessage) error
	List(ctx context.Context) ([]domain.ContactMessage, error)
}

type Relayer interface {
	RelayContactMessage(ctx context.Context, m *domain.ContactMessage) error
}

type Receipt struct {
	MessageID string `json:"message_id"`
	EmailSent bool   `json:"email_sent"`
}

type Service struct {
	primary  Store
	fallback Store
	relayer  Relayer
	logger   *slog.Logger
	now      func() time.Time
}

func NewService(primary, fallback Store, relayer Relayer, logger *slog.Logger) *Service {
	return &Service{
		primary:  primary,
		fallback: fallback,
		relayer:  relayer,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Submit stores the message and tries to relay it. A failed relay is
// reported in the receipt, not as an error.
func (s *Service) Submit(ctx context.Context, in Input) (*Receipt, error) {
	msg, err := NewMessage(in, s.now())
	if err != nil {
		return nil, err
	}

	if err := s.primary.Save(ctx, msg); err != nil {
		s.logger.Warn("primary contact store unavailable, saving to fallback", "error", err, "message_id", msg.ID)
		if localErr := s.fallback.Save(ctx, msg); localErr != nil {
			return nil, fmt.Errorf("save contact message: %w", errors.Join(err, localErr))
		}
	}

	receipt := &Receipt{MessageID: msg.ID}
	if s.relayer != nil {
		relayCtx, cancel := context.WithTimeout(ctx, relayTimeout)
		defer cancel()
		if err := s.relayer.RelayContactMessage(relayCtx, msg); err != nil {
			s.logger.Warn("contact message not relayed", "error", err, "message_id", msg.ID)
		} else {
			receipt.EmailSent = true
		}
	}

	s.logger.Info("contact message received", "message_id", msg.ID, "email_sent", receipt.EmailSent)
	return receipt, nil
}

// List returns messages from both stores, newest first.
func (s *Service) List(ctx context.Context) ([]domain.ContactMessage, error) {
	var primary, fallback []domain.ContactMessage
	var primaryErr, fallbackErr error

	var g errgroup.Group
	g.Go(func() error {
		primary, primaryErr = s.primary.List(ctx)
		return nil
	})
	g.Go(func() error {
		fallback, fallbackErr = s.fallback.List(ctx)
		return nil
	})
	_ = g.Wait()

	if primaryErr != nil && fallbackErr != nil {
		return nil, fmt.Errorf("list contact messages: %w", errors.Join(primaryErr, fallbackErr))
	}
	if primaryErr != nil {
		s.logger.Warn("primary contact store unavailable", "error", primaryErr)
	}
	if fallbackErr != nil {
		s.logger.Warn("fallback contact store unavailable", "error", fallbackErr)
	}

	messages := make([]domain.ContactMessage, 0, len(primary)+len(fallback))
	messages = append(messages, primary...)
	messages = append(messages, fallback...)
	sort.SliceStable(messages, func(i, j int) bool {
		return messages[i].CreatedAt.After(messages[j].CreatedAt)
	})
	return messages, nil
}
