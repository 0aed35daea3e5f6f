package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/note-service/internal/events"
)

// AuditService writes structured audit entries for security-relevant
// events. Entries never contain raw secrets or secret hashes.
type AuditService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// NewAuditService creates the service.
func NewAuditService(dispatcher events.Dispatcher, logger *zap.Logger) *AuditService {
	return &AuditService{
		dispatcher: dispatcher,
		logger:     logger.Named("audit"),
	}
}

// RegisterHandlers subscribes to events.
func (a *AuditService) RegisterHandlers() {
	if a.dispatcher == nil {
		return
	}
	a.dispatcher.Subscribe(events.EventTokenIssued, a.handleEvent)
	a.dispatcher.Subscribe(events.EventTokenRevoked, a.handleEvent)
	a.dispatcher.Subscribe(events.EventSessionOpened, a.handleEvent)
	a.dispatcher.Subscribe(events.EventSessionClosed, a.handleEvent)
}

func (a *AuditService) handleEvent(ctx context.Context, event events.Event) error {
	a.logger.Info(string(event.Type),
		zap.String("event_id", event.ID),
		zap.String("username", event.Username),
		zap.Time("timestamp", event.Timestamp),
		zap.Any("payload", event.Payload),
	)
	return nil
}
