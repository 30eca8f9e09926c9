// Package core implements the book club service layer: entity creation and
// assembly, field-mask updates and the membership join/leave protocol, all
// executed against a transactional PersistentStore.
package core

import (
	"context"
	"time"

	"bookclub/internal/infra/persistence/memory"
	"bookclub/pkg/domain"
)

// Service exposes transactional operations over people, clubs and memberships.
type Service struct {
	store   PersistentStore
	ids     domain.IDGenerator
	logger  Logger
	audit   AuditRecorder
	metrics MetricsRecorder
	tracer  Tracer
	clock   Clock
}

// NewService constructs a service backed by the supplied store.
func NewService(store PersistentStore, opts ...ServiceOption) *Service {
	svc := &Service{
		store:   store,
		ids:     domain.UUIDGenerator{},
		logger:  noopLogger{},
		audit:   noopAuditRecorder{},
		metrics: noopMetricsRecorder{},
		tracer:  noopTracer{},
		clock:   ClockFunc(nil),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(svc)
		}
	}
	return svc
}

// NewInMemoryService creates a service and in-memory store with the given rules engine.
func NewInMemoryService(engine *RulesEngine, opts ...ServiceOption) *Service {
	return NewService(memory.NewStore(engine), opts...)
}

// Store returns the underlying storage implementation.
func (s *Service) Store() PersistentStore {
	return s.store
}

type auditMetadata struct {
	entity EntityType
	action Action
}

var auditOperations = map[string]auditMetadata{
	"create_person": {EntityPerson, ActionCreate},
	"update_person": {EntityPerson, ActionUpdate},
	"create_club":   {EntityClub, ActionCreate},
	"update_club":   {EntityClub, ActionUpdate},
	"join_club":     {EntityMembership, ActionCreate},
	"leave_club":    {EntityMembership, ActionDelete},
}

// observe runs fn inside a trace span and reports its outcome to the metrics
// and audit recorders. fn returns the id of the entity it touched.
func (s *Service) observe(ctx context.Context, op string, fn func(context.Context) (string, error)) error {
	started := time.Now()
	ctx, span := s.tracer.Start(ctx, op)
	entityID, err := fn(ctx)
	duration := time.Since(started)
	span.End(err)
	s.metrics.Observe(ctx, op, err == nil, duration)
	s.recordAudit(ctx, op, entityID, duration, err)
	if err != nil {
		s.logger.Warn("operation failed", "operation", op, "entity_id", entityID, "duration", duration, "error", err)
		return err
	}
	s.logger.Debug("operation completed", "operation", op, "entity_id", entityID, "duration", duration)
	return nil
}

func (s *Service) recordAudit(ctx context.Context, op, entityID string, duration time.Duration, err error) {
	meta, ok := auditOperations[op]
	if !ok {
		return
	}
	entry := AuditEntry{
		Operation: op,
		Entity:    meta.entity,
		Action:    meta.action,
		EntityID:  entityID,
		Status:    AuditStatusSuccess,
		Duration:  duration,
		Timestamp: s.clock.Now(),
	}
	if err != nil {
		entry.Status = AuditStatusError
		entry.Error = err.Error()
	}
	s.audit.Record(ctx, entry)
}
