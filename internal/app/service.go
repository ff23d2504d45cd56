// Package app holds the application services. Each service validates input,
// maps it onto domain entities, persists through a repository port and maps
// the stored entity back to its external representation.
package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/neomorfeo/central/internal/domain"
	"github.com/neomorfeo/central/internal/logging"
	"github.com/neomorfeo/central/internal/result"
)

// Mapper converts between an entity E, its external representation D and
// its create (C) and update (U) requests.
type Mapper[E, D, C, U any] struct {
	// Base exposes the identity and audit fields of an entity.
	Base       func(*E) *domain.Base
	ToDTO      func(E) D
	FromCreate func(C) E
	// Overlay copies the mutable fields of an update request onto an entity.
	// It must leave Base untouched.
	Overlay  func(*E, U)
	TargetID func(U) string
}

// ServiceConfig wires a Service.
type ServiceConfig[E, D, C, U any] struct {
	// Entity names the entity in failure messages, e.g. "Bundle".
	Entity          string
	Repo            domain.Repository[E]
	Mapper          Mapper[E, D, C, U]
	CreateValidator domain.Validator[C]
	UpdateValidator domain.Validator[U]
	// Finalize, if set, runs on every mapped representation.
	Finalize func(E, D) D
	Clock    func() time.Time
	NewID    func() string
	Logger   *zap.Logger
}

// Service implements the operations every entity supports.
type Service[E, D, C, U any] struct {
	entity   string
	repo     domain.Repository[E]
	mapper   Mapper[E, D, C, U]
	createV  domain.Validator[C]
	updateV  domain.Validator[U]
	finalize func(E, D) D
	now      func() time.Time
	newID    func() string
	logger   *zap.Logger
}

// NewService builds a Service. Missing validators skip validation; missing
// clock, id generator and logger fall back to time.Now, UUIDv4 and a no-op.
func NewService[E, D, C, U any](cfg ServiceConfig[E, D, C, U]) *Service[E, D, C, U] {
	s := &Service[E, D, C, U]{
		entity:   cfg.Entity,
		repo:     cfg.Repo,
		mapper:   cfg.Mapper,
		createV:  cfg.CreateValidator,
		updateV:  cfg.UpdateValidator,
		finalize: cfg.Finalize,
		now:      cfg.Clock,
		newID:    cfg.NewID,
		logger:   cfg.Logger,
	}
	if s.createV == nil {
		s.createV = skipValidation[C]{}
	}
	if s.updateV == nil {
		s.updateV = skipValidation[U]{}
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.newID == nil {
		s.newID = uuid.NewString
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	return s
}

type skipValidation[T any] struct{}

func (skipValidation[T]) Validate(context.Context, T) []domain.FieldError { return nil }

// GetByID returns the live entity with the given id.
func (s *Service[E, D, C, U]) GetByID(ctx context.Context, id string) (result.Result[D], error) {
	e, st, err := s.load(ctx, id)
	if err != nil || !st.IsSuccess() {
		return result.Propagate[D](st), err
	}
	return result.Success(s.toDTO(e)), nil
}

// GetAll returns every live entity. An empty store is a success.
func (s *Service[E, D, C, U]) GetAll(ctx context.Context) (result.Result[[]D], error) {
	items, err := s.repo.GetAll(ctx)
	if err != nil {
		return result.Result[[]D]{}, fmt.Errorf("listing %s: %w", s.entity, err)
	}
	return result.Success(s.toDTOs(items)), nil
}

// List pages through every live entity in stored order.
func (s *Service[E, D, C, U]) List(ctx context.Context, req ListRequest) (result.Result[Page[D]], error) {
	return s.page(ctx, Query[E]{}, req)
}

// Create validates req, stores a new entity built from it and returns the
// stored representation.
func (s *Service[E, D, C, U]) Create(ctx context.Context, req C) (result.Result[D], error) {
	if st := s.validate(s.createV.Validate(ctx, req)); !st.IsSuccess() {
		return result.Propagate[D](st), nil
	}
	return s.insert(ctx, s.mapper.FromCreate(req))
}

// Update validates req and overlays it on the stored entity it targets.
func (s *Service[E, D, C, U]) Update(ctx context.Context, req U) (result.Result[D], error) {
	if st := s.validate(s.updateV.Validate(ctx, req)); !st.IsSuccess() {
		return result.Propagate[D](st), nil
	}
	e, st, err := s.load(ctx, s.mapper.TargetID(req))
	if err != nil || !st.IsSuccess() {
		return result.Propagate[D](st), err
	}
	return s.apply(ctx, e, req)
}

// Delete soft-deletes the entity with the given id.
func (s *Service[E, D, C, U]) Delete(ctx context.Context, id string) (result.Status, error) {
	if st := requireKey("id", id); !st.IsSuccess() {
		return st, nil
	}
	ok, err := s.repo.Exists(ctx, id)
	if err != nil {
		return result.Status{}, fmt.Errorf("checking %s %s: %w", s.entity, id, err)
	}
	if !ok {
		return s.notFound(id), nil
	}

	deleted, err := s.repo.Delete(ctx, id)
	if err != nil {
		return result.Status{}, fmt.Errorf("deleting %s %s: %w", s.entity, id, err)
	}
	if !deleted {
		return result.Failed(result.KindFailure, fmt.Sprintf("failed to delete %s with ID %s", s.entity, id)), nil
	}

	s.log(ctx).Info("entity deleted", zap.String("id", id))
	return result.OK(), nil
}

// Exists reports whether a live entity has the given id.
func (s *Service[E, D, C, U]) Exists(ctx context.Context, id string) (result.Result[bool], error) {
	ok, err := s.repo.Exists(ctx, id)
	if err != nil {
		return result.Result[bool]{}, fmt.Errorf("checking %s %s: %w", s.entity, id, err)
	}
	return result.Success(ok), nil
}

// Count returns the number of live entities.
func (s *Service[E, D, C, U]) Count(ctx context.Context) (result.Result[int], error) {
	n, err := s.repo.Count(ctx)
	if err != nil {
		return result.Result[int]{}, fmt.Errorf("counting %s: %w", s.entity, err)
	}
	return result.Success(n), nil
}

func (s *Service[E, D, C, U]) load(ctx context.Context, id string) (E, result.Status, error) {
	var zero E
	if st := requireKey("id", id); !st.IsSuccess() {
		return zero, st, nil
	}
	e, ok, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return zero, result.Status{}, fmt.Errorf("loading %s %s: %w", s.entity, id, err)
	}
	if !ok {
		return zero, s.notFound(id), nil
	}
	return e, result.OK(), nil
}

// stamp assigns a fresh identity and creation time to a new entity.
func (s *Service[E, D, C, U]) stamp(b *domain.Base) {
	now := s.now().UTC()
	b.ID = s.newID()
	b.CreatedAt = now
	b.UpdatedAt = now
}

func (s *Service[E, D, C, U]) insert(ctx context.Context, e E) (result.Result[D], error) {
	s.stamp(s.mapper.Base(&e))

	stored, err := s.repo.Add(ctx, e)
	if st, ok := conflict(err); ok {
		return result.Propagate[D](st), nil
	}
	if err != nil {
		return result.Result[D]{}, fmt.Errorf("adding %s: %w", s.entity, err)
	}

	s.log(ctx).Info("entity created", zap.String("id", s.mapper.Base(&stored).ID))
	return result.Success(s.toDTO(stored)), nil
}

func (s *Service[E, D, C, U]) apply(ctx context.Context, e E, req U) (result.Result[D], error) {
	s.mapper.Overlay(&e, req)
	s.mapper.Base(&e).UpdatedAt = s.now().UTC()

	stored, err := s.repo.Update(ctx, e)
	if st, ok := conflict(err); ok {
		return result.Propagate[D](st), nil
	}
	if err != nil {
		return result.Result[D]{}, fmt.Errorf("updating %s: %w", s.entity, err)
	}

	s.log(ctx).Info("entity updated", zap.String("id", s.mapper.Base(&stored).ID))
	return result.Success(s.toDTO(stored)), nil
}

func (s *Service[E, D, C, U]) page(ctx context.Context, q Query[E], req ListRequest) (result.Result[Page[D]], error) {
	items, err := s.repo.GetAll(ctx)
	if err != nil {
		return result.Result[Page[D]]{}, fmt.Errorf("listing %s: %w", s.entity, err)
	}
	return result.Success(MapPage(Compose(items, q, req), s.toDTO)), nil
}

func (s *Service[E, D, C, U]) toDTO(e E) D {
	d := s.mapper.ToDTO(e)
	if s.finalize != nil {
		d = s.finalize(e, d)
	}
	return d
}

func (s *Service[E, D, C, U]) toDTOs(items []E) []D {
	out := make([]D, len(items))
	for i, e := range items {
		out[i] = s.toDTO(e)
	}
	return out
}

func (s *Service[E, D, C, U]) validate(errs []domain.FieldError) result.Status {
	if len(errs) == 0 {
		return result.OK()
	}
	fields := make([]result.FieldError, len(errs))
	for i, e := range errs {
		fields[i] = result.FieldError{Field: e.Field, Message: e.Message}
	}
	return result.InvalidStatus(fields)
}

func (s *Service[E, D, C, U]) notFound(id string) result.Status {
	return result.Failed(result.KindNotFound, fmt.Sprintf("%s with ID %s not found", s.entity, id))
}

func (s *Service[E, D, C, U]) log(ctx context.Context) *zap.Logger {
	return logging.FromContext(ctx, s.logger).With(zap.String("entity", s.entity))
}

func conflict(err error) (result.Status, bool) {
	var ce *domain.ConflictError
	if errors.As(err, &ce) {
		return result.Failed(result.KindConflict, ce.Error()), true
	}
	return result.Status{}, false
}

func conflictStatus(entity, field, value string) result.Status {
	return result.Failed(result.KindConflict, (&domain.ConflictError{Entity: entity, Field: field, Value: value}).Error())
}

// requireKey rejects blank lookup keys.
func requireKey(field, value string) result.Status {
	if strings.TrimSpace(value) == "" {
		return result.Failed(result.KindValidation, field+" cannot be empty")
	}
	return result.OK()
}
