package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rpattn/billingapi/internal/auth"
	"github.com/rpattn/billingapi/internal/domain"
	"github.com/rpattn/billingapi/internal/query"
	"github.com/rpattn/billingapi/internal/repository"
	"github.com/rpattn/billingapi/internal/schema"
)

// Service implements the CRUD operations for one entity type. Every
// operation is scoped to the tenant of the session found in ctx.
type Service struct {
	desc   *schema.Descriptor
	engine *query.Engine
	store  repository.Store
	logger *zap.Logger
	now    func() time.Time
}

type Option func(*Service)

func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock replaces the time source used for audit stamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

func New(desc *schema.Descriptor, engine *query.Engine, store repository.Store, opts ...Option) *Service {
	s := &Service{
		desc:   desc,
		engine: engine,
		store:  store,
		logger: zap.NewNop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(zap.String("entity", desc.Name()))
	return s
}

// Descriptor returns the schema of the served entity type.
func (s *Service) Descriptor() *schema.Descriptor { return s.desc }

// Decode reads a JSON entity body into a new entity value.
func (s *Service) Decode(body []byte) (any, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, domain.InvalidRequest("request body is required")
	}
	entity := s.desc.NewEntity()
	if err := json.Unmarshal(body, entity); err != nil {
		return nil, domain.InvalidRequest(fmt.Sprintf("malformed %s: %v", s.desc.Name(), err))
	}
	return entity, nil
}

// Create stores entity in the caller's tenant and returns its identifier.
// A zero identifier is replaced with a new one; tenant and creation stamps
// always come from the session.
func (s *Service) Create(ctx context.Context, entity any) (uuid.UUID, error) {
	session, err := auth.Authorize(ctx, s.desc.Name(), auth.ActionCreate)
	if err != nil {
		return uuid.Nil, err
	}
	if !s.desc.Accepts(entity) {
		return uuid.Nil, domain.InvalidRequest(fmt.Sprintf("expected %s, got %T", s.desc.Name(), entity))
	}

	id := s.desc.IDOf(entity)
	if id == uuid.Nil {
		id = uuid.New()
	}
	now := s.now().UTC()
	stamps := []struct {
		field string
		value any
	}{
		{domain.FieldID, id},
		{domain.FieldTenantID, session.TenantID},
		{domain.FieldCreatedOn, now},
		{domain.FieldCreatedBy, userStamp(session)},
		{domain.FieldUpdatedOn, nil},
		{domain.FieldUpdatedBy, nil},
	}
	for _, st := range stamps {
		if err := s.stamp(entity, st.field, st.value); err != nil {
			return uuid.Nil, err
		}
	}

	if err := s.store.Add(ctx, s.desc.Name(), entity); err != nil {
		s.logger.Error("create failed", zap.Stringer("id", id), zap.Error(err))
		return uuid.Nil, fmt.Errorf("create %s: %w", s.desc.Name(), err)
	}
	s.logger.Debug("created", zap.Stringer("id", id), zap.Stringer("tenant", session.TenantID))
	return id, nil
}

// Get lists the caller's records matching params, projected to the
// requested fields.
func (s *Service) Get(ctx context.Context, params query.ListParams) ([]query.Record, error) {
	session, err := auth.Authorize(ctx, s.desc.Name(), auth.ActionRead)
	if err != nil {
		return nil, err
	}
	plan, err := s.engine.PlanList(s.desc, session.TenantID, params)
	if err != nil {
		s.logger.Debug("list rejected", zap.Error(err))
		return nil, err
	}

	q := s.store.Query(s.desc.Name()).
		Where(plan.Predicate).
		OrderBy(plan.Ordering).
		Page(plan.Skip, plan.Take).
		Attach(plan.Relations...)
	entities, err := s.store.All(ctx, q)
	if err != nil {
		s.logger.Error("list failed", zap.Error(err))
		return nil, fmt.Errorf("list %s: %w", s.desc.Name(), err)
	}
	return s.engine.ProjectAll(s.desc, entities, plan.Selection), nil
}

// Scan runs the list pipeline over every matching record in windows of
// batch records, up to limit records in total, ignoring the page
// parameters. fn receives the resolved selection and each projected window.
func (s *Service) Scan(ctx context.Context, params query.ListParams, batch, limit int, fn func(query.Selection, []query.Record) error) error {
	session, err := auth.Authorize(ctx, s.desc.Name(), auth.ActionRead)
	if err != nil {
		return err
	}
	params.PageNumber, params.PageSize = query.DefaultPageNumber, 1
	plan, err := s.engine.PlanList(s.desc, session.TenantID, params)
	if err != nil {
		s.logger.Debug("scan rejected", zap.Error(err))
		return err
	}
	if batch <= 0 {
		batch = query.DefaultPageSize
	}

	q := s.store.Query(s.desc.Name()).
		Where(plan.Predicate).
		OrderBy(plan.Ordering).
		Attach(plan.Relations...)
	for skip := 0; limit <= 0 || skip < limit; skip += batch {
		take := batch
		if limit > 0 && skip+take > limit {
			take = limit - skip
		}
		entities, err := s.store.All(ctx, q.Page(skip, take))
		if err != nil {
			s.logger.Error("scan failed", zap.Int("skip", skip), zap.Error(err))
			return fmt.Errorf("scan %s: %w", s.desc.Name(), err)
		}
		if len(entities) == 0 {
			return nil
		}
		if err := fn(plan.Selection, s.engine.ProjectAll(s.desc, entities, plan.Selection)); err != nil {
			return err
		}
		if len(entities) < take {
			return nil
		}
	}
	return nil
}

// GetByID returns one record projected to fields. An empty field list
// yields only the identifier.
func (s *Service) GetByID(ctx context.Context, id uuid.UUID, fields string) (query.Record, error) {
	session, err := auth.Authorize(ctx, s.desc.Name(), auth.ActionRead)
	if err != nil {
		return nil, err
	}
	sel := query.ParseSelection(fields)
	q := s.store.Query(s.desc.Name()).
		Where(query.ByIdentifier(s.desc, session.TenantID, id)).
		Attach(query.RequiredRelations(s.desc, sel)...)
	entity, err := s.first(ctx, q)
	if err != nil {
		return nil, err
	}
	return s.engine.Project(s.desc, entity, sel), nil
}

// Update replaces the record identified by id. The body identifier must
// match id; creation stamps are carried over from the stored record.
func (s *Service) Update(ctx context.Context, id uuid.UUID, entity any) error {
	session, err := auth.Authorize(ctx, s.desc.Name(), auth.ActionUpdate)
	if err != nil {
		return err
	}
	if !s.desc.Accepts(entity) {
		return domain.InvalidRequest(fmt.Sprintf("expected %s, got %T", s.desc.Name(), entity))
	}
	if bodyID := s.desc.IDOf(entity); bodyID != id {
		return domain.NewError(domain.KindMismatchedIdentifier, domain.FieldID,
			fmt.Sprintf("body identifier %s does not match %s", bodyID, id))
	}

	existing, err := s.first(ctx, s.store.Query(s.desc.Name()).Where(query.ByIdentifier(s.desc, session.TenantID, id)))
	if err != nil {
		return err
	}

	for _, name := range []string{domain.FieldCreatedOn, domain.FieldCreatedBy} {
		f, _ := s.desc.AuditField(name)
		if err := f.Assign(entity, f.Value(existing)); err != nil {
			return fmt.Errorf("carry %s: %w", name, err)
		}
	}
	if err := s.stampUpdate(entity, session); err != nil {
		return err
	}
	if err := s.stamp(entity, domain.FieldTenantID, session.TenantID); err != nil {
		return err
	}

	return s.write(ctx, "update", id, entity)
}

// Patch applies a JSON patch document to the record identified by id. The
// record must exist before any path is checked; every path is validated
// before anything is changed, and the result is written once.
func (s *Service) Patch(ctx context.Context, id uuid.UUID, document []byte) error {
	session, err := auth.Authorize(ctx, s.desc.Name(), auth.ActionUpdate)
	if err != nil {
		return err
	}
	ops, err := query.ParsePatchDocument(document)
	if err != nil {
		s.logger.Debug("patch rejected", zap.Error(err))
		return err
	}

	entity, err := s.first(ctx, s.store.Query(s.desc.Name()).Where(query.ByIdentifier(s.desc, session.TenantID, id)))
	if err != nil {
		return err
	}
	plan, err := query.PlanPatch(s.desc, ops)
	if err != nil {
		s.logger.Debug("patch rejected", zap.Error(err))
		return err
	}
	if err := plan.Apply(entity); err != nil {
		return fmt.Errorf("apply patch to %s: %w", s.desc.Name(), err)
	}
	if err := s.stampUpdate(entity, session); err != nil {
		return err
	}
	return s.write(ctx, "patch", id, entity)
}

// Delete removes the record identified by id.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	session, err := auth.Authorize(ctx, s.desc.Name(), auth.ActionDelete)
	if err != nil {
		return err
	}
	entity, err := s.first(ctx, s.store.Query(s.desc.Name()).Where(query.ByIdentifier(s.desc, session.TenantID, id)))
	if err != nil {
		return err
	}
	if err := s.store.Remove(ctx, s.desc.Name(), entity); err != nil {
		if errors.Is(err, repository.ErrNoRows) {
			return domain.NotFound(s.desc.Name())
		}
		s.logger.Error("delete failed", zap.Stringer("id", id), zap.Error(err))
		return fmt.Errorf("delete %s: %w", s.desc.Name(), err)
	}
	return nil
}

func (s *Service) first(ctx context.Context, q repository.Query) (any, error) {
	entity, err := s.store.First(ctx, q)
	if errors.Is(err, repository.ErrNoRows) {
		return nil, domain.NotFound(s.desc.Name())
	}
	if err != nil {
		s.logger.Error("load failed", zap.Error(err))
		return nil, fmt.Errorf("load %s: %w", s.desc.Name(), err)
	}
	return entity, nil
}

func (s *Service) write(ctx context.Context, op string, id uuid.UUID, entity any) error {
	err := s.store.Update(ctx, s.desc.Name(), entity)
	if errors.Is(err, repository.ErrNoRows) {
		return domain.NotFound(s.desc.Name())
	}
	if err != nil {
		s.logger.Error(op+" failed", zap.Stringer("id", id), zap.Error(err))
		return fmt.Errorf("%s %s: %w", op, s.desc.Name(), err)
	}
	return nil
}

func (s *Service) stampUpdate(entity any, session auth.Session) error {
	if err := s.stamp(entity, domain.FieldUpdatedOn, s.now().UTC()); err != nil {
		return err
	}
	return s.stamp(entity, domain.FieldUpdatedBy, userStamp(session))
}

func (s *Service) stamp(entity any, name string, value any) error {
	f, ok := s.desc.Field(name)
	if !ok {
		return fmt.Errorf("%s has no %s field", s.desc.Name(), name)
	}
	if err := f.Assign(entity, value); err != nil {
		return fmt.Errorf("stamp %s: %w", name, err)
	}
	return nil
}

func userStamp(session auth.Session) any {
	if session.UserID == uuid.Nil {
		return nil
	}
	return session.UserID
}
