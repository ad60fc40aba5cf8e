package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"escuela/internal/platform/metrics"
	"escuela/internal/registration/models"
	dErrors "escuela/pkg/domain-errors"
	"escuela/pkg/platform/sentinel"
	"escuela/pkg/requestcontext"
)

const (
	topProfessions = 10
	latestRecords  = 5
)

// Store is the persistence port used by the service.
type Store interface {
	Create(ctx context.Context, reg *models.Registration) error
	ExistsByIDNumber(ctx context.Context, idNumber string) (bool, error)
	List(ctx context.Context, department string) ([]*models.Registration, error)
	CountByDepartment(ctx context.Context) ([]models.GroupCount, error)
	CountByProfession(ctx context.Context, limit int) ([]models.GroupCount, error)
	Count(ctx context.Context) (int, error)
	Latest(ctx context.Context, limit int) ([]*models.Registration, error)
}

// Service registers submissions and answers the dashboard queries.
type Service struct {
	store   Store
	logger  *slog.Logger
	metrics *metrics.Metrics
	tracer  trace.Tracer
	newID   func() string
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithIDGenerator overrides record ID generation.
func WithIDGenerator(fn func() string) Option {
	return func(s *Service) {
		s.newID = fn
	}
}

// New constructs a Service.
func New(store Store, opts ...Option) *Service {
	s := &Service{
		store:  store,
		logger: slog.Default(),
		tracer: otel.Tracer("escuela/registration"),
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register validates and stores a submission. Exactly one insert happens on
// success and none on any failure.
func (s *Service) Register(ctx context.Context, req *models.SubmitRequest) (*models.Registration, error) {
	ctx, span := s.tracer.Start(ctx, "registration.Register")
	defer span.End()

	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, fail(span, err)
	}
	span.SetAttributes(attribute.String("registration.department", req.Department))

	exists, err := s.store.ExistsByIDNumber(ctx, req.IDNumber)
	if err != nil {
		return nil, fail(span, dErrors.Wrap(err, dErrors.CodeStore, "failed to check id number"))
	}
	if exists {
		return nil, fail(span, s.duplicate(ctx))
	}

	reg := models.NewRegistration(s.newID(), req, requestcontext.Now(ctx))
	if err := s.store.Create(ctx, reg); err != nil {
		// A concurrent submission with the same ID number won the insert.
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, fail(span, s.duplicate(ctx))
		}
		return nil, fail(span, dErrors.Wrap(err, dErrors.CodeStore, "failed to store registration"))
	}

	s.logger.InfoContext(ctx, "registration created",
		"registration_id", reg.ID,
		"department", reg.Department,
		"request_id", requestcontext.RequestID(ctx),
	)
	if s.metrics != nil {
		s.metrics.IncrementRegistrations(reg.Department)
	}
	return reg, nil
}

func (s *Service) duplicate(ctx context.Context) error {
	s.logger.InfoContext(ctx, "duplicate registration rejected",
		"request_id", requestcontext.RequestID(ctx),
	)
	if s.metrics != nil {
		s.metrics.IncrementDuplicates()
	}
	return dErrors.New(dErrors.CodeDuplicate, "Esta cedula ya se encuentra registrada")
}

// List returns the department's registrations, newest first. The
// models.AllDepartments sentinel selects every record.
func (s *Service) List(ctx context.Context, department string) ([]*models.Registration, error) {
	ctx, span := s.tracer.Start(ctx, "registration.List")
	defer span.End()

	filter, err := departmentFilter(department)
	if err != nil {
		return nil, fail(span, err)
	}
	span.SetAttributes(attribute.String("registration.department", department))

	regs, err := s.store.List(ctx, filter)
	if err != nil {
		return nil, fail(span, dErrors.Wrap(err, dErrors.CodeStore, "failed to list registrations"))
	}
	return regs, nil
}

// ListByDepartment is the public listing: department is matched literally,
// so models.AllDepartments does not widen the result.
func (s *Service) ListByDepartment(ctx context.Context, department string) ([]*models.Registration, error) {
	ctx, span := s.tracer.Start(ctx, "registration.ListByDepartment")
	defer span.End()

	department = strings.TrimSpace(department)
	if department == "" {
		return nil, fail(span, dErrors.New(dErrors.CodeValidation, "Departamento requerido"))
	}
	span.SetAttributes(attribute.String("registration.department", department))

	regs, err := s.store.List(ctx, department)
	if err != nil {
		return nil, fail(span, dErrors.Wrap(err, dErrors.CodeStore, "failed to list registrations"))
	}
	return regs, nil
}

// Departments counts registrations per department, ordered by name, plus
// the grand total.
func (s *Service) Departments(ctx context.Context) (*models.DepartmentSummary, error) {
	ctx, span := s.tracer.Start(ctx, "registration.Departments")
	defer span.End()

	groups, err := s.store.CountByDepartment(ctx)
	if err != nil {
		return nil, fail(span, dErrors.Wrap(err, dErrors.CodeStore, "failed to aggregate departments"))
	}
	if groups == nil {
		groups = []models.GroupCount{}
	}
	total := 0
	for _, g := range groups {
		total += g.Total
	}
	return &models.DepartmentSummary{Departments: groups, Total: total}, nil
}

// Statistics gathers the dashboard overview. The three reads are independent
// and run concurrently.
func (s *Service) Statistics(ctx context.Context) (*models.Statistics, error) {
	ctx, span := s.tracer.Start(ctx, "registration.Statistics")
	defer span.End()

	stats := &models.Statistics{}
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		n, err := s.store.Count(gctx)
		if err != nil {
			return err
		}
		stats.TotalRegistered = n
		return nil
	})
	g.Go(func() error {
		groups, err := s.store.CountByProfession(gctx, topProfessions)
		if err != nil {
			return err
		}
		stats.ByProfession = groups
		return nil
	})
	g.Go(func() error {
		latest, err := s.store.Latest(gctx, latestRecords)
		if err != nil {
			return err
		}
		stats.Latest = latest
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, fail(span, dErrors.Wrap(err, dErrors.CodeStore, "failed to load statistics"))
	}
	if stats.ByProfession == nil {
		stats.ByProfession = []models.GroupCount{}
	}
	if stats.Latest == nil {
		stats.Latest = []*models.Registration{}
	}
	return stats, nil
}

// departmentFilter maps a route value to a store filter ("" = all).
func departmentFilter(department string) (string, error) {
	department = strings.TrimSpace(department)
	switch department {
	case "":
		return "", dErrors.New(dErrors.CodeValidation, "Departamento requerido")
	case models.AllDepartments:
		return "", nil
	default:
		return department, nil
	}
}

func fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
