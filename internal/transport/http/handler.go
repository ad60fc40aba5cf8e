package httptransport

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	adminservice "escuela/internal/admin/service"
	"escuela/internal/registration/models"
	dErrors "escuela/pkg/domain-errors"
	"escuela/pkg/platform/httputil"
	"escuela/pkg/requestcontext"
)

const maxBodyBytes = 1 << 20

// RegistrationService is the registration and query surface used by the
// handlers.
type RegistrationService interface {
	Register(ctx context.Context, req *models.SubmitRequest) (*models.Registration, error)
	ListByDepartment(ctx context.Context, department string) ([]*models.Registration, error)
	List(ctx context.Context, department string) ([]*models.Registration, error)
	Departments(ctx context.Context) (*models.DepartmentSummary, error)
	Statistics(ctx context.Context) (*models.Statistics, error)
}

// Exporter renders registrations as a spreadsheet.
type Exporter interface {
	Write(ctx context.Context, regs []*models.Registration) ([]byte, error)
}

// AdminService authenticates the administrator.
type AdminService interface {
	Login(ctx context.Context, username, password, ip string) (*adminservice.LoginResult, error)
}

// Handler is the thin HTTP layer. It decodes requests, delegates to the
// services and writes the JSON envelope.
type Handler struct {
	registrations RegistrationService
	admin         AdminService
	exporter      Exporter
	logger        *slog.Logger
}

func NewHandler(registrations RegistrationService, admin AdminService, exporter Exporter, logger *slog.Logger) *Handler {
	return &Handler{
		registrations: registrations,
		admin:         admin,
		exporter:      exporter,
		logger:        logger,
	}
}

// Register mounts the API routes. requireAuth guards the admin group.
func (h *Handler) Register(r chi.Router, requireAuth func(http.Handler) http.Handler, publicListing bool) {
	r.Post("/api/inscripcion", h.handleRegister)
	if publicListing {
		r.Get("/api/inscripciones/{departamento}", h.handlePublicList)
	}
	r.Post("/api/admin/login", h.handleLogin)

	r.Group(func(r chi.Router) {
		r.Use(requireAuth)
		r.Get("/api/admin/verify", h.handleVerify)
		r.Get("/api/admin/departamentos", h.handleDepartments)
		r.Get("/api/admin/inscripciones/{departamento}", h.handleAdminList)
		r.Get("/api/admin/descargar/{departamento}", h.handleExport)
		r.Get("/api/admin/estadisticas", h.handleStatistics)
	})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return dErrors.Wrap(err, dErrors.CodeValidation, "Solicitud invalida")
	}
	return nil
}

// departmentParam returns the decoded department segment. chi matches on
// RawPath when the client escaped a reserved character, and only then is the
// parameter still percent-encoded.
func departmentParam(r *http.Request) string {
	param := chi.URLParam(r, "departamento")
	if r.URL.RawPath == "" {
		return param
	}
	if decoded, err := url.PathUnescape(param); err == nil {
		return decoded
	}
	return param
}

// writeError logs client errors at warn and server errors at error, then
// writes the failure envelope.
func (h *Handler) writeError(ctx context.Context, w http.ResponseWriter, err error, msg string) {
	status, _ := httputil.ErrorStatus(err)
	attrs := []any{
		"error", err.Error(),
		"status", status,
		"request_id", requestcontext.RequestID(ctx),
	}
	if status >= http.StatusInternalServerError {
		h.logger.ErrorContext(ctx, msg, attrs...)
	} else {
		h.logger.WarnContext(ctx, msg, attrs...)
	}
	httputil.WriteError(w, err)
}

var errMissingIdentity = errors.New("identity missing from context")
