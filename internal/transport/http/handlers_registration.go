package httptransport

import (
	"mime"
	"net/http"
	"strconv"

	"escuela/internal/registration/export"
	"escuela/internal/registration/models"
	"escuela/pkg/platform/httputil"
)

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req models.SubmitRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(ctx, w, err, "invalid registration request")
		return
	}

	reg, err := h.registrations.Register(ctx, &req)
	if err != nil {
		h.writeError(ctx, w, err, "registration failed")
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, RegisterResponse{
		Success: true,
		Message: "Inscripcion realizada exitosamente",
		ID:      reg.ID,
	})
}

func (h *Handler) handlePublicList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	regs, err := h.registrations.ListByDepartment(ctx, departmentParam(r))
	if err != nil {
		h.writeError(ctx, w, err, "failed to list registrations")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, ListResponse{Success: true, Data: regs, Total: len(regs)})
}

func (h *Handler) handleAdminList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	regs, err := h.registrations.List(ctx, departmentParam(r))
	if err != nil {
		h.writeError(ctx, w, err, "failed to list registrations")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, ListResponse{Success: true, Data: regs, Total: len(regs)})
}

func (h *Handler) handleDepartments(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	summary, err := h.registrations.Departments(ctx)
	if err != nil {
		h.writeError(ctx, w, err, "failed to aggregate departments")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, DepartmentsResponse{
		Success:      true,
		Data:         summary.Departments,
		TotalGeneral: summary.Total,
	})
}

func (h *Handler) handleStatistics(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	stats, err := h.registrations.Statistics(ctx)
	if err != nil {
		h.writeError(ctx, w, err, "failed to load statistics")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, StatisticsResponse{Success: true, Data: stats})
}

// handleExport streams the department's registrations as XLSX. The body is
// fully built before any header is written, so a failure yields a clean
// JSON error instead of a truncated file.
func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	department := departmentParam(r)

	regs, err := h.registrations.List(ctx, department)
	if err != nil {
		h.writeError(ctx, w, err, "failed to load registrations for export")
		return
	}

	data, err := h.exporter.Write(ctx, regs)
	if err != nil {
		h.writeError(ctx, w, err, "failed to generate export")
		return
	}

	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", attachment(export.FileName(department)))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		h.logger.WarnContext(ctx, "failed to write export body", "error", err)
	}
}

// attachment builds a Content-Disposition value; names outside the token
// charset are quoted or RFC 2231 encoded.
func attachment(filename string) string {
	if v := mime.FormatMediaType("attachment", map[string]string{"filename": filename}); v != "" {
		return v
	}
	return "attachment"
}
