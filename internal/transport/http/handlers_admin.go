package httptransport

import (
	"net/http"

	dErrors "escuela/pkg/domain-errors"
	"escuela/pkg/platform/httputil"
	"escuela/pkg/requestcontext"
)

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req LoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(ctx, w, err, "invalid login request")
		return
	}

	res, err := h.admin.Login(ctx, req.Username, req.Password, requestcontext.ClientIP(ctx))
	if err != nil {
		h.writeError(ctx, w, err, "admin login failed")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, LoginResponse{
		Success: true,
		Message: "Login exitoso",
		Token:   res.Token,
	})
}

func (h *Handler) handleVerify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	username := requestcontext.Username(ctx)
	if username == "" {
		// Only reachable when the route is mounted without RequireAuth.
		h.writeError(ctx, w, dErrors.Wrap(errMissingIdentity, dErrors.CodeInternal, "authentication context error"), "verify without identity")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, VerifyResponse{
		Success: true,
		User: UserInfo{
			Username: username,
			Role:     requestcontext.Role(ctx),
		},
	})
}
