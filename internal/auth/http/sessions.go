package http

import (
	"errors"
	"fmt"
	"net/http"

	validation "github.com/go-ozzo/ozzo-validation"

	"github.com/aussiebroadwan/sessiond/internal/auth/service"
	"github.com/aussiebroadwan/sessiond/pkg/authsdk"
	"github.com/aussiebroadwan/sessiond/pkg/httpx"
)

var errNoPrincipal = errors.New("no principal in request context")

// SessionsHandler serves the session management endpoints. All of them
// run behind the bearer middleware.
type SessionsHandler struct {
	AuthService *service.AuthService
}

// HandleLogout handles POST /auth/v2/logout
//
//	@Summary		Log out
//	@Description	Ends the caller's session, the session named by sessionId, or every session of the user when revokeAllSessions is set.
//	@Tags			Sessions
//	@Accept			json
//	@Produce		json
//	@Param			body	body		authsdk.LogoutRequest	false	"Which sessions to end"
//	@Success		200		{object}	authsdk.LogoutResponse
//	@Failure		401		{object}	authsdk.ErrorResponse	"Unauthorized"
//	@Failure		403		{object}	authsdk.ErrorResponse	"Session belongs to another user"
//	@Failure		404		{object}	authsdk.ErrorResponse	"Session not found"
//	@Security		BearerAuth
//	@Router			/auth/v2/logout [post]
func (h *SessionsHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	p, ok := principalFrom(r.Context())
	if !ok {
		writeError(w, r, errNoPrincipal)
		return
	}

	var req authsdk.LogoutRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		writeInvalid(w, err)
		return
	}
	if err := validation.ValidateStruct(&req,
		validation.Field(&req.SessionID, validation.Length(0, 128)),
	); err != nil {
		writeInvalid(w, err)
		return
	}

	res, err := h.AuthService.Logout(r.Context(), p, service.LogoutRequest{
		SessionID: req.SessionID,
		RevokeAll: req.RevokeAllSessions,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	msg := "logged out"
	if req.RevokeAllSessions {
		msg = fmt.Sprintf("revoked %d sessions", res.SessionsRevoked)
	}
	httpx.WriteJSON(w, http.StatusOK, authsdk.LogoutResponse{
		Success:         true,
		SessionsRevoked: res.SessionsRevoked,
		Message:         msg,
	})
}

// HandleList handles GET /auth/v2/sessions
//
//	@Summary		List sessions
//	@Description	Lists the caller's active sessions. The session of the presented token is marked current.
//	@Tags			Sessions
//	@Produce		json
//	@Success		200	{object}	authsdk.ListSessionsResponse
//	@Failure		401	{object}	authsdk.ErrorResponse	"Unauthorized"
//	@Security		BearerAuth
//	@Router			/auth/v2/sessions [get]
func (h *SessionsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	p, ok := principalFrom(r.Context())
	if !ok {
		writeError(w, r, errNoPrincipal)
		return
	}

	sessions, err := h.AuthService.ListSessions(r.Context(), p)
	if err != nil {
		writeError(w, r, err)
		return
	}

	out := authsdk.ListSessionsResponse{Sessions: make([]authsdk.SessionInfo, 0, len(sessions))}
	for _, s := range sessions {
		out.Sessions = append(out.Sessions, authsdk.SessionInfo{
			ID:                s.ID,
			IPAddress:         s.IPAddressMasked,
			UserAgent:         s.UserAgent,
			DeviceFingerprint: s.DeviceFingerprint,
			RiskScore:         s.RiskScore,
			CreatedAt:         s.CreatedAt,
			LastActivityAt:    s.LastActivityAt,
			ExpiresAt:         s.ExpiresAt,
			Current:           s.ID == p.SessionID,
		})
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

// HandleRevoke handles DELETE /auth/v2/sessions/{id}
//
//	@Summary		Revoke a session
//	@Description	Ends one of the caller's sessions.
//	@Tags			Sessions
//	@Param			id	path	string	true	"Session id"
//	@Success		204	"No Content"
//	@Failure		401	{object}	authsdk.ErrorResponse	"Unauthorized"
//	@Failure		403	{object}	authsdk.ErrorResponse	"Session belongs to another user"
//	@Failure		404	{object}	authsdk.ErrorResponse	"Session not found"
//	@Security		BearerAuth
//	@Router			/auth/v2/sessions/{id} [delete]
func (h *SessionsHandler) HandleRevoke(w http.ResponseWriter, r *http.Request) {
	p, ok := principalFrom(r.Context())
	if !ok {
		writeError(w, r, errNoPrincipal)
		return
	}

	if err := h.AuthService.RevokeSession(r.Context(), p, r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
