package shared

import (
	"log/slog"
	"net/http"

	"pkbm/internal/domain/audit"
	"pkbm/internal/transport/http/middleware"
)

// RecordAudit fills the actor and request fields of entry and records it.
// Failures are logged; the mutation has already happened.
func RecordAudit(r *http.Request, recorder audit.Recorder, entry audit.Entry) {
	if recorder == nil {
		return
	}
	if user, ok := middleware.GetUser(r.Context()); ok {
		entry.ActorID = user.UserID
	}
	entry.RequestID = RequestID(r)
	entry.IP = ClientIP(r)
	if err := recorder.Record(r.Context(), entry); err != nil {
		slog.Warn("audit record failed", "action", entry.Action, "entityId", entry.EntityID, "err", err)
	}
}
