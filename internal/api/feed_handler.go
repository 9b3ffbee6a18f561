package api

import (
	"io"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"clubledger-backend-go/internal/core"
)

// FeedKeepAlive is how often an idle feed sends a ping event.
const FeedKeepAlive = 25 * time.Second

// FeedHandler streams the session's views as server-sent events.
type FeedHandler struct {
	sessions *core.SessionManager
	logger   *zap.Logger
}

// NewFeedHandler creates a new FeedHandler.
func NewFeedHandler(sessions *core.SessionManager, logger *zap.Logger) *FeedHandler {
	return &FeedHandler{sessions: sessions, logger: logger}
}

// Stream handles GET /api/v1/feed. A "snapshot" event is sent on connect and
// after every change. When a role change replaces the session the stream
// follows the new one; after logout it sends "end" and closes.
func (h *FeedHandler) Stream(c *gin.Context) {
	session, ok := currentSession(c)
	if !ok {
		return
	}
	uid := session.Identity().UID
	keepAlive := time.NewTicker(FeedKeepAlive)
	defer keepAlive.Stop()

	changes := session.Changes()
	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")
	c.SSEvent("snapshot", newFeedSnapshot(session))
	c.Writer.Flush()

	c.Stream(func(w io.Writer) bool {
		select {
		case <-c.Request.Context().Done():
			return false
		case <-keepAlive.C:
			c.SSEvent("ping", time.Now().UTC().Format(time.RFC3339))
			return true
		case <-changes:
		case <-session.Done():
		}

		select {
		case <-session.Done():
			next, ok := h.sessions.Get(uid)
			if !ok || next == session {
				c.SSEvent("end", "session closed")
				return false
			}
			h.logger.Debug("Feed switched to rebuilt session", zap.String("uid", uid))
			session = next
		default:
		}

		changes = session.Changes()
		c.SSEvent("snapshot", newFeedSnapshot(session))
		return true
	})
}
