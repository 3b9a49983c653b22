package realtime

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const feedBuffer = 64

// feedHeartbeat is how often an idle feed writes an SSE comment line.
var feedHeartbeat = 15 * time.Second

// FeedSubscriber follows the event channel of a conference, implemented by *RedisPubSub.
type FeedSubscriber interface {
	SubscribeConference(ctx context.Context, conferenceID string, handler func(event []byte)) error
}

// ServeFeed streams the room events of conference :id as server-sent events. Events that
// arrive while the client is behind are dropped.
func ServeFeed(sub FeedSubscriber, logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(c *gin.Context) {
		id := c.Param("id")
		ctx, cancel := context.WithCancel(c.Request.Context())
		defer cancel()

		// The stream outlives the server's WriteTimeout.
		if err := http.NewResponseController(c.Writer).SetWriteDeadline(time.Time{}); err != nil {
			logger.Warn("conference feed keeps server write deadline", zap.String("conference_id", id), zap.Error(err))
		}

		events := make(chan []byte, feedBuffer)
		errc := make(chan error, 1)
		go func() {
			errc <- sub.SubscribeConference(ctx, id, func(ev []byte) {
				select {
				case events <- ev:
				default:
				}
			})
		}()

		c.Header("Content-Type", "text/event-stream")
		c.Header("Cache-Control", "no-cache")
		c.Header("Connection", "keep-alive")
		c.Writer.WriteHeaderNow()
		c.Writer.Flush()

		heartbeat := time.NewTicker(feedHeartbeat)
		defer heartbeat.Stop()

		c.Stream(func(w io.Writer) bool {
			select {
			case <-ctx.Done():
				return false
			case err := <-errc:
				if err != nil {
					logger.Warn("conference feed ended", zap.String("conference_id", id), zap.Error(err))
				}
				return false
			case <-heartbeat.C:
				_, err := io.WriteString(w, ": keepalive\n\n")
				return err == nil
			case ev := <-events:
				c.SSEvent("event", string(ev))
				return true
			}
		})
	}
}
