package dashboard

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/drmeng/vds/internal/transmittal"
	"github.com/gin-gonic/gin"
	"github.com/hashicorp/go-hclog"
	"gorm.io/gorm"
)

// transmittalEvent is sent when a transmittal is recorded.
type transmittalEvent struct {
	ID        uint   `json:"id"`
	ProjectID uint   `json:"project_id"`
	Number    string `json:"number"`
	Source    string `json:"source"`
	DateSent  string `json:"date_sent"`
}

// handleEvents streams newly recorded transmittals as server-sent events.
// Only transmittals created after the client connects are sent.
func handleEvents(db *gorm.DB, poll, heartbeatEvery time.Duration, log hclog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Content-Type", "text/event-stream")
		c.Header("Cache-Control", "no-cache")
		c.Header("Connection", "keep-alive")
		c.Header("X-Accel-Buffering", "no")

		lastSeen, err := transmittal.LastID(db)
		if err != nil {
			log.Error("events: initial position", "error", err)
			writeSSE(c.Writer, "error", gin.H{"error": "unavailable"})
			c.Writer.Flush()
			return
		}

		writeSSE(c.Writer, "connected", gin.H{"type": "connected"})
		c.Writer.Flush()

		ctx := c.Request.Context()
		ticker := time.NewTicker(poll)
		heartbeat := time.NewTicker(heartbeatEvery)
		defer ticker.Stop()
		defer heartbeat.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-heartbeat.C:
				writeSSE(c.Writer, "heartbeat", gin.H{
					"timestamp": time.Now().UTC().Format(time.RFC3339),
				})
				c.Writer.Flush()
			case <-ticker.C:
				trs, err := transmittal.After(db, lastSeen)
				if err != nil {
					log.Warn("events: poll", "error", err)
					continue
				}
				for _, tr := range trs {
					writeSSE(c.Writer, "transmittal", transmittalEvent{
						ID:        tr.ID,
						ProjectID: tr.ProjectID,
						Number:    tr.Number,
						Source:    tr.Source,
						DateSent:  tr.DateSent.Format("2006-01-02"),
					})
					lastSeen = tr.ID
				}
				if len(trs) > 0 {
					c.Writer.Flush()
				}
			}
		}
	}
}

// writeSSE writes a single SSE event to the writer.
func writeSSE(w io.Writer, event string, data any) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, string(jsonData))
}
