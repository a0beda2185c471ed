package clients

import (
	"context"
	"fmt"

	ws "debtster-dashboard/internal/transport/websocket"
)

// WebSocketClient publishes dashboard events through the hub. A nil hub makes every call a no-op.
type WebSocketClient struct {
	hub *ws.Hub
}

func NewWebSocketClient(hub *ws.Hub) *WebSocketClient {
	return &WebSocketClient{
		hub: hub,
	}
}

func (c *WebSocketClient) NotifyExportProgress(ctx context.Context, userID int64, exportID string, progress float64, stage string) error {
	if c == nil || c.hub == nil {
		return nil
	}

	data := map[string]interface{}{
		"id":       exportID,
		"progress": progress,
	}
	if stage != "" {
		data["stage"] = stage
	}

	c.hub.Broadcast(userID, &ws.Message{
		Type:    "export_progress",
		Channel: fmt.Sprintf("exports#%d", userID),
		Data:    data,
	})
	return nil
}

func (c *WebSocketClient) NotifyExportComplete(ctx context.Context, userID int64, exportID, url, filename string) error {
	if c == nil || c.hub == nil {
		return nil
	}

	c.hub.Broadcast(userID, &ws.Message{
		Type:    "export_complete",
		Channel: fmt.Sprintf("exports#%d", userID),
		Data: map[string]interface{}{
			"id":       exportID,
			"url":      url,
			"filename": filename,
		},
	})
	return nil
}

func (c *WebSocketClient) NotifyExportFailed(ctx context.Context, userID int64, exportID, errMsg string) error {
	if c == nil || c.hub == nil {
		return nil
	}

	c.hub.Broadcast(userID, &ws.Message{
		Type:    "export_failed",
		Channel: fmt.Sprintf("exports#%d", userID),
		Data: map[string]interface{}{
			"id":      exportID,
			"message": errMsg,
		},
	})
	return nil
}

// NotifyCaseStatusChanged tells every connected agent that a case moved to a new status.
func (c *WebSocketClient) NotifyCaseStatusChanged(ctx context.Context, caseID, from, to string, changedBy int64) error {
	if c == nil || c.hub == nil {
		return nil
	}

	c.hub.Broadcast(ws.AllUsers, &ws.Message{
		Type:    "case_status_changed",
		Channel: "cases",
		Data: map[string]interface{}{
			"case_id":    caseID,
			"from":       from,
			"to":         to,
			"changed_by": changedBy,
		},
	})
	return nil
}
