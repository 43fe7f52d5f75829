package handler

import (
	"context"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/deskroute/internal/model"
	"github.com/xxxsen/deskroute/internal/pkg/errcode"
	"github.com/xxxsen/deskroute/internal/pkg/response"
	"github.com/xxxsen/deskroute/internal/service"
)

// Assigner routes a stored message to departments. Pipeline and agent
// services both satisfy it; the configured mode decides which one is
// wired in.
type Assigner interface {
	Assign(ctx context.Context, msgID int64) (*model.AssignResult, error)
}

type WebhookHandler struct {
	ingest   *service.IngestService
	assigner Assigner
}

func NewWebhookHandler(ingest *service.IngestService, assigner Assigner) *WebhookHandler {
	return &WebhookHandler{ingest: ingest, assigner: assigner}
}

type webhookEntity struct {
	PlainText string `json:"plainText"`
	Blocks    []struct {
		Value string `json:"value"`
	} `json:"blocks"`
}

type webhookRequest struct {
	Event  string        `json:"event"`
	Entity webhookEntity `json:"entity"`
	Msg    string        `json:"msg"`
}

// extractContent picks the message text in payload priority order:
// entity.plainText, then the first block value, then the top-level msg
// field.
func extractContent(req *webhookRequest) string {
	if text := strings.TrimSpace(req.Entity.PlainText); text != "" {
		return text
	}
	if len(req.Entity.Blocks) > 0 {
		if text := strings.TrimSpace(req.Entity.Blocks[0].Value); text != "" {
			return text
		}
	}
	return strings.TrimSpace(req.Msg)
}

// Receive stores the inbound message and runs assignment. Storage and
// assignment are decoupled: once the message row exists, an assignment
// failure still acknowledges the webhook so the sender does not retry
// and duplicate the message.
func (h *WebhookHandler) Receive(c *gin.Context) {
	var req webhookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errcode.ErrInvalid, "invalid payload")
		return
	}
	content := extractContent(&req)
	if content == "" {
		response.Error(c, errcode.ErrInvalid, "no message content in payload")
		return
	}
	ctx := c.Request.Context()
	msgID, err := h.ingest.Ingest(ctx, content, time.Time{})
	if err != nil {
		handleError(c, err)
		return
	}
	res, err := h.assigner.Assign(ctx, msgID)
	if err != nil {
		logutil.GetLogger(ctx).Error("assignment failed after ingest",
			zap.Int64("msg_id", msgID), zap.Error(err))
		response.Success(c, gin.H{
			"msg_id": msgID,
			"result": 0,
			"status": "error",
		})
		return
	}
	body := gin.H{
		"msg_id": msgID,
		"result": res.Status.Code(),
		"status": res.Status.String(),
	}
	if len(res.DeptIDs) > 0 {
		body["dept_ids"] = res.DeptIDs
	}
	if res.Reply != "" {
		body["reply"] = res.Reply
	}
	response.Success(c, body)
}
