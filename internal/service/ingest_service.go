package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/deskroute/internal/model"
	appErr "github.com/xxxsen/deskroute/internal/pkg/errors"
)

type ingestStore interface {
	Create(ctx context.Context, msg *model.Message) error
	MaxID(ctx context.Context) (int64, error)
}

// maxIngestRetries bounds id regeneration after a duplicate insert.
const maxIngestRetries = 3

// IngestService stores inbound messages. Ids are microsecond
// timestamps, which keeps them monotonic enough for ordering; on a
// collision the next id is max+1.
type IngestService struct {
	messages ingestStore
	now      func() time.Time
}

func NewIngestService(messages ingestStore) *IngestService {
	return &IngestService{messages: messages, now: time.Now}
}

func (s *IngestService) Ingest(ctx context.Context, content string, ts time.Time) (int64, error) {
	if strings.TrimSpace(content) == "" {
		return 0, fmt.Errorf("%w: empty message content", appErr.ErrInvalid)
	}
	if ts.IsZero() {
		ts = s.now()
	}
	msgID := s.now().UnixMicro()
	for attempt := 0; attempt < maxIngestRetries; attempt++ {
		err := s.messages.Create(ctx, &model.Message{MsgID: msgID, Content: content, Timestamp: ts})
		if err == nil {
			return msgID, nil
		}
		if !appErr.IsConflict(err) {
			return 0, err
		}
		logutil.GetLogger(ctx).Warn("message id collision", zap.Int64("msg_id", msgID))
		maxID, merr := s.messages.MaxID(ctx)
		if merr != nil || maxID <= 0 {
			msgID = s.now().UnixMicro()
			continue
		}
		msgID = maxID + 1
	}
	return 0, fmt.Errorf("allocate message id: %w", appErr.ErrConflict)
}
