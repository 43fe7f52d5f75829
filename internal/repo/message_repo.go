package repo

import (
	"context"
	"database/sql"

	"github.com/didi/gendry/builder"

	"github.com/xxxsen/deskroute/internal/model"
	"github.com/xxxsen/deskroute/internal/pkg/dbutil"
	appErr "github.com/xxxsen/deskroute/internal/pkg/errors"
)

type MessageRepo struct {
	db *sql.DB
}

func NewMessageRepo(db *sql.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

// Create inserts one message row. A duplicate id surfaces as
// appErr.ErrConflict so the ingest service can regenerate the id and
// retry.
func (r *MessageRepo) Create(ctx context.Context, msg *model.Message) error {
	data := map[string]interface{}{
		"msg_id":  msg.MsgID,
		"content": msg.Content,
		"ts":      msg.Timestamp,
	}
	sqlStr, args, err := builder.BuildInsert("messages", []map[string]interface{}{data})
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	if _, err := r.db.ExecContext(ctx, sqlStr, args...); err != nil {
		if dbutil.IsConflict(err) {
			return appErr.ErrConflict
		}
		return err
	}
	return nil
}

func (r *MessageRepo) GetContent(ctx context.Context, msgID int64) (string, error) {
	sqlStr, args, err := builder.BuildSelect("messages", map[string]interface{}{"msg_id": msgID}, []string{"content"})
	if err != nil {
		return "", err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	var content string
	if err := r.db.QueryRowContext(ctx, sqlStr, args...).Scan(&content); err != nil {
		if err == sql.ErrNoRows {
			return "", appErr.ErrNotFound
		}
		return "", err
	}
	return content, nil
}

// MaxID returns the highest stored message id, 0 when the table is
// empty. Used to pick the next id after a collision.
func (r *MessageRepo) MaxID(ctx context.Context) (int64, error) {
	var maxID sql.NullInt64
	if err := r.db.QueryRowContext(ctx, "SELECT MAX(msg_id) FROM messages").Scan(&maxID); err != nil {
		return 0, err
	}
	if !maxID.Valid {
		return 0, nil
	}
	return maxID.Int64, nil
}
