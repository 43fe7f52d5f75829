package repo

import (
	"context"
	"database/sql"
	"time"

	"github.com/didi/gendry/builder"

	"github.com/xxxsen/deskroute/internal/model"
	"github.com/xxxsen/deskroute/internal/pkg/dbutil"
	appErr "github.com/xxxsen/deskroute/internal/pkg/errors"
)

type AssignmentRepo struct {
	db *sql.DB
}

func NewAssignmentRepo(db *sql.DB) *AssignmentRepo {
	return &AssignmentRepo{db: db}
}

// Create writes one (msg_id, dept_id) row. An existing pair returns
// appErr.ErrConflict; callers treat that as success so re-delivered
// webhooks stay idempotent.
func (r *AssignmentRepo) Create(ctx context.Context, msgID int64, deptID string) error {
	data := map[string]interface{}{
		"msg_id":  msgID,
		"dept_id": deptID,
		"ctime":   time.Now().UnixMilli(),
	}
	sqlStr, args, err := builder.BuildInsert("assigned_messages", []map[string]interface{}{data})
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

// ListMessages returns assigned messages joined with their content,
// newest first. An empty deptID lists across all departments.
func (r *AssignmentRepo) ListMessages(ctx context.Context, deptID string, limit int) ([]model.AssignedMessage, error) {
	sqlStr := `SELECT a.msg_id, a.dept_id, m.content, m.ts
FROM assigned_messages a
JOIN messages m ON m.msg_id = a.msg_id`
	args := make([]interface{}, 0, 2)
	if deptID != "" {
		sqlStr += " WHERE a.dept_id = ?"
		args = append(args, deptID)
	}
	sqlStr += " ORDER BY a.msg_id DESC LIMIT ?"
	args = append(args, limit)
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	return r.scanAssigned(ctx, sqlStr, args)
}

// Recent returns the latest assignment rows ordered by msg_id
// descending. A multi-department message produces one row per
// department; the caller dedupes when it wants one entry per message.
func (r *AssignmentRepo) Recent(ctx context.Context, limit int) ([]model.AssignedMessage, error) {
	sqlStr := `SELECT a.msg_id, a.dept_id, m.content, m.ts
FROM assigned_messages a
JOIN messages m ON m.msg_id = a.msg_id
ORDER BY a.msg_id DESC LIMIT ?`
	sqlStr, args := dbutil.Finalize(sqlStr, []interface{}{limit})
	return r.scanAssigned(ctx, sqlStr, args)
}

func (r *AssignmentRepo) TopDepartments(ctx context.Context, limit int) ([]model.DeptCount, error) {
	sqlStr := `SELECT a.dept_id, d.dept_name, COUNT(*) AS cnt
FROM assigned_messages a
JOIN departments d ON d.dept_id = a.dept_id
GROUP BY a.dept_id, d.dept_name
ORDER BY cnt DESC, a.dept_id ASC LIMIT ?`
	sqlStr, args := dbutil.Finalize(sqlStr, []interface{}{limit})
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	counts := make([]model.DeptCount, 0)
	for rows.Next() {
		var item model.DeptCount
		if err := rows.Scan(&item.DeptID, &item.DeptName, &item.Count); err != nil {
			return nil, err
		}
		counts = append(counts, item)
	}
	return counts, rows.Err()
}

// Queue lists a department's pending messages, newest message time
// first.
func (r *AssignmentRepo) Queue(ctx context.Context, deptID string, limit int) ([]model.AssignedMessage, error) {
	sqlStr := `SELECT a.msg_id, a.dept_id, m.content, m.ts
FROM assigned_messages a
JOIN messages m ON m.msg_id = a.msg_id
WHERE a.dept_id = ?
ORDER BY m.ts DESC LIMIT ?`
	sqlStr, args := dbutil.Finalize(sqlStr, []interface{}{deptID, limit})
	return r.scanAssigned(ctx, sqlStr, args)
}

func (r *AssignmentRepo) CountByDepartment(ctx context.Context, deptID string) (int64, error) {
	sqlStr, args := dbutil.Finalize("SELECT COUNT(*) FROM assigned_messages WHERE dept_id = ?", []interface{}{deptID})
	var count int64
	if err := r.db.QueryRowContext(ctx, sqlStr, args...).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (r *AssignmentRepo) scanAssigned(ctx context.Context, sqlStr string, args []interface{}) ([]model.AssignedMessage, error) {
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := make([]model.AssignedMessage, 0)
	for rows.Next() {
		var item model.AssignedMessage
		if err := rows.Scan(&item.MsgID, &item.DeptID, &item.Content, &item.Timestamp); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}
