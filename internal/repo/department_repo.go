package repo

import (
	"context"
	"database/sql"

	"github.com/didi/gendry/builder"

	"github.com/xxxsen/deskroute/internal/model"
	"github.com/xxxsen/deskroute/internal/pkg/dbutil"
	appErr "github.com/xxxsen/deskroute/internal/pkg/errors"
)

type DepartmentRepo struct {
	db *sql.DB
}

func NewDepartmentRepo(db *sql.DB) *DepartmentRepo {
	return &DepartmentRepo{db: db}
}

func (r *DepartmentRepo) CreateBatch(ctx context.Context, depts []model.Department) error {
	if len(depts) == 0 {
		return nil
	}
	rows := make([]map[string]interface{}, 0, len(depts))
	for _, dept := range depts {
		rows = append(rows, map[string]interface{}{
			"dept_id":   dept.DeptID,
			"dept_name": dept.DeptName,
			"dept_desc": dept.DeptDesc,
		})
	}
	sqlStr, args, err := builder.BuildInsert("departments", rows)
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

// List returns the catalog in insertion order. Routing relies on this
// order being stable: similarity ties keep it.
func (r *DepartmentRepo) List(ctx context.Context) ([]model.Department, error) {
	where := map[string]interface{}{"_orderby": "dept_id asc"}
	sqlStr, args, err := builder.BuildSelect("departments", where, []string{"dept_id", "dept_name", "dept_desc"})
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	depts := make([]model.Department, 0)
	for rows.Next() {
		var dept model.Department
		if err := rows.Scan(&dept.DeptID, &dept.DeptName, &dept.DeptDesc); err != nil {
			return nil, err
		}
		depts = append(depts, dept)
	}
	return depts, rows.Err()
}

func (r *DepartmentRepo) Get(ctx context.Context, deptID string) (*model.Department, error) {
	sqlStr, args, err := builder.BuildSelect("departments", map[string]interface{}{"dept_id": deptID}, []string{"dept_id", "dept_name", "dept_desc"})
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	var dept model.Department
	if err := r.db.QueryRowContext(ctx, sqlStr, args...).Scan(&dept.DeptID, &dept.DeptName, &dept.DeptDesc); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErr.ErrNotFound
		}
		return nil, err
	}
	return &dept, nil
}
