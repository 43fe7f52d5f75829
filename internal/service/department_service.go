package service

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/deskroute/internal/model"
	appErr "github.com/xxxsen/deskroute/internal/pkg/errors"
)

type departmentCatalog interface {
	CreateBatch(ctx context.Context, depts []model.Department) error
	List(ctx context.Context) ([]model.Department, error)
}

// DepartmentService owns the catalog: CSV import and listing.
type DepartmentService struct {
	departments departmentCatalog
}

func NewDepartmentService(departments departmentCatalog) *DepartmentService {
	return &DepartmentService{departments: departments}
}

func (s *DepartmentService) List(ctx context.Context) ([]model.Department, error) {
	return s.departments.List(ctx)
}

// ImportCSV loads departments from a CSV stream. The header must name
// dept_name and dept_desc columns; dept_id is optional and generated
// when absent. The whole file is validated before anything is written.
func (s *DepartmentService) ImportCSV(ctx context.Context, r io.Reader) (int, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	header, err := reader.Read()
	if err != nil {
		return 0, fmt.Errorf("%w: read csv header: %v", appErr.ErrInvalid, err)
	}
	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}
	nameIdx, ok := cols["dept_name"]
	if !ok {
		return 0, fmt.Errorf("%w: missing dept_name column", appErr.ErrInvalid)
	}
	descIdx, ok := cols["dept_desc"]
	if !ok {
		return 0, fmt.Errorf("%w: missing dept_desc column", appErr.ErrInvalid)
	}
	idIdx, hasID := cols["dept_id"]

	depts := make([]model.Department, 0)
	seen := make(map[string]bool)
	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return 0, fmt.Errorf("%w: line %d: %v", appErr.ErrInvalid, line, err)
		}
		dept := model.Department{
			DeptName: strings.TrimSpace(record[nameIdx]),
			DeptDesc: strings.TrimSpace(record[descIdx]),
		}
		if dept.DeptName == "" || dept.DeptDesc == "" {
			return 0, fmt.Errorf("%w: line %d: empty dept_name or dept_desc", appErr.ErrInvalid, line)
		}
		if hasID {
			dept.DeptID = strings.TrimSpace(record[idIdx])
		}
		if dept.DeptID == "" {
			dept.DeptID = newID()
		}
		if seen[dept.DeptID] {
			return 0, fmt.Errorf("%w: line %d: duplicate dept_id %s", appErr.ErrInvalid, line, dept.DeptID)
		}
		seen[dept.DeptID] = true
		depts = append(depts, dept)
	}
	if len(depts) == 0 {
		return 0, fmt.Errorf("%w: no department rows", appErr.ErrInvalid)
	}
	if err := s.departments.CreateBatch(ctx, depts); err != nil {
		return 0, err
	}
	logutil.GetLogger(ctx).Info("departments imported", zap.Int("count", len(depts)))
	return len(depts), nil
}
