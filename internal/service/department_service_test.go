package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/deskroute/internal/model"
	appErr "github.com/xxxsen/deskroute/internal/pkg/errors"
)

type fakeCatalog struct {
	depts []model.Department
}

func (f *fakeCatalog) CreateBatch(ctx context.Context, depts []model.Department) error {
	f.depts = append(f.depts, depts...)
	return nil
}

func (f *fakeCatalog) List(ctx context.Context) ([]model.Department, error) {
	return f.depts, nil
}

func TestImportCSV_WithExplicitIDs(t *testing.T) {
	catalog := &fakeCatalog{}
	svc := NewDepartmentService(catalog)
	csvData := `dept_id,dept_name,dept_desc
HR,인사팀,"급여, 휴가, 복지 문의"
IT,IT지원팀,사내 시스템 및 장비 문의
`
	count, err := svc.ImportCSV(context.Background(), strings.NewReader(csvData))
	require.NoError(t, err)
	require.Equal(t, 2, count)
	require.Len(t, catalog.depts, 2)
	require.Equal(t, "HR", catalog.depts[0].DeptID)
	require.Equal(t, "급여, 휴가, 복지 문의", catalog.depts[0].DeptDesc)
}

func TestImportCSV_GeneratesMissingIDs(t *testing.T) {
	catalog := &fakeCatalog{}
	svc := NewDepartmentService(catalog)
	csvData := "dept_name,dept_desc\nSales,Handles new orders\n"

	count, err := svc.ImportCSV(context.Background(), strings.NewReader(csvData))
	require.NoError(t, err)
	require.Equal(t, 1, count)
	require.NotEmpty(t, catalog.depts[0].DeptID)
	require.Len(t, catalog.depts[0].DeptID, 32)
}

func TestImportCSV_MissingColumn(t *testing.T) {
	svc := NewDepartmentService(&fakeCatalog{})

	_, err := svc.ImportCSV(context.Background(), strings.NewReader("dept_name\nSales\n"))
	require.ErrorIs(t, err, appErr.ErrInvalid)
}

func TestImportCSV_EmptyField(t *testing.T) {
	svc := NewDepartmentService(&fakeCatalog{})
	csvData := "dept_name,dept_desc\nSales,\n"

	_, err := svc.ImportCSV(context.Background(), strings.NewReader(csvData))
	require.ErrorIs(t, err, appErr.ErrInvalid)
}

func TestImportCSV_DuplicateID(t *testing.T) {
	svc := NewDepartmentService(&fakeCatalog{})
	csvData := "dept_id,dept_name,dept_desc\nHR,a,b\nHR,c,d\n"

	_, err := svc.ImportCSV(context.Background(), strings.NewReader(csvData))
	require.ErrorIs(t, err, appErr.ErrInvalid)
}

func TestImportCSV_NoRows(t *testing.T) {
	svc := NewDepartmentService(&fakeCatalog{})

	_, err := svc.ImportCSV(context.Background(), strings.NewReader("dept_name,dept_desc\n"))
	require.ErrorIs(t, err, appErr.ErrInvalid)
}
