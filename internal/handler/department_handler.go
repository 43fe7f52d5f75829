package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/xxxsen/deskroute/internal/pkg/errcode"
	appErr "github.com/xxxsen/deskroute/internal/pkg/errors"
	"github.com/xxxsen/deskroute/internal/pkg/response"
	"github.com/xxxsen/deskroute/internal/service"
)

type DepartmentHandler struct {
	departments *service.DepartmentService
}

func NewDepartmentHandler(departments *service.DepartmentService) *DepartmentHandler {
	return &DepartmentHandler{departments: departments}
}

// Import loads the department catalog from an uploaded CSV file.
func (h *DepartmentHandler) Import(c *gin.Context) {
	file, _, err := c.Request.FormFile("file")
	if err != nil {
		response.Error(c, errcode.ErrInvalidFile, "missing csv file")
		return
	}
	defer file.Close()
	count, err := h.departments.ImportCSV(c.Request.Context(), file)
	if err != nil {
		if errors.Is(err, appErr.ErrInvalid) {
			response.Error(c, errcode.ErrInvalidFile, err.Error())
			return
		}
		if appErr.IsConflict(err) {
			response.Error(c, errcode.ErrImportFailed, "department id already exists")
			return
		}
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"imported": count})
}

func (h *DepartmentHandler) List(c *gin.Context) {
	depts, err := h.departments.List(c.Request.Context())
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, depts)
}
