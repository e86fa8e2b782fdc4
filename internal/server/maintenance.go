package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	maintenancedomain "github.com/smallbiznis/ecoscape/internal/maintenance/domain"
)

type createMaintenanceRequest struct {
	CustomerID      string                             `json:"customerId" binding:"required"`
	ServiceType     string                             `json:"serviceType" binding:"required"`
	Description     string                             `json:"description" binding:"required,min=10"`
	Priority        string                             `json:"priority"`
	PreferredDate   *string                            `json:"preferredDate"`
	ServiceLocation *maintenancedomain.ServiceLocation `json:"serviceLocation"`
	EstimatedCost   *float64                           `json:"estimatedCost"`
}

type updateMaintenanceStatusRequest struct {
	Status        string   `json:"status" binding:"required"`
	ScheduledDate *string  `json:"scheduledDate"`
	AssignedTo    *string  `json:"assignedTo"`
	Notes         string   `json:"notes"`
	FinalCost     *float64 `json:"finalCost"`
}

type updateMaintenanceRequest struct {
	ServiceType     *string                            `json:"serviceType"`
	Description     *string                            `json:"description" binding:"omitempty,min=10"`
	Priority        *string                            `json:"priority"`
	Status          *string                            `json:"status"`
	PreferredDate   *string                            `json:"preferredDate"`
	ScheduledDate   *string                            `json:"scheduledDate"`
	AssignedTo      *string                            `json:"assignedTo"`
	ServiceLocation *maintenancedomain.ServiceLocation `json:"serviceLocation"`
	EstimatedCost   *float64                           `json:"estimatedCost"`
	FinalCost       *float64                           `json:"finalCost"`
}

type addNoteRequest struct {
	Message           string `json:"message" binding:"required"`
	IsCustomerVisible *bool  `json:"isCustomerVisible"`
}

type listMaintenanceQuery struct {
	Status     string `form:"status"`
	Priority   string `form:"priority"`
	CustomerID string `form:"customerId"`
	Page       int    `form:"page"`
	Limit      int    `form:"limit"`
}

type serviceReportQuery struct {
	reportQuery
	Status      string `form:"status"`
	ServiceType string `form:"serviceType"`
}

func (s *Server) ListMaintenanceRequests(c *gin.Context) {
	var query listMaintenanceQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.maintenanceSvc.List(c.Request.Context(), maintenancedomain.ListRequest{
		Status:     strings.TrimSpace(query.Status),
		Priority:   strings.TrimSpace(query.Priority),
		CustomerID: strings.TrimSpace(query.CustomerID),
		Page:       query.Page,
		Limit:      query.Limit,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respond(c, http.StatusOK, "", resp)
}

func (s *Server) GetMaintenanceRequest(c *gin.Context) {
	request, err := s.maintenanceSvc.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respond(c, http.StatusOK, "", request)
}

func (s *Server) CreateMaintenanceRequest(c *gin.Context) {
	var req createMaintenanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, bindError(err))
		return
	}
	preferred, err := parseBodyTime("preferredDate", req.PreferredDate)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	request, err := s.maintenanceSvc.Create(c.Request.Context(), maintenancedomain.CreateRequest{
		CustomerID:      req.CustomerID,
		ServiceType:     req.ServiceType,
		Description:     req.Description,
		Priority:        req.Priority,
		PreferredDate:   preferred,
		ServiceLocation: req.ServiceLocation,
		EstimatedCost:   req.EstimatedCost,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respond(c, http.StatusCreated, "Maintenance request created successfully", request)
}

func (s *Server) UpdateMaintenanceStatus(c *gin.Context) {
	var req updateMaintenanceStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, bindError(err))
		return
	}
	scheduled, err := parseBodyTime("scheduledDate", req.ScheduledDate)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	res, err := s.maintenanceSvc.UpdateStatus(c.Request.Context(), maintenancedomain.UpdateStatusRequest{
		ID:            c.Param("id"),
		Status:        req.Status,
		ScheduledDate: scheduled,
		AssignedTo:    req.AssignedTo,
		Note:          req.Notes,
		FinalCost:     req.FinalCost,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respond(c, http.StatusOK, "Maintenance request updated successfully", res.Request, res.Warnings...)
}

func (s *Server) UpdateMaintenanceRequest(c *gin.Context) {
	var req updateMaintenanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, bindError(err))
		return
	}
	preferred, err := parseBodyTime("preferredDate", req.PreferredDate)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	scheduled, err := parseBodyTime("scheduledDate", req.ScheduledDate)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	res, err := s.maintenanceSvc.Update(c.Request.Context(), maintenancedomain.UpdateRequest{
		ID:              c.Param("id"),
		ServiceType:     req.ServiceType,
		Description:     req.Description,
		Priority:        req.Priority,
		Status:          req.Status,
		PreferredDate:   preferred,
		ScheduledDate:   scheduled,
		AssignedTo:      req.AssignedTo,
		ServiceLocation: req.ServiceLocation,
		EstimatedCost:   req.EstimatedCost,
		FinalCost:       req.FinalCost,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respond(c, http.StatusOK, "Maintenance request updated successfully", res.Request, res.Warnings...)
}

func (s *Server) DeleteMaintenanceRequest(c *gin.Context) {
	if err := s.maintenanceSvc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		AbortWithError(c, err)
		return
	}

	respond(c, http.StatusOK, "Maintenance request deleted successfully", nil)
}

func (s *Server) AddMaintenanceNote(c *gin.Context) {
	var req addNoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, bindError(err))
		return
	}

	request, err := s.maintenanceSvc.AddNote(c.Request.Context(), maintenancedomain.AddNoteRequest{
		ID:                c.Param("id"),
		Message:           req.Message,
		IsCustomerVisible: req.IsCustomerVisible,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respond(c, http.StatusCreated, "Note added successfully", request)
}

func (s *Server) MaintenanceStats(c *gin.Context) {
	stats, err := s.maintenanceSvc.Stats(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respond(c, http.StatusOK, "", stats)
}

func (s *Server) ServiceReport(c *gin.Context) {
	var query serviceReportQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	start, end, err := query.window()
	if err != nil {
		AbortWithError(c, err)
		return
	}
	format, err := query.format()
	if err != nil {
		AbortWithError(c, err)
		return
	}

	ctx := c.Request.Context()
	report, err := s.maintenanceSvc.Report(ctx, maintenancedomain.ReportRequest{
		StartDate:   start,
		EndDate:     end,
		Status:      strings.TrimSpace(query.Status),
		ServiceType: strings.TrimSpace(query.ServiceType),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if format == formatJSON {
		respond(c, http.StatusOK, "", report)
		return
	}

	body, err := s.pdf.ServiceReport(ctx, report)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	sendPDF(c, "service report "+report.GeneratedAt.Format(dateOnlyLayout), body)
}
