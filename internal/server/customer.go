package server

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	customerdomain "github.com/smallbiznis/ecoscape/internal/customer/domain"
	maintenancedomain "github.com/smallbiznis/ecoscape/internal/maintenance/domain"
)

type addressBody struct {
	Street  string `json:"street" binding:"required"`
	City    string `json:"city" binding:"required"`
	State   string `json:"state" binding:"required"`
	ZipCode string `json:"zipCode" binding:"required"`
	Country string `json:"country"`
}

func (a addressBody) toDomain() customerdomain.Address {
	return customerdomain.Address{
		Street:  a.Street,
		City:    a.City,
		State:   a.State,
		ZipCode: a.ZipCode,
		Country: a.Country,
	}
}

type createCustomerRequest struct {
	Name        string                      `json:"name" binding:"required,min=2"`
	Email       string                      `json:"email" binding:"required,email"`
	Phone       string                      `json:"phone" binding:"required"`
	DateOfBirth *string                     `json:"dateOfBirth"`
	Address     addressBody                 `json:"address"`
	Preferences *customerdomain.Preferences `json:"preferences"`
	Status      string                      `json:"status"`
	ReferredBy  string                      `json:"referredBy"`
}

type updateCustomerRequest struct {
	Name            *string                     `json:"name" binding:"omitempty,min=2"`
	Email           *string                     `json:"email" binding:"omitempty,email"`
	Phone           *string                     `json:"phone" binding:"omitempty,min=1"`
	DateOfBirth     *string                     `json:"dateOfBirth"`
	Address         *addressBody                `json:"address"`
	Preferences     *customerdomain.Preferences `json:"preferences"`
	Status          *string                     `json:"status"`
	ReferralSource  *string                     `json:"referralSource"`
	ReferredBy      presentString               `json:"referredBy"`
	TotalSpent      *float64                    `json:"totalSpent"`
	ServiceCount    *int                        `json:"serviceCount"`
	LoyaltyPoints   *int                        `json:"loyaltyPoints"`
	LastServiceDate *string                     `json:"lastServiceDate"`
}

// presentString records whether a key was sent at all. An explicit null reads as "".
type presentString struct {
	Present bool
	Value   string
}

func (p *presentString) UnmarshalJSON(data []byte) error {
	p.Present = true
	if string(data) == "null" {
		p.Value = ""
		return nil
	}
	return json.Unmarshal(data, &p.Value)
}

// ptr returns nil when the key was absent.
func (p presentString) ptr() *string {
	if !p.Present {
		return nil
	}
	value := p.Value
	return &value
}

type listCustomersQuery struct {
	Search        string `form:"search"`
	Status        string `form:"status"`
	LoyaltyStatus string `form:"loyaltyStatus"`
	Page          int    `form:"page"`
	Limit         int    `form:"limit"`
}

// customerDetail adds the computed address and age to a customer.
type customerDetail struct {
	customerdomain.Customer
	FullAddress string `json:"fullAddress"`
	Age         *int   `json:"age,omitempty"`
}

func (s *Server) ListCustomers(c *gin.Context) {
	var query listCustomersQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.customerSvc.List(c.Request.Context(), customerdomain.ListCustomerRequest{
		Search:        strings.TrimSpace(query.Search),
		Status:        strings.TrimSpace(query.Status),
		LoyaltyStatus: strings.TrimSpace(query.LoyaltyStatus),
		Page:          query.Page,
		Limit:         query.Limit,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respond(c, http.StatusOK, "", resp)
}

func (s *Server) CustomerStats(c *gin.Context) {
	stats, err := s.customerSvc.Stats(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respond(c, http.StatusOK, "", stats)
}

func (s *Server) GetCustomerByID(c *gin.Context) {
	ctx := c.Request.Context()
	customer, err := s.customerSvc.GetByID(ctx, customerdomain.GetCustomerRequest{ID: c.Param("id")})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	history, err := s.maintenanceSvc.ListByCustomer(ctx, customer.ID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if history == nil {
		history = []maintenancedomain.MaintenanceRequest{}
	}

	respond(c, http.StatusOK, "", gin.H{
		"customer": customerDetail{
			Customer:    customer,
			FullAddress: customer.FullAddress(),
			Age:         customer.Age(s.clock.Now()),
		},
		"maintenanceRequests": history,
	})
}

func (s *Server) CreateCustomer(c *gin.Context) {
	var req createCustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, bindError(err))
		return
	}

	dob, err := parseBodyTime("dateOfBirth", req.DateOfBirth)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	res, err := s.customerSvc.Create(c.Request.Context(), customerdomain.CreateCustomerRequest{
		Name:        req.Name,
		Email:       req.Email,
		Phone:       req.Phone,
		DateOfBirth: dob,
		Address:     req.Address.toDomain(),
		Preferences: req.Preferences,
		Status:      req.Status,
		ReferredBy:  req.ReferredBy,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respond(c, http.StatusCreated, "Customer created successfully", res.Customer, res.Warnings...)
}

func (s *Server) UpdateCustomer(c *gin.Context) {
	var req updateCustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, bindError(err))
		return
	}

	dob, err := parseBodyTime("dateOfBirth", req.DateOfBirth)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	lastService, err := parseBodyTime("lastServiceDate", req.LastServiceDate)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	update := customerdomain.UpdateCustomerRequest{
		ID:              c.Param("id"),
		Name:            req.Name,
		Email:           req.Email,
		Phone:           req.Phone,
		DateOfBirth:     dob,
		Preferences:     req.Preferences,
		Status:          req.Status,
		ReferralSource:  req.ReferralSource,
		ReferredBy:      req.ReferredBy.ptr(),
		TotalSpent:      req.TotalSpent,
		ServiceCount:    req.ServiceCount,
		LoyaltyPoints:   req.LoyaltyPoints,
		LastServiceDate: lastService,
	}
	if req.Address != nil {
		address := req.Address.toDomain()
		update.Address = &address
	}

	customer, err := s.customerSvc.Update(c.Request.Context(), update)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respond(c, http.StatusOK, "Customer updated successfully", customer)
}

func (s *Server) DeleteCustomer(c *gin.Context) {
	if err := s.customerSvc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		AbortWithError(c, err)
		return
	}

	respond(c, http.StatusOK, "Customer deleted successfully", nil)
}

func (s *Server) CustomerReport(c *gin.Context) {
	var query reportQuery
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
	report, err := s.customerSvc.Report(ctx, customerdomain.ReportRequest{StartDate: start, EndDate: end})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if format == formatJSON {
		respond(c, http.StatusOK, "", report)
		return
	}

	body, err := s.pdf.CustomerReport(ctx, report)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	sendPDF(c, "customer report "+report.GeneratedAt.Format(dateOnlyLayout), body)
}
