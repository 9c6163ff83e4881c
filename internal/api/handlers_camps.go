package api

import (
	"net/http"
	"strings"

	"healthops/internal/lifecycle"
	"healthops/internal/models"
)

type scheduleRequest struct {
	CampCode         string          `json:"campCode"`
	Date             string          `json:"date"`
	ClientName       string          `json:"clientName"`
	Location         models.Location `json:"location"`
	SalesPerson      string          `json:"salesPerson"`
	Coordinator      string          `json:"coordinator"`
	ExpectedFootfall *int            `json:"expectedFootfall"`
}

type financialsRequest struct {
	UnitsSold            *int     `json:"unitsSold"`
	Revenue              *float64 `json:"revenue"`
	CampExpense          *float64 `json:"campExpense"`
	VendorExpense        *float64 `json:"vendorExpense"`
	StaffExpense         *float64 `json:"staffExpense"`
	PartnerAdjustedCount *int     `json:"partnerAdjustedCount"`
}

func (f financialsRequest) input() lifecycle.Financials {
	return lifecycle.Financials{
		UnitsSold:            f.UnitsSold,
		Revenue:              f.Revenue,
		CampExpense:          f.CampExpense,
		VendorExpense:        f.VendorExpense,
		StaffExpense:         f.StaffExpense,
		PartnerAdjustedCount: f.PartnerAdjustedCount,
	}
}

type cancelRequest struct {
	Reason string `json:"reason"`
}

type closeReportRequest struct {
	ReportURL   string `json:"reportUrl"`
	ReportNotes string `json:"reportNotes"`
}

type testCountsRequest struct {
	Conversions *int `json:"conversions"`
	Sales       *int `json:"sales"`
}

func (s *HTTPServer) handleScheduleCamp(w http.ResponseWriter, r *http.Request) {
	var req scheduleRequest
	if !decodeBody(w, r, &req) {
		return
	}
	actor, _ := identity(r)
	c, err := s.deps.Lifecycle.ScheduleCamp(r.Context(), lifecycle.ScheduleInput{
		CampCode:         req.CampCode,
		Date:             models.Date(strings.TrimSpace(req.Date)),
		ClientName:       req.ClientName,
		Location:         req.Location,
		SalesPerson:      req.SalesPerson,
		Coordinator:      req.Coordinator,
		ExpectedFootfall: req.ExpectedFootfall,
	}, actor)
	s.writeCamp(w, http.StatusCreated, c, err)
}

func (s *HTTPServer) handleGetCamp(w http.ResponseWriter, r *http.Request) {
	c, err := s.deps.Lifecycle.GetCamp(r.Context(), r.PathValue("id"))
	s.writeCamp(w, http.StatusOK, c, err)
}

func (s *HTTPServer) handleFindCamp(w http.ResponseWriter, r *http.Request) {
	c, err := s.deps.Lifecycle.FindCampByCode(r.Context(), r.PathValue("code"))
	s.writeCamp(w, http.StatusOK, c, err)
}

func (s *HTTPServer) handleCompleteCamp(w http.ResponseWriter, r *http.Request) {
	var req financialsRequest
	if !decodeBody(w, r, &req) {
		return
	}
	actor, _ := identity(r)
	c, err := s.deps.Lifecycle.CompleteCamp(r.Context(), r.PathValue("id"), req.input(), actor)
	s.writeCamp(w, http.StatusOK, c, err)
}

func (s *HTTPServer) handleCancelCamp(w http.ResponseWriter, r *http.Request) {
	var req cancelRequest
	if !decodeBody(w, r, &req) {
		return
	}
	actor, _ := identity(r)
	c, err := s.deps.Lifecycle.CancelCamp(r.Context(), r.PathValue("id"), req.Reason, actor)
	s.writeCamp(w, http.StatusOK, c, err)
}

func (s *HTTPServer) handleCloseReport(w http.ResponseWriter, r *http.Request) {
	var req closeReportRequest
	if !decodeBody(w, r, &req) {
		return
	}
	actor, _ := identity(r)
	c, err := s.deps.Lifecycle.CloseCampReport(r.Context(), r.PathValue("id"), lifecycle.ReportInput{
		ReportURL:   req.ReportURL,
		ReportNotes: req.ReportNotes,
	}, actor)
	s.writeCamp(w, http.StatusOK, c, err)
}

func (s *HTTPServer) handleCampVendor(w http.ResponseWriter, r *http.Request) {
	var req models.VendorDetails
	if !decodeBody(w, r, &req) {
		return
	}
	actor, _ := identity(r)
	c, err := s.deps.Lifecycle.SaveCampVendorDetails(r.Context(), r.PathValue("id"), req, actor)
	s.writeCamp(w, http.StatusOK, c, err)
}

func (s *HTTPServer) handleTestCounts(w http.ResponseWriter, r *http.Request) {
	var req testCountsRequest
	if !decodeBody(w, r, &req) {
		return
	}
	actor, _ := identity(r)
	c, err := s.deps.Lifecycle.SaveCampTestCounts(r.Context(), r.PathValue("id"), lifecycle.TestCounts{
		Conversions: req.Conversions,
		Sales:       req.Sales,
	}, actor)
	s.writeCamp(w, http.StatusOK, c, err)
}

func (s *HTTPServer) handleFinancials(w http.ResponseWriter, r *http.Request) {
	var req financialsRequest
	if !decodeBody(w, r, &req) {
		return
	}
	actor, _ := identity(r)
	c, err := s.deps.Lifecycle.SaveCampFinancials(r.Context(), r.PathValue("id"), req.input(), actor)
	s.writeCamp(w, http.StatusOK, c, err)
}
