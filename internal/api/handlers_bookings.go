package api

import (
	"net/http"

	"healthops/internal/lifecycle"
	"healthops/internal/models"
	"healthops/internal/workflow"
)

type patientRequest struct {
	Name    string `json:"name"`
	Age     *int   `json:"age"`
	Gender  string `json:"gender"`
	Mobile  string `json:"mobile"`
	Email   string `json:"email"`
	Address string `json:"address"`
}

func (p patientRequest) model() models.Patient {
	return models.Patient{
		Name:    p.Name,
		Age:     p.Age,
		Gender:  p.Gender,
		Mobile:  p.Mobile,
		Email:   p.Email,
		Address: p.Address,
	}
}

type testRequest struct {
	Name  string  `json:"name"`
	Price float64 `json:"price"`
}

func selections(tests []testRequest) []lifecycle.TestSelection {
	out := make([]lifecycle.TestSelection, 0, len(tests))
	for _, t := range tests {
		out = append(out, lifecycle.TestSelection{Name: t.Name, Price: t.Price})
	}
	return out
}

type paymentRequest struct {
	Status    models.PaymentStatus `json:"status"`
	Mode      models.PaymentMode   `json:"mode"`
	Reference string               `json:"reference"`
}

func (p paymentRequest) input() lifecycle.PaymentInput {
	return lifecycle.PaymentInput{Status: p.Status, Mode: p.Mode, Reference: p.Reference}
}

type createBookingRequest struct {
	CampCode string         `json:"campCode"`
	Patient  patientRequest `json:"patient"`
	Tests    []testRequest  `json:"tests"`
	Payment  paymentRequest `json:"payment"`
}

type vendorStatusRequest struct {
	VendorName      string `json:"vendorName"`
	VendorBookingID string `json:"vendorBookingId"`
}

type selectTestsRequest struct {
	Tests []testRequest `json:"tests"`
}

func (s *HTTPServer) handleCreateBooking(w http.ResponseWriter, r *http.Request) {
	var req createBookingRequest
	if !decodeBody(w, r, &req) {
		return
	}
	actor, _ := identity(r)
	b, err := s.deps.Lifecycle.CreateBooking(r.Context(), lifecycle.CreateBookingInput{
		CampCode: req.CampCode,
		Patient:  req.Patient.model(),
		Tests:    selections(req.Tests),
		Payment:  req.Payment.input(),
	}, actor)
	s.writeBooking(w, http.StatusCreated, b, err)
}

func (s *HTTPServer) handleGetBooking(w http.ResponseWriter, r *http.Request) {
	b, err := s.deps.Lifecycle.GetBooking(r.Context(), r.PathValue("id"))
	s.writeBooking(w, http.StatusOK, b, err)
}

func (s *HTTPServer) handleFindBooking(w http.ResponseWriter, r *http.Request) {
	b, err := s.deps.Lifecycle.FindBookingByMasterID(r.Context(), r.PathValue("masterID"))
	s.writeBooking(w, http.StatusOK, b, err)
}

// handleBookingCamp resolves the camp a booking was taken at and the screen
// it opens in.
func (s *HTTPServer) handleBookingCamp(w http.ResponseWriter, r *http.Request) {
	nav := workflow.NewNavigator(s.deps.Camps, s.deps.Bookings, s.localNow, nil)
	sel, err := nav.SelectCampOf(r.PathValue("id"))
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.selectionJSON(sel))
}

func (s *HTTPServer) handlePayment(w http.ResponseWriter, r *http.Request) {
	var req paymentRequest
	if !decodeBody(w, r, &req) {
		return
	}
	actor, _ := identity(r)
	b, err := s.deps.Lifecycle.UpdatePayment(r.Context(), r.PathValue("id"), req.input(), actor)
	s.writeBooking(w, http.StatusOK, b, err)
}

func (s *HTTPServer) handleBookingVendor(w http.ResponseWriter, r *http.Request) {
	var req vendorStatusRequest
	if !decodeBody(w, r, &req) {
		return
	}
	actor, _ := identity(r)
	b, err := s.deps.Lifecycle.SetVendorStatus(r.Context(), r.PathValue("id"), lifecycle.VendorStatusInput{
		VendorName:      req.VendorName,
		VendorBookingID: req.VendorBookingID,
	}, actor)
	s.writeBooking(w, http.StatusOK, b, err)
}

func (s *HTTPServer) handleSubmitReport(w http.ResponseWriter, r *http.Request) {
	actor, _ := identity(r)
	b, err := s.deps.Lifecycle.SubmitReport(r.Context(), r.PathValue("id"), actor)
	s.writeBooking(w, http.StatusOK, b, err)
}

func (s *HTTPServer) handlePatient(w http.ResponseWriter, r *http.Request) {
	var req patientRequest
	if !decodeBody(w, r, &req) {
		return
	}
	actor, _ := identity(r)
	b, err := s.deps.Lifecycle.UpdatePatient(r.Context(), r.PathValue("id"), req.model(), actor)
	s.writeBooking(w, http.StatusOK, b, err)
}

func (s *HTTPServer) handleSelectTests(w http.ResponseWriter, r *http.Request) {
	var req selectTestsRequest
	if !decodeBody(w, r, &req) {
		return
	}
	actor, _ := identity(r)
	b, err := s.deps.Lifecycle.SelectTests(r.Context(), r.PathValue("id"), selections(req.Tests), actor)
	s.writeBooking(w, http.StatusOK, b, err)
}

func (s *HTTPServer) handleRemoveTest(w http.ResponseWriter, r *http.Request) {
	actor, _ := identity(r)
	b, err := s.deps.Lifecycle.RemoveTest(r.Context(), r.PathValue("id"), r.PathValue("code"), actor)
	s.writeBooking(w, http.StatusOK, b, err)
}
