package web

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/evcraddock/smartrent/internal/access"
	"github.com/evcraddock/smartrent/internal/payment"
)

type paymentsResponse struct {
	Stats    payment.Stats     `json:"stats"`
	Payments []payment.Payment `json:"payments"`
}

// handlePayments lists payments made by a tenant or received by a landlord.
func (s *Server) handlePayments(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	uid := userID(r)
	role := s.app.Profiles.Role(ctx, uid)

	var list []payment.Payment
	switch role {
	case access.Tenant:
		list = s.app.Payments.TenantPayments(ctx, uid)
	case access.Landlord:
		list = s.app.Payments.LandlordPayments(ctx, uid)
	default:
		list = []payment.Payment{}
	}
	apiJSON(w, paymentsResponse{Stats: payment.ComputeStats(list), Payments: list}, http.StatusOK)
}

type initiateResponse struct {
	Payment  payment.Payment  `json:"payment"`
	Checkout payment.Checkout `json:"checkout"`
}

// handleInitiatePayment stores a pending payment and returns the gateway
// checkout the client should open.
func (s *Server) handleInitiatePayment(w http.ResponseWriter, r *http.Request) {
	var req payment.Request
	if !decode(w, r, &req) {
		return
	}
	if req.Email == "" {
		if u := currentUser(r); u != nil {
			req.Email = u.Email
		}
	}
	h, err := s.app.Payments.Initiate(r.Context(), userID(r), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	apiJSON(w, initiateResponse{Payment: h.Payment(), Checkout: h.Checkout()}, http.StatusCreated)
}

// handlePaymentCallback handles POST /api/payments/{id}/callback, the
// gateway's success callback. The reference is verified with the gateway
// before the payment is settled; only the first callback settles it.
func (s *Server) handlePaymentCallback(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Reference string `json:"reference"`
	}
	if !decode(w, r, &req) {
		return
	}

	h, err := s.app.Payments.Handle(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	p, err := h.Complete(r.Context(), req.Reference)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	apiJSON(w, p, http.StatusOK)
}

// handleReceipt returns the receipt of a completed payment to its tenant,
// its landlord or an admin.
func (s *Server) handleReceipt(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	uid := userID(r)
	p, err := s.app.Payments.Get(ctx, mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if p.TenantID != uid && p.LandlordID != uid && !s.app.Access.IsAdmin(ctx, uid) {
		s.writeError(w, r, access.ErrForbidden)
		return
	}
	if p.Status != payment.Completed {
		apiError(w, "payment is not completed", http.StatusConflict)
		return
	}

	url := p.ReceiptURL
	if url == "" {
		if url, err = s.app.Payments.GenerateReceipt(ctx, p.ID); err != nil {
			s.writeError(w, r, err)
			return
		}
	}
	apiJSON(w, map[string]string{"id": p.ID, "receipt_url": url}, http.StatusOK)
}
