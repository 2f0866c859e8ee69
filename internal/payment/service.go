package payment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/evcraddock/smartrent/internal/access"
	"github.com/evcraddock/smartrent/internal/backend"
	"github.com/evcraddock/smartrent/internal/email"
	"github.com/evcraddock/smartrent/internal/notification"
	"github.com/evcraddock/smartrent/internal/notify"
	"github.com/evcraddock/smartrent/internal/profile"
	"github.com/evcraddock/smartrent/internal/property"
	"github.com/evcraddock/smartrent/internal/validate"
)

const table = "payments"

var (
	// ErrAlreadySettled is returned when a pending payment is completed twice.
	ErrAlreadySettled = errors.New("payment already settled")
	// ErrClosed is returned when completing a payment whose window was closed.
	ErrClosed = errors.New("payment window closed")
	// ErrVerificationFailed is returned when the gateway rejects a reference.
	ErrVerificationFailed = errors.New("payment verification failed")
	// ErrNoGateway is returned when payments are taken without a gateway.
	ErrNoGateway = errors.New("no payment gateway configured")
	// ErrReferenceMismatch is returned when a callback names a reference
	// other than the one issued by the payment's own checkout.
	ErrReferenceMismatch = errors.New("payment reference does not match")
)

// Service initiates, verifies and reports payments.
type Service struct {
	b       backend.Backend
	gateway Gateway
	access  *access.Checker
	notes   *notification.Service
	sink    notify.Sink
	log     *slog.Logger
	now     func() time.Time

	// mail sends receipts; nil disables receipt mail.
	mail func(email.Message) error

	mu      sync.Mutex
	pending map[string]*Handle
}

// NewService creates a payment service using gw for checkouts. A nil gw
// leaves the service read-only: Initiate and Complete fail with
// ErrNoGateway.
func NewService(b backend.Backend, gw Gateway, notes *notification.Service, sink notify.Sink, log *slog.Logger) *Service {
	if sink == nil {
		sink = notify.Discard
	}
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		b:       b,
		gateway: gw,
		access:  access.NewChecker(b),
		notes:   notes,
		sink:    sink,
		log:     log,
		now:     time.Now,
		pending: make(map[string]*Handle),
	}
}

// MailReceipts makes the service email each receipt to the tenant using
// send, typically a closure over email.Send.
func (s *Service) MailReceipts(send func(email.Message) error) {
	s.mail = send
}

// Initiate validates req, stores a pending payment for the tenant and
// opens the gateway checkout. The landlord is taken from the listing.
func (s *Service) Initiate(ctx context.Context, tenantID string, req Request) (*Handle, error) {
	if s.gateway == nil {
		return nil, ErrNoGateway
	}
	if err := validate.Struct(req); err != nil {
		return nil, err
	}
	if err := s.access.Require(ctx, tenantID, "payments", "create"); err != nil {
		return nil, err
	}
	prop, err := backend.One(ctx, s.b, backend.From("properties").Select("id", "landlord_id").Eq("id", req.PropertyID))
	if err != nil {
		return nil, fmt.Errorf("property %s: %w", req.PropertyID, err)
	}

	currency := req.Currency
	if currency == "" {
		currency = DefaultCurrency
	}
	row := backend.Row{
		"tenant_id":   tenantID,
		"property_id": req.PropertyID,
		"amount":      req.Amount,
		"currency":    currency,
		"status":      string(Pending),
		"method":      s.gateway.Name(),
		"created_at":  s.now().UTC(),
	}
	if id := prop.String("landlord_id"); id != "" {
		row["landlord_id"] = id
	}
	if req.DueDate != nil {
		row["due_date"] = req.DueDate.UTC()
	}

	stored, err := s.b.Insert(ctx, table, row)
	if err != nil {
		s.sink.Notify("Error processing payment", notify.Error)
		return nil, fmt.Errorf("creating payment: %w", err)
	}
	var p Payment
	if err := backend.DecodeRow(stored, &p); err != nil {
		return nil, err
	}

	checkout, err := s.gateway.Open(ctx, p, req.Email)
	if err != nil {
		s.sink.Notify("Error processing payment", notify.Error)
		return nil, fmt.Errorf("opening checkout: %w", err)
	}
	if _, err := s.b.Update(ctx, backend.From(table).Eq("id", p.ID), backend.Row{"reference": checkout.Reference}); err != nil {
		return nil, fmt.Errorf("saving reference: %w", err)
	}
	p.Reference = checkout.Reference

	h := &Handle{s: s, payment: p, checkout: checkout}
	s.mu.Lock()
	s.pending[p.ID] = h
	s.mu.Unlock()

	s.log.Info("payment initiated", "id", p.ID, "tenant", tenantID, "amount", p.Amount, "gateway", s.gateway.Name())
	return h, nil
}

// Handle returns the open handle for a pending payment. A payment that is
// still pending but was initiated elsewhere gets a fresh handle. A handle
// closed in this service stays closed.
func (s *Service) Handle(ctx context.Context, paymentID string) (*Handle, error) {
	s.mu.Lock()
	h, ok := s.pending[paymentID]
	s.mu.Unlock()
	if ok {
		return h, nil
	}

	p, err := s.Get(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if p.Status != Pending {
		return nil, ErrAlreadySettled
	}
	h = &Handle{s: s, payment: *p, checkout: Checkout{Reference: p.Reference}}
	s.mu.Lock()
	if existing, ok := s.pending[paymentID]; ok {
		h = existing
	} else {
		s.pending[paymentID] = h
	}
	s.mu.Unlock()
	return h, nil
}

func (s *Service) forget(paymentID string) {
	s.mu.Lock()
	delete(s.pending, paymentID)
	s.mu.Unlock()
}

// verify settles a payment from the gateway's verdict on reference.
func (s *Service) verify(ctx context.Context, p Payment, reference string) (Payment, error) {
	if s.gateway == nil {
		return p, ErrNoGateway
	}
	v, err := s.gateway.Verify(ctx, reference)
	if err == nil && !v.Status {
		err = ErrVerificationFailed
	}
	if err != nil {
		s.log.Error("verifying payment", "id", p.ID, "reference", reference, "error", err)
		if _, uerr := s.b.Update(ctx, backend.From(table).Eq("id", p.ID), backend.Row{"status": string(Failed)}); uerr != nil {
			s.log.Error("marking payment failed", "id", p.ID, "error", uerr)
		}
		p.Status = Failed
		s.sink.Notify("Payment verification failed", notify.Error)
		if !errors.Is(err, ErrVerificationFailed) {
			err = fmt.Errorf("%w: %w", ErrVerificationFailed, err)
		}
		return p, err
	}

	paidAt := s.now().UTC()
	values := backend.Row{
		"status":    string(Completed),
		"paid_at":   paidAt,
		"reference": reference,
	}
	if v.ReceiptURL != "" {
		values["receipt_url"] = v.ReceiptURL
	}
	if _, err := s.b.Update(ctx, backend.From(table).Eq("id", p.ID), values); err != nil {
		s.sink.Notify("Payment verification failed", notify.Error)
		return p, fmt.Errorf("completing payment: %w", err)
	}
	p.Status = Completed
	p.PaidAt = &paidAt
	p.Reference = reference
	if v.ReceiptURL != "" {
		p.ReceiptURL = v.ReceiptURL
	}
	s.sink.Notify("Payment completed successfully!", notify.Success)
	s.log.Info("payment completed", "id", p.ID, "reference", reference)

	if url, err := s.GenerateReceipt(ctx, p.ID); err != nil {
		s.log.Error("generating receipt", "id", p.ID, "error", err)
	} else {
		p.ReceiptURL = url
	}
	if p.LandlordID != "" && s.notes != nil {
		if _, err := s.notes.PaymentReceived(ctx, p.LandlordID, p.Amount); err != nil {
			s.log.Warn("notifying landlord", "id", p.ID, "error", err)
		}
	}
	return p, nil
}

// GenerateReceipt renders the receipt for a completed payment, stores it
// as a data: URL in receipt_url and returns that URL. When receipt mail
// is on, the receipt is also sent to the tenant.
func (s *Service) GenerateReceipt(ctx context.Context, paymentID string) (string, error) {
	p, err := s.Get(ctx, paymentID)
	if err != nil {
		return "", err
	}
	r := Receipt{ID: p.ID, Amount: p.Amount}
	if p.PaidAt != nil {
		r.PaidAt = *p.PaidAt
	}
	if p.Tenant != nil {
		r.TenantName = p.Tenant.FullName
	}
	if p.Property != nil {
		r.PropertyTitle = p.Property.Title
		r.PropertyAddress = p.Property.Address
	}

	html, err := r.HTML()
	if err != nil {
		return "", fmt.Errorf("rendering receipt: %w", err)
	}
	url := DataURL(html)
	if _, err := s.b.Update(ctx, backend.From(table).Eq("id", paymentID), backend.Row{"receipt_url": url}); err != nil {
		return "", fmt.Errorf("storing receipt: %w", err)
	}

	if s.mail != nil && p.Tenant != nil && p.Tenant.Email != "" {
		msg := email.Message{
			To:      []string{p.Tenant.Email},
			Subject: "SmartRent Payment Receipt",
			Body:    html,
			HTML:    true,
		}
		if err := s.mail(msg); err != nil {
			s.log.Warn("mailing receipt", "id", paymentID, "error", err)
		}
	}
	return url, nil
}

// Get returns one payment with listing, tenant and landlord attached.
func (s *Service) Get(ctx context.Context, id string) (*Payment, error) {
	row, err := backend.One(ctx, s.b, backend.From(table).Eq("id", id))
	if err != nil {
		return nil, fmt.Errorf("payment %s: %w", id, err)
	}
	list, err := s.attach(ctx, []backend.Row{row})
	if err != nil {
		return nil, err
	}
	return &list[0], nil
}

// TenantPayments returns the tenant's payments, newest first. Failures
// raise a toast and yield an empty list.
func (s *Service) TenantPayments(ctx context.Context, tenantID string) []Payment {
	list, err := s.list(ctx, backend.From(table).Eq("tenant_id", tenantID).Order("created_at", false))
	if err != nil {
		s.log.Error("fetching tenant payments", "tenant", tenantID, "error", err)
		s.sink.Notify("Error loading payment history", notify.Error)
		return []Payment{}
	}
	return list
}

// LandlordPayments returns payments to the landlord, newest first.
// Failures raise a toast and yield an empty list.
func (s *Service) LandlordPayments(ctx context.Context, landlordID string) []Payment {
	list, err := s.list(ctx, backend.From(table).Eq("landlord_id", landlordID).Order("created_at", false))
	if err != nil {
		s.log.Error("fetching landlord payments", "landlord", landlordID, "error", err)
		s.sink.Notify("Error loading payments", notify.Error)
		return []Payment{}
	}
	return list
}

// Stats summarizes the payments visible to the user: tenants see what they
// paid, landlords what they received, everyone else every payment.
// Failures yield zero stats.
func (s *Service) Stats(ctx context.Context, userID, role string) Stats {
	q := backend.From(table).Select("amount", "status")
	switch role {
	case access.Tenant:
		q.Eq("tenant_id", userID)
	case access.Landlord:
		q.Eq("landlord_id", userID)
	}
	rows, err := s.b.Select(ctx, q)
	if err != nil {
		s.log.Error("fetching payment stats", "user", userID, "error", err)
		return Stats{}
	}
	var list []Payment
	if err := backend.Decode(rows, &list); err != nil {
		s.log.Error("decoding payment stats", "error", err)
		return Stats{}
	}
	return ComputeStats(list)
}

func (s *Service) list(ctx context.Context, q *backend.Query) ([]Payment, error) {
	rows, err := s.b.Select(ctx, q)
	if err != nil {
		return nil, err
	}
	return s.attach(ctx, rows)
}

func (s *Service) attach(ctx context.Context, rows []backend.Row) ([]Payment, error) {
	list := []Payment{}
	if err := backend.Decode(rows, &list); err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return list, nil
	}
	props, err := property.ByIDs(ctx, s.b, backend.IDs(rows, "property_id"))
	if err != nil {
		return nil, err
	}
	people, err := profile.ByIDs(ctx, s.b, backend.IDs(rows, "tenant_id", "landlord_id"))
	if err != nil {
		return nil, err
	}
	for i := range list {
		p := &list[i]
		if v, ok := props[p.PropertyID]; ok {
			p.Property = &v
		}
		if v, ok := people[p.TenantID]; ok {
			p.Tenant = &v
		}
		if v, ok := people[p.LandlordID]; ok {
			p.Landlord = &v
		}
	}
	return list, nil
}

// Result is the outcome of a payment handle.
type Result struct {
	Payment Payment
	Err     error
}

// Handle is a single-use handle on an initiated payment. The gateway's
// success callback calls Complete; the result callback fires at most once.
type Handle struct {
	s        *Service
	checkout Checkout

	mu       sync.Mutex
	payment  Payment
	done     bool
	closed   bool
	result   *Result
	callback func(Result)
}

// Payment returns the payment as last known to the handle.
func (h *Handle) Payment() Payment {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.payment
}

// Checkout returns the gateway checkout details.
func (h *Handle) Checkout() Checkout {
	return h.checkout
}

// OnResult registers the completion callback, replacing any earlier one.
// If the payment already settled, fn runs immediately.
func (h *Handle) OnResult(fn func(Result)) {
	h.mu.Lock()
	if h.result != nil {
		r := *h.result
		h.result = nil
		h.mu.Unlock()
		fn(r)
		return
	}
	h.callback = fn
	h.mu.Unlock()
}

// Complete verifies the checkout reference with the gateway and settles
// the payment. An empty reference means the checkout's own; any other
// reference fails with ErrReferenceMismatch and leaves the handle open.
// Only the first settling call does anything; later calls return
// ErrAlreadySettled.
func (h *Handle) Complete(ctx context.Context, reference string) (Payment, error) {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return h.payment, ErrClosed
	}
	if h.done {
		h.mu.Unlock()
		return h.payment, ErrAlreadySettled
	}
	if reference == "" {
		reference = h.checkout.Reference
	}
	if reference == "" || reference != h.checkout.Reference {
		h.mu.Unlock()
		h.s.log.Warn("payment reference mismatch", "id", h.payment.ID, "reference", reference)
		return h.payment, ErrReferenceMismatch
	}
	h.done = true
	p := h.payment
	h.mu.Unlock()

	settled, err := h.s.verify(ctx, p, reference)
	h.s.forget(p.ID)

	h.mu.Lock()
	h.payment = settled
	r := Result{Payment: settled, Err: err}
	fn := h.callback
	h.callback = nil
	if fn == nil {
		h.result = &r
	}
	h.mu.Unlock()

	if fn != nil {
		fn(r)
	}
	return settled, err
}

// Close models the payment window closing before payment. The record stays
// pending; later Complete calls on this handle, or on the one Handle
// returns from the same service, fail with ErrClosed.
func (h *Handle) Close() {
	h.mu.Lock()
	if h.done || h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	h.mu.Unlock()

	h.s.sink.Notify("Payment window closed", notify.Warning)
}
