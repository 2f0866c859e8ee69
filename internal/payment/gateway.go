package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// Checkout is what a gateway hands back when a payment window opens.
type Checkout struct {
	Reference string `json:"reference"`
	URL       string `json:"url,omitempty"`
}

// Verification is a gateway's verdict on a reference.
type Verification struct {
	Status     bool   `json:"status"`
	ReceiptURL string `json:"receipt_url,omitempty"`
}

// Gateway opens checkouts and verifies their references.
type Gateway interface {
	Name() string
	Open(ctx context.Context, p Payment, email string) (Checkout, error)
	Verify(ctx context.Context, reference string) (Verification, error)
}

// HTTPGateway builds checkout links against a hosted payment page and
// verifies references with a GET to a verification endpoint answering
// {"status": bool, "receipt_url": string}.
type HTTPGateway struct {
	httpClient  *http.Client
	checkoutURL string
	verifyURL   string
}

// NewHTTPGateway creates a gateway. A zero timeout means 30 seconds.
func NewHTTPGateway(checkoutURL, verifyURL string, timeout time.Duration) (*HTTPGateway, error) {
	if verifyURL == "" {
		return nil, fmt.Errorf("payment verify URL is required")
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPGateway{
		httpClient:  &http.Client{Timeout: timeout},
		checkoutURL: checkoutURL,
		verifyURL:   verifyURL,
	}, nil
}

// Name identifies the gateway on stored payments.
func (g *HTTPGateway) Name() string { return "paystack" }

// Open uses the payment id as the reference. Amounts go to the checkout
// page in the currency's minor unit.
func (g *HTTPGateway) Open(_ context.Context, p Payment, email string) (Checkout, error) {
	c := Checkout{Reference: p.ID}
	if g.checkoutURL == "" {
		return c, nil
	}
	params := url.Values{
		"reference": {p.ID},
		"amount":    {strconv.FormatInt(minorUnits(p.Amount), 10)},
		"currency":  {p.Currency},
	}
	if email != "" {
		params.Set("email", email)
	}
	c.URL = g.checkoutURL + "?" + params.Encode()
	return c, nil
}

// minorUnits converts an amount to kobo, cents and the like.
func minorUnits(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

// Verify asks the verification endpoint about reference.
func (g *HTTPGateway) Verify(ctx context.Context, reference string) (v Verification, err error) {
	if reference == "" {
		return Verification{}, fmt.Errorf("reference is required")
	}
	params := url.Values{"reference": {reference}}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.verifyURL+"?"+params.Encode(), nil)
	if err != nil {
		return Verification{}, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return Verification{}, fmt.Errorf("sending request: %w", err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("closing body: %w", closeErr)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return Verification{}, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		return Verification{}, fmt.Errorf("decoding response: %w", err)
	}
	return v, nil
}
