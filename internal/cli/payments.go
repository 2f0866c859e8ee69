package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/evcraddock/smartrent/internal/access"
	"github.com/evcraddock/smartrent/internal/format"
	"github.com/evcraddock/smartrent/internal/payment"
)

type payOptions struct {
	email    string
	currency string
	due      string
	browser  bool
}

type payResult struct {
	Payment  payment.Payment  `json:"payment"`
	Checkout payment.Checkout `json:"checkout"`
}

func newPayCmd() *cobra.Command {
	var opts payOptions

	cmd := &cobra.Command{
		Use:   "pay <property-id> <amount>",
		Short: "Pay rent for a property",
		Long: `Start a rent payment. The payment is recorded as pending and the gateway's
checkout page opens in your browser. Once paid, confirm it with 'sr pay verify'.

Examples:
  sr pay 3f2a... 1200000
  sr pay 3f2a... 1200000 --due 2026-12-01 --browser=false`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := strconv.ParseFloat(strings.ReplaceAll(args[1], ",", ""), 64)
			if err != nil {
				return fmt.Errorf("invalid amount: %s", args[1])
			}
			req := payment.Request{
				PropertyID: args[0],
				Amount:     amount,
				Currency:   strings.ToUpper(opts.currency),
				Email:      opts.email,
			}
			if opts.due != "" {
				d, err := time.ParseInLocation("2006-01-02", opts.due, time.Local)
				if err != nil {
					return fmt.Errorf("invalid due date %q (want YYYY-MM-DD)", opts.due)
				}
				req.DueDate = &d
			}
			return withApp(cmd, func(ctx context.Context, e *env) error {
				return runPay(ctx, e, req, opts.browser)
			})
		},
	}

	cmd.Flags().StringVar(&opts.email, "email", "", "email for the checkout page (default: your account email)")
	cmd.Flags().StringVar(&opts.currency, "currency", payment.DefaultCurrency, "ISO currency code")
	cmd.Flags().StringVar(&opts.due, "due", "", "due date (YYYY-MM-DD)")
	cmd.Flags().BoolVar(&opts.browser, "browser", true, "open the checkout page")

	cmd.AddCommand(newPayVerifyCmd())
	return cmd
}

func runPay(ctx context.Context, e *env, req payment.Request, browser bool) error {
	u, err := e.user(ctx)
	if err != nil {
		return err
	}
	if req.Email == "" {
		req.Email = u.Email
	}

	h, err := e.app.Payments.Initiate(ctx, u.ID, req)
	if errors.Is(err, payment.ErrNoGateway) {
		return fmt.Errorf("%w (set payment.gateway in %s)", err, e.path)
	}
	if err != nil {
		return err
	}

	res := payResult{Payment: h.Payment(), Checkout: h.Checkout()}
	if browser && !isJSON() && res.Checkout.URL != "" {
		if err := openBrowser(res.Checkout.URL); err != nil {
			e.log.Debug("opening browser", "error", err)
		}
	}
	return e.emit(res, func(w io.Writer) error {
		fmt.Fprintf(w, "Payment %s started for %s.\n", res.Payment.ID, format.Currency(res.Payment.Amount, res.Payment.Currency))
		if res.Checkout.URL != "" {
			fmt.Fprintf(w, "Checkout: %s\n", res.Checkout.URL)
		}
		_, err := fmt.Fprintf(w, "When done, run: sr pay verify %s\n", res.Payment.ID)
		return err
	})
}

func newPayVerifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify <payment-id> [reference]",
		Short: "Confirm a payment with the gateway",
		Long:  "Ask the gateway whether a pending payment went through and settle it. The reference defaults to the one issued at checkout.",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ref := ""
			if len(args) == 2 {
				ref = args[1]
			}
			return withApp(cmd, func(ctx context.Context, e *env) error {
				uid, err := e.userID(ctx)
				if err != nil {
					return err
				}
				h, err := e.app.Payments.Handle(ctx, args[0])
				if err != nil {
					return err
				}
				if h.Payment().TenantID != uid {
					return access.ErrForbidden
				}
				p, err := h.Complete(ctx, ref)
				if err != nil {
					return err
				}
				return e.emit(p, func(w io.Writer) error {
					_, err := fmt.Fprintf(w, "✓ Payment of %s completed.\n", format.Currency(p.Amount, p.Currency))
					return err
				})
			})
		},
	}
}

func newPaymentsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "payments",
		Short: "List your payments",
		Long:  "Tenants see the payments they made, landlords the payments they received.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, runPayments)
		},
	}
	cmd.AddCommand(newReceiptCmd())
	return cmd
}

type paymentsResult struct {
	Stats    payment.Stats     `json:"stats"`
	Payments []payment.Payment `json:"payments"`
}

func runPayments(ctx context.Context, e *env) error {
	uid, err := e.userID(ctx)
	if err != nil {
		return err
	}

	var list []payment.Payment
	switch e.app.Profiles.Role(ctx, uid) {
	case access.Tenant:
		list = e.app.Payments.TenantPayments(ctx, uid)
	case access.Landlord:
		list = e.app.Payments.LandlordPayments(ctx, uid)
	default:
		list = []payment.Payment{}
	}

	res := paymentsResult{Stats: payment.ComputeStats(list), Payments: list}
	return e.emit(res, func(w io.Writer) error { return printPayments(w, res.Payments, res.Stats) })
}

func newReceiptCmd() *cobra.Command {
	var open bool

	cmd := &cobra.Command{
		Use:   "receipt <payment-id>",
		Short: "Show the receipt of a completed payment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, e *env) error {
				uid, err := e.userID(ctx)
				if err != nil {
					return err
				}
				p, err := e.app.Payments.Get(ctx, args[0])
				if err != nil {
					return err
				}
				if p.TenantID != uid && p.LandlordID != uid && !e.app.Access.IsAdmin(ctx, uid) {
					return access.ErrForbidden
				}
				if p.Status != payment.Completed {
					return fmt.Errorf("payment %s is %s, not completed", p.ID, p.Status)
				}

				url := p.ReceiptURL
				if url == "" {
					if url, err = e.app.Payments.GenerateReceipt(ctx, p.ID); err != nil {
						return err
					}
				}
				if open && !isJSON() {
					if err := openBrowser(url); err != nil {
						e.log.Debug("opening browser", "error", err)
					}
				}
				return e.emit(map[string]string{"id": p.ID, "receipt_url": url}, func(w io.Writer) error {
					_, err := fmt.Fprintln(w, url)
					return err
				})
			})
		},
	}
	cmd.Flags().BoolVar(&open, "open", false, "open the receipt in your browser")
	return cmd
}
