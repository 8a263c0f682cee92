package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/joboost/internal/client/models"
	"github.com/dmitrijs2005/joboost/internal/client/services"
	"github.com/dmitrijs2005/joboost/internal/common"
)

var checkoutPlans = []models.CheckoutPlan{
	models.CheckoutProMonthly,
	models.CheckoutProYearly,
	models.CheckoutUltraMonthly,
	models.CheckoutUltraYearly,
}

// Checkout opens a payment checkout for a plan and prints the URL to pay at.
func (a *App) Checkout(ctx context.Context, args []string) error {
	if err := a.gate(services.AccessProtected, "pricing"); err != nil {
		return err
	}

	plan := ""
	if len(args) > 0 {
		plan = args[0]
	} else {
		names := make([]string, len(checkoutPlans))
		for i, p := range checkoutPlans {
			names[i] = string(p)
		}
		var err error
		if plan, err = getSimpleText(a.reader, "Choose a plan: "+strings.Join(names, ", "), a.out); err != nil {
			return err
		}
	}

	cs, err := a.payments.StartCheckout(ctx, plan, a.config.OriginURL)
	if err != nil {
		return err
	}

	fmt.Fprintln(a.out, "Open this URL to pay:")
	fmt.Fprintln(a.out, cs.URL)
	fmt.Fprintf(a.out, "Then run: confirm %s\n", cs.SessionID)
	return nil
}

// Confirm polls the server until the checkout is settled and reports the
// outcome. It accepts the return URL or the bare checkout session id.
func (a *App) Confirm(ctx context.Context, args []string) error {
	if err := a.gate(services.AccessProtected, "payment/success"); err != nil {
		return err
	}

	raw, err := a.argOrPrompt(args, "Paste the URL you were returned to, or the session id")
	if err != nil {
		return err
	}
	id := strings.TrimSpace(raw)
	if id == "" {
		return fmt.Errorf("%w: missing checkout session id", common.ErrValidation)
	}
	if strings.Contains(id, "://") {
		if id, err = services.ParseCheckoutReturn(id); err != nil {
			return err
		}
	}

	fmt.Fprintln(a.out, "Confirming payment...")
	a.payments.Start(ctx, id)
	select {
	case <-a.payments.Done():
	case <-ctx.Done():
		a.payments.Stop()
		return ctx.Err()
	}

	res := a.payments.State()
	switch res.Outcome {
	case models.OutcomePaid:
		plan := models.PlanPro
		if u := a.session.Snapshot().User; u != nil {
			plan = u.Plan
		}
		fmt.Fprintf(a.out, "Payment confirmed, your plan is now %s\n", plan)
		return nil
	case models.OutcomeExpired:
		fmt.Fprintln(a.out, "The checkout session expired, start a new checkout")
	default:
		fmt.Fprintln(a.out, "Could not confirm the payment. If you were charged, contact support.")
	}
	return res.Err
}
