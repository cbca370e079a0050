package gateway

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"storefront/pkg/domain/model"
)

// Sandbox issues provider-shaped intents without calling the provider.
// Settlement arrives later through the signed webhook endpoints.
type Sandbox struct {
	method      model.PaymentMethod
	checkoutURL string
}

func NewStripeSandbox() *Sandbox {
	return &Sandbox{method: model.MethodStripe}
}

func NewPayPalSandbox(checkoutURL string) *Sandbox {
	return &Sandbox{method: model.MethodPayPal, checkoutURL: checkoutURL}
}

func (g *Sandbox) CreateIntent(_ context.Context, order *model.Order, amountCents int64) (model.PaymentIntent, error) {
	if amountCents <= 0 {
		return model.PaymentIntent{}, errors.Errorf("%s intent needs a positive amount", g.method)
	}

	ref := strings.ReplaceAll(uuid.NewString(), "-", "")
	var intent model.PaymentIntent
	switch g.method {
	case model.MethodStripe:
		intent.TransactionID = "pi_" + ref[:24]
		intent.ClientSecret = intent.TransactionID + "_secret_" + ref[24:]
	case model.MethodPayPal:
		intent.TransactionID = strings.ToUpper(ref[:17])
		intent.RedirectURL = g.checkoutURL + "?token=" + intent.TransactionID
	default:
		return model.PaymentIntent{}, model.ErrUnsupportedMethod
	}

	log.WithFields(log.Fields{
		"method":        g.method,
		"orderNumber":   order.Number,
		"transactionId": intent.TransactionID,
		"amountCents":   amountCents,
	}).Info("payment intent created")
	return intent, nil
}

func (g *Sandbox) Refund(_ context.Context, transactionID string, amountCents int64) error {
	if transactionID == "" {
		return errors.Errorf("%s refund needs a transaction id", g.method)
	}
	log.WithFields(log.Fields{
		"method":        g.method,
		"transactionId": transactionID,
		"amountCents":   amountCents,
	}).Info("refund requested")
	return nil
}
