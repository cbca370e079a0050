package transport

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"

	"storefront/pkg/domain/model"
	"storefront/pkg/domain/service"
	"storefront/pkg/metrics"
)

const maxWebhookSize = 64 << 10

var (
	errInvalidSignature  = errors.New("invalid webhook signature")
	errSignatureExpired  = errors.New("webhook timestamp is outside the tolerance window")
	errMissingHeaders    = errors.New("missing webhook transmission headers")
	errInvalidPayload    = errors.New("invalid webhook payload")
	errWebhookNotEnabled = errors.New("webhook secret is not configured")
)

var paypalHeaders = []string{
	"PAYPAL-TRANSMISSION-ID",
	"PAYPAL-TRANSMISSION-TIME",
	"PAYPAL-TRANSMISSION-SIG",
	"PAYPAL-CERT-URL",
	"PAYPAL-AUTH-ALGO",
}

func (h *handler) stripeWebhook(w http.ResponseWriter, r *http.Request) {
	if h.stripeSecret == "" {
		log.WithError(errWebhookNotEnabled).Error("stripe webhook rejected")
		h.webhookFailed(w, "stripe", http.StatusInternalServerError, errWebhookNotEnabled)
		return
	}
	payload, err := readWebhookBody(r)
	if err != nil {
		h.webhookFailed(w, "stripe", http.StatusBadRequest, err)
		return
	}
	err = verifyStripeSignature(payload, r.Header.Get("Stripe-Signature"), h.stripeSecret, h.stripeTolerance, h.now())
	if err != nil {
		log.WithError(err).Warn("stripe webhook signature rejected")
		h.webhookFailed(w, "stripe", http.StatusBadRequest, err)
		return
	}

	event, ok := parseStripeEvent(payload)
	if !ok {
		h.webhookAcknowledged(w, "stripe", service.OutcomeIgnored)
		return
	}
	h.settle(w, r, "stripe", event)
}

func (h *handler) paypalWebhook(w http.ResponseWriter, r *http.Request) {
	for _, header := range paypalHeaders {
		if r.Header.Get(header) == "" {
			h.webhookFailed(w, "paypal", http.StatusBadRequest, errMissingHeaders)
			return
		}
	}
	payload, err := readWebhookBody(r)
	if err != nil {
		h.webhookFailed(w, "paypal", http.StatusBadRequest, err)
		return
	}

	event, ok := parsePayPalEvent(payload)
	if !ok {
		h.webhookAcknowledged(w, "paypal", service.OutcomeIgnored)
		return
	}
	h.settle(w, r, "paypal", event)
}

func (h *handler) settle(w http.ResponseWriter, r *http.Request, provider string, event service.ProviderEvent) {
	if event.TransactionID == "" {
		h.webhookFailed(w, provider, http.StatusBadRequest, errInvalidPayload)
		return
	}
	outcome, err := h.Payments.HandleProviderEvent(r.Context(), event)
	if err != nil {
		log.WithError(err).WithFields(log.Fields{
			"provider":      provider,
			"transactionId": event.TransactionID,
		}).Error("failed to apply webhook")
		h.webhookFailed(w, provider, http.StatusInternalServerError, errors.New("failed to process webhook"))
		return
	}
	h.webhookAcknowledged(w, provider, outcome)
}

func (h *handler) webhookAcknowledged(w http.ResponseWriter, provider string, outcome service.WebhookOutcome) {
	metrics.RecordWebhook(provider, string(outcome))
	respondOK(w, string(outcome), nil)
}

func (h *handler) webhookFailed(w http.ResponseWriter, provider string, status int, err error) {
	metrics.RecordWebhook(provider, "rejected")
	respondFail(w, status, err.Error())
}

func readWebhookBody(r *http.Request) ([]byte, error) {
	payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookSize+1))
	if err != nil || len(payload) > maxWebhookSize || !gjson.ValidBytes(payload) {
		return nil, errInvalidPayload
	}
	return payload, nil
}

// verifyStripeSignature checks a "t=<unix>,v1=<hex>" header against HMAC-SHA256 of "<t>.<payload>".
func verifyStripeSignature(payload []byte, header, secret string, tolerance time.Duration, now time.Time) error {
	var timestamp int64
	var signatures [][]byte
	for _, part := range strings.Split(header, ",") {
		kv := strings.SplitN(strings.TrimSpace(part), "=", 2)
		if len(kv) != 2 {
			continue
		}
		switch kv[0] {
		case "t":
			ts, err := strconv.ParseInt(kv[1], 10, 64)
			if err != nil {
				return errInvalidSignature
			}
			timestamp = ts
		case "v1":
			if sig, err := hex.DecodeString(kv[1]); err == nil {
				signatures = append(signatures, sig)
			}
		}
	}
	if timestamp == 0 || len(signatures) == 0 {
		return errInvalidSignature
	}

	if tolerance > 0 {
		age := now.Sub(time.Unix(timestamp, 0))
		if age > tolerance || age < -tolerance {
			return errSignatureExpired
		}
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(strconv.FormatInt(timestamp, 10)))
	mac.Write([]byte("."))
	mac.Write(payload)
	expected := mac.Sum(nil)
	for _, sig := range signatures {
		if hmac.Equal(expected, sig) {
			return nil
		}
	}
	return errInvalidSignature
}

func parseStripeEvent(payload []byte) (service.ProviderEvent, bool) {
	object := gjson.GetBytes(payload, "data.object")
	event := service.ProviderEvent{
		Method:        model.MethodStripe,
		TransactionID: object.Get("id").String(),
	}
	switch gjson.GetBytes(payload, "type").String() {
	case "payment_intent.succeeded":
		event.Succeeded = true
	case "payment_intent.payment_failed":
		event.Reason = object.Get("last_payment_error.message").String()
		if event.Reason == "" {
			event.Reason = "payment failed at provider"
		}
	default:
		return event, false
	}
	return event, true
}

func parsePayPalEvent(payload []byte) (service.ProviderEvent, bool) {
	resource := gjson.GetBytes(payload, "resource")
	transactionID := resource.Get("supplementary_data.related_ids.order_id").String()
	if transactionID == "" {
		transactionID = resource.Get("id").String()
	}
	event := service.ProviderEvent{Method: model.MethodPayPal, TransactionID: transactionID}

	switch gjson.GetBytes(payload, "event_type").String() {
	case "PAYMENT.CAPTURE.COMPLETED":
		event.Succeeded = true
	case "PAYMENT.CAPTURE.DENIED":
		event.Reason = resource.Get("status_details.reason").String()
		if event.Reason == "" {
			event.Reason = "capture denied"
		}
	default:
		return event, false
	}
	return event, true
}
