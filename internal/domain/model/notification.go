package model

import (
	"encoding/json"

	"fitpay-billing/internal/domain"
)

// NotificationMeta carries the merchant-defined metadata we attached when the
// charge was created and the gateway echoes back verbatim.
type NotificationMeta struct {
	UserID         string `json:"user_id"`
	ServiceID      string `json:"service_id"`
	SubscriptionID string `json:"subscription_id"`
}

// ChargeNotification is the typed, immutable view of one inbound webhook body.
// Only ChargeID is ever trusted downstream (as a lookup key); the money fields
// exist to compute the claimed signature and to be recorded for audit.
type ChargeNotification struct {
	ChargeID         string
	ClaimedStatus    string
	AmountMinor      int64
	Currency         string
	GatewayReference string
	PaymentReference string
	Created          string // gateway creation timestamp, kept verbatim for the signature
	Metadata         NotificationMeta
	Raw              []byte
}

type notificationPayload struct {
	ID        string      `json:"id"`
	Status    string      `json:"status"`
	Amount    json.Number `json:"amount"`
	Currency  string      `json:"currency"`
	Reference struct {
		Gateway string `json:"gateway"`
		Payment string `json:"payment"`
	} `json:"reference"`
	Transaction struct {
		Created string `json:"created"`
	} `json:"transaction"`
	Created  string           `json:"created"`
	Metadata NotificationMeta `json:"metadata"`
}

// ParseChargeNotification validates and types a raw webhook body. It is the
// single place gateway JSON is decoded; everything after the boundary works on
// the returned value.
func ParseChargeNotification(body []byte) (*ChargeNotification, error) {
	var p notificationPayload
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, domain.ErrMalformedPayload
	}
	if p.ID == "" {
		return nil, domain.ErrNoChargeIdentifier
	}

	n := &ChargeNotification{
		ChargeID:         p.ID,
		ClaimedStatus:    p.Status,
		Currency:         p.Currency,
		GatewayReference: p.Reference.Gateway,
		PaymentReference: p.Reference.Payment,
		Created:          p.Transaction.Created,
		Metadata:         p.Metadata,
		Raw:              body,
	}
	if n.Created == "" {
		n.Created = p.Created
	}
	if s := p.Amount.String(); s != "" {
		minor, err := ParseAmountMinor(s, p.Currency)
		if err != nil {
			return nil, domain.ErrMalformedPayload
		}
		n.AmountMinor = minor
	}
	return n, nil
}
