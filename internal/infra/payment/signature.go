package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/rs/zerolog"

	"fitpay-billing/internal/domain/model"
)

// SignatureVerifier checks the gateway's hashstring header: an HMAC-SHA256
// over a canonical concatenation of charge fields, each value prefixed by its
// literal field-name tag, in the gateway-documented order, no separators.
//
// This is a fast first filter, not the trust boundary. The authoritative
// out-of-band fetch is what money decisions rest on, so absent or failed
// signatures are recorded and processing continues.
type SignatureVerifier struct {
	secret []byte
	log    *zerolog.Logger
}

func NewSignatureVerifier(secret string, logger *zerolog.Logger) *SignatureVerifier {
	l := logger.With().Str("component", "SignatureVerifier").Logger()
	return &SignatureVerifier{secret: []byte(secret), log: &l}
}

// CanonicalString builds the exact byte sequence the gateway signs. Field
// order and tags come from the gateway specification and must match
// byte-for-byte; the amount is rendered at the currency's minor-unit
// precision.
func CanonicalString(n *model.ChargeNotification) string {
	var b strings.Builder
	b.WriteString("x_id")
	b.WriteString(n.ChargeID)
	b.WriteString("x_amount")
	b.WriteString(model.FormatAmount(n.AmountMinor, n.Currency))
	b.WriteString("x_currency")
	b.WriteString(n.Currency)
	b.WriteString("x_gateway_reference")
	b.WriteString(n.GatewayReference)
	b.WriteString("x_payment_reference")
	b.WriteString(n.PaymentReference)
	b.WriteString("x_status")
	b.WriteString(n.ClaimedStatus)
	b.WriteString("x_created")
	b.WriteString(n.Created)
	return b.String()
}

// Compute returns the hex-encoded HMAC-SHA256 of the canonical string.
func (v *SignatureVerifier) Compute(n *model.ChargeNotification) string {
	h := hmac.New(sha256.New, v.secret)
	h.Write([]byte(CanonicalString(n)))
	return hex.EncodeToString(h.Sum(nil))
}

// Verify compares the caller-supplied header against the computed signature.
// A missing header is unverifiable rather than invalid; an internal failure
// while computing is surfaced as error_bypassed so audits can tell "checked
// and matched" apart from "could not check".
func (v *SignatureVerifier) Verify(n *model.ChargeNotification, header string) (result model.SignatureResult) {
	if header == "" {
		return model.SignatureUnverifiable
	}

	defer func() {
		if r := recover(); r != nil {
			v.log.Warn().Interface("panic", r).Str("charge_id", n.ChargeID).
				Msg("signature computation failed; bypassing per policy")
			result = model.SignatureErrorBypassed
		}
	}()

	expected := v.Compute(n)
	// Hex output is compared case-insensitively; normalize before the
	// constant-time comparison.
	if hmac.Equal([]byte(strings.ToLower(expected)), []byte(strings.ToLower(header))) {
		return model.SignatureValid
	}
	return model.SignatureInvalid
}
