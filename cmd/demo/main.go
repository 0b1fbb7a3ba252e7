// Sends a signed sample charge notification to a locally running webhook
// server. Useful for exercising the full pipeline without the real gateway.
package main

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"
)

func main() {
	target := flag.String("url", "http://localhost:8080/webhook/tap", "webhook endpoint")
	secret := flag.String("secret", "", "shared webhook secret (hashstring HMAC key)")
	chargeID := flag.String("charge", "chg_demo_0001", "charge id to send")
	amount := flag.String("amount", "25.000", "amount string at minor-unit precision")
	currency := flag.String("currency", "KWD", "ISO currency code")
	status := flag.String("status", "CAPTURED", "claimed charge status")
	subscriptionID := flag.String("subscription", "", "subscription id for metadata.udf")
	flag.Parse()

	created := fmt.Sprintf("%d", time.Now().UnixMilli())
	gatewayRef := "gr_demo_0001"
	paymentRef := "pr_demo_0001"

	payload := map[string]interface{}{
		"id":     *chargeID,
		"status": *status,
		"amount": json.RawMessage(*amount),
		"currency": *currency,
		"reference": map[string]string{
			"gateway": gatewayRef,
			"payment": paymentRef,
		},
		"transaction": map[string]string{"created": created},
	}
	if *subscriptionID != "" {
		payload["metadata"] = map[string]string{"subscription_id": *subscriptionID}
	}
	body, err := json.Marshal(payload)
	if err != nil {
		log.Fatalf("marshal payload: %v", err)
	}

	req, err := http.NewRequest(http.MethodPost, *target, bytes.NewReader(body))
	if err != nil {
		log.Fatalf("build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if *secret != "" {
		req.Header.Set("hashstring", sign(*secret, *chargeID, *amount, *currency, gatewayRef, paymentRef, *status, created))
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		log.Fatalf("post webhook: %v", err)
	}
	defer resp.Body.Close()
	out, _ := io.ReadAll(resp.Body)
	fmt.Printf("HTTP %d\n%s\n", resp.StatusCode, out)
}

// sign reproduces the gateway's hashstring: HMAC-SHA256 over the
// tag-prefixed field concatenation.
func sign(secret, id, amount, currency, gatewayRef, paymentRef, status, created string) string {
	var b bytes.Buffer
	b.WriteString("x_id" + id)
	b.WriteString("x_amount" + amount)
	b.WriteString("x_currency" + currency)
	b.WriteString("x_gateway_reference" + gatewayRef)
	b.WriteString("x_payment_reference" + paymentRef)
	b.WriteString("x_status" + status)
	b.WriteString("x_created" + created)
	h := hmac.New(sha256.New, []byte(secret))
	h.Write(b.Bytes())
	return hex.EncodeToString(h.Sum(nil))
}
