package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"fitpay-billing/internal/domain/model"
	"fitpay-billing/internal/domain/ports/adapter"
)

const defaultTapBaseURL = "https://api.tap.company/v2"

// Compile-time check
var _ adapter.ChargeFetcher = (*TapClient)(nil)

// TapClient fetches the authoritative charge object from the Tap REST API
// using the merchant secret key as a bearer credential.
type TapClient struct {
	secretKey string
	baseURL   string
	client    *http.Client
}

func NewTapClient(secretKey, baseURL string, timeout time.Duration) *TapClient {
	if baseURL == "" {
		baseURL = defaultTapBaseURL
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &TapClient{
		secretKey: secretKey,
		baseURL:   baseURL,
		client:    &http.Client{Timeout: timeout},
	}
}

func (t *TapClient) Name() string { return "tap" }

// tapChargeResponse mirrors the subset of the charge retrieval payload we
// consume.
type tapChargeResponse struct {
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
	Metadata model.NotificationMeta `json:"metadata"`
}

// FetchCharge performs the authenticated GET to the charge-retrieval
// endpoint. Any transport failure, non-2xx status or undecodable body is an
// error; the caller leaves the subscription untouched in that case.
func (t *TapClient) FetchCharge(ctx context.Context, chargeID string) (*model.Charge, error) {
	url := fmt.Sprintf("%s/charges/%s", t.baseURL, chargeID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+t.secretKey)
	req.Header.Set("Accept", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("tap charge retrieval: status %d, body: %s", resp.StatusCode, string(body))
	}

	var tc tapChargeResponse
	if err := json.Unmarshal(body, &tc); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w, body: %s", err, string(body))
	}
	if tc.ID == "" {
		return nil, fmt.Errorf("tap charge retrieval: response has no charge id, body: %s", string(body))
	}

	minor, err := model.ParseAmountMinor(tc.Amount.String(), tc.Currency)
	if err != nil {
		return nil, fmt.Errorf("tap charge retrieval: bad amount %q: %w", tc.Amount.String(), err)
	}

	return &model.Charge{
		ID:               tc.ID,
		Status:           tc.Status,
		AmountMinor:      minor,
		Currency:         tc.Currency,
		GatewayReference: tc.Reference.Gateway,
		PaymentReference: tc.Reference.Payment,
		Created:          tc.Transaction.Created,
		Metadata:         tc.Metadata,
		Raw:              body,
	}, nil
}
