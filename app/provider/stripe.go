package provider

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/vibast-solutions/ms-go-sale-payments/app/entity"
)

const defaultStripeBaseURL = "https://api.stripe.com"

type StripeConfig struct {
	SecretKey                 string
	WebhookSecret             string
	BaseURL                   string
	SignatureToleranceSeconds int64
	HTTPTimeout               time.Duration
}

type StripeProvider struct {
	cfg    StripeConfig
	client *http.Client
}

type stripeResponse struct {
	status int
	body   []byte
}

type stripePaymentIntent struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

type stripeErrorBody struct {
	Error struct {
		Type          string               `json:"type"`
		Code          string               `json:"code"`
		Message       string               `json:"message"`
		PaymentIntent *stripePaymentIntent `json:"payment_intent"`
	} `json:"error"`
}

func NewStripeProvider(cfg StripeConfig) *StripeProvider {
	timeout := cfg.HTTPTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	tolerance := cfg.SignatureToleranceSeconds
	if tolerance <= 0 {
		tolerance = 300
	}
	cfg.SignatureToleranceSeconds = tolerance
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultStripeBaseURL
	}

	return &StripeProvider{
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
	}
}

func (p *StripeProvider) Name() string {
	return entity.ProviderStripe
}

// Authorize places a manual-capture hold on the stored card. A declined card
// is reported as a failed state rather than an error.
func (p *StripeProvider) Authorize(ctx context.Context, input *AuthorizeInput) (*AuthorizeOutput, error) {
	if strings.TrimSpace(p.cfg.SecretKey) == "" {
		return nil, errors.New("stripe secret key is not configured")
	}
	if input.ProviderCustomerID == nil || input.ProviderPaymentMethodID == nil {
		return nil, errors.New("stripe authorization requires a stored payment profile")
	}

	values := url.Values{}
	values.Set("amount", strconv.FormatInt(input.AmountMinor, 10))
	values.Set("currency", strings.ToLower(input.Currency))
	values.Set("customer", *input.ProviderCustomerID)
	values.Set("payment_method", *input.ProviderPaymentMethodID)
	values.Set("capture_method", "manual")
	values.Set("confirm", "true")
	values.Set("off_session", "true")
	if description := strings.TrimSpace(input.Description); description != "" {
		values.Set("description", description)
	}
	values.Set("metadata[transaction_uuid]", input.TransactionUUID)

	resp, err := p.send(ctx, http.MethodPost, "/v1/payment_intents", values, input.TransactionUUID)
	if err != nil {
		return nil, err
	}

	if resp.status == http.StatusPaymentRequired {
		output := &AuthorizeOutput{State: entity.TransactionStateFailed}
		var declined stripeErrorBody
		if json.Unmarshal(resp.body, &declined) == nil && declined.Error.PaymentIntent != nil {
			if id := strings.TrimSpace(declined.Error.PaymentIntent.ID); id != "" {
				output.ProviderReference = &id
			}
		}
		return output, nil
	}
	if err := resp.err("/v1/payment_intents"); err != nil {
		return nil, err
	}

	var intent stripePaymentIntent
	if err := json.Unmarshal(resp.body, &intent); err != nil {
		return nil, err
	}

	output := &AuthorizeOutput{State: mapPaymentIntentStatus(intent.Status)}
	if id := strings.TrimSpace(intent.ID); id != "" {
		output.ProviderReference = &id
	}
	if output.State == "" {
		output.State = entity.TransactionStatePending
	}
	return output, nil
}

func (p *StripeProvider) Capture(ctx context.Context, input *CaptureInput) (string, error) {
	reference, err := requireReference(input.ProviderReference)
	if err != nil {
		return "", err
	}

	values := url.Values{}
	values.Set("amount_to_capture", strconv.FormatInt(input.AmountMinor, 10))

	path := "/v1/payment_intents/" + url.PathEscape(reference) + "/capture"
	return p.intentState(ctx, http.MethodPost, path, values, "capture-"+input.TransactionUUID)
}

func (p *StripeProvider) Cancel(ctx context.Context, input *CancelInput) (string, error) {
	if input.ProviderReference == nil || strings.TrimSpace(*input.ProviderReference) == "" {
		// Nothing was ever placed on the card.
		return entity.TransactionStateCancelled, nil
	}

	path := "/v1/payment_intents/" + url.PathEscape(strings.TrimSpace(*input.ProviderReference)) + "/cancel"
	return p.intentState(ctx, http.MethodPost, path, url.Values{}, "cancel-"+input.TransactionUUID)
}

func (p *StripeProvider) GetState(ctx context.Context, providerReference string) (string, error) {
	if strings.TrimSpace(providerReference) == "" {
		return "", nil
	}
	return p.intentState(ctx, http.MethodGet, "/v1/payment_intents/"+url.PathEscape(providerReference), nil, "")
}

func (p *StripeProvider) CreateProfile(ctx context.Context, input *ProfileInput) (*ProfileOutput, error) {
	if strings.TrimSpace(p.cfg.SecretKey) == "" {
		return nil, errors.New("stripe secret key is not configured")
	}

	customerValues := url.Values{}
	customerValues.Set("name", strings.TrimSpace(input.PartyName))
	customerValues.Set("metadata[party_id]", strconv.FormatUint(input.PartyID, 10))
	customerBody, err := p.postForm(ctx, "/v1/customers", customerValues)
	if err != nil {
		return nil, err
	}
	var customer struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(customerBody, &customer); err != nil {
		return nil, err
	}
	customerID := strings.TrimSpace(customer.ID)
	if customerID == "" {
		return nil, errors.New("stripe customer id missing")
	}

	methodValues := url.Values{}
	methodValues.Set("type", "card")
	methodValues.Set("card[number]", strings.TrimSpace(input.Number))
	methodValues.Set("card[exp_month]", strconv.FormatInt(int64(input.ExpiryMonth), 10))
	methodValues.Set("card[exp_year]", strconv.FormatInt(int64(input.ExpiryYear), 10))
	methodValues.Set("card[cvc]", strings.TrimSpace(input.CSC))
	methodValues.Set("billing_details[name]", strings.TrimSpace(input.OwnerName))
	methodBody, err := p.postForm(ctx, "/v1/payment_methods", methodValues)
	if err != nil {
		return nil, err
	}
	var method struct {
		ID   string `json:"id"`
		Card struct {
			Last4 string `json:"last4"`
		} `json:"card"`
	}
	if err := json.Unmarshal(methodBody, &method); err != nil {
		return nil, err
	}
	methodID := strings.TrimSpace(method.ID)
	if methodID == "" {
		return nil, errors.New("stripe payment method id missing")
	}

	attachValues := url.Values{}
	attachValues.Set("customer", customerID)
	if _, err := p.postForm(ctx, "/v1/payment_methods/"+url.PathEscape(methodID)+"/attach", attachValues); err != nil {
		return nil, err
	}

	return &ProfileOutput{
		ProviderCustomerID: &customerID,
		ProviderReference:  &methodID,
		LastFour:           method.Card.Last4,
	}, nil
}

func (p *StripeProvider) VerifyAndParseCallback(_ context.Context, payload []byte, signature string) (*CallbackEvent, error) {
	if strings.TrimSpace(p.cfg.WebhookSecret) == "" {
		return nil, errors.New("stripe webhook secret is not configured")
	}
	if !verifyStripeSignature(payload, signature, p.cfg.WebhookSecret, p.cfg.SignatureToleranceSeconds) {
		return nil, errors.New("invalid stripe signature")
	}

	var event struct {
		ID   string `json:"id"`
		Type string `json:"type"`
		Data struct {
			Object json.RawMessage `json:"object"`
		} `json:"data"`
	}
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, err
	}

	result := &CallbackEvent{
		EventType: event.Type,
	}
	if id := strings.TrimSpace(event.ID); id != "" {
		result.ProviderEventID = &id
	}

	switch event.Type {
	case "payment_intent.amount_capturable_updated":
		result.NewState = entity.TransactionStateAuthorized
	case "payment_intent.succeeded":
		result.NewState = entity.TransactionStateCompleted
	case "payment_intent.canceled":
		result.NewState = entity.TransactionStateCancelled
	case "payment_intent.payment_failed":
		result.NewState = entity.TransactionStateFailed
	default:
		return result, nil
	}

	var intent stripePaymentIntent
	if json.Unmarshal(event.Data.Object, &intent) == nil {
		if id := strings.TrimSpace(intent.ID); id != "" {
			result.ProviderReference = &id
		}
	}

	return result, nil
}

func (p *StripeProvider) intentState(ctx context.Context, method, path string, values url.Values, idempotencyKey string) (string, error) {
	resp, err := p.send(ctx, method, path, values, idempotencyKey)
	if err != nil {
		return "", err
	}
	if err := resp.err(path); err != nil {
		return "", err
	}

	var intent stripePaymentIntent
	if err := json.Unmarshal(resp.body, &intent); err != nil {
		return "", err
	}
	return mapPaymentIntentStatus(intent.Status), nil
}

func (p *StripeProvider) postForm(ctx context.Context, path string, values url.Values) ([]byte, error) {
	resp, err := p.send(ctx, http.MethodPost, path, values, "")
	if err != nil {
		return nil, err
	}
	if err := resp.err(path); err != nil {
		return nil, err
	}
	return resp.body, nil
}

func (p *StripeProvider) send(ctx context.Context, method, path string, values url.Values, idempotencyKey string) (*stripeResponse, error) {
	var body io.Reader
	if values != nil {
		body = strings.NewReader(values.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, method, p.cfg.BaseURL+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+p.cfg.SecretKey)
	if values != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	if idempotencyKey = strings.TrimSpace(idempotencyKey); idempotencyKey != "" {
		req.Header.Set("Idempotency-Key", idempotencyKey)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	return &stripeResponse{status: resp.StatusCode, body: payload}, nil
}

func (r *stripeResponse) err(path string) error {
	if r.status < 400 {
		return nil
	}
	return fmt.Errorf("stripe request failed: path=%s status=%d body=%s", path, r.status, string(r.body))
}

func mapPaymentIntentStatus(status string) string {
	switch status {
	case "requires_capture":
		return entity.TransactionStateAuthorized
	case "succeeded":
		return entity.TransactionStateCompleted
	case "canceled":
		return entity.TransactionStateCancelled
	case "requires_payment_method":
		return entity.TransactionStateFailed
	case "processing", "requires_action", "requires_confirmation":
		return entity.TransactionStatePending
	default:
		return ""
	}
}

func requireReference(reference *string) (string, error) {
	if reference == nil || strings.TrimSpace(*reference) == "" {
		return "", errors.New("stripe payment intent reference is missing")
	}
	return strings.TrimSpace(*reference), nil
}

func verifyStripeSignature(payload []byte, signatureHeader string, webhookSecret string, toleranceSeconds int64) bool {
	signatureHeader = strings.TrimSpace(signatureHeader)
	if signatureHeader == "" || strings.TrimSpace(webhookSecret) == "" {
		return false
	}

	parts := strings.Split(signatureHeader, ",")
	var ts string
	v1 := make([]string, 0, 1)
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if strings.HasPrefix(part, "t=") {
			ts = strings.TrimSpace(strings.TrimPrefix(part, "t="))
		}
		if strings.HasPrefix(part, "v1=") {
			v1 = append(v1, strings.TrimSpace(strings.TrimPrefix(part, "v1=")))
		}
	}
	if ts == "" || len(v1) == 0 {
		return false
	}

	tsUnix, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return false
	}
	now := time.Now().Unix()
	if now-tsUnix > toleranceSeconds || tsUnix-now > toleranceSeconds {
		return false
	}

	mac := hmac.New(sha256.New, []byte(webhookSecret))
	_, _ = mac.Write([]byte(ts + "." + string(payload)))
	expected := mac.Sum(nil)

	for _, sig := range v1 {
		candidate, err := hex.DecodeString(sig)
		if err != nil {
			continue
		}
		if hmac.Equal(candidate, expected) {
			return true
		}
	}

	return false
}
