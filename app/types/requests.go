package types

import (
	"encoding/json"
	"errors"
	"io"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
)

const maxPaymentBatch = 200

func parseIDParam(ctx echo.Context, name string) (uint64, error) {
	return strconv.ParseUint(strings.TrimSpace(ctx.Param(name)), 10, 64)
}

// bindOptional binds a JSON body that may be absent.
func bindOptional(ctx echo.Context, dst interface{}) error {
	if err := ctx.Bind(dst); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func NewGetSaleRequestFromContext(ctx echo.Context) (*GetSaleRequest, error) {
	id, err := parseIDParam(ctx, "id")
	if err != nil {
		return nil, err
	}
	return &GetSaleRequest{SaleId: id}, nil
}

func (r *GetSaleRequest) Validate() error {
	if r.GetSaleId() == 0 {
		return errors.New("invalid sale id")
	}
	return nil
}

func NewAddPaymentRequestFromContext(ctx echo.Context) (*AddPaymentRequest, error) {
	id, err := parseIDParam(ctx, "id")
	if err != nil {
		return nil, err
	}

	var body AddPaymentRequest
	if err := ctx.Bind(&body); err != nil {
		return nil, err
	}
	body.SaleId = id
	body.Normalize()

	return &body, nil
}

// Normalize trims free text and strips spaces from the card number.
func (r *AddPaymentRequest) Normalize() {
	r.Reference = strings.TrimSpace(r.Reference)
	r.Owner = strings.TrimSpace(r.Owner)
	r.CardNumber = strings.ReplaceAll(strings.TrimSpace(r.CardNumber), " ", "")
	r.Csc = strings.TrimSpace(r.Csc)
}

func (r *AddPaymentRequest) Validate() error {
	if r.GetSaleId() == 0 {
		return errors.New("invalid sale id")
	}
	if r.GetGatewayId() == 0 {
		return errors.New("gateway_id is required")
	}
	if r.GetAmount().IsNegative() {
		return errors.New("amount must be >= 0")
	}
	if r.GetUseExistingCard() && r.GetPaymentProfileId() == 0 {
		return errors.New("payment_profile_id is required when use_existing_card is set")
	}
	return nil
}

func NewAuthorizePaymentRequestFromContext(ctx echo.Context) (*AuthorizePaymentRequest, error) {
	id, err := parseIDParam(ctx, "id")
	if err != nil {
		return nil, err
	}

	var body AuthorizePaymentRequest
	if err := ctx.Bind(&body); err != nil {
		return nil, err
	}
	body.PaymentId = id
	body.Normalize()

	return &body, nil
}

func (r *AuthorizePaymentRequest) Normalize() {
	r.Description = strings.TrimSpace(r.Description)
}

func (r *AuthorizePaymentRequest) Validate() error {
	if r.GetPaymentId() == 0 {
		return errors.New("invalid payment id")
	}
	return validatePositiveAmount(r.GetAmount())
}

func NewAuthorizeFromSalePaymentsRequestFromContext(ctx echo.Context) (*AuthorizeFromSalePaymentsRequest, error) {
	id, err := parseIDParam(ctx, "id")
	if err != nil {
		return nil, err
	}

	var body AuthorizeFromSalePaymentsRequest
	if err := ctx.Bind(&body); err != nil {
		return nil, err
	}
	body.SaleId = id
	body.Normalize()

	return &body, nil
}

func (r *AuthorizeFromSalePaymentsRequest) Normalize() {
	r.Description = strings.TrimSpace(r.Description)
}

func (r *AuthorizeFromSalePaymentsRequest) Validate() error {
	if r.GetSaleId() == 0 {
		return errors.New("invalid sale id")
	}
	return validatePositiveAmount(r.GetAmount())
}

func NewProceedSaleRequestFromContext(ctx echo.Context) (*ProceedSaleRequest, error) {
	id, err := parseIDParam(ctx, "id")
	if err != nil {
		return nil, err
	}
	return &ProceedSaleRequest{SaleId: id}, nil
}

func (r *ProceedSaleRequest) Validate() error {
	if r.GetSaleId() == 0 {
		return errors.New("invalid sale id")
	}
	return nil
}

func NewCreateInvoiceRequestFromContext(ctx echo.Context) (*CreateInvoiceRequest, error) {
	id, err := parseIDParam(ctx, "id")
	if err != nil {
		return nil, err
	}

	var body CreateInvoiceRequest
	if err := bindOptional(ctx, &body); err != nil {
		return nil, err
	}
	body.SaleId = id
	body.Normalize()

	return &body, nil
}

// Normalize defaults an empty type to a customer invoice.
func (r *CreateInvoiceRequest) Normalize() {
	r.Type = strings.ToLower(strings.TrimSpace(r.Type))
	if r.Type == "" {
		r.Type = "out_invoice"
	}
}

func (r *CreateInvoiceRequest) Validate() error {
	if r.GetSaleId() == 0 {
		return errors.New("invalid sale id")
	}
	if r.GetType() != "out_invoice" && r.GetType() != "out_credit_note" {
		return errors.New("type must be out_invoice or out_credit_note")
	}
	return nil
}

func NewPaymentBatchRequestFromContext(ctx echo.Context) (*PaymentBatchRequest, error) {
	var body PaymentBatchRequest
	if err := ctx.Bind(&body); err != nil {
		return nil, err
	}
	return &body, nil
}

func (r *PaymentBatchRequest) Validate() error {
	ids := r.GetPaymentIds()
	if len(ids) == 0 {
		return errors.New("payment_ids is required")
	}
	if len(ids) > maxPaymentBatch {
		return errors.New("too many payment_ids")
	}
	for _, id := range ids {
		if id == 0 {
			return errors.New("payment_ids must be positive")
		}
	}
	return nil
}

func NewAutoPayInvoiceRequestFromContext(ctx echo.Context) (*AutoPayInvoiceRequest, error) {
	id, err := parseIDParam(ctx, "id")
	if err != nil {
		return nil, err
	}
	return &AutoPayInvoiceRequest{InvoiceId: id}, nil
}

func (r *AutoPayInvoiceRequest) Validate() error {
	if r.GetInvoiceId() == 0 {
		return errors.New("invalid invoice id")
	}
	return nil
}

func NewHandleGatewayCallbackRequestFromContext(ctx echo.Context) (*HandleGatewayCallbackRequest, error) {
	provider := strings.TrimSpace(strings.ToLower(ctx.Param("provider")))
	requestID := strings.TrimSpace(ctx.Request().Header.Get(echo.HeaderXRequestID))
	signature := strings.TrimSpace(ctx.Request().Header.Get("Stripe-Signature"))
	if signature == "" {
		signature = strings.TrimSpace(ctx.Request().Header.Get("X-Provider-Signature"))
	}

	rawBody, err := io.ReadAll(ctx.Request().Body)
	if err != nil {
		return nil, err
	}

	req := &HandleGatewayCallbackRequest{
		RequestId: requestID,
		Provider:  provider,
		Signature: signature,
		Payload:   string(rawBody),
	}

	// Relayed callbacks wrap the provider body and signature in an envelope.
	var body struct {
		Payload   string `json:"payload"`
		Signature string `json:"signature"`
	}
	if len(rawBody) > 0 && json.Unmarshal(rawBody, &body) == nil {
		if strings.TrimSpace(body.Payload) != "" {
			req.Payload = body.Payload
		}
		if strings.TrimSpace(body.Signature) != "" {
			req.Signature = strings.TrimSpace(body.Signature)
		}
	}

	return req, nil
}

func (r *HandleGatewayCallbackRequest) Validate() error {
	if strings.TrimSpace(r.GetProvider()) == "" {
		return errors.New("provider is required")
	}
	if strings.TrimSpace(r.GetSignature()) == "" {
		return errors.New("provider signature is required")
	}
	if strings.TrimSpace(r.GetPayload()) == "" {
		return errors.New("payload is required")
	}
	return nil
}

func validatePositiveAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return errors.New("amount must be > 0")
	}
	return nil
}
