package types

import "github.com/shopspring/decimal"

// Messages are shared by the HTTP API and the JSON-coded gRPC service.
// Getters are nil-safe so handlers can chain them on optional fields.

type HealthRequest struct{}

type HealthResponse struct {
	Status string `json:"status"`
}

func (x *HealthResponse) GetStatus() string {
	if x != nil {
		return x.Status
	}
	return ""
}

type ErrorResponse struct {
	Error string                 `json:"error"`
	Funds *InsufficientFundsInfo `json:"funds,omitempty"`
}

// InsufficientFundsInfo carries the figures of a rejected authorization.
type InsufficientFundsInfo struct {
	Scope     string          `json:"scope"`
	Id        uint64          `json:"id"`
	Requested decimal.Decimal `json:"requested"`
	Ceiling   decimal.Decimal `json:"ceiling"`
	Remaining decimal.Decimal `json:"remaining"`
	Count     int32           `json:"count"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type Sale struct {
	Id                uint64          `json:"id"`
	Reference         string          `json:"reference"`
	PartyId           uint64          `json:"party_id"`
	State             string          `json:"state"`
	Currency          string          `json:"currency"`
	TotalAmount       decimal.Decimal `json:"total_amount"`
	PaymentTotal      decimal.Decimal `json:"payment_total"`
	PaymentRemaining  decimal.Decimal `json:"payment_remaining"`
	PaymentAuthorized decimal.Decimal `json:"payment_authorized"`
	PaymentCaptured   decimal.Decimal `json:"payment_captured"`
	AmountInvoiced    decimal.Decimal `json:"amount_invoiced"`
	AmountToReceive   decimal.Decimal `json:"amount_to_receive"`
	Payments          []*SalePayment  `json:"payments"`
	Transactions      []*Transaction  `json:"transactions"`
	Invoices          []*Invoice      `json:"invoices"`
}

func (x *Sale) GetId() uint64 {
	if x != nil {
		return x.Id
	}
	return 0
}

func (x *Sale) GetState() string {
	if x != nil {
		return x.State
	}
	return ""
}

func (x *Sale) GetPaymentRemaining() decimal.Decimal {
	if x != nil {
		return x.PaymentRemaining
	}
	return decimal.Zero
}

func (x *Sale) GetPayments() []*SalePayment {
	if x != nil {
		return x.Payments
	}
	return nil
}

func (x *Sale) GetTransactions() []*Transaction {
	if x != nil {
		return x.Transactions
	}
	return nil
}

type SalePayment struct {
	Id               uint64          `json:"id"`
	SaleId           uint64          `json:"sale_id"`
	Sequence         int32           `json:"sequence"`
	GatewayId        uint64          `json:"gateway_id"`
	Method           string          `json:"method"`
	Provider         string          `json:"provider"`
	PaymentProfileId uint64          `json:"payment_profile_id,omitempty"`
	Amount           decimal.Decimal `json:"amount"`
	AmountConsumed   decimal.Decimal `json:"amount_consumed"`
	AmountRemaining  decimal.Decimal `json:"amount_remaining"`
	Reference        string          `json:"reference,omitempty"`
	CreatedAt        string          `json:"created_at"`
}

func (x *SalePayment) GetId() uint64 {
	if x != nil {
		return x.Id
	}
	return 0
}

func (x *SalePayment) GetMethod() string {
	if x != nil {
		return x.Method
	}
	return ""
}

func (x *SalePayment) GetAmount() decimal.Decimal {
	if x != nil {
		return x.Amount
	}
	return decimal.Zero
}

type Transaction struct {
	Id                uint64          `json:"id"`
	Uuid              string          `json:"uuid"`
	SaleId            uint64          `json:"sale_id"`
	PaymentId         uint64          `json:"payment_id,omitempty"`
	Method            string          `json:"method"`
	Provider          string          `json:"provider"`
	Description       string          `json:"description"`
	Amount            decimal.Decimal `json:"amount"`
	Currency          string          `json:"currency"`
	State             string          `json:"state"`
	ProviderReference string          `json:"provider_reference,omitempty"`
	Date              string          `json:"date"`
}

func (x *Transaction) GetUuid() string {
	if x != nil {
		return x.Uuid
	}
	return ""
}

func (x *Transaction) GetMethod() string {
	if x != nil {
		return x.Method
	}
	return ""
}

func (x *Transaction) GetAmount() decimal.Decimal {
	if x != nil {
		return x.Amount
	}
	return decimal.Zero
}

func (x *Transaction) GetState() string {
	if x != nil {
		return x.State
	}
	return ""
}

type Invoice struct {
	Id          uint64          `json:"id"`
	Number      string          `json:"number"`
	SaleId      uint64          `json:"sale_id"`
	Type        string          `json:"type"`
	State       string          `json:"state"`
	Currency    string          `json:"currency"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	AmountPaid  decimal.Decimal `json:"amount_paid"`
	AmountDue   decimal.Decimal `json:"amount_due"`
}

func (x *Invoice) GetId() uint64 {
	if x != nil {
		return x.Id
	}
	return 0
}

func (x *Invoice) GetState() string {
	if x != nil {
		return x.State
	}
	return ""
}

type GetSaleRequest struct {
	SaleId uint64 `json:"sale_id"`
}

func (x *GetSaleRequest) GetSaleId() uint64 {
	if x != nil {
		return x.SaleId
	}
	return 0
}

type SaleResponse struct {
	Sale         *Sale          `json:"sale"`
	Transactions []*Transaction `json:"transactions,omitempty"`
}

func (x *SaleResponse) GetSale() *Sale {
	if x != nil {
		return x.Sale
	}
	return nil
}

type PaymentDefaultsResponse struct {
	SaleId         uint64          `json:"sale_id"`
	PartyId        uint64          `json:"party_id"`
	Owner          string          `json:"owner"`
	CurrencyDigits int32           `json:"currency_digits"`
	Amount         decimal.Decimal `json:"amount"`
}

type AddPaymentRequest struct {
	SaleId           uint64          `json:"sale_id"`
	GatewayId        uint64          `json:"gateway_id"`
	Amount           decimal.Decimal `json:"amount"`
	Sequence         int32           `json:"sequence"`
	Reference        string          `json:"reference"`
	UseExistingCard  bool            `json:"use_existing_card"`
	PaymentProfileId uint64          `json:"payment_profile_id"`
	Owner            string          `json:"owner"`
	CardNumber       string          `json:"card_number"`
	ExpiryMonth      int32           `json:"expiry_month"`
	ExpiryYear       int32           `json:"expiry_year"`
	Csc              string          `json:"csc"`
}

func (x *AddPaymentRequest) GetSaleId() uint64 {
	if x != nil {
		return x.SaleId
	}
	return 0
}

func (x *AddPaymentRequest) GetGatewayId() uint64 {
	if x != nil {
		return x.GatewayId
	}
	return 0
}

func (x *AddPaymentRequest) GetAmount() decimal.Decimal {
	if x != nil {
		return x.Amount
	}
	return decimal.Zero
}

func (x *AddPaymentRequest) GetSequence() int32 {
	if x != nil {
		return x.Sequence
	}
	return 0
}

func (x *AddPaymentRequest) GetReference() string {
	if x != nil {
		return x.Reference
	}
	return ""
}

func (x *AddPaymentRequest) GetUseExistingCard() bool {
	if x != nil {
		return x.UseExistingCard
	}
	return false
}

func (x *AddPaymentRequest) GetPaymentProfileId() uint64 {
	if x != nil {
		return x.PaymentProfileId
	}
	return 0
}

func (x *AddPaymentRequest) GetOwner() string {
	if x != nil {
		return x.Owner
	}
	return ""
}

func (x *AddPaymentRequest) GetCardNumber() string {
	if x != nil {
		return x.CardNumber
	}
	return ""
}

func (x *AddPaymentRequest) GetExpiryMonth() int32 {
	if x != nil {
		return x.ExpiryMonth
	}
	return 0
}

func (x *AddPaymentRequest) GetExpiryYear() int32 {
	if x != nil {
		return x.ExpiryYear
	}
	return 0
}

func (x *AddPaymentRequest) GetCsc() string {
	if x != nil {
		return x.Csc
	}
	return ""
}

type PaymentResponse struct {
	Payment *SalePayment `json:"payment"`
}

func (x *PaymentResponse) GetPayment() *SalePayment {
	if x != nil {
		return x.Payment
	}
	return nil
}

type AuthorizePaymentRequest struct {
	PaymentId   uint64          `json:"payment_id"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
}

func (x *AuthorizePaymentRequest) GetPaymentId() uint64 {
	if x != nil {
		return x.PaymentId
	}
	return 0
}

func (x *AuthorizePaymentRequest) GetAmount() decimal.Decimal {
	if x != nil {
		return x.Amount
	}
	return decimal.Zero
}

func (x *AuthorizePaymentRequest) GetDescription() string {
	if x != nil {
		return x.Description
	}
	return ""
}

type TransactionResponse struct {
	Transaction *Transaction `json:"transaction"`
}

func (x *TransactionResponse) GetTransaction() *Transaction {
	if x != nil {
		return x.Transaction
	}
	return nil
}

type AuthorizeFromSalePaymentsRequest struct {
	SaleId      uint64          `json:"sale_id"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
}

func (x *AuthorizeFromSalePaymentsRequest) GetSaleId() uint64 {
	if x != nil {
		return x.SaleId
	}
	return 0
}

func (x *AuthorizeFromSalePaymentsRequest) GetAmount() decimal.Decimal {
	if x != nil {
		return x.Amount
	}
	return decimal.Zero
}

func (x *AuthorizeFromSalePaymentsRequest) GetDescription() string {
	if x != nil {
		return x.Description
	}
	return ""
}

type TransactionsResponse struct {
	Transactions []*Transaction `json:"transactions"`
}

func (x *TransactionsResponse) GetTransactions() []*Transaction {
	if x != nil {
		return x.Transactions
	}
	return nil
}

type ProceedSaleRequest struct {
	SaleId uint64 `json:"sale_id"`
}

func (x *ProceedSaleRequest) GetSaleId() uint64 {
	if x != nil {
		return x.SaleId
	}
	return 0
}

type CreateInvoiceRequest struct {
	SaleId uint64 `json:"sale_id"`
	Type   string `json:"type"`
}

func (x *CreateInvoiceRequest) GetSaleId() uint64 {
	if x != nil {
		return x.SaleId
	}
	return 0
}

func (x *CreateInvoiceRequest) GetType() string {
	if x != nil {
		return x.Type
	}
	return ""
}

type InvoiceResponse struct {
	Invoice *Invoice `json:"invoice"`
}

func (x *InvoiceResponse) GetInvoice() *Invoice {
	if x != nil {
		return x.Invoice
	}
	return nil
}

type PaymentBatchRequest struct {
	PaymentIds []uint64 `json:"payment_ids"`
}

func (x *PaymentBatchRequest) GetPaymentIds() []uint64 {
	if x != nil {
		return x.PaymentIds
	}
	return nil
}

type AutoPayInvoiceRequest struct {
	InvoiceId uint64 `json:"invoice_id"`
}

func (x *AutoPayInvoiceRequest) GetInvoiceId() uint64 {
	if x != nil {
		return x.InvoiceId
	}
	return 0
}

type HandleGatewayCallbackRequest struct {
	RequestId string `json:"request_id"`
	Provider  string `json:"provider"`
	Signature string `json:"signature"`
	Payload   string `json:"payload"`
}

func (x *HandleGatewayCallbackRequest) GetRequestId() string {
	if x != nil {
		return x.RequestId
	}
	return ""
}

func (x *HandleGatewayCallbackRequest) GetProvider() string {
	if x != nil {
		return x.Provider
	}
	return ""
}

func (x *HandleGatewayCallbackRequest) GetSignature() string {
	if x != nil {
		return x.Signature
	}
	return ""
}

func (x *HandleGatewayCallbackRequest) GetPayload() string {
	if x != nil {
		return x.Payload
	}
	return ""
}
