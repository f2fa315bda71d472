package payment

import (
	"context"
	"errors"
	"strings"
	"time"

	"loan-settlement-engine/internal/domain/apperr"
	"loan-settlement-engine/internal/domain/payment"
	"loan-settlement-engine/internal/domain/wallet"
	"loan-settlement-engine/internal/infrastructure/logger"
	"loan-settlement-engine/internal/infrastructure/metrics"
	"loan-settlement-engine/pkg/id"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ReasonUnavailable marks an outcome where a provider could not answer.
const ReasonUnavailable = "verification_unavailable"

// Chains is the per-currency chain verification the gateway needs.
type Chains interface {
	payment.ChainVerifier
	RequiredConfirmations(currency string) (int, error)
	ValidateAddress(currency, address string) error
}

// pegged currencies may fall back to 1:1 with USD when the oracle is down.
var pegged = map[string]bool{"USDT": true, "USDC": true}

// displayPrecision is the number of decimals a quoted crypto amount carries.
var displayPrecision = map[string]int32{"BTC": 8, "ETH": 8, "USDT": 6, "USDC": 6}

const fiatExponent = 2

type Options struct {
	ChargeTTL time.Duration
}

// Gateway opens and verifies fee payments over the card processor and the
// supported chains. It mutates Payment values in memory; persisting them is
// the caller's job, inside its own transaction.
type Gateway struct {
	oracle  payment.RateOracle
	chains  Chains
	cards   payment.CardProcessor
	wallets wallet.Repository
	metrics *metrics.Recorder
	log     *zap.Logger
	opts    Options
	now     func() time.Time
}

func NewGateway(oracle payment.RateOracle, chains Chains, cards payment.CardProcessor, wallets wallet.Repository, rec *metrics.Recorder, log *zap.Logger, opts Options) *Gateway {
	if opts.ChargeTTL <= 0 {
		opts.ChargeTTL = time.Hour
	}
	return &Gateway{
		oracle:  oracle,
		chains:  chains,
		cards:   cards,
		wallets: wallets,
		metrics: rec,
		log:     logger.OrNop(log),
		opts:    opts,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Quote converts a fiat minor-unit amount into crypto, rounded up so the
// payer never underpays. Only pegged stablecoins survive an oracle failure.
func (g *Gateway) Quote(ctx context.Context, amount int64, fiat, crypto string) (decimal.Decimal, error) {
	crypto = strings.ToUpper(crypto)
	fiatAmount := decimal.New(amount, -fiatExponent)

	price, err := g.oracle.Price(ctx, crypto, fiat)
	if err != nil {
		if !pegged[crypto] || !strings.EqualFold(fiat, "USD") || apperr.KindOf(err) != apperr.KindExternal {
			return decimal.Zero, err
		}
		g.log.Warn("rate oracle unavailable; using 1:1 peg", zap.String("currency", crypto), zap.Error(err))
		price = decimal.NewFromInt(1)
	}

	places, ok := displayPrecision[crypto]
	if !ok {
		places = 8
	}
	q := fiatAmount.Div(price).RoundUp(places)
	step := decimal.New(1, -places)
	for q.Mul(price).LessThan(fiatAmount) {
		q = q.Add(step)
	}
	return q, nil
}

// OpenCryptoCharge quotes the fee in crypto and returns a pending Payment
// addressed to the configured wallet. Nothing is persisted.
func (g *Gateway) OpenCryptoCharge(ctx context.Context, in CryptoChargeInput) (*payment.Payment, error) {
	currency := strings.ToUpper(strings.TrimSpace(in.CryptoCurrency))
	if in.Amount <= 0 {
		return nil, apperr.Validation("amount", "invalid_amount", "charge amount must be positive")
	}
	required, err := g.chains.RequiredConfirmations(currency)
	if err != nil {
		return nil, err
	}
	w, err := g.wallets.GetByCurrency(ctx, currency)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, wallet.ErrNotConfigured.With("no receiving wallet configured for %s", currency)
	}
	if err != nil {
		return nil, err
	}
	cryptoAmount, err := g.Quote(ctx, in.Amount, in.FiatCurrency, currency)
	if err != nil {
		return nil, err
	}

	expires := g.now().Add(g.opts.ChargeTTL)
	chargeID := uuid.NewString()
	amountStr := cryptoAmount.String()
	address := w.Address
	p := &payment.Payment{
		PaymentID:             id.NewID32(),
		ApplicationID:         in.ApplicationID,
		Amount:                in.Amount,
		Currency:              strings.ToUpper(in.FiatCurrency),
		Provider:              payment.ProviderCrypto,
		Status:                payment.StatusPending,
		ChargeID:              &chargeID,
		CryptoCurrency:        &currency,
		CryptoAddress:         &address,
		CryptoAmount:          &amountStr,
		RequiredConfirmations: required,
		ExpiresAt:             &expires,
	}
	g.log.Info("crypto charge opened",
		zap.String("payment_id", p.PaymentID),
		zap.String("charge_id", chargeID),
		zap.String("currency", currency),
		zap.String("crypto_amount", amountStr),
		zap.Int64("fiat_amount", in.Amount))
	return p, nil
}

// VerifyCryptoPayment checks one transaction against the expected transfer.
func (g *Gateway) VerifyCryptoPayment(ctx context.Context, currency, txHash string, want payment.Expected) (payment.Verification, error) {
	started := time.Now()
	v, err := g.chains.Verify(ctx, strings.ToUpper(currency), payment.NormalizeTxHash(txHash), want)
	outcome := string(v.Status)
	if err != nil {
		outcome = "unavailable"
	}
	g.metrics.Verification(string(payment.ProviderCrypto), strings.ToUpper(currency), outcome, time.Since(started))
	return v, err
}

// VerifyCrypto applies a chain verification of txHash to p. Confirmed moves p to
// succeeded, a bad proof fails it, anything else leaves it processing.
func (g *Gateway) VerifyCrypto(ctx context.Context, p *payment.Payment, txHash string) (Outcome, error) {
	if p.Provider != payment.ProviderCrypto || p.CryptoCurrency == nil || p.CryptoAddress == nil || p.CryptoAmount == nil {
		return Outcome{}, apperr.Validation("payment_id", "not_crypto_payment", "payment is not a crypto charge")
	}
	if p.Status == payment.StatusSucceeded {
		return Outcome{Status: p.Status, Confirmations: p.Confirmations, Required: p.RequiredConfirmations}, nil
	}
	if !p.IsOpen() {
		return Outcome{}, payment.ErrClosed.With("payment is %s", p.Status)
	}
	txHash = payment.NormalizeTxHash(txHash)
	if p.TxHash != nil && payment.NormalizeTxHash(*p.TxHash) != txHash {
		return Outcome{}, payment.ErrTxHashMismatch
	}
	amount, err := decimal.NewFromString(*p.CryptoAmount)
	if err != nil {
		return Outcome{}, apperr.Invariant("crypto_amount_corrupt", "stored crypto amount is not a number").Wrap(err)
	}

	v, err := g.VerifyCryptoPayment(ctx, *p.CryptoCurrency, txHash, payment.Expected{Address: *p.CryptoAddress, Amount: amount})
	if err != nil {
		if !apperr.IsTransient(err) && apperr.KindOf(err) != apperr.KindExternal {
			return Outcome{}, err
		}
		g.log.Warn("crypto verification unavailable", zap.String("payment_id", p.PaymentID), zap.Error(err))
		g.track(p, txHash)
		return Outcome{Status: p.Status, Retryable: true, Reason: ReasonUnavailable, Confirmations: p.Confirmations, Required: p.RequiredConfirmations}, nil
	}

	if v.Required > 0 {
		p.RequiredConfirmations = v.Required
	}
	if v.Status != payment.VerificationInvalidFormat {
		st := v.Status
		p.LastVerification = &st
	}
	switch {
	case v.Status == payment.VerificationConfirmed:
		g.track(p, txHash)
		p.Confirmations = v.Confirmations
		p.MarkSucceeded(g.now())
	case v.Status.Permanent():
		if v.Status != payment.VerificationInvalidFormat {
			g.track(p, txHash)
		}
		p.MarkFailed(string(v.Status))
	default:
		// pending or not yet visible
		g.track(p, txHash)
		p.Confirmations = v.Confirmations
	}

	g.log.Info("crypto payment verified",
		zap.String("payment_id", p.PaymentID),
		zap.String("verification", string(v.Status)),
		zap.Int("confirmations", v.Confirmations),
		zap.Int("required", p.RequiredConfirmations),
		zap.String("detail", v.Detail))
	out := Outcome{Status: p.Status, Confirmations: p.Confirmations, Required: p.RequiredConfirmations}
	switch {
	case p.Status == payment.StatusFailed:
		out.Reason = string(v.Status)
	case p.Status != payment.StatusSucceeded:
		out.Retryable = true
		out.Reason = string(v.Status)
	}
	return out, nil
}

// track records the hash on first sight and moves a pending payment to processing.
func (g *Gateway) track(p *payment.Payment, txHash string) {
	if p.TxHash == nil {
		h := txHash
		p.TxHash = &h
	}
	if p.Status == payment.StatusPending {
		p.Status = payment.StatusProcessing
	}
}

// NewCardPayment returns a pending card Payment; nothing is persisted.
func (g *Gateway) NewCardPayment(applicationID uint64, amount int64, currency string) *payment.Payment {
	return &payment.Payment{
		PaymentID:     id.NewID32(),
		ApplicationID: applicationID,
		Amount:        amount,
		Currency:      strings.ToUpper(currency),
		Provider:      payment.ProviderCard,
		Status:        payment.StatusPending,
	}
}

// ChargeCard charges p.Amount synchronously. The payment id is the processor
// idempotency key, so repeating the call for the same payment is safe.
func (g *Gateway) ChargeCard(ctx context.Context, p *payment.Payment, paymentMethod string) (Outcome, error) {
	if p.Provider != payment.ProviderCard {
		return Outcome{}, apperr.Validation("payment_id", "not_card_payment", "payment is not a card charge")
	}
	if p.Status == payment.StatusSucceeded {
		return Outcome{Status: p.Status}, nil
	}
	if !p.IsOpen() {
		return Outcome{}, payment.ErrClosed.With("payment is %s", p.Status)
	}
	if strings.TrimSpace(paymentMethod) == "" {
		return Outcome{}, apperr.Validation("payment_method", "required", "payment method is required")
	}

	started := time.Now()
	ch, err := g.cards.CreateCharge(ctx, payment.CardChargeRequest{
		IdempotencyKey: p.PaymentID,
		Amount:         p.Amount,
		Currency:       p.Currency,
		PaymentMethod:  paymentMethod,
		Description:    "loan processing fee",
	})
	return g.applyCard(p, ch, err, started)
}

// VerifyCard re-reads a card charge left processing by an earlier timeout.
// Without a processor reference the charge is re-submitted under the same key.
func (g *Gateway) VerifyCard(ctx context.Context, p *payment.Payment, paymentMethod string) (Outcome, error) {
	if p.Provider != payment.ProviderCard {
		return Outcome{}, apperr.Validation("payment_id", "not_card_payment", "payment is not a card charge")
	}
	if p.ProcessorRef == nil || *p.ProcessorRef == "" {
		return g.ChargeCard(ctx, p, paymentMethod)
	}
	if p.Status == payment.StatusSucceeded {
		return Outcome{Status: p.Status}, nil
	}
	if !p.IsOpen() {
		return Outcome{}, payment.ErrClosed.With("payment is %s", p.Status)
	}
	started := time.Now()
	ch, err := g.cards.GetCharge(ctx, *p.ProcessorRef)
	return g.applyCard(p, ch, err, started)
}

func (g *Gateway) applyCard(p *payment.Payment, ch payment.CardCharge, err error, started time.Time) (Outcome, error) {
	if err != nil {
		g.metrics.Verification(string(payment.ProviderCard), p.Currency, "unavailable", time.Since(started))
		if !apperr.IsTransient(err) {
			return Outcome{}, err
		}
		g.log.Warn("card processor unavailable", zap.String("payment_id", p.PaymentID), zap.Error(err))
		p.Status = payment.StatusProcessing
		return Outcome{Status: p.Status, Retryable: true, Reason: ReasonUnavailable}, nil
	}
	g.metrics.Verification(string(payment.ProviderCard), p.Currency, string(ch.Status), time.Since(started))

	if ch.Ref != "" {
		ref := ch.Ref
		p.ProcessorRef = &ref
	}
	if ch.Last4 != "" {
		last4, brand := ch.Last4, ch.Brand
		p.CardLast4, p.CardBrand = &last4, &brand
	}

	switch ch.Status {
	case payment.CardChargeSucceeded:
		if ch.Amount != 0 && ch.Amount != p.Amount {
			g.metrics.InvariantViolation()
			g.log.Error("card processor settled a different amount",
				zap.String("payment_id", p.PaymentID),
				zap.Int64("charged", ch.Amount),
				zap.Int64("expected", p.Amount))
			return Outcome{}, apperr.Invariant("card_amount_mismatch", "processor settled a different amount than requested")
		}
		p.MarkSucceeded(g.now())
	case payment.CardChargeFailed:
		p.MarkFailed(ch.FailureReason)
	default:
		p.Status = payment.StatusProcessing
	}

	g.log.Info("card charge applied",
		zap.String("payment_id", p.PaymentID),
		zap.String("charge_status", string(ch.Status)),
		zap.String("payment_status", string(p.Status)))
	out := Outcome{Status: p.Status}
	switch p.Status {
	case payment.StatusFailed:
		out.Reason = ch.FailureReason
	case payment.StatusProcessing:
		out.Retryable = true
	}
	return out, nil
}

// ConfigureWallet validates address for the currency's chain and stores it.
func (g *Gateway) ConfigureWallet(ctx context.Context, in WalletInput, actorID string) (*WalletDTO, error) {
	currency := strings.ToUpper(strings.TrimSpace(in.Currency))
	address := strings.TrimSpace(in.Address)
	if err := g.chains.ValidateAddress(currency, address); err != nil {
		return nil, err
	}
	w := &wallet.Wallet{Currency: currency, Address: address, UpdatedBy: actorID}
	if err := g.wallets.Upsert(ctx, w); err != nil {
		return nil, err
	}
	g.log.Info("receiving wallet configured", zap.String("currency", currency), zap.String("actor_id", actorID))
	return &WalletDTO{Currency: w.Currency, Address: w.Address, UpdatedBy: w.UpdatedBy, UpdatedAt: g.now()}, nil
}
