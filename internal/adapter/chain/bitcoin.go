package chain

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"loan-settlement-engine/internal/domain/apperr"
	"loan-settlement-engine/internal/domain/payment"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"go.uber.org/zap"
)

const (
	BitcoinConfirmations = 6
	satoshiDecimals      = 8
)

var reBtcHash = regexp.MustCompile(`^[0-9a-fA-F]{64}$`)

type Bitcoin struct {
	explorer Explorer
	params   *chaincfg.Params
	required int
	timeout  time.Duration
	log      *zap.Logger
}

func NewBitcoin(explorer Explorer, params *chaincfg.Params, timeout time.Duration, log *zap.Logger) *Bitcoin {
	if params == nil {
		params = &chaincfg.MainNetParams
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Bitcoin{explorer: explorer, params: params, required: BitcoinConfirmations, timeout: timeout, log: log}
}

// NetParams maps a network name to btcd chain parameters.
func NetParams(network string) (*chaincfg.Params, error) {
	switch strings.ToLower(network) {
	case "", "mainnet":
		return &chaincfg.MainNetParams, nil
	case "testnet", "testnet3":
		return &chaincfg.TestNet3Params, nil
	case "regtest":
		return &chaincfg.RegressionNetParams, nil
	case "signet":
		return &chaincfg.SigNetParams, nil
	}
	return nil, fmt.Errorf("unknown bitcoin network %q", network)
}

func (b *Bitcoin) Currency() string           { return "BTC" }
func (b *Bitcoin) Decimals() int32            { return satoshiDecimals }
func (b *Bitcoin) RequiredConfirmations() int { return b.required }

func (b *Bitcoin) ValidateAddress(address string) error {
	addr, err := btcutil.DecodeAddress(address, b.params)
	if err != nil || !addr.IsForNet(b.params) {
		return apperr.Validation("address", "invalid_address", "not a valid Bitcoin address for "+b.params.Name)
	}
	return nil
}

func (b *Bitcoin) Verify(ctx context.Context, txHash string, want payment.Expected) (payment.Verification, error) {
	if !reBtcHash.MatchString(txHash) {
		return refuse(payment.VerificationInvalidFormat, b.required, "transaction id must be 64 hex characters"), nil
	}
	if b.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.timeout)
		defer cancel()
	}

	tx, err := b.explorer.Transaction(ctx, strings.ToLower(txHash))
	if errors.Is(err, ErrTxNotFound) {
		return refuse(payment.VerificationNotFound, b.required, "transaction not found"), nil
	}
	if err != nil {
		return payment.Verification{}, b.unavailable("transaction lookup", err)
	}

	var received int64
	matched := false
	for _, out := range tx.Vout {
		if sameBitcoinAddress(out.ScriptPubKeyAddress, want.Address) {
			matched = true
			received += out.Value
		}
	}
	if !matched {
		return refuse(payment.VerificationRecipientMismatch, b.required, "no output pays the expected address"), nil
	}
	wantSats := want.Amount.Shift(satoshiDecimals).Ceil().IntPart()
	if received < wantSats {
		return refuse(payment.VerificationAmountMismatch, b.required,
			fmt.Sprintf("received %s, expected at least %s",
				btcutil.Amount(received).Format(btcutil.AmountBTC), btcutil.Amount(wantSats).Format(btcutil.AmountBTC))), nil
	}

	if !tx.Status.Confirmed || tx.Status.BlockHeight <= 0 {
		return pending(0, b.required), nil
	}
	tip, err := b.explorer.TipHeight(ctx)
	if err != nil {
		return payment.Verification{}, b.unavailable("tip height", err)
	}
	conf := 0
	if tip >= tx.Status.BlockHeight {
		conf = int(tip - tx.Status.BlockHeight + 1)
	}
	return settle(conf, b.required), nil
}

// Base58 addresses are case-sensitive; bech32 ones are not.
func sameBitcoinAddress(a, b string) bool {
	if a == b {
		return true
	}
	la := strings.ToLower(a)
	for _, hrp := range []string{"bc1", "tb1", "bcrt1"} {
		if strings.HasPrefix(la, hrp) {
			return strings.EqualFold(a, b)
		}
	}
	return false
}

func (b *Bitcoin) unavailable(op string, err error) error {
	b.log.Warn("bitcoin explorer call failed", zap.String("op", op), zap.Error(err))
	return apperr.External("bitcoin_explorer", true, fmt.Errorf("%s: %w", op, err))
}
