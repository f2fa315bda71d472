package chain

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"regexp"
	"strings"
	"time"

	"loan-settlement-engine/internal/domain/apperr"
	"loan-settlement-engine/internal/domain/payment"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	EthereumConfirmations = 12
	etherDecimals         = 18
)

var (
	reEthHash = regexp.MustCompile(`^0x[0-9a-fA-F]{64}$`)

	// keccak256("Transfer(address,address,uint256)")
	transferTopic = crypto.Keccak256Hash([]byte("Transfer(address,address,uint256)"))
)

// EthClient is the subset of ethclient.Client the verifier reads.
type EthClient interface {
	TransactionByHash(ctx context.Context, hash common.Hash) (*types.Transaction, bool, error)
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
	BlockNumber(ctx context.Context) (uint64, error)
}

// Ethereum verifies native ether transfers, or ERC-20 transfers when token is set.
type Ethereum struct {
	client   EthClient
	currency string
	token    *common.Address
	decimals int32
	required int
	timeout  time.Duration
	log      *zap.Logger
}

type EthereumOption func(*Ethereum)

func WithEthereumTimeout(d time.Duration) EthereumOption {
	return func(e *Ethereum) { e.timeout = d }
}

func WithEthereumLogger(l *zap.Logger) EthereumOption {
	return func(e *Ethereum) { e.log = l }
}

func NewEther(client EthClient, opts ...EthereumOption) *Ethereum {
	e := &Ethereum{client: client, currency: "ETH", decimals: etherDecimals, required: EthereumConfirmations, timeout: 10 * time.Second, log: zap.NewNop()}
	for _, o := range opts {
		o(e)
	}
	return e
}

// NewERC20 verifies Transfer events emitted by contract.
func NewERC20(client EthClient, currency string, contract common.Address, decimals int32, opts ...EthereumOption) *Ethereum {
	e := NewEther(client, opts...)
	e.currency = strings.ToUpper(currency)
	e.token = &contract
	e.decimals = decimals
	return e
}

func (e *Ethereum) Currency() string           { return e.currency }
func (e *Ethereum) Decimals() int32            { return e.decimals }
func (e *Ethereum) RequiredConfirmations() int { return e.required }

func (e *Ethereum) ValidateAddress(address string) error {
	if !common.IsHexAddress(address) {
		return apperr.Validation("address", "invalid_address", "not a valid Ethereum address")
	}
	return nil
}

func (e *Ethereum) Verify(ctx context.Context, txHash string, want payment.Expected) (payment.Verification, error) {
	if !reEthHash.MatchString(txHash) {
		return refuse(payment.VerificationInvalidFormat, e.required, "hash must be 0x followed by 64 hex characters"), nil
	}
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}
	hash := common.HexToHash(txHash)

	tx, isPending, err := e.client.TransactionByHash(ctx, hash)
	if errors.Is(err, ethereum.NotFound) {
		return refuse(payment.VerificationNotFound, e.required, "transaction not found"), nil
	}
	if err != nil {
		return payment.Verification{}, e.unavailable("transaction lookup", err)
	}
	if isPending {
		return pending(0, e.required), nil
	}

	receipt, err := e.client.TransactionReceipt(ctx, hash)
	if errors.Is(err, ethereum.NotFound) {
		// mined view not indexed yet
		return pending(0, e.required), nil
	}
	if err != nil {
		return payment.Verification{}, e.unavailable("receipt lookup", err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return refuse(payment.VerificationOnChainFailed, e.required, "transaction reverted"), nil
	}

	wantUnits := want.Amount.Shift(e.decimals).Ceil().BigInt()
	var check payment.Verification
	if e.token == nil {
		check = e.checkNative(tx, want.Address, wantUnits)
	} else {
		check = e.checkToken(receipt, want.Address, wantUnits)
	}
	if check.Status != "" {
		return check, nil
	}

	current, err := e.client.BlockNumber(ctx)
	if err != nil {
		return payment.Verification{}, e.unavailable("block number", err)
	}
	conf := 0
	if receipt.BlockNumber != nil && current >= receipt.BlockNumber.Uint64() {
		conf = int(current - receipt.BlockNumber.Uint64())
	}
	res := settle(conf, e.required)
	e.log.Debug("ethereum transaction checked",
		zap.String("currency", e.currency),
		zap.String("tx_hash", txHash),
		zap.String("status", string(res.Status)),
		zap.Int("confirmations", conf))
	return res, nil
}

// checkNative returns a zero Verification when the transfer matches.
func (e *Ethereum) checkNative(tx *types.Transaction, wantAddr string, wantWei *big.Int) payment.Verification {
	if tx.To() == nil || !strings.EqualFold(tx.To().Hex(), wantAddr) {
		return refuse(payment.VerificationRecipientMismatch, e.required, "transaction recipient does not match")
	}
	if tx.Value().Cmp(wantWei) < 0 {
		return refuse(payment.VerificationAmountMismatch, e.required,
			fmt.Sprintf("sent %s ETH, expected at least %s", WeiToEther(tx.Value()), WeiToEther(wantWei)))
	}
	return payment.Verification{}
}

// checkToken sums Transfer logs from the token contract to wantAddr.
func (e *Ethereum) checkToken(receipt *types.Receipt, wantAddr string, wantUnits *big.Int) payment.Verification {
	recipient := common.HexToAddress(wantAddr)
	received := new(big.Int)
	matched := false
	for _, lg := range receipt.Logs {
		if lg == nil || lg.Address != *e.token || len(lg.Topics) != 3 || lg.Topics[0] != transferTopic {
			continue
		}
		if common.BytesToAddress(lg.Topics[2].Bytes()) != recipient {
			continue
		}
		matched = true
		received.Add(received, new(big.Int).SetBytes(lg.Data))
	}
	if !matched {
		return refuse(payment.VerificationRecipientMismatch, e.required, "no token transfer to the expected address")
	}
	if received.Cmp(wantUnits) < 0 {
		return refuse(payment.VerificationAmountMismatch, e.required,
			fmt.Sprintf("received %s token units, expected at least %s", received, wantUnits))
	}
	return payment.Verification{}
}

func (e *Ethereum) unavailable(op string, err error) error {
	e.log.Warn("ethereum provider call failed", zap.String("currency", e.currency), zap.String("op", op), zap.Error(err))
	return apperr.External("ethereum", true, fmt.Errorf("%s: %w", op, err))
}

func WeiToEther(wei *big.Int) decimal.Decimal {
	return decimal.NewFromBigInt(wei, -etherDecimals)
}
