package contract

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"nftminter/internal/session"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	evmTypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/zeromicro/go-zero/core/logx"
)

const (
	defaultGasLimit     = 250000
	defaultPollInterval = 3 * time.Second
)

// Backend is the slice of ethclient.Client the runtime needs.
type Backend interface {
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	SendTransaction(ctx context.Context, tx *evmTypes.Transaction) error
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*evmTypes.Receipt, error)
	BlockNumber(ctx context.Context) (uint64, error)
	FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]evmTypes.Log, error)
	SubscribeFilterLogs(ctx context.Context, q ethereum.FilterQuery, ch chan<- evmTypes.Log) (ethereum.Subscription, error)
}

type Options struct {
	Address        common.Address
	ChainID        *big.Int
	ABI            abi.ABI
	MintMethod     string
	EventName      string
	RecipientField string
	TokenIDField   string
	// GasLimit is used when estimation fails.
	GasLimit     uint64
	PollInterval time.Duration
	// Streaming selects SubscribeFilterLogs (websocket/ipc) over FilterLogs polling.
	Streaming bool
}

// Runtime 已部署的 NFT 合约
type Runtime struct {
	backend Backend
	opts    Options
	event   abi.Event
	logger  logx.Logger
}

func NewRuntime(backend Backend, opts Options) (*Runtime, error) {
	if opts.ChainID == nil {
		return nil, errors.New("chain id is required")
	}
	if _, ok := opts.ABI.Methods[opts.MintMethod]; !ok {
		return nil, fmt.Errorf("abi has no method %q", opts.MintMethod)
	}
	event, ok := opts.ABI.Events[opts.EventName]
	if !ok {
		return nil, fmt.Errorf("abi has no event %q", opts.EventName)
	}
	if opts.GasLimit == 0 {
		opts.GasLimit = defaultGasLimit
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = defaultPollInterval
	}
	return &Runtime{
		backend: backend,
		opts:    opts,
		event:   event,
		logger:  logx.WithContext(context.Background()),
	}, nil
}

// Connect binds the contract to one account and its signer.
func (r *Runtime) Connect(account common.Address, signer session.Signer) (session.ContractHandle, error) {
	if signer == nil {
		return nil, errors.New("signer is required")
	}
	if signer.Address() != account {
		return nil, fmt.Errorf("signer %s does not match account %s", signer.Address().Hex(), account.Hex())
	}
	return &Handle{runtime: r, account: account, signer: signer}, nil
}

type Handle struct {
	runtime *Runtime
	account common.Address
	signer  session.Signer
}

// Mint 构建、签名并发送铸造交易
func (h *Handle) Mint(ctx context.Context) (session.TransactionHandle, error) {
	r := h.runtime

	data, err := r.opts.ABI.Pack(r.opts.MintMethod)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", r.opts.MintMethod, err)
	}

	nonce, err := r.backend.PendingNonceAt(ctx, h.account)
	if err != nil {
		return nil, fmt.Errorf("failed to get nonce: %w", err)
	}
	gasPrice, err := r.backend.SuggestGasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get gas price: %w", err)
	}

	to := r.opts.Address
	gasLimit, err := r.backend.EstimateGas(ctx, ethereum.CallMsg{
		From: h.account,
		To:   &to,
		Data: data,
	})
	if err != nil {
		r.logger.Infof("Gas 估算失败，使用默认值 %d: %v", r.opts.GasLimit, err)
		gasLimit = r.opts.GasLimit
	} else {
		// 增加 gas limit 缓冲
		gasLimit = gasLimit * 120 / 100
	}

	tx := evmTypes.NewTx(&evmTypes.LegacyTx{
		Nonce:    nonce,
		To:       &to,
		Value:    big.NewInt(0),
		Gas:      gasLimit,
		GasPrice: gasPrice,
		Data:     data,
	})

	signed, err := h.signer.SignTx(ctx, tx, r.opts.ChainID)
	if err != nil {
		return nil, err
	}

	if err := r.backend.SendTransaction(ctx, signed); err != nil {
		return nil, fmt.Errorf("failed to send transaction: %w", err)
	}
	r.logger.Infof("铸造交易已发送: %s nonce=%d gas=%d", signed.Hash().Hex(), nonce, gasLimit)

	return &Transaction{
		hash:     signed.Hash(),
		backend:  r.backend,
		interval: r.opts.PollInterval,
		logger:   r.logger,
	}, nil
}

// Transaction is a submitted transaction awaiting inclusion.
type Transaction struct {
	hash     common.Hash
	backend  Backend
	interval time.Duration
	logger   logx.Logger
}

func (t *Transaction) Hash() common.Hash {
	return t.hash
}

// AwaitInclusion polls for the receipt until it exists or ctx ends.
// A reverted receipt is an error.
func (t *Transaction) AwaitInclusion(ctx context.Context) error {
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		receipt, err := t.backend.TransactionReceipt(ctx, t.hash)
		switch {
		case err == nil:
			if receipt.Status != evmTypes.ReceiptStatusSuccessful {
				return fmt.Errorf("transaction reverted in block %s", receipt.BlockNumber)
			}
			return nil
		case errors.Is(err, ethereum.NotFound):
			t.logger.Debugf("交易尚未确认，继续等待... %s", t.hash.Hex())
		default:
			t.logger.Errorf("查询交易回执失败 %s: %v", t.hash.Hex(), err)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
