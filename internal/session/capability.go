package session

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// Signer produces signatures for exactly one account.
type Signer interface {
	Address() common.Address
	SignTx(ctx context.Context, tx *types.Transaction, chainID *big.Int) (*types.Transaction, error)
}

// WalletProvider mediates access to the user's accounts.
// AuthorizedAccounts never prompts; RequestAccounts may.
type WalletProvider interface {
	Present() bool
	AuthorizedAccounts(ctx context.Context) ([]common.Address, error)
	RequestAccounts(ctx context.Context) ([]common.Address, error)
	Signer(account common.Address) (Signer, error)
}

// ContractRuntime is the deployed NFT contract as seen by the session.
type ContractRuntime interface {
	Connect(account common.Address, signer Signer) (ContractHandle, error)
	// Subscribe delivers every confirmation event emitted by the contract,
	// for any recipient, until the returned Subscription is released.
	Subscribe(ctx context.Context, handler func(MintConfirmationEvent)) (Subscription, error)
}

type ContractHandle interface {
	Mint(ctx context.Context) (TransactionHandle, error)
}

type TransactionHandle interface {
	Hash() common.Hash
	AwaitInclusion(ctx context.Context) error
}

type Subscription interface {
	Unsubscribe()
}

// Notifier is the one-shot, user-visible notification channel.
type Notifier interface {
	Notify(ctx context.Context, n Notification)
}

// Links builds the external URLs shown to the user.
type Links interface {
	Asset(tokenID *big.Int) string
	Transaction(hash common.Hash) string
}

// MintConfirmationEvent 合约在代币最终铸造完成后发出的事件
type MintConfirmationEvent struct {
	Recipient   common.Address
	TokenID     *big.Int
	TxHash      common.Hash
	BlockNumber uint64
	LogIndex    uint
}

// MintRequest 正在进行中的铸造请求，同一会话同一时间最多一个
type MintRequest struct {
	Account     common.Address
	SubmittedAt time.Time
	Tx          TransactionHandle
	TxLink      string
}

type NotificationKind string

const (
	KindMintConfirmed       NotificationKind = "mint_confirmed"
	KindMintFailed          NotificationKind = "mint_failed"
	KindWalletUnavailable   NotificationKind = "wallet_unavailable"
	KindAuthorizationDenied NotificationKind = "authorization_denied"
)

type Notification struct {
	Kind      NotificationKind `json:"kind"`
	Message   string           `json:"message"`
	TokenID   *big.Int         `json:"token_id,omitempty"`
	Link      string           `json:"link,omitempty"`
	TxHash    string           `json:"tx_hash,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
}
