package wallet

import (
	"context"
	"errors"
	"fmt"

	"nftminter/internal/model"
	"nftminter/internal/session"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/zeromicro/go-zero/core/logx"
)

// ErrNoWallets is a session.ErrWalletUnavailable: there is nothing to connect.
var ErrNoWallets = fmt.Errorf("%w: keystore has no wallets, create one with POST /api/wallet_init", session.ErrWalletUnavailable)

// Approver decides which stored accounts the user exposes to the client.
// Returning an empty slice means the request was rejected.
type Approver func(ctx context.Context, accounts []common.Address) ([]common.Address, error)

// ApproveAll approves every stored account.
func ApproveAll(_ context.Context, accounts []common.Address) ([]common.Address, error) {
	return accounts, nil
}

// KeystoreProvider 基于数据库中本地私钥的钱包
type KeystoreProvider struct {
	dao     model.WalletsDao
	approve Approver
	logger  logx.Logger
}

func NewKeystoreProvider(dao model.WalletsDao, approve Approver) *KeystoreProvider {
	if approve == nil {
		approve = ApproveAll
	}
	return &KeystoreProvider{
		dao:     dao,
		approve: approve,
		logger:  logx.WithContext(context.Background()),
	}
}

func (p *KeystoreProvider) Present() bool {
	return p != nil && p.dao != nil
}

func (p *KeystoreProvider) AuthorizedAccounts(ctx context.Context) ([]common.Address, error) {
	wallets, err := p.dao.FindAuthorized(ctx)
	if err != nil {
		return nil, fmt.Errorf("load authorized wallets: %w", err)
	}
	return addresses(wallets), nil
}

func (p *KeystoreProvider) RequestAccounts(ctx context.Context) ([]common.Address, error) {
	wallets, err := p.dao.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load wallets: %w", err)
	}
	if len(wallets) == 0 {
		return nil, ErrNoWallets
	}

	approved, err := p.approve(ctx, addresses(wallets))
	if err != nil {
		return nil, err
	}
	if len(approved) == 0 {
		return nil, session.ErrAuthorizationDenied
	}

	for _, account := range approved {
		if err := p.dao.SetAuthorized(ctx, account.Hex(), true); err != nil {
			return nil, fmt.Errorf("authorize %s: %w", account.Hex(), err)
		}
	}
	p.logger.Infof("已授权 %d 个本地账户", len(approved))
	return approved, nil
}

func (p *KeystoreProvider) Signer(account common.Address) (session.Signer, error) {
	wallet, err := p.dao.FindOneByAddress(context.Background(), account.Hex())
	if err != nil {
		p.logger.Errorf("查询钱包失败 for address %s: %v", account.Hex(), err)
		return nil, fmt.Errorf("wallet not found: %w", err)
	}
	if !wallet.Authorized {
		return nil, session.ErrNotConnected
	}

	key, err := crypto.HexToECDSA(wallet.EncryptedPrivateKey)
	if err != nil {
		p.logger.Errorf("私钥解析失败: %v", err)
		return nil, errors.New("invalid private key")
	}
	return NewKeySigner(key), nil
}

func addresses(wallets []*model.Wallets) []common.Address {
	out := make([]common.Address, 0, len(wallets))
	for _, w := range wallets {
		if common.IsHexAddress(w.Address) {
			out = append(out, common.HexToAddress(w.Address))
		}
	}
	return out
}
