package wallet

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"nftminter/internal/session"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/zeromicro/go-zero/core/logx"
)

// userRejectedCode is the EIP-1193 "User Rejected Request" error code.
const userRejectedCode = 4001

const dialCheckTimeout = 5 * time.Second

// NodeProvider talks to a wallet that speaks the Ethereum JSON-RPC account
// methods (eth_accounts, eth_requestAccounts, eth_signTransaction).
type NodeProvider struct {
	client *rpc.Client
	logger logx.Logger
}

// DialNodeProvider connects to endpoint. An empty or unreachable endpoint
// yields a provider that reports itself as not present.
func DialNodeProvider(ctx context.Context, endpoint string) *NodeProvider {
	logger := logx.WithContext(ctx)
	if endpoint == "" {
		logger.Infof("未配置钱包节点地址")
		return &NodeProvider{logger: logger}
	}

	client, err := rpc.DialContext(ctx, endpoint)
	if err != nil {
		logger.Errorf("钱包节点连接失败 %s: %v", endpoint, err)
		return &NodeProvider{logger: logger}
	}

	// HTTP 连接是惰性的, 用一次 eth_accounts 确认钱包可达
	checkCtx, cancel := context.WithTimeout(ctx, dialCheckTimeout)
	defer cancel()
	var accounts []common.Address
	if err := client.CallContext(checkCtx, &accounts, "eth_accounts"); err != nil && isUnreachable(err) {
		logger.Errorf("钱包节点不可达 %s: %v", endpoint, err)
		client.Close()
		return &NodeProvider{logger: logger}
	}
	return &NodeProvider{client: client, logger: logger}
}

func NewNodeProvider(client *rpc.Client) *NodeProvider {
	return &NodeProvider{client: client, logger: logx.WithContext(context.Background())}
}

func (p *NodeProvider) Present() bool {
	return p != nil && p.client != nil
}

// AuthorizedAccounts returns the accounts already exposed to this client without prompting.
func (p *NodeProvider) AuthorizedAccounts(ctx context.Context) ([]common.Address, error) {
	if !p.Present() {
		return nil, session.ErrWalletUnavailable
	}
	var accounts []common.Address
	if err := p.client.CallContext(ctx, &accounts, "eth_accounts"); err != nil {
		return nil, callError("eth_accounts", err)
	}
	return accounts, nil
}

// RequestAccounts may prompt the user. A rejection maps to session.ErrAuthorizationDenied.
func (p *NodeProvider) RequestAccounts(ctx context.Context) ([]common.Address, error) {
	if !p.Present() {
		return nil, session.ErrWalletUnavailable
	}
	var accounts []common.Address
	if err := p.client.CallContext(ctx, &accounts, "eth_requestAccounts"); err != nil {
		if isUserRejection(err) {
			return nil, fmt.Errorf("%w: %v", session.ErrAuthorizationDenied, err)
		}
		return nil, callError("eth_requestAccounts", err)
	}
	return accounts, nil
}

func (p *NodeProvider) Signer(account common.Address) (session.Signer, error) {
	if !p.Present() {
		return nil, session.ErrWalletUnavailable
	}
	return &NodeSigner{client: p.client, address: account}, nil
}

func (p *NodeProvider) Close() {
	if p.Present() {
		p.client.Close()
	}
}

func isUserRejection(err error) bool {
	var rpcErr rpc.Error
	return errors.As(err, &rpcErr) && rpcErr.ErrorCode() == userRejectedCode
}

// isUnreachable reports transport failures, as opposed to errors returned by a
// wallet that answered.
func isUnreachable(err error) bool {
	var rpcErr rpc.Error
	if errors.As(err, &rpcErr) {
		return false
	}
	var httpErr rpc.HTTPError
	if errors.As(err, &httpErr) {
		return false
	}
	var opErr *net.OpError
	return errors.As(err, &opErr) || errors.Is(err, context.DeadlineExceeded)
}

func callError(method string, err error) error {
	if isUnreachable(err) {
		return fmt.Errorf("%w: %s: %v", session.ErrWalletUnavailable, method, err)
	}
	return fmt.Errorf("%s: %w", method, err)
}
