package wallet

import (
	"context"
	"crypto/ecdsa"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rpc"
)

// KeySigner 使用本地私钥签名
type KeySigner struct {
	key     *ecdsa.PrivateKey
	address common.Address
}

func NewKeySigner(key *ecdsa.PrivateKey) *KeySigner {
	return &KeySigner{
		key:     key,
		address: crypto.PubkeyToAddress(key.PublicKey),
	}
}

func (s *KeySigner) Address() common.Address {
	return s.address
}

func (s *KeySigner) SignTx(_ context.Context, tx *types.Transaction, chainID *big.Int) (*types.Transaction, error) {
	signed, err := types.SignTx(tx, types.LatestSignerForChainID(chainID), s.key)
	if err != nil {
		return nil, fmt.Errorf("failed to sign transaction: %w", err)
	}
	return signed, nil
}

// NodeSigner 通过钱包节点的 eth_signTransaction 签名，私钥不离开钱包
type NodeSigner struct {
	client  *rpc.Client
	address common.Address
}

func (s *NodeSigner) Address() common.Address {
	return s.address
}

type signTxArgs struct {
	From     common.Address  `json:"from"`
	To       *common.Address `json:"to,omitempty"`
	Gas      hexutil.Uint64  `json:"gas"`
	GasPrice *hexutil.Big    `json:"gasPrice"`
	Value    *hexutil.Big    `json:"value"`
	Nonce    hexutil.Uint64  `json:"nonce"`
	Data     hexutil.Bytes   `json:"data"`
	ChainID  *hexutil.Big    `json:"chainId"`
}

type signTxResult struct {
	Raw hexutil.Bytes `json:"raw"`
}

func (s *NodeSigner) SignTx(ctx context.Context, tx *types.Transaction, chainID *big.Int) (*types.Transaction, error) {
	args := signTxArgs{
		From:     s.address,
		To:       tx.To(),
		Gas:      hexutil.Uint64(tx.Gas()),
		GasPrice: (*hexutil.Big)(tx.GasPrice()),
		Value:    (*hexutil.Big)(tx.Value()),
		Nonce:    hexutil.Uint64(tx.Nonce()),
		Data:     tx.Data(),
		ChainID:  (*hexutil.Big)(chainID),
	}

	var res signTxResult
	if err := s.client.CallContext(ctx, &res, "eth_signTransaction", args); err != nil {
		if isUserRejection(err) {
			return nil, fmt.Errorf("user rejected signing: %w", err)
		}
		return nil, fmt.Errorf("eth_signTransaction: %w", err)
	}
	if len(res.Raw) == 0 {
		return nil, errors.New("wallet returned an empty signed transaction")
	}

	signed := new(types.Transaction)
	if err := signed.UnmarshalBinary(res.Raw); err != nil {
		return nil, fmt.Errorf("decode signed transaction: %w", err)
	}
	sender, err := types.Sender(types.LatestSignerForChainID(chainID), signed)
	if err != nil {
		return nil, fmt.Errorf("recover signer: %w", err)
	}
	if sender != s.address {
		return nil, fmt.Errorf("wallet signed with %s, expected %s", sender.Hex(), s.address.Hex())
	}
	return signed, nil
}

// GenerateKey creates a fresh secp256k1 key and returns its address and hex encoding.
func GenerateKey() (address common.Address, keyHex string, err error) {
	key, err := crypto.GenerateKey()
	if err != nil {
		return common.Address{}, "", fmt.Errorf("failed to generate EVM private key: %w", err)
	}
	return crypto.PubkeyToAddress(key.PublicKey), hex.EncodeToString(crypto.FromECDSA(key)), nil
}
