package constant

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

type Chain string

const (
	ChainETH        Chain = "ETH"
	ChainETHSepolia Chain = "ETH-Sepolia"
	ChainETHRinkeby Chain = "ETH-Rinkeby"
	ChainBSC        Chain = "BSC"
	ChainBSCTestNet Chain = "BSC-TestNet"
	ChainPolygon    Chain = "Polygon"
)

// ChainTypeEVM is stored in wallets.chain_type for keys created by this service.
const ChainTypeEVM = "EVM"

// Network holds the public URLs of one chain.
type Network struct {
	DisplayName string
	Explorer    string
	Marketplace string
}

// Networks 各链的区块浏览器与 NFT 市场地址
var Networks = map[Chain]Network{
	ChainETH:        {DisplayName: "以太坊主网", Explorer: "https://etherscan.io", Marketplace: "https://opensea.io/assets/ethereum"},
	ChainETHSepolia: {DisplayName: "以太坊 Sepolia 测试网", Explorer: "https://sepolia.etherscan.io", Marketplace: "https://testnets.opensea.io/assets/sepolia"},
	ChainETHRinkeby: {DisplayName: "以太坊 Rinkeby 测试网", Explorer: "https://rinkeby.etherscan.io", Marketplace: "https://testnets.opensea.io/assets"},
	ChainBSC:        {DisplayName: "BSC 主网", Explorer: "https://bscscan.com", Marketplace: "https://opensea.io/assets/bsc"},
	ChainBSCTestNet: {DisplayName: "BSC 测试网", Explorer: "https://testnet.bscscan.com", Marketplace: "https://testnets.opensea.io/assets/bsc-testnet"},
	ChainPolygon:    {DisplayName: "Polygon 主网", Explorer: "https://polygonscan.com", Marketplace: "https://opensea.io/assets/matic"},
}

// IsChainSupported checks if a given chain has a known network entry.
func IsChainSupported(chain string) bool {
	_, ok := Networks[Chain(chain)]
	return ok
}

// Links builds explorer and marketplace URLs for one contract.
type Links struct {
	Network  Network
	Contract common.Address
}

// NewLinks resolves the network for chain. A non-empty marketplace overrides
// the chain default.
func NewLinks(chain string, contract common.Address, marketplace string) (Links, error) {
	network, ok := Networks[Chain(chain)]
	if !ok {
		return Links{}, fmt.Errorf("unsupported chain: %s", chain)
	}
	if marketplace != "" {
		network.Marketplace = marketplace
	}
	network.Explorer = strings.TrimRight(network.Explorer, "/")
	network.Marketplace = strings.TrimRight(network.Marketplace, "/")
	return Links{Network: network, Contract: contract}, nil
}

// Asset is the marketplace page of one minted token.
func (l Links) Asset(tokenID *big.Int) string {
	return fmt.Sprintf("%s/%s/%s", l.Network.Marketplace, l.Contract.Hex(), tokenID.String())
}

func (l Links) Transaction(hash common.Hash) string {
	return fmt.Sprintf("%s/tx/%s", l.Network.Explorer, hash.Hex())
}

func (l Links) ContractPage() string {
	return fmt.Sprintf("%s/address/%s", l.Network.Explorer, l.Contract.Hex())
}
