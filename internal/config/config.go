package config

import "github.com/zeromicro/go-zero/rest"

const (
	WalletModeNode     = "node"
	WalletModeKeystore = "keystore"
)

type ChainConf struct {
	Name   string `json:",default=ETH-Rinkeby"`
	RpcUrl string
	// WsUrl enables streaming log subscriptions; RpcUrl polling is used otherwise.
	WsUrl   string `json:",optional"`
	ChainId int64  `json:",optional"`
}

type ContractConf struct {
	Address string
	// AbiFile 为空时使用内置的 EpicNFT ABI
	AbiFile        string `json:",optional"`
	MintMethod     string `json:",default=makeAnEpicNFT"`
	EventName      string `json:",default=NewEpicNFTMinted"`
	RecipientField string `json:",default=sender"`
	TokenIdField   string `json:",default=tokenId"`
	GasLimit       uint64 `json:",default=250000"`
	PollInterval   int64  `json:",default=3000"` // milliseconds
}

type WalletConf struct {
	Mode     string `json:",default=node,options=node|keystore"`
	Endpoint string `json:",optional"`
}

type LinksConf struct {
	Marketplace string `json:",optional"`
	Collection  string `json:",optional"`
	Social      string `json:",optional"`
}

type AmqpConf struct {
	Url        string `json:",optional"`
	Exchange   string `json:",default=nftminter"`
	RoutingKey string `json:",default=mint.notification"`
}

type NotifyConf struct {
	QueueSize int `json:",default=64"`
	Amqp      AmqpConf `json:",optional"`
}

type Config struct {
	rest.RestConf
	Chain    ChainConf
	Contract ContractConf
	Wallet   WalletConf
	Postgres struct {
		DSN string
	} `json:",optional"`
	Links  LinksConf  `json:",optional"`
	Notify NotifyConf `json:",optional"`
}
