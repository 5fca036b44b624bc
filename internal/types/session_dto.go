package types

import "time"

// SessionResp 会话状态
type SessionResp struct {
	State         string       `json:"state"`
	Address       string       `json:"address,omitempty"`
	WalletPresent bool         `json:"wallet_present"`
	Listening     bool         `json:"listening"`
	Pending       *PendingMint `json:"pending,omitempty"`
}

type PendingMint struct {
	TxHash      string    `json:"tx_hash"`
	ExplorerUrl string    `json:"explorer_url"`
	SubmittedAt time.Time `json:"submitted_at"`
}

type ConnectResp struct {
	Address string `json:"address"`
	Message string `json:"message"`
}

// MintResp is returned once the mint transaction is submitted. Confirmation
// arrives later through the notification feed.
type MintResp struct {
	TxHash      string `json:"tx_hash"`
	ExplorerUrl string `json:"explorer_url"`
	Message     string `json:"message"`
	Status      string `json:"status"`
}

type NotificationItem struct {
	Kind      string    `json:"kind"`
	Message   string    `json:"message"`
	TokenId   string    `json:"token_id,omitempty"`
	Link      string    `json:"link,omitempty"`
	TxHash    string    `json:"tx_hash,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type NotificationsResp struct {
	Notifications []NotificationItem `json:"notifications"`
}

// LinksResp 静态外部链接
type LinksResp struct {
	Collection string `json:"collection,omitempty"`
	Contract   string `json:"contract"`
	Social     string `json:"social,omitempty"`
}

type ErrorResp struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
