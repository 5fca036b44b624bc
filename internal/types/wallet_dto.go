package types

// WalletInitReq defines the request body for creating a local keystore wallet.
type WalletInitReq struct {
	// A user-defined name for the wallet.
	Name string `json:"name"`
	// The user's phone number (optional).
	PhoneNumber string `json:"phone_number,optional"`
	// The user's email address (optional).
	Email string `json:"email,optional"`
}

// WalletInitResp defines the response body for a successful wallet initialization.
type WalletInitResp struct {
	Chain   string `json:"chain"`
	Address string `json:"address"`
	// 新钱包需要 connect 授权后才能铸造
	Authorized bool `json:"authorized"`
}
