package entities

import "strings"

// AccountType is the custody account kind.
type AccountType string

const (
	AccountTypeEOA AccountType = "EOA"
	AccountTypeSCA AccountType = "SCA"
)

// IsValid checks if the account type is valid
func (t AccountType) IsValid() bool {
	return t == AccountTypeEOA || t == AccountTypeSCA
}

// SponsorsGas reports whether the account pays gas through a paymaster instead of native balance.
func (t AccountType) SponsorsGas() bool {
	return t == AccountTypeSCA
}

// ParseAccountType normalizes custody responses; anything unknown is treated as EOA.
func ParseAccountType(s string) AccountType {
	if AccountType(strings.ToUpper(strings.TrimSpace(s))) == AccountTypeSCA {
		return AccountTypeSCA
	}
	return AccountTypeEOA
}

// CustodialWallet is one user's account on one chain.
// For a given user the Address is identical on every chain; WalletID may differ per chain.
type CustodialWallet struct {
	WalletID    string      `json:"wallet_id"`
	Address     string      `json:"address"`
	AccountType AccountType `json:"account_type"`
	ChainKey    string      `json:"chain"`
	WalletSetID string      `json:"wallet_set_id,omitempty"`
}

// WalletResponse is the API view of a wallet. The custody handle is deliberately omitted.
type WalletResponse struct {
	Chain       string      `json:"chain"`
	Address     string      `json:"address"`
	AccountType AccountType `json:"account_type"`
}

// ToResponse strips the custody handle.
func (w CustodialWallet) ToResponse() WalletResponse {
	return WalletResponse{
		Chain:       w.ChainKey,
		Address:     w.Address,
		AccountType: w.AccountType,
	}
}

// WalletBalanceResponse reports human-decimal balances.
type WalletBalanceResponse struct {
	Chain        string `json:"chain"`
	Address      string `json:"address"`
	Token        string `json:"token"`
	NativeSymbol string `json:"native_symbol"`
	Native       string `json:"native"`
}
