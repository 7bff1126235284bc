package domain

import "time"

const (
	ExchangeOKX   = "okx"
	ExchangeAster = "aster"
)

type AccountStatus string

const (
	AccountActive   AccountStatus = "active"
	AccountInactive AccountStatus = "inactive"
)

// Credentials holds whatever the account's exchange needs to sign
// requests. OKX uses key/secret/passphrase; Aster signs with an EVM
// wallet key.
type Credentials struct {
	APIKey     string
	APISecret  string
	Passphrase string
	WalletKey  string // hex-encoded private key for wallet-signed exchanges
}

// Empty reports whether no usable credential is present.
func (c Credentials) Empty() bool {
	return c.APIKey == "" && c.APISecret == "" && c.WalletKey == ""
}

// Account is a registry row. The registry owns the lifecycle; this
// service only reads accounts to drive collection.
type Account struct {
	ID          string
	Name        string
	Symbol      string // configured instrument in the exchange's native format
	Exchange    string // "okx" or "aster"
	Credentials Credentials
	Status      AccountStatus
	CreatedAt   time.Time
}

func (a *Account) Active() bool {
	return a.Status == AccountActive
}
