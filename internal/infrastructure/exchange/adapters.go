package exchange

import (
	"fmt"

	"github.com/vitos/crypto_account_monitor/internal/domain"
)

// AdapterFactory builds the adapter matching an account's exchange
// tag. Callers never branch on exchange names themselves; the two
// implementations differ only in signing scheme and wire shape.
type AdapterFactory struct {
	okxBaseURL   string
	asterBaseURL string
}

func NewAdapterFactory(okxBaseURL, asterBaseURL string) *AdapterFactory {
	return &AdapterFactory{okxBaseURL: okxBaseURL, asterBaseURL: asterBaseURL}
}

func (f *AdapterFactory) ForAccount(acct *domain.Account) (domain.ExchangeAdapter, error) {
	switch acct.Exchange {
	case domain.ExchangeOKX:
		return NewOKXAdapter(acct.Credentials, f.okxBaseURL), nil
	case domain.ExchangeAster:
		return NewAsterAdapter(acct.Credentials, f.asterBaseURL)
	}
	return nil, fmt.Errorf("unsupported exchange %q", acct.Exchange)
}
