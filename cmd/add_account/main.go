// Ops tool: seed or update a registry account.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/vitos/crypto_account_monitor/internal/config"
	"github.com/vitos/crypto_account_monitor/internal/domain"
	"github.com/vitos/crypto_account_monitor/internal/infrastructure/storage"
)

func main() {
	id := flag.String("id", "", "account id (required)")
	name := flag.String("name", "", "display name")
	symbol := flag.String("symbol", "BTCUSDT", "configured instrument")
	exchangeName := flag.String("exchange", domain.ExchangeAster, "okx or aster")
	apiKey := flag.String("api-key", "", "API key (okx)")
	apiSecret := flag.String("api-secret", "", "API secret (okx)")
	passphrase := flag.String("passphrase", "", "API passphrase (okx)")
	walletKey := flag.String("wallet-key", "", "hex wallet private key (aster)")
	status := flag.String("status", "active", "active or inactive")
	flag.Parse()

	if *id == "" {
		fmt.Println("-id is required")
		flag.Usage()
		os.Exit(1)
	}
	if *exchangeName != domain.ExchangeOKX && *exchangeName != domain.ExchangeAster {
		fmt.Printf("unsupported exchange %q\n", *exchangeName)
		os.Exit(1)
	}

	cfg, err := config.Load("configs/config.yaml")
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	registry, err := storage.NewSQLiteRegistry(cfg.Registry.DBPath)
	if err != nil {
		fmt.Printf("Failed to open registry: %v\n", err)
		os.Exit(1)
	}
	defer registry.Close()

	displayName := *name
	if displayName == "" {
		displayName = *id
	}

	acct := &domain.Account{
		ID:       *id,
		Name:     displayName,
		Symbol:   *symbol,
		Exchange: *exchangeName,
		Credentials: domain.Credentials{
			APIKey:     *apiKey,
			APISecret:  *apiSecret,
			Passphrase: *passphrase,
			WalletKey:  *walletKey,
		},
		Status:    domain.AccountStatus(*status),
		CreatedAt: time.Now(),
	}

	if err := registry.UpsertAccount(context.Background(), acct); err != nil {
		fmt.Printf("Failed to upsert account: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Account %s (%s, %s) saved\n", acct.ID, acct.Exchange, acct.Symbol)
}
