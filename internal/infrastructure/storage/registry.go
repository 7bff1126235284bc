package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/vitos/crypto_account_monitor/internal/domain"
)

// SQLiteRegistry is the account/config registry boundary. The monitor
// core only lists and reads accounts; Upsert exists for the ops
// tooling that seeds the registry.
type SQLiteRegistry struct {
	db *sql.DB
}

func NewSQLiteRegistry(dbPath string) (*SQLiteRegistry, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	reg := &SQLiteRegistry{db: db}
	if err := reg.initSchema(); err != nil {
		return nil, err
	}
	return reg, nil
}

func (r *SQLiteRegistry) initSchema() error {
	query := `CREATE TABLE IF NOT EXISTS accounts (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		symbol TEXT NOT NULL,
		exchange TEXT NOT NULL,
		api_key TEXT NOT NULL DEFAULT '',
		api_secret TEXT NOT NULL DEFAULT '',
		passphrase TEXT NOT NULL DEFAULT '',
		wallet_key TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT 'active',
		created_at DATETIME NOT NULL
	);`
	if _, err := r.db.Exec(query); err != nil {
		return fmt.Errorf("init registry schema: %w", err)
	}
	return nil
}

const accountColumns = `id, name, symbol, exchange, api_key, api_secret, passphrase, wallet_key, status, created_at`

func scanAccount(row interface{ Scan(...any) error }) (*domain.Account, error) {
	var a domain.Account
	var status string
	err := row.Scan(&a.ID, &a.Name, &a.Symbol, &a.Exchange,
		&a.Credentials.APIKey, &a.Credentials.APISecret,
		&a.Credentials.Passphrase, &a.Credentials.WalletKey,
		&status, &a.CreatedAt)
	if err != nil {
		return nil, err
	}
	a.Status = domain.AccountStatus(status)
	return &a, nil
}

func (r *SQLiteRegistry) ListAccounts(ctx context.Context) ([]*domain.Account, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+accountColumns+` FROM accounts ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var accounts []*domain.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

func (r *SQLiteRegistry) GetAccount(ctx context.Context, id string) (*domain.Account, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = ?`, id)
	a, err := scanAccount(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("account %s not found", id)
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}

func (r *SQLiteRegistry) UpsertAccount(ctx context.Context, a *domain.Account) error {
	query := `INSERT INTO accounts (` + accountColumns + `)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			  ON CONFLICT(id) DO UPDATE SET
			  name=excluded.name,
			  symbol=excluded.symbol,
			  exchange=excluded.exchange,
			  api_key=excluded.api_key,
			  api_secret=excluded.api_secret,
			  passphrase=excluded.passphrase,
			  wallet_key=excluded.wallet_key,
			  status=excluded.status`
	_, err := r.db.ExecContext(ctx, query,
		a.ID, a.Name, a.Symbol, a.Exchange,
		a.Credentials.APIKey, a.Credentials.APISecret,
		a.Credentials.Passphrase, a.Credentials.WalletKey,
		string(a.Status), a.CreatedAt)
	return err
}

func (r *SQLiteRegistry) Close() error {
	return r.db.Close()
}
