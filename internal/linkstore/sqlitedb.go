package linkstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"

	"github.com/y0ug/linkhub/pkg/oauthlink"
)

// SQLiteStore represents the SQLite implementation of the Store interface.
type SQLiteStore struct {
	db     *sql.DB
	logger *logrus.Logger
}

// NewSQLiteStore initializes a new SQLiteStore instance.
func NewSQLiteStore(dataSourceName string, logger *logrus.Logger) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite3 database: %w", err)
	}

	// SQLite3 doesn't support multiple writers well.
	db.SetMaxOpenConns(1)

	store := &SQLiteStore{
		db:     db,
		logger: logger,
	}

	if err := store.Initialize(context.TODO()); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) Close(context.Context) error {
	return s.db.Close()
}

// Initialize creates the necessary tables and indexes.
func (s *SQLiteStore) Initialize(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS linked_accounts (
		project_id TEXT NOT NULL,
		provider TEXT NOT NULL,
		owner_id TEXT NOT NULL,
		enabled INTEGER NOT NULL DEFAULT 1,
		credential TEXT NOT NULL,
		expires_at DATETIME,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL,
		PRIMARY KEY (project_id, provider, owner_id)
	);

	CREATE INDEX IF NOT EXISTS idx_linked_accounts_project_id ON linked_accounts(project_id);
	CREATE INDEX IF NOT EXISTS idx_linked_accounts_expires_at ON linked_accounts(expires_at);
	`
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}
	return nil
}

// PutAccount inserts or overwrites a linked account. The credential is
// stored as a JSON column; the expiry is duplicated into its own column
// for the sweep query.
func (s *SQLiteStore) PutAccount(ctx context.Context, account LinkedAccount) error {
	credential, err := json.Marshal(account.Credential)
	if err != nil {
		return fmt.Errorf("failed to marshal credential: %w", err)
	}

	var expiresAt interface{}
	if !account.Credential.ExpiresAt.IsZero() {
		expiresAt = account.Credential.ExpiresAt.Format(time.RFC3339)
	}

	query := `
		INSERT INTO linked_accounts (project_id, provider, owner_id, enabled, credential, expires_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(project_id, provider, owner_id) DO UPDATE SET
			enabled = excluded.enabled,
			credential = excluded.credential,
			expires_at = excluded.expires_at,
			updated_at = excluded.updated_at;
	`
	_, err = s.db.ExecContext(ctx, query,
		account.ProjectID,
		account.Provider,
		account.OwnerID,
		account.Enabled,
		string(credential),
		expiresAt,
		account.CreatedAt.Format(time.RFC3339),
		account.UpdatedAt.Format(time.RFC3339),
	)
	if err != nil {
		s.logger.WithError(err).Error("PutAccount: failed to store linked account")
		return err
	}
	return nil
}

func (s *SQLiteStore) scanAccount(scan func(dest ...interface{}) error) (LinkedAccount, error) {
	var account LinkedAccount
	var credentialStr, createdAtStr, updatedAtStr string

	err := scan(
		&account.ProjectID,
		&account.Provider,
		&account.OwnerID,
		&account.Enabled,
		&credentialStr,
		&createdAtStr,
		&updatedAtStr,
	)
	if err != nil {
		return account, err
	}

	var credential oauthlink.Credential
	if err := json.Unmarshal([]byte(credentialStr), &credential); err != nil {
		return account, fmt.Errorf("failed to unmarshal credential: %w", err)
	}
	account.Credential = credential

	if account.CreatedAt, err = time.Parse(time.RFC3339, createdAtStr); err != nil {
		return account, fmt.Errorf("invalid created_at value: %w", err)
	}
	if account.UpdatedAt, err = time.Parse(time.RFC3339, updatedAtStr); err != nil {
		return account, fmt.Errorf("invalid updated_at value: %w", err)
	}
	return account, nil
}

// GetAccount retrieves a specific linked account.
func (s *SQLiteStore) GetAccount(ctx context.Context, projectID, provider, ownerID string) (LinkedAccount, error) {
	query := `
		SELECT project_id, provider, owner_id, enabled, credential, created_at, updated_at
		FROM linked_accounts
		WHERE project_id = ? AND provider = ? AND owner_id = ?;
	`
	row := s.db.QueryRowContext(ctx, query, projectID, provider, ownerID)
	account, err := s.scanAccount(row.Scan)
	if err != nil {
		if err == sql.ErrNoRows {
			return account, ErrAccountNotFound
		}
		s.logger.WithError(err).Errorf("GetAccount: failed to retrieve account %s/%s/%s", projectID, provider, ownerID)
		return account, err
	}
	return account, nil
}

// ListAccounts retrieves all linked accounts for a project.
func (s *SQLiteStore) ListAccounts(ctx context.Context, projectID string) ([]LinkedAccount, error) {
	query := `
		SELECT project_id, provider, owner_id, enabled, credential, created_at, updated_at
		FROM linked_accounts
		WHERE project_id = ?
		ORDER BY provider, owner_id;
	`
	rows, err := s.db.QueryContext(ctx, query, projectID)
	if err != nil {
		s.logger.WithError(err).Error("ListAccounts: failed to execute query")
		return nil, err
	}
	defer rows.Close()

	var accounts []LinkedAccount
	for rows.Next() {
		account, err := s.scanAccount(rows.Scan)
		if err != nil {
			s.logger.WithError(err).Warn("ListAccounts: failed to scan row")
			continue
		}
		accounts = append(accounts, account)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return accounts, nil
}

// DeleteAccount removes a linked account.
func (s *SQLiteStore) DeleteAccount(ctx context.Context, projectID, provider, ownerID string) error {
	query := `DELETE FROM linked_accounts WHERE project_id = ? AND provider = ? AND owner_id = ?;`
	res, err := s.db.ExecContext(ctx, query, projectID, provider, ownerID)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrAccountNotFound
	}
	return nil
}

// ListExpiring retrieves enabled accounts whose credential expires before
// the given time.
func (s *SQLiteStore) ListExpiring(ctx context.Context, before time.Time) ([]LinkedAccount, error) {
	query := `
		SELECT project_id, provider, owner_id, enabled, credential, created_at, updated_at
		FROM linked_accounts
		WHERE enabled = 1 AND expires_at IS NOT NULL AND expires_at < ?
		ORDER BY expires_at;
	`
	rows, err := s.db.QueryContext(ctx, query, before.Format(time.RFC3339))
	if err != nil {
		s.logger.WithError(err).Error("ListExpiring: failed to execute query")
		return nil, err
	}
	defer rows.Close()

	var accounts []LinkedAccount
	for rows.Next() {
		account, err := s.scanAccount(rows.Scan)
		if err != nil {
			s.logger.WithError(err).Warn("ListExpiring: failed to scan row")
			continue
		}
		accounts = append(accounts, account)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return accounts, nil
}

// SetEnabled flips the enabled flag on an account.
func (s *SQLiteStore) SetEnabled(ctx context.Context, projectID, provider, ownerID string, enabled bool) error {
	query := `
		UPDATE linked_accounts SET enabled = ?, updated_at = ?
		WHERE project_id = ? AND provider = ? AND owner_id = ?;
	`
	res, err := s.db.ExecContext(ctx, query, enabled, time.Now().Format(time.RFC3339), projectID, provider, ownerID)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrAccountNotFound
	}
	return nil
}
