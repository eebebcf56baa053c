package database

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"cardvault/internal/models"
)

// WalletSummary is the store wallet ledger with its running balance.
type WalletSummary struct {
	Balance      float64                    `json:"balance"`
	Transactions []models.WalletTransaction `json:"transactions"`
}

// AddWalletTransaction records a credit or debit. Amounts must be
// positive; the type decides the sign. A blank description gets
// "Manual deposit" or "Withdrawal" and the reference is MAN- or WDR-
// followed by 8 hex characters.
func AddWalletTransaction(db *sql.DB, transactionType string, amount float64, description string) (*models.WalletTransaction, error) {
	var prefix, defaultDescription string
	switch transactionType {
	case models.WalletCredit:
		prefix, defaultDescription = "MAN", "Manual deposit"
	case models.WalletDebit:
		prefix, defaultDescription = "WDR", "Withdrawal"
	default:
		return nil, fmt.Errorf("%w wallet transaction type %q", ErrInvalid, transactionType)
	}
	if amount <= 0 {
		return nil, fmt.Errorf("%w wallet amount %.2f", ErrInvalid, amount)
	}

	description = strings.TrimSpace(description)
	if description == "" {
		description = defaultDescription
	}

	tx := &models.WalletTransaction{
		TransactionType: transactionType,
		Amount:          amount,
		Description:     description,
		Reference:       newReference(prefix),
	}

	result, err := db.Exec(`
		INSERT INTO wallet_transactions (transaction_type, amount, description, reference)
		VALUES (?, ?, ?, ?)
	`, tx.TransactionType, tx.Amount, tx.Description, tx.Reference)
	if err != nil {
		return nil, fmt.Errorf("failed to create wallet transaction: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get wallet transaction ID: %w", err)
	}
	tx.ID = int(id)
	tx.CreatedAt = time.Now()

	return tx, nil
}

// GetWallet lists every transaction, newest first. The balance is credits
// minus debits.
func GetWallet(db *sql.DB) (*WalletSummary, error) {
	rows, err := db.Query(`
		SELECT id, transaction_type, amount, description, reference, created_at
		FROM wallet_transactions
		ORDER BY created_at DESC, id DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query wallet transactions: %w", err)
	}
	defer rows.Close()

	summary := &WalletSummary{Transactions: []models.WalletTransaction{}}
	for rows.Next() {
		var tx models.WalletTransaction
		err := rows.Scan(&tx.ID, &tx.TransactionType, &tx.Amount, &tx.Description, &tx.Reference, &tx.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan wallet transaction: %w", err)
		}

		if tx.TransactionType == models.WalletCredit {
			summary.Balance += tx.Amount
		} else {
			summary.Balance -= tx.Amount
		}
		summary.Transactions = append(summary.Transactions, tx)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating wallet transactions: %w", err)
	}

	return summary, nil
}
