package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Veraticus/spice-capture/internal/common"
	"github.com/Veraticus/spice-capture/internal/model"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const timestampLayout = time.RFC3339Nano

const selectColumns = `id, owner_id, occurred_on, type, amount, category, description,
	input_method, source_analysis, attachment_uri, created_at, updated_at`

// Filter narrows List. Zero values match everything.
type Filter struct {
	From     *time.Time
	To       *time.Time
	Type     model.TransactionType
	Category string
	Limit    int
}

// Create inserts a new record and returns it with its id and timestamps.
func (s *SQLiteStorage) Create(ctx context.Context, record model.TransactionRecord) (model.StoredTransaction, error) {
	if err := validateContext(ctx); err != nil {
		return model.StoredTransaction{}, err
	}
	if err := validateRecord(record); err != nil {
		return model.StoredTransaction{}, err
	}

	analysisJSON, err := encodeAnalysis(record.SourceAnalysis)
	if err != nil {
		return model.StoredTransaction{}, err
	}

	now := s.now().UTC()
	stored := model.StoredTransaction{
		ID:                uuid.NewString(),
		CreatedAt:         now,
		UpdatedAt:         now,
		TransactionRecord: record,
	}
	stored.OccurredOn = model.Today(record.OccurredOn)
	stored.Category = strings.TrimSpace(record.Category)
	stored.Description = strings.TrimSpace(record.Description)

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO transactions (
			id, owner_id, occurred_on, type, amount, category, description,
			input_method, source_analysis, attachment_uri, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		stored.ID,
		stored.OwnerID,
		stored.Date(),
		string(stored.Type),
		stored.Amount.String(),
		stored.Category,
		stored.Description,
		string(stored.InputMethod),
		analysisJSON,
		stored.AttachmentURI,
		now.Format(timestampLayout),
		now.Format(timestampLayout),
	)
	if err != nil {
		return model.StoredTransaction{}, fmt.Errorf("failed to insert transaction: %w", err)
	}

	return stored, nil
}

// Get returns one record or common.ErrNotFound.
func (s *SQLiteStorage) Get(ctx context.Context, id string) (model.StoredTransaction, error) {
	if err := validateContext(ctx); err != nil {
		return model.StoredTransaction{}, err
	}
	if err := validateString(id, "id"); err != nil {
		return model.StoredTransaction{}, err
	}

	row := s.db.QueryRowContext(ctx, `SELECT `+selectColumns+` FROM transactions WHERE id = ?`, id)
	tx, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.StoredTransaction{}, fmt.Errorf("transaction %s: %w", id, common.ErrNotFound)
	}
	if err != nil {
		return model.StoredTransaction{}, err
	}
	return tx, nil
}

// List returns the owner's records, newest first.
func (s *SQLiteStorage) List(ctx context.Context, ownerID string, filter Filter) ([]model.StoredTransaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(ownerID, "ownerID"); err != nil {
		return nil, err
	}
	if err := validateFilter(filter); err != nil {
		return nil, err
	}

	query := strings.Builder{}
	query.WriteString(`SELECT ` + selectColumns + ` FROM transactions WHERE owner_id = ?`)
	args := []any{ownerID}

	if filter.From != nil {
		query.WriteString(` AND occurred_on >= ?`)
		args = append(args, filter.From.Format(model.DateLayout))
	}
	if filter.To != nil {
		query.WriteString(` AND occurred_on <= ?`)
		args = append(args, filter.To.Format(model.DateLayout))
	}
	if filter.Type != model.TypeUnset {
		query.WriteString(` AND type = ?`)
		args = append(args, string(filter.Type))
	}
	if category := strings.TrimSpace(filter.Category); category != "" {
		query.WriteString(` AND category = ? COLLATE NOCASE`)
		args = append(args, category)
	}
	query.WriteString(` ORDER BY occurred_on DESC, created_at DESC`)
	if filter.Limit > 0 {
		query.WriteString(` LIMIT ?`)
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var result []model.StoredTransaction
	for rows.Next() {
		tx, scanErr := scanTransaction(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		result = append(result, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate transactions: %w", err)
	}
	return result, nil
}

// Update replaces the editable fields of an existing record.
func (s *SQLiteStorage) Update(ctx context.Context, tx model.StoredTransaction) (model.StoredTransaction, error) {
	if err := validateContext(ctx); err != nil {
		return model.StoredTransaction{}, err
	}
	if err := validateString(tx.ID, "id"); err != nil {
		return model.StoredTransaction{}, err
	}
	if err := validateRecord(tx.TransactionRecord); err != nil {
		return model.StoredTransaction{}, err
	}

	now := s.now().UTC()
	res, err := s.db.ExecContext(ctx, `
		UPDATE transactions
		SET occurred_on = ?, type = ?, amount = ?, category = ?, description = ?, updated_at = ?
		WHERE id = ? AND owner_id = ?`,
		model.Today(tx.OccurredOn).Format(model.DateLayout),
		string(tx.Type),
		tx.Amount.String(),
		strings.TrimSpace(tx.Category),
		strings.TrimSpace(tx.Description),
		now.Format(timestampLayout),
		tx.ID,
		tx.OwnerID,
	)
	if err != nil {
		return model.StoredTransaction{}, fmt.Errorf("failed to update transaction: %w", err)
	}
	if err := expectOneRow(res, tx.ID); err != nil {
		return model.StoredTransaction{}, err
	}
	return s.Get(ctx, tx.ID)
}

// Delete removes a record.
func (s *SQLiteStorage) Delete(ctx context.Context, id string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(id, "id"); err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete transaction: %w", err)
	}
	return expectOneRow(res, id)
}

// Totals sums the owner's income and expenses in the optional date range.
func (s *SQLiteStorage) Totals(ctx context.Context, ownerID string, filter Filter) (income, expense decimal.Decimal, err error) {
	filter.Type = model.TypeUnset
	filter.Limit = 0
	records, err := s.List(ctx, ownerID, filter)
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	for _, r := range records {
		if r.Type == model.TypeIncome {
			income = income.Add(r.Amount)
		} else {
			expense = expense.Add(r.Amount)
		}
	}
	return income, expense, nil
}

func expectOneRow(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("transaction %s: %w", id, common.ErrNotFound)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (model.StoredTransaction, error) {
	var (
		tx                   model.StoredTransaction
		occurredOn, amount   string
		typ, inputMethod     string
		analysisJSON         sql.NullString
		createdAt, updatedAt string
	)
	err := row.Scan(
		&tx.ID,
		&tx.OwnerID,
		&occurredOn,
		&typ,
		&amount,
		&tx.Category,
		&tx.Description,
		&inputMethod,
		&analysisJSON,
		&tx.AttachmentURI,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return tx, err
		}
		return tx, fmt.Errorf("failed to scan transaction: %w", err)
	}

	tx.Type = model.TransactionType(typ)
	tx.InputMethod = model.InputMode(inputMethod)

	if tx.OccurredOn, err = time.Parse(model.DateLayout, occurredOn); err != nil {
		return tx, fmt.Errorf("transaction %s has invalid date %q: %w", tx.ID, occurredOn, err)
	}
	if tx.Amount, err = decimal.NewFromString(amount); err != nil {
		return tx, fmt.Errorf("transaction %s has invalid amount %q: %w", tx.ID, amount, err)
	}
	if tx.CreatedAt, err = time.Parse(timestampLayout, createdAt); err != nil {
		return tx, fmt.Errorf("transaction %s has invalid created_at: %w", tx.ID, err)
	}
	if tx.UpdatedAt, err = time.Parse(timestampLayout, updatedAt); err != nil {
		return tx, fmt.Errorf("transaction %s has invalid updated_at: %w", tx.ID, err)
	}
	if analysisJSON.Valid && analysisJSON.String != "" {
		var snapshot model.AnalysisSnapshot
		if err := json.Unmarshal([]byte(analysisJSON.String), &snapshot); err != nil {
			return tx, fmt.Errorf("transaction %s has invalid source analysis: %w", tx.ID, err)
		}
		tx.SourceAnalysis = &snapshot
	}
	return tx, nil
}

func encodeAnalysis(snapshot *model.AnalysisSnapshot) (sql.NullString, error) {
	if snapshot == nil {
		return sql.NullString{}, nil
	}
	data, err := json.Marshal(snapshot)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("failed to encode source analysis: %w", err)
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}
