package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/username/tradefolio/backend/src/models"
)

type SQLiteImportRepository struct {
	db *sql.DB
}

func NewSQLiteImportRepository(db *sql.DB) *SQLiteImportRepository {
	return &SQLiteImportRepository{db: db}
}

func (r *SQLiteImportRepository) Record(ctx context.Context, file *models.ImportFile) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO import_files (id, user_id, account_id, filename, hash, row_count) VALUES (?, ?, ?, ?, ?, ?)`,
		file.ID, file.UserID, file.AccountID, file.Filename, file.Hash, file.RowCount)
	if err != nil {
		return fmt.Errorf("recording import file: %w", err)
	}
	return nil
}

func (r *SQLiteImportRepository) ListByUser(ctx context.Context, userID int64, limit int) ([]models.ImportFile, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, account_id, filename, hash, row_count FROM import_files
		 WHERE user_id = ? ORDER BY created_at DESC LIMIT ?`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("listing import files: %w", err)
	}
	defer rows.Close()

	var files []models.ImportFile
	for rows.Next() {
		var (
			f                 models.ImportFile
			accountID, hash   sql.NullString
			rowCount          sql.NullInt64
		)
		if err := rows.Scan(&f.ID, &f.UserID, &accountID, &f.Filename, &hash, &rowCount); err != nil {
			return nil, fmt.Errorf("scanning import file: %w", err)
		}
		f.AccountID = accountID.String
		f.Hash = hash.String
		f.RowCount = int(rowCount.Int64)
		files = append(files, f)
	}
	return files, rows.Err()
}
