// Package reports persists a history of issue exports so the dashboard
// can show when each account's data was last exported and how many
// rows it contained.
package reports

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	stderrors "sellerqi-insights/internal/common/errors"
	"sellerqi-insights/internal/common/logger"
	"sellerqi-insights/internal/models"
)

// Report is one recorded export run.
type Report struct {
	ID        string          `json:"id"`
	Account   string          `json:"account"`
	Category  models.Category `json:"category"`
	Format    string          `json:"format"`
	RowCount  int             `json:"rowCount"`
	CreatedAt time.Time       `json:"createdAt"`
}

// Store reads and writes the export_reports table.
type Store struct {
	db     *sql.DB
	logger logger.Logger
	now    func() time.Time
}

// NewStore builds a Store over an existing database handle.
func NewStore(db *sql.DB, log logger.Logger) *Store {
	return &Store{
		db:     db,
		logger: log.WithFields(map[string]interface{}{"component": "reports"}),
		now:    time.Now,
	}
}

const insertReportSQL = `
	INSERT INTO export_reports (id, account, category, format, row_count, created_at)
	VALUES ($1, $2, $3, $4, $5, $6)`

// Record persists one export run and returns it with its assigned id.
func (s *Store) Record(ctx context.Context, account string, category models.Category, format string, rowCount int) (*Report, error) {
	report := &Report{
		ID:        uuid.NewString(),
		Account:   account,
		Category:  category,
		Format:    format,
		RowCount:  rowCount,
		CreatedAt: s.now().UTC(),
	}

	_, err := s.db.ExecContext(ctx, insertReportSQL,
		report.ID, report.Account, string(report.Category), report.Format, report.RowCount, report.CreatedAt)
	if err != nil {
		return nil, stderrors.NewReportStoreFailedError(err)
	}

	s.logger.Info("export recorded", map[string]interface{}{
		"account":  report.Account,
		"category": string(report.Category),
		"format":   report.Format,
		"rowCount": report.RowCount,
	})
	return report, nil
}

const listReportsSQL = `
	SELECT id, account, category, format, row_count, created_at
	FROM export_reports
	WHERE account = $1
	ORDER BY created_at DESC
	LIMIT $2`

// List returns the most recent export runs of one account.
func (s *Store) List(ctx context.Context, account string, limit int) ([]Report, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx, listReportsSQL, account, limit)
	if err != nil {
		return nil, stderrors.NewReportStoreFailedError(err)
	}
	defer rows.Close()

	var reports []Report
	for rows.Next() {
		var r Report
		var category string
		if err := rows.Scan(&r.ID, &r.Account, &category, &r.Format, &r.RowCount, &r.CreatedAt); err != nil {
			return nil, stderrors.NewReportStoreFailedError(err)
		}
		r.Category = models.Category(category)
		reports = append(reports, r)
	}
	if err := rows.Err(); err != nil {
		return nil, stderrors.NewReportStoreFailedError(err)
	}
	return reports, nil
}

const lastReportSQL = `
	SELECT id, account, category, format, row_count, created_at
	FROM export_reports
	WHERE account = $1 AND category = $2
	ORDER BY created_at DESC
	LIMIT 1`

// Last returns the most recent export of one account+category, or nil
// when the account has never exported that category.
func (s *Store) Last(ctx context.Context, account string, category models.Category) (*Report, error) {
	var r Report
	var cat string
	err := s.db.QueryRowContext(ctx, lastReportSQL, account, string(category)).
		Scan(&r.ID, &r.Account, &cat, &r.Format, &r.RowCount, &r.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, stderrors.NewReportStoreFailedError(err)
	}
	r.Category = models.Category(cat)
	return &r, nil
}
