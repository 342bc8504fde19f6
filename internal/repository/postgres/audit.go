package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/mzalewski/secadmin-api/internal/model"
	"github.com/mzalewski/secadmin-api/internal/repository"
)

const defaultAuditPageSize = 25

type auditRepository struct {
	db *sqlx.DB
}

func NewAuditRepository(db *sqlx.DB) repository.AuditRepository {
	return &auditRepository{db: db}
}

func (r *auditRepository) Create(ctx context.Context, entry *model.AuditLog) error {
	query := `
		INSERT INTO audit_logs (id, username, action, description, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	entry.ID = uuid.New()
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	if _, err := r.db.ExecContext(ctx, query,
		entry.ID,
		entry.Username,
		entry.Action,
		entry.Description,
		entry.CreatedAt,
	); err != nil {
		return fmt.Errorf("failed to create audit entry: %w", err)
	}
	return nil
}

func (r *auditRepository) List(ctx context.Context, filter *model.AuditLogFilter) ([]*model.AuditLog, int64, error) {
	where := " WHERE 1=1"
	args := []interface{}{}

	if filter.Username != "" {
		where += fmt.Sprintf(" AND username ILIKE $%d", len(args)+1)
		args = append(args, "%"+filter.Username+"%")
	}
	if filter.Action != "" {
		where += fmt.Sprintf(" AND action = $%d", len(args)+1)
		args = append(args, filter.Action)
	}
	if filter.StartDate != nil {
		where += fmt.Sprintf(" AND created_at >= $%d", len(args)+1)
		args = append(args, *filter.StartDate)
	}
	if filter.EndDate != nil {
		// End date is inclusive: filter up to the end of that day.
		where += fmt.Sprintf(" AND created_at < $%d", len(args)+1)
		args = append(args, filter.EndDate.AddDate(0, 0, 1))
	}

	var total int64
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM audit_logs"+where, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to count audit entries: %w", err)
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize < 1 {
		pageSize = defaultAuditPageSize
	}

	query := "SELECT * FROM audit_logs" + where +
		fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	args = append(args, pageSize, (page-1)*pageSize)

	var entries []*model.AuditLog
	if err := r.db.SelectContext(ctx, &entries, query, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to list audit entries: %w", err)
	}

	return entries, total, nil
}

func (r *auditRepository) DistinctActions(ctx context.Context) ([]string, error) {
	var actions []string
	if err := r.db.SelectContext(ctx, &actions, `SELECT DISTINCT action FROM audit_logs ORDER BY action`); err != nil {
		return nil, fmt.Errorf("failed to list audit actions: %w", err)
	}
	return actions, nil
}
