package storage

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/litespace/availability/services/availability-service/internal/model"
)

type RuleRepository struct{}

func NewRuleRepository() *RuleRepository {
	return &RuleRepository{}
}

const ruleColumns = `id, user_id, title, frequency, start_at, end_at, time_of_day, duration_minutes,
	weekdays, monthday, activated, deleted, created_at, updated_at`

func scanRule(row pgx.Row) (model.Rule, error) {
	var r model.Rule
	var weekdays []int32
	var monthday *int32
	err := row.Scan(
		&r.ID,
		&r.UserID,
		&r.Title,
		&r.Frequency,
		&r.Start,
		&r.End,
		&r.Time,
		&r.Duration,
		&weekdays,
		&monthday,
		&r.Activated,
		&r.Deleted,
		&r.CreatedAt,
		&r.UpdatedAt,
	)
	if err != nil {
		return model.Rule{}, err
	}
	for _, d := range weekdays {
		r.Weekdays = append(r.Weekdays, int(d))
	}
	if monthday != nil {
		md := int(*monthday)
		r.Monthday = &md
	}
	return r, nil
}

// ListByUser returns the user's non-deleted rules ordered by start.
func (r *RuleRepository) ListByUser(ctx context.Context, q Querier, userID string) ([]model.Rule, error) {
	rows, err := q.Query(ctx, `
		SELECT `+ruleColumns+`
		FROM rules
		WHERE user_id = $1 AND NOT deleted
		ORDER BY start_at ASC, id ASC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rules []model.Rule
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return rules, nil
}

func (r *RuleRepository) Get(ctx context.Context, q Querier, id string) (model.Rule, error) {
	return scanRule(q.QueryRow(ctx, `
		SELECT `+ruleColumns+`
		FROM rules
		WHERE id = $1
	`, id))
}

func (r *RuleRepository) Create(ctx context.Context, tx pgx.Tx, rule model.Rule) (model.Rule, error) {
	return scanRule(tx.QueryRow(ctx, `
		INSERT INTO rules
			(id, user_id, title, frequency, start_at, end_at, time_of_day, duration_minutes, weekdays, monthday, activated)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING `+ruleColumns,
		rule.ID, rule.UserID, rule.Title, rule.Frequency, rule.Start, rule.End, rule.Time, rule.Duration,
		int32s(rule.Weekdays), int32p(rule.Monthday), rule.Activated,
	))
}

func (r *RuleRepository) Update(ctx context.Context, tx pgx.Tx, rule model.Rule) (model.Rule, error) {
	return scanRule(tx.QueryRow(ctx, `
		UPDATE rules
		SET title = $2,
			frequency = $3,
			start_at = $4,
			end_at = $5,
			time_of_day = $6,
			duration_minutes = $7,
			weekdays = $8,
			monthday = $9,
			activated = $10,
			updated_at = now()
		WHERE id = $1 AND NOT deleted
		RETURNING `+ruleColumns,
		rule.ID, rule.Title, rule.Frequency, rule.Start, rule.End, rule.Time, rule.Duration,
		int32s(rule.Weekdays), int32p(rule.Monthday), rule.Activated,
	))
}

// SoftDelete keeps the row so booked lessons can still reference it.
func (r *RuleRepository) SoftDelete(ctx context.Context, tx pgx.Tx, id string) error {
	tag, err := tx.Exec(ctx, `
		UPDATE rules
		SET deleted = true, activated = false, updated_at = now()
		WHERE id = $1 AND NOT deleted
	`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *RuleRepository) Delete(ctx context.Context, tx pgx.Tx, id string) error {
	tag, err := tx.Exec(ctx, `DELETE FROM rules WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func int32s(in []int) []int32 {
	out := make([]int32, len(in))
	for i, v := range in {
		out[i] = int32(v)
	}
	return out
}

func int32p(in *int) *int32 {
	if in == nil {
		return nil
	}
	v := int32(*in)
	return &v
}
