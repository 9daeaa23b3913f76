package storage

import (
	"context"
	"time"

	"github.com/litespace/availability/services/availability-service/internal/model"
)

type BookedSlotRepository struct{}

func NewBookedSlotRepository() *BookedSlotRepository {
	return &BookedSlotRepository{}
}

// ListActive returns the user's non-cancelled slots intersecting [start, end).
func (r *BookedSlotRepository) ListActive(ctx context.Context, q Querier, userID string, start, end time.Time) ([]model.BookedSlot, error) {
	rows, err := q.Query(ctx, `
		SELECT lesson_id, rule_id, user_id, start_at, end_at, cancelled_at
		FROM booked_slots
		WHERE user_id = $1
			AND cancelled_at IS NULL
			AND start_at < $3
			AND end_at > $2
		ORDER BY start_at ASC
	`, userID, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var slots []model.BookedSlot
	for rows.Next() {
		var s model.BookedSlot
		if err := rows.Scan(&s.LessonID, &s.RuleID, &s.UserID, &s.Start, &s.End, &s.CancelledAt); err != nil {
			return nil, err
		}
		slots = append(slots, s)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return slots, nil
}

func (r *BookedSlotRepository) CountActiveByRule(ctx context.Context, q Querier, ruleID string) (int, error) {
	var n int
	err := q.QueryRow(ctx, `
		SELECT count(*)
		FROM booked_slots
		WHERE rule_id = $1 AND cancelled_at IS NULL
	`, ruleID).Scan(&n)
	return n, err
}

// Upsert records a booked lesson. Replaying the same lesson overwrites its
// times but never clears a cancellation.
func (r *BookedSlotRepository) Upsert(ctx context.Context, q Querier, s model.BookedSlot) error {
	_, err := q.Exec(ctx, `
		INSERT INTO booked_slots (lesson_id, rule_id, user_id, start_at, end_at, cancelled_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (lesson_id) DO UPDATE
		SET rule_id = EXCLUDED.rule_id,
			user_id = EXCLUDED.user_id,
			start_at = EXCLUDED.start_at,
			end_at = EXCLUDED.end_at,
			cancelled_at = COALESCE(booked_slots.cancelled_at, EXCLUDED.cancelled_at)
	`, s.LessonID, s.RuleID, s.UserID, s.Start, s.End, s.CancelledAt)
	return err
}

// Cancel marks the lesson cancelled and returns its owner.
func (r *BookedSlotRepository) Cancel(ctx context.Context, q Querier, lessonID string, at time.Time) (string, error) {
	var userID string
	err := q.QueryRow(ctx, `
		UPDATE booked_slots
		SET cancelled_at = COALESCE(cancelled_at, $2)
		WHERE lesson_id = $1
		RETURNING user_id
	`, lessonID, at).Scan(&userID)
	return userID, err
}

// RememberCancellation keeps a cancellation that arrived before its booking.
// The earliest cancellation wins.
func (r *BookedSlotRepository) RememberCancellation(ctx context.Context, q Querier, lessonID string, at time.Time) error {
	_, err := q.Exec(ctx, `
		INSERT INTO lesson_cancellations (lesson_id, cancelled_at)
		VALUES ($1, $2)
		ON CONFLICT (lesson_id) DO UPDATE
		SET cancelled_at = LEAST(lesson_cancellations.cancelled_at, EXCLUDED.cancelled_at)
	`, lessonID, at)
	return err
}

// PendingCancellation returns the remembered cancellation of a lesson, nil
// when there is none.
func (r *BookedSlotRepository) PendingCancellation(ctx context.Context, q Querier, lessonID string) (*time.Time, error) {
	var at time.Time
	err := q.QueryRow(ctx, `
		SELECT cancelled_at FROM lesson_cancellations WHERE lesson_id = $1
	`, lessonID).Scan(&at)
	if IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &at, nil
}
