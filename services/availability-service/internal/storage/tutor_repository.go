package storage

import (
	"context"

	"github.com/litespace/availability/services/availability-service/internal/model"
)

type TutorRepository struct{}

func NewTutorRepository() *TutorRepository {
	return &TutorRepository{}
}

func (r *TutorRepository) Get(ctx context.Context, q Querier, userID string) (model.Tutor, error) {
	t := model.Tutor{UserID: userID}
	err := q.QueryRow(ctx, `
		SELECT notice_minutes
		FROM tutors
		WHERE user_id = $1
	`, userID).Scan(&t.Notice)
	return t, err
}

func (r *TutorRepository) SetNotice(ctx context.Context, q Querier, userID string, notice int) error {
	_, err := q.Exec(ctx, `
		INSERT INTO tutors (user_id, notice_minutes)
		VALUES ($1, $2)
		ON CONFLICT (user_id) DO UPDATE
		SET notice_minutes = EXCLUDED.notice_minutes, updated_at = now()
	`, userID, notice)
	return err
}
