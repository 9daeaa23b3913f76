package inbox

import (
	"context"

	"github.com/litespace/availability/services/availability-service/internal/storage"
)

type Repository struct{}

func NewRepository() *Repository {
	return &Repository{}
}

// Record marks an event as consumed. It returns false when the event was
// already recorded. Run it in the same transaction as the event's effects.
func (r *Repository) Record(ctx context.Context, q storage.Querier, eventID, eventType string) (bool, error) {
	tag, err := q.Exec(ctx, `
		INSERT INTO inbox_events (event_id, event_type)
		VALUES ($1, $2)
		ON CONFLICT (event_id) DO NOTHING
	`, eventID, eventType)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}
