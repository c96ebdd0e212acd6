package store

import "context"

type WebhookStore struct {
	db DB
}

func NewWebhookStore(db DB) *WebhookStore {
	return &WebhookStore{db: db}
}

// RecordIfAbsent makes provider retries of the same event a no-op. Event
// ids are only unique within a provider, so the dedup key is the pair. The
// payment integration owns dedup semantics; the ledger only sees the first
// delivery.
func (s *WebhookStore) RecordIfAbsent(ctx context.Context, tx Execer, eventID, provider string) (bool, error) {
	res, err := tx.ExecContext(ctx, `
		INSERT INTO processed_webhook_events (provider, event_id)
		VALUES ($1, $2)
		ON CONFLICT (provider, event_id) DO NOTHING
	`, provider, eventID)
	if err != nil {
		return false, err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows == 1, nil
}
