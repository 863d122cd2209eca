package db

import (
	"context"
	"fmt"
	"time"
)

// MarkNotificationRead records a per-user read receipt. Receipts are
// best-effort echoes from clients; replays are absorbed by the upsert.
func (d *DB) MarkNotificationRead(ctx context.Context, userID int, notificationID string) error {
	query := `
    INSERT INTO notificaciones_leidas (user_id, notification_id, read_at)
    VALUES ($1, $2, $3)
    ON CONFLICT (user_id, notification_id) DO NOTHING`

	_, err := d.Pool.Exec(ctx, query, userID, notificationID, time.Now())
	if err != nil {
		return fmt.Errorf("failed to mark notification %s read for user %d: %w", notificationID, userID, err)
	}
	return nil
}

// ReadNotificationIDs returns the ids of notifications a user has already
// marked read.
func (d *DB) ReadNotificationIDs(ctx context.Context, userID int) ([]string, error) {
	rows, err := d.Pool.Query(ctx,
		`SELECT notification_id FROM notificaciones_leidas WHERE user_id = $1 ORDER BY read_at DESC`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list read notifications for user %d: %w", userID, err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan notification id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read notification ids: %w", err)
	}
	return ids, nil
}
