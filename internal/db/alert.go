package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/Fedecaff/mapa-emergencias-sub000/internal/models"
)

// CreateAlert inserts a new alert record. A fresh UUID is assigned when the
// caller did not provide one.
func (d *DB) CreateAlert(ctx context.Context, alert *models.Alert) error {
	if alert.ID == "" {
		alert.ID = uuid.New().String()
	}
	now := time.Now()
	if alert.CreatedAt.IsZero() {
		alert.CreatedAt = now
	}
	alert.UpdatedAt = now
	if alert.Status == "" {
		alert.Status = models.StatusActive
	}

	query := `
    INSERT INTO alertas (
        id, tipo, prioridad, titulo, descripcion, direccion,
        latitud, longitud, estado, creador_id, created_at, updated_at
    ) VALUES (
        $1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12
    )`

	_, err := d.Pool.Exec(ctx, query,
		alert.ID,
		alert.Type,
		alert.Priority,
		alert.Title,
		alert.Description,
		alert.Address,
		alert.Latitude,
		alert.Longitude,
		alert.Status,
		alert.CreatorID,
		alert.CreatedAt,
		alert.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert alert: %w", err)
	}
	return nil
}

const alertColumns = `
	id, tipo, prioridad, titulo, descripcion, direccion,
	latitud, longitud, estado, creador_id, created_at, updated_at`

func scanAlert(row pgx.Row) (models.Alert, error) {
	var a models.Alert
	err := row.Scan(
		&a.ID,
		&a.Type,
		&a.Priority,
		&a.Title,
		&a.Description,
		&a.Address,
		&a.Latitude,
		&a.Longitude,
		&a.Status,
		&a.CreatorID,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	return a, err
}

// GetAlertByID fetches a single alert.
func (d *DB) GetAlertByID(ctx context.Context, id string) (models.Alert, error) {
	query := `SELECT` + alertColumns + ` FROM alertas WHERE id = $1`
	a, err := scanAlert(d.Pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Alert{}, ErrAlertNotFound
	}
	if err != nil {
		return models.Alert{}, fmt.Errorf("failed to get alert %s: %w", id, err)
	}
	return a, nil
}

// ListAlerts returns every alert regardless of status, highest priority
// first.
func (d *DB) ListAlerts(ctx context.Context) ([]models.Alert, error) {
	return d.listAlerts(ctx, `SELECT`+alertColumns+` FROM alertas ORDER BY created_at DESC`)
}

// ListActiveAlerts returns only the broadcast-visible alerts, used for the
// snapshot clients reconcile against.
func (d *DB) ListActiveAlerts(ctx context.Context) ([]models.Alert, error) {
	return d.listAlerts(ctx,
		`SELECT`+alertColumns+` FROM alertas WHERE estado = $1 ORDER BY created_at DESC`,
		models.StatusActive)
}

func (d *DB) listAlerts(ctx context.Context, query string, args ...interface{}) ([]models.Alert, error) {
	rows, err := d.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list alerts: %w", err)
	}
	defer rows.Close()

	var list []models.Alert
	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan alert: %w", err)
		}
		list = append(list, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read alerts: %w", err)
	}
	models.SortByPriority(list)
	return list, nil
}

// UpdateAlertStatus transitions an alert's lifecycle status.
func (d *DB) UpdateAlertStatus(ctx context.Context, id, status string) error {
	tag, err := d.Pool.Exec(ctx,
		`UPDATE alertas SET estado = $1, updated_at = $2 WHERE id = $3`,
		status, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to update alert %s status: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrAlertNotFound
	}
	return nil
}

// DeleteAlert hard-deletes an alert.
func (d *DB) DeleteAlert(ctx context.Context, id string) error {
	tag, err := d.Pool.Exec(ctx, `DELETE FROM alertas WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete alert %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrAlertNotFound
	}
	return nil
}
