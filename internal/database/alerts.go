package database

import (
	"fmt"
	"time"

	"deriv-alert-bot/internal/types"

	_ "modernc.org/sqlite"
)

// UpsertAlert saves an alert, replacing any existing alert for the same
// (chat, instrument) pair.
func UpsertAlert(alert types.Alert) error {
	query := `
	INSERT OR REPLACE INTO alerts (chat_id, instrument, target, message, email, created_at)
	VALUES (?, ?, ?, ?, ?, ?);`

	_, err := DB.Exec(query, alert.ChatID, alert.Instrument, alert.Target, alert.Message, alert.Email, alert.CreatedAt.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to upsert alert: %w", err)
	}
	return nil
}

// DeleteAlert removes an alert. Deleting an absent alert is not an error.
func DeleteAlert(chatID int64, instrument string) error {
	query := `DELETE FROM alerts WHERE chat_id = ? AND instrument = ?;`
	_, err := DB.Exec(query, chatID, instrument)
	if err != nil {
		return fmt.Errorf("failed to delete alert: %w", err)
	}
	return nil
}

// GetAllAlerts fetches every stored alert, used to rehydrate the registry
// before the feed starts.
func GetAllAlerts() ([]types.Alert, error) {
	query := `SELECT chat_id, instrument, target, message, email, created_at FROM alerts;`

	rows, err := DB.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query alerts: %w", err)
	}
	defer rows.Close()

	var alerts []types.Alert
	for rows.Next() {
		var alert types.Alert
		var createdAt string
		if err := rows.Scan(&alert.ChatID, &alert.Instrument, &alert.Target, &alert.Message, &alert.Email, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		alert.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		alerts = append(alerts, alert)
	}

	return alerts, rows.Err()
}

// GetAlertsByChatID fetches all alerts for a specific chat.
func GetAlertsByChatID(chatID int64) ([]types.Alert, error) {
	query := `SELECT chat_id, instrument, target, message, email, created_at FROM alerts WHERE chat_id = ?;`

	rows, err := DB.Query(query, chatID)
	if err != nil {
		return nil, fmt.Errorf("failed to query alerts for chat ID %d: %w", chatID, err)
	}
	defer rows.Close()

	var alerts []types.Alert
	for rows.Next() {
		var alert types.Alert
		var createdAt string
		if err := rows.Scan(&alert.ChatID, &alert.Instrument, &alert.Target, &alert.Message, &alert.Email, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		alert.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		alerts = append(alerts, alert)
	}

	return alerts, rows.Err()
}
