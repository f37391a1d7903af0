package database

import "deriv-alert-bot/internal/types"

// AlertStore adapts the alerts table to the registry's persistence contract.
type AlertStore struct{}

func (AlertStore) UpsertAlert(alert types.Alert) error {
	return UpsertAlert(alert)
}

func (AlertStore) DeleteAlert(chatID int64, instrument string) error {
	return DeleteAlert(chatID, instrument)
}
