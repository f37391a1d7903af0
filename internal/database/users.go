package database

import (
	"database/sql"
	"fmt"
)

// SetUserEmail saves the notification email for a chat.
func SetUserEmail(chatID int64, email string) error {
	query := `INSERT OR REPLACE INTO users (chat_id, email) VALUES (?, ?);`
	_, err := DB.Exec(query, chatID, email)
	if err != nil {
		return fmt.Errorf("failed to save user email: %w", err)
	}
	return nil
}

// GetUserEmail returns the saved email for a chat, or "" if none is set.
func GetUserEmail(chatID int64) (string, error) {
	var email string
	query := `SELECT email FROM users WHERE chat_id = ?;`
	err := DB.QueryRow(query, chatID).Scan(&email)
	if err == sql.ErrNoRows {
		return "", nil
	} else if err != nil {
		return "", fmt.Errorf("failed to get user email: %w", err)
	}
	return email, nil
}
