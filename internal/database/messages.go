package database

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"cardvault/internal/models"
)

// CreateMessage stores a contact message from userID.
func CreateMessage(db *sql.DB, userID int, subject, content string) (*models.Message, error) {
	message := &models.Message{
		UserID:  &userID,
		Subject: strings.TrimSpace(subject),
		Content: strings.TrimSpace(content),
	}

	result, err := db.Exec(`INSERT INTO messages (user_id, subject, content) VALUES (?, ?, ?)`,
		userID, message.Subject, message.Content)
	if err != nil {
		return nil, fmt.Errorf("failed to create message: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get message ID: %w", err)
	}
	message.ID = int(id)
	message.CreatedAt = time.Now()

	return message, nil
}

// GetMessages lists messages newest first, with the sender's email when
// the account still exists.
func GetMessages(db *sql.DB) ([]models.Message, error) {
	rows, err := db.Query(`
		SELECT m.id, m.user_id, COALESCE(u.email, ''), m.subject, m.content, m.is_read, m.created_at
		FROM messages m
		LEFT JOIN users u ON m.user_id = u.id
		ORDER BY m.created_at DESC, m.id DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()

	messages := []models.Message{}
	for rows.Next() {
		var message models.Message
		var userID sql.NullInt64
		err := rows.Scan(
			&message.ID,
			&userID,
			&message.UserEmail,
			&message.Subject,
			&message.Content,
			&message.IsRead,
			&message.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		if userID.Valid {
			id := int(userID.Int64)
			message.UserID = &id
		}
		messages = append(messages, message)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating messages: %w", err)
	}

	return messages, nil
}

func CountUnreadMessages(db *sql.DB) (int, error) {
	var count int
	if err := db.QueryRow(`SELECT COUNT(*) FROM messages WHERE is_read = FALSE`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count unread messages: %w", err)
	}
	return count, nil
}

func MarkMessageRead(db *sql.DB, messageID int) error {
	result, err := db.Exec(`UPDATE messages SET is_read = TRUE WHERE id = ?`, messageID)
	if err != nil {
		return fmt.Errorf("failed to mark message read: %w", err)
	}
	return requireAffected(result, "message")
}

func DeleteMessage(db *sql.DB, messageID int) error {
	result, err := db.Exec(`DELETE FROM messages WHERE id = ?`, messageID)
	if err != nil {
		return fmt.Errorf("failed to delete message: %w", err)
	}
	return requireAffected(result, "message")
}
