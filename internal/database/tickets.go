package database

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"cardvault/internal/models"
)

const ticketColumns = `t.id, t.user_id, COALESCE(u.email, ''), t.subject, t.description, t.status, t.priority, t.created_at, t.updated_at`

func scanTicket(row rowScanner) (*models.Ticket, error) {
	ticket := &models.Ticket{}
	var userID sql.NullInt64

	err := row.Scan(
		&ticket.ID,
		&userID,
		&ticket.UserEmail,
		&ticket.Subject,
		&ticket.Description,
		&ticket.Status,
		&ticket.Priority,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if userID.Valid {
		id := int(userID.Int64)
		ticket.UserID = &id
	}

	return ticket, nil
}

// CreateTicket opens a support ticket for userID. An empty priority is
// "normal".
func CreateTicket(db *sql.DB, userID int, subject, description, priority string) (*models.Ticket, error) {
	if priority == "" {
		priority = "normal"
	}
	if !models.IsValidTicketPriority(priority) {
		return nil, fmt.Errorf("%w ticket priority %q", ErrInvalid, priority)
	}

	result, err := db.Exec(`
		INSERT INTO tickets (user_id, subject, description, status, priority)
		VALUES (?, ?, ?, ?, ?)
	`, userID, strings.TrimSpace(subject), strings.TrimSpace(description), models.TicketOpen, priority)
	if err != nil {
		return nil, fmt.Errorf("failed to create ticket: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get ticket ID: %w", err)
	}

	return GetTicket(db, int(id))
}

func queryTickets(db *sql.DB, where string, args ...any) ([]models.Ticket, error) {
	rows, err := db.Query(`
		SELECT `+ticketColumns+`
		FROM tickets t
		LEFT JOIN users u ON t.user_id = u.id
		`+where+`
		ORDER BY t.created_at DESC, t.id DESC
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query tickets: %w", err)
	}
	defer rows.Close()

	tickets := []models.Ticket{}
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ticket: %w", err)
		}
		tickets = append(tickets, *ticket)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tickets: %w", err)
	}

	return tickets, nil
}

// GetTickets lists tickets newest first, optionally filtered by status.
func GetTickets(db *sql.DB, status string) ([]models.Ticket, error) {
	if status == "" {
		return queryTickets(db, "")
	}
	return queryTickets(db, "WHERE t.status = ?", status)
}

func GetUserTickets(db *sql.DB, userID int) ([]models.Ticket, error) {
	return queryTickets(db, "WHERE t.user_id = ?", userID)
}

func GetTicket(db *sql.DB, ticketID int) (*models.Ticket, error) {
	ticket, err := scanTicket(db.QueryRow(`
		SELECT `+ticketColumns+`
		FROM tickets t
		LEFT JOIN users u ON t.user_id = u.id
		WHERE t.id = ?
	`, ticketID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, notFound("ticket")
		}
		return nil, fmt.Errorf("failed to query ticket: %w", err)
	}
	return ticket, nil
}

// UpdateTicket sets the status and, when priority is not empty, the
// priority. Both are checked against the known values.
func UpdateTicket(db *sql.DB, ticketID int, status, priority string) error {
	if !models.IsValidTicketStatus(status) {
		return fmt.Errorf("%w ticket status %q", ErrInvalid, status)
	}
	if priority != "" && !models.IsValidTicketPriority(priority) {
		return fmt.Errorf("%w ticket priority %q", ErrInvalid, priority)
	}

	result, err := db.Exec(`
		UPDATE tickets
		SET status = ?, priority = COALESCE(NULLIF(?, ''), priority), updated_at = ?
		WHERE id = ?
	`, status, priority, time.Now().UTC(), ticketID)
	if err != nil {
		return fmt.Errorf("failed to update ticket: %w", err)
	}

	return requireAffected(result, "ticket")
}

func DeleteTicket(db *sql.DB, ticketID int) error {
	result, err := db.Exec(`DELETE FROM tickets WHERE id = ?`, ticketID)
	if err != nil {
		return fmt.Errorf("failed to delete ticket: %w", err)
	}
	return requireAffected(result, "ticket")
}
