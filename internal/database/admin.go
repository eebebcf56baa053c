package database

import (
	"database/sql"
	"fmt"
	"time"

	"cardvault/internal/models"
)

type UserWithStats struct {
	ID          int       `json:"id"`
	Email       string    `json:"email"`
	Name        string    `json:"name"`
	Role        string    `json:"role"`
	CreatedAt   time.Time `json:"created_at"`
	OrderCount  int       `json:"order_count"`
	BinderCount int       `json:"binder_count"`
}

func GetAllUsersWithStats(db *sql.DB) ([]UserWithStats, error) {
	query := `
		SELECT
			u.id,
			u.email,
			u.name,
			u.role,
			u.created_at,
			(SELECT COUNT(*) FROM orders o WHERE o.user_id = u.id),
			(SELECT COUNT(*) FROM binders b WHERE b.user_id = u.id)
		FROM users u
		ORDER BY u.created_at ASC, u.id ASC
	`

	rows, err := db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query users with stats: %w", err)
	}
	defer rows.Close()

	users := []UserWithStats{}
	for rows.Next() {
		var user UserWithStats
		err := rows.Scan(
			&user.ID,
			&user.Email,
			&user.Name,
			&user.Role,
			&user.CreatedAt,
			&user.OrderCount,
			&user.BinderCount,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user with stats: %w", err)
		}
		users = append(users, user)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating users with stats: %w", err)
	}

	return users, nil
}

// ToggleUserAdmin flips a user between customer and admin and returns the
// new role.
func ToggleUserAdmin(db *sql.DB, userID int) (string, error) {
	user, err := GetUserByID(db, userID)
	if err != nil {
		return "", err
	}

	role := models.RoleAdmin
	if user.IsAdmin() {
		role = models.RoleCustomer
	}

	if err := SetUserRole(db, userID, role); err != nil {
		return "", err
	}

	if role == models.RoleCustomer {
		// A demoted admin keeps no live session with admin rights.
		if _, err := db.Exec("DELETE FROM sessions WHERE user_id = ?", userID); err != nil {
			return "", fmt.Errorf("failed to delete user sessions: %w", err)
		}
	}

	return role, nil
}
