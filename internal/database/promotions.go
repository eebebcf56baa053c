package database

import (
	"database/sql"
	"fmt"
	"time"

	"cardvault/internal/models"
)

const promotionColumns = `id, name, description, discount_percentage, category_id, is_active, starts_at, ends_at, created_at`

func scanPromotion(row rowScanner) (*models.Promotion, error) {
	promotion := &models.Promotion{}
	var categoryID sql.NullInt64
	var startsAt, endsAt sql.NullTime

	err := row.Scan(
		&promotion.ID,
		&promotion.Name,
		&promotion.Description,
		&promotion.DiscountPercentage,
		&categoryID,
		&promotion.IsActive,
		&startsAt,
		&endsAt,
		&promotion.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if categoryID.Valid {
		id := int(categoryID.Int64)
		promotion.CategoryID = &id
	}
	if startsAt.Valid {
		promotion.StartsAt = &startsAt.Time
	}
	if endsAt.Valid {
		promotion.EndsAt = &endsAt.Time
	}

	return promotion, nil
}

func CreatePromotion(db *sql.DB, promotion *models.Promotion) error {
	query := `
		INSERT INTO promotions (name, description, discount_percentage, category_id, is_active, starts_at, ends_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	result, err := db.Exec(query, promotion.Name, promotion.Description, promotion.DiscountPercentage,
		promotion.CategoryID, promotion.IsActive, promotion.StartsAt, promotion.EndsAt)
	if err != nil {
		return fmt.Errorf("failed to create promotion: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get promotion ID: %w", err)
	}

	promotion.ID = int(id)
	promotion.CreatedAt = time.Now()

	return nil
}

func GetPromotions(db *sql.DB) ([]models.Promotion, error) {
	rows, err := db.Query(`SELECT ` + promotionColumns + ` FROM promotions ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query promotions: %w", err)
	}
	defer rows.Close()

	promotions := []models.Promotion{}
	for rows.Next() {
		promotion, err := scanPromotion(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan promotion: %w", err)
		}
		promotions = append(promotions, *promotion)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating promotions: %w", err)
	}

	return promotions, nil
}

func GetPromotion(db *sql.DB, promotionID int) (*models.Promotion, error) {
	promotion, err := scanPromotion(db.QueryRow(`SELECT `+promotionColumns+` FROM promotions WHERE id = ?`, promotionID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, notFound("promotion")
		}
		return nil, fmt.Errorf("failed to query promotion: %w", err)
	}
	return promotion, nil
}

func UpdatePromotion(db *sql.DB, promotion *models.Promotion) error {
	query := `
		UPDATE promotions
		SET name = ?, description = ?, discount_percentage = ?, category_id = ?, is_active = ?, starts_at = ?, ends_at = ?
		WHERE id = ?
	`

	result, err := db.Exec(query, promotion.Name, promotion.Description, promotion.DiscountPercentage,
		promotion.CategoryID, promotion.IsActive, promotion.StartsAt, promotion.EndsAt, promotion.ID)
	if err != nil {
		return fmt.Errorf("failed to update promotion: %w", err)
	}

	return requireAffected(result, "promotion")
}

func TogglePromotion(db *sql.DB, promotionID int) (bool, error) {
	result, err := db.Exec(`UPDATE promotions SET is_active = NOT is_active WHERE id = ?`, promotionID)
	if err != nil {
		return false, fmt.Errorf("failed to toggle promotion: %w", err)
	}
	if err := requireAffected(result, "promotion"); err != nil {
		return false, err
	}

	var active bool
	if err := db.QueryRow(`SELECT is_active FROM promotions WHERE id = ?`, promotionID).Scan(&active); err != nil {
		return false, fmt.Errorf("failed to read promotion: %w", err)
	}
	return active, nil
}

func DeletePromotion(db *sql.DB, promotionID int) error {
	result, err := db.Exec(`DELETE FROM promotions WHERE id = ?`, promotionID)
	if err != nil {
		return fmt.Errorf("failed to delete promotion: %w", err)
	}
	return requireAffected(result, "promotion")
}
