package database

import (
	"database/sql"
	"fmt"
	"time"

	"cardvault/internal/models"
)

const boxColumns = `id, name, description, price, quantity, image_url, category_id, is_active, created_at`

func scanBox(row rowScanner) (*models.Box, error) {
	box := &models.Box{}
	var categoryID sql.NullInt64

	err := row.Scan(
		&box.ID,
		&box.Name,
		&box.Description,
		&box.Price,
		&box.Quantity,
		&box.ImageURL,
		&categoryID,
		&box.IsActive,
		&box.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if categoryID.Valid {
		id := int(categoryID.Int64)
		box.CategoryID = &id
	}

	return box, nil
}

func CreateBox(db *sql.DB, box *models.Box) error {
	result, err := db.Exec(`
		INSERT INTO boxes (name, description, price, quantity, image_url, category_id, is_active)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, box.Name, box.Description, box.Price, box.Quantity, box.ImageURL, box.CategoryID, box.IsActive)
	if err != nil {
		return fmt.Errorf("failed to create box: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get box ID: %w", err)
	}

	box.ID = int(id)
	box.CreatedAt = time.Now()

	return nil
}

func GetBoxes(db *sql.DB) ([]models.Box, error) {
	rows, err := db.Query(`SELECT ` + boxColumns + ` FROM boxes ORDER BY name, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query boxes: %w", err)
	}
	defer rows.Close()

	boxes := []models.Box{}
	for rows.Next() {
		box, err := scanBox(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan box: %w", err)
		}
		boxes = append(boxes, *box)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating boxes: %w", err)
	}

	return boxes, nil
}

func GetBox(db *sql.DB, boxID int) (*models.Box, error) {
	box, err := scanBox(db.QueryRow(`SELECT `+boxColumns+` FROM boxes WHERE id = ?`, boxID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, notFound("box")
		}
		return nil, fmt.Errorf("failed to query box: %w", err)
	}
	return box, nil
}

func UpdateBox(db *sql.DB, box *models.Box) error {
	result, err := db.Exec(`
		UPDATE boxes
		SET name = ?, description = ?, price = ?, quantity = ?, image_url = ?, category_id = ?, is_active = ?
		WHERE id = ?
	`, box.Name, box.Description, box.Price, box.Quantity, box.ImageURL, box.CategoryID, box.IsActive, box.ID)
	if err != nil {
		return fmt.Errorf("failed to update box: %w", err)
	}
	return requireAffected(result, "box")
}

func DeleteBox(db *sql.DB, boxID int) error {
	result, err := db.Exec(`DELETE FROM boxes WHERE id = ?`, boxID)
	if err != nil {
		return fmt.Errorf("failed to delete box: %w", err)
	}
	return requireAffected(result, "box")
}
