package database

import (
	"database/sql"
	"fmt"
	"time"

	"cardvault/internal/models"
)

// BinderSummary is a binder row on the owner's shelf.
type BinderSummary struct {
	models.Binder
	CardCount      int `json:"card_count"`
	CollectedCount int `json:"collected_count"`
}

func CreateBinder(db *sql.DB, binder *models.Binder) error {
	query := `
		INSERT INTO binders (user_id, name, description, grid_size, cover_color)
		VALUES (?, ?, ?, ?, ?)
	`

	result, err := db.Exec(query, binder.UserID, binder.Name, binder.Description, binder.GridSize, binder.CoverColor)
	if err != nil {
		return fmt.Errorf("failed to create binder: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get binder ID: %w", err)
	}

	binder.ID = int(id)
	binder.CreatedAt = time.Now()
	binder.UpdatedAt = binder.CreatedAt

	return nil
}

func GetBinders(db *sql.DB, userID int) ([]BinderSummary, error) {
	query := `
		SELECT b.id, b.user_id, b.name, b.description, b.grid_size, b.cover_color, b.created_at, b.updated_at,
		       COUNT(bc.id),
		       COALESCE(SUM(CASE WHEN bc.is_collected THEN 1 ELSE 0 END), 0)
		FROM binders b
		LEFT JOIN binder_cards bc ON bc.binder_id = b.id
		WHERE b.user_id = ?
		GROUP BY b.id
		ORDER BY b.updated_at DESC, b.id DESC
	`

	rows, err := db.Query(query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query binders: %w", err)
	}
	defer rows.Close()

	binders := []BinderSummary{}
	for rows.Next() {
		var summary BinderSummary
		err := rows.Scan(
			&summary.ID,
			&summary.UserID,
			&summary.Name,
			&summary.Description,
			&summary.GridSize,
			&summary.CoverColor,
			&summary.CreatedAt,
			&summary.UpdatedAt,
			&summary.CardCount,
			&summary.CollectedCount,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan binder: %w", err)
		}
		binders = append(binders, summary)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating binders: %w", err)
	}

	return binders, nil
}

func GetBinder(db *sql.DB, binderID int) (*models.Binder, error) {
	binder := &models.Binder{}
	query := `
		SELECT id, user_id, name, description, grid_size, cover_color, created_at, updated_at
		FROM binders
		WHERE id = ?
	`

	err := db.QueryRow(query, binderID).Scan(
		&binder.ID,
		&binder.UserID,
		&binder.Name,
		&binder.Description,
		&binder.GridSize,
		&binder.CoverColor,
		&binder.CreatedAt,
		&binder.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, notFound("binder")
		}
		return nil, fmt.Errorf("failed to query binder: %w", err)
	}

	return binder, nil
}

// GetBinderWithCards loads the binder and its cards in position order.
func GetBinderWithCards(db *sql.DB, binderID int) (*models.Binder, error) {
	binder, err := GetBinder(db, binderID)
	if err != nil {
		return nil, err
	}

	binder.Cards, err = GetBinderCards(db, binderID)
	if err != nil {
		return nil, err
	}

	return binder, nil
}

func GetBinderCards(db *sql.DB, binderID int) ([]models.BinderCard, error) {
	query := `
		SELECT bc.id, bc.binder_id, bc.product_id, bc.position, bc.is_collected, bc.added_at,
		` + productColumns + `
		FROM binder_cards bc
		INNER JOIN products p ON bc.product_id = p.id
		LEFT JOIN categories c ON p.category_id = c.id
		WHERE bc.binder_id = ?
		ORDER BY bc.position, bc.id
	`

	rows, err := db.Query(query, binderID)
	if err != nil {
		return nil, fmt.Errorf("failed to query binder cards: %w", err)
	}
	defer rows.Close()

	cards := []models.BinderCard{}
	for rows.Next() {
		var card models.BinderCard
		product, err := scanProduct(prefixScanner{rows, []any{
			&card.ID,
			&card.BinderID,
			&card.ProductID,
			&card.Position,
			&card.IsCollected,
			&card.AddedAt,
		}})
		if err != nil {
			return nil, fmt.Errorf("failed to scan binder card: %w", err)
		}
		card.Product = product
		cards = append(cards, card)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating binder cards: %w", err)
	}

	return cards, nil
}

// prefixScanner scans leading columns into prefix before handing the rest
// to the caller's destinations.
type prefixScanner struct {
	row    rowScanner
	prefix []any
}

func (s prefixScanner) Scan(dest ...any) error {
	return s.row.Scan(append(s.prefix, dest...)...)
}

func UpdateBinder(db *sql.DB, binder *models.Binder) error {
	query := `
		UPDATE binders
		SET name = ?, description = ?, grid_size = ?, cover_color = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`

	result, err := db.Exec(query, binder.Name, binder.Description, binder.GridSize, binder.CoverColor, binder.ID)
	if err != nil {
		return fmt.Errorf("failed to update binder: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return notFound("binder")
	}

	return nil
}

// DeleteBinder removes the binder; its cards go with it through the
// foreign key cascade, products stay.
func DeleteBinder(db *sql.DB, binderID int) error {
	result, err := db.Exec(`DELETE FROM binders WHERE id = ?`, binderID)
	if err != nil {
		return fmt.Errorf("failed to delete binder: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return notFound("binder")
	}

	return nil
}

func TouchBinder(db *sql.DB, binderID int) error {
	_, err := db.Exec(`UPDATE binders SET updated_at = CURRENT_TIMESTAMP WHERE id = ?`, binderID)
	if err != nil {
		return fmt.Errorf("failed to touch binder: %w", err)
	}
	return nil
}

func GetOccupiedPositions(db *sql.DB, binderID int) ([]int, error) {
	rows, err := db.Query(`SELECT position FROM binder_cards WHERE binder_id = ? ORDER BY position`, binderID)
	if err != nil {
		return nil, fmt.Errorf("failed to query positions: %w", err)
	}
	defer rows.Close()

	var positions []int
	for rows.Next() {
		var position int
		if err := rows.Scan(&position); err != nil {
			return nil, fmt.Errorf("failed to scan position: %w", err)
		}
		positions = append(positions, position)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating positions: %w", err)
	}

	return positions, nil
}

func CreateBinderCard(db *sql.DB, binderID, productID, position int) (*models.BinderCard, error) {
	query := `
		INSERT INTO binder_cards (binder_id, product_id, position, is_collected)
		VALUES (?, ?, ?, FALSE)
	`

	result, err := db.Exec(query, binderID, productID, position)
	if err != nil {
		return nil, fmt.Errorf("failed to create binder card: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get binder card ID: %w", err)
	}

	return &models.BinderCard{
		ID:        int(id),
		BinderID:  binderID,
		ProductID: productID,
		Position:  position,
		AddedAt:   time.Now(),
	}, nil
}

func GetBinderCard(db *sql.DB, cardID int) (*models.BinderCard, error) {
	card := &models.BinderCard{}
	query := `
		SELECT id, binder_id, product_id, position, is_collected, added_at
		FROM binder_cards
		WHERE id = ?
	`

	err := db.QueryRow(query, cardID).Scan(
		&card.ID,
		&card.BinderID,
		&card.ProductID,
		&card.Position,
		&card.IsCollected,
		&card.AddedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, notFound("binder card")
		}
		return nil, fmt.Errorf("failed to query binder card: %w", err)
	}

	return card, nil
}

func DeleteBinderCard(db *sql.DB, cardID int) error {
	_, err := db.Exec(`DELETE FROM binder_cards WHERE id = ?`, cardID)
	if err != nil {
		return fmt.Errorf("failed to delete binder card: %w", err)
	}
	return nil
}

// SetBinderCardPosition moves a card within its binder. No collision check
// is made against other cards.
func SetBinderCardPosition(db *sql.DB, binderID, cardID, position int) error {
	_, err := db.Exec(`UPDATE binder_cards SET position = ? WHERE id = ? AND binder_id = ?`, position, cardID, binderID)
	if err != nil {
		return fmt.Errorf("failed to update binder card position: %w", err)
	}
	return nil
}

func SetBinderCardCollected(db *sql.DB, cardID int, collected bool) error {
	_, err := db.Exec(`UPDATE binder_cards SET is_collected = ? WHERE id = ?`, collected, cardID)
	if err != nil {
		return fmt.Errorf("failed to update binder card: %w", err)
	}
	return nil
}

func CountBinderCards(db *sql.DB, binderID int) (total int, collected int, err error) {
	query := `
		SELECT COUNT(*), COALESCE(SUM(CASE WHEN is_collected THEN 1 ELSE 0 END), 0)
		FROM binder_cards
		WHERE binder_id = ?
	`

	if err := db.QueryRow(query, binderID).Scan(&total, &collected); err != nil {
		return 0, 0, fmt.Errorf("failed to count binder cards: %w", err)
	}

	return total, collected, nil
}
