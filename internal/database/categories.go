package database

import (
	"database/sql"
	"fmt"

	"cardvault/internal/models"
)

func CreateCategory(db *sql.DB, name, slug string) (*models.Category, error) {
	query := `
		INSERT INTO categories (name, slug)
		VALUES (?, ?)
	`

	result, err := db.Exec(query, name, slug)
	if err != nil {
		return nil, fmt.Errorf("failed to create category: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get category ID: %w", err)
	}

	category := &models.Category{
		ID:   int(id),
		Name: name,
		Slug: slug,
	}

	return category, nil
}

func GetCategories(db *sql.DB) ([]models.Category, error) {
	query := `
		SELECT id, name, slug
		FROM categories
		ORDER BY name
	`

	rows, err := db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query categories: %w", err)
	}
	defer rows.Close()

	categories := []models.Category{}
	for rows.Next() {
		var category models.Category
		if err := rows.Scan(&category.ID, &category.Name, &category.Slug); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, category)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating categories: %w", err)
	}

	return categories, nil
}

func GetCategory(db *sql.DB, categoryID int) (*models.Category, error) {
	category := &models.Category{}
	query := `
		SELECT id, name, slug
		FROM categories
		WHERE id = ?
	`

	err := db.QueryRow(query, categoryID).Scan(&category.ID, &category.Name, &category.Slug)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, notFound("category")
		}
		return nil, fmt.Errorf("failed to query category: %w", err)
	}

	return category, nil
}

func GetCategoryBySlug(db *sql.DB, slug string) (*models.Category, error) {
	category := &models.Category{}
	query := `
		SELECT id, name, slug
		FROM categories
		WHERE slug = ?
	`

	err := db.QueryRow(query, slug).Scan(&category.ID, &category.Name, &category.Slug)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, notFound("category")
		}
		return nil, fmt.Errorf("failed to query category: %w", err)
	}

	return category, nil
}
