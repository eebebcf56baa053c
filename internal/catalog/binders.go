package catalog

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"cardvault/internal/apperr"
	"cardvault/internal/logger"
	"cardvault/internal/models"
)

const (
	DefaultBinderName = "Untitled Binder"
	DefaultGridSize   = "3x3"
	DefaultCoverColor = "#6366f1"
	maxGridSide       = 10
)

var (
	gridPattern  = regexp.MustCompile(`^(\d+)x(\d+)$`)
	colorPattern = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)
)

// BinderSettings carries the editable binder fields. Nil fields are left
// unchanged on update and take their defaults on create.
type BinderSettings struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	GridSize    *string `json:"grid_size"`
	CoverColor  *string `json:"cover_color"`
}

// BinderView is a binder with its cards and page geometry.
type BinderView struct {
	*models.Binder
	CardCount      int `json:"card_count"`
	CollectedCount int `json:"collected_count"`
	Columns        int `json:"columns"`
	Rows           int `json:"rows"`
	PageSize       int `json:"page_size"`
}

// ParseGrid splits a "<cols>x<rows>" grid size.
func ParseGrid(gridSize string) (cols, rows int, err error) {
	m := gridPattern.FindStringSubmatch(strings.TrimSpace(gridSize))
	if m == nil {
		return 0, 0, apperr.ValidationErr("Grid size must look like 3x3")
	}
	cols, _ = strconv.Atoi(m[1])
	rows, _ = strconv.Atoi(m[2])
	if cols < 1 || rows < 1 || cols > maxGridSide || rows > maxGridSide {
		return 0, 0, apperr.ValidationErr(fmt.Sprintf("Grid sides must be between 1 and %d", maxGridSide))
	}
	return cols, rows, nil
}

func (s BinderSettings) apply(binder *models.Binder) error {
	if s.Name != nil {
		name := strings.TrimSpace(*s.Name)
		if name == "" {
			return apperr.ValidationErr("Binder name cannot be empty")
		}
		binder.Name = name
	}
	if s.Description != nil {
		binder.Description = strings.TrimSpace(*s.Description)
	}
	if s.GridSize != nil {
		if _, _, err := ParseGrid(*s.GridSize); err != nil {
			return err
		}
		binder.GridSize = strings.TrimSpace(*s.GridSize)
	}
	if s.CoverColor != nil {
		if !colorPattern.MatchString(*s.CoverColor) {
			return apperr.ValidationErr("Cover color must be a #rrggbb hex value")
		}
		binder.CoverColor = strings.ToLower(*s.CoverColor)
	}
	return nil
}

func (s *Service) CreateBinder(callerID int, settings BinderSettings) (*models.Binder, error) {
	binder := &models.Binder{
		UserID:     callerID,
		Name:       DefaultBinderName,
		GridSize:   DefaultGridSize,
		CoverColor: DefaultCoverColor,
	}
	if settings.Name != nil && strings.TrimSpace(*settings.Name) == "" {
		settings.Name = nil
	}
	if err := settings.apply(binder); err != nil {
		return nil, err
	}

	if err := s.store.CreateBinder(binder); err != nil {
		return nil, apperr.Wrap(err, "Failed to create binder")
	}

	logger.Info("Binder created", "user_id", callerID, "binder_id", binder.ID)
	return binder, nil
}

func (s *Service) GetBinder(callerID, binderID int) (*BinderView, error) {
	binder, err := s.assertOwns(binderID, callerID)
	if err != nil {
		return nil, err
	}

	binder.Cards, err = s.store.GetBinderCards(binderID)
	if err != nil {
		return nil, apperr.Wrap(err, "Failed to load binder cards")
	}

	view := &BinderView{Binder: binder, CardCount: len(binder.Cards)}
	for _, card := range binder.Cards {
		if card.IsCollected {
			view.CollectedCount++
		}
	}

	// An unparseable stored grid reads as 3x3.
	view.Columns, view.Rows, err = ParseGrid(binder.GridSize)
	if err != nil {
		view.Columns, view.Rows = 3, 3
	}
	view.PageSize = view.Columns * view.Rows

	return view, nil
}

func (s *Service) UpdateBinder(callerID, binderID int, settings BinderSettings) (*models.Binder, error) {
	binder, err := s.assertOwns(binderID, callerID)
	if err != nil {
		return nil, err
	}

	if err := settings.apply(binder); err != nil {
		return nil, err
	}

	if err := s.store.UpdateBinder(binder); err != nil {
		return nil, apperr.Wrap(err, "Failed to update binder")
	}

	return binder, nil
}

// DeleteBinder removes the binder and its cards. Products are kept.
func (s *Service) DeleteBinder(callerID, binderID int) error {
	if _, err := s.assertOwns(binderID, callerID); err != nil {
		return err
	}

	unlock := s.binders.lock(binderID)
	defer unlock()

	if err := s.store.DeleteBinder(binderID); err != nil {
		return apperr.Wrap(err, "Failed to delete binder")
	}

	logger.Info("Binder deleted", "user_id", callerID, "binder_id", binderID)
	return nil
}

// RemoveCard deletes cardID when it sits in binderID. A card from another
// binder, or one that does not exist, is left alone. The binder's card
// count is returned either way.
func (s *Service) RemoveCard(callerID, binderID, cardID int) (int, error) {
	if _, err := s.assertOwns(binderID, callerID); err != nil {
		return 0, err
	}

	card, err := s.store.GetBinderCard(cardID)
	if err != nil {
		return 0, apperr.Wrap(err, "Failed to load card")
	}

	if card != nil && card.BinderID == binderID {
		if err := s.store.DeleteBinderCard(cardID); err != nil {
			return 0, apperr.Wrap(err, "Failed to remove card")
		}
		if err := s.store.TouchBinder(binderID); err != nil {
			logger.Warn("Failed to touch binder", "binder_id", binderID, "error", err)
		}
	}

	total, _, err := s.store.CountCards(binderID)
	if err != nil {
		return 0, apperr.Wrap(err, "Failed to count cards")
	}

	return total, nil
}

// CardCount returns how many cards binderID holds. Callers check
// ownership first.
func (s *Service) CardCount(binderID int) (int, error) {
	total, _, err := s.store.CountCards(binderID)
	if err != nil {
		return 0, apperr.Wrap(err, "Failed to count cards")
	}
	return total, nil
}

// ParsePositions converts a decoded {"<card id>": position} body. Every
// key must be an integer id and every position non-negative.
func ParsePositions(raw map[string]int) (map[int]int, error) {
	positions := make(map[int]int, len(raw))
	for key, position := range raw {
		cardID, err := strconv.Atoi(strings.TrimSpace(key))
		if err != nil {
			return nil, apperr.ValidationErr(fmt.Sprintf("Invalid card id %q", key))
		}
		if position < 0 {
			return nil, apperr.ValidationErr(fmt.Sprintf("Position for card %d must not be negative", cardID))
		}
		positions[cardID] = position
	}
	return positions, nil
}

// Reorder moves each card to its new position. Assignments are applied as
// given: colliding positions are not detected. Cards outside the binder
// are ignored.
func (s *Service) Reorder(callerID, binderID int, positions map[int]int) error {
	for cardID, position := range positions {
		if position < 0 {
			return apperr.ValidationErr(fmt.Sprintf("Position for card %d must not be negative", cardID))
		}
	}

	unlock := s.binders.lock(binderID)
	defer unlock()

	if _, err := s.assertOwns(binderID, callerID); err != nil {
		return err
	}

	cardIDs := make([]int, 0, len(positions))
	for cardID := range positions {
		cardIDs = append(cardIDs, cardID)
	}
	sort.Ints(cardIDs)

	for _, cardID := range cardIDs {
		if err := s.store.SetCardPosition(binderID, cardID, positions[cardID]); err != nil {
			return apperr.Wrap(err, "Failed to reorder cards")
		}
	}

	if len(cardIDs) > 0 {
		if err := s.store.TouchBinder(binderID); err != nil {
			logger.Warn("Failed to touch binder", "binder_id", binderID, "error", err)
		}
	}

	return nil
}

// ToggleCollected flips the card's collected flag and returns the new
// value with the binder's collected count.
func (s *Service) ToggleCollected(callerID, binderID, cardID int) (bool, int, error) {
	if _, err := s.assertOwns(binderID, callerID); err != nil {
		return false, 0, err
	}

	card, err := s.store.GetBinderCard(cardID)
	if err != nil {
		return false, 0, apperr.Wrap(err, "Failed to load card")
	}
	if card == nil || card.BinderID != binderID {
		return false, 0, apperr.NotFoundErr("Card not found")
	}

	collected := !card.IsCollected
	if err := s.store.SetCardCollected(cardID, collected); err != nil {
		return false, 0, apperr.Wrap(err, "Failed to update card")
	}

	_, collectedCount, err := s.store.CountCards(binderID)
	if err != nil {
		return false, 0, apperr.Wrap(err, "Failed to count cards")
	}

	return collected, collectedCount, nil
}
