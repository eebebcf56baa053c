package database

import (
	"database/sql"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"cardvault/internal/models"
)

// ErrCouponRejected wraps every reason a coupon cannot be applied.
var ErrCouponRejected = errors.New("coupon rejected")

const couponColumns = `id, code, discount_type, discount_value, min_order, max_uses, uses, is_active, expires_at, created_at`

func scanCoupon(row rowScanner) (*models.Coupon, error) {
	coupon := &models.Coupon{}
	var expiresAt sql.NullTime

	err := row.Scan(
		&coupon.ID,
		&coupon.Code,
		&coupon.DiscountType,
		&coupon.DiscountValue,
		&coupon.MinOrder,
		&coupon.MaxUses,
		&coupon.Uses,
		&coupon.IsActive,
		&expiresAt,
		&coupon.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if expiresAt.Valid {
		coupon.ExpiresAt = &expiresAt.Time
	}

	return coupon, nil
}

func normalizeCoupon(coupon *models.Coupon) {
	coupon.Code = strings.ToUpper(strings.TrimSpace(coupon.Code))
	if coupon.DiscountType != models.DiscountFixed {
		coupon.DiscountType = models.DiscountPercentage
	}
}

func CreateCoupon(db *sql.DB, coupon *models.Coupon) error {
	normalizeCoupon(coupon)

	query := `
		INSERT INTO coupons (code, discount_type, discount_value, min_order, max_uses, is_active, expires_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	result, err := db.Exec(query, coupon.Code, coupon.DiscountType, coupon.DiscountValue, coupon.MinOrder,
		coupon.MaxUses, coupon.IsActive, coupon.ExpiresAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("coupon %s %w", coupon.Code, ErrDuplicate)
		}
		return fmt.Errorf("failed to create coupon: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get coupon ID: %w", err)
	}

	coupon.ID = int(id)
	coupon.CreatedAt = time.Now()

	return nil
}

func GetCoupons(db *sql.DB) ([]models.Coupon, error) {
	rows, err := db.Query(`SELECT ` + couponColumns + ` FROM coupons ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query coupons: %w", err)
	}
	defer rows.Close()

	coupons := []models.Coupon{}
	for rows.Next() {
		coupon, err := scanCoupon(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan coupon: %w", err)
		}
		coupons = append(coupons, *coupon)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating coupons: %w", err)
	}

	return coupons, nil
}

func GetCoupon(db *sql.DB, couponID int) (*models.Coupon, error) {
	coupon, err := scanCoupon(db.QueryRow(`SELECT `+couponColumns+` FROM coupons WHERE id = ?`, couponID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, notFound("coupon")
		}
		return nil, fmt.Errorf("failed to query coupon: %w", err)
	}
	return coupon, nil
}

func getCouponByCode(q queryer, code string) (*models.Coupon, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	coupon, err := scanCoupon(q.QueryRow(`SELECT `+couponColumns+` FROM coupons WHERE code = ?`, code))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, notFound("coupon")
		}
		return nil, fmt.Errorf("failed to query coupon: %w", err)
	}
	return coupon, nil
}

func UpdateCoupon(db *sql.DB, coupon *models.Coupon) error {
	normalizeCoupon(coupon)

	query := `
		UPDATE coupons
		SET code = ?, discount_type = ?, discount_value = ?, min_order = ?, max_uses = ?, is_active = ?, expires_at = ?
		WHERE id = ?
	`

	result, err := db.Exec(query, coupon.Code, coupon.DiscountType, coupon.DiscountValue, coupon.MinOrder,
		coupon.MaxUses, coupon.IsActive, coupon.ExpiresAt, coupon.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("coupon %s %w", coupon.Code, ErrDuplicate)
		}
		return fmt.Errorf("failed to update coupon: %w", err)
	}

	return requireAffected(result, "coupon")
}

// ToggleCoupon flips is_active and returns the new value.
func ToggleCoupon(db *sql.DB, couponID int) (bool, error) {
	result, err := db.Exec(`UPDATE coupons SET is_active = NOT is_active WHERE id = ?`, couponID)
	if err != nil {
		return false, fmt.Errorf("failed to toggle coupon: %w", err)
	}
	if err := requireAffected(result, "coupon"); err != nil {
		return false, err
	}

	var active bool
	if err := db.QueryRow(`SELECT is_active FROM coupons WHERE id = ?`, couponID).Scan(&active); err != nil {
		return false, fmt.Errorf("failed to read coupon: %w", err)
	}
	return active, nil
}

func DeleteCoupon(db *sql.DB, couponID int) error {
	result, err := db.Exec(`DELETE FROM coupons WHERE id = ?`, couponID)
	if err != nil {
		return fmt.Errorf("failed to delete coupon: %w", err)
	}
	return requireAffected(result, "coupon")
}

// CouponDiscount returns the amount the coupon takes off subtotal at the
// given time. The discount never exceeds the subtotal.
func CouponDiscount(coupon *models.Coupon, subtotal float64, now time.Time) (float64, error) {
	switch {
	case !coupon.IsActive:
		return 0, fmt.Errorf("%w: coupon is not active", ErrCouponRejected)
	case coupon.ExpiresAt != nil && now.After(*coupon.ExpiresAt):
		return 0, fmt.Errorf("%w: coupon has expired", ErrCouponRejected)
	case coupon.MaxUses > 0 && coupon.Uses >= coupon.MaxUses:
		return 0, fmt.Errorf("%w: coupon usage limit reached", ErrCouponRejected)
	case subtotal < coupon.MinOrder:
		return 0, fmt.Errorf("%w: minimum order is %.2f", ErrCouponRejected, coupon.MinOrder)
	}

	var discount float64
	if coupon.DiscountType == models.DiscountFixed {
		discount = coupon.DiscountValue
	} else {
		discount = subtotal * coupon.DiscountValue / 100
	}

	discount = math.Round(math.Min(math.Max(discount, 0), subtotal)*100) / 100
	return discount, nil
}
