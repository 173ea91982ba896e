package services

import (
	"fmt"
	"strings"
	"time"

	"github.com/kendall-kelly/tailoring-orders-api/models"
	pkgerrors "github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// OrderNumberPrefix derives the three-letter customer code of an order number.
// Only A-Z survive; the remainder is split into words on whitespace.
func OrderNumberPrefix(customerName string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(customerName) {
		switch {
		case r >= 'A' && r <= 'Z':
			b.WriteRune(r)
		case r == ' ' || r == '\t' || r == '\n' || r == '\r':
			b.WriteRune(' ')
		}
	}
	words := strings.Fields(b.String())

	switch {
	case len(words) >= 3:
		return words[0][:1] + words[1][:1] + words[2][:1]
	case len(words) == 2:
		first, second := words[0], words[1]
		extra := "X"
		if len(first) > 1 {
			extra = first[1:2]
		} else if len(second) > 1 {
			extra = second[1:2]
		}
		return first[:1] + second[:1] + extra
	case len(words) == 1:
		word := words[0]
		if len(word) >= 3 {
			return word[:3]
		}
		return word + strings.Repeat("X", 3-len(word))
	default:
		return "XXX"
	}
}

// FormatOrderNumber renders {PREFIX}-{YYMM}-{NNNN}
func FormatOrderNumber(prefix string, at time.Time, sequence int) string {
	return fmt.Sprintf("%s-%s-%04d", prefix, orderPeriod(at), sequence)
}

// startOfMonth returns the first instant of the calendar month containing at
func startOfMonth(at time.Time) time.Time {
	return time.Date(at.Year(), at.Month(), 1, 0, 0, 0, 0, at.Location())
}

func orderPeriod(at time.Time) string {
	return at.Format("0601")
}

// nextOrderSequence returns the next monthly sequence value inside tx.
// The counter row for the month is seeded from the number of orders created since the
// start of the month and then incremented with a single UPDATE, which holds the row lock
// until tx ends so concurrent creators in the same month get distinct values.
func nextOrderSequence(tx *gorm.DB, at time.Time) (int, error) {
	period := orderPeriod(at)

	var seed int64
	if err := tx.Model(&models.Order{}).
		Where("created_at >= ?", startOfMonth(at)).
		Count(&seed).Error; err != nil {
		return 0, pkgerrors.Wrap(err, "count orders for month")
	}

	row := models.OrderSequence{Period: period, LastValue: int(seed), UpdatedAt: at}
	if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&row).Error; err != nil {
		return 0, pkgerrors.Wrap(err, "seed order sequence")
	}

	if err := tx.Model(&models.OrderSequence{}).
		Where("period = ?", period).
		Updates(map[string]interface{}{
			"last_value": gorm.Expr("last_value + 1"),
			"updated_at": at,
		}).Error; err != nil {
		return 0, pkgerrors.Wrap(err, "increment order sequence")
	}

	var current models.OrderSequence
	if err := tx.First(&current, "period = ?", period).Error; err != nil {
		return 0, pkgerrors.Wrap(err, "read order sequence")
	}
	return current.LastValue, nil
}

// generateOrderNumber builds a fresh order number for customerName inside tx
func generateOrderNumber(tx *gorm.DB, customerName string, at time.Time) (string, error) {
	sequence, err := nextOrderSequence(tx, at)
	if err != nil {
		return "", err
	}
	return FormatOrderNumber(OrderNumberPrefix(customerName), at, sequence), nil
}
