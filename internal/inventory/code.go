package inventory

import (
	"fmt"
	"strings"
	"unicode"

	"mfg-erp-backend/internal/models"

	"gorm.io/gorm"
)

// codePrefix derives the product code prefix from the first letters of the category.
func codePrefix(category string) string {
	var b strings.Builder
	for _, r := range category {
		if b.Len() == 3 {
			break
		}
		if unicode.IsLetter(r) && r < unicode.MaxASCII {
			b.WriteRune(unicode.ToUpper(r))
		}
	}
	if b.Len() == 0 {
		return "PRD"
	}
	return b.String()
}

// NextProductCode hands out the next code for category inside tx, e.g. RAW001.
func NextProductCode(tx *gorm.DB, category string) (string, error) {
	prefix := codePrefix(category)
	name := "product_" + prefix
	c := models.Counter{Name: name}
	if err := tx.FirstOrCreate(&c, models.Counter{Name: name}).Error; err != nil {
		return "", fmt.Errorf("loading product counter: %w", err)
	}
	if err := tx.Model(&models.Counter{}).Where("name = ?", name).
		Update("seq", gorm.Expr("seq + 1")).Error; err != nil {
		return "", fmt.Errorf("incrementing product counter: %w", err)
	}
	if err := tx.First(&c, "name = ?", name).Error; err != nil {
		return "", fmt.Errorf("reading product counter: %w", err)
	}
	return fmt.Sprintf("%s%03d", prefix, c.Seq), nil
}

// capitalizeWords upper-cases the first letter of every word and keeps the rest.
func capitalizeWords(s string) string {
	out := []rune(strings.TrimSpace(s))
	start := true
	for i, r := range out {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			if start {
				out[i] = unicode.ToUpper(r)
			}
			start = false
		default:
			start = true
		}
	}
	return string(out)
}
