package bom

import (
	"fmt"
	"strconv"
	"strings"

	"mfg-erp-backend/internal/models"

	"gorm.io/gorm"
)

const (
	codePrefix  = "BOM"
	codeCounter = "bom_id"
)

// NextCode hands out the next human BOM id inside tx. The first call on a fresh
// counter continues after the highest code already stored.
func NextCode(tx *gorm.DB) (string, error) {
	c := models.Counter{Name: codeCounter}
	if err := tx.FirstOrCreate(&c, models.Counter{Name: codeCounter}).Error; err != nil {
		return "", fmt.Errorf("loading bom counter: %w", err)
	}
	if err := tx.Model(&models.Counter{}).Where("name = ?", codeCounter).
		Update("seq", gorm.Expr("seq + 1")).Error; err != nil {
		return "", fmt.Errorf("incrementing bom counter: %w", err)
	}
	if err := tx.First(&c, "name = ?", codeCounter).Error; err != nil {
		return "", fmt.Errorf("reading bom counter: %w", err)
	}

	if c.Seq == 1 {
		var codes []string
		if err := tx.Model(&models.BOM{}).Where("bom_code LIKE ?", codePrefix+"%").
			Pluck("bom_code", &codes).Error; err != nil {
			return "", fmt.Errorf("loading existing bom codes: %w", err)
		}
		var highest int64
		for _, code := range codes {
			n, err := strconv.ParseInt(strings.TrimPrefix(code, codePrefix), 10, 64)
			if err == nil && n > highest {
				highest = n
			}
		}
		if highest > 0 {
			c.Seq = highest + 1
			if err := tx.Model(&models.Counter{}).Where("name = ?", codeCounter).
				Update("seq", c.Seq).Error; err != nil {
				return "", fmt.Errorf("syncing bom counter: %w", err)
			}
		}
	}

	return fmt.Sprintf("%s%03d", codePrefix, c.Seq), nil
}
