package repository

import (
	"strconv"

	"gorm.io/gorm"
)

// nextSequentialID returns one past the largest numeric id in the table.
// Non-numeric ids do not take part.
func nextSequentialID(tx *gorm.DB, table interface{}) (string, error) {
	var ids []string
	if err := tx.Model(table).Pluck("id", &ids).Error; err != nil {
		return "", err
	}
	var max int64
	for _, id := range ids {
		n, err := strconv.ParseInt(id, 10, 64)
		if err != nil || n < 0 {
			continue
		}
		if n > max {
			max = n
		}
	}
	return strconv.FormatInt(max+1, 10), nil
}
