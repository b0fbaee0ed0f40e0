package repository

import (
	"errors"
	"strings"

	"github.com/kursadbilgin/fitting-request/internal/domain"
	"gorm.io/gorm"
)

// Engine-specific fragments of unique constraint violations.
var duplicateKeyMarkers = []string{
	"duplicate key value",      // postgres
	"Duplicate entry",          // mysql
	"UNIQUE constraint failed", // sqlite
}

func isDuplicateKeyError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	for _, marker := range duplicateKeyMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

func persistenceError(op string, err error) error {
	return domain.NewPersistenceError(op, err, isDuplicateKeyError(err))
}
