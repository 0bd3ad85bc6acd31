package db

import (
	"errors"

	pferrors "github.com/angelmondragon/palletflow/pkg/errors"
	"gorm.io/gorm"
)

// IsUniqueViolation reports whether err is a unique constraint failure from either
// supported driver, whether or not gorm translated it.
func IsUniqueViolation(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey) || pferrors.IsUniqueViolation(err)
}

// IsNotFound reports whether a gorm lookup matched no rows.
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
