package repository

import (
	"errors"
	"strings"

	goerrors "github.com/goliatone/go-errors"
	"github.com/uptrace/bun/driver/pgdriver"
)

const pgUniqueViolation = "23505"

// isUniqueViolation reports whether err is a unique constraint failure on a
// constraint or column whose name contains column.
func isUniqueViolation(err error, column string) bool {
	if err == nil {
		return false
	}

	var pgErr pgdriver.Error
	if errors.As(err, &pgErr) {
		if !pgErr.IntegrityViolation() || pgErr.Field('C') != pgUniqueViolation {
			return false
		}
		return strings.Contains(pgErr.Field('n'), column) || strings.Contains(pgErr.Field('D'), column)
	}

	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") && strings.Contains(msg, "."+column)
}

// withMetadata copies base, attaching metadata while keeping base as the
// source so errors.Is matches.
func withMetadata(base *goerrors.Error, metadata map[string]any) error {
	clone := base.Clone()
	if clone == nil {
		return base
	}
	clone.Source = base
	return clone.WithMetadata(metadata)
}
