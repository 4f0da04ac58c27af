package postgres

import (
	"database/sql"
	"errors"

	"github.com/lib/pq"

	"souviens_toi/internal/domain"
)

const (
	codeUniqueViolation     pq.ErrorCode = "23505"
	codeForeignKeyViolation pq.ErrorCode = "23503"
	codeInvalidText         pq.ErrorCode = "22P02"
	codeInsufficientPriv    pq.ErrorCode = "42501"
)

// mapError translates driver errors into domain errors. The original error
// stays in the chain.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return errors.Join(domain.ErrNotFound, err)
	}

	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return err
	}
	switch pqErr.Code {
	case codeUniqueViolation:
		return errors.Join(domain.ErrAlreadyLinked, err)
	case codeForeignKeyViolation, codeInsufficientPriv:
		return errors.Join(domain.ErrInvalidReference, err)
	case codeInvalidText:
		return errors.Join(domain.ErrNotFound, err)
	}
	return err
}
