package db

import (
	stdErrors "errors"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

const pgUniqueViolation = "23505"

func IsNotFound(err error) bool {
	return stdErrors.Is(err, gorm.ErrRecordNotFound)
}

func IsUniqueViolation(err error) bool {
	var pgxErr *pgconn.PgError
	if stdErrors.As(err, &pgxErr) {
		return pgxErr.Code == pgUniqueViolation
	}
	var pqErr *pq.Error
	if stdErrors.As(err, &pqErr) {
		return string(pqErr.Code) == pgUniqueViolation
	}
	return false
}
