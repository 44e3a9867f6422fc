package postgres

import (
	"database/sql"
	"errors"

	"github.com/lib/pq"

	"github.com/jwalitptl/opd-queue/internal/repository"
)

const uniqueViolation = pq.ErrorCode("23505")

// translate maps driver errors onto the repository sentinels so services
// never import lib/pq.
func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return repository.ErrNotFound
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return repository.ErrDuplicate
	}
	return err
}

func requireAffected(res sql.Result) error {
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return repository.ErrNotFound
	}
	return nil
}
