package postgres

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"

	apperrors "github.com/yourusername/auth-api/internal/pkg/errors"
)

// uniqueViolation is the Postgres SQLSTATE for unique constraint violations.
const uniqueViolation = "23505"

// translateInsertError maps a unique-violation insert failure to
// apperrors.ErrConflict so the service layer can retry the read path.
// Every other error passes through untouched.
func translateInsertError(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return apperrors.ErrConflict
	}
	return err
}
