package pg

import (
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/josemwas/HR-management/internal/auth"
)

// mapError translates constraint violations raised by inserts and updates.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case pgerrcode.UniqueViolation:
		return fmt.Errorf("%w: %s", auth.ErrConflict, constraintLabel(pgErr))
	case pgerrcode.ForeignKeyViolation:
		return fmt.Errorf("%w: %s", auth.ErrNotFound, constraintLabel(pgErr))
	case pgerrcode.CheckViolation, pgerrcode.NotNullViolation, pgerrcode.InvalidTextRepresentation:
		return fmt.Errorf("%w: %s", auth.ErrInvalidInput, constraintLabel(pgErr))
	}
	return err
}

// mapDeleteError treats a foreign key violation as the row still being referenced.
func mapDeleteError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.ForeignKeyViolation {
		return fmt.Errorf("%w: still referenced by %s", auth.ErrConflict, pgErr.TableName)
	}
	return mapError(err)
}

func constraintLabel(pgErr *pgconn.PgError) string {
	if pgErr.ConstraintName != "" {
		return pgErr.ConstraintName
	}
	return pgErr.Message
}
