package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/josemwas/HR-management/internal/auth"
	"github.com/josemwas/HR-management/internal/ids"
)

const settingColumns = `id, organization_id, category, key, value, data_type, description, is_sensitive, created_at, updated_at`

func scanSetting(row rowScanner) (auth.Setting, error) {
	var (
		st   auth.Setting
		desc sql.NullString
	)
	if err := row.Scan(&st.ID, &st.OrganizationID, &st.Category, &st.Key, &st.Value, &st.DataType,
		&desc, &st.IsSensitive, &st.CreatedAt, &st.UpdatedAt); err != nil {
		return auth.Setting{}, err
	}
	st.Description = desc.String
	return st, nil
}

func (s *Store) GetSetting(ctx context.Context, organizationID, key string) (auth.Setting, error) {
	if s.db == nil {
		return auth.Setting{}, errNoDB
	}
	st, err := scanSetting(s.db.QueryRowContext(ctx, `
		select `+settingColumns+`
		from organization_settings
		where organization_id = $1 and key = $2
	`, organizationID, key))
	if errors.Is(err, sql.ErrNoRows) {
		return auth.Setting{}, fmt.Errorf("%w: setting %s", auth.ErrNotFound, key)
	}
	return st, err
}

func (s *Store) ListSettings(ctx context.Context, organizationID, category string) ([]auth.Setting, error) {
	if s.db == nil {
		return nil, errNoDB
	}
	rows, err := s.db.QueryContext(ctx, `
		select `+settingColumns+`
		from organization_settings
		where organization_id = $1 and ($2 = '' or category = $2)
		order by category, key
	`, organizationID, category)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []auth.Setting{}
	for rows.Next() {
		st, err := scanSetting(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

// PutSettings upserts every setting in one transaction. The previous row is locked and
// read first so the caller can audit the old value.
func (s *Store) PutSettings(ctx context.Context, organizationID string, settings []auth.Setting) ([]auth.SettingChange, error) {
	if s.db == nil {
		return nil, errNoDB
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	changes := make([]auth.SettingChange, 0, len(settings))
	for _, st := range settings {
		var prev *auth.Setting
		old, err := scanSetting(tx.QueryRowContext(ctx, `
			select `+settingColumns+`
			from organization_settings
			where organization_id = $1 and key = $2
			for update
		`, organizationID, st.Key))
		switch {
		case err == nil:
			prev = &old
		case !errors.Is(err, sql.ErrNoRows):
			return nil, err
		}

		st.OrganizationID = organizationID
		err = tx.QueryRowContext(ctx, `
			insert into organization_settings (id, organization_id, category, key, value, data_type, description, is_sensitive)
			values ($1, $2, $3, $4, $5, $6, $7, $8)
			on conflict (organization_id, key) do update set
				category = excluded.category,
				value = excluded.value,
				data_type = excluded.data_type,
				description = excluded.description,
				is_sensitive = excluded.is_sensitive,
				updated_at = now()
			returning id, created_at, updated_at
		`, ids.New(), organizationID, st.Category, st.Key, st.Value, st.DataType, nullIfEmpty(st.Description), st.IsSensitive).
			Scan(&st.ID, &st.CreatedAt, &st.UpdatedAt)
		if err != nil {
			return nil, mapError(err)
		}
		changes = append(changes, auth.SettingChange{Previous: prev, Current: st})
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return changes, nil
}
