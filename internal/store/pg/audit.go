package pg

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/josemwas/HR-management/internal/audit"
)

func (s *Store) AppendAudit(ctx context.Context, e audit.Entry) error {
	if s.db == nil {
		return errNoDB
	}
	_, err := s.db.ExecContext(ctx, `
		insert into audit_logs (id, organization_id, user_id, action, resource_type, resource_id,
			old_values, new_values, ip_address, user_agent, occurred_at)
		values ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, e.ID, nullIfEmpty(e.OrganizationID), nullIfEmpty(e.ActorID), e.Action, e.ResourceType, nullIfEmpty(e.ResourceID),
		jsonOrNull(e.Change.Old), jsonOrNull(e.Change.New), nullIfEmpty(e.IPAddress), nullIfEmpty(e.UserAgent), e.OccurredAt.UTC())
	return mapError(err)
}

func jsonOrNull(raw []byte) any {
	if len(raw) == 0 {
		return nil
	}
	return raw
}

func (s *Store) QueryAudit(ctx context.Context, f audit.Filter) (audit.Page, error) {
	if s.db == nil {
		return audit.Page{}, errNoDB
	}
	f = f.Normalize()
	var (
		conds []string
		args  []any
	)
	add := func(format string, v any) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf(format, len(args)))
	}
	if f.OrganizationID != "" {
		add("organization_id = $%d", f.OrganizationID)
	}
	if f.Action != "" {
		add("strpos(lower(action), lower($%d)) > 0", f.Action)
	}
	if f.ResourceType != "" {
		add("resource_type = $%d", f.ResourceType)
	}
	if f.ActorID != "" {
		add("user_id = $%d", f.ActorID)
	}
	where := ""
	if len(conds) > 0 {
		where = " where " + strings.Join(conds, " and ")
	}

	var total int
	if err := s.db.QueryRowContext(ctx, `select count(*) from audit_logs`+where, args...).Scan(&total); err != nil {
		return audit.Page{}, err
	}

	n := len(args)
	query := fmt.Sprintf(`
		select id, organization_id, user_id, action, resource_type, resource_id,
			old_values, new_values, ip_address, user_agent, occurred_at
		from audit_logs%s
		order by occurred_at desc, id desc
		limit $%d offset $%d
	`, where, n+1, n+2)
	rows, err := s.db.QueryContext(ctx, query, append(args, f.PerPage, f.Offset())...)
	if err != nil {
		return audit.Page{}, err
	}
	defer rows.Close()

	items := []audit.Entry{}
	for rows.Next() {
		var (
			e                          audit.Entry
			org, actor, res, ip, agent sql.NullString
			oldValues, newValues       []byte
		)
		if err := rows.Scan(&e.ID, &org, &actor, &e.Action, &e.ResourceType, &res,
			&oldValues, &newValues, &ip, &agent, &e.OccurredAt); err != nil {
			return audit.Page{}, err
		}
		e.OrganizationID = org.String
		e.ActorID = actor.String
		e.ResourceID = res.String
		e.IPAddress = ip.String
		e.UserAgent = agent.String
		e.Change.Old = oldValues
		e.Change.New = newValues
		items = append(items, e)
	}
	if err := rows.Err(); err != nil {
		return audit.Page{}, err
	}
	return audit.NewPage(items, total, f), nil
}
