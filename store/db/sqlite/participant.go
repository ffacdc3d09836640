package sqlite

import (
	"context"
	"fmt"
	"strings"

	"github.com/hrygo/netvalue/store"
)

func (d *DB) UpsertParticipant(ctx context.Context, upsert *store.Participant) (*store.Participant, error) {
	industries, err := marshalList(upsert.Industries)
	if err != nil {
		return nil, fmt.Errorf("failed to encode industries: %w", err)
	}
	interests, err := marshalList(upsert.Interests)
	if err != nil {
		return nil, fmt.Errorf("failed to encode interests: %w", err)
	}

	stmt := `INSERT INTO participant (id, username, location, industries, interests, created_ts, updated_ts)
		VALUES (` + placeholders(7) + `)
		ON CONFLICT(id) DO UPDATE SET
			username = excluded.username,
			location = excluded.location,
			industries = excluded.industries,
			interests = excluded.interests,
			updated_ts = excluded.updated_ts
		RETURNING created_ts`
	if err := d.db.QueryRowContext(ctx, stmt,
		upsert.ID, upsert.Username, upsert.Location, industries, interests, upsert.CreatedTs, upsert.UpdatedTs,
	).Scan(&upsert.CreatedTs); err != nil {
		return nil, fmt.Errorf("failed to upsert participant: %w", err)
	}
	return upsert, nil
}

func (d *DB) ListParticipants(ctx context.Context, find *store.FindParticipant) ([]*store.Participant, error) {
	return listParticipants(ctx, d.db, find, false)
}

func (t *txn) ListParticipants(ctx context.Context, find *store.FindParticipant) ([]*store.Participant, error) {
	return listParticipants(ctx, t.tx, find, false)
}

func (t *txn) LockParticipants(ctx context.Context, ids ...string) ([]string, error) {
	if len(ids) == 0 {
		return []string{}, nil
	}
	list, err := listParticipants(ctx, t.tx, &store.FindParticipant{IDs: ids}, true)
	if err != nil {
		return nil, err
	}
	found := make([]string, 0, len(list))
	for _, p := range list {
		found = append(found, p.ID)
	}
	return found, nil
}

func listParticipants(ctx context.Context, q querier, find *store.FindParticipant, idOnly bool) ([]*store.Participant, error) {
	where, args := []string{"1 = 1"}, []any{}

	if v := find.ID; v != nil {
		where, args = append(where, "id = "+placeholder(len(args)+1)), append(args, *v)
	}
	if len(find.IDs) > 0 {
		list := make([]string, 0, len(find.IDs))
		for _, id := range find.IDs {
			args = append(args, id)
			list = append(list, placeholder(len(args)))
		}
		where = append(where, "id IN ("+strings.Join(list, ", ")+")")
	}

	fields := "id, username, location, industries, interests, created_ts, updated_ts"
	if idOnly {
		fields = "id"
	}
	query := `SELECT ` + fields + ` FROM participant WHERE ` + strings.Join(where, " AND ") + ` ORDER BY id ASC`
	if find.Limit != nil {
		query = fmt.Sprintf("%s LIMIT %d", query, *find.Limit)
		if find.Offset != nil {
			query = fmt.Sprintf("%s OFFSET %d", query, *find.Offset)
		}
	}

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list participants: %w", err)
	}
	defer rows.Close()

	list := make([]*store.Participant, 0)
	for rows.Next() {
		p := &store.Participant{}
		if idOnly {
			if err := rows.Scan(&p.ID); err != nil {
				return nil, fmt.Errorf("failed to scan participant: %w", err)
			}
			list = append(list, p)
			continue
		}
		var industries, interests string
		if err := rows.Scan(&p.ID, &p.Username, &p.Location, &industries, &interests, &p.CreatedTs, &p.UpdatedTs); err != nil {
			return nil, fmt.Errorf("failed to scan participant: %w", err)
		}
		if p.Industries, err = unmarshalList(industries); err != nil {
			return nil, fmt.Errorf("failed to decode industries of %s: %w", p.ID, err)
		}
		if p.Interests, err = unmarshalList(interests); err != nil {
			return nil, fmt.Errorf("failed to decode interests of %s: %w", p.ID, err)
		}
		list = append(list, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate participants: %w", err)
	}
	return list, nil
}
