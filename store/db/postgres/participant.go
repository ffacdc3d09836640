package postgres

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
		VALUES ($1, $2, $3, $4::jsonb, $5::jsonb, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			username = EXCLUDED.username,
			location = EXCLUDED.location,
			industries = EXCLUDED.industries,
			interests = EXCLUDED.interests,
			updated_ts = EXCLUDED.updated_ts
		RETURNING created_ts`
	if err := d.db.QueryRowContext(ctx, stmt,
		upsert.ID, upsert.Username, upsert.Location, industries, interests, upsert.CreatedTs, upsert.UpdatedTs,
	).Scan(&upsert.CreatedTs); err != nil {
		return nil, fmt.Errorf("failed to upsert participant: %w", err)
	}
	return upsert, nil
}

func (d *DB) ListParticipants(ctx context.Context, find *store.FindParticipant) ([]*store.Participant, error) {
	return listParticipants(ctx, d.db, find)
}

func (t *txn) ListParticipants(ctx context.Context, find *store.FindParticipant) ([]*store.Participant, error) {
	return listParticipants(ctx, t.tx, find)
}

// LockParticipants takes row locks in ascending id order.
func (t *txn) LockParticipants(ctx context.Context, ids ...string) ([]string, error) {
	if len(ids) == 0 {
		return []string{}, nil
	}
	list := make([]string, 0, len(ids))
	args := make([]any, 0, len(ids))
	for _, id := range ids {
		args = append(args, id)
		list = append(list, placeholder(len(args)))
	}
	query := `SELECT id FROM participant WHERE id IN (` + strings.Join(list, ", ") + `) ORDER BY id ASC FOR UPDATE`
	rows, err := t.tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to lock participants: %w", err)
	}
	defer rows.Close()

	found := make([]string, 0, len(ids))
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan participant: %w", err)
		}
		found = append(found, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate participants: %w", err)
	}
	return found, nil
}

func listParticipants(ctx context.Context, q querier, find *store.FindParticipant) ([]*store.Participant, error) {
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

	query := `SELECT id, username, location, industries, interests, created_ts, updated_ts FROM participant WHERE ` +
		strings.Join(where, " AND ") + ` ORDER BY id ASC`
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
		var industries, interests []byte
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
