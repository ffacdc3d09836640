package sqlite

import (
	"context"
	"fmt"
	"strings"

	"github.com/hrygo/netvalue/store"
)

func (d *DB) ListNetworkValues(ctx context.Context, find *store.FindNetworkValue) ([]*store.NetworkValue, error) {
	return listNetworkValues(ctx, d.db, find)
}

func (t *txn) ListNetworkValues(ctx context.Context, find *store.FindNetworkValue) ([]*store.NetworkValue, error) {
	return listNetworkValues(ctx, t.tx, find)
}

func (t *txn) UpsertNetworkValue(ctx context.Context, upsert *store.NetworkValue) (*store.NetworkValue, error) {
	stmt := `INSERT INTO network_value (user_id, value, calculated_ts) VALUES (?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET value = excluded.value, calculated_ts = excluded.calculated_ts`
	if _, err := t.tx.ExecContext(ctx, stmt, upsert.UserID, upsert.Value, upsert.CalculatedTs); err != nil {
		return nil, fmt.Errorf("failed to upsert network value: %w", err)
	}
	return upsert, nil
}

func (t *txn) UpsertNetworkValueIfUnchanged(ctx context.Context, upsert *store.NetworkValue, seenTs *int64) (bool, error) {
	var (
		stmt string
		args []any
	)
	if seenTs == nil {
		stmt = `INSERT INTO network_value (user_id, value, calculated_ts) VALUES (?, ?, ?)
		ON CONFLICT(user_id) DO NOTHING`
		args = []any{upsert.UserID, upsert.Value, upsert.CalculatedTs}
	} else {
		stmt = `UPDATE network_value SET value = ?, calculated_ts = ? WHERE user_id = ? AND calculated_ts = ?`
		args = []any{upsert.Value, upsert.CalculatedTs, upsert.UserID, *seenTs}
	}
	result, err := t.tx.ExecContext(ctx, stmt, args...)
	if err != nil {
		return false, fmt.Errorf("failed to upsert network value: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return affected > 0, nil
}

func listNetworkValues(ctx context.Context, q querier, find *store.FindNetworkValue) ([]*store.NetworkValue, error) {
	where, args := []string{"1 = 1"}, []any{}

	if v := find.UserID; v != nil {
		where, args = append(where, "user_id = "+placeholder(len(args)+1)), append(args, *v)
	}
	if len(find.UserIDs) > 0 {
		list := make([]string, 0, len(find.UserIDs))
		for _, id := range find.UserIDs {
			args = append(args, id)
			list = append(list, placeholder(len(args)))
		}
		where = append(where, "user_id IN ("+strings.Join(list, ", ")+")")
	}

	query := `SELECT user_id, value, calculated_ts FROM network_value WHERE ` + strings.Join(where, " AND ") +
		` ORDER BY value DESC, user_id ASC`
	if find.Limit != nil {
		query = fmt.Sprintf("%s LIMIT %d", query, *find.Limit)
	}

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list network values: %w", err)
	}
	defer rows.Close()

	list := make([]*store.NetworkValue, 0)
	for rows.Next() {
		v := &store.NetworkValue{}
		if err := rows.Scan(&v.UserID, &v.Value, &v.CalculatedTs); err != nil {
			return nil, fmt.Errorf("failed to scan network value: %w", err)
		}
		list = append(list, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate network values: %w", err)
	}
	return list, nil
}
