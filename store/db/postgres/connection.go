package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"github.com/hrygo/netvalue/store"
)

func (d *DB) ListConnections(ctx context.Context, find *store.FindConnection) ([]*store.Connection, error) {
	return listConnections(ctx, d.db, find)
}

func (t *txn) ListConnections(ctx context.Context, find *store.FindConnection) ([]*store.Connection, error) {
	return listConnections(ctx, t.tx, find)
}

func (d *DB) ListNeighbors(ctx context.Context, userID string) ([]*store.Neighbor, error) {
	return listNeighbors(ctx, d.db, userID)
}

func (t *txn) ListNeighbors(ctx context.Context, userID string) ([]*store.Neighbor, error) {
	return listNeighbors(ctx, t.tx, userID)
}

func (t *txn) CreateConnection(ctx context.Context, create *store.Connection) (*store.Connection, error) {
	key := store.NewEdgeKey(create.UserID1, create.UserID2)
	if key.IsSelfLoop() {
		return nil, errors.Errorf("self connection %s", key)
	}
	create.UserID1, create.UserID2 = key.UserID1, key.UserID2

	fields := []string{"user_id_1", "user_id_2", "strength", "connected_ts", "updated_ts"}
	args := []any{create.UserID1, create.UserID2, create.Strength, create.ConnectedTs, create.UpdatedTs}
	stmt := `INSERT INTO connection (` + strings.Join(fields, ", ") + `) VALUES (` + placeholders(len(args)) + `)`
	if _, err := t.tx.ExecContext(ctx, stmt, args...); err != nil {
		if isUniqueViolation(err) {
			return nil, errors.Wrapf(store.ErrConflict, "connection %s", key)
		}
		return nil, fmt.Errorf("failed to create connection: %w", err)
	}
	return create, nil
}

func (t *txn) UpdateConnectionStrength(ctx context.Context, key store.EdgeKey, strength float64, updatedTs int64) (*store.Connection, error) {
	key = key.Canonical()
	stmt := `UPDATE connection SET strength = $1, updated_ts = $2 WHERE user_id_1 = $3 AND user_id_2 = $4
		RETURNING user_id_1, user_id_2, strength, connected_ts, updated_ts`
	c := &store.Connection{}
	err := t.tx.QueryRowContext(ctx, stmt, strength, updatedTs, key.UserID1, key.UserID2).
		Scan(&c.UserID1, &c.UserID2, &c.Strength, &c.ConnectedTs, &c.UpdatedTs)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errors.Wrapf(store.ErrNotFound, "connection %s", key)
		}
		return nil, fmt.Errorf("failed to update connection: %w", err)
	}
	return c, nil
}

func (t *txn) DeleteConnection(ctx context.Context, key store.EdgeKey) error {
	key = key.Canonical()
	result, err := t.tx.ExecContext(ctx, "DELETE FROM connection WHERE user_id_1 = $1 AND user_id_2 = $2", key.UserID1, key.UserID2)
	if err != nil {
		return fmt.Errorf("failed to delete connection: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return errors.Wrapf(store.ErrNotFound, "connection %s", key)
	}
	return nil
}

func listConnections(ctx context.Context, q querier, find *store.FindConnection) ([]*store.Connection, error) {
	where, args := []string{"1 = 1"}, []any{}

	if find.Key != nil {
		key := find.Key.Canonical()
		where, args = append(where, "user_id_1 = "+placeholder(len(args)+1)), append(args, key.UserID1)
		where, args = append(where, "user_id_2 = "+placeholder(len(args)+1)), append(args, key.UserID2)
	}
	if find.UserID != nil {
		where = append(where, "(user_id_1 = "+placeholder(len(args)+1)+" OR user_id_2 = "+placeholder(len(args)+2)+")")
		args = append(args, *find.UserID, *find.UserID)
	}

	query := `SELECT user_id_1, user_id_2, strength, connected_ts, updated_ts FROM connection WHERE ` +
		strings.Join(where, " AND ") + ` ORDER BY user_id_1 ASC, user_id_2 ASC`
	if find.Limit != nil {
		query = fmt.Sprintf("%s LIMIT %d", query, *find.Limit)
	}

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list connections: %w", err)
	}
	defer rows.Close()

	list := make([]*store.Connection, 0)
	for rows.Next() {
		c := &store.Connection{}
		if err := rows.Scan(&c.UserID1, &c.UserID2, &c.Strength, &c.ConnectedTs, &c.UpdatedTs); err != nil {
			return nil, fmt.Errorf("failed to scan connection: %w", err)
		}
		list = append(list, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate connections: %w", err)
	}
	return list, nil
}

func listNeighbors(ctx context.Context, q querier, userID string) ([]*store.Neighbor, error) {
	query := `SELECT user_id_2 AS neighbor_id, strength FROM connection WHERE user_id_1 = $1
		UNION ALL
		SELECT user_id_1 AS neighbor_id, strength FROM connection WHERE user_id_2 = $1
		ORDER BY neighbor_id ASC`
	rows, err := q.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list neighbors: %w", err)
	}
	defer rows.Close()

	list := make([]*store.Neighbor, 0)
	for rows.Next() {
		n := &store.Neighbor{}
		if err := rows.Scan(&n.ID, &n.Strength); err != nil {
			return nil, fmt.Errorf("failed to scan neighbor: %w", err)
		}
		list = append(list, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate neighbors: %w", err)
	}
	return list, nil
}
