// Package network manages the connection graph between participants.
//
// Every mutation runs in one store transaction that
//   - locks both endpoints in ascending id order,
//   - applies the connection change,
//   - recomputes the local network value of both endpoints.
//
// A failed value update rolls the whole mutation back. Global convergence is
// left to the periodic recalculation job in server/runner/recalc.
package network

import (
	"context"
	"log/slog"
	"math"
	"strings"
	"time"

	pkgerrors "github.com/pkg/errors"

	"github.com/hrygo/netvalue/plugin/propagation"
	"github.com/hrygo/netvalue/server/internal/errors"
	"github.com/hrygo/netvalue/server/internal/observability"
	"github.com/hrygo/netvalue/store"
)

// Config holds the propagation parameters of the local update.
type Config struct {
	ValueScale float64
	Ceiling    float64
}

type service struct {
	store  Store
	config Config
	now    func() time.Time
}

// NewService creates a new network service.
func NewService(store Store, config Config) Service {
	if config.ValueScale <= 0 {
		config.ValueScale = propagation.DefaultValueScale
	}
	if config.Ceiling <= 0 {
		config.Ceiling = propagation.DefaultCeiling
	}
	return &service{
		store:  store,
		config: config,
		now:    time.Now,
	}
}

func (s *service) CreateConnection(ctx context.Context, a, b string) (_ *store.Connection, err error) {
	start := time.Now()
	defer func() { observability.RecordMutation(opCreateConnection, err, time.Since(start)) }()

	a, b = strings.TrimSpace(a), strings.TrimSpace(b)
	if a == "" || b == "" {
		return nil, errors.Validation("both participant ids are required")
	}
	key := store.NewEdgeKey(a, b)
	if key.IsSelfLoop() {
		return nil, errors.Validation("participant %s cannot connect to itself", a)
	}

	var created *store.Connection
	err = s.store.RunInTx(ctx, nil, func(tx store.Tx) error {
		if err := lockEndpoints(ctx, tx, key); err != nil {
			return err
		}
		existing, err := tx.ListConnections(ctx, &store.FindConnection{Key: &key})
		if err != nil {
			return err
		}
		if len(existing) > 0 {
			return errors.Conflict("connection %s already exists", key)
		}

		now := s.now().UnixNano()
		created, err = tx.CreateConnection(ctx, &store.Connection{
			UserID1:     key.UserID1,
			UserID2:     key.UserID2,
			Strength:    InitialStrength,
			ConnectedTs: now,
			UpdatedTs:   now,
		})
		if pkgerrors.Is(err, store.ErrConflict) {
			return errors.Conflict("connection %s already exists", key)
		}
		if err != nil {
			return err
		}
		return s.recompute(ctx, tx, key.UserID1, key.UserID2)
	})
	if err != nil {
		return nil, err
	}

	slog.Debug("connection created", slog.String("key", key.String()))
	return created, nil
}

func (s *service) UpdateStrength(ctx context.Context, key store.EdgeKey, strength float64) (_ *store.Connection, err error) {
	start := time.Now()
	defer func() { observability.RecordMutation(opUpdateStrength, err, time.Since(start)) }()

	if math.IsNaN(strength) || strength < 0 || strength > 1 {
		return nil, errors.Validation("strength must be within [0, 1], got %v", strength)
	}
	key = key.Canonical()
	if key.IsSelfLoop() {
		return nil, errors.Validation("invalid connection %s", key)
	}

	var updated *store.Connection
	err = s.store.RunInTx(ctx, nil, func(tx store.Tx) error {
		if err := lockEndpoints(ctx, tx, key); err != nil {
			return err
		}
		var err error
		updated, err = tx.UpdateConnectionStrength(ctx, key, strength, s.now().UnixNano())
		if pkgerrors.Is(err, store.ErrNotFound) {
			return errors.NotFound("connection %s not found", key)
		}
		if err != nil {
			return err
		}
		return s.recompute(ctx, tx, key.UserID1, key.UserID2)
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *service) RemoveConnection(ctx context.Context, key store.EdgeKey) (err error) {
	start := time.Now()
	defer func() { observability.RecordMutation(opRemoveConnection, err, time.Since(start)) }()

	key = key.Canonical()
	if key.IsSelfLoop() {
		return errors.NotFound("connection %s not found", key)
	}

	return s.store.RunInTx(ctx, nil, func(tx store.Tx) error {
		if err := lockEndpoints(ctx, tx, key); err != nil {
			return err
		}
		err := tx.DeleteConnection(ctx, key)
		if pkgerrors.Is(err, store.ErrNotFound) {
			return errors.NotFound("connection %s not found", key)
		}
		if err != nil {
			return err
		}
		return s.recompute(ctx, tx, key.UserID1, key.UserID2)
	})
}

func (s *service) ComputeNetworkValue(ctx context.Context, userID string) (_ *store.NetworkValue, err error) {
	start := time.Now()
	defer func() { observability.RecordMutation(opComputeValue, err, time.Since(start)) }()

	var value *store.NetworkValue
	err = s.store.RunInTx(ctx, nil, func(tx store.Tx) error {
		found, err := tx.LockParticipants(ctx, userID)
		if err != nil {
			return err
		}
		if len(found) == 0 {
			return errors.NotFound("participant %s not found", userID)
		}
		if err := s.recompute(ctx, tx, userID); err != nil {
			return err
		}
		values, err := tx.ListNetworkValues(ctx, &store.FindNetworkValue{UserID: &userID})
		if err != nil {
			return err
		}
		if len(values) == 0 {
			return errors.ConsistencyFailure("value missing after recompute", store.ErrNotFound)
		}
		value = values[0]
		return nil
	})
	if err != nil {
		return nil, err
	}
	return value, nil
}

func (s *service) GetConnection(ctx context.Context, key store.EdgeKey) (*store.Connection, error) {
	connection, err := s.store.GetConnection(ctx, key.Canonical())
	if pkgerrors.Is(err, store.ErrNotFound) {
		return nil, errors.NotFound("connection %s not found", key.Canonical())
	}
	return connection, err
}

func (s *service) ListParticipantConnections(ctx context.Context, userID string) ([]*store.Connection, error) {
	exists, err := NewDirectory(s.store).Exists(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, errors.NotFound("participant %s not found", userID)
	}
	return s.store.ListConnections(ctx, &store.FindConnection{UserID: &userID})
}

func (s *service) GetNetworkValue(ctx context.Context, userID string) (*store.NetworkValue, error) {
	value, err := s.store.GetNetworkValue(ctx, userID)
	if pkgerrors.Is(err, store.ErrNotFound) {
		return nil, errors.NotFound("network value for %s not found", userID)
	}
	return value, err
}

func (s *service) GetTopNetworkValues(ctx context.Context, limit int) ([]*RankedValue, error) {
	if limit <= 0 {
		limit = DefaultTopLimit
	}
	if limit > MaxTopLimit {
		limit = MaxTopLimit
	}
	values, err := s.store.ListNetworkValues(ctx, &store.FindNetworkValue{Limit: &limit})
	if err != nil {
		return nil, err
	}
	if len(values) == 0 {
		return []*RankedValue{}, nil
	}

	ids := make([]string, 0, len(values))
	for _, v := range values {
		ids = append(ids, v.UserID)
	}
	participants, err := s.store.ListParticipants(ctx, &store.FindParticipant{IDs: ids})
	if err != nil {
		return nil, err
	}
	usernames := make(map[string]string, len(participants))
	for _, p := range participants {
		usernames[p.ID] = p.Username
	}

	ranked := make([]*RankedValue, 0, len(values))
	for _, v := range values {
		ranked = append(ranked, &RankedValue{
			UserID:       v.UserID,
			Username:     usernames[v.UserID],
			Value:        v.Value,
			CalculatedTs: v.CalculatedTs,
		})
	}
	return ranked, nil
}

// lockEndpoints locks both participants of key and fails with NotFound when either is missing.
func lockEndpoints(ctx context.Context, tx store.Tx, key store.EdgeKey) error {
	found, err := tx.LockParticipants(ctx, key.UserID1, key.UserID2)
	if err != nil {
		return err
	}
	present := make(map[string]bool, len(found))
	for _, id := range found {
		present[id] = true
	}
	for _, id := range []string{key.UserID1, key.UserID2} {
		if !present[id] {
			return errors.NotFound("participant %s not found", id)
		}
	}
	return nil
}

// recompute runs the local update for ids inside tx. All reads happen before
// any write, so every id is computed from the same committed neighbour values.
func (s *service) recompute(ctx context.Context, tx store.Tx, ids ...string) error {
	values, err := s.localValues(ctx, tx, ids)
	if err != nil {
		return errors.ConsistencyFailure("failed to compute local values", err)
	}

	now := s.now().UnixNano()
	for _, id := range ids {
		if _, err := tx.UpsertNetworkValue(ctx, &store.NetworkValue{
			UserID:       id,
			Value:        values[id],
			CalculatedTs: now,
		}); err != nil {
			return errors.ConsistencyFailure("failed to store network value", err).WithContext("user_id", id)
		}
	}
	return nil
}

func (s *service) localValues(ctx context.Context, tx store.Tx, ids []string) (map[string]float64, error) {
	neighbors := make(map[string][]*store.Neighbor, len(ids))
	involved := make([]string, 0, len(ids))
	seen := map[string]bool{}
	add := func(id string) {
		if !seen[id] {
			seen[id] = true
			involved = append(involved, id)
		}
	}
	for _, id := range ids {
		add(id)
		list, err := tx.ListNeighbors(ctx, id)
		if err != nil {
			return nil, err
		}
		neighbors[id] = list
		for _, n := range list {
			add(n.ID)
		}
	}

	completeness, err := NewDirectory(tx).ListProfileCompleteness(ctx, involved)
	if err != nil {
		return nil, err
	}
	stored, err := tx.ListNetworkValues(ctx, &store.FindNetworkValue{UserIDs: involved})
	if err != nil {
		return nil, err
	}
	last := make(map[string]float64, len(stored))
	for _, v := range stored {
		last[v.UserID] = v.Value
	}

	result := make(map[string]float64, len(ids))
	for _, id := range ids {
		contributions := make([]propagation.Contribution, 0, len(neighbors[id]))
		for _, n := range neighbors[id] {
			value, ok := last[n.ID]
			if !ok {
				value = propagation.Base(completeness[n.ID], s.config.ValueScale)
			}
			contributions = append(contributions, propagation.Contribution{Strength: n.Strength, Value: value})
		}
		base := propagation.Base(completeness[id], s.config.ValueScale)
		result[id] = propagation.LocalValue(base, contributions, s.config.Ceiling)
	}
	return result, nil
}
