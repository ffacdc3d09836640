package network

import (
	"context"
	"math"
	"strings"

	pkgerrors "github.com/pkg/errors"

	"github.com/hrygo/netvalue/server/internal/errors"
	"github.com/hrygo/netvalue/store"
)

// ConnectionStrengthEstimate returns min(1, 0.3·shared industries + 0.2·shared interests + 0.5·strength).
// Attributes are compared case-insensitively.
func (s *service) ConnectionStrengthEstimate(ctx context.Context, key store.EdgeKey) (float64, error) {
	key = key.Canonical()
	connection, err := s.store.GetConnection(ctx, key)
	if pkgerrors.Is(err, store.ErrNotFound) {
		return 0, errors.NotFound("connection %s not found", key)
	}
	if err != nil {
		return 0, err
	}

	participants, err := s.store.ListParticipants(ctx, &store.FindParticipant{IDs: []string{key.UserID1, key.UserID2}})
	if err != nil {
		return 0, err
	}
	if len(participants) != 2 {
		return 0, errors.NotFound("participants of %s not found", key)
	}

	sharedIndustries := countShared(participants[0].Industries, participants[1].Industries)
	sharedInterests := countShared(participants[0].Interests, participants[1].Interests)
	score := float64(sharedIndustries)*sharedIndustryWeight +
		float64(sharedInterests)*sharedInterestWeight +
		connection.Strength*strengthWeight
	return math.Min(1, score), nil
}

func countShared(a, b []string) int {
	set := make(map[string]bool, len(a))
	for _, v := range a {
		set[strings.ToLower(strings.TrimSpace(v))] = true
	}
	shared := 0
	for _, v := range b {
		k := strings.ToLower(strings.TrimSpace(v))
		if set[k] {
			shared++
			delete(set, k)
		}
	}
	return shared
}
