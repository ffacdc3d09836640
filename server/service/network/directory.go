package network

import (
	"context"

	"github.com/hrygo/netvalue/plugin/propagation"
	"github.com/hrygo/netvalue/store"
)

// Directory answers participant existence and profile completeness.
type Directory interface {
	Exists(ctx context.Context, userID string) (bool, error)
	GetProfileCompleteness(ctx context.Context, userID string) (*propagation.Completeness, error)
	// ListProfileCompleteness returns the completeness of every existing id. Unknown ids are absent.
	ListProfileCompleteness(ctx context.Context, userIDs []string) (map[string]propagation.Completeness, error)
}

// ParticipantReader is satisfied by *store.Store and store.Tx.
type ParticipantReader interface {
	ListParticipants(ctx context.Context, find *store.FindParticipant) ([]*store.Participant, error)
}

type participantDirectory struct {
	reader ParticipantReader
}

// NewDirectory returns a Directory backed by the participant table.
// Pass a store.Tx to read inside a transaction.
func NewDirectory(reader ParticipantReader) Directory {
	return &participantDirectory{reader: reader}
}

func (d *participantDirectory) Exists(ctx context.Context, userID string) (bool, error) {
	list, err := d.reader.ListParticipants(ctx, &store.FindParticipant{ID: &userID})
	if err != nil {
		return false, err
	}
	return len(list) > 0, nil
}

func (d *participantDirectory) GetProfileCompleteness(ctx context.Context, userID string) (*propagation.Completeness, error) {
	list, err := d.reader.ListParticipants(ctx, &store.FindParticipant{ID: &userID})
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, store.ErrNotFound
	}
	c := CompletenessOf(list[0])
	return &c, nil
}

func (d *participantDirectory) ListProfileCompleteness(ctx context.Context, userIDs []string) (map[string]propagation.Completeness, error) {
	result := make(map[string]propagation.Completeness, len(userIDs))
	if len(userIDs) == 0 {
		return result, nil
	}
	list, err := d.reader.ListParticipants(ctx, &store.FindParticipant{IDs: userIDs})
	if err != nil {
		return nil, err
	}
	for _, p := range list {
		result[p.ID] = CompletenessOf(p)
	}
	return result, nil
}

// CompletenessOf derives the base value inputs of a participant.
func CompletenessOf(p *store.Participant) propagation.Completeness {
	return propagation.Completeness{
		HasUsername:   p.HasUsername(),
		HasLocation:   p.HasLocation(),
		IndustryCount: len(p.Industries),
		InterestCount: len(p.Interests),
	}
}
