package store

import "strings"

// Participant is a node of the connection graph.
// Participants are registered by the user directory and never deleted here.
type Participant struct {
	ID         string
	Username   string
	Location   string
	Industries []string
	Interests  []string
	CreatedTs  int64
	UpdatedTs  int64
}

func (p *Participant) HasUsername() bool {
	return strings.TrimSpace(p.Username) != ""
}

func (p *Participant) HasLocation() bool {
	return strings.TrimSpace(p.Location) != ""
}

type FindParticipant struct {
	ID  *string
	IDs []string

	// Pagination
	Limit  *int
	Offset *int
}

// ValidateParticipantID reports whether id can be used as a participant id.
// The edge key separator is reserved.
func ValidateParticipantID(id string) bool {
	return id != "" && !strings.Contains(id, EdgeKeySeparator) && len(id) <= 256
}
