package v1

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/hrygo/netvalue/server/internal/errors"
	"github.com/hrygo/netvalue/store"
)

type Participant struct {
	ID         string   `json:"id"`
	Username   string   `json:"username"`
	Location   string   `json:"location"`
	Industries []string `json:"industries"`
	Interests  []string `json:"interests"`
	CreatedTs  int64    `json:"created_ts"`
	UpdatedTs  int64    `json:"updated_ts"`
}

type UpsertParticipantRequest struct {
	Username   string   `json:"username"`
	Location   string   `json:"location"`
	Industries []string `json:"industries"`
	Interests  []string `json:"interests"`
}

// UpsertParticipant registers a participant or replaces its profile attributes.
// The new completeness takes effect at the next value computation.
// PUT /api/v1/participants/:id
func (s *APIV1Service) UpsertParticipant(c echo.Context) error {
	id := strings.TrimSpace(c.Param("id"))
	if !store.ValidateParticipantID(id) {
		return errors.Validation("invalid participant id %q", id)
	}
	request := &UpsertParticipantRequest{}
	if err := c.Bind(request); err != nil {
		return errors.Validation("invalid request body")
	}

	now := time.Now().UnixNano()
	participant, err := s.Store.UpsertParticipant(c.Request().Context(), &store.Participant{
		ID:         id,
		Username:   strings.TrimSpace(request.Username),
		Location:   strings.TrimSpace(request.Location),
		Industries: request.Industries,
		Interests:  request.Interests,
		CreatedTs:  now,
		UpdatedTs:  now,
	})
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, convertParticipantFromStore(participant))
}

func convertParticipantFromStore(participant *store.Participant) *Participant {
	industries := participant.Industries
	if industries == nil {
		industries = []string{}
	}
	interests := participant.Interests
	if interests == nil {
		interests = []string{}
	}
	return &Participant{
		ID:         participant.ID,
		Username:   participant.Username,
		Location:   participant.Location,
		Industries: industries,
		Interests:  interests,
		CreatedTs:  participant.CreatedTs,
		UpdatedTs:  participant.UpdatedTs,
	}
}
