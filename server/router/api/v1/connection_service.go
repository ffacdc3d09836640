package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/hrygo/netvalue/server/internal/errors"
	"github.com/hrygo/netvalue/store"
)

type Connection struct {
	Key         string  `json:"key"`
	UserID1     string  `json:"user_id_1"`
	UserID2     string  `json:"user_id_2"`
	Strength    float64 `json:"strength"`
	ConnectedTs int64   `json:"connected_ts"`
	UpdatedTs   int64   `json:"updated_ts"`
}

type CreateConnectionRequest struct {
	UserID1 string `json:"user_id_1"`
	UserID2 string `json:"user_id_2"`
}

type UpdateStrengthRequest struct {
	Strength *float64 `json:"strength"`
}

type ConnectionStrength struct {
	Key      string  `json:"key"`
	Estimate float64 `json:"estimate"`
}

// CreateConnection connects two participants.
// POST /api/v1/connections
func (s *APIV1Service) CreateConnection(c echo.Context) error {
	request := &CreateConnectionRequest{}
	if err := c.Bind(request); err != nil {
		return errors.Validation("invalid request body")
	}
	connection, err := s.NetworkService.CreateConnection(c.Request().Context(), request.UserID1, request.UserID2)
	if err != nil {
		return err
	}
	return respond(c, http.StatusCreated, convertConnectionFromStore(connection))
}

// GetConnection returns one connection.
// GET /api/v1/connections/:key
func (s *APIV1Service) GetConnection(c echo.Context) error {
	key, err := edgeKeyParam(c)
	if err != nil {
		return err
	}
	connection, err := s.NetworkService.GetConnection(c.Request().Context(), key)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, convertConnectionFromStore(connection))
}

// RemoveConnection deletes a connection.
// DELETE /api/v1/connections/:key
func (s *APIV1Service) RemoveConnection(c echo.Context) error {
	key, err := edgeKeyParam(c)
	if err != nil {
		return err
	}
	if err := s.NetworkService.RemoveConnection(c.Request().Context(), key); err != nil {
		return err
	}
	return respond(c, http.StatusOK, map[string]string{"key": key.String()})
}

// GetConnectionStrength returns the strength estimate of a connection.
// GET /api/v1/connections/:key/strength
func (s *APIV1Service) GetConnectionStrength(c echo.Context) error {
	key, err := edgeKeyParam(c)
	if err != nil {
		return err
	}
	estimate, err := s.NetworkService.ConnectionStrengthEstimate(c.Request().Context(), key)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, &ConnectionStrength{Key: key.String(), Estimate: estimate})
}

// UpdateConnectionStrength sets the strength of a connection.
// PUT /api/v1/connections/:key/strength
func (s *APIV1Service) UpdateConnectionStrength(c echo.Context) error {
	key, err := edgeKeyParam(c)
	if err != nil {
		return err
	}
	request := &UpdateStrengthRequest{}
	if err := c.Bind(request); err != nil {
		return errors.Validation("invalid request body")
	}
	if request.Strength == nil {
		return errors.Validation("strength is required")
	}
	connection, err := s.NetworkService.UpdateStrength(c.Request().Context(), key, *request.Strength)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, convertConnectionFromStore(connection))
}

// ListParticipantConnections returns all connections of a participant.
// GET /api/v1/participants/:id/connections
func (s *APIV1Service) ListParticipantConnections(c echo.Context) error {
	connections, err := s.NetworkService.ListParticipantConnections(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	result := make([]*Connection, 0, len(connections))
	for _, connection := range connections {
		result = append(result, convertConnectionFromStore(connection))
	}
	return respond(c, http.StatusOK, result)
}

func edgeKeyParam(c echo.Context) (store.EdgeKey, error) {
	key, err := store.ParseEdgeKey(c.Param("key"))
	if err != nil {
		return store.EdgeKey{}, errors.Validation("invalid connection key %q", c.Param("key"))
	}
	return key, nil
}

func convertConnectionFromStore(connection *store.Connection) *Connection {
	return &Connection{
		Key:         connection.Key().String(),
		UserID1:     connection.UserID1,
		UserID2:     connection.UserID2,
		Strength:    connection.Strength,
		ConnectedTs: connection.ConnectedTs,
		UpdatedTs:   connection.UpdatedTs,
	}
}
