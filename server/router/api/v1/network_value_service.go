package v1

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/hrygo/netvalue/server/internal/errors"
	"github.com/hrygo/netvalue/server/internal/observability"
	"github.com/hrygo/netvalue/store"
)

type NetworkValue struct {
	UserID       string  `json:"user_id"`
	Value        float64 `json:"value"`
	CalculatedTs int64   `json:"calculated_ts"`
}

type RankedNetworkValue struct {
	Rank         int     `json:"rank"`
	UserID       string  `json:"user_id"`
	Username     string  `json:"username"`
	Value        float64 `json:"value"`
	CalculatedTs int64   `json:"calculated_ts"`
}

// GetNetworkValue returns the stored value of a participant.
// GET /api/v1/network-values/:id
func (s *APIV1Service) GetNetworkValue(c echo.Context) error {
	value, err := s.NetworkService.GetNetworkValue(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, convertNetworkValueFromStore(value))
}

// CalculateNetworkValue recomputes the local value of a participant.
// POST /api/v1/network-values/:id/calculate
func (s *APIV1Service) CalculateNetworkValue(c echo.Context) error {
	value, err := s.NetworkService.ComputeNetworkValue(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, convertNetworkValueFromStore(value))
}

// GetTopNetworkValues returns the ranking.
// GET /api/v1/network-values/top?limit=N
func (s *APIV1Service) GetTopNetworkValues(c echo.Context) error {
	limit := 0
	if raw := c.QueryParam("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			return errors.Validation("limit must be a positive integer, got %q", raw)
		}
		limit = parsed
	}

	values, err := s.NetworkService.GetTopNetworkValues(c.Request().Context(), limit)
	if err != nil {
		return err
	}
	result := make([]*RankedNetworkValue, 0, len(values))
	for i, v := range values {
		result = append(result, &RankedNetworkValue{
			Rank:         i + 1,
			UserID:       v.UserID,
			Username:     v.Username,
			Value:        v.Value,
			CalculatedTs: v.CalculatedTs,
		})
	}
	return respond(c, http.StatusOK, result)
}

// RecalculateNetworkValues runs the full recalculation and returns its summary.
// POST /api/v1/network-values/recalculate
func (s *APIV1Service) RecalculateNetworkValues(c echo.Context) error {
	ctx := c.Request().Context()
	summary, err := s.Recalculator.RecalculateAll(ctx)
	if err != nil {
		return err
	}
	if summary.FailedChunks > 0 {
		observability.LoggerFromContext(ctx).Warn("recalculation finished with failed chunks",
			"failed_chunks", summary.FailedChunks)
	}
	return respond(c, http.StatusOK, summary)
}

func convertNetworkValueFromStore(value *store.NetworkValue) *NetworkValue {
	return &NetworkValue{
		UserID:       value.UserID,
		Value:        value.Value,
		CalculatedTs: value.CalculatedTs,
	}
}
