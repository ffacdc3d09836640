package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// GetStats returns graph and network value statistics.
// GET /api/v1/stats
func (s *APIV1Service) GetStats(c echo.Context) error {
	stats, err := s.StatsCollector.GetStats(c.Request().Context())
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, stats)
}
