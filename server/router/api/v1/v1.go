package v1

import (
	"context"

	"github.com/labstack/echo/v4"

	"github.com/hrygo/netvalue/internal/profile"
	"github.com/hrygo/netvalue/server/runner/recalc"
	"github.com/hrygo/netvalue/server/service/network"
	"github.com/hrygo/netvalue/server/stats"
	"github.com/hrygo/netvalue/store"
)

// Recalculator runs a full recalculation on demand.
type Recalculator interface {
	RecalculateAll(ctx context.Context) (*recalc.JobSummary, error)
}

type APIV1Service struct {
	Profile        *profile.Profile
	Store          *store.Store
	NetworkService network.Service
	Recalculator   Recalculator
	StatsCollector *stats.Collector
}

func NewAPIV1Service(profile *profile.Profile, store *store.Store, networkService network.Service, recalculator Recalculator) *APIV1Service {
	return &APIV1Service{
		Profile:        profile,
		Store:          store,
		NetworkService: networkService,
		Recalculator:   recalculator,
		StatsCollector: stats.NewCollector(store, stats.DefaultMaxAge),
	}
}

// RegisterRoutes registers the v1 API on echoServer. middlewares apply to the API group only.
func (s *APIV1Service) RegisterRoutes(echoServer *echo.Echo, middlewares ...echo.MiddlewareFunc) {
	api := echoServer.Group("/api/v1", middlewares...)

	api.PUT("/participants/:id", s.UpsertParticipant)
	api.GET("/participants/:id/connections", s.ListParticipantConnections)

	api.POST("/connections", s.CreateConnection)
	api.GET("/connections/:key", s.GetConnection)
	api.DELETE("/connections/:key", s.RemoveConnection)
	api.GET("/connections/:key/strength", s.GetConnectionStrength)
	api.PUT("/connections/:key/strength", s.UpdateConnectionStrength)

	api.GET("/network-values/top", s.GetTopNetworkValues)
	api.POST("/network-values/recalculate", s.RecalculateNetworkValues)
	api.GET("/network-values/:id", s.GetNetworkValue)
	api.POST("/network-values/:id/calculate", s.CalculateNetworkValue)

	api.GET("/stats", s.GetStats)
}
