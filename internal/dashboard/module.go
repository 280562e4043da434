package dashboard

import (
	apphttp "claimdesk_backend/internal/http"
	"claimdesk_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
)

// StatsResponse is the dashboard header: raw counters plus display strings.
type StatsResponse struct {
	Snapshot
	Display Display `json:"display"`
}

// Module serves the dashboard stats and the live event stream.
type Module struct {
	stats  *Stats
	stream gin.HandlerFunc
}

// NewModule creates the dashboard module. stream is the SSE handler; it is
// optional.
func NewModule(stats *Stats, stream gin.HandlerFunc) *Module {
	return &Module{stats: stats, stream: stream}
}

// Name returns the module name for logging.
func (m *Module) Name() string {
	return "dashboard"
}

// RegisterRoutes registers the dashboard routes.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	rg := ctx.Protected.Group("/dashboard", httpkit.RequireRole(httpkit.RoleCompanyAdmin))
	rg.GET("/stats", m.getStats)
	if m.stream != nil {
		rg.GET("/stream", m.stream)
	}
}

func (m *Module) getStats(c *gin.Context) {
	snap := m.stats.Snapshot()
	httpkit.OK(c, StatsResponse{Snapshot: snap, Display: snap.Display()})
}

var _ apphttp.Module = (*Module)(nil)
