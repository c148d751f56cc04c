package providers

import (
	"github.com/ggoodman/mcp-server-go/mcpservice"
	"github.com/samber/do/v2"

	"github.com/openshelf/openshelf-server/internal/catalog"
	"github.com/openshelf/openshelf-server/internal/circulation"
	"github.com/openshelf/openshelf-server/internal/config"
	"github.com/openshelf/openshelf-server/internal/logger"
	"github.com/openshelf/openshelf-server/internal/mcp"
)

// ProvideMCPServer provides the assembled MCP server capabilities.
func ProvideMCPServer(i do.Injector) (mcpservice.ServerCapabilities, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	engine := do.MustInvoke[*circulation.Engine](i)
	cat := do.MustInvoke[*catalog.Service](i)
	limiter := do.MustInvoke[*RateLimiterHandle](i)

	return mcp.NewServer(mcp.Options{
		Name:    cfg.Server.Name,
		Version: cfg.Server.Version,
		Engine:  engine,
		Catalog: cat,
		Limiter: limiter.KeyedRateLimiter,
		Logger:  log.Logger,
	}), nil
}
