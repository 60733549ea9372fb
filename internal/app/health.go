package app

import (
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taoyao-code/radio-hub/internal/health"
	"github.com/taoyao-code/radio-hub/internal/hub"
	"github.com/taoyao-code/radio-hub/internal/journal"
)

// NewHealthAggregator 集线器与主机链路检查
func NewHealthAggregator(h *hub.Hub, link *HostLink) *health.Aggregator {
	return health.NewAggregator(
		health.NewHubChecker(h),
		health.NewHostLinkChecker(link.Link.Name(), link.Conn),
	)
}

// AddDatabaseChecker 归档启用时添加数据库检查器
func AddDatabaseChecker(aggregator *health.Aggregator, pool *pgxpool.Pool, j *journal.Journal) {
	if pool != nil {
		aggregator.AddChecker(health.NewDatabaseChecker(pool, j))
	}
}
