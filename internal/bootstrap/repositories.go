package bootstrap

import (
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/forcelink/forcelink/internal/database/postgres"
	"github.com/forcelink/forcelink/internal/repository"
)

// Repositories holds all repository implementations used by the application.
// This provides a centralized location for repository initialization and
// makes dependency injection clearer.
type Repositories struct {
	Mappings repository.Mapping
	Links    repository.Link
	Queue    repository.PushQueue
}

// InitializeRepositories creates all repository implementations.
func InitializeRepositories(dbPool *pgxpool.Pool) *Repositories {
	repos := &Repositories{
		Mappings: postgres.NewMappingRepository(dbPool),
		Links:    postgres.NewLinkRepository(dbPool),
		Queue:    postgres.NewPushQueueRepository(dbPool),
	}
	slog.Info(LogMsgRepositoriesInitialized)
	return repos
}
