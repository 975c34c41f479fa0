package health

import "context"

// DBPinger checks metadata store availability.
type DBPinger interface {
	Ping(ctx context.Context) error
}

// ProviderChecker checks a remote model provider (embedding, inference).
type ProviderChecker interface {
	HealthCheck(ctx context.Context) error
}
