package unitofwork

import "context"

// RepositoryFactory hands out per-request units of work so services never
// share a transaction across requests.
type RepositoryFactory interface {
	NewUnitOfWork(ctx context.Context) UnitOfWork
}
