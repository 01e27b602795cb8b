package ports

import (
	"context"

	"github.com/contractcheck/contractcheck/internal/core/domain"
)

//go:generate mockery --name Reporter --output ./mocks --outpkg mocks --case underscore
type Reporter interface {
	Report(ctx context.Context, summary domain.ExecutionSummary) error
}

// ResultPublisher receives the per-pact outcome once every interaction of the
// pact has been verified.
//
//go:generate mockery --name ResultPublisher --output ./mocks --outpkg mocks --case underscore
type ResultPublisher interface {
	Publish(ctx context.Context, pact *domain.Pact, result domain.TestResult) error
}
