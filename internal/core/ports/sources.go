package ports

import (
	"context"

	"github.com/contractcheck/contractcheck/internal/core/domain"
)

// PactSource resolves pact documents from somewhere: a file, a directory, a
// URL or a broker.
//
//go:generate mockery --name PactSource --output ./mocks --outpkg mocks --case underscore
type PactSource interface {
	Describe() string
	Fetch(ctx context.Context) ([]*domain.Pact, error)
}
