package ports

import (
	"context"

	"github.com/contractcheck/contractcheck/internal/core/domain"
)

//go:generate mockery --name VerificationEngine --output ./mocks --outpkg mocks --case underscore
type VerificationEngine interface {
	Run(ctx context.Context) (domain.ExecutionSummary, error)
}
