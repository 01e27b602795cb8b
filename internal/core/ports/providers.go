package ports

import (
	"context"

	"github.com/contractcheck/contractcheck/internal/core/domain"
)

// ProviderClient replays consumer expectations against the provider under
// test.
//
//go:generate mockery --name ProviderClient --output ./mocks --outpkg mocks --case underscore
type ProviderClient interface {
	// Execute sends the request to the provider and returns the response it
	// gave. A returned error means the request could not be delivered at all.
	Execute(ctx context.Context, request *domain.Request) (*domain.Response, error)
	// ExecuteMessage asks the provider to produce the message described by
	// the interaction.
	ExecuteMessage(ctx context.Context, interaction *domain.Interaction) (*domain.Message, error)
}

// ProviderStateExecutor drives the provider's state change handler before and
// after each interaction.
//
//go:generate mockery --name ProviderStateExecutor --output ./mocks --outpkg mocks --case underscore
type ProviderStateExecutor interface {
	// Setup puts the provider into the given state. The returned values, if
	// any, are substituted into ${key} expressions of the interaction before
	// replay.
	Setup(ctx context.Context, interaction *domain.Interaction, state domain.ProviderState) (map[string]any, error)
	Teardown(ctx context.Context, interaction *domain.Interaction, state domain.ProviderState) error
}

// RequestFilter mutates an outgoing request before replay, typically to
// inject credentials the consumer test could not know.
type RequestFilter func(request *domain.Request)
