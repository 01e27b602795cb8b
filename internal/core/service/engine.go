package service

import (
	"context"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/contractcheck/contractcheck/internal/core/domain"
	"github.com/contractcheck/contractcheck/internal/core/ports"
	"github.com/contractcheck/contractcheck/internal/errors"
	"github.com/contractcheck/contractcheck/internal/matching"
)

const (
	setupFailedMessage    = "One or more of the setup state change handlers has failed"
	teardownFailedMessage = "One or more of the teardown state change handlers has failed"
)

// VerificationEngine fetches pacts from the configured sources, replays each
// interaction against the provider and aggregates the comparison results.
type VerificationEngine struct {
	sources     []ports.PactSource
	client      ports.ProviderClient
	states      ports.ProviderStateExecutor
	reporter    ports.Reporter
	publisher   ports.ResultPublisher
	filter      ports.RequestFilter
	selector    *interactionSelector
	logger      ports.Logger
	concurrency int
	limiter     *rate.Limiter
}

type EngineOption func(*VerificationEngine)

// WithPublisher enables publishing of verification results after each pact.
func WithPublisher(publisher ports.ResultPublisher) EngineOption {
	return func(e *VerificationEngine) { e.publisher = publisher }
}

// WithRequestFilter installs a hook that may mutate every replayed request,
// typically to inject credentials.
func WithRequestFilter(filter ports.RequestFilter) EngineOption {
	return func(e *VerificationEngine) { e.filter = filter }
}

// WithConcurrency bounds how many interactions of a pact are verified at
// once. Defaults to 10.
func WithConcurrency(n int) EngineOption {
	return func(e *VerificationEngine) {
		if n > 0 {
			e.concurrency = n
		}
	}
}

// WithRequestsPerSecond throttles requests to the provider.
func WithRequestsPerSecond(rps float64) EngineOption {
	return func(e *VerificationEngine) {
		if rps > 0 {
			e.limiter = rate.NewLimiter(rate.Limit(rps), 1)
		}
	}
}

func NewVerificationEngine(
	sources []ports.PactSource,
	client ports.ProviderClient,
	states ports.ProviderStateExecutor,
	reporter ports.Reporter,
	filter InteractionFilter,
	logger ports.Logger,
	opts ...EngineOption,
) (*VerificationEngine, error) {
	if len(sources) == 0 {
		return nil, errors.New(errors.CodeConfigValidation, "at least one pact source must be configured")
	}
	if client == nil {
		return nil, errors.New(errors.CodeConfigValidation, "provider client cannot be nil")
	}
	if states == nil {
		return nil, errors.New(errors.CodeConfigValidation, "provider state executor cannot be nil")
	}
	if reporter == nil {
		return nil, errors.New(errors.CodeConfigValidation, "reporter cannot be nil")
	}

	selector, err := filter.compile()
	if err != nil {
		return nil, err
	}

	return &VerificationEngine{
		sources:     sources,
		client:      client,
		states:      states,
		reporter:    reporter,
		selector:    selector,
		logger:      logger,
		concurrency: 10,
	}, nil
}

func (e *VerificationEngine) Run(ctx context.Context) (domain.ExecutionSummary, error) {
	log := e.logger.WithFields(map[string]any{"run_id": uuid.NewString()})

	pacts, err := e.fetchPacts(ctx, log)
	if err != nil {
		return domain.ExecutionSummary{}, err
	}
	log.Infof(ctx, "Verifying %d pact(s)", len(pacts))

	var summary domain.ExecutionSummary
	for _, pact := range pacts {
		if !e.selector.matchesConsumer(pact.Consumer) {
			log.Debugf(ctx, "Skipping pact for consumer %s, filtered out", pact.Consumer)
			continue
		}

		result := e.verifyPact(ctx, log, pact)
		summary.Pacts = append(summary.Pacts, result)
		summary.PendingFailures += len(result.PendingFailures())

		if e.publisher != nil {
			if err := e.publisher.Publish(ctx, pact, domain.NewTestResult(result)); err != nil {
				log.Errorf(ctx, err, "failed to publish verification results for %s/%s",
					pact.Consumer, pact.Provider)
				return summary, err
			}
		}
	}

	if err := e.reporter.Report(ctx, summary); err != nil {
		return summary, errors.Wrap(err, errors.CodeInternal, "failed to generate the verification report")
	}
	return summary, nil
}

func (e *VerificationEngine) fetchPacts(ctx context.Context, log ports.Logger) ([]*domain.Pact, error) {
	var pacts []*domain.Pact
	for _, source := range e.sources {
		log.Debugf(ctx, "Fetching pacts from %s", source.Describe())
		fetched, err := source.Fetch(ctx)
		if err != nil {
			return nil, err
		}
		pacts = append(pacts, fetched...)
	}
	return pacts, nil
}

// verifyPact runs the pact's interactions concurrently, bounded by the
// configured concurrency. Results keep the declared interaction order.
func (e *VerificationEngine) verifyPact(ctx context.Context, log ports.Logger, pact *domain.Pact) domain.PactVerificationResult {
	result := domain.PactVerificationResult{
		Consumer: pact.Consumer,
		Provider: pact.Provider,
		Source:   pact.Source,
		Pending:  pact.Pending,
		Notices:  pact.Notices,
	}

	var selected []*domain.Interaction
	for i := range pact.Interactions {
		interaction := &pact.Interactions[i]
		if !e.selector.matchesInteraction(interaction) {
			log.Debugf(ctx, "Skipping interaction %q, filtered out", interaction.Description)
			continue
		}
		selected = append(selected, interaction)
	}

	results := make([]domain.InteractionResult, len(selected))
	g, childCtx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)
	for i, interaction := range selected {
		i, interaction := i, interaction
		g.Go(func() error {
			results[i] = e.verifyInteraction(childCtx, log, pact, interaction)
			return nil
		})
	}
	g.Wait() //nolint:errcheck // workers never return errors

	result.Results = results
	return result
}

func (e *VerificationEngine) verifyInteraction(ctx context.Context, log ports.Logger, pact *domain.Pact, interaction *domain.Interaction) domain.InteractionResult {
	log = log.WithFields(map[string]any{
		"consumer":    pact.Consumer,
		"provider":    pact.Provider,
		"interaction": interaction.Description,
	})

	result := domain.InteractionResult{
		InteractionID: interactionID(interaction),
		Description:   interaction.Description,
		State:         interaction.DisplayState(),
		Status:        domain.StatusPassed,
		Pending:       interaction.Pending || pact.Pending,
	}

	generated, err := e.setupStates(ctx, log, interaction)
	if err != nil {
		result.Status = domain.StatusError
		result.Error = err
		return result
	}

	e.replayAndCompare(ctx, log, interaction, generated, &result)

	if err := e.teardownStates(ctx, log, interaction); err != nil {
		result.Status = domain.StatusError
		result.Error = err
	}
	return result
}

// setupStates runs the setup handlers in declared order and merges the values
// they return for generator substitution. A failing handler aborts the
// interaction; its teardown never runs.
func (e *VerificationEngine) setupStates(ctx context.Context, log ports.Logger, interaction *domain.Interaction) (map[string]any, error) {
	generated := map[string]any{}
	for _, state := range interaction.ProviderStates {
		values, err := e.states.Setup(ctx, interaction, state)
		if err != nil {
			log.Errorf(ctx, err, "setup of provider state %q failed", state.Name)
			return nil, errors.New(errors.CodeStateChangeError, setupFailedMessage)
		}
		for key, value := range values {
			generated[key] = value
		}
	}
	return generated, nil
}

func (e *VerificationEngine) teardownStates(ctx context.Context, log ports.Logger, interaction *domain.Interaction) error {
	failed := false
	for _, state := range interaction.ProviderStates {
		if err := e.states.Teardown(ctx, interaction, state); err != nil {
			log.Errorf(ctx, err, "teardown of provider state %q failed", state.Name)
			failed = true
		}
	}
	if failed {
		return errors.New(errors.CodeStateChangeError, teardownFailedMessage)
	}
	return nil
}

func (e *VerificationEngine) replayAndCompare(ctx context.Context, log ports.Logger, interaction *domain.Interaction, generated map[string]any, result *domain.InteractionResult) {
	if e.limiter != nil {
		if err := e.limiter.Wait(ctx); err != nil {
			result.Status = domain.StatusError
			result.Error = errors.Wrap(err, errors.CodeProviderIOError, "verification was cancelled")
			return
		}
	}

	if interaction.IsMessage() {
		actual, err := e.client.ExecuteMessage(ctx, interaction)
		if err != nil {
			log.Errorf(ctx, err, "failed to retrieve the message from the provider")
			result.Status = domain.StatusError
			result.Error = err
			return
		}
		recordMismatches(result, matching.MatchMessage(interaction.Message, actual).Mismatches())
		return
	}

	request := prepareRequest(interaction.Request, generated, e.filter)
	actual, err := e.client.Execute(ctx, request)
	if err != nil {
		log.Errorf(ctx, err, "failed to replay the request against the provider")
		result.Status = domain.StatusError
		result.Error = err
		return
	}
	recordMismatches(result, matching.MatchResponse(interaction.Response, actual).Mismatches())
}

func recordMismatches(result *domain.InteractionResult, mismatches []domain.Mismatch) {
	result.Mismatches = mismatches
	if len(mismatches) > 0 {
		result.Status = domain.StatusFailed
	}
}

func interactionID(interaction *domain.Interaction) string {
	if interaction.ID != "" {
		return interaction.ID
	}
	if interaction.Key != "" {
		return interaction.Key
	}
	return uuid.NewString()
}
