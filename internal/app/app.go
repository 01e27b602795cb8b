package app

import (
	"context"

	"github.com/contractcheck/contractcheck/internal/core/ports"
	"github.com/contractcheck/contractcheck/internal/errors"
)

// Application runs a single verification pass and turns its outcome into an
// exit decision.
type Application struct {
	Engine ports.VerificationEngine
	Logger ports.Logger
}

func NewApplication(engine ports.VerificationEngine, logger ports.Logger) *Application {
	return &Application{
		Engine: engine,
		Logger: logger,
	}
}

func (a *Application) Run(ctx context.Context) error {
	a.Logger.Infof(ctx, "Starting pact verification...")

	summary, err := a.Engine.Run(ctx)
	if err != nil {
		a.Logger.Errorf(ctx, err, "Pact verification failed to run")
		return err
	}

	if !summary.Passed() {
		return errors.NewUserFacing(errors.CodeComparisonError,
			"one or more interactions failed verification",
			"Inspect the report above for the mismatches.")
	}

	if summary.PendingFailures > 0 {
		a.Logger.Warnf(ctx, "%d pending interaction(s) failed; they do not fail the run", summary.PendingFailures)
	}
	a.Logger.Infof(ctx, "Pact verification completed successfully")
	return nil
}
