package json

import (
	"context"
	"fmt"
	"io"
	"os"

	jsoniter "github.com/json-iterator/go"

	"github.com/contractcheck/contractcheck/internal/core/domain"
	"github.com/contractcheck/contractcheck/internal/core/ports"
)

const ReporterTypeJSON = "json"

var encoding = jsoniter.ConfigCompatibleWithStandardLibrary

type Config struct{}

type Reporter struct {
	config Config
	writer io.Writer
	logger ports.Logger
}

type Option func(*Reporter)

// WithWriter redirects the report away from stdout.
func WithWriter(w io.Writer) Option {
	return func(r *Reporter) { r.writer = w }
}

func NewReporter(cfg Config, logger ports.Logger, opts ...Option) (*Reporter, error) {
	reporter := &Reporter{
		config: cfg,
		writer: os.Stdout,
		logger: logger,
	}
	for _, opt := range opts {
		opt(reporter)
	}
	return reporter, nil
}

type jsonReport struct {
	Summary jsonSummary `json:"summary"`
	Pacts   []jsonPact  `json:"pacts"`
}

type jsonSummary struct {
	Pacts           int  `json:"pacts"`
	Interactions    int  `json:"interactions"`
	Passed          int  `json:"passed"`
	Failed          int  `json:"failed"`
	Errors          int  `json:"errors"`
	PendingFailures int  `json:"pending_failures"`
	Success         bool `json:"success"`
}

type jsonPact struct {
	Consumer     string            `json:"consumer"`
	Provider     string            `json:"provider"`
	Source       string            `json:"source,omitempty"`
	Pending      bool              `json:"pending,omitempty"`
	Interactions []jsonInteraction `json:"interactions"`
}

type jsonInteraction struct {
	ID           string                    `json:"id,omitempty"`
	Description  string                    `json:"description"`
	State        string                    `json:"state,omitempty"`
	Status       domain.VerificationStatus `json:"status"`
	Pending      bool                      `json:"pending,omitempty"`
	Mismatches   []domain.Mismatch         `json:"mismatches,omitempty"`
	ErrorMessage string                    `json:"error_message,omitempty"`
}

func (r *Reporter) Report(ctx context.Context, summary domain.ExecutionSummary) error {
	report := jsonReport{
		Summary: jsonSummary{
			Pacts:           len(summary.Pacts),
			PendingFailures: summary.PendingFailures,
			Success:         summary.Passed(),
		},
		Pacts: make([]jsonPact, 0, len(summary.Pacts)),
	}

	for _, pact := range summary.Pacts {
		if ctx.Err() != nil {
			r.logger.Warnf(ctx, "JSON report generation cancelled.")
			return ctx.Err()
		}

		item := jsonPact{
			Consumer:     pact.Consumer,
			Provider:     pact.Provider,
			Source:       pact.Source,
			Pending:      pact.Pending,
			Interactions: make([]jsonInteraction, 0, len(pact.Results)),
		}
		for _, result := range pact.Results {
			report.Summary.Interactions++
			switch {
			case result.Status == domain.StatusPassed:
				report.Summary.Passed++
			case result.Status == domain.StatusError && !result.Pending:
				report.Summary.Errors++
			case !result.Pending:
				report.Summary.Failed++
			}

			interaction := jsonInteraction{
				ID:          result.InteractionID,
				Description: result.Description,
				State:       result.State,
				Status:      result.Status,
				Pending:     result.Pending,
				Mismatches:  result.Mismatches,
			}
			if result.Error != nil {
				interaction.ErrorMessage = result.Error.Error()
			}
			item.Interactions = append(item.Interactions, interaction)
		}
		report.Pacts = append(report.Pacts, item)
	}

	encoder := encoding.NewEncoder(r.writer)
	encoder.SetIndent("", "  ")

	if err := encoder.Encode(report); err != nil {
		r.logger.Errorf(ctx, err, "Failed to encode JSON report")
		return fmt.Errorf("failed to encode JSON report: %w", err)
	}
	return nil
}
