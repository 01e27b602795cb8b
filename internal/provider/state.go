package provider

import (
	"bytes"
	"context"
	"net/http"

	"github.com/contractcheck/contractcheck/internal/core/domain"
	"github.com/contractcheck/contractcheck/internal/core/ports"
	apperrors "github.com/contractcheck/contractcheck/internal/errors"
)

// StateChanger calls the provider's state change endpoint before and after
// each interaction, posting the state name and parameters as JSON. Values
// returned by the setup call feed generator substitution.
type StateChanger struct {
	url      string
	teardown bool
	client   *http.Client
	logger   ports.Logger
}

type StateChangerOption func(*StateChanger)

// WithTeardownCalls makes the executor call the endpoint with
// action "teardown" after each interaction as well.
func WithTeardownCalls() StateChangerOption {
	return func(s *StateChanger) { s.teardown = true }
}

func WithStateHTTPClient(client *http.Client) StateChangerOption {
	return func(s *StateChanger) { s.client = client }
}

func NewStateChanger(url string, logger ports.Logger, opts ...StateChangerOption) *StateChanger {
	s := &StateChanger{url: url, client: http.DefaultClient, logger: logger}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *StateChanger) Setup(ctx context.Context, interaction *domain.Interaction, state domain.ProviderState) (map[string]any, error) {
	if s.url == "" {
		return nil, nil
	}
	s.logger.Debugf(ctx, "setting provider state %q for %q", state.Name, interaction.Description)
	return s.call(ctx, state, "setup")
}

func (s *StateChanger) Teardown(ctx context.Context, interaction *domain.Interaction, state domain.ProviderState) error {
	if s.url == "" || !s.teardown {
		return nil
	}
	s.logger.Debugf(ctx, "tearing down provider state %q for %q", state.Name, interaction.Description)
	_, err := s.call(ctx, state, "teardown")
	return err
}

func (s *StateChanger) call(ctx context.Context, state domain.ProviderState, action string) (map[string]any, error) {
	payload := map[string]any{
		"state":  state.Name,
		"action": action,
	}
	if len(state.Params) > 0 {
		payload["params"] = state.Params
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeStateChangeError, "failed to encode state change request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return nil, apperrors.Wrapf(err, apperrors.CodeStateChangeError,
			"invalid state change URL %s", s.url)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, apperrors.Wrapf(err, transportCode(err),
			"state change request for %q failed", state.Name)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, apperrors.Newf(apperrors.CodeStateChangeError,
			"state change request for %q returned status %d", state.Name, resp.StatusCode)
	}

	// A state handler may answer with a JSON object of values for generator
	// substitution; anything else is ignored.
	var values map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&values); err != nil {
		return nil, nil
	}
	return values, nil
}
