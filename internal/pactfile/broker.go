package pactfile

import (
	"bytes"
	"context"
	"net/http"
	"strings"

	"github.com/contractcheck/contractcheck/internal/core/domain"
	"github.com/contractcheck/contractcheck/internal/core/ports"
	apperrors "github.com/contractcheck/contractcheck/internal/errors"
)

const (
	relPactsForVerification = "pb:provider-pacts-for-verification"
	relPublishResults       = "pb:publish-verification-results"
)

// ConsumerVersionSelector narrows which consumer pacts the broker returns.
type ConsumerVersionSelector struct {
	Tag                string `json:"tag,omitempty" mapstructure:"tag"`
	FallbackTag        string `json:"fallbackTag,omitempty" mapstructure:"fallback_tag"`
	Consumer           string `json:"consumer,omitempty" mapstructure:"consumer"`
	Branch             string `json:"branch,omitempty" mapstructure:"branch"`
	Latest             *bool  `json:"latest,omitempty" mapstructure:"latest"`
	MainBranch         *bool  `json:"mainBranch,omitempty" mapstructure:"main_branch"`
	DeployedOrReleased *bool  `json:"deployedOrReleased,omitempty" mapstructure:"deployed_or_released"`
}

// BrokerSource fetches the pacts to verify from a pact broker's
// "pacts for verification" endpoint.
type BrokerSource struct {
	BaseURL         string
	Provider        string
	Auth            Auth
	Selectors       []ConsumerVersionSelector
	ProviderBranch  string
	IncludePending  bool
	IncludeWIPSince string
	Client          *http.Client
	Logger          ports.Logger
}

func (s *BrokerSource) Describe() string {
	return s.BaseURL
}

func (s *BrokerSource) Fetch(ctx context.Context) ([]*domain.Pact, error) {
	endpoint, err := s.verificationEndpoint(ctx)
	if err != nil {
		return nil, err
	}

	refs, err := s.pactsForVerification(ctx, endpoint)
	if err != nil {
		return nil, err
	}
	if s.Logger != nil {
		s.Logger.Debugf(ctx, "broker returned %d pact(s) for provider %s", len(refs), s.Provider)
	}

	pacts := make([]*domain.Pact, 0, len(refs))
	for _, ref := range refs {
		pact, err := s.fetchPact(ctx, ref)
		if err != nil {
			return nil, err
		}
		pacts = append(pacts, pact)
	}
	return pacts, nil
}

// verificationEndpoint resolves the templated pacts-for-verification link
// from the broker's index resource.
func (s *BrokerSource) verificationEndpoint(ctx context.Context) (string, error) {
	data, err := fetchURL(ctx, s.client(), s.BaseURL, s.Auth)
	if err != nil {
		return "", err
	}

	var index struct {
		Links map[string]halLink `json:"_links"`
	}
	if err := json.Unmarshal(data, &index); err != nil {
		return "", apperrors.Wrap(err, apperrors.CodeBrokerAPIError, "failed to parse broker index resource")
	}
	link, ok := index.Links[relPactsForVerification]
	if !ok || link.Href == "" {
		return "", apperrors.Newf(apperrors.CodeBrokerAPIError,
			"broker at %s does not advertise the %s relation", s.BaseURL, relPactsForVerification)
	}
	return strings.ReplaceAll(link.Href, "{provider}", s.Provider), nil
}

type halLink struct {
	Href string `json:"href"`
	Name string `json:"name"`
}

type pactReference struct {
	href    string
	pending bool
	notices []domain.VerificationNotice
}

func (s *BrokerSource) pactsForVerification(ctx context.Context, endpoint string) ([]pactReference, error) {
	query := map[string]any{}
	if len(s.Selectors) > 0 {
		query["consumerVersionSelectors"] = s.Selectors
	}
	if s.ProviderBranch != "" {
		query["providerVersionBranch"] = s.ProviderBranch
	}
	if s.IncludePending {
		query["includePendingStatus"] = true
	}
	if s.IncludeWIPSince != "" {
		query["includeWipPactsSince"] = s.IncludeWIPSince
	}

	payload, err := json.Marshal(query)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeBrokerAPIError, "failed to encode verification query")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeBrokerAPIError, "invalid pacts-for-verification URL")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/hal+json")
	s.Auth.apply(req)

	resp, err := s.client().Do(req)
	if err != nil {
		return nil, apperrors.Wrapf(err, apperrors.CodeBrokerAPIError,
			"pacts-for-verification request to %s failed", endpoint)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, apperrors.Newf(apperrors.CodeBrokerAuthError,
			"broker refused the pacts-for-verification request with status %s", describeStatus(resp))
	}
	if resp.StatusCode != http.StatusOK {
		return nil, apperrors.Newf(apperrors.CodeBrokerAPIError,
			"pacts-for-verification request returned status %s", describeStatus(resp))
	}

	var body struct {
		Embedded struct {
			Pacts []struct {
				Links map[string]halLink `json:"_links"`

				VerificationProperties struct {
					Pending bool                        `json:"pending"`
					Notices []domain.VerificationNotice `json:"notices"`
				} `json:"verificationProperties"`
			} `json:"pacts"`
		} `json:"_embedded"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeBrokerAPIError,
			"failed to parse pacts-for-verification response")
	}

	refs := make([]pactReference, 0, len(body.Embedded.Pacts))
	for _, entry := range body.Embedded.Pacts {
		link, ok := entry.Links["self"]
		if !ok || link.Href == "" {
			return nil, apperrors.New(apperrors.CodeBrokerAPIError,
				"pacts-for-verification entry is missing its self link")
		}
		refs = append(refs, pactReference{
			href:    link.Href,
			pending: entry.VerificationProperties.Pending,
			notices: entry.VerificationProperties.Notices,
		})
	}
	return refs, nil
}

func (s *BrokerSource) fetchPact(ctx context.Context, ref pactReference) (*domain.Pact, error) {
	data, err := fetchURL(ctx, s.client(), ref.href, s.Auth)
	if err != nil {
		return nil, err
	}
	pact, err := Parse(data, ref.href)
	if err != nil {
		return nil, err
	}
	pact.Pending = ref.pending
	pact.Notices = ref.notices

	// The document's HAL links are needed later to publish results back.
	var links struct {
		Links map[string]any `json:"_links"`
	}
	if err := json.Unmarshal(data, &links); err == nil {
		pact.Links = links.Links
	}
	return pact, nil
}

func (s *BrokerSource) client() *http.Client {
	if s.Client != nil {
		return s.Client
	}
	return http.DefaultClient
}

// BrokerPublisher posts verification results back to the broker via the
// publish link carried on each broker-sourced pact.
type BrokerPublisher struct {
	Auth            Auth
	ProviderVersion string
	ProviderBranch  string
	BuildURL        string
	Client          *http.Client
	Logger          ports.Logger
}

func (p *BrokerPublisher) Publish(ctx context.Context, pact *domain.Pact, result domain.TestResult) error {
	href := publishLink(pact)
	if href == "" {
		return apperrors.Newf(apperrors.CodePublishError,
			"pact %s/%s carries no %s link; was it fetched from a broker?",
			pact.Consumer, pact.Provider, relPublishResults)
	}

	payload := map[string]any{
		"success":                    result.OK,
		"providerApplicationVersion": p.ProviderVersion,
	}
	if p.ProviderBranch != "" {
		payload["providerVersionBranch"] = p.ProviderBranch
	}
	if p.BuildURL != "" {
		payload["buildUrl"] = p.BuildURL
	}
	if !result.OK {
		payload["testResults"] = failedTests(result)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return apperrors.Wrap(err, apperrors.CodePublishError, "failed to encode verification results")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, href, bytes.NewReader(body))
	if err != nil {
		return apperrors.Wrapf(err, apperrors.CodePublishError, "invalid publish URL %s", href)
	}
	req.Header.Set("Content-Type", "application/json")
	p.Auth.apply(req)

	resp, err := p.client().Do(req)
	if err != nil {
		return apperrors.Wrapf(err, apperrors.CodePublishError,
			"failed to publish verification results to %s", href)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return apperrors.Newf(apperrors.CodePublishError,
			"publishing verification results returned status %s", describeStatus(resp))
	}
	if p.Logger != nil {
		p.Logger.Infof(ctx, "published verification results for %s/%s (success: %t)",
			pact.Consumer, pact.Provider, result.OK)
	}
	return nil
}

func (p *BrokerPublisher) client() *http.Client {
	if p.Client != nil {
		return p.Client
	}
	return http.DefaultClient
}

func publishLink(pact *domain.Pact) string {
	section, ok := pact.Links[relPublishResults].(map[string]any)
	if !ok {
		return ""
	}
	href, _ := section["href"].(string)
	return href
}

func failedTests(result domain.TestResult) []map[string]any {
	tests := make([]map[string]any, 0, len(result.Failures))
	for _, failure := range result.Failures {
		entry := map[string]any{
			"interactionId":          failure.InteractionID,
			"interactionDescription": failure.Description,
			"success":                false,
		}
		if failure.Error != nil {
			entry["exception"] = map[string]any{"message": failure.Error.Error()}
		}
		if len(failure.Mismatches) > 0 {
			entry["mismatches"] = failure.Mismatches
		}
		tests = append(tests, entry)
	}
	return tests
}
