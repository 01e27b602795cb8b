package pactfile

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sort"

	"github.com/contractcheck/contractcheck/internal/core/domain"
	apperrors "github.com/contractcheck/contractcheck/internal/errors"
)

// Auth carries the credentials for a URL or broker source. Token wins over
// username/password when both are set.
type Auth struct {
	Username string
	Password string
	Token    string
}

func (a Auth) apply(req *http.Request) {
	switch {
	case a.Token != "":
		req.Header.Set("Authorization", "Bearer "+a.Token)
	case a.Username != "":
		req.SetBasicAuth(a.Username, a.Password)
	}
}

// FileSource loads a single pact document from disk.
type FileSource struct {
	Path string
}

func (s FileSource) Describe() string {
	return s.Path
}

func (s FileSource) Fetch(_ context.Context) ([]*domain.Pact, error) {
	pact, err := loadFile(s.Path)
	if err != nil {
		return nil, err
	}
	return []*domain.Pact{pact}, nil
}

// DirSource loads every *.json document in a directory, in name order.
type DirSource struct {
	Dir string
}

func (s DirSource) Describe() string {
	return s.Dir
}

func (s DirSource) Fetch(_ context.Context) ([]*domain.Pact, error) {
	paths, err := filepath.Glob(filepath.Join(s.Dir, "*.json"))
	if err != nil {
		return nil, apperrors.Wrapf(err, apperrors.CodePactSourceError,
			"failed to list pact files in %s", s.Dir)
	}
	if len(paths) == 0 {
		return nil, apperrors.Newf(apperrors.CodePactSourceError,
			"no pact files found in %s", s.Dir)
	}
	sort.Strings(paths)

	pacts := make([]*domain.Pact, 0, len(paths))
	for _, path := range paths {
		pact, err := loadFile(path)
		if err != nil {
			return nil, err
		}
		pacts = append(pacts, pact)
	}
	return pacts, nil
}

func loadFile(path string) (*domain.Pact, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperrors.Wrapf(err, apperrors.CodePactReadError,
			"failed to read pact file %s", path)
	}
	return Parse(data, path)
}

// URLSource fetches a single pact document over HTTP.
type URLSource struct {
	URL    string
	Auth   Auth
	Client *http.Client
}

func (s URLSource) Describe() string {
	return s.URL
}

func (s URLSource) Fetch(ctx context.Context) ([]*domain.Pact, error) {
	data, err := fetchURL(ctx, s.client(), s.URL, s.Auth)
	if err != nil {
		return nil, err
	}
	pact, err := Parse(data, s.URL)
	if err != nil {
		return nil, err
	}
	return []*domain.Pact{pact}, nil
}

func (s URLSource) client() *http.Client {
	if s.Client != nil {
		return s.Client
	}
	return http.DefaultClient
}

func fetchURL(ctx context.Context, client *http.Client, url string, auth Auth) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, apperrors.Wrapf(err, apperrors.CodePactSourceError, "invalid pact URL %s", url)
	}
	req.Header.Set("Accept", "application/hal+json, application/json")
	auth.apply(req)

	resp, err := client.Do(req)
	if err != nil {
		return nil, apperrors.Wrapf(err, apperrors.CodePactReadError, "failed to fetch pact from %s", url)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperrors.Wrapf(err, apperrors.CodePactReadError, "failed to read pact from %s", url)
	}
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, apperrors.Newf(apperrors.CodeBrokerAuthError,
			"request to %s was refused with status %d", url, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, apperrors.Newf(apperrors.CodePactReadError,
			"request to %s returned status %d", url, resp.StatusCode)
	}
	return body, nil
}

// describeStatus renders a response status for error messages.
func describeStatus(resp *http.Response) string {
	return fmt.Sprintf("%d %s", resp.StatusCode, http.StatusText(resp.StatusCode))
}
