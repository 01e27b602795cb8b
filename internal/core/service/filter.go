package service

import (
	"regexp"

	"github.com/contractcheck/contractcheck/internal/core/domain"
	"github.com/contractcheck/contractcheck/internal/errors"
)

// InteractionFilter narrows which pacts and interactions a run verifies.
// Zero value verifies everything.
type InteractionFilter struct {
	// DescriptionPattern is a regular expression matched against interaction
	// descriptions.
	DescriptionPattern string
	// State selects interactions that declare the given provider state.
	State string
	// NoState selects interactions that declare no provider state at all.
	// Combined with State, interactions without states also pass.
	NoState bool
	// Consumers selects pacts by consumer name.
	Consumers []string
}

type interactionSelector struct {
	description *regexp.Regexp
	state       string
	noState     bool
	consumers   map[string]struct{}
}

func (f InteractionFilter) compile() (*interactionSelector, error) {
	selector := &interactionSelector{state: f.State, noState: f.NoState}
	if f.DescriptionPattern != "" {
		re, err := regexp.Compile(f.DescriptionPattern)
		if err != nil {
			return nil, errors.Wrapf(err, errors.CodeConfigValidation,
				"invalid interaction description filter %q", f.DescriptionPattern)
		}
		selector.description = re
	}
	if len(f.Consumers) > 0 {
		selector.consumers = make(map[string]struct{}, len(f.Consumers))
		for _, consumer := range f.Consumers {
			selector.consumers[consumer] = struct{}{}
		}
	}
	return selector, nil
}

func (s *interactionSelector) matchesConsumer(consumer string) bool {
	if len(s.consumers) == 0 {
		return true
	}
	_, ok := s.consumers[consumer]
	return ok
}

func (s *interactionSelector) matchesInteraction(interaction *domain.Interaction) bool {
	if s.description != nil && !s.description.MatchString(interaction.Description) {
		return false
	}
	if s.state == "" && !s.noState {
		return true
	}
	if len(interaction.ProviderStates) == 0 {
		return s.noState
	}
	if s.state == "" {
		return false
	}
	for _, state := range interaction.ProviderStates {
		if state.Name == s.state {
			return true
		}
	}
	return false
}
