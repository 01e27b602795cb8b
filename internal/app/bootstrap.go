package app

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/contractcheck/contractcheck/internal/config"
	"github.com/contractcheck/contractcheck/internal/core/ports"
	"github.com/contractcheck/contractcheck/internal/core/service"
	"github.com/contractcheck/contractcheck/internal/errors"
	"github.com/contractcheck/contractcheck/internal/log"
	"github.com/contractcheck/contractcheck/internal/pactfile"
	"github.com/contractcheck/contractcheck/internal/provider"
	jsonreport "github.com/contractcheck/contractcheck/internal/reporting/json"
	"github.com/contractcheck/contractcheck/internal/reporting/text"
)

func BuildApplicationFromViper(ctx context.Context, v *viper.Viper) (*Application, error) {
	cfg := config.DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.Wrap(err, errors.CodeConfigParseError, "failed to unmarshal configuration")
	}

	logCfg := log.Config{Level: cfg.Settings.LogLevel, Format: cfg.Settings.LogFormat}
	logger, err := log.NewLogger(logCfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Failed to initialize logger: %v\n", err)
		return nil, errors.Wrap(err, errors.CodeInternal, "logger initialization failed")
	}
	logger.Infof(ctx, "Logger initialized (Level: %s, Format: %s)", cfg.Settings.LogLevel, cfg.Settings.LogFormat)
	if v.ConfigFileUsed() != "" {
		logger.Debugf(ctx, "Using configuration file: %s", v.ConfigFileUsed())
	}

	if headerOverride := v.GetString("headers"); headerOverride != "" {
		overrides := parseHeaderOverrides(headerOverride)
		if len(overrides) > 0 {
			logger.Debugf(ctx, "Applying %d provider header override(s) from the command line", len(overrides))
			if cfg.Provider.Headers == nil {
				cfg.Provider.Headers = map[string]string{}
			}
			for key, value := range overrides {
				cfg.Provider.Headers[key] = value
			}
		}
	}

	if err := validateConfig(ctx, cfg, logger); err != nil {
		return nil, err
	}
	if cfg.Sources.IsEmpty() {
		return nil, errors.NewUserFacing(errors.CodeConfigValidation,
			"no pact sources configured",
			"Configure at least one of sources.files, sources.dirs, sources.urls or sources.broker.")
	}

	registry := service.NewComponentRegistry()
	if err := registerReporters(registry, cfg, logger); err != nil {
		return nil, err
	}
	reporter, err := registry.GetReporter(cfg.Settings.ReporterType)
	if err != nil {
		return nil, err
	}

	sources := buildSources(cfg, logger)
	logger.Infof(ctx, "Resolved %d pact source(s)", len(sources))

	clientLog := logger.WithFields(map[string]any{"component": "provider_client"})
	clientOpts := []provider.HTTPClientOption{
		provider.WithHTTPClient(&http.Client{Timeout: cfg.Provider.RequestTimeout}),
	}
	if cfg.Provider.MessagePath != "" {
		clientOpts = append(clientOpts, provider.WithMessagePath(cfg.Provider.MessagePath))
	}
	if len(cfg.Provider.Headers) > 0 {
		clientOpts = append(clientOpts, provider.WithHeaders(cfg.Provider.Headers))
	}
	client := provider.NewHTTPClient(cfg.Provider.BaseURL, clientLog, clientOpts...)

	stateOpts := []provider.StateChangerOption{
		provider.WithStateHTTPClient(&http.Client{Timeout: cfg.Provider.StateChangeTimeout}),
	}
	if cfg.Provider.StateChangeTeardown {
		stateOpts = append(stateOpts, provider.WithTeardownCalls())
	}
	states := provider.NewStateChanger(cfg.Provider.StateChangeURL,
		logger.WithFields(map[string]any{"component": "state_changer"}), stateOpts...)

	engineOpts := []service.EngineOption{
		service.WithConcurrency(cfg.Settings.Concurrency),
		service.WithRequestsPerSecond(cfg.Settings.RequestsPerSecond),
	}
	if cfg.Publish.Enabled {
		publisher, err := buildPublisher(registry, cfg, logger)
		if err != nil {
			return nil, err
		}
		engineOpts = append(engineOpts, service.WithPublisher(publisher))
	}

	filter := service.InteractionFilter{
		DescriptionPattern: cfg.Filter.Description,
		State:              cfg.Filter.State,
		NoState:            cfg.Filter.NoState,
		Consumers:          cfg.Filter.Consumers,
	}

	engine, err := service.NewVerificationEngine(
		sources, client, states, reporter, filter,
		logger.WithFields(map[string]any{"component": "engine"}),
		engineOpts...,
	)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "failed to initialize the verification engine")
	}

	logger.Infof(ctx, "Application bootstrap complete")
	return NewApplication(engine, logger), nil
}

func validateConfig(ctx context.Context, cfg *config.Config, logger ports.Logger) error {
	validate := validator.New(validator.WithRequiredStructEnabled())
	err := validate.StructCtx(ctx, cfg)
	if err == nil {
		logger.Debugf(ctx, "Configuration validated successfully")
		return nil
	}

	var details strings.Builder
	details.WriteString("Configuration validation failed:")
	if validationErrors, ok := err.(validator.ValidationErrors); ok {
		for _, fe := range validationErrors {
			details.WriteString(fmt.Sprintf("\n - Field '%s': Failed on '%s' validation (value: '%v')",
				fe.Namespace(), fe.Tag(), fe.Value()))
		}
	} else {
		details.WriteString(" " + err.Error())
	}
	wrapped := errors.NewUserFacing(errors.CodeConfigValidation, details.String(),
		"Please check your configuration file or flags.")
	logger.Errorf(ctx, wrapped, "Configuration validation failed")
	return wrapped
}

func registerReporters(registry *service.ComponentRegistry, cfg *config.Config, logger ports.Logger) error {
	textCfg := text.Config{}
	if cfg.Settings.Reporter.Text != nil {
		textCfg = *cfg.Settings.Reporter.Text
	}
	textReporter, err := text.NewReporter(textCfg,
		logger.WithFields(map[string]any{"component": "reporter", "type": text.ReporterTypeText}))
	if err != nil {
		return errors.Wrap(err, errors.CodeInternal, "failed to initialize text reporter")
	}
	if err := registry.RegisterReporter(text.ReporterTypeText, textReporter); err != nil {
		return err
	}

	jsonCfg := jsonreport.Config{}
	if cfg.Settings.Reporter.JSON != nil {
		jsonCfg = *cfg.Settings.Reporter.JSON
	}
	jsonReporter, err := jsonreport.NewReporter(jsonCfg,
		logger.WithFields(map[string]any{"component": "reporter", "type": jsonreport.ReporterTypeJSON}))
	if err != nil {
		return errors.Wrap(err, errors.CodeInternal, "failed to initialize JSON reporter")
	}
	return registry.RegisterReporter(jsonreport.ReporterTypeJSON, jsonReporter)
}

func buildSources(cfg *config.Config, logger ports.Logger) []ports.PactSource {
	var sources []ports.PactSource
	for _, path := range cfg.Sources.Files {
		sources = append(sources, pactfile.FileSource{Path: path})
	}
	for _, dir := range cfg.Sources.Dirs {
		sources = append(sources, pactfile.DirSource{Dir: dir})
	}
	for _, u := range cfg.Sources.URLs {
		sources = append(sources, pactfile.URLSource{
			URL:  u.URL,
			Auth: pactfile.Auth{Username: u.Username, Password: u.Password, Token: u.Token},
		})
	}
	if broker := cfg.Sources.Broker; broker != nil {
		sources = append(sources, &pactfile.BrokerSource{
			BaseURL:         broker.BaseURL,
			Provider:        cfg.Provider.Name,
			Auth:            broker.Auth(),
			Selectors:       broker.Selectors,
			ProviderBranch:  cfg.Publish.ProviderBranch,
			IncludePending:  broker.IncludePending,
			IncludeWIPSince: broker.IncludeWIPSince,
			Logger:          logger.WithFields(map[string]any{"component": "broker_source"}),
		})
	}
	return sources
}

func buildPublisher(registry *service.ComponentRegistry, cfg *config.Config, logger ports.Logger) (ports.ResultPublisher, error) {
	broker := cfg.Sources.Broker
	if broker == nil {
		return nil, errors.NewUserFacing(errors.CodeConfigValidation,
			"publishing verification results requires a broker source",
			"Configure sources.broker or disable publish.enabled.")
	}
	publisher := &pactfile.BrokerPublisher{
		Auth:            broker.Auth(),
		ProviderVersion: cfg.Publish.ProviderVersion,
		ProviderBranch:  cfg.Publish.ProviderBranch,
		BuildURL:        cfg.Publish.BuildURL,
		Logger:          logger.WithFields(map[string]any{"component": "publisher"}),
	}
	if err := registry.RegisterPublisher("broker", publisher); err != nil {
		return nil, err
	}
	return registry.GetPublisher("broker")
}
