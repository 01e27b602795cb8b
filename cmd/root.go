package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/contractcheck/contractcheck/internal/app"
	apperrors "github.com/contractcheck/contractcheck/internal/errors"
)

var (
	cfgFile        string
	logLevel       string
	logFormat      string
	headerOverride string
)

var rootCmd = &cobra.Command{
	Use:   "contractcheck",
	Short: "Verifies a provider against the pacts its consumers published.",
	Long: `Contractcheck replays the interactions recorded in consumer pacts
(from files, directories, URLs or a pact broker) against a running provider,
compares the responses using the pact matching rules and reports every
mismatch. Verification results can be published back to the broker.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initializeConfig(cmd)
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		application, bootstrapErr := app.BuildApplicationFromViper(cmd.Context(), viper.GetViper())
		if bootstrapErr != nil {
			fmt.Fprintf(os.Stderr, "ERROR: Application initialization failed: %v\n", bootstrapErr)
			if appErr := (*apperrors.AppError)(nil); errors.As(bootstrapErr, &appErr) {
				if appErr.IsUserFacing {
					fmt.Fprintf(os.Stderr, "Error Details: %s\n", appErr.Message)
					if appErr.SuggestedAction != "" {
						fmt.Fprintf(os.Stderr, "Suggestion: %s\n", appErr.SuggestedAction)
					}
				}
			}
			return bootstrapErr
		}

		runErr := application.Run(cmd.Context())
		if runErr != nil {
			userMsg, suggestion, _ := apperrors.GetUserFacingMessage(runErr)
			fmt.Fprintf(os.Stderr, "ERROR: %s\n", userMsg)
			if suggestion != "" {
				fmt.Fprintf(os.Stderr, "Suggestion: %s\n", suggestion)
			}
			return runErr
		}
		return nil
	},
}

func Execute(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "Configuration file path (default is .contractcheck.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Override log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "Override log format (text, json)")
	rootCmd.PersistentFlags().StringVar(&headerOverride, "header", "", "Extra provider request headers (e.g. 'Authorization=Bearer token;X-Env=ci')")
	rootCmd.PersistentFlags().String("provider-base-url", "", "Base URL of the provider under verification")
	rootCmd.PersistentFlags().String("provider-name", "", "Name of the provider under verification")
	rootCmd.PersistentFlags().String("state-change-url", "", "Provider state change handler endpoint")
	rootCmd.PersistentFlags().Duration("request-timeout", 5*time.Second, "HTTP timeout for provider and state change requests")
	rootCmd.PersistentFlags().Bool("publish", false, "Publish verification results to the broker")
	rootCmd.PersistentFlags().String("provider-version", "", "Provider application version used when publishing")

	viper.BindPFlag("settings.log_level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("settings.log_format", rootCmd.PersistentFlags().Lookup("log-format"))
	viper.BindPFlag("headers", rootCmd.PersistentFlags().Lookup("header"))
	viper.BindPFlag("provider.base_url", rootCmd.PersistentFlags().Lookup("provider-base-url"))
	viper.BindPFlag("provider.name", rootCmd.PersistentFlags().Lookup("provider-name"))
	viper.BindPFlag("provider.state_change_url", rootCmd.PersistentFlags().Lookup("state-change-url"))
	viper.BindPFlag("provider.request_timeout", rootCmd.PersistentFlags().Lookup("request-timeout"))
	viper.BindPFlag("provider.state_change_timeout", rootCmd.PersistentFlags().Lookup("request-timeout"))
	viper.BindPFlag("publish.enabled", rootCmd.PersistentFlags().Lookup("publish"))
	viper.BindPFlag("publish.provider_version", rootCmd.PersistentFlags().Lookup("provider-version"))

	viper.SetEnvPrefix("CONTRACTCHECK")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
}

func initializeConfig(cmd *cobra.Command) error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		viper.AddConfigPath(".")
		viper.AddConfigPath(home)
		viper.SetConfigName(".contractcheck")
		viper.SetConfigType("yaml")
	}

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using configuration file:", viper.ConfigFileUsed())
	} else {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			fmt.Fprintln(os.Stderr, "Config file not found, using defaults and environment variables.")
		} else {
			return apperrors.Wrap(err, apperrors.CodeConfigReadError, "failed to read config file")
		}
	}
	return nil
}
