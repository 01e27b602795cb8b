package text

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"

	"github.com/contractcheck/contractcheck/internal/core/domain"
	"github.com/contractcheck/contractcheck/internal/core/ports"
)

const ReporterTypeText = "text"

type Config struct {
	NoColor bool `yaml:"no_color"`
}

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
	if cfg.NoColor || !isTerminal(os.Stdout) {
		color.NoColor = true
	}

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

func isTerminal(f *os.File) bool {
	stat, _ := f.Stat()
	return (stat.Mode() & os.ModeCharDevice) != 0
}

func (r *Reporter) Report(ctx context.Context, summary domain.ExecutionSummary) error {
	if len(summary.Pacts) == 0 {
		fmt.Fprintln(r.writer, "No pacts were verified.")
		return nil
	}

	red := color.New(color.FgRed).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()
	green := color.New(color.FgGreen).SprintFunc()
	magenta := color.New(color.FgMagenta).SprintFunc()

	passed, failed, errored, pending, total := 0, 0, 0, 0, 0

	for _, pact := range summary.Pacts {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		fmt.Fprintf(r.writer, "\nVerifying a pact between %s and %s", pact.Consumer, pact.Provider)
		if pact.Source != "" {
			fmt.Fprintf(r.writer, " (%s)", pact.Source)
		}
		fmt.Fprintln(r.writer)

		r.printNotices(pact.Notices, "before_verification")

		tw := tabwriter.NewWriter(r.writer, 0, 8, 2, ' ', 0)
		for _, result := range pact.Results {
			total++
			status := ""
			switch {
			case result.Status == domain.StatusError && result.Pending:
				pending++
				status = yellow("[PENDING]")
			case result.Status == domain.StatusError:
				errored++
				status = magenta("[ERROR]")
			case result.Status == domain.StatusFailed && result.Pending:
				pending++
				status = yellow("[PENDING]")
			case result.Status == domain.StatusFailed:
				failed++
				status = red("[FAILED]")
			default:
				passed++
				status = green("[OK]")
			}

			description := result.Description
			if result.State != "" {
				description = fmt.Sprintf("%s (Given %s)", description, result.State)
			}
			fmt.Fprintf(tw, "  %s\t%s\n", status, description)

			if result.Error != nil {
				fmt.Fprintf(tw, "  \t%s\n", result.Error.Error())
			}
			for _, mismatch := range result.Mismatches {
				fmt.Fprintf(tw, "  \t%s\n", describeMismatch(mismatch))
			}
		}
		tw.Flush()

		r.printNotices(pact.Notices, "after_verification")
	}

	fmt.Fprintln(r.writer, "\nSummary:")
	fmt.Fprintln(r.writer, "-------")
	tw := tabwriter.NewWriter(r.writer, 0, 8, 2, ' ', 0)
	fmt.Fprintf(tw, "Interactions verified:\t%d\n", total)
	fmt.Fprintf(tw, "Passed:\t%s\n", green(passed))
	fmt.Fprintf(tw, "Failed:\t%s\n", red(failed))
	fmt.Fprintf(tw, "Errors:\t%s\n", magenta(errored))
	fmt.Fprintf(tw, "Pending failures:\t%s\n", yellow(pending))
	tw.Flush()

	if summary.Passed() {
		fmt.Fprintln(r.writer, green("\nVerification passed"))
	} else {
		fmt.Fprintln(r.writer, red("\nVerification failed"))
	}
	return nil
}

func (r *Reporter) printNotices(notices []domain.VerificationNotice, when string) {
	for _, notice := range notices {
		if notice.When != when && !(when == "before_verification" && notice.When == "") {
			continue
		}
		fmt.Fprintf(r.writer, "  [note] %s\n", notice.Text)
	}
}

func describeMismatch(mismatch domain.Mismatch) string {
	location := mismatch.Path
	if location == "" {
		location = firstNonEmpty(mismatch.Parameter, mismatch.Key)
	}
	if location == "" {
		return mismatch.Description
	}
	return fmt.Sprintf("%s -> %s", location, mismatch.Description)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
