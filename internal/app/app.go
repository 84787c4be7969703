package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"abstractscreen/internal/audit"
	"abstractscreen/internal/config"
	"abstractscreen/internal/domain"
	"abstractscreen/internal/infrastructure/csvio"
	"abstractscreen/internal/infrastructure/storage"
	"abstractscreen/internal/llm"
	"abstractscreen/internal/logging"
	"abstractscreen/internal/ports"
	"abstractscreen/internal/prompt"
	"abstractscreen/internal/retry"
	"abstractscreen/internal/screening"
)

// Options carries the per-invocation file paths from the CLI.
type Options struct {
	InputPath  string
	OutputPath string
}

// Application wires configs to the screening pipeline and lifecycle.
type Application struct {
	cfg       config.Config
	logger    *slog.Logger
	processor *screening.Processor
	auditLog  *audit.Log
	repo      *storage.PostgresRepository

	closeAudit func() error
}

// New builds a runnable application instance from validated configuration.
func New(cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	gateway, err := llm.New(cfg.Provider, cfg.Screening.RequestTimeout())
	if err != nil {
		return nil, err
	}

	auditLog, closeAudit, err := openAudit(cfg.Audit.Path)
	if err != nil {
		return nil, err
	}

	repo, err := storage.Open(cfg.Database.DSN)
	if err != nil {
		return nil, err
	}

	processor := screening.NewProcessor(screening.Deps{
		Gateway:    gateway,
		Builder:    prompt.NewBuilder(cfg.Screening.PromptCharBudget),
		Policy:     retry.New(cfg.Screening.MaxRetries, cfg.Screening.RetryBaseDelay(), 0),
		Audit:      auditLog,
		Logger:     baseLogger.With("component", "processor"),
		BatchSize:  cfg.Screening.BatchSize,
		Workers:    cfg.Screening.Workers,
		BatchPause: cfg.Screening.BatchPause(),
	})

	return &Application{
		cfg:        cfg,
		logger:     baseLogger.With("component", "app"),
		processor:  processor,
		auditLog:   auditLog,
		repo:       repo,
		closeAudit: closeAudit,
	}, nil
}

// Run executes one screening invocation: read abstracts, screen them, write
// decisions, persist, report. A partial run still writes whatever was
// decided before returning the error.
func (a *Application) Run(ctx context.Context, opts Options) error {
	defer a.close()

	abstracts, err := a.readInput(opts.InputPath)
	if err != nil {
		return err
	}

	criteria := domain.Criteria{
		Population:          a.cfg.Criteria.Population,
		Intervention:        a.cfg.Criteria.Intervention,
		Comparator:          a.cfg.Criteria.Comparator,
		AdditionalInclusion: a.cfg.Criteria.AdditionalInclusion,
		AdditionalExclusion: a.cfg.Criteria.AdditionalExclusion,
		FreeTextOverride:    a.cfg.Criteria.FreeTextOverride,
	}

	progress := func(p ports.Progress) {
		a.logger.Debug("progress", "succeeded", p.Succeeded, "failed", p.Failed, "pending", p.Pending)
	}

	result, runErr := a.processor.Run(ctx, criteria, abstracts, progress)

	if len(result.Decisions) > 0 {
		if err := a.writeOutput(opts.OutputPath, abstracts, result.Decisions); err != nil {
			return err
		}
		if err := a.repo.SaveDecisions(ctx, result.RunID, result.Decisions); err != nil {
			a.logger.Error("persist decisions", "error", err)
		}
		if err := a.repo.SaveAuditEntries(ctx, result.RunID, a.auditLog.Entries()); err != nil {
			a.logger.Error("persist audit trail", "error", err)
		}
	}

	if report := screening.CompareGroundTruth(result.Decisions, abstracts); report.Compared > 0 {
		a.logger.Info("ground truth comparison",
			"compared", report.Compared,
			"agreements", report.Agreements,
			"accuracy_pct", fmt.Sprintf("%.1f", report.Accuracy))
	}

	if runErr != nil {
		return runErr
	}
	return nil
}

func (a *Application) readInput(path string) ([]domain.Abstract, error) {
	if path == "" {
		return nil, fmt.Errorf("app: input path must be set")
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("app: open input: %w", err)
	}
	defer f.Close()
	return csvio.ReadAbstracts(f)
}

func (a *Application) writeOutput(path string, abstracts []domain.Abstract, decisions []domain.Decision) error {
	if path == "" {
		return csvio.WriteDecisions(os.Stdout, abstracts, decisions)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("app: create output: %w", err)
	}
	if err := csvio.WriteDecisions(f, abstracts, decisions); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func (a *Application) close() {
	if a.closeAudit != nil {
		if err := a.closeAudit(); err != nil {
			a.logger.Error("close audit sink", "error", err)
		}
	}
	if a.repo != nil {
		if err := a.repo.Close(); err != nil {
			a.logger.Error("close repository", "error", err)
		}
	}
}

func openAudit(path string) (*audit.Log, func() error, error) {
	if path == "" {
		return audit.NewLog(), nil, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("app: create audit file: %w", err)
	}
	return audit.NewLogWithSink(f), f.Close, nil
}
