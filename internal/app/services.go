package app

import (
	"github.com/fairyhunter13/ai-interview-coach/internal/adapter/ai"
	"github.com/fairyhunter13/ai-interview-coach/internal/config"
	"github.com/fairyhunter13/ai-interview-coach/internal/domain"
	"github.com/fairyhunter13/ai-interview-coach/internal/usecase"
)

// Deps are the adapters the use cases are built from. Scoring, Events,
// Observer and Rand are optional.
type Deps struct {
	Content    domain.ContentRepository
	Interviews domain.InterviewRepository
	Ledger     domain.QuotaLedger
	Scoring    *ai.ScoringBackend
	Events     domain.EventPublisher
	Observer   usecase.EvaluationObserver
	Rand       usecase.Rand
}

// Services bundles the use cases the HTTP layer serves.
type Services struct {
	Content  usecase.ContentService
	Sessions usecase.SessionService
	Queries  usecase.QueryService
}

// BuildServices wires the use case graph.
func BuildServices(cfg config.Config, d Deps) Services {
	var backend domain.ScoringBackend
	if d.Scoring != nil {
		backend = d.Scoring
	}
	evaluator := usecase.NewEvaluator(backend, d.Observer)
	return Services{
		Content: usecase.NewContentService(d.Content),
		Sessions: usecase.NewSessionService(
			d.Content,
			d.Interviews,
			usecase.NewQuotaGuard(d.Ledger, cfg.DailyLimit()),
			usecase.NewQuestionSelector(d.Rand, cfg.QuestionCount()),
			evaluator,
			d.Events,
		),
		Queries: usecase.NewQueryService(d.Content, d.Interviews),
	}
}
