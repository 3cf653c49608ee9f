package repositories

import "context"

// Repository aggregates the per-domain repositories behind one handle.
type Repository interface {
	Question() QuestionRepository
	Attempt() AttemptRepository
	AttemptQuestion() AttemptQuestionRepository
	Answer() AnswerRepository
	User() UserRepository
	ImportJob() ImportJobRepository

	// WithTransaction runs fn with a Repository bound to one transaction;
	// any error rolls the whole unit back.
	WithTransaction(ctx context.Context, fn func(Repository) error) error

	Ping(ctx context.Context) error
	Close() error
}

// RepositoryManager owns the repository lifecycle.
type RepositoryManager interface {
	Initialize() error
	GetRepository() Repository
	HealthCheck(ctx context.Context) error
	Shutdown(ctx context.Context) error
}
