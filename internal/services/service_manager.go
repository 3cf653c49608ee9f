package services

import (
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/realprep/exam-service/internal/events"
	"github.com/realprep/exam-service/internal/repositories"
	"github.com/realprep/exam-service/internal/validator"
)

// ServiceManager provides access to all service instances
type ServiceManager interface {
	Attempt() AttemptService
	Question() QuestionService
	Auth() AuthService
	Import() ImportService
	Close() error
}

// ServiceManagerConfig holds the cross-service settings
type ServiceManagerConfig struct {
	JWTSecret string
	TokenTTL  time.Duration

	// Rand seeds attempt shuffling; nil means a time-seeded source.
	Rand *rand.Rand
}

type serviceManager struct {
	repo      repositories.Repository
	logger    *slog.Logger
	validator *validator.Validator
	publisher events.EventPublisher

	attemptService  AttemptService
	questionService QuestionService
	authService     AuthService
	importService   ImportService

	closeOnce sync.Once
}

// NewServiceManager creates a service manager with all dependencies wired
func NewServiceManager(
	repo repositories.Repository,
	logger *slog.Logger,
	v *validator.Validator,
	publisher events.EventPublisher,
	config ServiceManagerConfig,
) ServiceManager {
	return &serviceManager{
		repo:            repo,
		logger:          logger,
		validator:       v,
		publisher:       publisher,
		attemptService:  NewAttemptService(repo, logger, v, publisher, config.Rand),
		questionService: NewQuestionService(repo, logger, v),
		authService:     NewAuthService(repo, logger, v, config.JWTSecret, config.TokenTTL),
		importService:   NewImportService(repo, logger, publisher),
	}
}

func (m *serviceManager) Attempt() AttemptService {
	return m.attemptService
}

func (m *serviceManager) Question() QuestionService {
	return m.questionService
}

func (m *serviceManager) Auth() AuthService {
	return m.authService
}

func (m *serviceManager) Import() ImportService {
	return m.importService
}

// Close releases resources the services hold, currently the event publisher.
func (m *serviceManager) Close() error {
	var err error
	m.closeOnce.Do(func() {
		if m.publisher != nil {
			err = m.publisher.Close()
		}
	})
	return err
}
