package testfixtures

import (
	"log/slog"
	"time"

	"github.com/example/speaker-scheduler/internal/application"
	"github.com/example/speaker-scheduler/internal/scheduler"
)

// ServiceFactory builds application services with deterministic IDs and time.
type ServiceFactory struct {
	Clock       *Clock
	IDGenerator *IDGenerator
	Logger      *slog.Logger
}

// ServiceFactoryOption configures a ServiceFactory instance.
type ServiceFactoryOption func(*ServiceFactory)

// NewServiceFactory constructs a ServiceFactory with defaults.
func NewServiceFactory(opts ...ServiceFactoryOption) *ServiceFactory {
	factory := &ServiceFactory{}
	for _, opt := range opts {
		opt(factory)
	}
	if factory.Clock == nil {
		factory.Clock = NewClock(time.Time{})
	}
	if factory.IDGenerator == nil {
		factory.IDGenerator = NewIDGenerator("id")
	}
	return factory
}

// WithClock overrides the clock used by the factory.
func WithClock(clock *Clock) ServiceFactoryOption {
	return func(factory *ServiceFactory) { factory.Clock = clock }
}

// WithIDGenerator overrides the identifier generator used by the factory.
func WithIDGenerator(generator *IDGenerator) ServiceFactoryOption {
	return func(factory *ServiceFactory) { factory.IDGenerator = generator }
}

// WithLogger routes service logs to logger.
func WithLogger(logger *slog.Logger) ServiceFactoryOption {
	return func(factory *ServiceFactory) { factory.Logger = logger }
}

// SpeakerServiceDeps captures dependencies for constructing a speaker service.
type SpeakerServiceDeps struct {
	Speakers  application.SpeakerRepository
	Programs  application.ProgramSnapshot
	Users     application.UserDirectory
	Distances application.DistanceCalculator
	Titles    scheduler.TalkTitles
}

func (f *ServiceFactory) NewSpeakerService(deps SpeakerServiceDeps) *application.SpeakerService {
	return application.NewSpeakerServiceWithLogger(
		deps.Speakers,
		deps.Programs,
		deps.Users,
		deps.Distances,
		deps.Titles,
		f.IDGenerator.NextFunc(),
		f.Clock.NowFunc(),
		f.Logger,
	)
}

// ProgramServiceDeps captures dependencies for constructing a program service.
type ProgramServiceDeps struct {
	Programs application.ProgramRepository
	Speakers application.SpeakerLookup
	Titles   scheduler.TalkTitles
}

func (f *ServiceFactory) NewProgramService(deps ProgramServiceDeps) *application.ProgramService {
	return application.NewProgramServiceWithLogger(
		deps.Programs,
		deps.Speakers,
		deps.Titles,
		f.IDGenerator.NextFunc(),
		f.Clock.NowFunc(),
		f.Logger,
	)
}

// CongregationServiceDeps captures dependencies for constructing a congregation service.
type CongregationServiceDeps struct {
	Congregations application.CongregationRepository
	Speakers      application.SpeakerLookup
}

func (f *ServiceFactory) NewCongregationService(deps CongregationServiceDeps) *application.CongregationService {
	return application.NewCongregationServiceWithLogger(
		deps.Congregations,
		deps.Speakers,
		f.IDGenerator.NextFunc(),
		f.Clock.NowFunc(),
		f.Logger,
	)
}

// UserServiceDeps captures dependencies for constructing a user service.
// A nil Hash stores passwords unchanged, which keeps tests fast.
type UserServiceDeps struct {
	Users    application.UserRepository
	Speakers application.SpeakerLookup
	Notifier application.Notifier
	Hash     application.PasswordHasher
}

func (f *ServiceFactory) NewUserService(deps UserServiceDeps) *application.UserService {
	hash := deps.Hash
	if hash == nil {
		hash = func(password string) (string, error) { return password, nil }
	}
	return application.NewUserServiceWithLogger(
		deps.Users,
		deps.Speakers,
		deps.Notifier,
		hash,
		f.IDGenerator.NextFunc(),
		f.Clock.NowFunc(),
		f.Logger,
	)
}

// AuthServiceDeps captures dependencies for constructing an auth service.
type AuthServiceDeps struct {
	Credentials    application.CredentialStore
	Tokens         application.TokenManager
	PasswordVerify application.PasswordVerifier
}

func (f *ServiceFactory) NewAuthService(deps AuthServiceDeps) *application.AuthService {
	return application.NewAuthServiceWithLogger(
		deps.Credentials,
		deps.Tokens,
		deps.PasswordVerify,
		f.Logger,
	)
}
