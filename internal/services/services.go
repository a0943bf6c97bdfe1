package services

import (
	"log/slog"
	"time"

	"bookclub/internal/domain"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "bookclub/services"

// Deps groups the collaborators shared by the admission, lifecycle, deletion and attendance services.
type Deps struct {
	Tx           domain.Transactor
	Events       domain.EventRepository
	Applications domain.ApplicationRepository
	Books        domain.BookRepository
	Users        domain.UserRepository
	Emails       domain.EmailService
	Audit        domain.AuditRecorder
	Dispatcher   *Dispatcher
	// Locks must be shared by every service that mutates events in this process.
	Locks        *EventLocks
	Logger       *slog.Logger
}

// Options tunes timeouts and lock retries.
type Options struct {
	ContextTimeout time.Duration
	// MaxRetries is the number of extra attempts after a lock timeout, deadlock or serialization failure.
	MaxRetries     int
	RetryBaseDelay time.Duration
}

// base holds what every transactional service needs. Services embed it.
type base struct {
	Deps
	retry          retryPolicy
	tracer         trace.Tracer
	contextTimeout time.Duration
	now            func() time.Time
	newCode        func() string
}

func newBase(deps Deps, opts Options) base {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Locks == nil {
		deps.Locks = NewEventLocks()
	}
	timeout := opts.ContextTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return base{
		Deps:           deps,
		retry:          newRetryPolicy(opts.MaxRetries, opts.RetryBaseDelay),
		tracer:         otel.Tracer(tracerName),
		contextTimeout: timeout,
		now:            time.Now,
		newCode:        uuid.NewString,
	}
}
