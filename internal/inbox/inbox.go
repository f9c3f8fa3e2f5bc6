// Package inbox holds the agent coordination messages shown on the dashboard.
// Messages live in memory only and the oldest fall off past the capacity.
package inbox

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/AngelCh415/leadsync/internal/metrics"
	"github.com/AngelCh415/leadsync/internal/models"
)

const DefaultCapacity = 30

var ErrInvalidMessage = errors.New("invalid message")

type Inbox struct {
	mu       sync.RWMutex
	msgs     []models.Message // newest first
	capacity int
	seeded   bool
	now      func() time.Time
	validate *validator.Validate
}

type Option func(*Inbox)

func WithClock(now func() time.Time) Option {
	return func(i *Inbox) { i.now = now }
}

func WithCapacity(n int) Option {
	return func(i *Inbox) {
		if n > 0 {
			i.capacity = n
		}
	}
}

// WithSeed starts the inbox with the standing coordination messages.
func WithSeed() Option {
	return func(i *Inbox) { i.seeded = true }
}

func New(opts ...Option) *Inbox {
	i := &Inbox{
		capacity: DefaultCapacity,
		now:      time.Now,
		validate: validator.New(),
	}
	for _, opt := range opts {
		opt(i)
	}
	if i.seeded {
		i.msgs = seed(i.now())
	}
	i.trim()
	return i
}

func seed(now time.Time) []models.Message {
	at := func(ago time.Duration) string { return metrics.FormatISO(now.Add(-ago)) }
	return []models.Message{
		{ID: "msg-1", From: "Nova", To: "Sales", Message: "Reminder: pipeline update scheduled at 15:00 GMT.", Time: at(2 * time.Minute)},
		{ID: "msg-2", From: "Sales", To: "Hunter", Message: "Can you surface the new high-value salons for tomorrow?", Time: at(5 * time.Minute)},
		{ID: "msg-3", From: "PM", To: "Dev", Message: "Need a patch for the dashboard logs before QA begins.", Time: at(11 * time.Minute)},
	}
}

// List returns a copy of the messages, newest first.
func (i *Inbox) List() []models.Message {
	i.mu.RLock()
	defer i.mu.RUnlock()
	out := make([]models.Message, len(i.msgs))
	copy(out, i.msgs)
	return out
}

// Post validates and stores m, assigning its id and time. It returns the
// stored message and the inbox after insertion.
func (i *Inbox) Post(m models.Message) (models.Message, []models.Message, error) {
	m.From = strings.TrimSpace(m.From)
	m.To = strings.TrimSpace(m.To)
	m.Message = strings.TrimSpace(m.Message)
	if err := i.validate.Struct(m); err != nil {
		return models.Message{}, nil, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}
	m.ID = "msg-" + uuid.NewString()
	m.Time = metrics.FormatISO(i.now())

	i.mu.Lock()
	i.msgs = append([]models.Message{m}, i.msgs...)
	i.trim()
	out := make([]models.Message, len(i.msgs))
	copy(out, i.msgs)
	i.mu.Unlock()

	return m, out, nil
}

func (i *Inbox) Len() int {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return len(i.msgs)
}

func (i *Inbox) trim() {
	if len(i.msgs) > i.capacity {
		i.msgs = i.msgs[:i.capacity]
	}
}
