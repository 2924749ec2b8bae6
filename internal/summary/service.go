package summary

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"finance/internal/cache"
	"finance/internal/core"
	"finance/internal/log"
)

// Scope selects the transactions a query aggregates: those of the user's
// accounts, optionally a single account, dated within the range.
type Scope struct {
	UserID    string
	AccountID string
	Range     Range
}

// Reader is the set of aggregate queries the service needs from storage.
type Reader interface {
	PeriodTotals(ctx context.Context, s Scope) (core.PeriodTotals, error)
	// CategoryTotals returns absolute expense totals per category name,
	// skipping uncategorized transactions.
	CategoryTotals(ctx context.Context, s Scope) ([]core.CategoryAmount, error)
	// DailyTotals returns the days with at least one transaction.
	DailyTotals(ctx context.Context, s Scope) ([]core.DayTotals, error)
}

// Query is a summary request. Nil bounds take their defaults.
type Query struct {
	AccountID string
	From      *core.Date
	To        *core.Date
}

type Summary struct {
	Range           Range                 `json:"range"`
	RemainingAmount core.Money            `json:"remainingAmount"`
	RemainingChange float64               `json:"remainingChange"`
	IncomeAmount    core.Money            `json:"incomeAmount"`
	IncomeChange    float64               `json:"incomeChange"`
	ExpensesAmount  core.Money            `json:"expensesAmount"`
	ExpensesChange  float64               `json:"expensesChange"`
	Previous        core.PeriodTotals     `json:"previous"`
	Categories      []core.CategoryAmount `json:"categories"`
	Days            []core.DayTotals      `json:"days"`
}

type Service struct {
	reader  Reader
	now     func() time.Time
	timeout time.Duration
	logger  *log.StructuredLogger
	cache   cache.Cache[Summary]

	// generations counts invalidations per user; a result computed across
	// an invalidation is not cached.
	mu          sync.Mutex
	generations map[string]uint64
}

type Option func(*Service)

// WithClock overrides the time source used for the default range.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithTimeout bounds the duration of one Summarize call.
func WithTimeout(d time.Duration) Option {
	return func(s *Service) { s.timeout = d }
}

// WithCache memoizes results per user, account and resolved range until
// Invalidate is called for the user or the entry expires.
func WithCache(c cache.Cache[Summary]) Option {
	return func(s *Service) { s.cache = c }
}

func WithLogger(l *log.Logger) Option {
	return func(s *Service) { s.logger = log.NewStructuredLogger(l.WithComponent(log.ComponentSummary)) }
}

func NewService(reader Reader, opts ...Option) *Service {
	s := &Service{
		reader:      reader,
		now:         time.Now,
		logger:      log.NewStructuredLogger(log.Discard()),
		generations: make(map[string]uint64),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Summarize computes the dashboard figures for userID.
func (s *Service) Summarize(ctx context.Context, userID string, q Query) (Summary, error) {
	start := time.Now()
	r, err := ResolveRange(q.From, q.To, s.now())
	if err != nil {
		return Summary{}, err
	}
	key := cacheKey(userID, q.AccountID, r)
	var gen uint64
	if s.cache != nil {
		gen = s.generation(userID)
		if cached, ok := s.cache.Get(key); ok {
			return cached, nil
		}
	}
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	current := Scope{UserID: userID, AccountID: q.AccountID, Range: r}
	previous := current
	previous.Range = r.Previous()

	var (
		cur, prev  core.PeriodTotals
		categories []core.CategoryAmount
		active     []core.DayTotals
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		cur, err = s.reader.PeriodTotals(gctx, current)
		if err != nil {
			return fmt.Errorf("current period totals: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		prev, err = s.reader.PeriodTotals(gctx, previous)
		if err != nil {
			return fmt.Errorf("previous period totals: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		categories, err = s.reader.CategoryTotals(gctx, current)
		if err != nil {
			return fmt.Errorf("category totals: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		active, err = s.reader.DailyTotals(gctx, current)
		if err != nil {
			return fmt.Errorf("daily totals: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return Summary{}, err
	}

	out := Summary{
		Range:           r,
		RemainingAmount: cur.Remaining,
		RemainingChange: PercentageChange(float64(cur.Remaining), float64(prev.Remaining)),
		IncomeAmount:    cur.Income,
		IncomeChange:    PercentageChange(float64(cur.Income), float64(prev.Income)),
		ExpensesAmount:  cur.Expenses,
		ExpensesChange:  PercentageChange(float64(cur.Expenses), float64(prev.Expenses)),
		Previous:        prev,
		Categories:      TopCategoriesWithOther(categories, TopCategories),
		Days:            FillMissingDays(active, r),
	}
	if s.cache != nil {
		s.store(userID, gen, key, out)
	}
	s.logger.LogSummary(ctx, userID, q.AccountID, r.From.String(), r.To.String(), time.Since(start).Milliseconds())
	return out, nil
}

// Invalidate drops the cached summaries of userID. Summaries still being
// computed when it runs are not cached.
func (s *Service) Invalidate(userID string) {
	if s.cache == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generations[userID]++
	s.cache.DeletePrefix(userPrefix(userID))
}

func (s *Service) generation(userID string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generations[userID]
}

// store caches out unless userID was invalidated since gen was read.
func (s *Service) store(userID string, gen uint64, key string, out Summary) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generations[userID] != gen {
		return
	}
	s.cache.Set(key, out)
}

func userPrefix(userID string) string {
	return userID + "\x00"
}

func cacheKey(userID, accountID string, r Range) string {
	return userPrefix(userID) + accountID + "\x00" + r.From.String() + ".." + r.To.String()
}
