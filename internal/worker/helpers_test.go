package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/joshu-sajeev/hrqueue/internal/config"
	"github.com/joshu-sajeev/hrqueue/internal/dto"
	"github.com/joshu-sajeev/hrqueue/internal/models"
	"github.com/joshu-sajeev/hrqueue/internal/registry"
	"github.com/joshu-sajeev/hrqueue/internal/storage/postgres"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var errHandler = errors.New("directory service unavailable")

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(t time.Time) *fakeClock { return &fakeClock{now: t} }

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// recorder is the handler side of the tests: pings succeed unless pingErr is
// set, user deactivations always fail.
type recorder struct {
	mu      sync.Mutex
	calls   map[string]int
	pingErr error
	block   chan struct{}
}

func newRecorder() *recorder {
	return &recorder{calls: make(map[string]int)}
}

func (r *recorder) count(kind string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls[kind]
}

func (r *recorder) hit(kind string) {
	r.mu.Lock()
	r.calls[kind]++
	r.mu.Unlock()
}

func (r *recorder) registry() *registry.Registry {
	reg := registry.New()
	registry.Register(reg, func(ctx context.Context, p dto.PingPayload) error {
		r.hit(dto.KindPing)
		if r.block != nil {
			<-r.block
		}
		return r.pingErr
	})
	registry.Register(reg, func(ctx context.Context, p dto.DeactivateUserPayload) error {
		r.hit(dto.KindDeactivateUser)
		return errHandler
	})
	return reg
}

func newTestStore(t *testing.T, clock *fakeClock) (*postgres.JobRepository, *gorm.DB) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:  logger.Default.LogMode(logger.Silent),
		NowFunc: clock.Now,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, postgres.MigrateModels(db, &models.Job{}))
	return postgres.NewJobRepository(db), db
}

func enqueue(t *testing.T, repo *postgres.JobRepository, job models.Job) *models.Job {
	t.Helper()
	if job.State == "" {
		job.State = config.JobStateScheduled
	}
	if job.Data == nil {
		job.Data = datatypes.JSON(`{}`)
	}
	require.NoError(t, repo.Create(context.Background(), &job))
	return &job
}

func reload(t *testing.T, repo *postgres.JobRepository, id uint) *models.Job {
	t.Helper()
	job, err := repo.Get(context.Background(), id)
	require.NoError(t, err)
	return job
}

func requireGone(t *testing.T, repo *postgres.JobRepository, id uint) {
	t.Helper()
	_, err := repo.Get(context.Background(), id)
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func ptr[T any](v T) *T { return &v }
