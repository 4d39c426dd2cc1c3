package scheduler_test

import (
	"context"
	"testing"
	"time"

	"github.com/afonsoingles/helper-scheduler/internal/directory"
	"github.com/afonsoingles/helper-scheduler/internal/domain"
	"github.com/afonsoingles/helper-scheduler/internal/helperkit"
	"github.com/afonsoingles/helper-scheduler/internal/scheduler"
)

// fakeDirectory is a hand-rolled in-memory UserDirectory.
type fakeDirectory struct {
	users map[string]domain.User
}

func newFakeDirectory(users ...domain.User) *fakeDirectory {
	d := &fakeDirectory{users: map[string]domain.User{}}
	for _, u := range users {
		d.users[u.ID] = u
	}
	return d
}

func (d *fakeDirectory) GetUserByID(_ context.Context, id string, _ directory.LookupOptions) (domain.User, bool, error) {
	u, ok := d.users[id]
	return u, ok, nil
}

func (d *fakeDirectory) GetAllActiveUsers(_ context.Context) ([]domain.User, error) {
	var out []domain.User
	for _, u := range d.users {
		out = append(out, u)
	}
	return out, nil
}

func (d *fakeDirectory) UpdateUser(_ context.Context, id string, record domain.User) error {
	d.users[id] = record
	return nil
}

func TestDispatcher_Tick_ExpiresOverdueJob(t *testing.T) {
	ctx := context.Background()
	q := newTestQueue(t)
	now := time.Unix(1_000_000, 0)

	job := domain.Job{
		ExecutionID: "exec-expired", UserID: domain.InternalOwner, HelperID: "checkIn",
		ExecutionTime: now.Unix() - 200, ExecutionScore: domain.Score(now.Unix()-200, 2),
		Priority: 2, ExecutionExpiry: 60, Status: domain.JobQueued,
	}
	if err := q.Enqueue(ctx, job); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	executor := scheduler.NewExecutor(q, newLogger(), nil)
	d := scheduler.NewDispatcher(q, newFakeDirectory(), executor, newLogger())
	d.SetClock(func() time.Time { return now })

	d.Tick(ctx)
	d.Wait()

	record, _, err := q.JobRecord(ctx, "exec-expired")
	if err != nil {
		t.Fatalf("JobRecord: %v", err)
	}
	if record.Status != domain.JobExpired {
		t.Fatalf("status = %s, want expired", record.Status)
	}
}

func TestDispatcher_Tick_HelperNotFoundFailsBeforeRun(t *testing.T) {
	ctx := context.Background()
	q := newTestQueue(t)
	now := time.Unix(2_000_000, 0)

	job := domain.Job{
		ExecutionID: "exec-missing-helper", UserID: domain.InternalOwner, HelperID: "doesNotExist",
		ExecutionTime: now.Unix(), ExecutionScore: domain.Score(now.Unix(), 3),
		Priority: 3, ExecutionExpiry: 60, Status: domain.JobQueued,
	}
	if err := q.Enqueue(ctx, job); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	executor := scheduler.NewExecutor(q, newLogger(), nil)
	d := scheduler.NewDispatcher(q, newFakeDirectory(), executor, newLogger())
	d.SetClock(func() time.Time { return now })

	d.Tick(ctx)
	d.Wait()

	record, _, err := q.JobRecord(ctx, "exec-missing-helper")
	if err != nil {
		t.Fatalf("JobRecord: %v", err)
	}
	if record.Status != domain.JobError {
		t.Fatalf("status = %s, want error", record.Status)
	}
}

func TestDispatcher_Tick_UnknownUserFailsBeforeRun(t *testing.T) {
	ctx := context.Background()
	q := newTestQueue(t)
	now := time.Unix(3_000_000, 0)

	helperkit.Register(domain.HelperDefinition{ID: "dispatcherTestHelper"}, func(ctx context.Context, rc helperkit.RunContext) error {
		return nil
	})

	job := domain.Job{
		ExecutionID: "exec-ghost-user", UserID: "ghost", HelperID: "dispatcherTestHelper",
		ExecutionTime: now.Unix(), ExecutionScore: domain.Score(now.Unix(), 3),
		Priority: 3, ExecutionExpiry: 60, Status: domain.JobQueued,
	}
	if err := q.Enqueue(ctx, job); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	executor := scheduler.NewExecutor(q, newLogger(), nil)
	d := scheduler.NewDispatcher(q, newFakeDirectory(), executor, newLogger())
	d.SetClock(func() time.Time { return now })

	d.Tick(ctx)
	d.Wait()

	record, _, err := q.JobRecord(ctx, "exec-ghost-user")
	if err != nil {
		t.Fatalf("JobRecord: %v", err)
	}
	if record.Status != domain.JobError {
		t.Fatalf("status = %s, want error", record.Status)
	}
}

func TestDispatcher_Tick_RunsHelperToSuccess(t *testing.T) {
	ctx := context.Background()
	q := newTestQueue(t)
	now := time.Unix(4_000_000, 0)

	ran := make(chan struct{}, 1)
	helperkit.Register(domain.HelperDefinition{ID: "dispatcherSuccessHelper"}, func(ctx context.Context, rc helperkit.RunContext) error {
		ran <- struct{}{}
		return nil
	})

	user := domain.User{ID: "u1", Status: domain.StatusActive, Region: "US"}
	job := domain.Job{
		ExecutionID: "exec-ok", UserID: "u1", HelperID: "dispatcherSuccessHelper",
		ExecutionTime: now.Unix(), ExecutionScore: domain.Score(now.Unix(), 3),
		Priority: 3, ExecutionExpiry: 60, Status: domain.JobQueued,
	}
	if err := q.Enqueue(ctx, job); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	executor := scheduler.NewExecutor(q, newLogger(), nil)
	d := scheduler.NewDispatcher(q, newFakeDirectory(user), executor, newLogger())
	d.SetClock(func() time.Time { return now })

	d.Tick(ctx)

	select {
	case <-ran:
	case <-time.After(2 * time.Second):
		t.Fatal("helper was never invoked")
	}
	d.Wait()

	record, _, err := q.JobRecord(ctx, "exec-ok")
	if err != nil {
		t.Fatalf("JobRecord: %v", err)
	}
	if record.Status != domain.JobSuccess {
		t.Fatalf("status = %s, want success", record.Status)
	}
}
