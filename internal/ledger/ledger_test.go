package ledger

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/mkaraca/skyticket/internal/domain"
	"github.com/mkaraca/skyticket/internal/locks"
	"github.com/stretchr/testify/assert"
)

// fakeTicketRepo is an in-memory ticket store. Individual operations lock a
// mutex but deliberately do nothing to serialize check-then-act sequences;
// that is the ledger's job and what these tests exercise.
type fakeTicketRepo struct {
	mu       sync.Mutex
	tickets  map[string]*domain.Ticket
	arrivals map[string]time.Time
}

func newFakeTicketRepo() *fakeTicketRepo {
	return &fakeTicketRepo{
		tickets:  make(map[string]*domain.Ticket),
		arrivals: make(map[string]time.Time),
	}
}

func (f *fakeTicketRepo) Insert(ctx context.Context, ticket *domain.Ticket) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *ticket
	f.tickets[ticket.ID] = &cp
	return nil
}

func (f *fakeTicketRepo) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tickets[id]
	if !ok {
		return nil, domain.ErrTicketNotFound
	}
	cp := *t
	return &cp, nil
}

func (f *fakeTicketRepo) ActiveBySeat(ctx context.Context, flightID string, seatNumber int) (*domain.Ticket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range f.tickets {
		if t.FlightID == flightID && t.SeatNumber == seatNumber && t.Active() {
			cp := *t
			return &cp, nil
		}
	}
	return nil, domain.ErrTicketNotFound
}

func (f *fakeTicketRepo) ActiveSeats(ctx context.Context, flightID string) ([]int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	seats := make([]int, 0)
	for _, t := range f.tickets {
		if t.FlightID == flightID && t.Active() {
			seats = append(seats, t.SeatNumber)
		}
	}
	return seats, nil
}

func (f *fakeTicketRepo) ActiveCount(ctx context.Context, flightID string) (int, error) {
	seats, _ := f.ActiveSeats(ctx, flightID)
	return len(seats), nil
}

func (f *fakeTicketRepo) UpdateStatus(ctx context.Context, id string, status domain.TicketStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tickets[id]
	if !ok {
		return domain.ErrTicketNotFound
	}
	t.Status = status
	return nil
}

func (f *fakeTicketRepo) CancelAllActive(ctx context.Context, flightID string) ([]domain.Ticket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var cancelled []domain.Ticket
	for _, t := range f.tickets {
		if t.FlightID == flightID && t.Active() {
			t.Status = domain.TicketStatusCancelled
			cancelled = append(cancelled, *t)
		}
	}
	return cancelled, nil
}

func (f *fakeTicketRepo) Delete(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.tickets, id)
	return nil
}

func (f *fakeTicketRepo) ListByHolder(ctx context.Context, holderID string) ([]domain.Ticket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Ticket
	for _, t := range f.tickets {
		if t.HolderID == holderID {
			out = append(out, *t)
		}
	}
	return out, nil
}

func (f *fakeTicketRepo) ListAll(ctx context.Context) ([]domain.Ticket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Ticket
	for _, t := range f.tickets {
		out = append(out, *t)
	}
	return out, nil
}

func (f *fakeTicketRepo) CompleteArrivedBefore(ctx context.Context, deadline time.Time) ([]domain.Ticket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var completed []domain.Ticket
	for _, t := range f.tickets {
		arrival, ok := f.arrivals[t.FlightID]
		if ok && t.Active() && !arrival.After(deadline) {
			t.Status = domain.TicketStatusCompleted
			completed = append(completed, *t)
		}
	}
	return completed, nil
}

func newTicket(id, flightID string, seat int) *domain.Ticket {
	return &domain.Ticket{
		ID:          id,
		FlightID:    flightID,
		HolderID:    "user-1",
		SeatNumber:  seat,
		BookingDate: time.Now().UTC(),
	}
}

func TestSeatLedger_OccupyFreeSeat(t *testing.T) {
	repo := newFakeTicketRepo()
	l := NewSeatLedger(repo, locks.NewKeyedMutex())
	ctx := context.Background()

	committed := false
	err := l.Occupy(ctx, newTicket("t1", "F1", 3), func(context.Context) error {
		committed = true
		return nil
	})

	assert.NoError(t, err)
	assert.True(t, committed)

	stored, err := repo.GetByID(ctx, "t1")
	assert.NoError(t, err)
	assert.Equal(t, domain.TicketStatusActive, stored.Status)

	free, err := l.IsSeatFree(ctx, "F1", 3)
	assert.NoError(t, err)
	assert.False(t, free)
}

func TestSeatLedger_OccupyTakenSeat(t *testing.T) {
	repo := newFakeTicketRepo()
	l := NewSeatLedger(repo, locks.NewKeyedMutex())
	ctx := context.Background()

	assert.NoError(t, l.Occupy(ctx, newTicket("t1", "F1", 3), nil))

	err := l.Occupy(ctx, newTicket("t2", "F1", 3), nil)
	assert.ErrorIs(t, err, domain.ErrSeatTaken)

	_, err = repo.GetByID(ctx, "t2")
	assert.ErrorIs(t, err, domain.ErrTicketNotFound)
}

func TestSeatLedger_OccupyRevertsOnCommitFailure(t *testing.T) {
	repo := newFakeTicketRepo()
	l := NewSeatLedger(repo, locks.NewKeyedMutex())
	ctx := context.Background()

	commitErr := errors.New("counter write failed")
	err := l.Occupy(ctx, newTicket("t1", "F1", 3), func(context.Context) error {
		return commitErr
	})
	assert.ErrorIs(t, err, commitErr)

	// The claim must not survive a failed commit.
	free, ferr := l.IsSeatFree(ctx, "F1", 3)
	assert.NoError(t, ferr)
	assert.True(t, free)
	_, err = repo.GetByID(ctx, "t1")
	assert.ErrorIs(t, err, domain.ErrTicketNotFound)
}

func TestSeatLedger_Release(t *testing.T) {
	repo := newFakeTicketRepo()
	l := NewSeatLedger(repo, locks.NewKeyedMutex())
	ctx := context.Background()

	assert.NoError(t, l.Occupy(ctx, newTicket("t1", "F1", 3), nil))

	committed := false
	err := l.Release(ctx, "F1", "t1", func(context.Context) error {
		committed = true
		return nil
	})
	assert.NoError(t, err)
	assert.True(t, committed)

	stored, _ := repo.GetByID(ctx, "t1")
	assert.Equal(t, domain.TicketStatusCancelled, stored.Status)

	// Seat is bookable again.
	free, _ := l.IsSeatFree(ctx, "F1", 3)
	assert.True(t, free)
}

func TestSeatLedger_ReleaseAlreadyCancelled(t *testing.T) {
	repo := newFakeTicketRepo()
	l := NewSeatLedger(repo, locks.NewKeyedMutex())
	ctx := context.Background()

	assert.NoError(t, l.Occupy(ctx, newTicket("t1", "F1", 3), nil))
	assert.NoError(t, l.Release(ctx, "F1", "t1", nil))

	err := l.Release(ctx, "F1", "t1", nil)
	assert.ErrorIs(t, err, domain.ErrAlreadyCancelled)
}

func TestSeatLedger_ReleaseRestoresOnCommitFailure(t *testing.T) {
	repo := newFakeTicketRepo()
	l := NewSeatLedger(repo, locks.NewKeyedMutex())
	ctx := context.Background()

	assert.NoError(t, l.Occupy(ctx, newTicket("t1", "F1", 3), nil))

	commitErr := errors.New("counter write failed")
	err := l.Release(ctx, "F1", "t1", func(context.Context) error {
		return commitErr
	})
	assert.ErrorIs(t, err, commitErr)

	stored, _ := repo.GetByID(ctx, "t1")
	assert.Equal(t, domain.TicketStatusActive, stored.Status)
}

func TestSeatLedger_CancelAllActive(t *testing.T) {
	repo := newFakeTicketRepo()
	l := NewSeatLedger(repo, locks.NewKeyedMutex())
	ctx := context.Background()

	assert.NoError(t, l.Occupy(ctx, newTicket("t1", "F1", 1), nil))
	assert.NoError(t, l.Occupy(ctx, newTicket("t2", "F1", 2), nil))
	assert.NoError(t, l.Occupy(ctx, newTicket("t3", "F2", 1), nil))
	assert.NoError(t, l.Release(ctx, "F1", "t2", nil))

	cancelled, err := l.CancelAllActive(ctx, "F1")
	assert.NoError(t, err)
	assert.Len(t, cancelled, 1)
	assert.Equal(t, "t1", cancelled[0].ID)

	count, _ := l.ActiveCount(ctx, "F1")
	assert.Equal(t, 0, count)

	// Other flights untouched.
	count, _ = l.ActiveCount(ctx, "F2")
	assert.Equal(t, 1, count)
}

func TestSeatLedger_CompleteArrived(t *testing.T) {
	repo := newFakeTicketRepo()
	l := NewSeatLedger(repo, locks.NewKeyedMutex())
	ctx := context.Background()

	now := time.Now().UTC()
	repo.arrivals["F1"] = now.Add(-time.Hour)
	repo.arrivals["F2"] = now.Add(time.Hour)

	assert.NoError(t, l.Occupy(ctx, newTicket("t1", "F1", 1), nil))
	assert.NoError(t, l.Occupy(ctx, newTicket("t2", "F2", 1), nil))

	completed, err := l.CompleteArrived(ctx, now)
	assert.NoError(t, err)
	assert.Len(t, completed, 1)
	assert.Equal(t, "t1", completed[0].ID)

	stored, _ := repo.GetByID(ctx, "t2")
	assert.Equal(t, domain.TicketStatusActive, stored.Status)
}

func TestSeatLedger_ConcurrentOccupySameSeat(t *testing.T) {
	repo := newFakeTicketRepo()
	l := NewSeatLedger(repo, locks.NewKeyedMutex())
	ctx := context.Background()

	const attempts = 50
	var wg sync.WaitGroup
	results := make(chan error, attempts)

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			ticket := newTicket("t"+strconv.Itoa(n), "F1", 7)
			results <- l.Occupy(ctx, ticket, nil)
		}(i)
	}
	wg.Wait()
	close(results)

	winners, losers := 0, 0
	for err := range results {
		if err == nil {
			winners++
		} else {
			assert.ErrorIs(t, err, domain.ErrSeatTaken)
			losers++
		}
	}
	assert.Equal(t, 1, winners)
	assert.Equal(t, attempts-1, losers)

	count, _ := l.ActiveCount(ctx, "F1")
	assert.Equal(t, 1, count)
}
