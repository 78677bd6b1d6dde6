package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/hotel-reservation/internal/database"
	"github.com/iliyamo/hotel-reservation/internal/lock"
	"github.com/iliyamo/hotel-reservation/internal/model"
	"github.com/iliyamo/hotel-reservation/internal/queue"
	"github.com/iliyamo/hotel-reservation/internal/repository"
	"github.com/iliyamo/hotel-reservation/internal/utils"
)

func newAdmission(s *memStore, ev queue.Publisher) *Admission {
	fixed := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	return NewAdmission(s, lock.NewKeyedMutex(), ev, quietLog(), WithClock(func() time.Time { return fixed }))
}

func input(guest string, room uint64, in, out, total string) CreateBookingInput {
	return CreateBookingInput{GuestName: guest, RoomID: room, CheckIn: in, CheckOut: out, TotalPrice: model.MustParseMoney(total)}
}

func TestCreateBookingValidatesBeforeAnyQuery(t *testing.T) {
	cases := map[string]CreateBookingInput{
		"guest_name":     {RoomID: 1, CheckIn: "2024-06-01", CheckOut: "2024-06-03", TotalPrice: 300000},
		"room_id":        {GuestName: "Alice", CheckIn: "2024-06-01", CheckOut: "2024-06-03", TotalPrice: 300000},
		"check_in_date":  {GuestName: "Alice", RoomID: 1, CheckIn: "06/01/2024", CheckOut: "2024-06-03", TotalPrice: 300000},
		"check_out_date": {GuestName: "Alice", RoomID: 1, CheckIn: "2024-06-01", TotalPrice: 300000},
		"total_price":    {GuestName: "Alice", RoomID: 1, CheckIn: "2024-06-01", CheckOut: "2024-06-03"},
	}
	for field, in := range cases {
		t.Run(field, func(t *testing.T) {
			s := newMemStore()
			_, err := newAdmission(s, nil).CreateBooking(context.Background(), in)
			require.Error(t, err)
			var ve *ValidationError
			require.True(t, errors.As(err, &ve))
			assert.Equal(t, field, ve.Field)
			assert.True(t, errors.Is(err, ErrValidation))
			assert.Zero(t, s.calls)
		})
	}

	s := newMemStore()
	neg := input("Alice", 1, "2024-06-01", "2024-06-03", "-1")
	_, err := newAdmission(s, nil).CreateBooking(context.Background(), neg)
	assert.True(t, errors.Is(err, ErrValidation))
}

func TestCreateBookingRejectsPriceBeyondColumn(t *testing.T) {
	s := newMemStore()
	a := newAdmission(s, nil)

	_, err := a.CreateBooking(context.Background(), input("Alice", 1, "2024-06-01", "2024-06-03", "100000000"))
	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "total_price", ve.Field)
	assert.Equal(t, "must be at most 99999999.99", ve.Reason)
	assert.Zero(t, s.calls)

	_, err = a.CreateBooking(context.Background(), input("Alice", 1, "2024-06-01", "2024-06-03", "99999999.99"))
	require.NoError(t, err)
}

func TestCreateBookingRejectsInvertedRange(t *testing.T) {
	s := newMemStore()
	a := newAdmission(s, nil)
	for _, in := range []CreateBookingInput{
		input("Alice", 1, "2024-06-03", "2024-06-03", "1500"),
		input("Alice", 1, "2024-06-04", "2024-06-03", "1500"),
	} {
		_, err := a.CreateBooking(context.Background(), in)
		assert.True(t, errors.Is(err, model.ErrInvalidRange))
	}
	assert.Zero(t, s.calls)
	assert.Empty(t, s.activePerRoom())
}

func TestAliceBobCarol(t *testing.T) {
	s := newMemStore()
	rec := &recorder{}
	a := newAdmission(s, rec)
	ctx := context.Background()

	alice, err := a.CreateBooking(ctx, input("Alice", 1, "2024-06-01", "2024-06-03", "3000"))
	require.NoError(t, err)
	assert.Equal(t, uint64(1), alice)

	_, err = a.CreateBooking(ctx, input("Bob", 1, "2024-06-02", "2024-06-04", "3000"))
	assert.True(t, errors.Is(err, repository.ErrConflict))

	carol, err := a.CreateBooking(ctx, input("Carol", 1, "2024-06-03", "2024-06-05", "3000"))
	require.NoError(t, err, "same-day turnover is not an overlap")
	assert.Equal(t, uint64(2), carol)

	a.Drain()
	assert.Equal(t, []string{queue.KindCreated, queue.KindCreated}, rec.kinds())
	var guests []string
	for _, ev := range rec.events {
		guests = append(guests, ev.GuestName)
		assert.Equal(t, model.BookingConfirmed, ev.Status)
	}
	assert.ElementsMatch(t, []string{"Alice", "Carol"}, guests)
}

func TestConcurrentCreateAdmitsExactlyOne(t *testing.T) {
	s := newMemStore()
	s.staleReplica = true // every caller passes the advisory check
	a := newAdmission(s, nil)

	const callers = 16
	var wg sync.WaitGroup
	var mu sync.Mutex
	var ok, conflicts int
	start := make(chan struct{})
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			_, err := a.CreateBooking(context.Background(), input(fmt.Sprintf("guest-%d", i), 1, "2024-06-01", "2024-06-03", "3000"))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case errors.Is(err, repository.ErrConflict):
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	close(start)
	wg.Wait()

	assert.Equal(t, 1, ok)
	assert.Equal(t, callers-1, conflicts)
	assertNoOverlaps(t, s)
}

func TestConcurrentCreateMixedRanges(t *testing.T) {
	s := newMemStore()
	s.staleReplica = true
	a := newAdmission(s, nil)

	var wg sync.WaitGroup
	for i := 0; i < 30; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			room := uint64(i%2 + 1)
			in := model.NewDate(2024, time.June, 1+i%5)
			out := in.AddDays(1 + i%3)
			_, _ = a.CreateBooking(context.Background(), input("g", room, in.String(), out.String(), "1500"))
		}(i)
	}
	wg.Wait()
	assertNoOverlaps(t, s)
}

func assertNoOverlaps(t *testing.T, s *memStore) {
	t.Helper()
	for room, bs := range s.activePerRoom() {
		for i := range bs {
			for j := i + 1; j < len(bs); j++ {
				assert.False(t, bs[i].DateRange.Overlaps(bs[j].DateRange),
					"room %d: bookings %d %s and %d %s overlap", room, bs[i].ID, bs[i].DateRange, bs[j].ID, bs[j].DateRange)
			}
		}
	}
}

func TestStaleReplicaIsCaughtByPrimary(t *testing.T) {
	s := newMemStore()
	a := newAdmission(s, nil)
	_, err := a.CreateBooking(context.Background(), input("Alice", 1, "2024-06-01", "2024-06-03", "3000"))
	require.NoError(t, err)

	s.staleReplica = true
	_, err = a.CreateBooking(context.Background(), input("Bob", 1, "2024-06-02", "2024-06-04", "3000"))
	assert.True(t, errors.Is(err, repository.ErrConflict))
}

func TestReplicaOutageFallsBackToPrimary(t *testing.T) {
	s := newMemStore()
	s.replicaErr = fmt.Errorf("%w: replica down", database.ErrStorageUnavailable)
	a := newAdmission(s, nil)

	_, err := a.CreateBooking(context.Background(), input("Alice", 1, "2024-06-01", "2024-06-03", "3000"))
	require.NoError(t, err)

	s.replicaErr = errors.New("syntax error")
	_, err = a.CreateBooking(context.Background(), input("Bob", 2, "2024-06-01", "2024-06-03", "3000"))
	assert.EqualError(t, err, "syntax error")
}

// downLocker behaves like a RedisLocker whose connection has dropped.
type downLocker struct{ err error }

func (d downLocker) Lock(context.Context, string) (func(), error) { return nil, d.err }

func TestLockBackendOutageFallsBackToPrimary(t *testing.T) {
	s := newMemStore()
	s.staleReplica = true
	down := downLocker{err: fmt.Errorf("%w: lock room:1: dial tcp: connection refused", lock.ErrUnavailable)}
	a := NewAdmission(s, down, nil, quietLog())

	id, err := a.CreateBooking(context.Background(), input("Alice", 1, "2024-06-01", "2024-06-03", "3000"))
	require.NoError(t, err)
	assert.NotZero(t, id)

	_, err = a.CreateBooking(context.Background(), input("Bob", 1, "2024-06-02", "2024-06-04", "3000"))
	assert.True(t, errors.Is(err, repository.ErrConflict), "primary still rejects the overlap")
	assert.Len(t, s.activePerRoom()[1], 1)
}

func TestUnexpectedLockErrorFailsRequest(t *testing.T) {
	s := newMemStore()
	a := NewAdmission(s, downLocker{err: errors.New("lock: bad key")}, nil, quietLog())

	_, err := a.CreateBooking(context.Background(), input("Alice", 1, "2024-06-01", "2024-06-03", "3000"))
	assert.EqualError(t, err, "lock: bad key")
	assert.Empty(t, s.activePerRoom())
}

func TestCreateBookingUnknownRoom(t *testing.T) {
	s := newMemStore()
	_, err := newAdmission(s, nil).CreateBooking(context.Background(), input("Alice", 99, "2024-06-01", "2024-06-03", "3000"))
	assert.True(t, errors.Is(err, repository.ErrRoomNotFound))
}

func TestBusyRoomTimesOut(t *testing.T) {
	s := newMemStore()
	locker := lock.NewKeyedMutex()
	release, err := locker.Lock(context.Background(), lock.RoomKey(1))
	require.NoError(t, err)
	defer release()

	a := NewAdmission(s, locker, nil, quietLog(), WithLockTimeout(10*time.Millisecond))
	_, err = a.CreateBooking(context.Background(), input("Alice", 1, "2024-06-01", "2024-06-03", "3000"))
	assert.True(t, errors.Is(err, lock.ErrNotAcquired))
}

func TestLifecycleMovesRoomStatus(t *testing.T) {
	s := newMemStore()
	rec := &recorder{}
	a := newAdmission(s, rec)
	ctx := context.Background()

	id, err := a.CreateBooking(ctx, input("Alice", 1, "2024-06-01", "2024-06-03", "3000"))
	require.NoError(t, err)

	b, err := a.CheckIn(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, model.BookingCheckedIn, b.Status)
	assert.Equal(t, model.RoomOccupied, s.roomStatus(1))

	_, err = a.CheckIn(ctx, id)
	var te *model.TransitionError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, model.BookingCheckedIn, te.Current)
	assert.Equal(t, model.RoomOccupied, s.roomStatus(1), "rejected check-in must not touch the room")

	_, err = a.Cancel(ctx, id)
	assert.True(t, errors.Is(err, model.ErrInvalidTransition))

	b, err = a.CheckOut(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, model.BookingCheckedOut, b.Status)
	assert.Equal(t, model.RoomAvailable, s.roomStatus(1))

	// A checked-out stay no longer blocks the dates.
	_, err = a.CreateBooking(ctx, input("Bob", 1, "2024-06-01", "2024-06-03", "3000"))
	require.NoError(t, err)

	a.Drain()
	assert.ElementsMatch(t, []string{queue.KindCreated, queue.KindCheckedIn, queue.KindCheckedOut, queue.KindCreated}, rec.kinds())
}

func TestCancelFreesDatesWithoutRoomEffect(t *testing.T) {
	s := newMemStore()
	a := newAdmission(s, nil)
	ctx := context.Background()

	id, err := a.CreateBooking(ctx, input("Alice", 1, "2024-06-01", "2024-06-03", "3000"))
	require.NoError(t, err)
	b, err := a.Cancel(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, model.BookingCancelled, b.Status)
	assert.Equal(t, model.RoomAvailable, s.roomStatus(1))

	_, err = a.CheckIn(ctx, id)
	assert.True(t, errors.Is(err, model.ErrInvalidTransition))

	_, err = a.CreateBooking(ctx, input("Bob", 1, "2024-06-02", "2024-06-04", "3000"))
	assert.NoError(t, err)
}

func TestTransitionUnknownBooking(t *testing.T) {
	a := newAdmission(newMemStore(), nil)
	_, err := a.CheckIn(context.Background(), 42)
	assert.True(t, errors.Is(err, repository.ErrNotFound))

	_, err = a.CheckOut(context.Background(), 0)
	assert.True(t, errors.Is(err, ErrValidation))
}

func TestPublishFailureDoesNotFailRequest(t *testing.T) {
	s := newMemStore()
	rec := &recorder{fail: true}
	a := newAdmission(s, rec)
	_, err := a.CreateBooking(context.Background(), input("Alice", 1, "2024-06-01", "2024-06-03", "3000"))
	require.NoError(t, err)
	a.Drain()
	assert.Empty(t, rec.kinds())
}

func TestListAvailableRooms(t *testing.T) {
	s := newMemStore()
	a := newAdmission(s, nil)
	av := NewAvailability(s, s)
	ctx := context.Background()

	_, err := a.CreateBooking(ctx, input("Alice", 1, "2024-06-01", "2024-06-03", "3000"))
	require.NoError(t, err)

	stay, err := model.ParseDateRange("2024-06-02", "2024-06-05")
	require.NoError(t, err)
	rooms, err := av.ListAvailableRooms(ctx, stay)
	require.NoError(t, err)
	require.Len(t, rooms, 1)
	assert.Equal(t, "102", rooms[0].RoomNumber)
	assert.Equal(t, 3, rooms[0].Nights)
	assert.Equal(t, "4500.00", rooms[0].EstimatedTotal.String())

	free, err := av.CheckAvailability(ctx, 1, stay)
	require.NoError(t, err)
	assert.False(t, free)

	adjacent, err := model.ParseDateRange("2024-06-03", "2024-06-04")
	require.NoError(t, err)
	free, err = av.CheckAvailability(ctx, 1, adjacent)
	require.NoError(t, err)
	assert.True(t, free)

	_, err = av.ListAvailableRooms(ctx, model.DateRange{CheckIn: stay.CheckOut, CheckOut: stay.CheckIn})
	assert.True(t, errors.Is(err, model.ErrInvalidRange))
}

type memStaff map[string]model.Staff

func (m memStaff) GetByUsername(_ context.Context, u string) (model.Staff, error) {
	if s, ok := m[u]; ok {
		return s, nil
	}
	return model.Staff{}, repository.ErrStaffNotFound
}

func (m memStaff) GetByID(_ context.Context, id uint64) (model.Staff, error) {
	for _, s := range m {
		if s.ID == id {
			return s, nil
		}
	}
	return model.Staff{}, repository.ErrStaffNotFound
}

func TestLogin(t *testing.T) {
	hash, err := utils.HashPassword("admin1234", bcrypt.MinCost)
	require.NoError(t, err)
	staff := memStaff{
		"admin":   {ID: 1, Username: "admin", PasswordHash: hash, FullName: "Hotel Manager", Role: model.RoleManager, IsActive: true},
		"retired": {ID: 2, Username: "retired", PasswordHash: hash, Role: model.RoleReceptionist},
	}
	auth := NewAuth(staff, "secret", 8*time.Hour, quietLog())
	ctx := context.Background()

	sess, err := auth.Login(ctx, " admin ", "admin1234")
	require.NoError(t, err)
	assert.Equal(t, model.RoleManager, sess.Staff.Role)
	claims, err := utils.ParseAccessToken("secret", sess.Token)
	require.NoError(t, err)
	assert.Equal(t, "admin", claims.Username)

	_, err = auth.Login(ctx, "admin", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = auth.Login(ctx, "nobody", "admin1234")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = auth.Login(ctx, "retired", "admin1234")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = auth.Login(ctx, "", "x")
	assert.ErrorIs(t, err, ErrValidation)

	me, err := auth.Me(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "Hotel Manager", me.FullName)
}
