package service

import (
	"context"
	"errors"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/hotel-reservation/internal/model"
	"github.com/iliyamo/hotel-reservation/internal/queue"
	"github.com/iliyamo/hotel-reservation/internal/repository"
)

// memStore is an in-memory booking store.  Admit deliberately leaves a
// gap between its overlap check and its insert so that only an external
// per-room lock keeps concurrent admissions correct.
type memStore struct {
	mu       sync.Mutex
	nextID   uint64
	bookings map[uint64]model.Booking
	rooms    map[uint64]model.RoomWithType

	staleReplica bool  // FindConflicts sees nothing
	replicaErr   error // FindConflicts fails
	gap          time.Duration
	calls        int
}

func newMemStore() *memStore {
	s := &memStore{
		bookings: map[uint64]model.Booking{},
		rooms:    map[uint64]model.RoomWithType{},
		gap:      time.Millisecond,
	}
	standard := model.MustParseMoney("1500")
	for id, num := range map[uint64]string{1: "101", 2: "102"} {
		s.rooms[id] = model.RoomWithType{
			Room:      model.Room{ID: id, RoomNumber: num, RoomTypeID: 1, Status: model.RoomAvailable},
			TypeName:  "Standard",
			BasePrice: standard,
			Capacity:  2,
		}
	}
	return s
}

func (s *memStore) conflictsLocked(roomID uint64, stay model.DateRange) []uint64 {
	var ids []uint64
	for _, b := range s.bookings {
		if b.RoomID == roomID && b.Status.Active() && b.DateRange.Overlaps(stay) {
			ids = append(ids, b.ID)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (s *memStore) FindConflicts(_ context.Context, roomID uint64, stay model.DateRange) ([]uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.replicaErr != nil {
		return nil, s.replicaErr
	}
	if s.staleReplica {
		return nil, nil
	}
	return s.conflictsLocked(roomID, stay), nil
}

func (s *memStore) Admit(_ context.Context, nb model.NewBooking) (uint64, error) {
	s.mu.Lock()
	s.calls++
	if _, ok := s.rooms[nb.RoomID]; !ok {
		s.mu.Unlock()
		return 0, repository.ErrRoomNotFound
	}
	conflicts := s.conflictsLocked(nb.RoomID, nb.Stay)
	s.mu.Unlock()
	if len(conflicts) > 0 {
		return 0, repository.ErrConflict
	}

	time.Sleep(s.gap)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	s.bookings[s.nextID] = model.Booking{
		ID: s.nextID, GuestName: nb.GuestName, RoomID: nb.RoomID,
		DateRange: nb.Stay, TotalPrice: nb.TotalPrice, Status: model.BookingConfirmed,
	}
	return s.nextID, nil
}

func (s *memStore) Transition(_ context.Context, id uint64, ev model.BookingEvent) (model.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	b, ok := s.bookings[id]
	if !ok {
		return model.Booking{}, repository.ErrBookingNotFound
	}
	next, effect, err := b.Status.Apply(ev)
	if err != nil {
		return model.Booking{}, err
	}
	b.Status = next
	s.bookings[id] = b
	if target, ok := effect.Target(); ok {
		r := s.rooms[b.RoomID]
		r.Status = target
		s.rooms[b.RoomID] = r
	}
	return b, nil
}

func (s *memStore) ListAvailable(_ context.Context, stay model.DateRange) ([]model.RoomWithType, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.RoomWithType
	for id, r := range s.rooms {
		if len(s.conflictsLocked(id, stay)) == 0 {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *memStore) roomStatus(id uint64) model.RoomStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rooms[id].Status
}

func (s *memStore) activePerRoom() map[uint64][]model.Booking {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := map[uint64][]model.Booking{}
	for _, b := range s.bookings {
		if b.Status.Active() {
			out[b.RoomID] = append(out[b.RoomID], b)
		}
	}
	return out
}

// recorder captures published events.
type recorder struct {
	mu     sync.Mutex
	events []queue.BookingEvent
	fail   bool
}

func (r *recorder) Publish(_ context.Context, ev queue.BookingEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail {
		return errors.New("broker down")
	}
	r.events = append(r.events, ev)
	return nil
}

func (r *recorder) Close() error { return nil }

func (r *recorder) kinds() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, e := range r.events {
		out = append(out, e.Kind)
	}
	return out
}

func quietLog() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}
