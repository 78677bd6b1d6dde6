package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/hotel-reservation/internal/database"
	"github.com/iliyamo/hotel-reservation/internal/lock"
	"github.com/iliyamo/hotel-reservation/internal/model"
	"github.com/iliyamo/hotel-reservation/internal/queue"
	"github.com/iliyamo/hotel-reservation/internal/repository"
)

// BookingStore is the persistence the admission flow needs.  Admit and
// Transition must be authoritative; FindConflicts may lag.
type BookingStore interface {
	ConflictFinder
	Admit(ctx context.Context, nb model.NewBooking) (uint64, error)
	Transition(ctx context.Context, id uint64, ev model.BookingEvent) (model.Booking, error)
}

// CreateBookingInput is a reservation request as received from a caller.
// Dates are YYYY-MM-DD strings.
type CreateBookingInput struct {
	GuestName  string
	RoomID     uint64
	CheckIn    string
	CheckOut   string
	TotalPrice model.Money
}

// Admission creates bookings and moves them through their lifecycle.
type Admission struct {
	store       BookingStore
	locker      lock.Locker
	events      queue.Publisher
	log         *logrus.Logger
	lockTimeout time.Duration
	now         func() time.Time

	pending sync.WaitGroup
}

// AdmissionOption customizes an Admission.
type AdmissionOption func(*Admission)

// WithLockTimeout bounds how long a request waits for a busy room.
func WithLockTimeout(d time.Duration) AdmissionOption {
	return func(a *Admission) {
		if d > 0 {
			a.lockTimeout = d
		}
	}
}

// WithClock replaces time.Now for event timestamps.
func WithClock(now func() time.Time) AdmissionOption {
	return func(a *Admission) { a.now = now }
}

func NewAdmission(store BookingStore, locker lock.Locker, events queue.Publisher, log *logrus.Logger, opts ...AdmissionOption) *Admission {
	if locker == nil {
		locker = lock.NewKeyedMutex()
	}
	if events == nil {
		events = queue.Nop{}
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	a := &Admission{
		store:       store,
		locker:      locker,
		events:      events,
		log:         log,
		lockTimeout: 5 * time.Second,
		now:         time.Now,
	}
	for _, o := range opts {
		o(a)
	}
	return a
}

// Validate turns raw input into a NewBooking without touching storage.
func (in CreateBookingInput) Validate() (model.NewBooking, error) {
	name := strings.TrimSpace(in.GuestName)
	if name == "" {
		return model.NewBooking{}, invalid("guest_name", "is required")
	}
	if in.RoomID == 0 {
		return model.NewBooking{}, invalid("room_id", "is required")
	}
	if strings.TrimSpace(in.CheckIn) == "" {
		return model.NewBooking{}, invalid("check_in_date", "is required")
	}
	if strings.TrimSpace(in.CheckOut) == "" {
		return model.NewBooking{}, invalid("check_out_date", "is required")
	}
	checkIn, err := model.ParseDate(in.CheckIn)
	if err != nil {
		return model.NewBooking{}, invalid("check_in_date", "must be a YYYY-MM-DD date")
	}
	checkOut, err := model.ParseDate(in.CheckOut)
	if err != nil {
		return model.NewBooking{}, invalid("check_out_date", "must be a YYYY-MM-DD date")
	}
	stay, err := model.NewDateRange(checkIn, checkOut)
	if err != nil {
		return model.NewBooking{}, err
	}
	if !in.TotalPrice.IsPositive() {
		return model.NewBooking{}, invalid("total_price", "must be greater than 0")
	}
	if !in.TotalPrice.Storable() {
		return model.NewBooking{}, invalid("total_price", "must be at most "+model.MaxStored.String())
	}
	return model.NewBooking{GuestName: name, RoomID: in.RoomID, Stay: stay, TotalPrice: in.TotalPrice}, nil
}

// CreateBooking admits a new Confirmed booking and returns its id.
//
// The replica is asked first so that obvious conflicts are rejected
// without touching the primary.  The room lock then serializes admitters
// of the same room, and Admit repeats the overlap check on the primary
// under row locks before inserting.  Losing the replica or the lock
// backend only costs those first two steps.
func (a *Admission) CreateBooking(ctx context.Context, in CreateBookingInput) (uint64, error) {
	nb, err := in.Validate()
	if err != nil {
		return 0, err
	}
	entry := a.log.WithFields(logrus.Fields{"room_id": nb.RoomID, "stay": nb.Stay.String()})

	ids, err := a.store.FindConflicts(ctx, nb.RoomID, nb.Stay)
	switch {
	case err == nil && len(ids) > 0:
		entry.WithField("conflicts", ids).Info("booking rejected by availability check")
		return 0, fmt.Errorf("%w: booking %d holds room %d for %s", repository.ErrConflict, ids[0], nb.RoomID, nb.Stay)
	case errors.Is(err, database.ErrStorageUnavailable):
		entry.WithError(err).Warn("replica unavailable, admitting on primary only")
	case err != nil:
		return 0, err
	}

	lockCtx, cancel := context.WithTimeout(ctx, a.lockTimeout)
	defer cancel()
	release, err := a.locker.Lock(lockCtx, lock.RoomKey(nb.RoomID))
	switch {
	case errors.Is(err, lock.ErrUnavailable):
		// The primary's row locks still serialize admitters of this room.
		entry.WithError(err).Warn("room lock unavailable, admitting on primary only")
	case err != nil:
		return 0, err
	default:
		defer release()
	}

	id, err := a.store.Admit(ctx, nb)
	if err != nil {
		if errors.Is(err, repository.ErrConflict) {
			entry.Info("booking rejected by primary")
		}
		return 0, err
	}
	entry.WithField("booking_id", id).Info("booking admitted")

	a.publish(queue.NewBookingEvent(queue.KindCreated, model.Booking{
		ID:         id,
		GuestName:  nb.GuestName,
		RoomID:     nb.RoomID,
		DateRange:  nb.Stay,
		TotalPrice: nb.TotalPrice,
		Status:     model.BookingConfirmed,
	}, a.now()))
	return id, nil
}

// CheckIn moves a Confirmed booking to Checked_In and occupies its room.
func (a *Admission) CheckIn(ctx context.Context, id uint64) (model.Booking, error) {
	return a.transition(ctx, id, model.EventCheckIn)
}

// CheckOut moves a Checked_In booking to Checked_Out and frees its room.
func (a *Admission) CheckOut(ctx context.Context, id uint64) (model.Booking, error) {
	return a.transition(ctx, id, model.EventCheckOut)
}

// Cancel moves a Confirmed booking to Cancelled.
func (a *Admission) Cancel(ctx context.Context, id uint64) (model.Booking, error) {
	return a.transition(ctx, id, model.EventCancel)
}

func (a *Admission) transition(ctx context.Context, id uint64, ev model.BookingEvent) (model.Booking, error) {
	if id == 0 {
		return model.Booking{}, invalid("id", "is required")
	}
	b, err := a.store.Transition(ctx, id, ev)
	if err != nil {
		return model.Booking{}, err
	}
	a.log.WithFields(logrus.Fields{
		"booking_id": b.ID,
		"room_id":    b.RoomID,
		"event":      ev.String(),
		"status":     b.Status.String(),
	}).Info("booking transitioned")
	a.publish(queue.NewBookingEvent(queue.KindFor(ev), b, a.now()))
	return b, nil
}

// publish sends the event in the background; a broker outage never fails
// the request that caused the event.
func (a *Admission) publish(ev queue.BookingEvent) {
	a.pending.Add(1)
	go func() {
		defer a.pending.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.events.Publish(ctx, ev); err != nil {
			a.log.WithFields(logrus.Fields{
				"booking_id": ev.BookingID,
				"kind":       ev.Kind,
				"error":      err.Error(),
			}).Warn("booking event not published")
		}
	}()
}

// Drain waits for in-flight event publications.
func (a *Admission) Drain() { a.pending.Wait() }
