package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/Leganyst/table-booking/internal/auth"
	"github.com/Leganyst/table-booking/internal/cache"
	"github.com/Leganyst/table-booking/internal/events"
	"github.com/Leganyst/table-booking/internal/model"
	"github.com/Leganyst/table-booking/internal/repository"
	"github.com/Leganyst/table-booking/internal/testutil"
)

type recordedEvent struct {
	key   string
	event events.BookingEvent
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []recordedEvent
	err    error
}

func (p *recordingPublisher) PublishJSON(_ context.Context, key string, v any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if ev, ok := v.(events.BookingEvent); ok {
		p.events = append(p.events, recordedEvent{key: key, event: ev})
	}
	return p.err
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) keys() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.key)
	}
	return out
}

type memoryCache struct {
	mu          sync.Mutex
	slots       map[string][]string
	restaurants map[string]int64
	days        map[string]int64
}

func newMemoryCache() *memoryCache {
	return &memoryCache{
		slots:       map[string][]string{},
		restaurants: map[string]int64{},
		days:        map[string]int64{},
	}
}

func (c *memoryCache) stamp(restaurantID, date string) cache.Stamp {
	return cache.Stamp{Restaurant: c.restaurants[restaurantID], Day: c.days[restaurantID+"|"+date]}
}

func slotsKey(restaurantID, date string, st cache.Stamp) string {
	return fmt.Sprintf("%s|%s|%d.%d", restaurantID, date, st.Restaurant, st.Day)
}

func (c *memoryCache) Stamp(_ context.Context, restaurantID, date string) (cache.Stamp, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stamp(restaurantID, date), nil
}

func (c *memoryCache) Get(_ context.Context, restaurantID, date string, st cache.Stamp) ([]string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.slots[slotsKey(restaurantID, date, st)]
	return s, ok, nil
}

func (c *memoryCache) Set(_ context.Context, restaurantID, date string, st cache.Stamp, slots []string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.slots[slotsKey(restaurantID, date, st)] = slots
	return nil
}

func (c *memoryCache) Invalidate(_ context.Context, restaurantID, date string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.days[restaurantID+"|"+date]++
	return nil
}

func (c *memoryCache) InvalidateRestaurant(_ context.Context, restaurantID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.restaurants[restaurantID]++
	return nil
}

// current — то, что увидит следующий GetAvailability.
func (c *memoryCache) current(restaurantID, date string) ([]string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.slots[slotsKey(restaurantID, date, c.stamp(restaurantID, date))]
	return s, ok
}

func (c *memoryCache) put(restaurantID, date string, slots []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.slots[slotsKey(restaurantID, date, c.stamp(restaurantID, date))] = slots
}

type fixture struct {
	gdb        *gorm.DB
	ledger     *Ledger
	restaurant *model.Restaurant
	publisher  *recordingPublisher
	cache      *memoryCache
}

func newFixture(t *testing.T, opening, closing string) *fixture {
	t.Helper()
	gdb := testutil.OpenSQLite(t)
	f := &fixture{
		gdb:        gdb,
		restaurant: testutil.SeedRestaurant(t, gdb, opening, closing),
		publisher:  &recordingPublisher{},
		cache:      newMemoryCache(),
	}
	f.ledger = NewLedger(
		repository.NewGormRestaurantRepository(gdb),
		repository.NewGormBookingRepository(gdb),
		Options{
			Cache:     f.cache,
			Publisher: f.publisher,
			Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		},
	)
	return f
}

func (f *fixture) book(t *testing.T, user, date, slot string) *model.Booking {
	t.Helper()
	b, err := f.ledger.CreateBooking(context.Background(), CreateBookingInput{
		RestaurantID: f.restaurant.ID.String(),
		UserID:       user,
		Date:         date,
		Time:         slot,
		Guests:       2,
	})
	require.NoError(t, err)
	return b
}

func TestLedger_PendingHoldsAndSingleConfirmedOccupant(t *testing.T) {
	f := newFixture(t, "12:00", "23:00")
	ctx := context.Background()
	restaurantID := f.restaurant.ID.String()

	a := f.book(t, "customer-a", "2025-06-01", "20:00")
	b := f.book(t, "customer-b", "2025-06-01", "20:00")
	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, model.BookingStatusPending, a.Status)
	assert.Equal(t, model.BookingStatusPending, b.Status)

	slots, err := f.ledger.GetAvailability(ctx, restaurantID, "2025-06-01")
	require.NoError(t, err)
	assert.Len(t, slots, 23)
	assert.Contains(t, slots, "20:00")

	confirmed, err := f.ledger.ConfirmBooking(ctx, a.ID.String())
	require.NoError(t, err)
	assert.Equal(t, model.BookingStatusConfirmed, confirmed.Status)

	slots, err = f.ledger.GetAvailability(ctx, restaurantID, "2025-06-01")
	require.NoError(t, err)
	assert.Len(t, slots, 22)
	assert.NotContains(t, slots, "20:00")
	assert.Contains(t, slots, "19:30")

	other, err := f.ledger.GetAvailability(ctx, restaurantID, "2025-06-02")
	require.NoError(t, err)
	assert.Contains(t, other, "20:00")

	_, err = f.ledger.ConfirmBooking(ctx, b.ID.String())
	require.Error(t, err)
	assert.Equal(t, CodeConflict, CodeOf(err))

	stillPending, err := f.ledger.GetBooking(ctx, b.ID.String())
	require.NoError(t, err)
	assert.Equal(t, model.BookingStatusPending, stillPending.Status)

	assert.Equal(t, []string{
		events.KeyBookingCreated,
		events.KeyBookingCreated,
		events.KeyBookingConfirmed,
	}, f.publisher.keys())
}

func TestLedger_ConfirmTwiceReturnsBookingUnchanged(t *testing.T) {
	f := newFixture(t, "12:00", "23:00")
	ctx := context.Background()

	a := f.book(t, "customer-a", "2025-06-01", "20:00")
	_, err := f.ledger.ConfirmBooking(ctx, a.ID.String())
	require.NoError(t, err)

	again, err := f.ledger.ConfirmBooking(ctx, a.ID.String())
	require.NoError(t, err)
	assert.Equal(t, model.BookingStatusConfirmed, again.Status)
	assert.Len(t, f.publisher.keys(), 2)
}

func TestLedger_ConcurrentConfirmationsAdmitOne(t *testing.T) {
	f := newFixture(t, "12:00", "23:00")
	ctx := context.Background()

	ids := []string{
		f.book(t, "customer-a", "2025-06-01", "20:00").ID.String(),
		f.book(t, "customer-b", "2025-06-01", "20:00").ID.String(),
	}

	var (
		wg    sync.WaitGroup
		start = make(chan struct{})
		errs  = make([]error, len(ids))
	)
	for i, id := range ids {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			<-start
			_, errs[i] = f.ledger.ConfirmBooking(ctx, id)
		}(i, id)
	}
	close(start)
	wg.Wait()

	var ok, conflicts int
	for _, err := range errs {
		switch CodeOf(err) {
		case "":
			ok++
		case CodeConflict:
			conflicts++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, conflicts)

	var n int64
	require.NoError(t, f.gdb.Model(&model.Booking{}).
		Where("status = ?", model.BookingStatusConfirmed).Count(&n).Error)
	assert.EqualValues(t, 1, n)
}

func TestLedger_CreateOnConfirmedSlotSuggestsAlternatives(t *testing.T) {
	f := newFixture(t, "12:00", "23:00")
	ctx := context.Background()

	a := f.book(t, "customer-a", "2025-06-01", "20:00")
	_, err := f.ledger.ConfirmBooking(ctx, a.ID.String())
	require.NoError(t, err)

	_, err = f.ledger.CreateBooking(ctx, CreateBookingInput{
		RestaurantID: f.restaurant.ID.String(),
		UserID:       "customer-b",
		Date:         "2025-06-01",
		Time:         "20:00",
		Guests:       4,
	})
	require.Error(t, err)
	assert.Equal(t, CodeConflict, CodeOf(err))
	assert.Equal(t, []string{"19:30", "20:30", "19:00", "21:00"}, AlternativesOf(err))

	var n int64
	require.NoError(t, f.gdb.Model(&model.Booking{}).Count(&n).Error)
	assert.EqualValues(t, 1, n)
}

func TestLedger_CreateBookingValidation(t *testing.T) {
	f := newFixture(t, "12:00", "23:00")
	valid := CreateBookingInput{
		RestaurantID: f.restaurant.ID.String(),
		UserID:       "customer-a",
		Date:         "2025-06-01",
		Time:         "20:00",
		Guests:       2,
	}

	cases := []struct {
		name   string
		mutate func(*CreateBookingInput)
		want   ErrorCode
	}{
		{"zero guests", func(in *CreateBookingInput) { in.Guests = 0 }, CodeValidation},
		{"missing date", func(in *CreateBookingInput) { in.Date = "" }, CodeValidation},
		{"malformed date", func(in *CreateBookingInput) { in.Date = "2025-13-01" }, CodeValidation},
		{"missing time", func(in *CreateBookingInput) { in.Time = "" }, CodeValidation},
		{"malformed time", func(in *CreateBookingInput) { in.Time = "25:00" }, CodeValidation},
		{"off grid", func(in *CreateBookingInput) { in.Time = "20:15" }, CodeValidation},
		{"before opening", func(in *CreateBookingInput) { in.Time = "11:30" }, CodeValidation},
		{"missing user", func(in *CreateBookingInput) { in.UserID = "" }, CodeValidation},
		{"bad restaurant id", func(in *CreateBookingInput) { in.RestaurantID = "nope" }, CodeValidation},
		{"unknown restaurant", func(in *CreateBookingInput) { in.RestaurantID = "7f1c0dd2-4f61-4b8e-9a55-3c5a0f7b9a10" }, CodeNotFound},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := valid
			tc.mutate(&in)
			_, err := f.ledger.CreateBooking(context.Background(), in)
			require.Error(t, err)
			assert.Equal(t, tc.want, CodeOf(err), err.Error())
		})
	}

	var n int64
	require.NoError(t, f.gdb.Model(&model.Booking{}).Count(&n).Error)
	assert.Zero(t, n)
}

func TestLedger_ValidationMessageUsesJSONNames(t *testing.T) {
	f := newFixture(t, "12:00", "23:00")

	_, err := f.ledger.CreateBooking(context.Background(), CreateBookingInput{
		RestaurantID: f.restaurant.ID.String(),
		UserID:       "customer-a",
		Date:         "2025-06-01",
		Time:         "20:00",
	})
	require.Error(t, err)
	assert.Contains(t, MessageOf(err), "guests")
}

func TestLedger_CancelIsIdempotent(t *testing.T) {
	f := newFixture(t, "12:00", "23:00")
	ctx := context.Background()

	b := f.book(t, "customer-a", "2025-06-01", "20:00")
	_, err := f.ledger.ConfirmBooking(ctx, b.ID.String())
	require.NoError(t, err)

	first, err := f.ledger.CancelBooking(ctx, b.ID.String())
	require.NoError(t, err)
	second, err := f.ledger.CancelBooking(ctx, b.ID.String())
	require.NoError(t, err)

	assert.Equal(t, model.BookingStatusCancelled, first.Status)
	assert.Equal(t, model.BookingStatusCancelled, second.Status)
	assert.Equal(t, []string{
		events.KeyBookingCreated,
		events.KeyBookingConfirmed,
		events.KeyBookingCancelled,
	}, f.publisher.keys())

	slots, err := f.ledger.GetAvailability(ctx, f.restaurant.ID.String(), "2025-06-01")
	require.NoError(t, err)
	assert.Contains(t, slots, "20:00")

	_, err = f.ledger.ConfirmBooking(ctx, b.ID.String())
	assert.Equal(t, CodeConflict, CodeOf(err))
}

func TestLedger_UnknownBooking(t *testing.T) {
	f := newFixture(t, "12:00", "23:00")
	ctx := context.Background()
	missing := "7f1c0dd2-4f61-4b8e-9a55-3c5a0f7b9a10"

	_, err := f.ledger.ConfirmBooking(ctx, missing)
	assert.Equal(t, CodeNotFound, CodeOf(err))
	_, err = f.ledger.CancelBooking(ctx, missing)
	assert.Equal(t, CodeNotFound, CodeOf(err))
	_, err = f.ledger.GetBooking(ctx, missing)
	assert.Equal(t, CodeNotFound, CodeOf(err))
	_, err = f.ledger.GetBooking(ctx, "not-a-uuid")
	assert.Equal(t, CodeValidation, CodeOf(err))
}

func TestLedger_SuggestAlternatives(t *testing.T) {
	f := newFixture(t, "19:00", "21:00")
	ctx := context.Background()
	restaurantID := f.restaurant.ID.String()

	b := f.book(t, "customer-a", "2025-06-01", "19:30")
	_, err := f.ledger.ConfirmBooking(ctx, b.ID.String())
	require.NoError(t, err)

	got, err := f.ledger.SuggestAlternatives(ctx, restaurantID, "2025-06-01", "20:00", 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"20:30", "19:00"}, got)

	got, err = f.ledger.SuggestAlternatives(ctx, restaurantID, "2025-06-01", "20:00", 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"20:30", "19:00", "21:00"}, got)

	_, err = f.ledger.SuggestAlternatives(ctx, restaurantID, "2025-06-01", "20:00", -1)
	assert.Equal(t, CodeValidation, CodeOf(err))
	_, err = f.ledger.SuggestAlternatives(ctx, restaurantID, "2025-06-01", "8pm", 2)
	assert.Equal(t, CodeValidation, CodeOf(err))
}

func TestLedger_AvailabilityHours(t *testing.T) {
	t.Run("defaults when unset", func(t *testing.T) {
		f := newFixture(t, "", "")
		slots, err := f.ledger.GetAvailability(context.Background(), f.restaurant.ID.String(), "2025-06-01")
		require.NoError(t, err)
		require.Len(t, slots, 23)
		assert.Equal(t, "12:00", slots[0])
		assert.Equal(t, "23:00", slots[22])
	})

	t.Run("midnight crossing is rejected", func(t *testing.T) {
		f := newFixture(t, "23:00", "01:00")
		_, err := f.ledger.GetAvailability(context.Background(), f.restaurant.ID.String(), "2025-06-01")
		require.Error(t, err)
		assert.Equal(t, CodeValidation, CodeOf(err))
	})
}

func TestLedger_AvailabilityCache(t *testing.T) {
	f := newFixture(t, "12:00", "13:00")
	ctx := context.Background()
	restaurantID := f.restaurant.ID.String()

	slots, err := f.ledger.GetAvailability(ctx, restaurantID, "2025-06-01")
	require.NoError(t, err)
	assert.Equal(t, []string{"12:00", "12:30", "13:00"}, slots)

	cached, ok := f.cache.current(restaurantID, "2025-06-01")
	require.True(t, ok)
	assert.Equal(t, slots, cached)

	// ответ берётся из кэша, пока его не сбросит подтверждение
	f.cache.put(restaurantID, "2025-06-01", []string{"12:00"})
	slots, err = f.ledger.GetAvailability(ctx, restaurantID, "2025-06-01")
	require.NoError(t, err)
	assert.Equal(t, []string{"12:00"}, slots)

	b := f.book(t, "customer-a", "2025-06-01", "12:30")
	_, err = f.ledger.ConfirmBooking(ctx, b.ID.String())
	require.NoError(t, err)

	_, ok = f.cache.current(restaurantID, "2025-06-01")
	assert.False(t, ok)

	slots, err = f.ledger.GetAvailability(ctx, restaurantID, "2025-06-01")
	require.NoError(t, err)
	assert.Equal(t, []string{"12:00", "13:00"}, slots)
}

// interleavingBookings выполняет hook сразу после очередного CountByTime,
// то есть между подсчётом занятости и записью результата в кэш.
type interleavingBookings struct {
	repository.BookingRepository
	hook func()
}

func (r *interleavingBookings) CountByTime(
	ctx context.Context,
	restaurantID, date string,
	status model.BookingStatus,
) (map[string]int, error) {
	counts, err := r.BookingRepository.CountByTime(ctx, restaurantID, date, status)
	if h := r.hook; h != nil {
		r.hook = nil
		h()
	}
	return counts, err
}

func TestLedger_ConfirmDuringAvailabilityDoesNotLeaveStaleCache(t *testing.T) {
	gdb := testutil.OpenSQLite(t)
	restaurant := testutil.SeedRestaurant(t, gdb, "12:00", "14:00")
	bookings := &interleavingBookings{BookingRepository: repository.NewGormBookingRepository(gdb)}
	ledger := NewLedger(repository.NewGormRestaurantRepository(gdb), bookings, Options{
		Cache:  newMemoryCache(),
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	ctx := context.Background()
	restaurantID := restaurant.ID.String()

	b, err := ledger.CreateBooking(ctx, CreateBookingInput{
		RestaurantID: restaurantID,
		UserID:       "customer-a",
		Date:         "2030-01-01",
		Time:         "13:00",
		Guests:       2,
	})
	require.NoError(t, err)

	bookings.hook = func() {
		_, err := ledger.ConfirmBooking(ctx, b.ID.String())
		require.NoError(t, err)
	}

	// подсчёт сделан до подтверждения, поэтому 13:00 ещё в ответе
	slots, err := ledger.GetAvailability(ctx, restaurantID, "2030-01-01")
	require.NoError(t, err)
	assert.Contains(t, slots, "13:00")

	slots, err = ledger.GetAvailability(ctx, restaurantID, "2030-01-01")
	require.NoError(t, err)
	assert.Equal(t, []string{"12:00", "12:30", "13:30", "14:00"}, slots)
}

func TestLedger_ConfirmRaceCaughtByUniqueIndexIsConflict(t *testing.T) {
	f := newFixture(t, "12:00", "23:00")
	ctx := context.Background()

	a := f.book(t, "customer-a", "2025-06-01", "20:00")
	b := f.book(t, "customer-b", "2025-06-01", "20:00")
	testutil.ConfirmBeforeNextUpdate(t, f.gdb, a.ID)

	_, err := f.ledger.ConfirmBooking(ctx, b.ID.String())
	require.Error(t, err)
	assert.Equal(t, CodeConflict, CodeOf(err))
	assert.ErrorIs(t, err, repository.ErrSlotTaken)

	stillPending, err := f.ledger.GetBooking(ctx, b.ID.String())
	require.NoError(t, err)
	assert.Equal(t, model.BookingStatusPending, stillPending.Status)
}

func TestLedger_UpdateBooking(t *testing.T) {
	f := newFixture(t, "12:00", "23:00")
	ctx := context.Background()

	taken := f.book(t, "customer-b", "2025-06-01", "19:00")
	_, err := f.ledger.ConfirmBooking(ctx, taken.ID.String())
	require.NoError(t, err)

	b := f.book(t, "customer-a", "2025-06-01", "20:00")

	updated, err := f.ledger.UpdateBooking(ctx, b.ID.String(), UpdateBookingInput{
		Date:            "2025-06-01",
		Time:            "21:30",
		Guests:          5,
		SpecialRequests: " terrace ",
	})
	require.NoError(t, err)
	assert.Equal(t, "21:30", updated.Time)
	assert.Equal(t, 5, updated.Guests)
	assert.Equal(t, "terrace", updated.SpecialRequests)

	_, err = f.ledger.UpdateBooking(ctx, b.ID.String(), UpdateBookingInput{Date: "2025-06-01", Time: "19:00", Guests: 2})
	require.Error(t, err)
	assert.Equal(t, CodeConflict, CodeOf(err))
	assert.NotEmpty(t, AlternativesOf(err))

	_, err = f.ledger.UpdateBooking(ctx, b.ID.String(), UpdateBookingInput{Date: "2025-06-01", Time: "21:45", Guests: 2})
	assert.Equal(t, CodeValidation, CodeOf(err))

	_, err = f.ledger.UpdateBooking(ctx, taken.ID.String(), UpdateBookingInput{Date: "2025-06-02", Time: "19:00", Guests: 2})
	assert.Equal(t, CodeConflict, CodeOf(err))

	assert.Contains(t, f.publisher.keys(), events.KeyBookingUpdated)
}

func TestLedger_Lists(t *testing.T) {
	f := newFixture(t, "12:00", "23:00")
	ctx := context.Background()
	restaurantID := f.restaurant.ID.String()

	f.book(t, "customer-a", "2025-06-01", "19:00")
	f.book(t, "customer-a", "2025-06-02", "19:00")
	f.book(t, "customer-a", "2025-06-03", "19:00")
	f.book(t, "customer-b", "2025-06-01", "20:00")

	mine, err := f.ledger.ListUserBookings(ctx, "customer-a", 1, 2)
	require.NoError(t, err)
	assert.EqualValues(t, 3, mine.Total)
	assert.True(t, mine.HasNext)
	require.Len(t, mine.Items, 2)
	assert.Equal(t, "2025-06-03", mine.Items[0].Date)

	day, err := f.ledger.ListRestaurantBookings(ctx, restaurantID, "2025-06-01", 1, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 2, day.Total)
	assert.False(t, day.HasNext)

	_, err = f.ledger.ListRestaurantBookings(ctx, restaurantID, "June 1st", 1, 10)
	assert.Equal(t, CodeValidation, CodeOf(err))
	_, err = f.ledger.ListRestaurantBookings(ctx, "7f1c0dd2-4f61-4b8e-9a55-3c5a0f7b9a10", "", 1, 10)
	assert.Equal(t, CodeNotFound, CodeOf(err))
	_, err = f.ledger.ListUserBookings(ctx, " ", 1, 10)
	assert.Equal(t, CodeValidation, CodeOf(err))
}

func TestLedger_Authorize(t *testing.T) {
	f := newFixture(t, "12:00", "23:00")
	ctx := context.Background()
	b := f.book(t, "customer-a", "2025-06-01", "20:00")
	id := b.ID.String()

	_, err := f.ledger.AuthorizeBooking(ctx, auth.Session{UserID: "customer-a", Role: auth.RoleCustomer}, id)
	assert.NoError(t, err)
	_, err = f.ledger.AuthorizeBooking(ctx, auth.Session{UserID: "customer-b", Role: auth.RoleCustomer}, id)
	assert.Equal(t, CodeForbidden, CodeOf(err))
	_, err = f.ledger.AuthorizeBooking(ctx, auth.Session{UserID: "owner-1", Role: auth.RoleRestaurant}, id)
	assert.NoError(t, err)
	_, err = f.ledger.AuthorizeBooking(ctx, auth.Session{UserID: "owner-2", Role: auth.RoleRestaurant}, id)
	assert.Equal(t, CodeForbidden, CodeOf(err))

	restaurantID := f.restaurant.ID.String()
	assert.NoError(t, f.ledger.AuthorizeRestaurant(ctx, auth.Session{UserID: "owner-1", Role: auth.RoleRestaurant}, restaurantID))
	assert.Equal(t, CodeForbidden, CodeOf(f.ledger.AuthorizeRestaurant(ctx, auth.Session{UserID: "owner-1", Role: auth.RoleCustomer}, restaurantID)))
	assert.Equal(t, CodeForbidden, CodeOf(f.ledger.AuthorizeRestaurant(ctx, auth.Session{UserID: "owner-2", Role: auth.RoleRestaurant}, restaurantID)))
}

func TestLedger_PublishFailureDoesNotFailOperation(t *testing.T) {
	f := newFixture(t, "12:00", "23:00")
	f.publisher.err = errors.New("broker down")

	b := f.book(t, "customer-a", "2025-06-01", "20:00")
	assert.Equal(t, model.BookingStatusPending, b.Status)
}

type failingRestaurants struct{}

func (failingRestaurants) GetByID(context.Context, string) (*model.Restaurant, error) {
	return nil, errors.New("connection refused")
}

func (failingRestaurants) Upsert(context.Context, *model.Restaurant) error {
	return errors.New("connection refused")
}

func TestLedger_UpstreamFailure(t *testing.T) {
	gdb := testutil.OpenSQLite(t)
	ledger := NewLedger(failingRestaurants{}, repository.NewGormBookingRepository(gdb), Options{
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})

	_, err := ledger.GetAvailability(context.Background(), "7f1c0dd2-4f61-4b8e-9a55-3c5a0f7b9a10", "2025-06-01")
	require.Error(t, err)
	assert.Equal(t, CodeUpstream, CodeOf(err))
	assert.Equal(t, "load restaurant failed", MessageOf(err))
	assert.Contains(t, err.Error(), "connection refused")
}
