package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"tutor-booking/internal/data/entity"
	"tutor-booking/internal/data/repository"
	"tutor-booking/pkg/database"
	"tutor-booking/pkg/gateway"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// In-memory fakes with the same transition semantics as the SQL layer:
// every status change is a compare-and-set under a mutex, and changes made
// through a transaction are undone on rollback. This keeps the concurrency
// and all-or-nothing tests honest.

type fakeTx struct {
	mu   sync.Mutex
	undo []func()
	done bool
}

func (t *fakeTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, errors.New("not implemented in fake")
}

func (t *fakeTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	panic("not implemented in fake")
}

func (t *fakeTx) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	return pgconn.NewCommandTag(""), nil
}

func (t *fakeTx) Commit(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.done = true
	t.undo = nil
	return nil
}

func (t *fakeTx) Rollback(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done {
		return nil
	}
	for i := len(t.undo) - 1; i >= 0; i-- {
		t.undo[i]()
	}
	t.undo = nil
	t.done = true
	return nil
}

func (t *fakeTx) addUndo(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.undo = append(t.undo, fn)
}

type fakeDB struct{}

func (db *fakeDB) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, errors.New("not implemented in fake")
}

func (db *fakeDB) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	panic("not implemented in fake")
}

func (db *fakeDB) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	return pgconn.NewCommandTag(""), nil
}

func (db *fakeDB) Begin(ctx context.Context) (database.Tx, error) {
	return &fakeTx{}, nil
}

func (db *fakeDB) Ping(ctx context.Context) error { return nil }
func (db *fakeDB) Close()                         {}

func recordUndo(q database.Querier, fn func()) {
	if tx, ok := q.(*fakeTx); ok {
		tx.addUndo(fn)
	}
}

// ==================== SLOT STORE ====================

type fakeSlotRepo struct {
	mu    sync.Mutex
	slots map[uuid.UUID]*entity.Slot
}

func newFakeSlotRepo() *fakeSlotRepo {
	return &fakeSlotRepo{slots: make(map[uuid.UUID]*entity.Slot)}
}

var _ repository.SlotRepository = (*fakeSlotRepo)(nil)

func copySlot(s *entity.Slot) *entity.Slot {
	c := *s
	return &c
}

func (f *fakeSlotRepo) CreateBatch(ctx context.Context, slots []*entity.Slot) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range slots {
		f.slots[s.ID] = copySlot(s)
	}
	return nil
}

func (f *fakeSlotRepo) FindByID(ctx context.Context, id uuid.UUID) (*entity.Slot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.slots[id]
	if !ok {
		return nil, nil
	}
	return copySlot(s), nil
}

func (f *fakeSlotRepo) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]*entity.Slot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*entity.Slot
	for _, id := range ids {
		if s, ok := f.slots[id]; ok {
			out = append(out, copySlot(s))
		}
	}
	return out, nil
}

func (f *fakeSlotRepo) FindAvailableByTutorID(ctx context.Context, tutorID uuid.UUID, limit, offset int) ([]*entity.Slot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*entity.Slot
	for _, s := range f.slots {
		if s.TutorID == tutorID && s.Status == entity.SlotStatusAvailable {
			out = append(out, copySlot(s))
		}
	}
	return out, nil
}

func (f *fakeSlotRepo) CountAvailableByTutorID(ctx context.Context, tutorID uuid.UUID) (int64, error) {
	slots, _ := f.FindAvailableByTutorID(ctx, tutorID, 0, 0)
	return int64(len(slots)), nil
}

func (f *fakeSlotRepo) Lock(ctx context.Context, q database.Querier, slotID, studentID uuid.UUID, lockedAt, expiresAt time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.slots[slotID]
	if !ok || s.Status != entity.SlotStatusAvailable {
		return false, nil
	}
	prev := copySlot(s)
	s.Status = entity.SlotStatusLocked
	s.StudentID = &studentID
	s.LockedAt = &lockedAt
	s.ExpiresAt = &expiresAt
	recordUndo(q, func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.slots[slotID] = prev
	})
	return true, nil
}

func (f *fakeSlotRepo) Release(ctx context.Context, q database.Querier, slotIDs []uuid.UUID) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var released int64
	for _, id := range slotIDs {
		s, ok := f.slots[id]
		if !ok || s.Status != entity.SlotStatusLocked {
			continue
		}
		prev := copySlot(s)
		s.Status = entity.SlotStatusAvailable
		s.StudentID = nil
		s.LockedAt = nil
		s.ExpiresAt = nil
		s.PaymentID = nil
		released++
		recordUndo(q, func() {
			f.mu.Lock()
			defer f.mu.Unlock()
			f.slots[id] = prev
		})
	}
	return released, nil
}

func (f *fakeSlotRepo) ReleaseUnbound(ctx context.Context, q database.Querier, slotIDs []uuid.UUID) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var released int64
	for _, id := range slotIDs {
		s, ok := f.slots[id]
		if !ok || s.Status != entity.SlotStatusLocked || s.PaymentID != nil {
			continue
		}
		prev := copySlot(s)
		s.Status = entity.SlotStatusAvailable
		s.StudentID = nil
		s.LockedAt = nil
		s.ExpiresAt = nil
		released++
		recordUndo(q, func() {
			f.mu.Lock()
			defer f.mu.Unlock()
			f.slots[id] = prev
		})
	}
	return released, nil
}

func (f *fakeSlotRepo) BindPayment(ctx context.Context, q database.Querier, studentID, tutorID, paymentID uuid.UUID) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var bound int64
	for _, s := range f.slots {
		if s.Status == entity.SlotStatusLocked && s.PaymentID == nil &&
			s.StudentID != nil && *s.StudentID == studentID && s.TutorID == tutorID {
			pid := paymentID
			s.PaymentID = &pid
			bound++
		}
	}
	return bound, nil
}

func (f *fakeSlotRepo) MarkPaidByPaymentID(ctx context.Context, q database.Querier, paymentID uuid.UUID) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for id, s := range f.slots {
		if s.Status == entity.SlotStatusLocked && s.PaymentID != nil && *s.PaymentID == paymentID {
			prev := copySlot(s)
			s.Status = entity.SlotStatusPaid
			n++
			slotID := id
			recordUndo(q, func() {
				f.mu.Lock()
				defer f.mu.Unlock()
				f.slots[slotID] = prev
			})
		}
	}
	return n, nil
}

func (f *fakeSlotRepo) ReleaseByPaymentID(ctx context.Context, q database.Querier, paymentID uuid.UUID) (int64, error) {
	f.mu.Lock()
	var ids []uuid.UUID
	for id, s := range f.slots {
		if s.Status == entity.SlotStatusLocked && s.PaymentID != nil && *s.PaymentID == paymentID {
			ids = append(ids, id)
		}
	}
	f.mu.Unlock()
	return f.Release(ctx, q, ids)
}

func (f *fakeSlotRepo) FindLockedByPaymentID(ctx context.Context, paymentID uuid.UUID) ([]*entity.Slot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*entity.Slot
	for _, s := range f.slots {
		if s.Status == entity.SlotStatusLocked && s.PaymentID != nil && *s.PaymentID == paymentID {
			out = append(out, copySlot(s))
		}
	}
	return out, nil
}

func (f *fakeSlotRepo) FindLockedUnbound(ctx context.Context, studentID, tutorID uuid.UUID) ([]*entity.Slot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*entity.Slot
	for _, s := range f.slots {
		if s.Status == entity.SlotStatusLocked && s.PaymentID == nil &&
			s.StudentID != nil && *s.StudentID == studentID && s.TutorID == tutorID {
			out = append(out, copySlot(s))
		}
	}
	return out, nil
}

func (f *fakeSlotRepo) FindExpiredUnbound(ctx context.Context, now time.Time) ([]*entity.Slot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*entity.Slot
	for _, s := range f.slots {
		if s.Status == entity.SlotStatusLocked && s.PaymentID == nil &&
			s.ExpiresAt != nil && s.ExpiresAt.Before(now) {
			out = append(out, copySlot(s))
		}
	}
	return out, nil
}

func (f *fakeSlotRepo) get(id uuid.UUID) *entity.Slot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return copySlot(f.slots[id])
}

// ==================== PAYMENT LEDGER ====================

type fakePaymentOrderRepo struct {
	mu     sync.Mutex
	orders map[uuid.UUID]*entity.PaymentOrder
}

func newFakePaymentOrderRepo() *fakePaymentOrderRepo {
	return &fakePaymentOrderRepo{orders: make(map[uuid.UUID]*entity.PaymentOrder)}
}

var _ repository.PaymentOrderRepository = (*fakePaymentOrderRepo)(nil)

func copyOrder(o *entity.PaymentOrder) *entity.PaymentOrder {
	c := *o
	return &c
}

func (f *fakePaymentOrderRepo) Create(ctx context.Context, order *entity.PaymentOrder) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, o := range f.orders {
		if o.OrderCode == order.OrderCode {
			return fmt.Errorf("create payment order %s: %w", order.OrderCode, entity.ErrDuplicateOrderCode)
		}
	}
	f.orders[order.ID] = copyOrder(order)
	return nil
}

func (f *fakePaymentOrderRepo) FindByID(ctx context.Context, id uuid.UUID) (*entity.PaymentOrder, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[id]
	if !ok {
		return nil, nil
	}
	return copyOrder(o), nil
}

func (f *fakePaymentOrderRepo) FindByOrderCode(ctx context.Context, orderCode string) (*entity.PaymentOrder, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, o := range f.orders {
		if o.OrderCode == orderCode {
			return copyOrder(o), nil
		}
	}
	return nil, nil
}

func (f *fakePaymentOrderRepo) FindByPayerID(ctx context.Context, payerID uuid.UUID, limit, offset int) ([]*entity.PaymentOrder, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*entity.PaymentOrder
	for _, o := range f.orders {
		if o.PayerID == payerID {
			out = append(out, copyOrder(o))
		}
	}
	return out, nil
}

func (f *fakePaymentOrderRepo) CountByPayerID(ctx context.Context, payerID uuid.UUID) (int64, error) {
	orders, _ := f.FindByPayerID(ctx, payerID, 0, 0)
	return int64(len(orders)), nil
}

func (f *fakePaymentOrderRepo) MarkTerminal(ctx context.Context, q database.Querier, id uuid.UUID, status entity.PaymentStatus, paidAt *time.Time, rawPayload []byte) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[id]
	if !ok || o.Status != entity.PaymentStatusPending {
		return false, nil
	}
	prev := copyOrder(o)
	o.Status = status
	o.PaidAt = paidAt
	o.RawPayload = rawPayload
	recordUndo(q, func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.orders[id] = prev
	})
	return true, nil
}

func (f *fakePaymentOrderRepo) FindExpiredPending(ctx context.Context, now time.Time) ([]*entity.PaymentOrder, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*entity.PaymentOrder
	for _, o := range f.orders {
		if o.Status == entity.PaymentStatusPending && o.ExpiresAt.Before(now) {
			out = append(out, copyOrder(o))
		}
	}
	return out, nil
}

func (f *fakePaymentOrderRepo) get(id uuid.UUID) *entity.PaymentOrder {
	f.mu.Lock()
	defer f.mu.Unlock()
	return copyOrder(f.orders[id])
}

// ==================== COURSES & PLANS ====================

type fakeCourseRepo struct {
	mu      sync.Mutex
	courses map[uuid.UUID]*entity.Course
}

func newFakeCourseRepo() *fakeCourseRepo {
	return &fakeCourseRepo{courses: make(map[uuid.UUID]*entity.Course)}
}

var _ repository.CourseRepository = (*fakeCourseRepo)(nil)

func (f *fakeCourseRepo) FindByID(ctx context.Context, id uuid.UUID) (*entity.Course, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.courses[id]
	if !ok {
		return nil, nil
	}
	cc := *c
	return &cc, nil
}

type fakeBookingPlanRepo struct {
	mu          sync.Mutex
	plans       map[uuid.UUID]*entity.BookingPlan
	activations int
}

func newFakeBookingPlanRepo() *fakeBookingPlanRepo {
	return &fakeBookingPlanRepo{plans: make(map[uuid.UUID]*entity.BookingPlan)}
}

var _ repository.BookingPlanRepository = (*fakeBookingPlanRepo)(nil)

func (f *fakeBookingPlanRepo) FindByID(ctx context.Context, id uuid.UUID) (*entity.BookingPlan, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.plans[id]
	if !ok {
		return nil, nil
	}
	pp := *p
	return &pp, nil
}

func (f *fakeBookingPlanRepo) Activate(ctx context.Context, q database.Querier, id uuid.UUID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.plans[id]
	if !ok || p.Status != entity.PlanStatusPending {
		return false, nil
	}
	prev := *p
	p.Status = entity.PlanStatusActive
	f.activations++
	recordUndo(q, func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		restored := prev
		f.plans[id] = &restored
		f.activations--
	})
	return true, nil
}

// ==================== GATEWAY ====================

type fakeGateway struct {
	mu       sync.Mutex
	calls    int
	failures int // fail this many calls before succeeding
	lastReq  gateway.CreateLinkRequest
}

var _ gateway.PaymentGateway = (*fakeGateway)(nil)

func (f *fakeGateway) CreatePaymentLink(ctx context.Context, req gateway.CreateLinkRequest) (*gateway.PaymentLink, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.lastReq = req
	if f.calls <= f.failures {
		return nil, gateway.ErrGatewayUnavailable
	}
	return &gateway.PaymentLink{
		CheckoutURL:    "https://pay.example.com/" + req.OrderCode,
		QRCode:         "qr-" + req.OrderCode,
		ExternalLinkID: "link-" + req.OrderCode,
	}, nil
}

func (f *fakeGateway) VerifySignature(payload []byte, signature string) bool { return true }

// ==================== HELPERS ====================

func newTestRepository(slots *fakeSlotRepo, orders *fakePaymentOrderRepo, courses *fakeCourseRepo, plans *fakeBookingPlanRepo) *repository.Repository {
	return &repository.Repository{
		DB:           &fakeDB{},
		Slot:         slots,
		PaymentOrder: orders,
		Course:       courses,
		BookingPlan:  plans,
	}
}

func availableSlot(tutorID, planID uuid.UUID, start time.Time) *entity.Slot {
	now := time.Now()
	return &entity.Slot{
		Base: entity.Base{
			ID:        uuid.New(),
			CreatedAt: now,
			UpdatedAt: now,
		},
		TutorID:   tutorID,
		PlanID:    planID,
		StartTime: start,
		EndTime:   start.Add(time.Hour),
		Status:    entity.SlotStatusAvailable,
	}
}
