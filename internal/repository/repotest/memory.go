// Package repotest provides an in-memory repository.Store for service and
// handler tests. Transactions are serialised by one mutex and rolled back by
// restoring a snapshot, which is enough to observe the same ordering the
// PostgreSQL row locks give.
package repotest

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/opd-queue/internal/model"
	"github.com/jwalitptl/opd-queue/internal/repository"
)

// ErrInjected is returned by operations the test asked to fail.
var ErrInjected = errors.New("injected failure")

type queueKey struct {
	doctorID uuid.UUID
	date     model.Date
}

type state struct {
	departments   map[uuid.UUID]model.Department
	doctors       map[uuid.UUID]model.Doctor
	patients      map[uuid.UUID]model.Patient
	leaves        map[queueKey]model.DoctorLeave
	appointments  map[uuid.UUID]model.Appointment
	queues        map[queueKey]model.DailyQueue
	notifications []model.Notification
}

func newState() *state {
	return &state{
		departments:  map[uuid.UUID]model.Department{},
		doctors:      map[uuid.UUID]model.Doctor{},
		patients:     map[uuid.UUID]model.Patient{},
		leaves:       map[queueKey]model.DoctorLeave{},
		appointments: map[uuid.UUID]model.Appointment{},
		queues:       map[queueKey]model.DailyQueue{},
	}
}

func (s *state) clone() *state {
	c := newState()
	for k, v := range s.departments {
		c.departments[k] = v
	}
	for k, v := range s.doctors {
		c.doctors[k] = v
	}
	for k, v := range s.patients {
		c.patients[k] = v
	}
	for k, v := range s.leaves {
		c.leaves[k] = v
	}
	for k, v := range s.appointments {
		c.appointments[k] = v
	}
	for k, v := range s.queues {
		c.queues[k] = v
	}
	c.notifications = append([]model.Notification(nil), s.notifications...)
	return c
}

type shared struct {
	mu   sync.Mutex
	data *state
	now  func() time.Time

	failNotifications    bool
	duplicateAppointment int
	commits              int
}

// Store is safe for concurrent use.
type Store struct {
	sh   *shared
	inTx bool
}

func New() *Store {
	return &Store{sh: &shared{data: newState(), now: time.Now}}
}

// SetNow fixes the timestamps written on created_at columns.
func (s *Store) SetNow(now func() time.Time) {
	s.lock()
	defer s.unlock()
	s.sh.now = now
}

// FailNotifications makes every notification insert fail.
func (s *Store) FailNotifications(fail bool) {
	s.lock()
	defer s.unlock()
	s.sh.failNotifications = fail
}

// DuplicateNextAppointmentInserts makes the next n appointment inserts fail
// with repository.ErrDuplicate, as a racing writer would.
func (s *Store) DuplicateNextAppointmentInserts(n int) {
	s.lock()
	defer s.unlock()
	s.sh.duplicateAppointment = n
}

// Commits counts committed top-level transactions.
func (s *Store) Commits() int {
	s.lock()
	defer s.unlock()
	return s.sh.commits
}

func (s *Store) lock() {
	if !s.inTx {
		s.sh.mu.Lock()
	}
}

func (s *Store) unlock() {
	if !s.inTx {
		s.sh.mu.Unlock()
	}
}

func (s *Store) Doctors() repository.DoctorRepository { return doctorRepo{s} }
func (s *Store) Departments() repository.DepartmentRepository { return departmentRepo{s} }
func (s *Store) Patients() repository.PatientRepository { return patientRepo{s} }
func (s *Store) Leaves() repository.LeaveRepository { return leaveRepo{s} }
func (s *Store) Appointments() repository.AppointmentRepository { return appointmentRepo{s} }
func (s *Store) Queues() repository.QueueRepository { return queueRepo{s} }
func (s *Store) Notifications() repository.NotificationRepository { return notificationRepo{s} }

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) WithTx(ctx context.Context, fn func(repository.Store) error) error {
	if s.inTx {
		return fn(s)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.sh.mu.Lock()
	defer s.sh.mu.Unlock()

	snapshot := s.sh.data.clone()
	defer func() {
		if p := recover(); p != nil {
			s.sh.data = snapshot
			panic(p)
		}
	}()

	if err := fn(&Store{sh: s.sh, inTx: true}); err != nil {
		s.sh.data = snapshot
		return err
	}
	s.sh.commits++
	return nil
}

func (s *Store) BestEffort(ctx context.Context, fn func(repository.Store) error) error {
	if !s.inTx {
		return fn(s)
	}
	snapshot := s.sh.data.clone()
	if err := fn(s); err != nil {
		s.sh.data = snapshot
		return err
	}
	return nil
}

// Seeding and inspection helpers.

func (s *Store) AddDepartment(d model.Department) model.Department {
	s.lock()
	defer s.unlock()
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	s.sh.data.departments[d.ID] = d
	return d
}

// AddDoctor stores d, defaulting the id and a 09:00-17:00 schedule.
func (s *Store) AddDoctor(d model.Doctor) model.Doctor {
	s.lock()
	defer s.unlock()
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	if d.ScheduleStart == 0 && d.ScheduleEnd == 0 {
		d.ScheduleStart, d.ScheduleEnd = model.DefaultScheduleStart, model.DefaultScheduleEnd
	}
	s.sh.data.doctors[d.ID] = d
	return d
}

func (s *Store) AddPatient(p model.Patient) model.Patient {
	s.lock()
	defer s.unlock()
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	s.sh.data.patients[p.ID] = p
	return p
}

// PutAppointment stores a without any constraint checks.
func (s *Store) PutAppointment(a model.Appointment) model.Appointment {
	s.lock()
	defer s.unlock()
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	s.sh.data.appointments[a.ID] = a
	return a
}

func (s *Store) Appointment(id uuid.UUID) (model.Appointment, bool) {
	s.lock()
	defer s.unlock()
	a, ok := s.sh.data.appointments[id]
	return a, ok
}

func (s *Store) AllAppointments() []model.Appointment {
	s.lock()
	defer s.unlock()
	out := make([]model.Appointment, 0, len(s.sh.data.appointments))
	for _, a := range s.sh.data.appointments {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TokenNumber < out[j].TokenNumber })
	return out
}

func (s *Store) Queue(doctorID uuid.UUID, date model.Date) (model.DailyQueue, bool) {
	s.lock()
	defer s.unlock()
	q, ok := s.sh.data.queues[queueKey{doctorID, date}]
	return q, ok
}

func (s *Store) AllNotifications() []model.Notification {
	s.lock()
	defer s.unlock()
	return append([]model.Notification(nil), s.sh.data.notifications...)
}

type doctorRepo struct{ s *Store }

func (r doctorRepo) Get(_ context.Context, id uuid.UUID) (*model.Doctor, error) {
	r.s.lock()
	defer r.s.unlock()
	d, ok := r.s.sh.data.doctors[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &d, nil
}

func (r doctorRepo) List(_ context.Context, filters *model.DoctorFilters) ([]*model.Doctor, error) {
	r.s.lock()
	defer r.s.unlock()
	out := []*model.Doctor{}
	for _, d := range r.s.sh.data.doctors {
		d := d
		if filters != nil && filters.DepartmentID != nil && (d.DepartmentID == nil || *d.DepartmentID != *filters.DepartmentID) {
			continue
		}
		out = append(out, &d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FullName < out[j].FullName })
	return out, nil
}

func (r doctorRepo) UpdateSchedule(_ context.Context, id uuid.UUID, start, end model.Clock) error {
	r.s.lock()
	defer r.s.unlock()
	d, ok := r.s.sh.data.doctors[id]
	if !ok {
		return repository.ErrNotFound
	}
	d.ScheduleStart, d.ScheduleEnd = start, end
	r.s.sh.data.doctors[id] = d
	return nil
}

func (r doctorRepo) SetPause(_ context.Context, id uuid.UUID, paused bool, reason *string) error {
	r.s.lock()
	defer r.s.unlock()
	d, ok := r.s.sh.data.doctors[id]
	if !ok {
		return repository.ErrNotFound
	}
	d.IsPaused, d.PauseReason = paused, reason
	r.s.sh.data.doctors[id] = d
	return nil
}

type departmentRepo struct{ s *Store }

func (r departmentRepo) List(context.Context) ([]*model.Department, error) {
	r.s.lock()
	defer r.s.unlock()
	out := []*model.Department{}
	for _, d := range r.s.sh.data.departments {
		d := d
		out = append(out, &d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

type patientRepo struct{ s *Store }

func (r patientRepo) Create(_ context.Context, p *model.Patient) error {
	r.s.lock()
	defer r.s.unlock()
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	for _, o := range r.s.sh.data.patients {
		if o.ID == p.ID || (p.UserID != nil && o.UserID != nil && *o.UserID == *p.UserID) {
			return repository.ErrDuplicate
		}
	}
	r.s.sh.data.patients[p.ID] = *p
	return nil
}

func (r patientRepo) Get(_ context.Context, id uuid.UUID) (*model.Patient, error) {
	r.s.lock()
	defer r.s.unlock()
	p, ok := r.s.sh.data.patients[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &p, nil
}

type leaveRepo struct{ s *Store }

func (r leaveRepo) Create(_ context.Context, l *model.DoctorLeave) error {
	r.s.lock()
	defer r.s.unlock()
	key := queueKey{l.DoctorID, l.LeaveDate}
	if _, ok := r.s.sh.data.leaves[key]; ok {
		return repository.ErrDuplicate
	}
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	r.s.sh.data.leaves[key] = *l
	return nil
}

func (r leaveRepo) Delete(_ context.Context, doctorID uuid.UUID, date model.Date) error {
	r.s.lock()
	defer r.s.unlock()
	key := queueKey{doctorID, date}
	if _, ok := r.s.sh.data.leaves[key]; !ok {
		return repository.ErrNotFound
	}
	delete(r.s.sh.data.leaves, key)
	return nil
}

func (r leaveRepo) Exists(_ context.Context, doctorID uuid.UUID, date model.Date) (bool, error) {
	r.s.lock()
	defer r.s.unlock()
	_, ok := r.s.sh.data.leaves[queueKey{doctorID, date}]
	return ok, nil
}

func (r leaveRepo) ListFrom(_ context.Context, doctorID uuid.UUID, from model.Date) ([]*model.DoctorLeave, error) {
	r.s.lock()
	defer r.s.unlock()
	out := []*model.DoctorLeave{}
	for _, l := range r.s.sh.data.leaves {
		l := l
		if l.DoctorID == doctorID && !l.LeaveDate.Before(from) {
			out = append(out, &l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LeaveDate.Before(out[j].LeaveDate) })
	return out, nil
}

type appointmentRepo struct{ s *Store }

// violates mirrors the two unique indexes on appointments.
func (r appointmentRepo) violates(a *model.Appointment) bool {
	for _, o := range r.s.sh.data.appointments {
		if o.ID == a.ID || o.DoctorID != a.DoctorID || o.Date != a.Date {
			continue
		}
		if o.TokenNumber == a.TokenNumber {
			return true
		}
		if o.Time == a.Time && o.Status != model.AppointmentStatusCancelled && a.Status != model.AppointmentStatusCancelled {
			return true
		}
	}
	return false
}

func (r appointmentRepo) Create(_ context.Context, a *model.Appointment) error {
	r.s.lock()
	defer r.s.unlock()
	if r.s.sh.duplicateAppointment > 0 {
		r.s.sh.duplicateAppointment--
		return repository.ErrDuplicate
	}
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if r.violates(a) {
		return repository.ErrDuplicate
	}
	now := r.s.sh.now().UTC()
	a.CreatedAt, a.UpdatedAt = now, now
	r.s.sh.data.appointments[a.ID] = *a
	return nil
}

func (r appointmentRepo) Get(_ context.Context, id uuid.UUID) (*model.Appointment, error) {
	r.s.lock()
	defer r.s.unlock()
	a, ok := r.s.sh.data.appointments[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &a, nil
}

func (r appointmentRepo) GetForUpdate(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	return r.Get(ctx, id)
}

func (r appointmentRepo) Update(_ context.Context, a *model.Appointment) error {
	r.s.lock()
	defer r.s.unlock()
	cur, ok := r.s.sh.data.appointments[a.ID]
	if !ok {
		return repository.ErrNotFound
	}
	if r.violates(a) {
		return repository.ErrDuplicate
	}
	cur.Date, cur.Time, cur.Status = a.Date, a.Time, a.Status
	cur.TokenNumber, cur.RescheduleNote = a.TokenNumber, a.RescheduleNote
	cur.UpdatedAt = r.s.sh.now().UTC()
	a.UpdatedAt = cur.UpdatedAt
	r.s.sh.data.appointments[a.ID] = cur
	return nil
}

func (r appointmentRepo) UpdateStatus(_ context.Context, id uuid.UUID, status model.AppointmentStatus) error {
	r.s.lock()
	defer r.s.unlock()
	a, ok := r.s.sh.data.appointments[id]
	if !ok {
		return repository.ErrNotFound
	}
	a.Status = status
	a.UpdatedAt = r.s.sh.now().UTC()
	r.s.sh.data.appointments[id] = a
	return nil
}

func (r appointmentRepo) SlotTaken(_ context.Context, doctorID uuid.UUID, date model.Date, at model.Clock, excludeID *uuid.UUID) (bool, error) {
	r.s.lock()
	defer r.s.unlock()
	for _, a := range r.s.sh.data.appointments {
		if excludeID != nil && a.ID == *excludeID {
			continue
		}
		if a.DoctorID == doctorID && a.Date == date && a.Time == at && a.Status != model.AppointmentStatusCancelled {
			return true, nil
		}
	}
	return false, nil
}

func (r appointmentRepo) MaxToken(_ context.Context, doctorID uuid.UUID, date model.Date) (int, error) {
	r.s.lock()
	defer r.s.unlock()
	maxToken := 0
	for _, a := range r.s.sh.data.appointments {
		if a.DoctorID == doctorID && a.Date == date && a.TokenNumber > maxToken {
			maxToken = a.TokenNumber
		}
	}
	return maxToken, nil
}

func (r appointmentRepo) NextPending(_ context.Context, doctorID uuid.UUID, date model.Date) (*model.Appointment, error) {
	r.s.lock()
	defer r.s.unlock()
	var next *model.Appointment
	for _, a := range r.s.sh.data.appointments {
		a := a
		if a.DoctorID != doctorID || a.Date != date || a.Status != model.AppointmentStatusPending {
			continue
		}
		if next == nil || a.TokenNumber < next.TokenNumber {
			next = &a
		}
	}
	if next == nil {
		return nil, repository.ErrNotFound
	}
	return next, nil
}

func (r appointmentRepo) detail(a model.Appointment) *model.AppointmentDetail {
	d := &model.AppointmentDetail{Appointment: a}
	if p, ok := r.s.sh.data.patients[a.PatientID]; ok {
		d.PatientName, d.PatientAge, d.PatientGender = p.FullName, p.Age, p.Gender
	}
	if doc, ok := r.s.sh.data.doctors[a.DoctorID]; ok {
		d.DoctorName = doc.FullName
	}
	return d
}

func (r appointmentRepo) ListForDoctor(_ context.Context, doctorID uuid.UUID, date model.Date, statuses ...model.AppointmentStatus) ([]*model.AppointmentDetail, error) {
	r.s.lock()
	defer r.s.unlock()
	out := []*model.AppointmentDetail{}
	for _, a := range r.s.sh.data.appointments {
		if a.DoctorID != doctorID || a.Date != date {
			continue
		}
		if len(statuses) > 0 && !a.Status.In(statuses...) {
			continue
		}
		out = append(out, r.detail(a))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TokenNumber < out[j].TokenNumber })
	return out, nil
}

func (r appointmentRepo) ListForPatient(_ context.Context, patientID uuid.UUID) ([]*model.AppointmentDetail, error) {
	r.s.lock()
	defer r.s.unlock()
	out := []*model.AppointmentDetail{}
	for _, a := range r.s.sh.data.appointments {
		if a.PatientID == patientID {
			out = append(out, r.detail(a))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date.After(out[j].Date)
		}
		return out[i].Time > out[j].Time
	})
	return out, nil
}

func (r appointmentRepo) DueForReminder(_ context.Context, patientID uuid.UUID, date model.Date, from, to model.Clock) ([]*model.Appointment, error) {
	r.s.lock()
	defer r.s.unlock()
	out := []*model.Appointment{}
	for _, a := range r.s.sh.data.appointments {
		a := a
		if a.PatientID == patientID && a.Date == date && a.Status == model.AppointmentStatusPending &&
			a.Time >= from && a.Time <= to {
			out = append(out, &a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Time < out[j].Time })
	return out, nil
}

func (r appointmentRepo) CountByStatus(_ context.Context, doctorID uuid.UUID, date model.Date, status model.AppointmentStatus) (int, error) {
	r.s.lock()
	defer r.s.unlock()
	n := 0
	for _, a := range r.s.sh.data.appointments {
		if a.DoctorID == doctorID && a.Date == date && a.Status == status {
			n++
		}
	}
	return n, nil
}

type queueRepo struct{ s *Store }

func (r queueRepo) Ensure(_ context.Context, doctorID uuid.UUID, date model.Date) (bool, error) {
	r.s.lock()
	defer r.s.unlock()
	key := queueKey{doctorID, date}
	if _, ok := r.s.sh.data.queues[key]; ok {
		return false, nil
	}
	r.s.sh.data.queues[key] = model.DailyQueue{
		ID:          uuid.New(),
		DoctorID:    doctorID,
		QueueDate:   date,
		LastUpdated: r.s.sh.now().UTC(),
	}
	return true, nil
}

func (r queueRepo) Lock(ctx context.Context, doctorID uuid.UUID, date model.Date) (*model.DailyQueue, error) {
	return r.Get(ctx, doctorID, date)
}

func (r queueRepo) Get(_ context.Context, doctorID uuid.UUID, date model.Date) (*model.DailyQueue, error) {
	r.s.lock()
	defer r.s.unlock()
	q, ok := r.s.sh.data.queues[queueKey{doctorID, date}]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &q, nil
}

func (r queueRepo) SetCurrentToken(_ context.Context, doctorID uuid.UUID, date model.Date, token int) error {
	r.s.lock()
	defer r.s.unlock()
	key := queueKey{doctorID, date}
	q, ok := r.s.sh.data.queues[key]
	if !ok {
		return repository.ErrNotFound
	}
	q.CurrentToken = token
	q.LastUpdated = r.s.sh.now().UTC()
	r.s.sh.data.queues[key] = q
	return nil
}

type notificationRepo struct{ s *Store }

func (r notificationRepo) Create(_ context.Context, n *model.Notification) error {
	r.s.lock()
	defer r.s.unlock()
	if r.s.sh.failNotifications {
		return ErrInjected
	}
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = r.s.sh.now().UTC()
	}
	r.s.sh.data.notifications = append(r.s.sh.data.notifications, *n)
	return nil
}

func (r notificationRepo) ExistsForAppointment(_ context.Context, appointmentID uuid.UUID, typ model.NotificationType) (bool, error) {
	r.s.lock()
	defer r.s.unlock()
	for _, n := range r.s.sh.data.notifications {
		if n.AppointmentID != nil && *n.AppointmentID == appointmentID && n.Type == typ {
			return true, nil
		}
	}
	return false, nil
}

// ListUnread returns newest first; equal timestamps keep reverse insertion
// order.
func (r notificationRepo) ListUnread(_ context.Context, patientID uuid.UUID) ([]*model.Notification, error) {
	r.s.lock()
	defer r.s.unlock()
	out := []*model.Notification{}
	all := r.s.sh.data.notifications
	for i := len(all) - 1; i >= 0; i-- {
		n := all[i]
		if n.PatientID == patientID && !n.IsRead {
			out = append(out, &n)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r notificationRepo) MarkRead(_ context.Context, id uuid.UUID) error {
	r.s.lock()
	defer r.s.unlock()
	for i := range r.s.sh.data.notifications {
		if r.s.sh.data.notifications[i].ID == id {
			r.s.sh.data.notifications[i].IsRead = true
			return nil
		}
	}
	return repository.ErrNotFound
}

func (r notificationRepo) MarkAllRead(_ context.Context, patientID uuid.UUID) (int64, error) {
	r.s.lock()
	defer r.s.unlock()
	var n int64
	for i := range r.s.sh.data.notifications {
		nt := &r.s.sh.data.notifications[i]
		if nt.PatientID == patientID && !nt.IsRead {
			nt.IsRead = true
			n++
		}
	}
	return n, nil
}
