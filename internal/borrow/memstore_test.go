package borrow

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// memStore is an in-memory Repository. A transaction holds the store lock
// for its whole duration and works on copies that are applied on commit, so
// a failed or panicking transaction leaves no trace.
type memStore struct {
	mu      sync.Mutex
	users   map[string]bool
	books   map[string]bool
	records map[string]Record
	seq     int
}

func newMemStore() *memStore {
	return &memStore{
		users:   map[string]bool{},
		books:   map[string]bool{},
		records: map[string]Record{},
	}
}

func (m *memStore) addUser(id string) { m.users[id] = true }

func (m *memStore) addBook(id string) { m.books[id] = true }

func (m *memStore) bookAvailable(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.books[id]
}

func (m *memStore) recordCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}

// consistent reports whether every book is available iff it has no active record.
func (m *memStore) consistent() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	active := map[string]int{}
	for _, r := range m.records {
		if !r.Returned {
			active[r.BookID]++
		}
		if r.Returned != (r.ReturnDate != nil) {
			return fmt.Errorf("record %s: returned=%v but return date %v", r.ID, r.Returned, r.ReturnDate)
		}
	}
	for id, available := range m.books {
		if active[id] > 1 {
			return fmt.Errorf("book %s has %d active records", id, active[id])
		}
		if available == (active[id] == 1) {
			return fmt.Errorf("book %s available=%v with %d active records", id, available, active[id])
		}
	}
	return nil
}

func (m *memStore) WithinTx(ctx context.Context, fn func(tx Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	tx := &memTx{
		users:   m.users,
		books:   make(map[string]bool, len(m.books)),
		records: make(map[string]Record, len(m.records)),
		seq:     m.seq,
	}
	for k, v := range m.books {
		tx.books[k] = v
	}
	for k, v := range m.records {
		tx.records[k] = v
	}

	if err := fn(tx); err != nil {
		return err
	}
	m.books, m.records, m.seq = tx.books, tx.records, tx.seq
	return nil
}

func (m *memStore) Get(ctx context.Context, id string) (Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.records[id]
	if !ok {
		return Record{}, ErrRecordNotFound
	}
	return r, nil
}

func (m *memStore) sorted(keep func(Record) bool) []Record {
	out := []Record{}
	for _, r := range m.records {
		if keep(r) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].BorrowDate.Equal(out[j].BorrowDate) {
			return out[i].BorrowDate.After(out[j].BorrowDate)
		}
		return out[i].ID > out[j].ID
	})
	return out
}

func (m *memStore) List(ctx context.Context, q Query) ([]Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := m.sorted(func(r Record) bool {
		if q.UserID != "" && r.UserID != q.UserID {
			return false
		}
		switch q.Status {
		case StatusActive:
			if r.Returned {
				return false
			}
		case StatusBorrowed, StatusReturned, StatusOverdue:
			if r.Status(q.Today) != q.Status {
				return false
			}
		}
		if q.After != nil {
			if r.BorrowDate.After(q.After.BorrowDate) {
				return false
			}
			if r.BorrowDate.Equal(q.After.BorrowDate) && r.ID >= q.After.ID {
				return false
			}
		}
		return true
	})
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func (m *memStore) ListByUser(ctx context.Context, userID string, returned *bool) ([]Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sorted(func(r Record) bool {
		return r.UserID == userID && (returned == nil || r.Returned == *returned)
	}), nil
}

func (m *memStore) Overdue(ctx context.Context, today time.Time) ([]Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sorted(func(r Record) bool { return r.IsOverdue(today) }), nil
}

func (m *memStore) Stats(ctx context.Context, today time.Time) (Stats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := Stats{TotalBooks: len(m.books), TotalMembers: len(m.users)}
	for _, available := range m.books {
		if available {
			s.AvailableBooks++
		} else {
			s.BorrowedBooks++
		}
	}
	for _, r := range m.records {
		if r.IsOverdue(today) {
			s.OverdueBooks++
		}
	}
	return s, nil
}

type memTx struct {
	users   map[string]bool
	books   map[string]bool
	records map[string]Record
	seq     int
}

func (t *memTx) UserExists(ctx context.Context, userID string) (bool, error) {
	return t.users[userID], nil
}

func (t *memTx) LockBook(ctx context.Context, bookID string) (bool, error) {
	available, ok := t.books[bookID]
	if !ok {
		return false, ErrBookNotFound
	}
	return available, nil
}

func (t *memTx) SetBookAvailable(ctx context.Context, bookID string, available bool) error {
	if _, ok := t.books[bookID]; !ok {
		return ErrBookNotFound
	}
	t.books[bookID] = available
	return nil
}

func (t *memTx) InsertRecord(ctx context.Context, r Record) (Record, error) {
	for _, existing := range t.records {
		if existing.BookID == r.BookID && !existing.Returned {
			return Record{}, ErrBookUnavailable
		}
	}
	t.seq++
	r.ID = fmt.Sprintf("r%03d", t.seq)
	t.records[r.ID] = r
	return r, nil
}

func (t *memTx) LockRecord(ctx context.Context, id string) (Record, error) {
	r, ok := t.records[id]
	if !ok {
		return Record{}, ErrRecordNotFound
	}
	return r, nil
}

func (t *memTx) UpdateRecord(ctx context.Context, r Record) error {
	current, ok := t.records[r.ID]
	if !ok {
		return ErrRecordNotFound
	}
	if current.Returned {
		return ErrAlreadyReturned
	}
	t.records[r.ID] = r
	return nil
}
