package inmemdb

import (
	"sync"

	"github.com/trezcool/classbook/core/account"
	"github.com/trezcool/classbook/core/announcement"
	"github.com/trezcool/classbook/core/course"
	"github.com/trezcool/classbook/core/grade"
	"github.com/trezcool/classbook/core/payment"
)

type (
	DB struct {
		account      *table[account.Account]
		course       *table[course.Course]
		grade        *table[grade.Record]
		payment      *table[payment.Record]
		announcement *table[announcement.Announcement]
	}

	// table keeps rows in insertion order.
	table[T any] struct {
		sync.RWMutex
		rows map[string]*T
		ids  []string
	}
)

func Open() *DB {
	return &DB{
		account:      newTable[account.Account](),
		course:       newTable[course.Course](),
		grade:        newTable[grade.Record](),
		payment:      newTable[payment.Record](),
		announcement: newTable[announcement.Announcement](),
	}
}

func newTable[T any]() *table[T] {
	return &table[T]{rows: make(map[string]*T)}
}

func (t *table[T]) insert(id string, row T) {
	t.rows[id] = &row
	t.ids = append(t.ids, id)
}

func (t *table[T]) get(id string) (*T, bool) {
	row, ok := t.rows[id]
	return row, ok
}

// filter returns copies of the rows matching match, oldest first.
func (t *table[T]) filter(match func(T) bool) []T {
	rows := make([]T, 0, len(t.ids))
	for _, id := range t.ids {
		if row := *t.rows[id]; match(row) {
			rows = append(rows, row)
		}
	}
	return rows
}

func (t *table[T]) find(match func(T) bool) (T, bool) {
	for _, id := range t.ids {
		if row := *t.rows[id]; match(row) {
			return row, true
		}
	}
	var zero T
	return zero, false
}

func cloneStrings(s []string) []string {
	return append(make([]string, 0, len(s)), s...)
}
