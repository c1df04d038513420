package borrow

import (
	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres" // registers the postgres dialect
	"github.com/doug-martin/goqu/v9/exp"
)

var dialect = goqu.Dialect("postgres")

var recordColumns = []any{"id", "user_id", "book_id", "borrow_date", "due_date", "return_date", "returned"}

func statusFilter(status Status, today any) []exp.Expression {
	switch status {
	case StatusActive:
		return []exp.Expression{goqu.C("returned").IsFalse()}
	case StatusBorrowed:
		return []exp.Expression{goqu.C("returned").IsFalse(), goqu.C("due_date").Gte(today)}
	case StatusOverdue:
		return []exp.Expression{goqu.C("returned").IsFalse(), goqu.C("due_date").Lt(today)}
	case StatusReturned:
		return []exp.Expression{goqu.C("returned").IsTrue()}
	}
	return nil
}

// buildListSQL renders the keyset page query for q.
func buildListSQL(q Query) (string, []any, error) {
	where := statusFilter(q.Status, q.Today)
	if q.UserID != "" {
		where = append(where, goqu.C("user_id").Eq(q.UserID))
	}
	if q.After != nil {
		where = append(where, goqu.L("(borrow_date, id) < (?, ?::uuid)", q.After.BorrowDate, q.After.ID))
	}

	ds := dialect.From("borrow_records").
		Prepared(true).
		Select(recordColumns...).
		Where(where...).
		Order(goqu.C("borrow_date").Desc(), goqu.C("id").Desc())
	if q.Limit > 0 {
		ds = ds.Limit(uint(q.Limit))
	}
	return ds.ToSQL()
}
