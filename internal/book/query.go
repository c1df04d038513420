package book

import (
	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres" // registers the postgres dialect
	"github.com/doug-martin/goqu/v9/exp"
)

var dialect = goqu.Dialect("postgres")

var columns = []any{
	"id", "isbn", "title", "author", "genre", "publisher", "description",
	"publication_year", "cover_url", "available", "created_at", "updated_at",
}

var sortColumns = map[string]string{
	"title":      "title",
	"author":     "author",
	"year":       "publication_year",
	"created_at": "created_at",
}

func filters(q Query) []exp.Expression {
	var where []exp.Expression

	if q.Genre != "" {
		where = append(where, goqu.C("genre").Eq(q.Genre))
	}
	if q.Author != "" {
		where = append(where, goqu.C("author").ILike("%"+q.Author+"%"))
	}
	if q.Available != nil {
		where = append(where, goqu.C("available").Eq(*q.Available))
	}
	if q.Q != "" {
		pattern := "%" + q.Q + "%"
		where = append(where, goqu.Or(
			goqu.C("title").ILike(pattern),
			goqu.C("author").ILike(pattern),
			goqu.C("isbn").ILike(pattern),
			goqu.C("genre").ILike(pattern),
			goqu.C("publisher").ILike(pattern),
		))
	}

	return where
}

// buildListSQL returns the count query and the page query for q, both with
// positional placeholders for pgx.
func buildListSQL(q Query) (countSQL string, countArgs []any, dataSQL string, dataArgs []any, err error) {
	base := dialect.From("books").Prepared(true).Where(filters(q)...)

	countSQL, countArgs, err = base.Select(goqu.COUNT(goqu.Star())).ToSQL()
	if err != nil {
		return "", nil, "", nil, err
	}

	col, ok := sortColumns[q.Sort]
	if !ok {
		col = "title"
	}
	order := goqu.I(col).Asc()
	if q.Desc {
		order = goqu.I(col).Desc()
	}

	dataSQL, dataArgs, err = base.
		Select(columns...).
		Order(order.NullsLast(), goqu.I("id").Asc()).
		Limit(uint(q.Limit)).
		Offset(uint(q.Offset)).
		ToSQL()
	return countSQL, countArgs, dataSQL, dataArgs, err
}
