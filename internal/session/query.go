package session

import (
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres" // registers the postgres dialect
	"github.com/doug-martin/goqu/v9/exp"
)

var dialect = goqu.Dialect("postgres")

var (
	sessions  = goqu.T("sessions")
	blacklist = goqu.T("token_blacklist")
)

var sessionColumns = []any{
	"id", "user_id", "refresh_token_hash", "user_agent", "ip_address",
	"remember_me", "expires_at", "created_at", "last_used_at",
}

// unexpired compares against the database clock, the same one the column
// defaults use.
func unexpired() exp.Expression {
	return goqu.C("expires_at").Gt(goqu.L("now()"))
}

func expired() exp.Expression {
	return goqu.C("expires_at").Lte(goqu.L("now()"))
}

func insertSessionSQL(s *Session) (string, []any, error) {
	return dialect.Insert(sessions).Prepared(true).
		Rows(goqu.Record{
			"user_id":            s.UserID,
			"refresh_token_hash": s.RefreshTokenHash,
			"user_agent":         s.UserAgent,
			"ip_address":         s.IPAddress,
			"remember_me":        s.RememberMe,
			"expires_at":         s.ExpiresAt,
		}).
		Returning("id", "created_at", "last_used_at").
		ToSQL()
}

// consumeSQL deletes a live session by token hash and hands it back, so a
// refresh token can be redeemed at most once.
func consumeSQL(tokenHash string) (string, []any, error) {
	return dialect.Delete(sessions).Prepared(true).
		Where(goqu.C("refresh_token_hash").Eq(tokenHash), unexpired()).
		Returning(sessionColumns...).
		ToSQL()
}

func listActiveSQL(userID string) (string, []any, error) {
	return dialect.From(sessions).Prepared(true).
		Select(sessionColumns...).
		Where(goqu.C("user_id").Eq(userID), unexpired()).
		Order(goqu.C("last_used_at").Desc(), goqu.C("id").Desc()).
		ToSQL()
}

func deleteForUserSQL(userID, sessionID string) (string, []any, error) {
	return dialect.Delete(sessions).Prepared(true).
		Where(goqu.C("id").Eq(sessionID), goqu.C("user_id").Eq(userID)).
		ToSQL()
}

func purgeSQL(table exp.IdentifierExpression) (string, []any, error) {
	return dialect.Delete(table).Prepared(true).Where(expired()).ToSQL()
}

func revokeSQL(jti, userID string, expiresAt time.Time) (string, []any, error) {
	return dialect.Insert(blacklist).Prepared(true).
		Rows(goqu.Record{"jti": jti, "user_id": userID, "expires_at": expiresAt}).
		OnConflict(goqu.DoNothing()).
		ToSQL()
}

func isRevokedSQL(jti string) (string, []any, error) {
	return dialect.From(blacklist).Prepared(true).
		Select(goqu.COUNT(goqu.Star())).
		Where(goqu.C("jti").Eq(jti), unexpired()).
		ToSQL()
}
