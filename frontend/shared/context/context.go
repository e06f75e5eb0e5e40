package context

import (
	"context"

	"dailyreport/reporting"
)

type sessionKey struct{}

func NewContextWithSession(ctx context.Context, session *reporting.Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, session)
}

func GetSessionFromContext(ctx context.Context) (*reporting.Session, bool) {
	s, ok := ctx.Value(sessionKey{}).(*reporting.Session)
	return s, ok && s != nil
}
