package domain

import "time"

// PendingRequest associates a command sent on the mirror session with
// the end user who caused it. The upstream bot attaches no correlation
// token to its replies, so ownership is resolved by recency within a
// freshness window.
type PendingRequest struct {
	UserID           int64
	ChatID           int64
	PlaceholderMsgID int
	Command          string
	Keyword          string
	CreatedAt        time.Time
	CanGoBack        bool

	// SourceMsgID is filled once the upstream reply is delivered, so
	// later edits of the same upstream message stay routable.
	SourceMsgID int
	// ResultMsgID is the front-end message currently showing the result.
	ResultMsgID int
	// LastPage is the page number most recently shown to the user.
	LastPage int
}

// Fresh reports whether the request is still inside the freshness
// window and may claim an incoming reply.
func (r *PendingRequest) Fresh(now time.Time, window time.Duration) bool {
	return now.Sub(r.CreatedAt) <= window
}
