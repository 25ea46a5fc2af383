package usecase

import (
	"sync"
	"time"

	"github.com/atai-labs/search-mirror/internal/biz/domain"
)

// DefaultFreshnessWindow is how long a dispatched request may wait for
// its upstream reply before being treated as stale.
const DefaultFreshnessWindow = 10 * time.Second

// TrackerUsecase associates outgoing mirrored commands with the end
// users who caused them. At most one active request per user; a new
// request supersedes the old one.
//
// Resolution picks the most recently registered fresh request, because
// upstream replies carry no correlation token. Two users searching
// inside the same window can be misrouted; the trade-off is inherited
// from the upstream protocol and documented in DESIGN.md.
type TrackerUsecase struct {
	mu      sync.Mutex
	pending map[int64]*domain.PendingRequest
	window  time.Duration
}

// NewTrackerUsecase creates a new tracker usecase.
func NewTrackerUsecase(window time.Duration) *TrackerUsecase {
	if window <= 0 {
		window = DefaultFreshnessWindow
	}
	return &TrackerUsecase{
		pending: make(map[int64]*domain.PendingRequest),
		window:  window,
	}
}

// Register records a dispatched command, overwriting any prior pending
// request for the same user.
func (uc *TrackerUsecase) Register(req *domain.PendingRequest) {
	uc.mu.Lock()
	defer uc.mu.Unlock()

	if req.CreatedAt.IsZero() {
		req.CreatedAt = time.Now()
	}
	uc.pending[req.UserID] = req
}

// ResolveLatest returns the most recently registered request that is
// still inside the freshness window, or nil when the reply is unowned.
// Stale requests are skipped, not removed: the same entry is the
// user's viewing context and must survive until the user's next
// search replaces it.
func (uc *TrackerUsecase) ResolveLatest(now time.Time) *domain.PendingRequest {
	uc.mu.Lock()
	defer uc.mu.Unlock()

	var latest *domain.PendingRequest
	for _, req := range uc.pending {
		if !req.Fresh(now, uc.window) {
			continue
		}
		if latest == nil || req.CreatedAt.After(latest.CreatedAt) {
			latest = req
		}
	}
	return latest
}

// Get returns the user's request regardless of freshness. Pagination
// clicks arrive long after the window closes and still need their
// viewing context.
func (uc *TrackerUsecase) Get(userID int64) *domain.PendingRequest {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	return uc.pending[userID]
}

// Complete binds the delivered message ids to a request and re-stamps
// it so follow-up edits of the same result stay routable.
func (uc *TrackerUsecase) Complete(userID int64, sourceMsgID, resultMsgID int) {
	uc.mu.Lock()
	defer uc.mu.Unlock()

	if req, ok := uc.pending[userID]; ok {
		req.SourceMsgID = sourceMsgID
		req.ResultMsgID = resultMsgID
		req.LastPage = 1
		req.CreatedAt = time.Now()
	}
}

// Refresh re-stamps a request so follow-up edits from pagination still
// find an owner.
func (uc *TrackerUsecase) Refresh(userID int64) {
	uc.mu.Lock()
	defer uc.mu.Unlock()

	if req, ok := uc.pending[userID]; ok {
		req.CreatedAt = time.Now()
	}
}

// Drop removes a user's pending request.
func (uc *TrackerUsecase) Drop(userID int64) {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	delete(uc.pending, userID)
}
