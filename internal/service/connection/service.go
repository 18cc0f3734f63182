package connection

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/oggyb/devmatch/internal/api"
	"github.com/oggyb/devmatch/internal/app"
	"github.com/oggyb/devmatch/internal/auth"
	"github.com/oggyb/devmatch/internal/compat"
	"github.com/oggyb/devmatch/internal/db"
	svcErr "github.com/oggyb/devmatch/internal/errors"
	"github.com/oggyb/devmatch/internal/protocol"
	"github.com/oggyb/devmatch/internal/repository"
)

// PageSize bounds ListReceivedRequests and ListSentRequests.
const PageSize = 20

// Default swipe limit per user.
const (
	DefaultSwipeLimit  = 20
	DefaultSwipeWindow = time.Minute
)

// Service implements the Connection gRPC API.
// It owns the swipe → request → match workflow and its realtime side effects.
type Service struct {
	appCtx    *app.AppContext
	users     *repository.UserRepository
	decisions *repository.DecisionRepository
	requests  *repository.RequestRepository
	matches   *repository.MatchRepository

	swipeLimit  int
	swipeWindow time.Duration
}

// Option customizes a Service.
type Option func(*Service)

// WithSwipeLimit allows limit swipes per user per window. A limit <= 0
// disables the check.
func WithSwipeLimit(limit int, window time.Duration) Option {
	return func(s *Service) {
		s.swipeLimit = limit
		s.swipeWindow = window
	}
}

// NewConnectionService creates a Connection service with dependencies from AppContext.
// Dependencies include:
//   - DB connection (users, decisions, requests, matches repositories)
//   - RedisCache for the pending-request counter
//   - Realtime gateway for pushes and presence
//   - Compat scheduler for post-match scoring
func NewConnectionService(appCtx *app.AppContext, opts ...Option) *Service {
	s := &Service{
		appCtx:      appCtx,
		users:       repository.NewUserRepository(appCtx.DB),
		decisions:   repository.NewDecisionRepository(appCtx.DB),
		requests:    repository.NewRequestRepository(appCtx.DB),
		matches:     repository.NewMatchRepository(appCtx.DB),
		swipeLimit:  DefaultSwipeLimit,
		swipeWindow: DefaultSwipeWindow,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Swipe records the caller's decision on a target.
//
// Behavior:
//   - More than swipeLimit swipes per window → ResourceExhausted.
//   - Self swipe → InvalidArgument; unknown target → NotFound; already
//     matched → AlreadyExists.
//   - Right swipe with a PENDING request from the target → that request is
//     accepted and the match created.
//   - Right swipe otherwise → a PENDING request is created and the target
//     gets new-connection-request.
//   - Left swipe → decision only; a PENDING request from the target is rejected.
//   - Request resolution runs under a lock on both users, so simultaneous
//     right swipes from each side end in exactly one match.
//
// Example:
//
//	svc.Swipe(ctx, &api.SwipeRequest{TargetUserID: "2", Direction: "right"})
func (s *Service) Swipe(ctx context.Context, req *api.SwipeRequest) (*api.SwipeResponse, error) {
	userID, err := auth.RequireUserID(ctx)
	if err != nil {
		return nil, svcErr.Map(err)
	}
	if err := s.allowSwipe(ctx, userID); err != nil {
		return nil, svcErr.Map(err)
	}
	targetID, err := strconv.ParseUint(req.TargetUserID, 10, 64)
	if err != nil {
		return nil, svcErr.InvalidArgument("targetUserId must be a valid uint64")
	}
	var liked bool
	switch strings.ToLower(req.Direction) {
	case api.DirectionRight:
		liked = true
	case api.DirectionLeft:
	default:
		return nil, svcErr.InvalidArgument("direction must be right or left")
	}
	if targetID == userID {
		return nil, svcErr.InvalidArgument("cannot swipe on yourself")
	}

	s.appCtx.Logger.Debug("Swipe called", "actor", userID, "target", targetID, "liked", liked)

	if _, err := s.users.FindByID(ctx, targetID); err != nil {
		return nil, svcErr.Map(err)
	}
	if _, err := s.matches.FindByPair(ctx, userID, targetID); err == nil {
		return nil, svcErr.AlreadyExists("users are already matched")
	} else if !svcErr.IsKind(err, svcErr.KindNotFound) {
		return nil, svcErr.Map(err)
	}

	mutual, err := s.decisions.Record(ctx, userID, targetID, liked)
	if err != nil {
		return nil, svcErr.Map(err)
	}

	if !liked {
		declined, err := s.requests.Decline(ctx, targetID, userID)
		if err != nil {
			return nil, svcErr.Map(err)
		}
		if declined != nil {
			s.rejected(ctx, declined)
		}
		return &api.SwipeResponse{}, nil
	}

	cr, m, err := s.requests.Open(ctx, userID, targetID)
	if err != nil {
		return nil, svcErr.Map(err)
	}

	// mutual interest: the target asked first
	if m != nil {
		s.accepted(ctx, cr, m)
		return &api.SwipeResponse{
			Mutual:    mutual,
			Matched:   true,
			MatchID:   protocol.FormatID(m.ID),
			RequestID: protocol.FormatID(cr.ID),
		}, nil
	}

	s.invalidatePending(ctx, targetID)
	s.appCtx.Realtime.NotifyUser(targetID, protocol.EventNewConnectionRequest, protocol.ConnectionRequest{
		RequestID: protocol.FormatID(cr.ID),
		SenderID:  protocol.FormatID(userID),
		Status:    string(cr.Status),
	})

	return &api.SwipeResponse{Mutual: mutual, RequestID: protocol.FormatID(cr.ID)}, nil
}

// allowSwipe applies the per-user swipe window. A cache failure lets the
// swipe through.
func (s *Service) allowSwipe(ctx context.Context, userID uint64) error {
	if s.swipeLimit <= 0 || s.appCtx.RedisCache == nil {
		return nil
	}
	ok, err := s.appCtx.RedisCache.AllowSwipe(ctx, userID, s.swipeLimit, s.swipeWindow)
	if err != nil {
		s.appCtx.Logger.Warn("swipe limiter unavailable", "user_id", userID, "err", err)
		return nil
	}
	if !ok {
		s.appCtx.Logger.Debug("swipe rate limited", "user_id", userID)
		return svcErr.RateLimited("too many swipes, try again later")
	}
	return nil
}

// RespondToRequest accepts or rejects a request addressed to the caller.
//
// Behavior:
//   - Unknown request → NotFound; caller not the receiver → PermissionDenied.
//   - Already ACCEPTED/REJECTED → AlreadyExists ("connection request already processed").
//   - ACCEPTED: the match is created, the sender gets connection-accepted and
//     scoring is queued. The call does not wait for the score.
//   - REJECTED: the sender gets connection-rejected.
//
// Example:
//
//	svc.RespondToRequest(ctx, &api.RespondToRequestRequest{RequestID: "5", Status: "ACCEPTED"})
func (s *Service) RespondToRequest(ctx context.Context, req *api.RespondToRequestRequest) (*api.RespondToRequestResponse, error) {
	userID, err := auth.RequireUserID(ctx)
	if err != nil {
		return nil, svcErr.Map(err)
	}
	requestID, err := strconv.ParseUint(req.RequestID, 10, 64)
	if err != nil {
		return nil, svcErr.InvalidArgument("requestId must be a valid uint64")
	}
	status := db.RequestStatus(strings.ToUpper(req.Status))
	if !status.Terminal() {
		return nil, svcErr.InvalidArgument("status must be ACCEPTED or REJECTED")
	}

	cr, err := s.requests.FindByID(ctx, requestID)
	if err != nil {
		return nil, svcErr.Map(err)
	}
	if cr.ReceiverID != userID {
		return nil, svcErr.Map(svcErr.PermissionDenied("only the receiver can respond to this request"))
	}
	if cr.Status.Terminal() {
		return nil, svcErr.Map(svcErr.Conflict("connection request already processed"))
	}

	resp := &api.RespondToRequestResponse{RequestID: req.RequestID, Status: string(status)}
	if status == db.RequestRejected {
		if err := s.reject(ctx, cr); err != nil {
			return nil, svcErr.Map(err)
		}
		return resp, nil
	}

	m, err := s.accept(ctx, cr)
	if err != nil {
		return nil, svcErr.Map(err)
	}
	resp.MatchID = protocol.FormatID(m.ID)
	return resp, nil
}

// accept creates the match, tells the requester and queues scoring.
func (s *Service) accept(ctx context.Context, cr *db.ConnectionRequest) (*db.Match, error) {
	m, err := s.requests.Accept(ctx, cr.ID)
	if err != nil {
		return nil, err
	}
	s.accepted(ctx, cr, m)
	return m, nil
}

// accepted runs the side effects of an accepted request: the receiver's
// counter, the sender's push and the scoring job.
func (s *Service) accepted(ctx context.Context, cr *db.ConnectionRequest, m *db.Match) {
	s.invalidatePending(ctx, cr.ReceiverID)
	s.appCtx.Realtime.NotifyUser(cr.SenderID, protocol.EventConnectionAccepted, protocol.ConnectionAccepted{
		MatchID:   protocol.FormatID(m.ID),
		RequestID: protocol.FormatID(cr.ID),
		UserID:    protocol.FormatID(cr.ReceiverID),
	})
	if s.appCtx.Compat != nil && !s.appCtx.Compat.Submit(compat.Job{MatchID: m.ID, UserA: m.UserA, UserB: m.UserB}) {
		s.appCtx.Logger.Warn("compatibility scoring not queued", "match_id", m.ID)
	}
	s.appCtx.Logger.Info("connection accepted", "request_id", cr.ID, "match_id", m.ID)
}

func (s *Service) reject(ctx context.Context, cr *db.ConnectionRequest) error {
	if err := s.requests.UpdateStatus(ctx, cr.ID, db.RequestRejected); err != nil {
		return err
	}
	s.rejected(ctx, cr)
	return nil
}

func (s *Service) rejected(ctx context.Context, cr *db.ConnectionRequest) {
	s.invalidatePending(ctx, cr.ReceiverID)
	s.appCtx.Realtime.NotifyUser(cr.SenderID, protocol.EventConnectionRejected, protocol.ConnectionRejected{
		RequestID: protocol.FormatID(cr.ID),
		UserID:    protocol.FormatID(cr.ReceiverID),
	})
}

// invalidatePending drops the cached counter; the next read goes to the DB.
func (s *Service) invalidatePending(ctx context.Context, userID uint64) {
	if err := s.appCtx.RedisCache.InvalidatePendingCount(ctx, userID); err != nil {
		s.appCtx.Logger.Warn("pending count invalidation failed", "user_id", userID, "err", err)
	}
}

// ListReceivedRequests returns PENDING requests addressed to the caller, newest first.
//
// Behavior:
//   - Cursor-based pagination with paginationToken, PageSize per page.
//   - Each entry carries the sender's public profile.
//
// Example:
//
//	svc.ListReceivedRequests(ctx, &api.ListReceivedRequestsRequest{})
func (s *Service) ListReceivedRequests(ctx context.Context, req *api.ListReceivedRequestsRequest) (*api.ListReceivedRequestsResponse, error) {
	userID, err := auth.RequireUserID(ctx)
	if err != nil {
		return nil, svcErr.Map(err)
	}

	reqs, nextToken, err := s.requests.ListReceived(ctx, userID, req.PaginationToken, PageSize)
	if err != nil {
		s.appCtx.Logger.Error("ListReceived failed", "err", err)
		return nil, svcErr.Map(err)
	}

	senderIDs := make([]uint64, 0, len(reqs))
	for _, r := range reqs {
		senderIDs = append(senderIDs, r.SenderID)
	}
	senders, err := s.users.FindByIDs(ctx, senderIDs)
	if err != nil {
		return nil, svcErr.Map(err)
	}

	resp := &api.ListReceivedRequestsResponse{Requests: make([]api.ReceivedRequest, 0, len(reqs))}
	for _, r := range reqs {
		sender := senders[r.SenderID]
		resp.Requests = append(resp.Requests, api.ReceivedRequest{
			RequestID:  protocol.FormatID(r.ID),
			SenderID:   protocol.FormatID(r.SenderID),
			SenderName: sender.Name,
			Avatar:     sender.Avatar,
			Skills:     sender.Skills,
			CreatedAt:  r.CreatedAt.UTC(),
		})
	}
	resp.NextPaginationToken = nextToken

	s.appCtx.Logger.Debug("ListReceivedRequests result", "count", len(resp.Requests), "next_token", nextToken != nil)
	return resp, nil
}

// ListSentRequests returns PENDING requests the caller sent, newest first,
// each with the receiver's public profile.
func (s *Service) ListSentRequests(ctx context.Context, req *api.ListSentRequestsRequest) (*api.ListSentRequestsResponse, error) {
	userID, err := auth.RequireUserID(ctx)
	if err != nil {
		return nil, svcErr.Map(err)
	}
	reqs, nextToken, err := s.requests.ListSent(ctx, userID, req.PaginationToken, PageSize)
	if err != nil {
		return nil, svcErr.Map(err)
	}

	receiverIDs := make([]uint64, 0, len(reqs))
	for _, r := range reqs {
		receiverIDs = append(receiverIDs, r.ReceiverID)
	}
	receivers, err := s.users.FindByIDs(ctx, receiverIDs)
	if err != nil {
		return nil, svcErr.Map(err)
	}

	resp := &api.ListSentRequestsResponse{Requests: make([]api.SentRequest, 0, len(reqs)), NextPaginationToken: nextToken}
	for _, r := range reqs {
		receiver := receivers[r.ReceiverID]
		resp.Requests = append(resp.Requests, api.SentRequest{
			RequestID:    protocol.FormatID(r.ID),
			ReceiverID:   protocol.FormatID(r.ReceiverID),
			ReceiverName: receiver.Name,
			Avatar:       receiver.Avatar,
			Skills:       receiver.Skills,
			CreatedAt:    r.CreatedAt.UTC(),
		})
	}
	return resp, nil
}

// CountPendingRequests returns how many PENDING requests the caller has.
// Cache-first strategy:
//  1. Attempts to read from Redis (requests:pending:userID), refreshing the TTL on a hit.
//  2. On a miss or a cache error, falls back to DB via repository.CountPending.
//  3. On DB fetch, stores the value with a 1h TTL unless an invalidation
//     happened while the DB was being read.
//
// Example:
//
//	svc.CountPendingRequests(ctx, &api.CountPendingRequestsRequest{})
func (s *Service) CountPendingRequests(ctx context.Context, _ *api.CountPendingRequestsRequest) (*api.CountPendingRequestsResponse, error) {
	userID, err := auth.RequireUserID(ctx)
	if err != nil {
		return nil, svcErr.Map(err)
	}

	if n, hit, err := s.appCtx.RedisCache.GetPendingCount(ctx, userID); err == nil && hit {
		return &api.CountPendingRequestsResponse{Count: uint64(n)}, nil
	} else if err != nil {
		s.appCtx.Logger.Warn("pending count cache read failed", "user_id", userID, "err", err)
	}

	// taken before the DB read so an invalidation during it wins
	epoch, epochErr := s.appCtx.RedisCache.PendingEpoch(ctx, userID)
	count, err := s.requests.CountPending(ctx, userID)
	if err != nil {
		return nil, svcErr.Map(err)
	}
	if epochErr != nil {
		s.appCtx.Logger.Warn("pending count epoch read failed", "user_id", userID, "err", epochErr)
	} else if _, err := s.appCtx.RedisCache.SetPendingCount(ctx, userID, count, epoch); err != nil {
		s.appCtx.Logger.Warn("pending count cache write failed", "user_id", userID, "err", err)
	}

	return &api.CountPendingRequestsResponse{Count: uint64(count)}, nil
}

// ListMatches returns the caller's matches, newest first, with the peer's
// profile, live presence and compatibility result (if scored yet).
//
// Example:
//
//	svc.ListMatches(ctx, &api.ListMatchesRequest{})
func (s *Service) ListMatches(ctx context.Context, _ *api.ListMatchesRequest) (*api.ListMatchesResponse, error) {
	userID, err := auth.RequireUserID(ctx)
	if err != nil {
		return nil, svcErr.Map(err)
	}

	matches, err := s.matches.ListForUser(ctx, userID)
	if err != nil {
		return nil, svcErr.Map(err)
	}

	peerIDs := make([]uint64, 0, len(matches))
	for _, m := range matches {
		peerIDs = append(peerIDs, m.Other(userID))
	}
	peers, err := s.users.FindByIDs(ctx, peerIDs)
	if err != nil {
		return nil, svcErr.Map(err)
	}

	resp := &api.ListMatchesResponse{Matches: make([]api.MatchSummary, 0, len(matches))}
	for _, m := range matches {
		peerID := m.Other(userID)
		peer := peers[peerID]
		resp.Matches = append(resp.Matches, api.MatchSummary{
			MatchID:              protocol.FormatID(m.ID),
			UserID:               protocol.FormatID(peerID),
			Name:                 peer.Name,
			Avatar:               peer.Avatar,
			Online:               s.appCtx.Realtime.IsOnline(peerID),
			CompatibilityScore:   m.CompatibilityScore,
			CompatibilitySummary: m.CompatibilitySummary,
			CreatedAt:            m.CreatedAt.UTC(),
		})
	}
	return resp, nil
}
