package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/oggyb/devmatch/internal/db"
	svcErr "github.com/oggyb/devmatch/internal/errors"
	"github.com/oggyb/devmatch/internal/utils/pagination"
)

// RequestRepository owns ConnectionRequest rows and their state transitions.
type RequestRepository struct {
	db *gorm.DB
}

func NewRequestRepository(database *gorm.DB) *RequestRepository {
	return &RequestRepository{db: database}
}

// Open records interest sender -> receiver and settles it against the
// reverse direction. It returns the request it touched and, when that
// completed the pair, the new match.
//
// Behavior:
//   - sender == receiver → Invalid.
//   - Both user rows are locked for the whole transaction, so concurrent
//     swipes between the same two users run one at a time, whichever way
//     they point.
//   - The pair is already matched → Conflict.
//   - A PENDING receiver -> sender request exists → it is ACCEPTED and the
//     match is created in the same transaction.
//   - A PENDING sender -> receiver request exists → Conflict.
//   - Otherwise a PENDING request is inserted and the match is nil. The
//     pending_key unique index turns a racing duplicate into Conflict too.
//
// Example:
//
//	req, m, err := repo.Open(ctx, 1, 2) // m != nil when user 2 had asked first
func (r *RequestRepository) Open(ctx context.Context, senderID, receiverID uint64) (*db.ConnectionRequest, *db.Match, error) {
	if senderID == receiverID {
		return nil, nil, svcErr.Invalid("cannot send a connection request to yourself")
	}

	var (
		req *db.ConnectionRequest
		m   *db.Match
	)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockPair(tx, senderID, receiverID); err != nil {
			return err
		}
		matched, err := pairMatched(tx, senderID, receiverID)
		if err != nil {
			return err
		}
		if matched {
			return svcErr.Conflict("users are already matched")
		}

		incoming, err := findPending(tx, receiverID, senderID)
		if err != nil {
			return err
		}
		if incoming != nil {
			if err := transition(tx, incoming.ID, db.RequestAccepted); err != nil {
				return err
			}
			incoming.Status = db.RequestAccepted
			incoming.PendingKey = nil
			req = incoming
			m, err = createMatch(tx, senderID, receiverID)
			return err
		}

		outgoing, err := findPending(tx, senderID, receiverID)
		if err != nil {
			return err
		}
		if outgoing != nil {
			return svcErr.Conflict("connection request already pending")
		}
		created := db.ConnectionRequest{SenderID: senderID, ReceiverID: receiverID, Status: db.RequestPending}
		if err := tx.Create(&created).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return svcErr.Conflict("connection request already pending")
			}
			return err
		}
		req = &created
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return req, m, nil
}

// Decline rejects the PENDING request sender -> receiver under the same pair
// lock as Open. Returns nil when there is nothing to reject.
func (r *RequestRepository) Decline(ctx context.Context, senderID, receiverID uint64) (*db.ConnectionRequest, error) {
	var req *db.ConnectionRequest
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockPair(tx, senderID, receiverID); err != nil {
			return err
		}
		pending, err := findPending(tx, senderID, receiverID)
		if err != nil || pending == nil {
			return err
		}
		if err := transition(tx, pending.ID, db.RequestRejected); err != nil {
			return err
		}
		pending.Status = db.RequestRejected
		pending.PendingKey = nil
		req = pending
		return nil
	})
	return req, err
}

// lockPair takes row locks on both users in ascending id order. SQLite has
// no row locks and drops the clause; its writers are serialized anyway.
func lockPair(tx *gorm.DB, a, b uint64) error {
	low, high := db.OrderedPair(a, b)
	var ids []uint64
	return tx.Model(&db.User{}).
		Clauses(clause.Locking{Strength: clause.LockingStrengthUpdate}).
		Where("id IN ?", []uint64{low, high}).
		Order("id").
		Pluck("id", &ids).Error
}

func pairMatched(tx *gorm.DB, a, b uint64) (bool, error) {
	low, high := db.OrderedPair(a, b)
	var n int64
	err := tx.Model(&db.Match{}).Where("user_a = ? AND user_b = ?", low, high).Count(&n).Error
	return n > 0, err
}

func findPending(tx *gorm.DB, senderID, receiverID uint64) (*db.ConnectionRequest, error) {
	var req db.ConnectionRequest
	err := tx.Where("sender_id = ? AND receiver_id = ? AND status = ?", senderID, receiverID, db.RequestPending).
		First(&req).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &req, nil
}

// FindByID loads a request or returns a NotFound domain error.
func (r *RequestRepository) FindByID(ctx context.Context, id uint64) (*db.ConnectionRequest, error) {
	var req db.ConnectionRequest
	err := r.db.WithContext(ctx).First(&req, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, svcErr.NotFound("connection request not found")
	}
	if err != nil {
		return nil, err
	}
	return &req, nil
}

// UpdateStatus moves a PENDING request into a terminal state.
//
// Behavior:
//   - The update is conditional on status = PENDING; a request already in a
//     terminal state is never mutated again → Conflict.
//   - Unknown request → NotFound.
func (r *RequestRepository) UpdateStatus(ctx context.Context, id uint64, status db.RequestStatus) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return transition(tx, id, status)
	})
}

// Accept marks the request ACCEPTED and creates the match for its two users
// in the same transaction, holding the pair lock Open uses.
func (r *RequestRepository) Accept(ctx context.Context, id uint64) (*db.Match, error) {
	var m *db.Match
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var req db.ConnectionRequest
		if err := tx.First(&req, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return svcErr.NotFound("connection request not found")
			}
			return err
		}
		if err := lockPair(tx, req.SenderID, req.ReceiverID); err != nil {
			return err
		}
		if err := transition(tx, id, db.RequestAccepted); err != nil {
			return err
		}
		var err error
		m, err = createMatch(tx, req.SenderID, req.ReceiverID)
		return err
	})
	return m, err
}

// transition clears pending_key together with the status change so the pair
// may open a new request later.
func transition(tx *gorm.DB, id uint64, status db.RequestStatus) error {
	if !status.Terminal() {
		return svcErr.Invalid("status must be ACCEPTED or REJECTED")
	}
	res := tx.Model(&db.ConnectionRequest{}).
		Where("id = ? AND status = ?", id, db.RequestPending).
		Updates(map[string]any{"status": status, "pending_key": nil})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected > 0 {
		return nil
	}

	var count int64
	if err := tx.Model(&db.ConnectionRequest{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return svcErr.NotFound("connection request not found")
	}
	return svcErr.Conflict("connection request already processed")
}

// ListReceived returns PENDING requests addressed to receiverID.
//
// Behavior:
//   - Ordered by created_at DESC, id DESC.
//   - Supports cursor-based pagination via paginationToken.
//
// Example:
//
//	repo.ListReceived(ctx, 42, nil, 20) // first 20 pending requests for user 42
func (r *RequestRepository) ListReceived(
	ctx context.Context,
	receiverID uint64,
	paginationToken *string,
	limit int,
) ([]db.ConnectionRequest, *string, error) {
	return r.listPending(ctx, "receiver_id", receiverID, paginationToken, limit)
}

// ListSent returns PENDING requests senderID is still waiting on, with the
// same order and pagination as ListReceived.
func (r *RequestRepository) ListSent(
	ctx context.Context,
	senderID uint64,
	paginationToken *string,
	limit int,
) ([]db.ConnectionRequest, *string, error) {
	return r.listPending(ctx, "sender_id", senderID, paginationToken, limit)
}

func (r *RequestRepository) listPending(
	ctx context.Context,
	column string,
	userID uint64,
	paginationToken *string,
	limit int,
) ([]db.ConnectionRequest, *string, error) {
	var reqs []db.ConnectionRequest

	cursor, err := pagination.Parse(paginationToken)
	if err != nil {
		return nil, nil, err
	}

	query := r.db.WithContext(ctx).
		Model(&db.ConnectionRequest{}).
		Where(column+" = ? AND status = ?", userID, db.RequestPending).
		Order("created_at DESC, id DESC").
		Limit(limit + 1)

	// resume strictly after the last row of the previous page
	if !cursor.IsZero() {
		ts := cursor.CreatedAt()
		query = query.Where(
			"(created_at < ? OR (created_at = ? AND id < ?))",
			ts, ts, cursor.ID,
		)
	}

	if err := query.Find(&reqs).Error; err != nil {
		return nil, nil, err
	}

	// one extra row fetched means there is another page
	var nextToken *string
	if len(reqs) > limit {
		last := reqs[limit-1]
		token := pagination.After(last.ID, last.CreatedAt).Token()
		nextToken = &token
		reqs = reqs[:limit]
	}

	return reqs, nextToken, nil
}

// CountPending returns how many PENDING requests receiverID has.
// Used in conjunction with Redis cache (DB is fallback).
func (r *RequestRepository) CountPending(ctx context.Context, receiverID uint64) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&db.ConnectionRequest{}).
		Where("receiver_id = ? AND status = ?", receiverID, db.RequestPending).
		Count(&count).Error
	return count, err
}
