package chat

import (
	"context"
	"strconv"

	"github.com/oggyb/devmatch/internal/api"
	"github.com/oggyb/devmatch/internal/app"
	"github.com/oggyb/devmatch/internal/auth"
	svcErr "github.com/oggyb/devmatch/internal/errors"
	"github.com/oggyb/devmatch/internal/protocol"
	"github.com/oggyb/devmatch/internal/repository"
)

// Service implements the Chat gRPC API: history reads and message deletion.
// Unlike the realtime events, every authorization failure here is returned
// to the caller as a structured error.
type Service struct {
	appCtx   *app.AppContext
	matches  *repository.MatchRepository
	messages *repository.MessageRepository
}

// NewChatService creates a Chat service with dependencies from AppContext.
func NewChatService(appCtx *app.AppContext) *Service {
	return &Service{
		appCtx:   appCtx,
		matches:  repository.NewMatchRepository(appCtx.DB),
		messages: repository.NewMessageRepository(appCtx.DB),
	}
}

// ListMessages returns the full history of a match.
//
// Behavior:
//   - Caller must be authenticated and a participant of the match.
//   - Unknown match → NotFound, non-participant → PermissionDenied.
//   - Messages are ordered by created_at ASC, id ASC.
//
// Example:
//
//	svc.ListMessages(ctx, &api.ListMessagesRequest{MatchID: "7"})
func (s *Service) ListMessages(ctx context.Context, req *api.ListMessagesRequest) (*api.ListMessagesResponse, error) {
	userID, err := auth.RequireUserID(ctx)
	if err != nil {
		return nil, svcErr.Map(err)
	}
	matchID, err := strconv.ParseUint(req.MatchID, 10, 64)
	if err != nil {
		return nil, svcErr.InvalidArgument("matchId must be a valid uint64")
	}

	m, err := s.matches.FindByID(ctx, matchID)
	if err != nil {
		return nil, svcErr.Map(err)
	}
	if !m.Has(userID) {
		return nil, svcErr.Map(svcErr.PermissionDenied("not a participant of this match"))
	}

	msgs, err := s.messages.ListByMatch(ctx, matchID)
	if err != nil {
		s.appCtx.Logger.Error("ListByMatch failed", "match_id", matchID, "err", err)
		return nil, svcErr.Map(err)
	}

	resp := &api.ListMessagesResponse{Messages: make([]protocol.Message, 0, len(msgs))}
	for _, msg := range msgs {
		resp.Messages = append(resp.Messages, protocol.MessageFromModel(msg))
	}

	s.appCtx.Logger.Debug("ListMessages result", "match_id", matchID, "count", len(resp.Messages))
	return resp, nil
}

// DeleteMessage removes a message the caller sent and tells the room.
//
// Behavior:
//  1. Message must exist (NotFound "message not found").
//  2. Caller must be its sender (PermissionDenied).
//  3. The parent match must exist and the caller must still be a participant.
//  4. Deletes the row, then broadcasts message-deleted to the match room.
//
// Example:
//
//	svc.DeleteMessage(ctx, &api.DeleteMessageRequest{MessageID: "31"})
func (s *Service) DeleteMessage(ctx context.Context, req *api.DeleteMessageRequest) (*api.DeleteMessageResponse, error) {
	userID, err := auth.RequireUserID(ctx)
	if err != nil {
		return nil, svcErr.Map(err)
	}
	messageID, err := strconv.ParseUint(req.MessageID, 10, 64)
	if err != nil {
		return nil, svcErr.InvalidArgument("messageId must be a valid uint64")
	}

	msg, err := s.messages.FindByID(ctx, messageID)
	if err != nil {
		return nil, svcErr.Map(err)
	}
	if msg.SenderID != userID {
		return nil, svcErr.Map(svcErr.PermissionDenied("you can only delete your own messages"))
	}

	m, err := s.matches.FindByID(ctx, msg.MatchID)
	if err != nil {
		return nil, svcErr.Map(err)
	}
	if !m.Has(userID) {
		return nil, svcErr.Map(svcErr.PermissionDenied("not a participant of this match"))
	}

	if err := s.messages.Delete(ctx, messageID); err != nil {
		return nil, svcErr.Map(err)
	}

	payload := protocol.MessageDeleted{
		MessageID: protocol.FormatID(messageID),
		MatchID:   protocol.FormatID(m.ID),
	}
	s.appCtx.Realtime.NotifyMatch(m.ID, protocol.EventMessageDeleted, payload)
	s.appCtx.Logger.Info("message deleted", "message_id", messageID, "match_id", m.ID, "user_id", userID)

	return &api.DeleteMessageResponse{MessageID: payload.MessageID, MatchID: payload.MatchID}, nil
}
