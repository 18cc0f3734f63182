package api

import (
	"context"
	"time"

	"google.golang.org/grpc"
)

const ConnectionServiceName = "devmatch.connection.v1.ConnectionService"

// Swipe directions.
const (
	DirectionRight = "right"
	DirectionLeft  = "left"
)

type SwipeRequest struct {
	TargetUserID string `json:"targetUserId"`
	Direction    string `json:"direction"`
}

// SwipeResponse reports what a swipe produced: a pending request, a match,
// or nothing (left swipe). Mutual is true when both sides have swiped right.
type SwipeResponse struct {
	Mutual    bool   `json:"mutual"`
	Matched   bool   `json:"matched"`
	MatchID   string `json:"matchId,omitempty"`
	RequestID string `json:"requestId,omitempty"`
}

type RespondToRequestRequest struct {
	RequestID string `json:"requestId"`
	Status    string `json:"status"`
}

type RespondToRequestResponse struct {
	RequestID string `json:"requestId"`
	Status    string `json:"status"`
	MatchID   string `json:"matchId,omitempty"`
}

type ListReceivedRequestsRequest struct {
	PaginationToken *string `json:"paginationToken,omitempty"`
}

type ReceivedRequest struct {
	RequestID  string    `json:"requestId"`
	SenderID   string    `json:"senderId"`
	SenderName string    `json:"senderName"`
	Avatar     string    `json:"avatar,omitempty"`
	Skills     []string  `json:"skills"`
	CreatedAt  time.Time `json:"createdAt"`
}

type ListReceivedRequestsResponse struct {
	Requests            []ReceivedRequest `json:"requests"`
	NextPaginationToken *string           `json:"nextPaginationToken,omitempty"`
}

type ListSentRequestsRequest struct {
	PaginationToken *string `json:"paginationToken,omitempty"`
}

// SentRequest is a PENDING request the caller is waiting on, with the receiver's profile.
type SentRequest struct {
	RequestID    string    `json:"requestId"`
	ReceiverID   string    `json:"receiverId"`
	ReceiverName string    `json:"receiverName"`
	Avatar       string    `json:"avatar,omitempty"`
	Skills       []string  `json:"skills"`
	CreatedAt    time.Time `json:"createdAt"`
}

type ListSentRequestsResponse struct {
	Requests            []SentRequest `json:"requests"`
	NextPaginationToken *string       `json:"nextPaginationToken,omitempty"`
}

type CountPendingRequestsRequest struct{}

type CountPendingRequestsResponse struct {
	Count uint64 `json:"count"`
}

type ListMatchesRequest struct{}

// MatchSummary is one match as seen by the caller.
type MatchSummary struct {
	MatchID              string    `json:"matchId"`
	UserID               string    `json:"userId"`
	Name                 string    `json:"name"`
	Avatar               string    `json:"avatar,omitempty"`
	Online               bool      `json:"online"`
	CompatibilityScore   *int      `json:"compatibilityScore,omitempty"`
	CompatibilitySummary *string   `json:"compatibilitySummary,omitempty"`
	CreatedAt            time.Time `json:"createdAt"`
}

type ListMatchesResponse struct {
	Matches []MatchSummary `json:"matches"`
}

// ConnectionServiceServer serves swipes, connection requests and matches.
type ConnectionServiceServer interface {
	Swipe(context.Context, *SwipeRequest) (*SwipeResponse, error)
	RespondToRequest(context.Context, *RespondToRequestRequest) (*RespondToRequestResponse, error)
	ListReceivedRequests(context.Context, *ListReceivedRequestsRequest) (*ListReceivedRequestsResponse, error)
	ListSentRequests(context.Context, *ListSentRequestsRequest) (*ListSentRequestsResponse, error)
	CountPendingRequests(context.Context, *CountPendingRequestsRequest) (*CountPendingRequestsResponse, error)
	ListMatches(context.Context, *ListMatchesRequest) (*ListMatchesResponse, error)
}

var ConnectionServiceDesc = grpc.ServiceDesc{
	ServiceName: ConnectionServiceName,
	HandlerType: (*ConnectionServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unary(ConnectionServiceName, "Swipe", ConnectionServiceServer.Swipe),
		unary(ConnectionServiceName, "RespondToRequest", ConnectionServiceServer.RespondToRequest),
		unary(ConnectionServiceName, "ListReceivedRequests", ConnectionServiceServer.ListReceivedRequests),
		unary(ConnectionServiceName, "ListSentRequests", ConnectionServiceServer.ListSentRequests),
		unary(ConnectionServiceName, "CountPendingRequests", ConnectionServiceServer.CountPendingRequests),
		unary(ConnectionServiceName, "ListMatches", ConnectionServiceServer.ListMatches),
	},
	Metadata: "devmatch/connection",
}

func RegisterConnectionServiceServer(s grpc.ServiceRegistrar, srv ConnectionServiceServer) {
	s.RegisterService(&ConnectionServiceDesc, srv)
}

type ConnectionClient struct {
	cc grpc.ClientConnInterface
}

func NewConnectionClient(cc grpc.ClientConnInterface) *ConnectionClient {
	return &ConnectionClient{cc: cc}
}

func (c *ConnectionClient) method(name string) string { return "/" + ConnectionServiceName + "/" + name }

func (c *ConnectionClient) Swipe(ctx context.Context, in *SwipeRequest, opts ...grpc.CallOption) (*SwipeResponse, error) {
	return invoke[SwipeResponse](ctx, c.cc, c.method("Swipe"), in, opts)
}

func (c *ConnectionClient) RespondToRequest(ctx context.Context, in *RespondToRequestRequest, opts ...grpc.CallOption) (*RespondToRequestResponse, error) {
	return invoke[RespondToRequestResponse](ctx, c.cc, c.method("RespondToRequest"), in, opts)
}

func (c *ConnectionClient) ListReceivedRequests(ctx context.Context, in *ListReceivedRequestsRequest, opts ...grpc.CallOption) (*ListReceivedRequestsResponse, error) {
	return invoke[ListReceivedRequestsResponse](ctx, c.cc, c.method("ListReceivedRequests"), in, opts)
}

func (c *ConnectionClient) ListSentRequests(ctx context.Context, in *ListSentRequestsRequest, opts ...grpc.CallOption) (*ListSentRequestsResponse, error) {
	return invoke[ListSentRequestsResponse](ctx, c.cc, c.method("ListSentRequests"), in, opts)
}

func (c *ConnectionClient) CountPendingRequests(ctx context.Context, in *CountPendingRequestsRequest, opts ...grpc.CallOption) (*CountPendingRequestsResponse, error) {
	return invoke[CountPendingRequestsResponse](ctx, c.cc, c.method("CountPendingRequests"), in, opts)
}

func (c *ConnectionClient) ListMatches(ctx context.Context, in *ListMatchesRequest, opts ...grpc.CallOption) (*ListMatchesResponse, error) {
	return invoke[ListMatchesResponse](ctx, c.cc, c.method("ListMatches"), in, opts)
}
