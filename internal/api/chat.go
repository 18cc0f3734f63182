package api

import (
	"context"

	"google.golang.org/grpc"

	"github.com/oggyb/devmatch/internal/protocol"
)

const ChatServiceName = "devmatch.chat.v1.ChatService"

type ListMessagesRequest struct {
	MatchID string `json:"matchId"`
}

type ListMessagesResponse struct {
	Messages []protocol.Message `json:"messages"`
}

type DeleteMessageRequest struct {
	MessageID string `json:"messageId"`
}

type DeleteMessageResponse struct {
	MessageID string `json:"messageId"`
	MatchID   string `json:"matchId"`
}

// ChatServiceServer serves message history and deletion.
type ChatServiceServer interface {
	ListMessages(context.Context, *ListMessagesRequest) (*ListMessagesResponse, error)
	DeleteMessage(context.Context, *DeleteMessageRequest) (*DeleteMessageResponse, error)
}

var ChatServiceDesc = grpc.ServiceDesc{
	ServiceName: ChatServiceName,
	HandlerType: (*ChatServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unary(ChatServiceName, "ListMessages", ChatServiceServer.ListMessages),
		unary(ChatServiceName, "DeleteMessage", ChatServiceServer.DeleteMessage),
	},
	Metadata: "devmatch/chat",
}

func RegisterChatServiceServer(s grpc.ServiceRegistrar, srv ChatServiceServer) {
	s.RegisterService(&ChatServiceDesc, srv)
}

type ChatClient struct {
	cc grpc.ClientConnInterface
}

func NewChatClient(cc grpc.ClientConnInterface) *ChatClient { return &ChatClient{cc: cc} }

func (c *ChatClient) ListMessages(ctx context.Context, in *ListMessagesRequest, opts ...grpc.CallOption) (*ListMessagesResponse, error) {
	return invoke[ListMessagesResponse](ctx, c.cc, "/"+ChatServiceName+"/ListMessages", in, opts)
}

func (c *ChatClient) DeleteMessage(ctx context.Context, in *DeleteMessageRequest, opts ...grpc.CallOption) (*DeleteMessageResponse, error) {
	return invoke[DeleteMessageResponse](ctx, c.cc, "/"+ChatServiceName+"/DeleteMessage", in, opts)
}
