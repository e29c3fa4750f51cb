package interfaces

import (
	"context"

	"github.com/Phonsadboy/ChatCenterAI-sub001/internal/entities"
)

// CompletionClient requests a completion from the external text-generation
// service. Implemented by infrastructure.OpenAIClient; tests substitute fakes.
type CompletionClient interface {
	Complete(ctx context.Context, system string, history []entities.Message) (string, error)
}

// Sender pushes an outbound message to a customer on one platform.
type Sender interface {
	SendMessage(ctx context.Context, to, content string) error
}

// Broadcaster fans conversation events out to dashboard audiences.
// Implementations are best-effort and at-most-once; publishing never blocks.
type Broadcaster interface {
	BroadcastNewMessage(conv *entities.Conversation, msg entities.Message)
	BroadcastStatus(conv *entities.Conversation)
	BroadcastAssignment(conv *entities.Conversation)
}
