package dispatch

import (
	"context"

	"github.com/rmacdonaldsmith/wsgateway/pkg/channel"
	"github.com/rmacdonaldsmith/wsgateway/pkg/message"
)

// Classifier turns a pipeline context into a SendRequest. Implementations are pure.
type Classifier interface {
	Classify(msgCtx *message.Context) SendRequest
}

// Serializer renders a structured message into the text of a wire frame.
type Serializer interface {
	Serialize(msg *message.Message) (string, error)
}

// Dispatcher applies the dispatch policy for one request originating on conn.
type Dispatcher interface {
	Dispatch(ctx context.Context, req SendRequest, conn channel.Channel)
}

// ResponseSender writes pipeline results back for one source connection.
type ResponseSender interface {
	// SendBack classifies msgCtx and dispatches it. A nil context is ignored.
	SendBack(ctx context.Context, msgCtx *message.Context)

	// Source returns the connection the sender is bound to
	Source() channel.Channel
}
