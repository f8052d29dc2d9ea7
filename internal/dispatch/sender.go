package dispatch

import (
	"context"

	"github.com/rmacdonaldsmith/wsgateway/pkg/channel"
	"github.com/rmacdonaldsmith/wsgateway/pkg/dispatch"
	"github.com/rmacdonaldsmith/wsgateway/pkg/message"
)

// ResponseSender binds a dispatcher to the source connection of an inbound session
type ResponseSender struct {
	dispatcher dispatch.Dispatcher
	classifier dispatch.Classifier
	source     channel.Channel
}

// NewResponseSender creates a sender writing back through d for source
func NewResponseSender(d dispatch.Dispatcher, source channel.Channel) *ResponseSender {
	return &ResponseSender{
		dispatcher: d,
		classifier: FrameClassifier{},
		source:     source,
	}
}

// SendBack classifies msgCtx and dispatches it from the source connection
func (s *ResponseSender) SendBack(ctx context.Context, msgCtx *message.Context) {
	if msgCtx == nil {
		return
	}
	s.dispatcher.Dispatch(ctx, s.classifier.Classify(msgCtx), s.source)
}

// Source returns the bound connection
func (s *ResponseSender) Source() channel.Channel {
	return s.source
}

var _ dispatch.ResponseSender = (*ResponseSender)(nil)
