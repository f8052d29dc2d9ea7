package mediation

import (
	"context"

	"github.com/rmacdonaldsmith/wsgateway/pkg/message"
)

// Echo sends every inbound context back as it arrived
type Echo struct{}

// Mediate implements Mediator
func (Echo) Mediate(_ context.Context, in *message.Context) ([]*message.Context, error) {
	if in == nil {
		return nil, nil
	}
	return []*message.Context{in}, nil
}

var _ Mediator = Echo{}
