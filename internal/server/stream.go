package server

import (
	"context"
	"encoding/json"

	"github.com/alfredjeanlab/eventboard/internal/events"
)

// openStream subscribes client to topics and, when snapshot is set,
// returns the current event list as a first message. The subscription is
// taken before the list is read so no change can fall between the two.
// The caller must unsubscribe the returned subscription.
func (s *EventServer) openStream(ctx context.Context, client string, topics []string, snapshot bool) (*events.Subscription, *events.Message, error) {
	sub := s.bus.SubscribeAs(client, topics...)
	if !snapshot {
		return sub, nil, nil
	}

	views, err := s.svc.List(ctx)
	if err != nil {
		s.bus.Unsubscribe(sub)
		return nil, nil, err
	}
	data, err := json.Marshal(views)
	if err != nil {
		s.bus.Unsubscribe(sub)
		return nil, nil, err
	}
	return sub, &events.Message{Topic: events.TopicEventsSnapshot, Data: data}, nil
}
