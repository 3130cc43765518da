package events

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/kode4food/caravan"
	"github.com/kode4food/caravan/message"
	"github.com/kode4food/caravan/topic"

	"github.com/kode4food/twill/pkg/api"
)

// Hub fans lifecycle events out to any number of consumers. Publishing never
// blocks on a slow consumer; each consumer drains at its own pace
type Hub struct {
	topic     topic.Topic[*api.Event]
	prod      topic.Producer[*api.Event]
	closeOnce sync.Once
}

// NewHub creates an event hub backed by an in-process topic
func NewHub() *Hub {
	t := caravan.NewTopic[*api.Event]()
	return &Hub{
		topic: t,
		prod:  t.NewProducer(),
	}
}

// Publish stamps the envelope with an ID and timestamp if either is missing
// and delivers it to all registered consumers
func (h *Hub) Publish(ev *api.Event) {
	if ev.ID == "" {
		ev.ID = uuid.New().String()
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}
	message.Send(h.prod, ev)
}

// Emit constructs an envelope and publishes it in one call
func (h *Hub) Emit(
	typ api.EventType, runID api.RunID, stepID api.StepID, data any,
) {
	h.Publish(&api.Event{
		Type:   typ,
		RunID:  runID,
		StepID: stepID,
		Data:   data,
	})
}

// NewConsumer registers a consumer that receives every subsequent event.
// Callers must Close the consumer when done with it
func (h *Hub) NewConsumer() topic.Consumer[*api.Event] {
	return h.topic.NewConsumer()
}

// Close shuts down the hub's producer. Consumers drain whatever remains
func (h *Hub) Close() {
	h.closeOnce.Do(func() {
		h.prod.Close()
	})
}
