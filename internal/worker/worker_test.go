package worker

import (
	"context"
	"testing"

	"shop-service/internal/broker"
	"shop-service/internal/models"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	messages []kafka.Message
	errs     []error
	closed   bool
}

func (f *fakeSource) StartConsuming(ctx context.Context, handler broker.MessageHandler) error {
	for _, msg := range f.messages {
		f.errs = append(f.errs, handler(ctx, msg))
	}
	return nil
}

func (f *fakeSource) Close() error {
	f.closed = true
	return nil
}

type recordingLifecycle struct {
	events []*models.OrderStatusEvent
}

func (r *recordingLifecycle) HandleOrderStatus(ctx context.Context, event *models.OrderStatusEvent) error {
	r.events = append(r.events, event)
	return nil
}

func TestOrderStatusWorker_DispatchesEvents(t *testing.T) {
	source := &fakeSource{messages: []kafka.Message{
		{Value: []byte(`{"event_id":"a","event_type":"PAYMENT_SUCCEEDED","order_number":"ORD-1"}`)},
		{Value: []byte(`{"event_id":"b","event_type":"SOMETHING_ELSE"}`)},
		{Value: []byte(`{"event_id":"c","event_type":"ORDER_SHIPPED","order_number":"ORD-1"}`)},
		{Value: []byte(`garbage`)},
	}}
	lifecycle := &recordingLifecycle{}

	w := NewOrderStatusWorker(source, lifecycle)
	require.NoError(t, w.Start(context.Background()))

	require.Len(t, lifecycle.events, 2)
	assert.Equal(t, "a", lifecycle.events[0].EventID)
	assert.Equal(t, models.EventTypeOrderShipped, lifecycle.events[1].EventType)

	require.Len(t, source.errs, 4)
	assert.NoError(t, source.errs[1])
	assert.Error(t, source.errs[3])

	require.NoError(t, w.Stop())
	assert.True(t, source.closed)
}
