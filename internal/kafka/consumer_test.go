package kafka

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDecodeEvent(t *testing.T) {
	payload, err := json.Marshal(BookingEvent{
		EventID: "e-1",
		Type:    EventBookingCreated,
		Locator: "3FA91C",
		UserID:  5,
		Email:   "rider@example.com",
	})
	assert.NoError(t, err)

	event, ok := decodeEvent(payload)
	assert.True(t, ok)
	assert.Equal(t, EventBookingCreated, event.Type)
	assert.Equal(t, "3FA91C", event.Locator)
	assert.Equal(t, int64(5), event.UserID)
}

func TestDecodeEvent_MalformedPayloadSkipped(t *testing.T) {
	_, ok := decodeEvent([]byte("not an event"))
	assert.False(t, ok)
}
