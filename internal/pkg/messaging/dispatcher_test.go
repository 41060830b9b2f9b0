package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/cmlabs-hris/timeclock-backend-go/internal/domain/overdue"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	msgs []kafka.Message
	err  error
}

func (w *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func sampleNotice() overdue.Notice {
	return overdue.Notice{
		IdempotencyKey: "entry-1:first_reminder",
		Stage:          overdue.ActionFirstReminder,
		TimeEntryID:    "entry-1",
		EmployeeID:     "emp-1",
		DealershipID:   "deal-1",
		EmployeeName:   "Rae Porter",
		ShiftEnd:       time.Date(2026, 3, 2, 17, 0, 0, 0, time.UTC),
		MinutesOverdue: 31,
	}
}

func TestKafkaDispatcher_Dispatch(t *testing.T) {
	w := &fakeWriter{}
	d := &KafkaDispatcher{writer: w, topic: DefaultReminderTopic}

	require.NoError(t, d.Dispatch(context.Background(), sampleNotice()))
	require.Len(t, w.msgs, 1)

	msg := w.msgs[0]
	assert.Equal(t, DefaultReminderTopic, msg.Topic)
	assert.Equal(t, "entry-1", string(msg.Key))
	assert.Contains(t, msg.Headers, kafka.Header{Key: "stage", Value: []byte("first_reminder")})
	assert.Contains(t, msg.Headers, kafka.Header{Key: "idempotency_key", Value: []byte("entry-1:first_reminder")})

	var decoded overdue.Notice
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, sampleNotice(), decoded)
}

func TestKafkaDispatcher_WriteError(t *testing.T) {
	w := &fakeWriter{err: errors.New("leader not available")}
	d := &KafkaDispatcher{writer: w, topic: DefaultReminderTopic}

	err := d.Dispatch(context.Background(), sampleNotice())
	assert.ErrorContains(t, err, "entry-1:first_reminder")
	assert.ErrorIs(t, err, w.err)
}

func TestLogDispatcher(t *testing.T) {
	assert.NoError(t, NewLogDispatcher().Dispatch(context.Background(), sampleNotice()))
}
