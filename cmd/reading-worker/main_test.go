package main

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhinavuser/reflectometry/internal/notifications/sms"
	"github.com/abhinavuser/reflectometry/internal/types"
)

type stubProcessor struct {
	calls []types.ReadingMessage
	err   map[string]error
}

func (s *stubProcessor) Process(_ context.Context, msg types.ReadingMessage) (sms.ReadingEvaluation, error) {
	s.calls = append(s.calls, msg)
	return sms.ReadingEvaluation{ReadingID: msg.ReadingID, Alarm: true}, s.err[msg.ReadingID]
}

func newTestHandler(p *stubProcessor) *Handler {
	return &Handler{
		monitor: p,
		logger:  types.NopLogger{},
		now:     func() time.Time { return time.UnixMilli(2_000) },
	}
}

func record(id, body string) events.SQSMessage {
	return events.SQSMessage{
		MessageId:  id,
		Body:       body,
		Attributes: map[string]string{"SentTimestamp": "1000"},
	}
}

func TestHandle_AllSucceed(t *testing.T) {
	p := &stubProcessor{}
	h := newTestHandler(p)

	resp, err := h.Handle(context.Background(), events.SQSEvent{Records: []events.SQSMessage{
		record("m1", `{"reading_id":"r1","reading":{"impedance":5000}}`),
		record("m2", `{"reading_id":"r2","reading":{"voltage":12}}`),
	}})

	require.NoError(t, err)
	assert.Empty(t, resp.BatchItemFailures)
	require.Len(t, p.calls, 2)
	assert.Equal(t, "r1", p.calls[0].ReadingID)
	require.NotNil(t, p.calls[0].Reading.Impedance)
	assert.Equal(t, 5000.0, *p.calls[0].Reading.Impedance)
}

func TestHandle_MalformedBodyIsAcked(t *testing.T) {
	p := &stubProcessor{}
	h := newTestHandler(p)

	resp, err := h.Handle(context.Background(), events.SQSEvent{Records: []events.SQSMessage{
		record("m1", `not json`),
	}})

	require.NoError(t, err)
	assert.Empty(t, resp.BatchItemFailures)
	assert.Empty(t, p.calls)
}

func TestHandle_ProcessFailureReported(t *testing.T) {
	p := &stubProcessor{err: map[string]error{"r2": errors.New("boom")}}
	h := newTestHandler(p)

	resp, err := h.Handle(context.Background(), events.SQSEvent{Records: []events.SQSMessage{
		record("m1", `{"reading_id":"r1","reading":{}}`),
		record("m2", `{"reading_id":"r2","reading":{}}`),
	}})

	require.NoError(t, err)
	require.Len(t, resp.BatchItemFailures, 1)
	assert.Equal(t, "m2", resp.BatchItemFailures[0].ItemIdentifier)
}

func TestHandle_UnavailableIsAcked(t *testing.T) {
	unavailable := types.NewAppError(types.ErrCodeSMSUnavailable, "SMS service not available", nil)
	p := &stubProcessor{err: map[string]error{"r1": unavailable}}
	h := newTestHandler(p)

	resp, err := h.Handle(context.Background(), events.SQSEvent{Records: []events.SQSMessage{
		record("m1", `{"reading_id":"r1","reading":{}}`),
	}})

	require.NoError(t, err)
	assert.Empty(t, resp.BatchItemFailures)
}

func TestRunLocal(t *testing.T) {
	p := &stubProcessor{err: map[string]error{"r1": errors.New("boom")}}
	h := newTestHandler(p)
	var out bytes.Buffer

	in := strings.NewReader(`{"Records":[{"messageId":"m1","body":"{\"reading_id\":\"r1\",\"reading\":{}}"}]}`)
	require.NoError(t, runLocal(context.Background(), h, in, &out))
	assert.Contains(t, out.String(), `"itemIdentifier": "m1"`)

	assert.Error(t, runLocal(context.Background(), h, strings.NewReader(""), &out))
	assert.Error(t, runLocal(context.Background(), h, strings.NewReader("{"), &out))
}

func TestParseMillisTimestamp(t *testing.T) {
	ts, err := parseMillisTimestamp("1700000000000")
	require.NoError(t, err)
	assert.Equal(t, int64(1700000000000), ts.UnixMilli())

	_, err = parseMillisTimestamp("abc")
	assert.Error(t, err)
}
