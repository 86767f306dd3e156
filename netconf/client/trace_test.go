package client

import (
	"context"
	"testing"

	assert "github.com/stretchr/testify/require"
)

func TestContextClientTraceDefaults(t *testing.T) {
	trace := ContextClientTrace(context.Background())
	assert.NotNil(t, trace.Error, "Unset context should deliver no-op hooks")
	trace.Error("ctx", "target", nil)

	var unmatched []string
	ctx := WithClientTrace(context.Background(), &ClientTrace{
		UnmatchedReply: func(instance, target, messageID string) {
			unmatched = append(unmatched, messageID)
		},
	})
	trace = ContextClientTrace(ctx)
	assert.NotNil(t, trace.ConnectStart, "Missing hooks should be defaulted")
	trace.ConnectStart("target")
	trace.UnmatchedReply("i", "t", "7")
	assert.Equal(t, []string{"7"}, unmatched)
}
