package metrics

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetrics_Observer(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.MessageProcessed(250 * time.Millisecond)
	m.MessageProcessed(time.Second)
	m.ClassifierFallback("classify")
	m.ClassifierFallback("classify")
	m.ClassifierFallback("extract")

	if got := testutil.ToFloat64(m.MessagesProcessed); got != 2 {
		t.Errorf("messages processed = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.Fallbacks.WithLabelValues("classify")); got != 2 {
		t.Errorf("classify fallbacks = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.Fallbacks.WithLabelValues("extract")); got != 1 {
		t.Errorf("extract fallbacks = %v, want 1", got)
	}

	expected := `
# HELP councilbot_message_processing_duration_seconds Time spent processing one message
# TYPE councilbot_message_processing_duration_seconds histogram
councilbot_message_processing_duration_seconds_bucket{le="0.05"} 0
councilbot_message_processing_duration_seconds_bucket{le="0.1"} 0
councilbot_message_processing_duration_seconds_bucket{le="0.5"} 1
councilbot_message_processing_duration_seconds_bucket{le="1"} 2
councilbot_message_processing_duration_seconds_bucket{le="2"} 2
councilbot_message_processing_duration_seconds_bucket{le="5"} 2
councilbot_message_processing_duration_seconds_bucket{le="10"} 2
councilbot_message_processing_duration_seconds_bucket{le="30"} 2
councilbot_message_processing_duration_seconds_bucket{le="60"} 2
councilbot_message_processing_duration_seconds_bucket{le="+Inf"} 2
councilbot_message_processing_duration_seconds_sum 1.25
councilbot_message_processing_duration_seconds_count 2
`
	if err := testutil.GatherAndCompare(reg, strings.NewReader(expected), "councilbot_message_processing_duration_seconds"); err != nil {
		t.Error(err)
	}
}

func TestMetrics_Commands(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.RecordCommand("search")
	m.RecordCommand("search")
	m.RecordError("message")

	if got := testutil.ToFloat64(m.Commands.WithLabelValues("search")); got != 2 {
		t.Errorf("search commands = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.HandlerErrors.WithLabelValues("message")); got != 1 {
		t.Errorf("message errors = %v, want 1", got)
	}
	if n := testutil.CollectAndCount(m.Commands); n != 1 {
		t.Errorf("command series = %d, want 1", n)
	}
}
