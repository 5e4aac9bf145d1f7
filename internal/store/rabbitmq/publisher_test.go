package rabbitmq

import "testing"

func TestTopologyNames(t *testing.T) {
	top := NewTopology("chat_jobs")
	if top.Main != "chat_jobs" {
		t.Fatalf("main = %q", top.Main)
	}
	if top.Retry != "chat_jobs.retry" {
		t.Fatalf("retry = %q", top.Retry)
	}
	if top.DLQ != "chat_jobs.dlq" {
		t.Fatalf("dlq = %q", top.DLQ)
	}
}
