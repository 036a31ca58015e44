package scheduler

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/hibiken/asynq"
)

type stubSchedulerConfig struct {
	redisURL string
	queue    string
}

func (c stubSchedulerConfig) GetRedisURL() string      { return c.redisURL }
func (c stubSchedulerConfig) GetRedisTLSInsecure() bool { return false }
func (c stubSchedulerConfig) GetAsynqQueueName() string { return c.queue }
func (c stubSchedulerConfig) GetAsynqConcurrency() int  { return 1 }

func TestNewClient_RequiresRedisURL(t *testing.T) {
	if _, err := NewClient(stubSchedulerConfig{}); err == nil {
		t.Fatal("expected error without a redis url")
	}
}

func TestNewClient_RejectsMalformedURL(t *testing.T) {
	if _, err := NewClient(stubSchedulerConfig{redisURL: "not-a-url"}); err == nil {
		t.Fatal("expected error for malformed redis url")
	}
}

func TestEnqueueAnalysisRun(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start redis: %v", err)
	}
	defer mr.Close()

	client, err := NewClient(stubSchedulerConfig{
		redisURL: "redis://" + mr.Addr(),
		queue:    "analysis",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer client.Close()

	payload := AnalysisRunPayload{
		RunID:     "7b0e5a74-9a93-4f36-b9a6-2d7a5f3f2a01",
		DatasetID: "c7e3d9a1-1111-4a5b-8c8d-0f0e0d0c0b0a",
		Focus:     "surgical",
	}
	if err := client.EnqueueAnalysisRun(context.Background(), payload); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: mr.Addr()})
	defer inspector.Close()

	tasks, err := inspector.ListPendingTasks("analysis")
	if err != nil {
		t.Fatalf("list pending: %v", err)
	}
	if len(tasks) != 1 {
		t.Fatalf("expected 1 pending task, got %d", len(tasks))
	}
	if tasks[0].Type != TaskAnalysisRun {
		t.Fatalf("expected task type %s, got %s", TaskAnalysisRun, tasks[0].Type)
	}
	if tasks[0].MaxRetry != 2 {
		t.Fatalf("expected max retry 2, got %d", tasks[0].MaxRetry)
	}

	parsed, err := ParseAnalysisRunPayload(asynq.NewTask(tasks[0].Type, tasks[0].Payload))
	if err != nil {
		t.Fatalf("parse payload: %v", err)
	}
	if parsed != payload {
		t.Fatalf("payload round-trip mismatch: %+v vs %+v", parsed, payload)
	}
}

func TestEnqueueAnalysisRun_DefaultQueue(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start redis: %v", err)
	}
	defer mr.Close()

	client, err := NewClient(stubSchedulerConfig{redisURL: "redis://" + mr.Addr()})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer client.Close()

	if err := client.EnqueueAnalysisRun(context.Background(), AnalysisRunPayload{RunID: "r"}); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: mr.Addr()})
	defer inspector.Close()

	tasks, err := inspector.ListPendingTasks("default")
	if err != nil {
		t.Fatalf("list pending: %v", err)
	}
	if len(tasks) != 1 {
		t.Fatalf("expected 1 task on the default queue, got %d", len(tasks))
	}
}

func TestEnqueueAnalysisRun_UnconfiguredClient(t *testing.T) {
	var client *Client
	if err := client.EnqueueAnalysisRun(context.Background(), AnalysisRunPayload{}); err == nil {
		t.Fatal("expected error from nil client")
	}
}
