package services

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestEnqueueRecomputeNeverDropsTasks(t *testing.T) {
	// More tasks than the queue buffers, so the producer has to wait on the
	// consumer instead of discarding work.
	total := cap(recomputeQueue) + 50

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < total; i++ {
			EnqueueRecompute(RecomputeTutoringTime, uuid.New())
		}
	}()

	received := 0
	timeout := time.After(5 * time.Second)
	for received < total {
		select {
		case <-recomputeQueue:
			received++
		case <-timeout:
			t.Fatalf("received %d of %d tasks before timeout", received, total)
		}
	}
	<-done
}
