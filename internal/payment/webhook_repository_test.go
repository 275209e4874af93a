package payment

import (
	"context"
	"errors"
	"sync"
	"testing"
)

func TestInMemoryWebhookRepository_RecordEvent(t *testing.T) {
	repo := NewInMemoryWebhookRepository()
	ctx := context.Background()

	if err := repo.RecordEvent(ctx, "evt_1", "payment_intent.succeeded"); err != nil {
		t.Fatalf("RecordEvent failed: %v", err)
	}

	err := repo.RecordEvent(ctx, "evt_1", "payment_intent.succeeded")
	if !errors.Is(err, ErrEventAlreadyProcessed) {
		t.Errorf("expected ErrEventAlreadyProcessed, got %v", err)
	}

	// Distinct events are independent
	if err := repo.RecordEvent(ctx, "evt_2", "payment_intent.canceled"); err != nil {
		t.Errorf("RecordEvent for distinct event failed: %v", err)
	}
}

func TestInMemoryWebhookRepository_HasProcessed(t *testing.T) {
	repo := NewInMemoryWebhookRepository()
	ctx := context.Background()

	processed, err := repo.HasProcessed(ctx, "evt_unknown")
	if err != nil {
		t.Fatal(err)
	}
	if processed {
		t.Error("unrecorded event reported as processed")
	}

	if err := repo.RecordEvent(ctx, "evt_3", "checkout.session.completed"); err != nil {
		t.Fatal(err)
	}
	processed, err = repo.HasProcessed(ctx, "evt_3")
	if err != nil {
		t.Fatal(err)
	}
	if !processed {
		t.Error("recorded event not reported as processed")
	}
}

func TestInMemoryWebhookRepository_ConcurrentRecord(t *testing.T) {
	repo := NewInMemoryWebhookRepository()
	ctx := context.Background()

	const workers = 16
	var wg sync.WaitGroup
	var mu sync.Mutex
	recorded := 0

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := repo.RecordEvent(ctx, "evt_race", "payment_intent.succeeded"); err == nil {
				mu.Lock()
				recorded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if recorded != 1 {
		t.Errorf("expected exactly one successful record, got %d", recorded)
	}
}
