package memory

import (
	"context"
	"sync"
	"testing"

	"ideation-workspace/core"
	"ideation-workspace/stores/storetest"
)

func TestMemoryStore(t *testing.T) {
	storetest.Run(t, NewStore())
}

func TestGetReturnsCopy(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	id, _ := s.Create(ctx, &core.Workspace{Items: []core.Item{{ID: "a", Kind: core.KindNote}}})
	w, _ := s.Get(ctx, id)
	w.Items[0].X = 999

	again, _ := s.Get(ctx, id)
	if again.Items[0].X != 0 {
		t.Error("Get() exposes stored items to mutation")
	}
}

func TestConcurrentSaves(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = s.Save(ctx, &core.Workspace{ID: "shared", Items: []core.Item{{ID: "a", X: float64(i)}}})
			_, _ = s.Get(ctx, "shared")
		}(i)
	}
	wg.Wait()

	w, err := s.Get(ctx, "shared")
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	if len(w.Items) != 1 {
		t.Errorf("items mismatch after concurrent saves: %d", len(w.Items))
	}
}
