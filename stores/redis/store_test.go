package redis

import (
	"context"
	"testing"

	"ideation-workspace/core"
	"ideation-workspace/stores/storetest"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newStore(t *testing.T) (*redisStore, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	rc := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rc.Close() })
	return NewStore(rc), mr
}

func TestRedisStore(t *testing.T) {
	s, _ := newStore(t)
	storetest.Run(t, s)
}

func TestListSkipsDanglingIndexEntries(t *testing.T) {
	s, mr := newStore(t)
	ctx := context.Background()

	id, err := s.Create(ctx, &core.Workspace{Title: "kept"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := mr.ZAdd(indexKey, 1, "ghost"); err != nil {
		t.Fatal(err)
	}

	list, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List() failed: %v", err)
	}
	if len(list) != 1 || list[0].ID != id {
		t.Errorf("List() mismatch: %+v", list)
	}
}

func TestDeleteDropsIndexEntry(t *testing.T) {
	s, mr := newStore(t)
	ctx := context.Background()

	id, _ := s.Create(ctx, &core.Workspace{})
	if err := s.Delete(ctx, id); err != nil {
		t.Fatal(err)
	}
	members, _ := mr.ZMembers(indexKey)
	if len(members) != 0 {
		t.Errorf("index still holds %v", members)
	}
	if mr.Exists(workspaceKey(id)) {
		t.Error("workspace key not deleted")
	}
}
