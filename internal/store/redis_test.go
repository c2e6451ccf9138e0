package store_test

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"

	"github.com/fr4nk3nst1ner/jobluu/internal/store"
)

func TestRedisStorage(t *testing.T) {
	url := os.Getenv("JOBLUU_TEST_REDIS_URL")
	if url == "" {
		t.Skip("JOBLUU_TEST_REDIS_URL not set")
	}
	ctx := context.Background()
	rdb, err := store.NewRedisClient(ctx, url)
	if err != nil {
		t.Fatalf("NewRedisClient: %v", err)
	}
	rs := store.NewRedisStorage(rdb, "jobluu-test:"+uuid.NewString()+":")
	defer rs.Close()
	defer rs.Clear(ctx)

	if _, ok, err := rs.Get(ctx, store.KeyToken); ok || err != nil {
		t.Fatalf("Get missing: ok=%v err=%v", ok, err)
	}
	if err := rs.Set(ctx, store.KeyToken, "tok"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if v, ok, err := rs.Get(ctx, store.KeyToken); !ok || err != nil || v != "tok" {
		t.Fatalf("Get = %q %v %v", v, ok, err)
	}
	if err := rs.Clear(ctx); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if _, ok, _ := rs.Get(ctx, store.KeyToken); ok {
		t.Errorf("key survived Clear")
	}
}
