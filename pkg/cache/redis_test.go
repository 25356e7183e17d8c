package cache

import (
	"context"
	"errors"
	"net"
	"os"
	"testing"
	"time"
)

func TestRetryableRedis(t *testing.T) {
	if retryableRedis(nil) != nil {
		t.Error("nil should stay nil")
	}
	opErr := &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}
	if !IsRetryable(retryableRedis(opErr)) {
		t.Error("network errors should be retryable")
	}
	if IsRetryable(retryableRedis(errors.New("WRONGTYPE"))) {
		t.Error("server errors should not be retryable")
	}
}

// TestRedisCache runs against a live server when DOTSTIM_TEST_REDIS is set,
// e.g. DOTSTIM_TEST_REDIS=redis://localhost:6379/15.
func TestRedisCache(t *testing.T) {
	url := os.Getenv("DOTSTIM_TEST_REDIS")
	if url == "" {
		t.Skip("DOTSTIM_TEST_REDIS not set")
	}
	ctx := context.Background()
	c, err := NewRedisCache(ctx, url, WithRedisPrefix("dotstim-test:"))
	if err != nil {
		t.Fatalf("NewRedisCache: %v", err)
	}
	defer c.Close()

	key := "k-" + time.Now().Format(time.RFC3339Nano)
	if _, hit, err := c.Get(ctx, key); hit || err != nil {
		t.Fatalf("fresh key: hit=%v err=%v", hit, err)
	}
	if err := c.Set(ctx, key, []byte("v"), time.Minute); err != nil {
		t.Fatal(err)
	}
	if data, hit, err := c.Get(ctx, key); !hit || err != nil || string(data) != "v" {
		t.Errorf("Get = %q, %v, %v", data, hit, err)
	}
	if err := c.Delete(ctx, key); err != nil {
		t.Fatal(err)
	}
	if _, hit, _ := c.Get(ctx, key); hit {
		t.Error("entry survived Delete")
	}
}
