package solana

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"pump-sentinel/internal/pool"
)

// fakeRPC records which endpoint a call was routed to.
type fakeRPC struct {
	url    string
	calls  *[]string
	height uint64
	err    error
}

func (f *fakeRPC) GetBlockHeight(ctx context.Context) (uint64, error) {
	*f.calls = append(*f.calls, f.url)
	return f.height, f.err
}

func (f *fakeRPC) GetTransaction(ctx context.Context, signature string) (*Transaction, error) {
	*f.calls = append(*f.calls, f.url)
	return nil, f.err
}

func (f *fakeRPC) GetParsedAccountInfo(ctx context.Context, pubkey string) (*ParsedAccountInfo, error) {
	*f.calls = append(*f.calls, f.url)
	return nil, f.err
}

func (f *fakeRPC) GetAccountInfoAndContext(ctx context.Context, pubkey string, minContextSlot int64) (*AccountInfo, int64, error) {
	*f.calls = append(*f.calls, f.url)
	return nil, 0, f.err
}

func testPooledClient(n int) (*PooledClient, *[]string) {
	configs := make([]pool.Config, n)
	for i := range configs {
		id := fmt.Sprintf("ep%d", i)
		configs[i] = pool.Config{ID: id, Provider: "test", HTTPURL: "http://" + id, RateLimit: 100}
	}

	calls := new([]string)
	c := NewPooledClient(pool.New(configs))
	c.factory = func(httpURL string) RPCClient {
		return &fakeRPC{url: httpURL, calls: calls, height: 1}
	}
	return c, calls
}

func TestPooledClient_RoundRobin(t *testing.T) {
	client, calls := testPooledClient(3)
	ctx := context.Background()

	for i := 0; i < 6; i++ {
		if _, err := client.GetBlockHeight(ctx); err != nil {
			t.Fatalf("GetBlockHeight: %v", err)
		}
	}

	want := []string{"http://ep0", "http://ep1", "http://ep2", "http://ep0", "http://ep1", "http://ep2"}
	for i, url := range want {
		if (*calls)[i] != url {
			t.Errorf("call %d routed to %s, want %s", i, (*calls)[i], url)
		}
	}
}

func TestPooledClient_RotateSkipsLastEndpoint(t *testing.T) {
	client, calls := testPooledClient(2)
	ctx := context.Background()

	if _, err := client.GetBlockHeight(ctx); err != nil {
		t.Fatalf("GetBlockHeight: %v", err)
	}
	client.Rotate()

	for i := 0; i < 3; i++ {
		if _, err := client.GetBlockHeight(ctx); err != nil {
			t.Fatalf("GetBlockHeight: %v", err)
		}
	}

	// ep0 served the first call and was then rotated out.
	for _, url := range (*calls)[1:] {
		if url == "http://ep0" {
			t.Errorf("rotated endpoint still serving: %v", *calls)
		}
	}
}

func TestPooledClient_NoHealthyEndpoint(t *testing.T) {
	client, _ := testPooledClient(1)

	if _, err := client.GetBlockHeight(context.Background()); err != nil {
		t.Fatalf("GetBlockHeight: %v", err)
	}
	client.Rotate()

	_, err := client.GetBlockHeight(context.Background())
	if !errors.Is(err, pool.ErrNoHealthyEndpoint) {
		t.Errorf("err = %v, want ErrNoHealthyEndpoint", err)
	}
}

func TestRetry_SucceedsAfterRotation(t *testing.T) {
	client, _ := testPooledClient(3)

	attempts := 0
	err := Retry(context.Background(), DefaultAttempts, client, func(ctx context.Context) error {
		attempts++
		if attempts < 3 {
			return errors.New("transient")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Retry: %v", err)
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
}

func TestRetry_ExhaustsAttempts(t *testing.T) {
	sentinel := errors.New("down")
	attempts := 0
	err := Retry(context.Background(), 3, nil, func(ctx context.Context) error {
		attempts++
		return sentinel
	})
	if !errors.Is(err, sentinel) {
		t.Errorf("err = %v, want wrapped sentinel", err)
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
}

func TestRetry_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Retry(ctx, 3, nil, func(ctx context.Context) error {
		t.Error("fn should not run with cancelled context")
		return nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}
