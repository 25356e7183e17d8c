package observability

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestNoopHooksDoNotPanic(t *testing.T) {
	ctx := context.Background()

	g := NoopGenerationHooks{}
	g.OnGenerateStart(ctx, 10, "circle")
	g.OnPlacementAttempt(ctx, 1, errors.New("exhausted"))
	g.OnGenerateComplete(ctx, 2, time.Second, nil)

	p := NoopPipelineHooks{}
	p.OnRenderStart(ctx, []string{"png"})
	p.OnRenderComplete(ctx, []string{"png"}, time.Second, nil)

	c := NoopCacheHooks{}
	c.OnCacheHit(ctx, "layout")
	c.OnCacheMiss(ctx, "layout")
	c.OnCacheSet(ctx, "artifact", 1024)
}

func TestGlobalHooksRegistry(t *testing.T) {
	Reset()

	if _, ok := Generation().(NoopGenerationHooks); !ok {
		t.Error("Generation() should return NoopGenerationHooks by default")
	}
	if _, ok := Pipeline().(NoopPipelineHooks); !ok {
		t.Error("Pipeline() should return NoopPipelineHooks by default")
	}
	if _, ok := Cache().(NoopCacheHooks); !ok {
		t.Error("Cache() should return NoopCacheHooks by default")
	}

	customGen := &testGenerationHooks{}
	SetGenerationHooks(customGen)
	if Generation() != customGen {
		t.Error("SetGenerationHooks should set custom hooks")
	}

	customCache := &testCacheHooks{}
	SetCacheHooks(customCache)
	if Cache() != customCache {
		t.Error("SetCacheHooks should set custom hooks")
	}

	Reset()
	if _, ok := Generation().(NoopGenerationHooks); !ok {
		t.Error("Reset() should restore NoopGenerationHooks")
	}
}

func TestSetNilHooksIsIgnored(t *testing.T) {
	Reset()
	defer Reset()

	custom := &testGenerationHooks{}
	SetGenerationHooks(custom)
	SetGenerationHooks(nil)
	if Generation() != custom {
		t.Error("SetGenerationHooks(nil) should keep existing hooks")
	}
}

func TestConcurrentAccess(t *testing.T) {
	Reset()
	defer Reset()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			SetCacheHooks(&testCacheHooks{})
		}()
		go func() {
			defer wg.Done()
			Cache().OnCacheHit(context.Background(), "layout")
		}()
	}
	wg.Wait()
}

type testGenerationHooks struct{ NoopGenerationHooks }

type testCacheHooks struct{ NoopCacheHooks }
