package cache

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"trade-executor/pkg/exchanges/common"
)

func TestSpecCacheSetGet(t *testing.T) {
	c := NewSpecCache(0)
	spec := common.SymbolSpec{Symbol: "ETHUSDT", TickSize: 0.05, QtyStep: 0.01, MinQty: 0.01}

	if _, ok := c.Get("ETHUSDT"); ok {
		t.Fatal("empty cache returned a hit")
	}
	c.Set("ETHUSDT", spec)
	got, ok := c.Get("ETHUSDT")
	if !ok || got != spec {
		t.Fatalf("Get = %+v, %v", got, ok)
	}

	c.Invalidate("ETHUSDT")
	if _, ok := c.Get("ETHUSDT"); ok {
		t.Fatal("invalidated entry still served")
	}
}

func TestSpecCacheExpiry(t *testing.T) {
	c := NewSpecCache(10 * time.Millisecond)
	c.Set("BTCUSDT", common.SymbolSpec{Symbol: "BTCUSDT", TickSize: 0.1, QtyStep: 0.001})

	if _, ok := c.Get("BTCUSDT"); !ok {
		t.Fatal("fresh entry missed")
	}
	time.Sleep(20 * time.Millisecond)
	if _, ok := c.Get("BTCUSDT"); ok {
		t.Fatal("expired entry served")
	}
}

func TestSpecCacheConcurrent(t *testing.T) {
	c := NewSpecCache(time.Minute)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				sym := fmt.Sprintf("SYM%dUSDT", j%10)
				c.Set(sym, common.SymbolSpec{Symbol: sym, TickSize: 0.01, QtyStep: 0.001})
				c.Get(sym)
			}
		}(i)
	}
	wg.Wait()
	if c.Len() != 10 {
		t.Errorf("Len = %d, want 10", c.Len())
	}
}
