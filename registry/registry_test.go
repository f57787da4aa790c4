package registry

import (
	"testing"

	"github.com/evoflow/pnmlcore/token"
	"github.com/stretchr/testify/assert"
)

func TestBuildKey(t *testing.T) {
	assert.Equal(t, "order_t1_guard", BuildKey("order", "t1", "guard"))
	assert.Equal(t, "order_t1_inscription", BuildKey("order", "t1", ""))
}

func TestRegistry_RegisterGetClear(t *testing.T) {
	r := New()
	_, ok := r.Get("missing")
	assert.False(t, ok)

	r.Register("k1", func(v token.Value) any { return v })
	fn, ok := r.Get("k1")
	assert.True(t, ok)
	assert.Equal(t, token.Int(5), fn(token.Int(5)))

	r.Clear()
	_, ok = r.Get("k1")
	assert.False(t, ok)
}

func TestRegistry_ConcurrentAccess(t *testing.T) {
	r := New()
	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			r.Register("k", func(v token.Value) any { return v })
		}
		close(done)
	}()
	for i := 0; i < 100; i++ {
		r.Get("k")
	}
	<-done
}
