package wsutil

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errFake = errors.New("fake error")

func TestPromise_Resolve(t *testing.T) {
	p := NewPromise[string]()
	p.Resolve("ok")
	p.Resolve("ignored")
	p.Reject(errFake)

	v, err := p.Await(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ok", v)

	select {
	case <-p.Done():
	default:
		t.Fatal("done must be closed")
	}
}

func TestPromise_Reject(t *testing.T) {
	p := NewPromise[int]()
	p.Reject(errFake)
	p.Resolve(1)

	_, err := p.Await(context.Background())

	var perr *PromiseError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, FromServer, perr.Source)
	assert.ErrorIs(t, err, errFake)
}

func TestPromise_Rejected(t *testing.T) {
	p := Rejected[int](FromCaller, errFake)

	_, err := p.Await(context.Background())

	var perr *PromiseError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, FromCaller, perr.Source)
	assert.Contains(t, err.Error(), "[caller]")
}

func TestPromise_AwaitContext(t *testing.T) {
	p := NewPromise[int]()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := p.Await(ctx)

	var perr *PromiseError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, FromContext, perr.Source)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestPromise_ResolveFromOtherGoroutine(t *testing.T) {
	p := NewPromise[int]()
	go p.Resolve(42)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	v, err := p.Await(ctx)
	require.NoError(t, err)
	assert.Equal(t, 42, v)
}
