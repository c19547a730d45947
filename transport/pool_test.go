package transport

import (
	"net"
	"testing"
	"time"

	"rack-rpc/codec"
)

func newTestPool(t *testing.T, addr string, maxSize int) *Pool {
	t.Helper()
	return NewPool(maxSize, func() (*ClientTransport, error) {
		conn, err := net.Dial("tcp", addr)
		if err != nil {
			return nil, err
		}
		return NewClientTransport(conn, codec.CodecTypeJSON), nil
	})
}

func TestPoolReusesTransports(t *testing.T) {
	startAgent(t, ":9003")
	pool := newTestPool(t, ":9003", 2)

	t1, err := pool.Get()
	if err != nil {
		t.Fatal(err)
	}
	pool.Put(t1)

	// The idle transport comes back instead of a fresh dial.
	t2, err := pool.Get()
	if err != nil {
		t.Fatal(err)
	}
	if t2 != t1 {
		t.Fatal("expect the idle transport to be reused")
	}

	// A second concurrent borrow grows the pool up to maxSize.
	t3, err := pool.Get()
	if err != nil {
		t.Fatal(err)
	}
	if t3 == t2 {
		t.Fatal("expect a distinct transport while the first is borrowed")
	}

	pool.Put(t2)
	pool.Put(t3)
	pool.Close()
}

func TestPoolBlocksWhenExhausted(t *testing.T) {
	startAgent(t, ":9004")
	pool := newTestPool(t, ":9004", 1)

	t1, err := pool.Get()
	if err != nil {
		t.Fatal(err)
	}

	go func() {
		time.Sleep(50 * time.Millisecond)
		pool.Put(t1)
	}()

	// At capacity: this Get must wait for the Put above.
	start := time.Now()
	t2, err := pool.Get()
	if err != nil {
		t.Fatal(err)
	}
	if t2 != t1 {
		t.Fatal("expect the returned transport")
	}
	if time.Since(start) < 30*time.Millisecond {
		t.Fatal("expect Get to block until a transport is returned")
	}
	pool.Put(t2)
	pool.Close()
}

func TestPoolCloseClosesIdleConnections(t *testing.T) {
	startAgent(t, ":9005")
	pool := newTestPool(t, ":9005", 1)

	t1, err := pool.Get()
	if err != nil {
		t.Fatal(err)
	}
	pool.Put(t1)

	if err := pool.Close(); err != nil {
		t.Fatal(err)
	}

	if _, err := t1.Conn().Write([]byte("x")); err == nil {
		t.Fatal("expect write on closed connection to fail")
	}
}
