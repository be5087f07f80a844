package infra

import (
	"context"
	"testing"
)

func TestDisabledBackends(t *testing.T) {
	pool, err := NewDB(context.Background(), "")
	if err != nil || pool != nil {
		t.Fatalf("NewDB(\"\") = %v, %v; want nil, nil", pool, err)
	}
	client, err := NewRedis(context.Background(), "")
	if err != nil || client != nil {
		t.Fatalf("NewRedis(\"\") = %v, %v; want nil, nil", client, err)
	}
}
