package rate

import (
	"context"
	"testing"
	"time"
)

func TestMemoryLimiter_Allows(t *testing.T) {
	l := NewMemory()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		res, err := l.Allow(ctx, "ip1", 3, time.Minute)
		if err != nil {
			t.Fatal(err)
		}
		if !res.Allowed {
			t.Fatalf("request %d rechazado antes del límite", i+1)
		}
		if res.Remaining != 3-(i+1) {
			t.Errorf("remaining = %d, want %d", res.Remaining, 3-(i+1))
		}
	}

	res, err := l.Allow(ctx, "ip1", 3, time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	if res.Allowed {
		t.Fatal("cuarto request aceptado con límite 3")
	}
	if res.RetryAfter <= 0 {
		t.Fatal("RetryAfter debería ser positivo al rechazar")
	}
}

func TestMemoryLimiter_KeysIndependientes(t *testing.T) {
	l := NewMemory()
	ctx := context.Background()

	if res, _ := l.Allow(ctx, "ip1", 1, time.Minute); !res.Allowed {
		t.Fatal("primer hit de ip1 rechazado")
	}
	if res, _ := l.Allow(ctx, "ip1", 1, time.Minute); res.Allowed {
		t.Fatal("segundo hit de ip1 aceptado con límite 1")
	}
	if res, _ := l.Allow(ctx, "ip2", 1, time.Minute); !res.Allowed {
		t.Fatal("ip2 afectada por el contador de ip1")
	}
}

func TestMemoryLimiter_WindowReset(t *testing.T) {
	l := NewMemory()
	ctx := context.Background()

	window := 50 * time.Millisecond
	if res, _ := l.Allow(ctx, "ip1", 1, window); !res.Allowed {
		t.Fatal("primer hit rechazado")
	}
	if res, _ := l.Allow(ctx, "ip1", 1, window); res.Allowed {
		t.Fatal("segundo hit aceptado dentro de la ventana")
	}

	time.Sleep(60 * time.Millisecond)

	if res, _ := l.Allow(ctx, "ip1", 1, window); !res.Allowed {
		t.Fatal("hit rechazado después de expirar la ventana")
	}
}
