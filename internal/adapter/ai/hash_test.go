package ai

import (
	"context"
	"math"
	"testing"
)

func cosine(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

func TestHashEmbedder(t *testing.T) {
	h := NewHashEmbedder(64)
	ctx := context.Background()

	a, _ := h.Embed(ctx, "Senior Python developer in Boston")
	again, _ := h.Embed(ctx, "Senior Python developer in Boston")
	for i := range a {
		if a[i] != again[i] {
			t.Fatalf("not deterministic at %d", i)
		}
	}
	if len(a) != 64 {
		t.Fatalf("expected 64 dimensions, got %d", len(a))
	}

	var norm float64
	for _, v := range a {
		norm += float64(v) * float64(v)
	}
	if math.Abs(norm-1) > 1e-5 {
		t.Fatalf("expected unit vector, norm^2 = %v", norm)
	}

	near, _ := h.Embed(ctx, "python developer boston")
	far, _ := h.Embed(ctx, "pastry chef lisbon bakery")
	if cosine(a, near) <= cosine(a, far) {
		t.Fatalf("shared vocabulary should score higher: near=%v far=%v", cosine(a, near), cosine(a, far))
	}

	empty, _ := h.Embed(ctx, "  !! ")
	for _, v := range empty {
		if v != 0 {
			t.Fatal("text without tokens must embed to the zero vector")
		}
	}
	if h.ModelName() != "feature-hash-64" {
		t.Fatalf("unexpected model name %q", h.ModelName())
	}
}
