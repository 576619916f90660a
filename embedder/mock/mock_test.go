package mock_test

import (
	"context"
	"math"
	"testing"

	"github.com/GaraRoyal/memoryvault/embedder/mock"
)

func TestDeterministic(t *testing.T) {
	e := mock.New()
	a, err := e.Embed(context.Background(), "the broken gate")
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	b, _ := e.Embed(context.Background(), "the broken gate")
	for i := range a {
		if a[i] != b[i] {
			t.Fatal("same text produced different vectors")
		}
	}

	c, _ := e.Embed(context.Background(), "something else entirely")
	same := true
	for i := range a {
		if a[i] != c[i] {
			same = false
			break
		}
	}
	if same {
		t.Error("different texts produced identical vectors")
	}
}

func TestUnitNorm(t *testing.T) {
	e := mock.New()
	v, err := e.Embed(context.Background(), "anything at all")
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if len(v) != e.Dimensions() {
		t.Fatalf("len = %d, want %d", len(v), e.Dimensions())
	}
	var norm float64
	for _, x := range v {
		norm += float64(x) * float64(x)
	}
	if math.Abs(math.Sqrt(norm)-1) > 1e-5 {
		t.Errorf("norm = %v, want 1", math.Sqrt(norm))
	}
}
