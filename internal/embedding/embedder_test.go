package embedding

import (
	"context"
	"math"
	"testing"
)

func TestMockEmbedder_Deterministic(t *testing.T) {
	e := NewMockEmbedder(16)
	ctx := context.Background()
	a, err := e.Embed(ctx, "attention is all you need")
	if err != nil {
		t.Fatal(err)
	}
	b, _ := e.Embed(ctx, "attention is all you need")
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("embedding not deterministic at %d: %v vs %v", i, a[i], b[i])
		}
	}
	if len(a) != e.Dimensions() {
		t.Errorf("len = %d, dimensions = %d", len(a), e.Dimensions())
	}
	var norm float64
	for _, v := range a {
		norm += float64(v) * float64(v)
	}
	if math.Abs(norm-1.0) > 1e-5 {
		t.Errorf("vector not unit length: %f", norm)
	}
}

func TestEmbedBatch_MatchesSingle(t *testing.T) {
	e := NewMockEmbedder(8)
	ctx := context.Background()
	texts := []string{"alpha", "beta", "gamma"}
	batch, err := e.EmbedBatch(ctx, texts)
	if err != nil {
		t.Fatal(err)
	}
	if len(batch) != len(texts) {
		t.Fatalf("batch length %d != input %d", len(batch), len(texts))
	}
	for i, text := range texts {
		single, _ := e.Embed(ctx, text)
		for j := range single {
			if math.Abs(float64(batch[i][j]-single[j])) > 1e-7 {
				t.Fatalf("batch[%d] differs from single embed at %d", i, j)
			}
		}
	}
}

func TestEmbedAll_PreservesOrderAcrossBatches(t *testing.T) {
	e := NewMockEmbedder(8)
	ctx := context.Background()
	texts := []string{"a", "b", "c", "d", "e"}
	all, err := EmbedAll(ctx, e, texts, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != len(texts) {
		t.Fatalf("got %d vectors", len(all))
	}
	for i, text := range texts {
		single, _ := e.Embed(ctx, text)
		for j := range single {
			if all[i][j] != single[j] {
				t.Fatalf("sub-batching changed result for %q", text)
			}
		}
	}
}

func TestEmbedAll_Empty(t *testing.T) {
	e := NewMockEmbedder(8)
	out, err := EmbedAll(context.Background(), e, nil, 4)
	if err != nil || out != nil {
		t.Errorf("empty input: got %v, %v", out, err)
	}
}

func TestCache_GetSetEvict(t *testing.T) {
	c := NewCache(2)
	if v, ok := c.Get("a"); ok || v != nil {
		t.Fatal("expected miss")
	}
	c.Set("a", []float32{1, 2, 3})
	v, ok := c.Get("a")
	if !ok || len(v) != 3 || v[0] != 1 {
		t.Errorf("Get: got %v, %v", v, ok)
	}
	c.Set("b", []float32{4, 5})
	c.Set("c", []float32{6}) // evicts a
	if _, ok := c.Get("a"); ok {
		t.Error("expected a to be evicted")
	}
	if _, ok := c.Get("b"); !ok {
		t.Error("expected b to remain")
	}
	if c.Len() != 2 {
		t.Errorf("Len = %d", c.Len())
	}
}

func TestSimpleTokenizer_TruncatesDeterministically(t *testing.T) {
	tok := &SimpleTokenizer{}
	long := ""
	for i := 0; i < 500; i++ {
		long += "word "
	}
	ids1, attn, _ := tok.Tokenize(long, 16)
	ids2, _, _ := tok.Tokenize(long, 16)
	if len(ids1) != 16 {
		t.Fatalf("len = %d", len(ids1))
	}
	if ids1[0] != 101 {
		t.Errorf("expected CLS 101, got %d", ids1[0])
	}
	for i := range ids1 {
		if ids1[i] != ids2[i] {
			t.Fatal("truncation not deterministic")
		}
	}
	if attn[0] != 1 {
		t.Error("attention[0] should be 1")
	}
}

func TestSplitWords(t *testing.T) {
	words := SplitWords("  a  b  c  ")
	if len(words) != 3 {
		t.Errorf("expected 3 words, got %v", words)
	}
	if SplitWords("") != nil {
		t.Error("empty string should return nil")
	}
}
