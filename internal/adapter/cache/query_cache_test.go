package cache

import (
	"fmt"
	"testing"
	"time"

	"paperrag/internal/domain"
)

func TestGetMiss(t *testing.T) {
	c := NewQueryCache(10, time.Minute)
	if _, hit := c.Get("never asked"); hit {
		t.Error("expected miss on empty cache")
	}
}

func TestPutGet(t *testing.T) {
	c := NewQueryCache(10, time.Minute)
	chunks := []domain.RetrievedChunk{{Text: "passage", Similarity: 0.5}}

	c.Put("question", chunks)

	got, hit := c.Get("question")
	if !hit {
		t.Fatal("expected hit")
	}
	if len(got) != 1 || got[0].Text != "passage" {
		t.Errorf("unexpected cached chunks: %+v", got)
	}
}

func TestInvalidateDropsEntries(t *testing.T) {
	c := NewQueryCache(10, time.Minute)
	c.Put("question", []domain.RetrievedChunk{{Text: "stale"}})

	c.Invalidate()

	if _, hit := c.Get("question"); hit {
		t.Error("expected miss after invalidation")
	}
	if c.Size() != 0 {
		t.Errorf("size = %d after invalidation", c.Size())
	}
}

func TestTTLExpiry(t *testing.T) {
	c := NewQueryCache(10, time.Nanosecond)
	c.Put("question", []domain.RetrievedChunk{{Text: "old"}})

	time.Sleep(time.Millisecond)

	if _, hit := c.Get("question"); hit {
		t.Error("expected expired entry to miss")
	}
}

func TestEvictsOldestWhenFull(t *testing.T) {
	c := NewQueryCache(2, time.Minute)
	c.Put("first", []domain.RetrievedChunk{{Text: "1"}})
	c.Put("second", []domain.RetrievedChunk{{Text: "2"}})
	c.Put("third", []domain.RetrievedChunk{{Text: "3"}})

	if _, hit := c.Get("first"); hit {
		t.Error("oldest entry should have been evicted")
	}
	if _, hit := c.Get("third"); !hit {
		t.Error("newest entry should be present")
	}
	if c.Size() != 2 {
		t.Errorf("size = %d, want 2", c.Size())
	}
}

func TestGetRefreshesRecency(t *testing.T) {
	c := NewQueryCache(2, time.Minute)
	c.Put("first", []domain.RetrievedChunk{{Text: "1"}})
	c.Put("second", []domain.RetrievedChunk{{Text: "2"}})

	// Touch "first" so "second" becomes the eviction candidate.
	if _, hit := c.Get("first"); !hit {
		t.Fatal("expected hit")
	}
	c.Put("third", []domain.RetrievedChunk{{Text: "3"}})

	if _, hit := c.Get("first"); !hit {
		t.Error("recently used entry must survive eviction")
	}
	if _, hit := c.Get("second"); hit {
		t.Error("least recently used entry must be evicted")
	}
}

func TestGetOnInvalidatedEntryKeepsOrderConsistent(t *testing.T) {
	c := NewQueryCache(2, time.Minute)
	c.Put("stale", []domain.RetrievedChunk{{Text: "old"}})
	c.Invalidate()

	// The miss must purge the entry without resurrecting its order slot.
	if _, hit := c.Get("stale"); hit {
		t.Fatal("expected miss after invalidation")
	}

	c.Put("a", []domain.RetrievedChunk{{Text: "a"}})
	c.Put("b", []domain.RetrievedChunk{{Text: "b"}})
	c.Put("c", []domain.RetrievedChunk{{Text: "c"}})

	if c.Size() != 2 {
		t.Errorf("size = %d, want 2", c.Size())
	}
	if _, hit := c.Get("a"); hit {
		t.Error("oldest live entry should have been evicted, not a ghost slot")
	}
	for _, q := range []string{"b", "c"} {
		if _, hit := c.Get(q); !hit {
			t.Errorf("entry %q lost to a stale order slot", q)
		}
	}
}

func TestDistinctQuestionsDoNotCollide(t *testing.T) {
	c := NewQueryCache(100, time.Minute)
	for i := 0; i < 20; i++ {
		q := fmt.Sprintf("question %d", i)
		c.Put(q, []domain.RetrievedChunk{{Text: q}})
	}
	for i := 0; i < 20; i++ {
		q := fmt.Sprintf("question %d", i)
		got, hit := c.Get(q)
		if !hit || got[0].Text != q {
			t.Fatalf("entry %q corrupted: %+v hit=%v", q, got, hit)
		}
	}
}
