package agent

import (
	"sync"
	"testing"
)

func TestRegistryDeduplicatesByURL(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		same bool
	}{
		{"identical", "https://example.com/page", "https://example.com/page", true},
		{"scheme difference", "http://example.com/page", "https://example.com/page", true},
		{"trailing slash", "https://example.com/page/", "https://example.com/page", true},
		{"case difference", "https://Example.com/Page", "https://example.com/page", true},
		{"different path", "https://example.com/a", "https://example.com/b", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := NewSourceRegistry()
			first := reg.Register(tt.a, "title")
			second := reg.Register(tt.b, "title")
			if (first.ID == second.ID) != tt.same {
				t.Errorf("Register(%q) vs Register(%q): same id = %v, want %v",
					tt.a, tt.b, first.ID == second.ID, tt.same)
			}
		})
	}
}

func TestRegistryBackfillsTitle(t *testing.T) {
	reg := NewSourceRegistry()
	reg.Register("https://example.com", "")
	src := reg.Register("https://example.com", "Example Title")
	if src.Title != "Example Title" {
		t.Errorf("title = %q, want backfilled title", src.Title)
	}
	if reg.Len() != 1 {
		t.Errorf("len = %d, want 1", reg.Len())
	}
}

func TestRegistryKeepsInsertionOrder(t *testing.T) {
	reg := NewSourceRegistry()
	urls := []string{"https://a.com", "https://b.com", "https://c.com"}
	for _, u := range urls {
		reg.Register(u, "")
	}
	all := reg.All()
	if len(all) != len(urls) {
		t.Fatalf("len = %d, want %d", len(all), len(urls))
	}
	for i, src := range all {
		if src.URL != urls[i] {
			t.Errorf("position %d: got %q, want %q", i, src.URL, urls[i])
		}
	}
}

func TestRegistryConcurrentRegistration(t *testing.T) {
	reg := NewSourceRegistry()
	const workers = 32

	var wg sync.WaitGroup
	ids := make([]string, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ids[i] = reg.Register("https://example.com/contested", "t").ID
		}(i)
	}
	wg.Wait()

	if reg.Len() != 1 {
		t.Fatalf("len = %d, want 1 after concurrent registration of one URL", reg.Len())
	}
	for _, id := range ids[1:] {
		if id != ids[0] {
			t.Fatalf("concurrent registration produced divergent ids")
		}
	}
}
