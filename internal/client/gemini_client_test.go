package client

import (
	"strconv"
	"sync"
	"testing"

	"github.com/samvilian/gemini-proxy-panel3/internal/config"
)

func TestCredentialsUseAPIKeysWithoutOAuth(t *testing.T) {
	c := NewGeminiClient(&config.Config{GlAPIKey: []string{"key-a", "key-b"}})

	keys := c.snapshot().credentials()
	if len(keys) != 2 || keys[0] != "key-a" || keys[1] != "key-b" {
		t.Fatalf("expected configured API keys, got %v", keys)
	}
}

func TestCredentialsUseSingleBearerWithOAuth(t *testing.T) {
	c := NewGeminiClient(&config.Config{
		GlAPIKey: []string{"key-a"},
		GeminiOAuth: config.GeminiOAuth{
			ClientID:     "id",
			ClientSecret: "secret",
			RefreshToken: "refresh",
		},
	})

	keys := c.snapshot().credentials()
	if len(keys) != 1 || keys[0] != "" {
		t.Fatalf("expected one bearer credential, got %v", keys)
	}
}

// Exercised with -race: request goroutines snapshot the client state while
// the watcher swaps it on hot reload.
func TestUpdateConfigConcurrentWithSnapshots(t *testing.T) {
	c := NewGeminiClient(&config.Config{GlAPIKey: []string{"key-0"}})

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				st := c.snapshot()
				if st.httpClient == nil {
					t.Error("snapshot has nil http client")
					return
				}
				if len(st.credentials()) == 0 {
					t.Error("snapshot has no credentials")
					return
				}
			}
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		for j := 0; j < 100; j++ {
			c.UpdateConfig(&config.Config{GlAPIKey: []string{"key-" + strconv.Itoa(j)}})
		}
	}()
	wg.Wait()

	if got := c.snapshot().credentials()[0]; got != "key-99" {
		t.Errorf("expected final key key-99, got %s", got)
	}
}
