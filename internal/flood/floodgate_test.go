package flood

import (
	"testing"
	"time"
)

func TestFloodgate_AllowsWithinLimit(t *testing.T) {
	fg := New(3)
	defer fg.Stop()

	for i := 0; i < 3; i++ {
		if !fg.Allow("user1") {
			t.Errorf("Import %d should be allowed", i+1)
		}
	}

	if fg.Allow("user1") {
		t.Error("4th import within the window should be blocked")
	}
}

func TestFloodgate_SlidingWindow(t *testing.T) {
	fg := New(2)
	defer fg.Stop()

	if !fg.Allow("user1") {
		t.Error("First import should be allowed")
	}
	if !fg.Allow("user1") {
		t.Error("Second import should be allowed")
	}
	if fg.Allow("user1") {
		t.Error("Third import should be blocked")
	}

	// Age the recorded timestamps past the window instead of sleeping.
	fg.mutex.Lock()
	if entry, exists := fg.entries["user1"]; exists {
		pastTime := time.Now().Add(-61 * time.Second)
		for i := range entry.timestamps {
			entry.timestamps[i] = pastTime
		}
	}
	fg.mutex.Unlock()

	if !fg.Allow("user1") {
		t.Error("Import after window slide should be allowed")
	}
}

func TestFloodgate_PerIdentity(t *testing.T) {
	fg := New(2)
	defer fg.Stop()

	for i := 0; i < 2; i++ {
		if !fg.Allow("user1") {
			t.Errorf("Import %d from user1 should be allowed", i+1)
		}
		if !fg.Allow("user2") {
			t.Errorf("Import %d from user2 should be allowed", i+1)
		}
	}

	if fg.Allow("user1") {
		t.Error("Extra import from user1 should be blocked")
	}
	if fg.Allow("user2") {
		t.Error("Extra import from user2 should be blocked")
	}
}

func TestFloodgate_GetStats(t *testing.T) {
	fg := New(5)
	defer fg.Stop()

	stats := fg.GetStats()
	if stats.ActiveIdentities != 0 {
		t.Errorf("Expected 0 active identities initially, got %d", stats.ActiveIdentities)
	}
	if stats.LimitPerMinute != 5 {
		t.Errorf("Expected limit per minute 5, got %d", stats.LimitPerMinute)
	}
	if stats.WindowSeconds != 60 {
		t.Errorf("Expected window seconds 60, got %d", stats.WindowSeconds)
	}

	fg.Allow("user1")
	fg.Allow("user2")

	stats = fg.GetStats()
	if stats.ActiveIdentities != 2 {
		t.Errorf("Expected 2 active identities, got %d", stats.ActiveIdentities)
	}
}

func TestFloodgate_ZeroLimit(t *testing.T) {
	fg := New(0)
	defer fg.Stop()

	if fg.Allow("user1") {
		t.Error("Import should be blocked with zero limit")
	}
}

func TestFloodgate_Cleanup(t *testing.T) {
	fg := New(1)
	defer fg.Stop()

	fg.Allow("user1")
	fg.Allow("user2")

	fg.mutex.Lock()
	fg.entries["user1"].lastSeen = time.Now().Add(-idleTimeout - time.Minute)
	fg.mutex.Unlock()

	fg.performCleanup()

	stats := fg.GetStats()
	if stats.ActiveIdentities != 1 {
		t.Errorf("Expected 1 identity after cleanup, got %d", stats.ActiveIdentities)
	}
}

func TestFloodgate_ConcurrentAccess(t *testing.T) {
	fg := New(10)
	defer fg.Stop()

	done := make(chan bool, 10)

	for i := 0; i < 10; i++ {
		go func() {
			for j := 0; j < 5; j++ {
				fg.Allow("user1")
				fg.GetStats()
			}
			done <- true
		}()
	}

	for i := 0; i < 10; i++ {
		<-done
	}

	stats := fg.GetStats()
	if stats.ActiveIdentities != 1 {
		t.Errorf("Expected 1 active identity, got %d", stats.ActiveIdentities)
	}
}
