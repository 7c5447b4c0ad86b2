package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCache_PutAndLookup(t *testing.T) {
	c := NewCache(10)
	c.Put(Entry{Identifier: "TAG1", Status: StatusAccepted, Method: MethodRemote, ExpiresAt: time.Now().Add(time.Hour)})

	status, found := c.Lookup("TAG1")
	assert.True(t, found)
	assert.Equal(t, StatusAccepted, status)
}

func TestCache_LookupMissingReturnsNotFound(t *testing.T) {
	c := NewCache(10)
	_, found := c.Lookup("NOPE")
	assert.False(t, found)
}

func TestCache_LookupPurgesExpiredEntry(t *testing.T) {
	c := NewCache(10)
	c.Put(Entry{Identifier: "TAG1", Status: StatusAccepted, ExpiresAt: time.Now().Add(-time.Second)})

	_, found := c.Lookup("TAG1")
	assert.False(t, found)
	assert.Equal(t, 0, c.Len(), "an expired entry must be purged, not just hidden")
}

func TestCache_EvictsOldestWhenOverCapacity(t *testing.T) {
	c := NewCache(2)
	future := time.Now().Add(time.Hour)
	c.Put(Entry{Identifier: "TAG1", Status: StatusAccepted, ExpiresAt: future})
	c.Put(Entry{Identifier: "TAG2", Status: StatusAccepted, ExpiresAt: future})
	c.Put(Entry{Identifier: "TAG3", Status: StatusAccepted, ExpiresAt: future})

	assert.Equal(t, 2, c.Len())
	_, found := c.Lookup("TAG1")
	assert.False(t, found, "oldest entry should have been evicted")
	_, found = c.Lookup("TAG3")
	assert.True(t, found)
}

func TestCache_PutReplacesExistingEntryWithoutDuplicatingOrder(t *testing.T) {
	c := NewCache(2)
	future := time.Now().Add(time.Hour)
	c.Put(Entry{Identifier: "TAG1", Status: StatusAccepted, ExpiresAt: future})
	c.Put(Entry{Identifier: "TAG1", Status: StatusBlocked, ExpiresAt: future})

	assert.Equal(t, 1, c.Len())
	status, found := c.Lookup("TAG1")
	assert.True(t, found)
	assert.Equal(t, StatusBlocked, status)
}

func TestCache_Clear(t *testing.T) {
	c := NewCache(10)
	c.Put(Entry{Identifier: "TAG1", Status: StatusAccepted, ExpiresAt: time.Now().Add(time.Hour)})
	c.Clear()
	assert.Equal(t, 0, c.Len())
}
