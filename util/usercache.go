package util

import (
	"container/list"
	"os"
	"strconv"
	"sync"

	"gorm.io/gorm"
)

// LRU cache for userID -> notification recipient (first name + email).
// The booking and cancellation paths look recipients up on every send, so
// hot users are served from memory instead of the users table.
type recipientEntry struct {
	userID    uint
	firstName string
	email     string
}

type recipientLRU struct {
	mu       sync.Mutex
	ll       *list.List
	cache    map[uint]*list.Element
	capacity int
}

var recipientCache *recipientLRU

// InitRecipientCache initializes the LRU cache with given capacity.
// If capacity <= 0, a default of 1000 is used.
func InitRecipientCache(capacity int) {
	if capacity <= 0 {
		capacity = 1000
	}
	recipientCache = &recipientLRU{
		ll:       list.New(),
		cache:    make(map[uint]*list.Element),
		capacity: capacity,
	}
}

// RecipientCacheGet returns first name, email and true if present in cache.
func RecipientCacheGet(userID uint) (string, string, bool) {
	if recipientCache == nil {
		return "", "", false
	}
	recipientCache.mu.Lock()
	defer recipientCache.mu.Unlock()
	if ele, ok := recipientCache.cache[userID]; ok {
		recipientCache.ll.MoveToFront(ele)
		if e, ok := ele.Value.(recipientEntry); ok {
			return e.firstName, e.email, true
		}
	}
	return "", "", false
}

// RecipientCacheSet stores the recipient details for a userID.
func RecipientCacheSet(userID uint, firstName, email string) {
	if recipientCache == nil {
		return
	}
	recipientCache.mu.Lock()
	defer recipientCache.mu.Unlock()
	if ele, ok := recipientCache.cache[userID]; ok {
		recipientCache.ll.MoveToFront(ele)
		ele.Value = recipientEntry{userID: userID, firstName: firstName, email: email}
		return
	}
	ele := recipientCache.ll.PushFront(recipientEntry{userID: userID, firstName: firstName, email: email})
	recipientCache.cache[userID] = ele
	if recipientCache.ll.Len() > recipientCache.capacity {
		// evict least recently used
		tail := recipientCache.ll.Back()
		if tail != nil {
			if e, ok := tail.Value.(recipientEntry); ok {
				delete(recipientCache.cache, e.userID)
			}
			recipientCache.ll.Remove(tail)
		}
	}
}

// RecipientCacheInvalidate drops a user from the cache. Call it whenever the
// user's name or email changes so stale details are not mailed.
func RecipientCacheInvalidate(userID uint) {
	if recipientCache == nil {
		return
	}
	recipientCache.mu.Lock()
	defer recipientCache.mu.Unlock()
	if ele, ok := recipientCache.cache[userID]; ok {
		delete(recipientCache.cache, userID)
		recipientCache.ll.Remove(ele)
	}
}

// GetNotificationRecipient returns the first name and email for userID using
// the cache, falling back to the DB. If found in DB, caches the result.
func GetNotificationRecipient(db *gorm.DB, userID uint) (string, string) {
	if userID == 0 {
		return "", ""
	}
	if name, email, ok := RecipientCacheGet(userID); ok {
		return name, email
	}
	if db == nil {
		return "", ""
	}
	var u struct {
		FirstName string
		Email     string
	}
	if err := db.Table("users").Select("first_name, email").Where("id = ?", userID).Take(&u).Error; err == nil {
		if u.Email != "" {
			RecipientCacheSet(userID, u.FirstName, u.Email)
		}
		return u.FirstName, u.Email
	}
	return "", ""
}

// InitRecipientCacheFromEnv initializes the cache using the env var RECIPIENT_CACHE_SIZE
func InitRecipientCacheFromEnv() {
	sizeStr := os.Getenv("RECIPIENT_CACHE_SIZE")
	if sizeStr == "" {
		InitRecipientCache(0)
		return
	}
	if n, err := strconv.Atoi(sizeStr); err == nil {
		InitRecipientCache(n)
		return
	}
	InitRecipientCache(0)
}
