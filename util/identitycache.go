package util

import (
	"container/list"
	"sync"

	"github.com/ariebrainware/telemed-api/model"
	"gorm.io/gorm"
)

const defaultIdentityCacheSize = 1000

type identityKey struct {
	role string
	id   uint
}

type identityEntry struct {
	key   identityKey
	email string
}

// identityLRU maps (role, id) to the account email, evicting the least
// recently used entry once capacity is reached.
type identityLRU struct {
	mu       sync.Mutex
	ll       *list.List
	cache    map[identityKey]*list.Element
	capacity int
}

var (
	identityCacheMu sync.RWMutex
	identityCache   *identityLRU
)

// InitIdentityEmailCache initializes the LRU cache with given capacity.
// If capacity <= 0, a default of 1000 is used.
func InitIdentityEmailCache(capacity int) {
	if capacity <= 0 {
		capacity = defaultIdentityCacheSize
	}
	identityCacheMu.Lock()
	defer identityCacheMu.Unlock()
	identityCache = &identityLRU{
		ll:       list.New(),
		cache:    make(map[identityKey]*list.Element),
		capacity: capacity,
	}
}

func currentIdentityCache() *identityLRU {
	identityCacheMu.RLock()
	defer identityCacheMu.RUnlock()
	return identityCache
}

// IdentityEmailCacheGet returns the cached email of an account.
func IdentityEmailCacheGet(role string, id uint) (string, bool) {
	c := currentIdentityCache()
	if c == nil {
		return "", false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if ele, ok := c.cache[identityKey{role, id}]; ok {
		c.ll.MoveToFront(ele)
		return ele.Value.(identityEntry).email, true
	}
	return "", false
}

// IdentityEmailCacheSet stores the email of an account.
func IdentityEmailCacheSet(role string, id uint, email string) {
	c := currentIdentityCache()
	if c == nil {
		return
	}
	key := identityKey{role, id}
	c.mu.Lock()
	defer c.mu.Unlock()
	if ele, ok := c.cache[key]; ok {
		c.ll.MoveToFront(ele)
		ele.Value = identityEntry{key: key, email: email}
		return
	}
	c.cache[key] = c.ll.PushFront(identityEntry{key: key, email: email})
	if c.ll.Len() > c.capacity {
		tail := c.ll.Back()
		delete(c.cache, tail.Value.(identityEntry).key)
		c.ll.Remove(tail)
	}
}

// IdentityEmailCacheDelete drops an entry, used after an email change.
func IdentityEmailCacheDelete(role string, id uint) {
	c := currentIdentityCache()
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if ele, ok := c.cache[identityKey{role, id}]; ok {
		delete(c.cache, identityKey{role, id})
		c.ll.Remove(ele)
	}
}

// GetIdentityEmail returns the email of an account, using the cache and
// falling back to the patients or doctors table.
func GetIdentityEmail(db *gorm.DB, role string, id uint) string {
	if id == 0 {
		return ""
	}
	if email, ok := IdentityEmailCacheGet(role, id); ok {
		return email
	}
	if db == nil {
		return ""
	}

	var target interface{}
	switch role {
	case model.RolePatient:
		target = &model.Patient{}
	case model.RoleDoctor:
		target = &model.Doctor{}
	default:
		return ""
	}
	var row struct{ Email string }
	if err := db.Model(target).Select("email").Where("id = ?", id).Take(&row).Error; err != nil {
		return ""
	}
	if row.Email != "" {
		IdentityEmailCacheSet(role, id, row.Email)
	}
	return row.Email
}
