package cache

import (
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

var ErrKeyExists = errors.New("key already exists in cache")

// Cache is a weight-bounded LRU cache whose entries expire after a TTL.
type Cache interface {
	SetVerbose(verbose bool)
	GetWeight() int
	GetBudget() int
	Insert(key string, value interface{}, weight int) error
	Upsert(key string, value interface{}, weight int)
	Retrieve(key string) (interface{}, bool)
	Delete(key string)
	Clear()
}

type cacheNode struct {
	next      *cacheNode
	prev      *cacheNode
	key       string
	value     interface{}
	weight    int
	expiresAt time.Time
}

type cache struct {
	log     *logrus.Entry
	now     func() time.Time
	ttl     time.Duration
	head    *cacheNode
	tail    *cacheNode
	lookup  map[string]*cacheNode
	weight  int
	budget  int
	verbose bool
	mutex   sync.Mutex
}

// NewCache returns a cache with the given weight budget. A zero ttl disables
// expiry.
func NewCache(budget int, ttl time.Duration) Cache {
	return newCache(budget, ttl, time.Now)
}

func newCache(budget int, ttl time.Duration, now func() time.Time) *cache {
	return &cache{
		log:    logrus.StandardLogger().WithField("type", "cache"),
		now:    now,
		ttl:    ttl,
		lookup: make(map[string]*cacheNode),
		budget: budget,
	}
}

func (c *cache) SetVerbose(verbose bool) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.verbose = verbose
}

func (c *cache) GetWeight() int {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.weight
}

func (c *cache) GetBudget() int {
	return c.budget
}

// Insert adds a new entry. Inserting a live key is an error.
func (c *cache) Insert(key string, value interface{}, weight int) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if node, found := c.lookup[key]; found {
		if !c.isExpired(node) {
			return ErrKeyExists
		}
		c.remove(node)
	}

	c.pushFront(key, value, weight)
	return nil
}

// Upsert adds the entry, replacing any existing value under key.
func (c *cache) Upsert(key string, value interface{}, weight int) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if node, found := c.lookup[key]; found {
		c.remove(node)
	}

	c.pushFront(key, value, weight)
}

// Retrieve returns the live entry for key and marks it recently used.
func (c *cache) Retrieve(key string) (interface{}, bool) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	node, found := c.lookup[key]
	if !found {
		return nil, false
	}

	if c.isExpired(node) {
		c.remove(node)
		return nil, false
	}

	if node != c.head {
		c.unlink(node)
		c.linkFront(node)
	}

	return node.value, true
}

func (c *cache) Delete(key string) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if node, found := c.lookup[key]; found {
		c.remove(node)
	}
}

func (c *cache) Clear() {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.head = nil
	c.tail = nil
	c.lookup = make(map[string]*cacheNode)
	c.weight = 0
}

func (c *cache) isExpired(node *cacheNode) bool {
	return !node.expiresAt.IsZero() && !c.now().Before(node.expiresAt)
}

func (c *cache) pushFront(key string, value interface{}, weight int) {
	node := &cacheNode{
		key:    key,
		value:  value,
		weight: weight,
	}
	if c.ttl > 0 {
		node.expiresAt = c.now().Add(c.ttl)
	}

	c.linkFront(node)
	c.lookup[key] = node
	c.weight += weight

	for c.weight > c.budget && c.tail != nil {
		evicted := c.tail
		c.remove(evicted)

		if c.verbose {
			c.log.WithFields(logrus.Fields{
				"key":          evicted.key,
				"weight":       evicted.weight,
				"spare_weight": c.budget - c.weight,
			}).Debug("evicted cache entry")
		}
	}
}

func (c *cache) remove(node *cacheNode) {
	c.unlink(node)
	delete(c.lookup, node.key)
	c.weight -= node.weight
}

func (c *cache) linkFront(node *cacheNode) {
	node.prev = nil
	node.next = c.head
	if c.head != nil {
		c.head.prev = node
	}
	c.head = node
	if c.tail == nil {
		c.tail = node
	}
}

func (c *cache) unlink(node *cacheNode) {
	if node.prev != nil {
		node.prev.next = node.next
	} else {
		c.head = node.next
	}
	if node.next != nil {
		node.next.prev = node.prev
	} else {
		c.tail = node.prev
	}
	node.next = nil
	node.prev = nil
}
