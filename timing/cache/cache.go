// Package cache provides cache hierarchy modeling using Akita cache components.
//
// The caches track tags and line state only. Architectural data always lives
// in the emulator's memory, so a cache access answers one question: how many
// extra cycles does this reference cost.
package cache

import (
	"fmt"

	akitacache "github.com/sarchlab/akita/v4/mem/cache"
)

// Config holds cache configuration parameters.
type Config struct {
	// Size in bytes
	Size int `json:"size"`
	// Associativity (number of ways)
	Associativity int `json:"associativity"`
	// BlockSize in bytes (cache line size)
	BlockSize int `json:"block_size"`
	// HitLatency in cycles, added on top of the instruction latency
	HitLatency uint64 `json:"hit_latency"`
	// MissLatency in cycles (includes memory access time)
	MissLatency uint64 `json:"miss_latency"`
}

// DefaultL1IConfig returns default configuration for L1 instruction cache.
// Based on the R3000A: 4KB direct-mapped, 16B line.
func DefaultL1IConfig() Config {
	return Config{
		Size:          4 * 1024,
		Associativity: 1,
		BlockSize:     16,
		HitLatency:    0,
		MissLatency:   8,
	}
}

// DefaultL1DConfig returns default configuration for L1 data cache.
// Based on the R3000A: 4KB direct-mapped, 16B line.
func DefaultL1DConfig() Config {
	return Config{
		Size:          4 * 1024,
		Associativity: 1,
		BlockSize:     16,
		HitLatency:    0,
		MissLatency:   8,
	}
}

// Validate checks that the geometry describes at least one whole set.
func (c Config) Validate() error {
	if c.Size <= 0 || c.Associativity <= 0 || c.BlockSize <= 0 {
		return fmt.Errorf("cache size, associativity and block size must be > 0")
	}

	if c.BlockSize&(c.BlockSize-1) != 0 {
		return fmt.Errorf("cache block size %d is not a power of two", c.BlockSize)
	}

	if c.Size%(c.Associativity*c.BlockSize) != 0 {
		return fmt.Errorf("cache size %d is not a multiple of %d-way x %dB",
			c.Size, c.Associativity, c.BlockSize)
	}

	return nil
}

// AccessResult contains the result of a cache access.
type AccessResult struct {
	// Hit indicates whether the access was a cache hit.
	Hit bool
	// Latency is the number of cycles this access takes.
	Latency uint64
	// Evicted is true if a valid block was replaced.
	Evicted bool
	// EvictedAddr is the address of the evicted block (if Evicted is true).
	EvictedAddr uint32
	// Writeback is true if the evicted block was dirty.
	Writeback bool
}

// Statistics holds cache performance statistics.
type Statistics struct {
	Reads      uint64
	Writes     uint64
	Hits       uint64
	Misses     uint64
	Evictions  uint64
	Writebacks uint64
}

// HitRate returns the fraction of accesses that hit, or 0 with no accesses.
func (s Statistics) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

// Cache represents an L1 cache using Akita cache components.
type Cache struct {
	config Config

	// Akita cache directory for tag/state management
	directory *akitacache.DirectoryImpl

	stats Statistics
}

// New creates a new cache with the given configuration. The configuration
// must pass Validate.
func New(config Config) *Cache {
	numSets := config.Size / (config.Associativity * config.BlockSize)

	return &Cache{
		config: config,
		directory: akitacache.NewDirectory(
			numSets,
			config.Associativity,
			config.BlockSize,
			akitacache.NewLRUVictimFinder(),
		),
	}
}

// Config returns the cache configuration.
func (c *Cache) Config() Config {
	return c.config
}

// Stats returns cache statistics.
func (c *Cache) Stats() Statistics {
	return c.stats
}

// ResetStats clears cache statistics.
func (c *Cache) ResetStats() {
	c.stats = Statistics{}
}

func (c *Cache) blockAddr(addr uint32) uint64 {
	return uint64(addr) &^ uint64(c.config.BlockSize-1)
}

// Read performs a cache read of the line holding addr.
func (c *Cache) Read(addr uint32) AccessResult {
	c.stats.Reads++
	return c.access(addr, false)
}

// Write performs a cache write of the line holding addr.
// Uses write-allocate policy: on miss, the line is filled, then marked dirty.
func (c *Cache) Write(addr uint32) AccessResult {
	c.stats.Writes++
	return c.access(addr, true)
}

func (c *Cache) access(addr uint32, isWrite bool) AccessResult {
	blockAddr := c.blockAddr(addr)

	block := c.directory.Lookup(0, blockAddr)
	if block != nil && block.IsValid {
		c.stats.Hits++
		c.directory.Visit(block)
		if isWrite {
			block.IsDirty = true
		}

		return AccessResult{
			Hit:     true,
			Latency: c.config.HitLatency,
		}
	}

	c.stats.Misses++
	return c.handleMiss(blockAddr, isWrite)
}

// handleMiss allocates a line for blockAddr.
func (c *Cache) handleMiss(blockAddr uint64, isWrite bool) AccessResult {
	result := AccessResult{
		Hit:     false,
		Latency: c.config.MissLatency,
	}

	victim := c.directory.FindVictim(blockAddr)
	if victim == nil {
		return result
	}

	if victim.IsValid {
		c.stats.Evictions++
		result.Evicted = true
		result.EvictedAddr = uint32(victim.Tag)

		if victim.IsDirty {
			c.stats.Writebacks++
			result.Writeback = true
		}
	}

	// Tag stores the block-aligned address
	victim.Tag = blockAddr
	victim.IsValid = true
	victim.IsDirty = isWrite

	c.directory.Visit(victim)

	return result
}

// Contains reports whether the line holding addr is resident. It does not
// update replacement state or statistics.
func (c *Cache) Contains(addr uint32) bool {
	block := c.directory.Lookup(0, c.blockAddr(addr))
	return block != nil && block.IsValid
}

// Invalidate marks a cache line as invalid.
func (c *Cache) Invalidate(addr uint32) {
	block := c.directory.Lookup(0, c.blockAddr(addr))
	if block != nil && block.IsValid {
		block.IsValid = false
		block.IsDirty = false
	}
}

// Flush writes back all dirty blocks and invalidates them. It returns the
// number of lines written back.
func (c *Cache) Flush() uint64 {
	var written uint64

	for _, set := range c.directory.GetSets() {
		for _, block := range set.Blocks {
			if block.IsValid && block.IsDirty {
				written++
			}
			block.IsValid = false
			block.IsDirty = false
		}
	}

	c.stats.Writebacks += written

	return written
}

// Reset invalidates all cache lines without writeback.
func (c *Cache) Reset() {
	c.directory.Reset()
	c.stats = Statistics{}
}
