// Package core provides the timing model that drives the emulator's cycle
// counter. It combines the per-class latency table with optional L1
// instruction and data caches.
package core

import (
	"github.com/sarchlab/mipsim/emu"
	"github.com/sarchlab/mipsim/insts"
	"github.com/sarchlab/mipsim/timing/cache"
	"github.com/sarchlab/mipsim/timing/latency"
)

// Stats holds performance statistics for the core.
type Stats struct {
	// Cycles is the total number of cycles charged.
	Cycles uint64
	// Instructions is the number of instructions charged.
	Instructions uint64
	// Stalls is the number of cycles spent in the caches.
	Stalls uint64
	// ICache and DCache hold the cache statistics of enabled caches.
	ICache cache.Statistics
	DCache cache.Statistics
}

// CPI returns cycles per instruction, or 0 before any instruction.
func (s Stats) CPI() float64 {
	if s.Instructions == 0 {
		return 0
	}
	return float64(s.Cycles) / float64(s.Instructions)
}

// Model charges cycles per instruction. It implements emu.CycleModel.
type Model struct {
	table  *latency.Table
	icache *cache.Cache
	dcache *cache.Cache

	stats Stats
}

var _ emu.CycleModel = (*Model)(nil)

// ModelOption configures a Model.
type ModelOption func(*Model)

// WithLatencyTable sets the latency table.
func WithLatencyTable(table *latency.Table) ModelOption {
	return func(m *Model) {
		m.table = table
	}
}

// WithICache enables an instruction cache with the given configuration.
func WithICache(config cache.Config) ModelOption {
	return func(m *Model) {
		m.icache = cache.New(config)
	}
}

// WithDCache enables a data cache with the given configuration.
func WithDCache(config cache.Config) ModelOption {
	return func(m *Model) {
		m.dcache = cache.New(config)
	}
}

// NewModel creates a Model. Without options it uses the default latency
// table and no caches.
func NewModel(opts ...ModelOption) *Model {
	m := &Model{}
	for _, opt := range opts {
		opt(m)
	}

	if m.table == nil {
		m.table = latency.NewTable()
	}

	return m
}

// Cycles returns the cost of one instruction: its class latency plus the
// fetch cost in the instruction cache plus, for loads and stores, the access
// cost in the data cache.
func (m *Model) Cycles(
	pc uint32,
	inst *insts.Instruction,
	ctrl insts.ControlSignals,
	dataAddr uint32,
) uint64 {
	cycles := m.table.GetLatency(inst)

	var stall uint64

	if m.icache != nil {
		stall += m.icache.Read(pc).Latency
	}

	if m.dcache != nil {
		switch ctrl.Mem {
		case insts.MemRead:
			stall += m.dcache.Read(dataAddr).Latency
		case insts.MemWrite:
			stall += m.dcache.Write(dataAddr).Latency
		}
	}

	cycles += stall

	m.stats.Cycles += cycles
	m.stats.Stalls += stall
	m.stats.Instructions++

	return cycles
}

// Table returns the latency table.
func (m *Model) Table() *latency.Table {
	return m.table
}

// ICache returns the instruction cache, or nil if disabled.
func (m *Model) ICache() *cache.Cache {
	return m.icache
}

// DCache returns the data cache, or nil if disabled.
func (m *Model) DCache() *cache.Cache {
	return m.dcache
}

// Stats returns performance statistics for the core.
func (m *Model) Stats() Stats {
	s := m.stats
	if m.icache != nil {
		s.ICache = m.icache.Stats()
	}
	if m.dcache != nil {
		s.DCache = m.dcache.Stats()
	}
	return s
}

// Reset clears statistics and empties the caches.
func (m *Model) Reset() {
	m.stats = Stats{}
	if m.icache != nil {
		m.icache.Reset()
	}
	if m.dcache != nil {
		m.dcache.Reset()
	}
}
