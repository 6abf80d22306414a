package store

import "sync"

// intList is a growable int32 array guarded by its own lock. Node blocks,
// edge blocks and the three numeric pools are each one intList, so appends
// to different collections never contend.
type intList struct {
	mu   sync.RWMutex
	data []int32
}

// appendBlock appends vals and returns the position of the first one.
func (l *intList) appendBlock(vals []int32) int64 {
	l.mu.Lock()
	pos := int64(len(l.data))
	l.data = append(l.data, vals...)
	l.mu.Unlock()
	return pos
}

// read copies n values starting at pos into dst.
func (l *intList) read(dst []int32, pos int64) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if pos < 0 || pos+int64(len(dst)) > int64(len(l.data)) {
		return false
	}
	copy(dst, l.data[pos:])
	return true
}

func (l *intList) get(pos int64) (int32, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if pos < 0 || pos >= int64(len(l.data)) {
		return 0, false
	}
	return l.data[pos], true
}

// write overwrites values in place starting at pos.
func (l *intList) write(pos int64, vals ...int32) {
	l.mu.Lock()
	copy(l.data[pos:], vals)
	l.mu.Unlock()
}

func (l *intList) size() int64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return int64(len(l.data))
}

func (l *intList) snapshot() []int32 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]int32, len(l.data))
	copy(out, l.data)
	return out
}

func (l *intList) reset(data []int32) {
	l.mu.Lock()
	l.data = data
	l.mu.Unlock()
}

// intPool stores length-prefixed entries: [n, payload(n*stride)...].
// Cost vectors use stride 1, geometries stride 2 (lat, lon per point).
// A negative length marks an entry replaced by a newer one.
type intPool struct {
	intList
	stride int
}

// store appends vals and returns the entry offset, or None when vals is
// empty.
func (p *intPool) store(vals []int32) int64 {
	if len(vals) == 0 {
		return None
	}
	entry := make([]int32, 0, len(vals)+1)
	entry = append(entry, int32(len(vals)/p.stride))
	entry = append(entry, vals...)
	return p.appendBlock(entry)
}

// length returns the entry length at idx. Tombstoned and dangling
// references report false.
func (p *intPool) length(idx int64) (int, bool) {
	if idx < 0 {
		return 0, false
	}
	n, ok := p.get(idx)
	if !ok || n < 0 {
		return 0, false
	}
	return int(n), true
}

// load decodes the payload of the entry at idx.
func (p *intPool) load(idx int64) ([]int32, bool) {
	n, ok := p.length(idx)
	if !ok {
		return nil, false
	}
	vals := make([]int32, n*p.stride)
	if !p.read(vals, idx+1) {
		return nil, false
	}
	return vals, true
}

// at returns payload element i of the entry at idx.
func (p *intPool) at(idx int64, i int) (int32, bool) {
	return p.get(idx + 1 + int64(i))
}

// tombstone negates the length of the entry at idx. Already dead or
// empty entries are left alone.
func (p *intPool) tombstone(idx int64) {
	if idx < 0 {
		return
	}
	p.mu.Lock()
	if idx < int64(len(p.data)) && p.data[idx] > 0 {
		p.data[idx] = -p.data[idx]
	}
	p.mu.Unlock()
}

// replace stores vals as a new entry and tombstones old. The caller owns
// updating the record pointer to the returned offset.
func (p *intPool) replace(old int64, vals []int32) int64 {
	idx := p.store(vals)
	p.tombstone(old)
	return idx
}

// stringPool is the label store: one string per entry.
type stringPool struct {
	mu   sync.RWMutex
	data []string
}

// store appends s and returns its index, or None for the empty string.
func (p *stringPool) store(s string) int64 {
	if s == "" {
		return None
	}
	p.mu.Lock()
	idx := int64(len(p.data))
	p.data = append(p.data, s)
	p.mu.Unlock()
	return idx
}

func (p *stringPool) load(idx int64) (string, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if idx < 0 || idx >= int64(len(p.data)) {
		return "", false
	}
	return p.data[idx], true
}

func (p *stringPool) snapshot() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]string, len(p.data))
	copy(out, p.data)
	return out
}

func (p *stringPool) reset(data []string) {
	p.mu.Lock()
	p.data = data
	p.mu.Unlock()
}

func (p *stringPool) size() int64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return int64(len(p.data))
}
