package object

// Table is an open-addressed hash table keyed by interned strings, used both
// for the VM's global variable table and, with values ignored, as the
// string-interning set. It uses linear probing with tombstones, load factor
// 0.75, and geometric growth starting at capacity 8.
//
// An empty slot has key == nil and value.IsNil(); a tombstone (a deleted
// slot, left behind so that later probes don't mistake a cleared chain for
// an empty one) has key == nil and value equal to Bool(true). Lookup walks
// the probe sequence until it finds the key or a genuinely empty slot.
type Table struct {
	count   int
	entries []entry
}

type entry struct {
	key   *ObjString
	value Value
}

const tableMaxLoad = 0.75

// Count returns the number of occupied slots: live entries plus the
// tombstones Delete has left behind since the last resize.
func (t *Table) Count() int { return t.count }

func (t *Table) findEntry(entries []entry, key *ObjString) *entry {
	index := key.hash % uint32(len(entries))
	var tombstone *entry
	for {
		e := &entries[index]
		switch {
		case e.key == nil:
			if e.value.IsNil() {
				// Empty slot: end of probe sequence.
				if tombstone != nil {
					return tombstone
				}
				return e
			}
			// Tombstone: remember the first one seen, keep probing.
			if tombstone == nil {
				tombstone = e
			}
		case e.key == key:
			return e
		}
		index = (index + 1) % uint32(len(entries))
	}
}

func growCapacity(cap int) int {
	if cap < 8 {
		return 8
	}
	return cap * 2
}

func (t *Table) adjustCapacity(cap int) {
	entries := make([]entry, cap)
	for i := range entries {
		entries[i].value = Nil
	}

	t.count = 0
	for i := range t.entries {
		old := &t.entries[i]
		if old.key == nil {
			continue
		}
		dest := t.findEntry(entries, old.key)
		dest.key = old.key
		dest.value = old.value
		t.count++
	}
	t.entries = entries
}

// Set stores value under key, growing the table first if needed. It reports
// whether key was not already present.
func (t *Table) Set(key *ObjString, value Value) bool {
	if float64(t.count+1) > float64(len(t.entries))*tableMaxLoad {
		t.adjustCapacity(growCapacity(len(t.entries)))
	}

	e := t.findEntry(t.entries, key)
	isNewKey := e.key == nil
	if isNewKey && e.value.IsNil() {
		t.count++
	}
	e.key = key
	e.value = value
	return isNewKey
}

// Get returns the value stored under key, if any.
func (t *Table) Get(key *ObjString) (Value, bool) {
	if t.count == 0 {
		return Nil, false
	}
	e := t.findEntry(t.entries, key)
	if e.key == nil {
		return Nil, false
	}
	return e.value, true
}

// Delete removes key, leaving a tombstone behind, and reports whether the
// key was present.
func (t *Table) Delete(key *ObjString) bool {
	if t.count == 0 {
		return false
	}
	e := t.findEntry(t.entries, key)
	if e.key == nil {
		return false
	}
	e.key = nil
	e.value = Bool(true) // tombstone marker
	return true
}

// FindString looks up the interned string with the given content and
// precomputed hash, returning nil if no such string has been interned. It
// terminates its probe on a non-tombstone empty slot, exactly like Get, but
// compares slot keys by content rather than by pointer since the caller does
// not yet have a candidate *ObjString to compare by identity.
func (t *Table) FindString(s string, hash uint32) *ObjString {
	if t.count == 0 {
		return nil
	}
	index := hash % uint32(len(t.entries))
	for {
		e := &t.entries[index]
		if e.key == nil {
			if e.value.IsNil() {
				return nil
			}
		} else if e.key.hash == hash && len(e.key.s) == len(s) && e.key.s == s {
			return e.key
		}
		index = (index + 1) % uint32(len(t.entries))
	}
}
