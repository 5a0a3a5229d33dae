package trace

import "strconv"

// StringTable maps indices to names. Nsight emits it as `data` fragments
// numbered from zero, and events refer to entries by their index.
type StringTable struct {
	base  int
	names map[int]string
}

// NewStringTable creates an empty table whose fragments are numbered from base.
func NewStringTable(base int) *StringTable {
	return &StringTable{
		base:  base,
		names: make(map[int]string),
	}
}

// Load stores a fragment. Later entries for the same index win.
func (t *StringTable) Load(fragment []string) {
	for i, name := range fragment {
		t.names[t.base+i] = name
	}
}

// Resolve returns the name stored at the index name refers to. Names that
// aren't indices, or indices the table doesn't know about, are returned as is.
func (t *StringTable) Resolve(name string) string {
	if !isIndex(name) {
		return name
	}
	i, err := strconv.Atoi(name)
	if err != nil {
		return name
	}
	if resolved, ok := t.Lookup(i); ok {
		return resolved
	}
	return name
}

// Lookup returns the name stored at index i.
func (t *StringTable) Lookup(i int) (string, bool) {
	name, ok := t.names[i]
	return name, ok
}

// Len returns the number of distinct indices loaded so far.
func (t *StringTable) Len() int {
	return len(t.names)
}

func isIndex(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
