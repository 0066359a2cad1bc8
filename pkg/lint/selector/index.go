package selector

// Entry is one registered selector alternative with its payload.
type Entry[T any] struct {
	Selector *Selector
	// Group is shared by the alternatives of one selector string so a
	// listener fires at most once per node and edge.
	Group int
	Value T
	seq   int
}

// Index groups entries by the kind of their right-most compound so that
// dispatch only tests selectors that can possibly match a node.
type Index[T any] struct {
	enter  map[string][]*Entry[T]
	exit   map[string][]*Entry[T]
	seq    int
	groups int
}

// NewIndex creates an empty index.
func NewIndex[T any]() *Index[T] {
	return &Index[T]{
		enter: make(map[string][]*Entry[T]),
		exit:  make(map[string][]*Entry[T]),
	}
}

// Add registers the alternatives of one selector string. Registration order
// is dispatch order.
func (ix *Index[T]) Add(sels []*Selector, value T) {
	group := ix.groups
	ix.groups++
	for _, s := range sels {
		e := &Entry[T]{Selector: s, Group: group, Value: value, seq: ix.seq}
		ix.seq++
		buckets := ix.enter
		if s.Exit() {
			buckets = ix.exit
		}
		buckets[s.Kind()] = append(buckets[s.Kind()], e)
	}
}

// Len returns the number of registered alternatives.
func (ix *Index[T]) Len() int { return ix.seq }

// Has reports whether anything is registered for kind on the given edge,
// wildcards excluded.
func (ix *Index[T]) Has(kind string, exit bool) bool {
	if exit {
		return len(ix.exit[kind]) > 0
	}
	return len(ix.enter[kind]) > 0
}

// Candidates calls fn, in registration order, for every entry that may
// match a node of the given kind: the entries indexed under kind followed
// by the wildcard entries, merged by sequence number.
func (ix *Index[T]) Candidates(kind string, exit bool, fn func(e *Entry[T])) {
	buckets := ix.enter
	if exit {
		buckets = ix.exit
	}
	merge(buckets[kind], buckets[""], fn)
}

// Exact is Candidates without the wildcard bucket. It serves the virtual
// Program events, which "*" does not observe.
func (ix *Index[T]) Exact(kind string, exit bool, fn func(e *Entry[T])) {
	buckets := ix.enter
	if exit {
		buckets = ix.exit
	}
	for _, e := range buckets[kind] {
		fn(e)
	}
}

func merge[T any](a, b []*Entry[T], fn func(e *Entry[T])) {
	i, j := 0, 0
	for i < len(a) || j < len(b) {
		if j >= len(b) || (i < len(a) && a[i].seq < b[j].seq) {
			fn(a[i])
			i++
		} else {
			fn(b[j])
			j++
		}
	}
}
