package plan

// NodeKind classifies a node of the task hierarchy.
type NodeKind int

const (
	KindGroup NodeKind = iota // Mapping without "recipes": holds child nodes
	KindTask                  // Mapping with "recipes": a schedulable task
)

func (k NodeKind) String() string {
	if k == KindTask {
		return "task"
	}
	return "group"
}

// Separator joins a group path and a child name.
const Separator = "."

// Node is one entry of the task hierarchy. Name is the qualified name.
type Node struct {
	Name     string
	Kind     NodeKind
	Children []*Node  // KindGroup only
	Spec     *TaskSpec // KindTask only
}

// Entry is a flattened task: its qualified name and definition.
type Entry struct {
	Name string
	Spec *TaskSpec
}

// classify decides a node's kind before it is descended into.
func classify(v any) (NodeKind, bool) {
	obj, ok := v.(object)
	if !ok {
		return 0, false
	}
	if obj.has("recipes") {
		return KindTask, true
	}
	return KindGroup, true
}

func qualify(parent, name string) string {
	if parent == "" {
		return name
	}
	return parent + Separator + name
}

// Flatten lists the tasks of a hierarchy depth-first in document order.
func Flatten(nodes []*Node) []Entry {
	var out []Entry
	var walk func(ns []*Node)
	walk = func(ns []*Node) {
		for _, n := range ns {
			switch n.Kind {
			case KindTask:
				out = append(out, Entry{Name: n.Name, Spec: n.Spec})
			case KindGroup:
				walk(n.Children)
			}
		}
	}
	walk(nodes)
	return out
}

// Index resolves qualified task names to flat positions.
type Index struct {
	pos map[string]int
}

// NewIndex indexes entries by name. Names that occur more than once are
// returned in dups; the first occurrence wins.
func NewIndex(entries []Entry) (idx *Index, dups []string) {
	idx = &Index{pos: make(map[string]int, len(entries))}
	for i, e := range entries {
		if _, ok := idx.pos[e.Name]; ok {
			dups = append(dups, e.Name)
			continue
		}
		idx.pos[e.Name] = i
	}
	return idx, dups
}

// Lookup returns the position of the named task. ok is false when no task
// has exactly that qualified name.
func (idx *Index) Lookup(name string) (pos int, ok bool) {
	pos, ok = idx.pos[name]
	return pos, ok
}
