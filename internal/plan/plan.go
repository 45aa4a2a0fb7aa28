// Package plan loads cooking plan files and flattens them into problems.
package plan

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/elektrokombinacija/mise/internal/core"
)

// Format is the encoding of a plan file.
type Format int

const (
	FormatJSON Format = iota
	FormatYAML
)

// FormatFromPath picks the format from the file extension. Unknown
// extensions are read as JSON.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// DemandSpec is a [amount, resource] pair of a recipe.
type DemandSpec struct {
	Amount   int
	Resource string
}

// RecipeSpec is one mode of a task as written in the plan.
type RecipeSpec struct {
	Duration int
	Demands  []DemandSpec
}

// SuccessorSpec is a [name, delay] pair of a task.
type SuccessorSpec struct {
	Name  string
	Delay int
}

// TaskSpec is a leaf of the task hierarchy.
type TaskSpec struct {
	Recipes    []RecipeSpec
	Successors []SuccessorSpec
}

// ResourceSpec is a [name, capacity] pair. A nil Capacity is unlimited.
type ResourceSpec struct {
	Name     string
	Capacity *int
}

// Document is a decoded plan file.
type Document struct {
	Tasks     []*Node
	Resources []ResourceSpec
	Anchor    core.Anchor
}

// Load reads and decodes the plan file at path.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}
	return Parse(path, data, FormatFromPath(path))
}

// Parse decodes plan data. name is only used in error messages.
func Parse(name string, data []byte, format Format) (*Document, error) {
	var (
		root any
		err  error
	)
	switch format {
	case FormatYAML:
		root, err = decodeYAML(data)
	default:
		root, err = decodeJSON(data)
	}
	if err != nil {
		return nil, &ParseError{Path: name, Err: err}
	}

	errs := &ValidationErrors{}
	doc := decodeDocument(root, errs)
	if errs.HasErrors() {
		// Report unresolved references of the partial document too.
		doc.resolve(errs)
		return nil, errs
	}
	return doc, nil
}

func decodeDocument(root any, errs *ValidationErrors) *Document {
	doc := &Document{}
	obj, ok := root.(object)
	if !ok {
		errs.Add("plan", "must be a mapping")
		return doc
	}

	tasks, ok := obj.get("tasks")
	switch {
	case !ok:
		errs.Add("tasks", "is required")
	default:
		tobj, isObj := tasks.(object)
		if !isObj {
			errs.Add("tasks", "must be a mapping")
			break
		}
		doc.Tasks = decodeNodes("", tobj, errs)
	}

	if rs, ok := obj.get("resources"); ok && rs != nil {
		doc.Resources = decodeResources(rs, errs)
	}
	if ps, ok := obj.get("params"); ok && ps != nil {
		doc.Anchor = decodeParams(ps, errs)
	}
	return doc
}

func decodeNodes(parent string, obj object, errs *ValidationErrors) []*Node {
	nodes := make([]*Node, 0, len(obj))
	for _, f := range obj {
		name := qualify(parent, f.key)
		fieldPath := "tasks." + name
		kind, ok := classify(f.val)
		if !ok {
			errs.Add(fieldPath, "must be a group or a task mapping")
			continue
		}
		n := &Node{Name: name, Kind: kind}
		switch kind {
		case KindGroup:
			n.Children = decodeNodes(name, f.val.(object), errs)
		case KindTask:
			n.Spec = decodeTask(fieldPath, f.val.(object), errs)
		}
		nodes = append(nodes, n)
	}
	return nodes
}

func decodeTask(fieldPath string, obj object, errs *ValidationErrors) *TaskSpec {
	spec := &TaskSpec{}

	recipes, _ := obj.get("recipes")
	items, ok := asList(recipes)
	if !ok {
		errs.Add(fieldPath+".recipes", "must be a list")
	} else if len(items) == 0 {
		errs.Add(fieldPath+".recipes", "at least one recipe is required")
	}
	for i, item := range items {
		rp := fmt.Sprintf("%s.recipes[%d]", fieldPath, i)
		robj, ok := item.(object)
		if !ok {
			errs.Add(rp, "must be a mapping")
			continue
		}
		spec.Recipes = append(spec.Recipes, decodeRecipe(rp, robj, errs))
	}

	if succ, ok := obj.get("successors"); ok {
		pairs, ok := asList(succ)
		if !ok {
			errs.Add(fieldPath+".successors", "must be a list")
		}
		for i, item := range pairs {
			sp := fmt.Sprintf("%s.successors[%d]", fieldPath, i)
			name, delay, ok := asPair(item)
			if !ok {
				errs.Add(sp, "must be a [name, delay] pair")
				continue
			}
			spec.Successors = append(spec.Successors, SuccessorSpec{Name: name, Delay: delay})
		}
	}
	return spec
}

func decodeRecipe(fieldPath string, obj object, errs *ValidationErrors) RecipeSpec {
	var r RecipeSpec
	d, ok := obj.get("duration")
	if !ok {
		errs.Add(fieldPath+".duration", "is required")
	} else if n, isInt := asInt(d); !isInt || n <= 0 {
		errs.Add(fieldPath+".duration", "must be a positive integer")
	} else {
		r.Duration = n
	}

	if ds, ok := obj.get("demands"); ok {
		pairs, ok := asList(ds)
		if !ok {
			errs.Add(fieldPath+".demands", "must be a list")
		}
		for i, item := range pairs {
			dp := fmt.Sprintf("%s.demands[%d]", fieldPath, i)
			pair, ok := asList(item)
			if !ok || len(pair) != 2 {
				errs.Add(dp, "must be an [amount, resource] pair")
				continue
			}
			amount, okA := asInt(pair[0])
			res, okR := pair[1].(string)
			if !okA || !okR {
				errs.Add(dp, "must be an [amount, resource] pair")
				continue
			}
			if amount < 0 {
				errs.Add(dp, "amount must not be negative")
				continue
			}
			r.Demands = append(r.Demands, DemandSpec{Amount: amount, Resource: res})
		}
	}
	return r
}

func decodeResources(v any, errs *ValidationErrors) []ResourceSpec {
	items, ok := asList(v)
	if !ok {
		errs.Add("resources", "must be a list")
		return nil
	}
	out := make([]ResourceSpec, 0, len(items))
	for i, item := range items {
		fp := fmt.Sprintf("resources[%d]", i)
		pair, ok := asList(item)
		if !ok || len(pair) != 2 {
			errs.Add(fp, "must be a [name, capacity] pair")
			continue
		}
		name, ok := pair[0].(string)
		if !ok || name == "" {
			errs.Add(fp, "name must be a non-empty string")
			continue
		}
		spec := ResourceSpec{Name: name}
		if pair[1] != nil {
			c, ok := asInt(pair[1])
			if !ok {
				errs.Add(fp, "capacity must be an integer or null")
				continue
			}
			if c >= 0 {
				spec.Capacity = &c
			}
		}
		out = append(out, spec)
	}
	return out
}

func decodeParams(v any, errs *ValidationErrors) core.Anchor {
	obj, ok := v.(object)
	if !ok {
		errs.Add("params", "must be a mapping")
		return core.Anchor{}
	}
	start, hasStart := obj.get("start")
	dinner, hasDinner := obj.get("dinner")
	if hasStart && hasDinner {
		errs.Add("params", "start and dinner are mutually exclusive")
		return core.Anchor{}
	}

	var (
		key   string
		value any
		mk    func(int) core.Anchor
	)
	switch {
	case hasStart:
		key, value, mk = "start", start, core.StartAt
	case hasDinner:
		key, value, mk = "dinner", dinner, core.DinnerAt
	default:
		return core.Anchor{}
	}
	s, ok := value.(string)
	if !ok {
		errs.Add("params."+key, "must be a HH:MM string")
		return core.Anchor{}
	}
	clock, err := ParseClock(s)
	if err != nil {
		errs.Add("params."+key, err.Error())
		return core.Anchor{}
	}
	return mk(clock)
}

// Entries returns the flattened tasks of the document.
func (d *Document) Entries() []Entry {
	return Flatten(d.Tasks)
}

// Problem flattens the document, resolves names, and returns the problem.
// All unresolved references are reported together as ValidationErrors.
func (d *Document) Problem() (*core.Problem, error) {
	errs := &ValidationErrors{}
	p := d.resolve(errs)
	if err := errs.errOrNil(); err != nil {
		return nil, err
	}
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("invalid problem: %w", err)
	}
	return p, nil
}

// resolve builds the problem, adding every naming error to errs. The
// result is only usable when errs stays empty.
func (d *Document) resolve(errs *ValidationErrors) *core.Problem {
	p := core.NewProblem()

	resources := make(map[string]core.ResourceID, len(d.Resources))
	for i, rs := range d.Resources {
		if _, dup := resources[rs.Name]; dup {
			errs.Addf(fmt.Sprintf("resources[%d]", i), "duplicate resource %q", rs.Name)
			continue
		}
		capacity := core.Unlimited()
		if rs.Capacity != nil {
			capacity = core.Limited(*rs.Capacity)
		}
		resources[rs.Name] = p.AddResource(rs.Name, capacity)
	}

	entries := d.Entries()
	// A nil Tasks was already reported while decoding
	if len(entries) == 0 && d.Tasks != nil {
		errs.Add("tasks", "at least one task is required")
	}
	idx, dups := NewIndex(entries)
	for _, name := range dups {
		errs.Addf("tasks."+name, "duplicate task name %q", name)
	}

	for _, e := range entries {
		fieldPath := "tasks." + e.Name
		recipes := make([]core.Recipe, 0, len(e.Spec.Recipes))
		for ri, rs := range e.Spec.Recipes {
			r := core.Recipe{Duration: rs.Duration}
			seen := make(map[string]bool, len(rs.Demands))
			for di, ds := range rs.Demands {
				dp := fmt.Sprintf("%s.recipes[%d].demands[%d]", fieldPath, ri, di)
				id, ok := resources[ds.Resource]
				if !ok {
					errs.Addf(dp, "unknown resource %q", ds.Resource)
					continue
				}
				if seen[ds.Resource] {
					errs.Addf(dp, "resource %q already demanded by this recipe", ds.Resource)
					continue
				}
				seen[ds.Resource] = true
				r.Demands = append(r.Demands, core.Demand{Amount: ds.Amount, Resource: id})
			}
			recipes = append(recipes, r)
		}
		p.AddTask(e.Name, recipes...)
	}

	for i, e := range entries {
		for si, s := range e.Spec.Successors {
			pos, ok := idx.Lookup(s.Name)
			if !ok {
				errs.Addf(fmt.Sprintf("tasks.%s.successors[%d]", e.Name, si), "unknown successor %q", s.Name)
				continue
			}
			p.Tasks[i].Then(core.TaskID(pos), s.Delay)
		}
	}
	return p
}

func asList(v any) ([]any, bool) {
	items, ok := v.([]any)
	return items, ok
}

func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case uint64:
		return int(n), true
	case float64:
		if n == float64(int(n)) {
			return int(n), true
		}
	}
	return 0, false
}

func asPair(v any) (string, int, bool) {
	pair, ok := asList(v)
	if !ok || len(pair) != 2 {
		return "", 0, false
	}
	name, okN := pair[0].(string)
	delay, okD := asInt(pair[1])
	return name, delay, okN && okD
}
