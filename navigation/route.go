package navigation

import (
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/upb/car-park/views"
)

// Route names of the car park pages
const (
	RouteHome     = "Home"
	RouteLogin    = "Login"
	RouteRegister = "Register"
	RouteProfile  = "Profile"
)

var (
	// ErrDuplicateRoute is returned when two routes share a name or path
	ErrDuplicateRoute = errors.New("duplicate route")

	// ErrInvalidRoute is returned for a route without name or path
	ErrInvalidRoute = errors.New("invalid route")
)

// Route declares a page. Children are nested under the parent's path.
type Route struct {
	Path         string
	Name         string
	View         views.View
	RequiresAuth bool
	Children     []Route
}

// Record is a route of the table with its full path resolved
type Record struct {
	Path         string
	Name         string
	View         views.View
	RequiresAuth bool
	Parent       *Record
}

// Match is the result of resolving a path: the target record plus the
// chain of records from the outermost parent down to the target.
type Match struct {
	Route   *Record
	Matched []*Record
}

// RequiresAuth reports whether any record along the chain requires auth
func (m *Match) RequiresAuth() bool {
	for _, rec := range m.Matched {
		if rec.RequiresAuth {
			return true
		}
	}
	return false
}

// Table is the immutable route table
type Table struct {
	records []*Record
	byPath  map[string]*Record
	byName  map[string]*Record
}

// NewTable builds the table, flattening nested routes in declaration order
func NewTable(routes ...Route) (*Table, error) {
	t := &Table{
		byPath: make(map[string]*Record),
		byName: make(map[string]*Record),
	}

	for _, r := range routes {
		if err := t.add(r, nil); err != nil {
			return nil, err
		}
	}

	return t, nil
}

func (t *Table) add(r Route, parent *Record) error {
	if r.Name == "" || r.Path == "" {
		return fmt.Errorf("%w: name and path are required (name=%q path=%q)", ErrInvalidRoute, r.Name, r.Path)
	}

	full := r.Path
	if parent != nil && !strings.HasPrefix(r.Path, "/") {
		full = path.Join(parent.Path, r.Path)
	}
	full = cleanPath(full)

	if _, dup := t.byName[r.Name]; dup {
		return fmt.Errorf("%w: name %q", ErrDuplicateRoute, r.Name)
	}
	if _, dup := t.byPath[full]; dup {
		return fmt.Errorf("%w: path %q", ErrDuplicateRoute, full)
	}

	rec := &Record{
		Path:         full,
		Name:         r.Name,
		View:         r.View,
		RequiresAuth: r.RequiresAuth,
		Parent:       parent,
	}
	t.records = append(t.records, rec)
	t.byPath[full] = rec
	t.byName[r.Name] = rec

	for _, child := range r.Children {
		if err := t.add(child, rec); err != nil {
			return err
		}
	}
	return nil
}

// Match resolves a request path
func (t *Table) Match(p string) (*Match, bool) {
	rec, ok := t.byPath[cleanPath(p)]
	if !ok {
		return nil, false
	}

	var chain []*Record
	for r := rec; r != nil; r = r.Parent {
		chain = append([]*Record{r}, chain...)
	}

	return &Match{Route: rec, Matched: chain}, true
}

// ByName looks a record up by route name
func (t *Table) ByName(name string) (*Record, bool) {
	rec, ok := t.byName[name]
	return rec, ok
}

// Routes returns the records in declaration order
func (t *Table) Routes() []*Record {
	out := make([]*Record, len(t.records))
	copy(out, t.records)
	return out
}

func cleanPath(p string) string {
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return path.Clean(p)
}
