package flowdetail

import (
	"strconv"
	"strings"
)

// Step is one element of a Path: a map key or a list index.
type Step struct {
	Key     string
	Index   int
	IsIndex bool
}

// Path addresses a value inside a Node tree.
type Path []Step

// KeyStep returns a map-key step.
func KeyStep(key string) Step { return Step{Key: key} }

// IndexStep returns a list-index step.
func IndexStep(i int) Step { return Step{Index: i, IsIndex: true} }

func (p Path) String() string {
	parts := make([]string, len(p))
	for i, s := range p {
		if s.IsIndex {
			parts[i] = "[" + strconv.Itoa(s.Index) + "]"
		} else {
			parts[i] = s.Key
		}
	}
	return strings.Join(parts, ".")
}

// Parent returns the path of the container holding the addressed value.
func (p Path) Parent() Path {
	if len(p) == 0 {
		return nil
	}
	return p[:len(p)-1]
}

// FindPath searches n depth-first for the first string leaf equal to
// target. Map members are visited in document order and list items in
// index order; a nested container is searched fully before its next
// sibling is considered.
func FindPath(n Node, target string) (Path, bool) {
	switch n.Kind {
	case KindMap:
		for _, m := range n.Members {
			if sub, ok := matchChild(m.Value, target); ok {
				return append(Path{KeyStep(m.Key)}, sub...), true
			}
		}
	case KindList:
		for i, item := range n.Items {
			if sub, ok := matchChild(item, target); ok {
				return append(Path{IndexStep(i)}, sub...), true
			}
		}
	}
	return nil, false
}

func matchChild(child Node, target string) (Path, bool) {
	if child.Kind == KindLeaf {
		if child.IsString() && child.text == target {
			return Path{}, true
		}
		return nil, false
	}
	return FindPath(child, target)
}
