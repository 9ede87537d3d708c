// Package areas models a provider's hierarchical area tree (countries,
// regions, cities) and resolves city names to area ids.
package areas

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// NoArea is returned when a name does not resolve. Callers must treat it as
// "apply no area filter", never as a real id.
const NoArea = 0

// MaxDepth bounds the search depth. Real area trees are a handful of levels deep.
const MaxDepth = 32

// ID is a numeric area identifier. Providers send it either as a JSON number
// or as a quoted string.
type ID int

// UnmarshalJSON accepts 1, "1", "" and null.
func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = NoArea
		return nil
	}
	s := string(data)
	if strings.HasPrefix(s, `"`) {
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
	}
	if s == "" {
		*id = NoArea
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return fmt.Errorf("area id %q: %w", s, err)
	}
	*id = ID(n)
	return nil
}

// Area is one node of the tree.
type Area struct {
	ID       ID     `json:"id"`
	ParentID *ID    `json:"parent_id,omitempty"`
	Name     string `json:"name"`
	Areas    []Area `json:"areas"`
}

type frame struct {
	area  *Area
	depth int
}

// Resolve returns the id of the first area named cityName (case-insensitive,
// exact) in pre-order over tree, or NoArea.
//
// Names are not unique across the hierarchy; the first match in pre-order
// wins. The walk uses an explicit stack, skips ids it has already visited
// and does not descend below MaxDepth.
func Resolve(tree []Area, cityName string) int {
	name := strings.TrimSpace(cityName)
	if name == "" {
		return NoArea
	}

	stack := make([]frame, 0, len(tree))
	for i := len(tree) - 1; i >= 0; i-- {
		stack = append(stack, frame{area: &tree[i], depth: 1})
	}
	visited := make(map[ID]struct{})

	for len(stack) > 0 {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		a := top.area
		if a.ID != NoArea {
			if _, seen := visited[a.ID]; seen {
				continue
			}
			visited[a.ID] = struct{}{}
		}

		if strings.EqualFold(a.Name, name) {
			return int(a.ID)
		}

		if top.depth >= MaxDepth {
			continue
		}
		for i := len(a.Areas) - 1; i >= 0; i-- {
			stack = append(stack, frame{area: &a.Areas[i], depth: top.depth + 1})
		}
	}

	return NoArea
}
