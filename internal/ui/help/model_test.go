package help

import (
	"strings"
	"testing"

	"github.com/nhle/sprintsync/internal/keys"
)

func titles(m Model) []string {
	var out []string
	for _, s := range m.ordered() {
		out = append(out, s.title)
	}
	return out
}

func TestCurrentScreenComesFirst(t *testing.T) {
	m := New(keys.DefaultKeyMap(), 100, 40)

	if got := strings.Join(titles(m), ","); got != "Task list,Board,Task detail,Everywhere" {
		t.Errorf("default order = %s", got)
	}

	m.SetContext(ContextBoard)
	if got := strings.Join(titles(m), ","); got != "Board,Task list,Task detail,Everywhere" {
		t.Errorf("board order = %s", got)
	}

	view := m.View()
	for _, want := range []string{"(this screen)", "pick up / drop", "column left"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
}

func TestDragBindingsOnlyUnderBoard(t *testing.T) {
	m := New(keys.DefaultKeyMap(), 100, 40)
	for _, s := range m.ordered() {
		for _, group := range s.groups {
			for _, b := range group {
				if b.Help().Key == m.keys.Grab.Help().Key && s.context != ContextBoard {
					t.Errorf("grab binding listed under %s", s.title)
				}
			}
		}
	}
}
