package searcher

import (
	"strconv"
	"testing"

	"reflex/budget"
	"reflex/game"

	"github.com/stretchr/testify/require"
	"golang.org/x/exp/rand"
)

type mockAction int

func (a mockAction) String() string { return strconv.Itoa(int(a)) }

// mockState is a two player race: player 0 adds the action to the total and
// player 1 subtracts it. The game ends after limit moves, two moves per round.
type mockState struct {
	turn  int
	moves int
	limit int
	width int
	total int
}

func newMockState(width, limit int) *mockState {
	return &mockState{width: width, limit: limit}
}

func (m *mockState) TurnOwner() game.PlayerID { return game.PlayerID(m.turn) }
func (m *mockState) Round() int               { return m.moves / 2 }
func (m *mockState) IsTerminal() bool         { return m.moves >= m.limit }

func (m *mockState) LegalActions() []game.Action {
	actions := make([]game.Action, m.width)
	for i := range actions {
		actions[i] = mockAction(i)
	}
	return actions
}

func (m *mockState) Next(action game.Action, _ *rand.Rand) {
	if m.turn == 0 {
		m.total += int(action.(mockAction))
	} else {
		m.total -= int(action.(mockAction))
	}
	m.turn = 1 - m.turn
	m.moves++
}

func (m *mockState) Copy() game.State {
	c := *m
	return &c
}

func totalHeuristic(s game.State, player game.PlayerID) float64 {
	total := float64(s.(*mockState).total)
	if player == 0 {
		return total
	}
	return -total
}

func testParams() Params {
	params := DefaultParams()
	params.Heuristic = totalHeuristic
	return params
}

func iterations(n int) *budget.Controller {
	return budget.New(budget.Budget{Kind: budget.Iterations, Limit: n})
}

func TestTreePolicy(t *testing.T) {
	t.Run("expands every root action before selecting", func(t *testing.T) {
		params := testParams()
		params.MaxTreeDepth = 1
		params.MetaLevel = 0
		m := New(params, rand.New(rand.NewSource(1)))

		tr := m.runSearch(newMockState(3, 100), 0, 0, iterations(3))

		require.Equal(t, 0, tr.selections, "Should not select while root actions are unexpanded")
		require.Len(t, tr.nodes, 4, "Should add one child per iteration")
		require.Empty(t, tr.unexpandedActions(0), "All root actions should be expanded")
		for _, c := range tr.nodes[0].children {
			require.Equal(t, 1, tr.nodes[c].visits, "Each child should be visited exactly once")
		}
	})

	t.Run("selects on the fourth iteration at max depth", func(t *testing.T) {
		params := testParams()
		params.MaxTreeDepth = 1
		params.MetaLevel = 0
		m := New(params, rand.New(rand.NewSource(1)))

		tr := m.runSearch(newMockState(3, 100), 0, 0, iterations(4))

		require.Equal(t, 1, tr.selections, "Fourth iteration should select once")
		require.Len(t, tr.nodes, 4, "Max depth should stop further expansion")
		require.Equal(t, 4, tr.nodes[0].visits)
	})

	t.Run("terminal root returns itself", func(t *testing.T) {
		m := New(testParams(), rand.New(rand.NewSource(1)))
		tr := newTree(m, newMockState(3, 0), 0, 0, iterations(1))

		require.Equal(t, 0, tr.treePolicy(0), "Terminal root cannot be expanded")
	})

	t.Run("expansion counts one copy and one forward model call", func(t *testing.T) {
		m := New(testParams(), rand.New(rand.NewSource(1)))
		ctrl := iterations(1)
		tr := newTree(m, newMockState(3, 10), 0, 0, ctrl)

		child := tr.treePolicy(0)

		require.Equal(t, 1, child, "Should return the new child")
		require.Equal(t, 1, tr.nodes[child].depth, "Child depth should be parent depth + 1")
		require.Equal(t, 1, ctrl.FMCalls())
		require.Equal(t, 1, ctrl.Copies())
		require.Equal(t, 0, tr.nodes[0].state.(*mockState).moves, "Root state should not advance")
	})

	t.Run("panics on a non-terminal state without actions", func(t *testing.T) {
		m := New(testParams(), rand.New(rand.NewSource(1)))

		require.Panics(t, func() {
			newTree(m, newMockState(0, 10), 0, 0, iterations(1))
		})
	})
}

func TestBackUp(t *testing.T) {
	t.Run("adds a visit and the value to every node on the path", func(t *testing.T) {
		m := New(testParams(), rand.New(rand.NewSource(1)))
		tr := newTree(m, newMockState(1, 10), 0, 0, iterations(1))
		child := tr.expand(0, 0)
		grandchild := tr.expand(child, 0)

		tr.backUp(grandchild, 0.5)
		tr.backUp(grandchild, 0.25)

		for _, n := range []int{0, child, grandchild} {
			require.Equal(t, 2, tr.nodes[n].visits, "Each ancestor should gain one visit per backup")
			require.InDelta(t, 0.75, tr.nodes[n].value, 1e-9, "Each ancestor should gain the value")
		}
	})

	t.Run("children never hold more visits than their parent", func(t *testing.T) {
		params := testParams()
		params.MetaLevel = 0
		m := New(params, rand.New(rand.NewSource(3)))

		tr := m.runSearch(newMockState(3, 8), 0, 0, iterations(60))

		for n := range tr.nodes {
			sum := 0
			for _, c := range tr.nodes[n].children {
				if c != unexpanded {
					sum += tr.nodes[c].visits
				}
			}
			if n == 0 {
				require.Equal(t, tr.nodes[0].visits, sum, "Every root visit should pass to a child")
			} else {
				require.LessOrEqual(t, sum, tr.nodes[n].visits-1, "Node %d creation uses one visit", n)
			}
		}
	})
}
