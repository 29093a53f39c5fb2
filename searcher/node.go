package searcher

import (
	"reflex/budget"
	"reflex/game"
)

const (
	unexpanded = -1
	noParent   = -1
)

type node struct {
	parent   int
	depth    int
	actions  []game.Action
	children []int // parallel to actions
	value    float64
	visits   int
	state    game.State
}

// tree is the arena for one search. Nodes refer to each other by index and
// the root is always at index 0.
type tree struct {
	m      *MCTS
	nodes  []node
	player game.PlayerID // the player the search decides for
	level  int
	ctrl   *budget.Controller

	selections int
}

func newTree(m *MCTS, root game.State, player game.PlayerID, level int, ctrl *budget.Controller) *tree {
	t := &tree{
		m:      m,
		player: player,
		level:  level,
		ctrl:   ctrl,
	}
	t.add(noParent, 0, root)
	return t
}

func (t *tree) add(parent, depth int, state game.State) int {
	var actions []game.Action
	if !state.IsTerminal() {
		actions = state.LegalActions()
		if len(actions) == 0 {
			game.Raise("no legal actions at a non-terminal state",
				"depth", depth, "round", state.Round(), "player", state.TurnOwner())
		}
	}
	children := make([]int, len(actions))
	for i := range children {
		children[i] = unexpanded
	}
	t.nodes = append(t.nodes, node{
		parent:   parent,
		depth:    depth,
		actions:  actions,
		children: children,
		state:    state,
	})
	return len(t.nodes) - 1
}

func (t *tree) unexpandedActions(n int) []int {
	var open []int
	for i, c := range t.nodes[n].children {
		if c == unexpanded {
			open = append(open, i)
		}
	}
	return open
}

// treePolicy descends from n until it expands a new child, or reaches a
// terminal state or the maximum depth.
func (t *tree) treePolicy(n int) int {
	maxDepth := t.m.params.MaxTreeDepth
	for !t.nodes[n].state.IsTerminal() && t.nodes[n].depth < maxDepth {
		if open := t.unexpandedActions(n); len(open) > 0 {
			return t.expand(n, open[t.m.rng.Intn(len(open))])
		}
		n = t.ucb(n)
	}
	return n
}

func (t *tree) expand(parent, i int) int {
	p := &t.nodes[parent]
	state := game.Apply(p.state, p.actions[i], t.m.rng, t.ctrl)
	depth := p.depth + 1
	child := t.add(parent, depth, state)
	t.nodes[parent].children[i] = child
	return child
}

func (t *tree) backUp(n int, value float64) {
	for ; n != noParent; n = t.nodes[n].parent {
		t.nodes[n].visits++
		t.nodes[n].value += value
	}
}
