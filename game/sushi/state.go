package sushi

import (
	"fmt"

	"reflex/game"

	"golang.org/x/exp/rand"
)

const (
	Rounds     = 3
	MinPlayers = 2
	MaxPlayers = 5
)

// Outcome is a player's result at the end of the game.
type Outcome int

const (
	Ongoing Outcome = iota
	Win
	Draw
	Loss
)

type tableau struct {
	cards        [numCards]int // cards played this round
	freeWasabi   int
	nigiriPoints int
}

// State is a sequential Sushi draft. Players take turns playing one card from
// the hand they hold; when everyone has played, hands are passed to the left.
// A round ends once the hands run out and new hands are dealt from the deck.
type State struct {
	turn     int
	round    int
	hands    [][numCards]int
	tableaus []tableau
	scores   []int
	puddings []int
	deck     [numCards]int
}

// HandSize returns the number of cards dealt to each player at the start of a round.
func HandSize(players int) int {
	return 12 - players
}

// New deals the first round of a game between the given number of players.
func New(players int, rng *rand.Rand) *State {
	if players < MinPlayers || players > MaxPlayers {
		panic(fmt.Sprintf("sushi needs %d to %d players, got %d", MinPlayers, MaxPlayers, players))
	}
	s := &State{
		hands:    make([][numCards]int, players),
		tableaus: make([]tableau, players),
		scores:   make([]int, players),
		puddings: make([]int, players),
		deck:     deckComposition,
	}
	s.deal(rng)
	return s
}

func (s *State) Players() int { return len(s.hands) }

func (s *State) TurnOwner() game.PlayerID { return game.PlayerID(s.turn) }

func (s *State) Round() int { return s.round }

func (s *State) IsTerminal() bool { return s.round >= Rounds }

// Score returns the points a player has banked from finished rounds.
func (s *State) Score(player game.PlayerID) int { return s.scores[player] }

func (s *State) Puddings(player game.PlayerID) int { return s.puddings[player] }

// Hand returns the cards currently held by player in card order.
func (s *State) Hand(player game.PlayerID) []Card {
	var cards []Card
	for c, n := range s.hands[player] {
		for i := 0; i < n; i++ {
			cards = append(cards, Card(c))
		}
	}
	return cards
}

// Played returns how many cards of type c player has on the table this round.
func (s *State) Played(player game.PlayerID, c Card) int {
	return s.tableaus[player].cards[c]
}

func (s *State) LegalActions() []game.Action {
	if s.IsTerminal() {
		return nil
	}
	hand := s.hands[s.turn]
	var actions []game.Action
	for c := Card(0); c < numCards; c++ {
		if hand[c] > 0 {
			actions = append(actions, Single(c))
		}
	}
	if s.tableaus[s.turn].cards[Chopsticks] == 0 || handCount(hand) < 2 {
		return actions
	}
	for a := Card(0); a < numCards; a++ {
		for b := a; b < numCards; b++ {
			if hand[a] == 0 || hand[b] == 0 || (a == b && hand[a] < 2) {
				continue
			}
			if b == Wasabi && a != Wasabi {
				actions = append(actions, Pick{First: b, Second: a})
			} else {
				actions = append(actions, Pick{First: a, Second: b})
			}
		}
	}
	return actions
}

func (s *State) Next(action game.Action, rng *rand.Rand) {
	pick, ok := action.(Pick)
	if !ok {
		panic(fmt.Sprintf("unexpected action type %T", action))
	}
	if s.IsTerminal() {
		panic("game is over")
	}

	p := s.turn
	s.play(p, pick.First)
	if pick.Second != noCard {
		if s.tableaus[p].cards[Chopsticks] == 0 {
			panic(fmt.Sprintf("player %d has no chopsticks to play %s", p, pick))
		}
		s.play(p, pick.Second)
		s.tableaus[p].cards[Chopsticks]--
		s.hands[p][Chopsticks]++
	}

	s.turn++
	if s.turn < len(s.hands) {
		return
	}
	s.turn = 0
	s.passHands()
	if handCount(s.hands[0]) > 0 {
		return
	}

	s.scoreRound()
	s.round++
	if s.round < Rounds {
		s.deal(rng)
	} else {
		s.scorePuddings()
	}
}

func (s *State) Copy() game.State {
	c := &State{
		turn:     s.turn,
		round:    s.round,
		hands:    make([][numCards]int, len(s.hands)),
		tableaus: make([]tableau, len(s.tableaus)),
		scores:   make([]int, len(s.scores)),
		puddings: make([]int, len(s.puddings)),
		deck:     s.deck,
	}
	copy(c.hands, s.hands)
	copy(c.tableaus, s.tableaus)
	copy(c.scores, s.scores)
	copy(c.puddings, s.puddings)
	return c
}

// Outcome reports how player fared once the game is over. The highest score
// wins, with puddings breaking ties.
func (s *State) Outcome(player game.PlayerID) Outcome {
	if !s.IsTerminal() {
		return Ongoing
	}
	best := 0
	for p := range s.scores {
		if s.better(p, best) {
			best = p
		}
	}
	if s.better(best, int(player)) {
		return Loss
	}
	for p := range s.scores {
		if p != int(player) && !s.better(int(player), p) {
			return Draw
		}
	}
	return Win
}

// Winner returns the only player with a Win outcome, or game.NoPlayer while
// the game is ongoing or when the win is shared.
func (s *State) Winner() game.PlayerID {
	for p := range s.scores {
		if s.Outcome(game.PlayerID(p)) == Win {
			return game.PlayerID(p)
		}
	}
	return game.NoPlayer
}

func (s *State) better(a, b int) bool {
	if s.scores[a] != s.scores[b] {
		return s.scores[a] > s.scores[b]
	}
	return s.puddings[a] > s.puddings[b]
}

func (s *State) play(p int, c Card) {
	if c < 0 || c >= numCards || s.hands[p][c] == 0 {
		panic(fmt.Sprintf("player %d does not hold %s", p, c))
	}
	s.hands[p][c]--
	t := &s.tableaus[p]
	t.cards[c]++
	switch c {
	case Wasabi:
		t.freeWasabi++
	case Pudding:
		s.puddings[p]++
	case EggNigiri, SalmonNigiri, SquidNigiri:
		if t.freeWasabi > 0 {
			t.freeWasabi--
			t.nigiriPoints += 3 * nigiriValue(c)
		} else {
			t.nigiriPoints += nigiriValue(c)
		}
	}
}

func (s *State) passHands() {
	n := len(s.hands)
	last := s.hands[n-1]
	copy(s.hands[1:], s.hands[:n-1])
	s.hands[0] = last
}

func (s *State) deal(rng *rand.Rand) {
	size := HandSize(len(s.hands))
	for p := range s.hands {
		for i := 0; i < size; i++ {
			s.hands[p][s.draw(rng)]++
		}
	}
}

func (s *State) draw(rng *rand.Rand) Card {
	r := rng.Intn(handCount(s.deck))
	for c, n := range s.deck {
		if r < n {
			s.deck[c]--
			return Card(c)
		}
		r -= n
	}
	panic("deck is empty")
}

func (s *State) scoreRound() {
	icons := make([]int, len(s.tableaus))
	for p, t := range s.tableaus {
		s.scores[p] += t.cards[Tempura] / 2 * 5
		s.scores[p] += t.cards[Sashimi] / 3 * 10
		s.scores[p] += dumplingPoints[min(t.cards[Dumpling], len(dumplingPoints)-1)]
		s.scores[p] += t.nigiriPoints
		icons[p] = t.cards[Maki1] + 2*t.cards[Maki2] + 3*t.cards[Maki3]
	}
	s.awardMaki(icons)
	for p := range s.tableaus {
		s.tableaus[p] = tableau{}
	}
}

func (s *State) awardMaki(icons []int) {
	first, second := 0, 0
	for _, n := range icons {
		if n > first {
			second = first
			first = n
		} else if n < first && n > second {
			second = n
		}
	}
	if first == 0 {
		return
	}
	winners := playersWith(icons, first)
	for _, p := range winners {
		s.scores[p] += 6 / len(winners)
	}
	if len(winners) > 1 || second == 0 {
		return
	}
	runnersUp := playersWith(icons, second)
	for _, p := range runnersUp {
		s.scores[p] += 3 / len(runnersUp)
	}
}

func (s *State) scorePuddings() {
	most, fewest := s.puddings[0], s.puddings[0]
	for _, n := range s.puddings {
		most = max(most, n)
		fewest = min(fewest, n)
	}
	if most == fewest {
		return
	}
	top := playersWith(s.puddings, most)
	for _, p := range top {
		s.scores[p] += 6 / len(top)
	}
	if len(s.puddings) == 2 {
		return
	}
	bottom := playersWith(s.puddings, fewest)
	for _, p := range bottom {
		s.scores[p] -= 6 / len(bottom)
	}
}

func playersWith(values []int, target int) []int {
	var players []int
	for p, v := range values {
		if v == target {
			players = append(players, p)
		}
	}
	return players
}

func handCount(cards [numCards]int) int {
	total := 0
	for _, n := range cards {
		total += n
	}
	return total
}
