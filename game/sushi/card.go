package sushi

// Card is a sushi card type.
type Card int

const (
	Tempura Card = iota
	Sashimi
	Dumpling
	Maki1
	Maki2
	Maki3
	SalmonNigiri
	SquidNigiri
	EggNigiri
	Pudding
	Wasabi
	Chopsticks
	numCards

	noCard Card = -1
)

var cardNames = [numCards]string{
	"Tempura", "Sashimi", "Dumpling", "Maki", "Maki-2", "Maki-3",
	"SalmonNigiri", "SquidNigiri", "EggNigiri", "Pudding", "Wasabi", "Chopsticks",
}

func (c Card) String() string {
	if c < 0 || c >= numCards {
		return "None"
	}
	return cardNames[c]
}

// deckComposition is the number of copies of each card in a full deck.
var deckComposition = [numCards]int{
	Tempura:      14,
	Sashimi:      14,
	Dumpling:     14,
	Maki1:        6,
	Maki2:        12,
	Maki3:        8,
	SalmonNigiri: 10,
	SquidNigiri:  5,
	EggNigiri:    5,
	Pudding:      10,
	Wasabi:       6,
	Chopsticks:   4,
}

func makiIcons(c Card) int {
	switch c {
	case Maki1:
		return 1
	case Maki2:
		return 2
	case Maki3:
		return 3
	}
	return 0
}

func nigiriValue(c Card) int {
	switch c {
	case EggNigiri:
		return 1
	case SalmonNigiri:
		return 2
	case SquidNigiri:
		return 3
	}
	return 0
}

var dumplingPoints = []int{0, 1, 3, 6, 10, 15}

// Pick plays First from the hand, and Second too when chopsticks are cashed in.
type Pick struct {
	First  Card
	Second Card
}

func (p Pick) String() string {
	if p.Second == noCard {
		return p.First.String()
	}
	return p.First.String() + "+" + p.Second.String()
}

// Single returns the pick of a single card.
func Single(c Card) Pick {
	return Pick{First: c, Second: noCard}
}
