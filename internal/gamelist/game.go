package gamelist

// Game is one generated entry of the game list.
type Game struct {
	// Path is the ROM file the entry was generated from.
	Path string
	Name string
	Desc string
	// Image is the cover art reference, set only after image generation succeeds.
	Image       string
	Rating      float64
	ReleaseDate string
	Developer   string
	Publisher   string
	Genre       string
	Players     int
}

// List accumulates games in insertion order. Only complete records are
// appended; failed generations never reach the list.
type List struct {
	games []Game
}

// Append adds g to the end of the list.
func (l *List) Append(g Game) {
	l.games = append(l.games, g)
}

// Len reports the number of games.
func (l *List) Len() int {
	if l == nil {
		return 0
	}
	return len(l.games)
}

// At returns a pointer to the i-th game so later passes can patch it in place.
func (l *List) At(i int) *Game {
	return &l.games[i]
}

// Games returns a copy of the accumulated games.
func (l *List) Games() []Game {
	if l == nil {
		return nil
	}
	out := make([]Game, len(l.games))
	copy(out, l.games)
	return out
}
