package room

// MaxNameLen bounds the display name carried in every player payload.
const MaxNameLen = 30

// Player is one seat in a room. It is owned exclusively by its Room;
// every other reference to it (host, starter, candidates) is an id
// lookup into the room's collection.
type Player struct {
	ID   string
	Name string

	// ConnID is the transport identity currently bound to this seat.
	// It is rebound on every login so a seat survives reconnects.
	ConnID string

	State      PlayerState
	DiceCount  int
	Dice       []int
	ExPalifico bool

	// LoginCount tracks overlapping connect/disconnect cycles; the
	// seat is only released when it drops back to zero.
	LoginCount int

	// PreRoll holds this player's current tie-break draw.
	PreRoll int
}

func newPlayer(id, name, connID string, diceCount int) *Player {
	return &Player{
		ID:        id,
		Name:      name,
		ConnID:    connID,
		State:     PlayerLobby,
		DiceCount: diceCount,
	}
}

// ref is the {name, uuid} pair used by almost every event payload.
func (p *Player) ref() PlayerRef {
	return PlayerRef{Name: p.Name, UUID: p.ID}
}

// visibleDice returns the rolled values backing the player's current
// dice count, skipping unset slots.
func (p *Player) visibleDice() []int {
	dice := make([]int, 0, p.DiceCount)
	for i := 0; i < p.DiceCount && i < len(p.Dice); i++ {
		if p.Dice[i] != 0 {
			dice = append(dice, p.Dice[i])
		}
	}
	return dice
}
