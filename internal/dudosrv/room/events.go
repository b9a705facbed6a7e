package room

// Topic suffixes for outbound events. The gateway prefixes them with
// "<root>/<roomID>/".
const (
	TopicLobbyPlayers        = "lobby-players"
	TopicHost                = "host"
	TopicState               = "state"
	TopicNewRound            = "new-round"
	TopicSetOption           = "set-option"
	TopicDudoCandidates      = "dudo-candidates"
	TopicCalzaCandidate      = "calza-candidate"
	TopicPlayerResults       = "player-results"
	TopicSummaryResults      = "summary-results"
	TopicLoserResults        = "loser-results"
	TopicLoserSummaryResults = "loser-summary-results"
	TopicRoundLoser          = "round-loser"
	TopicRoundWinner         = "round-winner"
	TopicUndoLoser           = "undo-loser"
	TopicUndoWinner          = "undo-winner"
	TopicPlayerLost          = "player-lost"
	TopicGameLoser           = "game-loser"
	TopicPlayerLeft          = "player-left"
	TopicWinner              = "winner"
	TopicRoomClosing         = "room-closing"
	TopicPreRollInit         = "pre-roll-init"
	TopicPreRoll             = "pre-roll"
	TopicPreRollResults      = "pre-roll-results"
	TopicDice                = "dice"
)

// Event is one outbound message produced while applying a command.
// A nil Payload publishes an empty message.
type Event struct {
	Suffix  string
	Payload interface{}
}

type PlayerRef struct {
	Name string `json:"name"`
	UUID string `json:"uuid"`
}

type playerRoll struct {
	PlayerRef
	Value int `json:"value"`
}

type playerDice struct {
	PlayerRef
	Dice []int `json:"dice"`
}

type lobbyPlayers struct {
	Players []PlayerRef `json:"players"`
	Options Options     `json:"options"`
}

type newRound struct {
	Starter       PlayerRef `json:"starter"`
	PalificoRound bool      `json:"palifico-round"`
}

type summaryResults struct {
	Totals []int `json:"totals"`
}

type winnerResult struct {
	Totals []int     `json:"totals"`
	Winner PlayerRef `json:"winner"`
}

// stateDoc is the full resync document sent to a reconnecting player
// or a freshly joined spectator. Optional sections are only present in
// the room states that define them.
type stateDoc struct {
	Players        []PlayerRef  `json:"players"`
	State          string       `json:"state,omitempty"`
	Results        []playerDice `json:"results,omitempty"`
	DudoCandidates []PlayerRef  `json:"dudo-candidates,omitempty"`
	CalzaCandidate *PlayerRef   `json:"calza-candidate,omitempty"`
	Host           *PlayerRef   `json:"host,omitempty"`
	PreRoll        []playerRoll `json:"pre-roll,omitempty"`
	Starter        *PlayerRef   `json:"starter,omitempty"`
	Dice           []int        `json:"dice,omitempty"`
	RoundLoser     *PlayerRef   `json:"round-loser,omitempty"`
	RoundWinner    *PlayerRef   `json:"round-winner,omitempty"`
	PalificoRound  bool         `json:"palifico-round"`
	Options        Options      `json:"options"`
}

func (r *Room) emit(suffix string, payload interface{}) {
	r.pending = append(r.pending, Event{Suffix: suffix, Payload: payload})
}

func (r *Room) emitPlayer(suffix string, p *Player) {
	r.emit(suffix, p.ref())
}

// TakeEvents drains the events produced by the last applied command.
func (r *Room) TakeEvents() []Event {
	events := r.pending
	r.pending = nil
	return events
}
