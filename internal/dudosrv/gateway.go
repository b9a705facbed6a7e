package dudosrv

import "encoding/json"

// Command verbs accepted from clients. A gateway parses the transport
// topic into a Command; the engine never sees transport details.
const (
	VerbLogin      = "login"
	VerbLogout     = "logout"
	VerbStartGame  = "start-game"
	VerbLeaveGame  = "leave-game"
	VerbKickPlayer = "kick-player"
	VerbSetOption  = "set-option"
	VerbRollDice   = "roll-dice"
	VerbDudo       = "call-dudo"
	VerbCalza      = "call-calza"
	VerbLost       = "i-lost"
	VerbWon        = "i-won"
	VerbUndoLoser  = "undo-loser"
	VerbUndoWinner = "undo-winner"
	VerbSndHigher  = "snd-higher"
	VerbSndExact   = "snd-exact"
)

var verbs = map[string]struct{}{
	VerbLogin: {}, VerbLogout: {}, VerbStartGame: {}, VerbLeaveGame: {},
	VerbKickPlayer: {}, VerbSetOption: {}, VerbRollDice: {}, VerbDudo: {},
	VerbCalza: {}, VerbLost: {}, VerbWon: {}, VerbUndoLoser: {},
	VerbUndoWinner: {}, VerbSndHigher: {}, VerbSndExact: {},
}

// KnownVerb reports whether v is a command verb a client may send.
func KnownVerb(v string) bool {
	_, ok := verbs[v]
	return ok
}

// Command is one inbound client message.
type Command struct {
	RoomID string
	Verb   string

	// ConnID identifies the transport connection the command arrived
	// on; the engine binds it to the claimed seat.
	ConnID string

	Payload []byte
}

// commandPayload is the superset of every verb's JSON body; each verb
// reads only the fields it defines.
type commandPayload struct {
	UUID   string          `json:"uuid"`
	Name   string          `json:"name"`
	Kick   string          `json:"kick-uuid"`
	Option string          `json:"option"`
	Value  json.RawMessage `json:"value"`
}

// Publisher delivers outbound events. Room events are addressed by
// room id plus topic suffix; the statistics document is published
// retained on its own topic.
type Publisher interface {
	Publish(roomID, suffix string, payload []byte) error
	PublishStats(payload []byte) error
}
