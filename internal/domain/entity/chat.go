package entity

// ActiveChat is an accepted request seen from one participant, with the room both sides address.
type ActiveChat struct {
	Request   *MatchRequest `json:"request"`
	ChannelID string        `json:"channel_id"`
	PeerID    string        `json:"peer_id"`
	PeerName  string        `json:"peer_name"`
}
