package model

// State is the derived plow state of a street.
type State string

const (
	StateUnknown   State = "unknown"
	StatePlowed    State = "plowed"
	StateNotPlowed State = "not_plowed"
	StateMixed     State = "mixed"
)

// StreetTally holds raw vote counts for one street inside the status window.
type StreetTally struct {
	StreetID       string
	PlowedVotes    int
	NotPlowedVotes int
}

// Total returns the number of votes in the tally.
func (t StreetTally) Total() int {
	return t.PlowedVotes + t.NotPlowedVotes
}

// StreetStatus is the derived status of a street. It is never stored.
type StreetStatus struct {
	State             State `json:"state"`
	PlowedVotes       int   `json:"plowedVotes"`
	NotPlowedVotes    int   `json:"notPlowedVotes"`
	TotalVotesLast24h int   `json:"totalVotesLast24h"`
}

// StatusResponse is the API response for GET /api/status.
type StatusResponse struct {
	ByStreetID map[string]StreetStatus `json:"byStreetId"`
}

// StreetEntry joins a catalog street with its current status.
type StreetEntry struct {
	StreetID string `json:"streetId"`
	Name     string `json:"name"`
	StreetStatus
}

// StreetsResponse is the API response for GET /api/streets.
type StreetsResponse struct {
	Streets []StreetEntry `json:"streets"`
}
