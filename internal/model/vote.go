package model

import (
	"bytes"
	"encoding/json"
	"strconv"
	"time"
)

// VoteValue is a single plowed / not plowed report.
type VoteValue string

const (
	VotePlowed    VoteValue = "plowed"
	VoteNotPlowed VoteValue = "not_plowed"
)

// Valid reports whether v is one of the accepted vote values.
func (v VoteValue) Valid() bool {
	return v == VotePlowed || v == VoteNotPlowed
}

// Vote represents an individual vote record. Records are append-only.
type Vote struct {
	ID           int64     `json:"id"`
	StreetID     string    `json:"streetId"`
	Value        VoteValue `json:"vote"`
	IdentityHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}

// StreetRef is a street id as sent by clients. GeoJSON exports often carry
// numeric ids, so a JSON number is accepted and formatted with FormatNumericID.
// Zero and null decode to "", which fails validation.
type StreetRef string

func (r *StreetRef) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*r = ""
		return nil
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*r = StreetRef(s)
		return nil
	}

	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	if f == 0 {
		*r = ""
		return nil
	}
	*r = StreetRef(FormatNumericID(f))
	return nil
}

// FormatNumericID renders a numeric street id the way the map page does when
// it joins features to status entries: plain decimal, no exponent.
func FormatNumericID(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// VoteRequest is the API request body for submitting a vote.
type VoteRequest struct {
	StreetID StreetRef `json:"streetId"`
	Vote     string    `json:"vote"`
}

// VoteResponse is the API response after a successful vote.
type VoteResponse struct {
	OK bool `json:"ok"`
}
