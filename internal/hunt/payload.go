package hunt

import (
	"encoding/json"
	"fmt"
	"strings"
)

// TeamRef is the encoded team-reference payload carried inside a team's
// QR code. Email is required; the id makes lookups robust when present.
type TeamRef struct {
	TeamID   string `json:"teamId"`
	TeamName string `json:"teamName,omitempty"`
	Email    string `json:"email"`
}

// EncodeTeamRef serializes the payload a team's device renders as a QR
// code. The visual encoding itself happens client-side.
func EncodeTeamRef(t Team) string {
	data, _ := json.Marshal(TeamRef{TeamID: t.ID, TeamName: t.Name, Email: t.Email})
	return string(data)
}

// DecodeTeamRef parses a scanned payload. Malformed input is a recoverable
// error (wrapped ErrBadPayload), never a crash: staff cameras pick up all
// kinds of codes that are not ours.
func DecodeTeamRef(raw string) (TeamRef, error) {
	var ref TeamRef
	if err := json.Unmarshal([]byte(raw), &ref); err != nil {
		return TeamRef{}, fmt.Errorf("%w: %v", ErrBadPayload, err)
	}
	ref.Email = strings.TrimSpace(ref.Email)
	if ref.Email == "" {
		return TeamRef{}, fmt.Errorf("%w: missing email field", ErrBadPayload)
	}
	return ref, nil
}
