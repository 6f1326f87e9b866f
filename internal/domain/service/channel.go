package service

import (
	"fmt"
	"strings"

	"agriconnect/pkg/errors"
)

// ChannelSeparator joins the two participant ids of a room.
const ChannelSeparator = "_"

// Sentinels that leak from unset client state and must never address a room.
var absentSentinels = map[string]struct{}{
	"undefined": {},
	"null":      {},
	"none":      {},
	"nil":       {},
}

func normalizeMember(id string) (string, error) {
	n := strings.ToLower(strings.TrimSpace(id))
	if n == "" {
		return "", errors.Validation("participant id is required", nil)
	}
	if _, ok := absentSentinels[n]; ok {
		return "", errors.Validation(fmt.Sprintf("participant id %q is not a valid identifier", id), nil)
	}
	if strings.Contains(n, ChannelSeparator) {
		return "", errors.Validation(fmt.Sprintf("participant id %q must not contain %q", id, ChannelSeparator), nil)
	}
	return n, nil
}

// DeriveChannelID returns the room shared by two participants. The result does not depend on
// argument order: both ids are lower-cased and the smaller one goes first.
func DeriveChannelID(idA, idB string) (string, error) {
	a, err := normalizeMember(idA)
	if err != nil {
		return "", err
	}
	b, err := normalizeMember(idB)
	if err != nil {
		return "", err
	}
	if a == b {
		return "", errors.Validation("a channel needs two distinct participants", nil)
	}
	if b < a {
		a, b = b, a
	}
	return a + ChannelSeparator + b, nil
}

// ChannelMembers splits a room into its two members, rejecting anything DeriveChannelID
// could not have produced.
func ChannelMembers(room string) (string, string, error) {
	parts := strings.Split(room, ChannelSeparator)
	if len(parts) != 2 {
		return "", "", errors.Validation(fmt.Sprintf("room %q is malformed", room), nil)
	}
	canonical, err := DeriveChannelID(parts[0], parts[1])
	if err != nil {
		return "", "", err
	}
	if canonical != room {
		return "", "", errors.Validation(fmt.Sprintf("room %q is not canonical, expected %q", room, canonical), nil)
	}
	return parts[0], parts[1], nil
}

func ValidateChannelID(room string) error {
	_, _, err := ChannelMembers(room)
	return err
}

func IsChannelMember(room, participantID string) bool {
	a, b, err := ChannelMembers(room)
	if err != nil {
		return false
	}
	id := strings.ToLower(strings.TrimSpace(participantID))
	return id == a || id == b
}
