package domain

import "errors"

var (
	ErrRoomFull       = errors.New("room is full")
	ErrRateLimited    = errors.New("too many actions, slow down")
	ErrPlayerNotFound = errors.New("player not found in room")
	ErrInvalidPreset  = errors.New("unknown card preset")
	ErrInvalidCard    = errors.New("card is not in the active set")
	ErrObserverVote   = errors.New("observers cannot vote")
	ErrInvalidRole    = errors.New("invalid role")
	ErrNameEmpty      = errors.New("name empty")
	ErrNameTooLong    = errors.New("name too long")
)

var codes = []struct {
	err  error
	code string
}{
	{ErrRoomFull, "room_full"},
	{ErrRateLimited, "rate_limited"},
	{ErrPlayerNotFound, "player_not_found"},
	{ErrInvalidPreset, "invalid_preset"},
	{ErrInvalidCard, "invalid_card"},
	{ErrObserverVote, "observer_vote"},
	{ErrInvalidRole, "invalid_role"},
	{ErrNameEmpty, "name_empty"},
	{ErrNameTooLong, "name_too_long"},
}

// Code returns a stable snake_case code for a domain error, or "" when
// err is not one.
func Code(err error) string {
	for _, c := range codes {
		if errors.Is(err, c.err) {
			return c.code
		}
	}
	return ""
}
