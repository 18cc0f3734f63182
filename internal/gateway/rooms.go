package gateway

import "strconv"

func matchRoom(matchID uint64) string { return "match:" + strconv.FormatUint(matchID, 10) }

// userRoom is the personal notification channel of a user, joined
// automatically by every connection of that user.
func userRoom(userID uint64) string { return "user:" + strconv.FormatUint(userID, 10) }
