package protocol

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oggyb/devmatch/internal/db"
	svcErr "github.com/oggyb/devmatch/internal/errors"
)

func TestDecode_RoomEvents(t *testing.T) {
	d := NewDecoder(10)

	cases := []struct {
		raw  string
		want Inbound
	}{
		{`{"event":"join-room","data":"12"}`, JoinRoom{MatchID: 12}},
		{`{"event":"join-room","data":12}`, JoinRoom{MatchID: 12}},
		{`{"event":"typing","data":{"matchId":"7"}}`, Typing{MatchID: 7}},
		{`{"event":"stop-typing","data":" 7 "}`, StopTyping{MatchID: 7}},
	}
	for _, tc := range cases {
		got, err := d.Decode([]byte(tc.raw))
		require.NoError(t, err, tc.raw)
		assert.Equal(t, tc.want, got)
		assert.Equal(t, tc.want.Name(), got.Name())
	}
}

func TestDecode_SendMessage(t *testing.T) {
	d := NewDecoder(10)

	got, err := d.Decode([]byte(`{"event":"send-message","data":{"matchId":"3","content":"  hello "}}`))
	require.NoError(t, err)
	// content is forwarded untrimmed; the router trims
	assert.Equal(t, SendMessage{MatchID: 3, Content: "  hello "}, got)

	// empty content passes the boundary so the cooldown is still consumed
	got, err = d.Decode([]byte(`{"event":"send-message","data":{"matchId":3,"content":""}}`))
	require.NoError(t, err)
	assert.Equal(t, SendMessage{MatchID: 3}, got)

	// rune count, not bytes
	got, err = d.Decode([]byte(`{"event":"send-message","data":{"matchId":3,"content":"éééééééééé"}}`))
	require.NoError(t, err)
	assert.Equal(t, "éééééééééé", got.(SendMessage).Content)
}

func TestDecode_Rejects(t *testing.T) {
	d := NewDecoder(10)

	for _, raw := range []string{
		`not json`,
		`{"data":"1"}`,
		`{"event":"hack","data":"1"}`,
		`{"event":"join-room"}`,
		`{"event":"join-room","data":null}`,
		`{"event":"join-room","data":"abc"}`,
		`{"event":"join-room","data":"-1"}`,
		`{"event":"join-room","data":"0"}`,
		`{"event":"join-room","data":1.5}`,
		`{"event":"typing","data":{"matchId":true}}`,
		`{"event":"send-message","data":"1"}`,
		`{"event":"send-message","data":{"content":"hi"}}`,
		`{"event":"send-message","data":{"matchId":"1","content":"` + strings.Repeat("x", 11) + `"}}`,
	} {
		_, err := d.Decode([]byte(raw))
		assert.True(t, svcErr.IsKind(err, svcErr.KindInvalid), "%s -> %v", raw, err)
	}
}

func TestDecode_ValidationErrorUsesJSONName(t *testing.T) {
	d := NewDecoder(0)
	_, err := d.Decode([]byte(`{"event":"send-message","data":{"matchId":"x1","content":"hi"}}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "matchId")
}

func TestEncode(t *testing.T) {
	b, err := Encode(EventUserOnline, FormatID(5))
	require.NoError(t, err)
	assert.JSONEq(t, `{"event":"user-online","data":"5"}`, string(b))

	b, err = Encode(EventOtherUserStatus, UserStatus{UserID: "2", Online: false})
	require.NoError(t, err)
	assert.JSONEq(t, `{"event":"other-user-status","data":{"userId":"2","online":false}}`, string(b))
}

func TestMessageFromModel(t *testing.T) {
	ts := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	m := MessageFromModel(db.Message{ID: 9, MatchID: 3, SenderID: 1, Content: "hello", CreatedAt: ts})

	b, err := Encode(EventReceiveMessage, m)
	require.NoError(t, err)

	var env Envelope
	require.NoError(t, json.Unmarshal(b, &env))
	assert.Equal(t, EventReceiveMessage, env.Event)
	assert.JSONEq(t,
		`{"_id":"9","matchId":"3","senderId":"1","content":"hello","createdAt":"2024-05-01T12:00:00Z"}`,
		string(env.Data))
}
