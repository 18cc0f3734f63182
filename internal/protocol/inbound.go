package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"

	svcErr "github.com/oggyb/devmatch/internal/errors"
)

// Inbound is the closed set of client events.
type Inbound interface {
	Name() string
}

type JoinRoom struct{ MatchID uint64 }
type Typing struct{ MatchID uint64 }
type StopTyping struct{ MatchID uint64 }

// SendMessage carries the raw content; trimming and the empty check happen
// in the router, after the cooldown gate.
type SendMessage struct {
	MatchID uint64
	Content string
}

func (JoinRoom) Name() string    { return EventJoinRoom }
func (Typing) Name() string      { return EventTyping }
func (StopTyping) Name() string  { return EventStopTyping }
func (SendMessage) Name() string { return EventSendMessage }

// wireID accepts both "12" and 12 so browser clients can send either.
type wireID string

func (w *wireID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*w = wireID(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*w = wireID(n.String())
	return nil
}

type roomPayload struct {
	MatchID wireID `json:"matchId" validate:"required,number"`
}

type sendPayload struct {
	MatchID wireID `json:"matchId" validate:"required,number"`
	Content string `json:"content" validate:"content"`
}

// Decoder parses and validates inbound frames.
type Decoder struct {
	validate   *validator.Validate
	maxContent int
}

// NewDecoder builds a Decoder. maxContent caps message length in runes; zero disables the cap.
func NewDecoder(maxContent int) *Decoder {
	v := validator.New()

	// report json names in errors
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	d := &Decoder{validate: v, maxContent: maxContent}
	if err := v.RegisterValidation("content", d.validContent); err != nil {
		panic(fmt.Sprintf("register content rule: %v", err))
	}
	return d
}

func (d *Decoder) validContent(fl validator.FieldLevel) bool {
	return d.maxContent <= 0 || utf8.RuneCountInString(fl.Field().String()) <= d.maxContent
}

// Decode turns a raw frame into an Inbound variant. Every failure is an
// Invalid domain error; the caller drops the frame.
//
// Example:
//
//	d.Decode([]byte(`{"event":"join-room","data":"12"}`)) // JoinRoom{MatchID: 12}
func (d *Decoder) Decode(raw []byte) (Inbound, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, svcErr.Invalid("malformed frame")
	}

	switch env.Event {
	case EventJoinRoom, EventTyping, EventStopTyping:
		id, err := d.roomID(env.Data)
		if err != nil {
			return nil, err
		}
		switch env.Event {
		case EventJoinRoom:
			return JoinRoom{MatchID: id}, nil
		case EventTyping:
			return Typing{MatchID: id}, nil
		default:
			return StopTyping{MatchID: id}, nil
		}

	case EventSendMessage:
		var p sendPayload
		if err := json.Unmarshal(env.Data, &p); err != nil {
			return nil, svcErr.Invalid("malformed send-message payload")
		}
		if err := d.check(&p); err != nil {
			return nil, err
		}
		id, err := parseID(p.MatchID)
		if err != nil {
			return nil, err
		}
		return SendMessage{MatchID: id, Content: p.Content}, nil

	case "":
		return nil, svcErr.Invalid("missing event name")
	default:
		return nil, svcErr.Invalid("unknown event " + strconv.Quote(env.Event))
	}
}

// roomID accepts either a bare match id ("12" or 12) or {"matchId": ...}.
func (d *Decoder) roomID(data json.RawMessage) (uint64, error) {
	var p roomPayload
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		if err := json.Unmarshal(trimmed, &p); err != nil {
			return 0, svcErr.Invalid("malformed room payload")
		}
	} else if err := json.Unmarshal(trimmed, &p.MatchID); err != nil {
		return 0, svcErr.Invalid("malformed room payload")
	}
	if err := d.check(&p); err != nil {
		return 0, err
	}
	return parseID(p.MatchID)
}

func (d *Decoder) check(v any) error {
	err := d.validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return svcErr.Invalid(fmt.Sprintf("field '%s' failed '%s'", fe.Field(), fe.Tag()))
	}
	return svcErr.Invalid(err.Error())
}

func parseID(w wireID) (uint64, error) {
	id, err := strconv.ParseUint(string(w), 10, 64)
	if err != nil || id == 0 {
		return 0, svcErr.Invalid("matchId must be a valid uint64")
	}
	return id, nil
}
