package switchapi

import (
	"bytes"
	"fmt"

	"github.com/buger/jsonparser"
)

// Link relations used by the switch.
const (
	RelSelf                = "self"
	RelProperties          = "/rels/properties"
	RelControlMessage      = "/rels/controlmessage"
	RelSession             = "/rels/session"
	RelStateNotification   = "/rels/statenotification"
	RelMessageNotification = "/rels/messagenotification"
)

type Link struct {
	Rel  string `json:"rel"`
	Href string `json:"href,omitempty"`
}

type SessionResource struct {
	SessionID      int        `json:"sessionId"`
	CallerID       string     `json:"callerId"`
	CallID         string     `json:"callId"`
	Status         string     `json:"status"`
	NetworkQuality string     `json:"networkQuality"`
	NetworkType    string     `json:"networkType"`
	Properties     Properties `json:"properties"`
	Links          []Link     `json:"links"`
}

type PropertiesResource struct {
	SessionID  int        `json:"sessionId"`
	Properties Properties `json:"properties"`
	Links      []Link     `json:"links"`
}

// Href returns the first link with the given relation.
func (s *SessionResource) Href(rel string) (string, bool) {
	for _, l := range s.Links {
		if l.Rel == rel {
			return l.Href, true
		}
	}
	return "", false
}

// NewSessionRequest is the body of POST sessions.
type NewSessionRequest struct {
	CallerID        string `json:"callerId"`
	CallID          string `json:"callId"`
	ImmediateReturn bool   `json:"immediateReturn"`
}

type SendURLRequest struct {
	URL string `json:"url"`
}

type PropertyRequest struct {
	Name  string  `json:"name"`
	Value *string `json:"value"`
}

// Properties holds a raw JSON object of string properties in wire order.
type Properties []byte

func (p *Properties) UnmarshalJSON(b []byte) error {
	*p = append((*p)[:0], b...)
	return nil
}

func (p Properties) MarshalJSON() ([]byte, error) {
	if len(p) == 0 {
		return []byte("{}"), nil
	}
	return p, nil
}

// Each visits the properties in the order the switch sent them.
func (p Properties) Each(fn func(key, value string)) error {
	return EachField(p, fn)
}

// EachField visits the members of a flat JSON object in document order.
// Strings are unescaped, null becomes "" and other scalars keep their JSON text.
// An empty or null document has no members.
func EachField(data []byte, fn func(key, value string)) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}
	err := jsonparser.ObjectEach(trimmed, func(k, v []byte, dt jsonparser.ValueType, _ int) error {
		key, err := jsonparser.ParseString(k)
		if err != nil {
			return err
		}
		switch dt {
		case jsonparser.String:
			s, err := jsonparser.ParseString(v)
			if err != nil {
				return err
			}
			fn(key, s)
		case jsonparser.Null:
			fn(key, "")
		default:
			fn(key, string(v))
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedBody, err)
	}
	return nil
}
