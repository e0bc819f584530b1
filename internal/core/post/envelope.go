package post

import (
	"encoding/json"
	"fmt"
)

// Kind tags the variant carried by an Envelope.
type Kind string

const (
	KindNew     Kind = "new"
	KindUpdated Kind = "updated"
	KindDeleted Kind = "deleted"
)

// wire type names used by the broadcast message format.
const (
	wireNew     = "NEW_POST"
	wireUpdated = "UPDATED_POST"
	wireDeleted = "DELETED_POST"
)

// Envelope is one mutation event: a new post, an updated post, or the ID
// of a deleted post.
type Envelope struct {
	Kind Kind
	// Post is set for KindNew and KindUpdated.
	Post Post
	// ID is the affected post ID for every kind.
	ID string
}

// NewEvent wraps a freshly created post.
func NewEvent(p Post) Envelope {
	return Envelope{Kind: KindNew, Post: p, ID: p.ID}
}

// UpdatedEvent wraps the full state of an updated post.
func UpdatedEvent(p Post) Envelope {
	return Envelope{Kind: KindUpdated, Post: p, ID: p.ID}
}

// DeletedEvent carries the ID of a removed post.
func DeletedEvent(id string) Envelope {
	return Envelope{Kind: KindDeleted, ID: id}
}

// TargetID returns the ID of the post the envelope refers to.
func (e Envelope) TargetID() string {
	if e.ID != "" {
		return e.ID
	}
	return e.Post.ID
}

func (e Envelope) String() string {
	return fmt.Sprintf("%s(%s)", e.Kind, e.TargetID())
}

type wireEnvelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type deletedPayload struct {
	ID string `json:"id"`
}

// MarshalJSON encodes the envelope as {"type": ..., "payload": ...}.
func (e Envelope) MarshalJSON() ([]byte, error) {
	var (
		typ     string
		payload any
	)

	switch e.Kind {
	case KindNew:
		typ, payload = wireNew, e.Post
	case KindUpdated:
		typ, payload = wireUpdated, e.Post
	case KindDeleted:
		typ, payload = wireDeleted, deletedPayload{ID: e.TargetID()}
	default:
		return nil, fmt.Errorf("marshal envelope: unknown kind %q", e.Kind)
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	return json.Marshal(wireEnvelope{Type: typ, Payload: raw})
}

// UnmarshalJSON decodes the {"type": ..., "payload": ...} form.
func (e *Envelope) UnmarshalJSON(data []byte) error {
	var w wireEnvelope
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	switch w.Type {
	case wireNew, wireUpdated:
		var p Post
		if err := json.Unmarshal(w.Payload, &p); err != nil {
			return fmt.Errorf("decode %s payload: %w", w.Type, err)
		}
		if p.ID == "" {
			return fmt.Errorf("decode %s payload: missing id", w.Type)
		}
		if w.Type == wireNew {
			*e = NewEvent(p)
		} else {
			*e = UpdatedEvent(p)
		}
	case wireDeleted:
		var d deletedPayload
		if err := json.Unmarshal(w.Payload, &d); err != nil {
			return fmt.Errorf("decode %s payload: %w", w.Type, err)
		}
		if d.ID == "" {
			return fmt.Errorf("decode %s payload: missing id", w.Type)
		}
		*e = DeletedEvent(d.ID)
	default:
		return fmt.Errorf("decode envelope: unknown type %q", w.Type)
	}

	return nil
}
