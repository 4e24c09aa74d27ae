package notifylisten

import (
	"encoding/json"

	"github.com/corebank/repocore/errtax"
	"github.com/google/uuid"
)

// Op classifies what a trigger-emitted notification asks the cache to do.
type Op int

const (
	OpUpsert Op = iota
	OpDelete
)

// Payload is the decoded shape of one notification, common to every table's
// channel: an operation, the affected primary key, and the raw JSON so
// per-table handlers can decode the rest of the row themselves.
type Payload struct {
	Op         Op
	PrimaryKey uuid.UUID
	Raw        json.RawMessage
}

type wirePayload struct {
	Op string `json:"op"`
	PK string `json:"pk"`
}

// decodePayload parses a trigger's NOTIFY extra string, which is expected
// to be {"op":"upsert"|"delete","pk":"<uuid>", ...row fields...}.
func decodePayload(raw string) (Payload, error) {
	var wire wirePayload
	if err := json.Unmarshal([]byte(raw), &wire); err != nil {
		return Payload{}, errtax.Wrap(errtax.ErrEncoding, err, "decode notification envelope")
	}

	pk, err := uuid.Parse(wire.PK)
	if err != nil {
		return Payload{}, errtax.Wrap(errtax.ErrEncoding, err, "parse notification primary key %q", wire.PK)
	}

	op := OpUpsert
	if wire.Op == "delete" {
		op = OpDelete
	}

	return Payload{Op: op, PrimaryKey: pk, Raw: json.RawMessage(raw)}, nil
}
