package session

import (
	"encoding/json"
	"errors"
	"fmt"
)

const (
	// CurrentSchemaVersion is written by Encode.
	CurrentSchemaVersion = 1

	// legacySchemaVersion marks records written without an envelope version, the shape
	// browser-side clients stored before versioning existed.
	legacySchemaVersion = 0
)

var (
	// ErrSessionCorrupt is returned when a stored record cannot be decoded into a session.
	ErrSessionCorrupt = errors.New("session record corrupt")
	// ErrUnsupportedVersion is returned for records written by a newer schema.
	ErrUnsupportedVersion = errors.New("unsupported session schema version")
)

type record struct {
	Version int `json:"v"`
	Session
}

// Encode serializes s into the versioned JSON envelope.
func Encode(s *Session) ([]byte, error) {
	if s == nil {
		return nil, errors.New("nil session")
	}
	if s.Username == "" {
		return nil, errors.New("session username empty")
	}

	data, err := json.Marshal(record{Version: CurrentSchemaVersion, Session: *s})
	if err != nil {
		return nil, fmt.Errorf("encode session: %w", err)
	}
	return data, nil
}

// Decode parses a stored record. Legacy unversioned records are accepted and migrated to
// the current shape in memory.
func Decode(data []byte) (*Session, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty record", ErrSessionCorrupt)
	}

	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSessionCorrupt, err)
	}

	switch rec.Version {
	case CurrentSchemaVersion, legacySchemaVersion:
	default:
		return nil, fmt.Errorf("%w: %w %d", ErrSessionCorrupt, ErrUnsupportedVersion, rec.Version)
	}

	if rec.Username == "" {
		return nil, fmt.Errorf("%w: missing username", ErrSessionCorrupt)
	}

	s := rec.Session
	return &s, nil
}
