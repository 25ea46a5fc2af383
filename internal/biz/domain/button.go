package domain

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// Button is an inline button captured from an upstream message.
// Exactly one of URL or Data is set: URL buttons pass through to the
// end user unchanged, Data buttons carry the upstream's opaque callback
// payload and need translation before display.
type Button struct {
	Label string
	URL   string
	Data  []byte

	// SourceMsgID is the upstream message the button was attached to.
	// Needed to replay the callback against the right message.
	SourceMsgID int
}

// IsURL reports whether the button is a plain URL button.
func (b Button) IsURL() bool {
	return b.URL != ""
}

// buttonRecord is the storage encoding of a Button. Callback payloads
// are raw bytes from the upstream protocol, so they are hex-encoded
// rather than stored as free-form strings.
type buttonRecord struct {
	Text  string `json:"text"`
	URL   string `json:"url,omitempty"`
	Data  string `json:"callback_data,omitempty"`
	MsgID int    `json:"msg_id,omitempty"`
}

// EncodeButtons serializes buttons for persistence.
func EncodeButtons(buttons []Button) ([]byte, error) {
	if len(buttons) == 0 {
		return nil, nil
	}
	records := make([]buttonRecord, 0, len(buttons))
	for _, b := range buttons {
		rec := buttonRecord{Text: b.Label, MsgID: b.SourceMsgID}
		if b.URL != "" {
			rec.URL = b.URL
		} else {
			rec.Data = hex.EncodeToString(b.Data)
		}
		records = append(records, rec)
	}
	return json.Marshal(records)
}

// DecodeButtons restores buttons from their storage encoding.
func DecodeButtons(raw []byte) ([]Button, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var records []buttonRecord
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, fmt.Errorf("failed to decode buttons: %w", err)
	}
	buttons := make([]Button, 0, len(records))
	for _, rec := range records {
		b := Button{Label: rec.Text, URL: rec.URL, SourceMsgID: rec.MsgID}
		if rec.URL == "" && rec.Data != "" {
			data, err := hex.DecodeString(rec.Data)
			if err != nil {
				// Legacy rows stored plain strings; keep them usable.
				data = []byte(rec.Data)
			}
			b.Data = data
		}
		buttons = append(buttons, b)
	}
	return buttons, nil
}

// MirrorMessage is a message observed on the mirror session, normalized
// from the upstream protocol's types.
type MirrorMessage struct {
	ID   int
	Text string
	Rows [][]Button
}

// FlatButtons returns all buttons of the message in row order.
func (m *MirrorMessage) FlatButtons() []Button {
	var out []Button
	for _, row := range m.Rows {
		out = append(out, row...)
	}
	return out
}
