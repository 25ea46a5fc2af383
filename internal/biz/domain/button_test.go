package domain

import (
	"bytes"
	"testing"
)

func TestEncodeDecodeButtons(t *testing.T) {
	buttons := []Button{
		{Label: "Result A", URL: "https://t.me/example"},
		{Label: "下一页 ▶", Data: []byte{0x01, 0xff, 0x00, 0x7f}, SourceMsgID: 42},
	}

	raw, err := EncodeButtons(buttons)
	if err != nil {
		t.Fatalf("EncodeButtons failed: %v", err)
	}

	decoded, err := DecodeButtons(raw)
	if err != nil {
		t.Fatalf("DecodeButtons failed: %v", err)
	}
	if len(decoded) != 2 {
		t.Fatalf("Expected 2 buttons, got %d", len(decoded))
	}

	if decoded[0].Label != "Result A" || decoded[0].URL != "https://t.me/example" {
		t.Errorf("URL button mangled: %+v", decoded[0])
	}
	if !decoded[0].IsURL() {
		t.Error("Expected URL button")
	}

	if decoded[1].Label != "下一页 ▶" {
		t.Errorf("Expected label preserved, got %q", decoded[1].Label)
	}
	if !bytes.Equal(decoded[1].Data, []byte{0x01, 0xff, 0x00, 0x7f}) {
		t.Errorf("Payload bytes mangled: %v", decoded[1].Data)
	}
	if decoded[1].SourceMsgID != 42 {
		t.Errorf("Expected msg ID 42, got %d", decoded[1].SourceMsgID)
	}
}

func TestEncodeButtonsEmpty(t *testing.T) {
	raw, err := EncodeButtons(nil)
	if err != nil {
		t.Fatalf("EncodeButtons failed: %v", err)
	}
	if raw != nil {
		t.Errorf("Expected nil for empty input, got %q", raw)
	}

	decoded, err := DecodeButtons(nil)
	if err != nil {
		t.Fatalf("DecodeButtons failed: %v", err)
	}
	if decoded != nil {
		t.Errorf("Expected nil for empty input, got %v", decoded)
	}
}

func TestDecodeButtonsLegacyPlainData(t *testing.T) {
	// Older rows stored callback payloads as plain strings.
	raw := []byte(`[{"text":"Page 2","callback_data":"page_2","msg_id":7}]`)

	decoded, err := DecodeButtons(raw)
	if err != nil {
		t.Fatalf("DecodeButtons failed: %v", err)
	}
	if len(decoded) != 1 {
		t.Fatalf("Expected 1 button, got %d", len(decoded))
	}
	if string(decoded[0].Data) != "page_2" {
		t.Errorf("Expected legacy payload preserved, got %q", decoded[0].Data)
	}
}

func TestFlatButtons(t *testing.T) {
	msg := &MirrorMessage{
		ID: 1,
		Rows: [][]Button{
			{{Label: "a"}, {Label: "b"}},
			{{Label: "c"}},
		},
	}

	flat := msg.FlatButtons()
	if len(flat) != 3 {
		t.Fatalf("Expected 3 buttons, got %d", len(flat))
	}
	if flat[2].Label != "c" {
		t.Errorf("Expected row order preserved, got %q", flat[2].Label)
	}
}
