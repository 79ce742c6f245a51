package webhook

import (
	"errors"
	"testing"
	"time"
)

func textEvent(id, jid, text string, fromMe bool) Event {
	return Event{
		Event: "messages.upsert",
		Data: EventData{
			Key:              MessageKey{RemoteJID: jid, FromMe: fromMe, ID: id},
			PushName:         "Maria",
			Message:          &MessageContent{Conversation: text},
			MessageTimestamp: 1700000000,
		},
	}
}

func TestExtractInboundText(t *testing.T) {
	msg, err := Extract(textEvent("ABC123", "5511999990000@s.whatsapp.net", "oi, tenho interesse", false))
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if msg.ExternalID != "ABC123" {
		t.Errorf("external id = %q", msg.ExternalID)
	}
	if msg.Direction != "in" {
		t.Errorf("direction = %q, want in", msg.Direction)
	}
	if msg.Phone != "+5511999990000" {
		t.Errorf("phone = %q, want +5511999990000", msg.Phone)
	}
	if msg.Text != "oi, tenho interesse" {
		t.Errorf("text = %q", msg.Text)
	}
	if !msg.ReceivedAt.Equal(time.Unix(1700000000, 0).UTC()) {
		t.Errorf("received at = %v", msg.ReceivedAt)
	}
	if !msg.IsClassifiable() {
		t.Error("inbound text must be classifiable")
	}
}

func TestExtractOutboundIsNotClassifiable(t *testing.T) {
	msg, err := Extract(textEvent("OUT1", "5511999990000@s.whatsapp.net", "respondo já", true))
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if msg.Direction != "out" {
		t.Errorf("direction = %q, want out", msg.Direction)
	}
	if msg.IsClassifiable() {
		t.Error("outbound messages must not be classified")
	}
}

func TestExtractGroupChatSkipped(t *testing.T) {
	_, err := Extract(textEvent("G1", "120363041234567890@g.us", "mensagem de grupo", false))
	if !errors.Is(err, ErrGroupChat) {
		t.Errorf("err = %v, want ErrGroupChat", err)
	}
}

func TestExtractRequiredFields(t *testing.T) {
	cases := []struct {
		name    string
		event   Event
		wantErr error
	}{
		{
			name:    "missing message id",
			event:   textEvent("", "5511999990000@s.whatsapp.net", "oi", false),
			wantErr: ErrMissingEventID,
		},
		{
			name:    "missing chat id",
			event:   textEvent("X1", "", "oi", false),
			wantErr: ErrMissingChatID,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Extract(tc.event); !errors.Is(err, tc.wantErr) {
				t.Errorf("err = %v, want %v", err, tc.wantErr)
			}
		})
	}
}

func TestExtractExtendedText(t *testing.T) {
	event := textEvent("EXT1", "5511999990000@s.whatsapp.net", "", false)
	event.Data.Message = &MessageContent{
		ExtendedTextMessage: &ExtendedTextMessage{Text: "vi o link que mandou"},
	}

	msg, err := Extract(event)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if msg.Text != "vi o link que mandou" {
		t.Errorf("text = %q", msg.Text)
	}
}

func TestExtractImageWithoutCaptionGetsPlaceholder(t *testing.T) {
	event := textEvent("IMG1", "5511999990000@s.whatsapp.net", "", false)
	event.Data.Message = &MessageContent{
		ImageMessage: &MediaMessage{
			URL:        "https://cdn.example/img.jpg",
			Mimetype:   "image/jpeg",
			FileSHA256: "abcd",
			FileLength: 2048,
		},
	}

	msg, err := Extract(event)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if msg.Text != imagePlaceholder {
		t.Errorf("text = %q, want placeholder", msg.Text)
	}
	if msg.Media == nil || msg.Media.Type != "image" {
		t.Fatalf("media = %+v, want image descriptor", msg.Media)
	}
	if msg.Media.SizeBytes != 2048 {
		t.Errorf("media size = %d", msg.Media.SizeBytes)
	}
	if msg.IsClassifiable() {
		t.Error("media messages must not be classified")
	}
}

func TestExtractImageCaptionKept(t *testing.T) {
	event := textEvent("IMG2", "5511999990000@s.whatsapp.net", "", false)
	event.Data.Message = &MessageContent{
		ImageMessage: &MediaMessage{Caption: "segue o comprovante"},
	}

	msg, err := Extract(event)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if msg.Text != "segue o comprovante" {
		t.Errorf("text = %q, want caption", msg.Text)
	}
}

func TestExtractAudioPlaceholder(t *testing.T) {
	event := textEvent("AUD1", "5511999990000@s.whatsapp.net", "", false)
	event.Data.Message = &MessageContent{
		AudioMessage: &MediaMessage{Mimetype: "audio/ogg"},
	}

	msg, err := Extract(event)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if msg.Text != audioPlaceholder {
		t.Errorf("text = %q, want placeholder", msg.Text)
	}
	if msg.Media == nil || msg.Media.Type != "audio" {
		t.Fatalf("media = %+v, want audio descriptor", msg.Media)
	}
}

func TestExtractMissingTimestampFallsBackToNow(t *testing.T) {
	event := textEvent("TS1", "5511999990000@s.whatsapp.net", "oi", false)
	event.Data.MessageTimestamp = 0
	event.MessageTimestamp = 0

	before := time.Now().UTC()
	msg, err := Extract(event)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if msg.ReceivedAt.Before(before.Add(-time.Minute)) {
		t.Errorf("received at = %v, want roughly now", msg.ReceivedAt)
	}
}
