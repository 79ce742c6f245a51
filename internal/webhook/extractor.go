package webhook

import (
	"errors"
	"strings"
	"time"

	"leadflow_backend/platform/phone"
)

// Event is the provider-shaped envelope posted to the webhook.
// Only the key fields are required; everything else is best-effort.
type Event struct {
	Event            string      `json:"event"`
	Instance         string      `json:"instance"`
	Data             EventData   `json:"data"`
	MessageTimestamp int64       `json:"messageTimestamp"`
	Raw              interface{} `json:"-"`
}

// EventData carries the message key and content variants.
type EventData struct {
	Key              MessageKey      `json:"key"`
	PushName         string          `json:"pushName"`
	Message          *MessageContent `json:"message"`
	MessageTimestamp int64           `json:"messageTimestamp"`
}

// MessageKey identifies one message within a chat.
type MessageKey struct {
	RemoteJID   string `json:"remoteJid"`
	FromMe      bool   `json:"fromMe"`
	ID          string `json:"id"`
	Participant string `json:"participant,omitempty"`
}

// MessageContent holds the content variants the provider emits. At most one
// is expected to be set.
type MessageContent struct {
	Conversation        string               `json:"conversation,omitempty"`
	ExtendedTextMessage *ExtendedTextMessage `json:"extendedTextMessage,omitempty"`
	ImageMessage        *MediaMessage        `json:"imageMessage,omitempty"`
	AudioMessage        *MediaMessage        `json:"audioMessage,omitempty"`
}

// ExtendedTextMessage is the quoted/linked text variant.
type ExtendedTextMessage struct {
	Text string `json:"text"`
}

// MediaMessage describes an image or audio attachment.
type MediaMessage struct {
	URL        string `json:"url,omitempty"`
	Mimetype   string `json:"mimetype,omitempty"`
	Caption    string `json:"caption,omitempty"`
	FileSHA256 string `json:"fileSha256,omitempty"`
	FileLength int64  `json:"fileLength,omitempty"`
}

// MediaDescriptor is the normalized attachment metadata stored with a message.
type MediaDescriptor struct {
	Type      string // "image" or "audio"
	URL       string
	Mimetype  string
	Hash      string
	SizeBytes int64
}

// NormalizedMessage is the extractor's output: the envelope reduced to the
// fields ingestion persists.
type NormalizedMessage struct {
	ExternalID string
	ChatID     string
	Phone      string // E.164, derived from the chat id
	PushName   string
	Direction  string // "in" or "out"
	Text       string
	Media      *MediaDescriptor
	ReceivedAt time.Time
}

// Extraction validation errors. All of them acknowledge as success at the
// HTTP boundary; they only decide whether a message is stored.
var (
	ErrMissingEventID = errors.New("event has no message id")
	ErrMissingChatID  = errors.New("event has no chat id")
	ErrGroupChat      = errors.New("group chat events are ignored")
)

// Placeholder captions for media without text.
const (
	imagePlaceholder = "[imagem]"
	audioPlaceholder = "[áudio]"
)

const groupChatSuffix = "@g.us"

// Extract validates the envelope tolerantly and normalizes it. The key
// fields (message id, chat id) are required; content is optional and a
// missing timestamp falls back to now.
func Extract(event Event) (NormalizedMessage, error) {
	key := event.Data.Key
	if strings.TrimSpace(key.ID) == "" {
		return NormalizedMessage{}, ErrMissingEventID
	}
	chatID := strings.TrimSpace(key.RemoteJID)
	if chatID == "" {
		return NormalizedMessage{}, ErrMissingChatID
	}
	if strings.HasSuffix(chatID, groupChatSuffix) {
		return NormalizedMessage{}, ErrGroupChat
	}

	msg := NormalizedMessage{
		ExternalID: key.ID,
		ChatID:     chatID,
		Phone:      phone.FromChatID(chatID),
		PushName:   strings.TrimSpace(event.Data.PushName),
		Direction:  "in",
		ReceivedAt: resolveTimestamp(event),
	}
	if key.FromMe {
		msg.Direction = "out"
	}

	msg.Text, msg.Media = extractContent(event.Data.Message)
	return msg, nil
}

// extractContent picks the first content variant present. Media without a
// caption gets a textual placeholder so the conversation history stays
// readable for the classifier.
func extractContent(content *MessageContent) (string, *MediaDescriptor) {
	if content == nil {
		return "", nil
	}

	if text := strings.TrimSpace(content.Conversation); text != "" {
		return text, nil
	}
	if content.ExtendedTextMessage != nil {
		if text := strings.TrimSpace(content.ExtendedTextMessage.Text); text != "" {
			return text, nil
		}
	}

	if img := content.ImageMessage; img != nil {
		caption := strings.TrimSpace(img.Caption)
		if caption == "" {
			caption = imagePlaceholder
		}
		return caption, &MediaDescriptor{
			Type:      "image",
			URL:       img.URL,
			Mimetype:  img.Mimetype,
			Hash:      img.FileSHA256,
			SizeBytes: img.FileLength,
		}
	}

	if audio := content.AudioMessage; audio != nil {
		return audioPlaceholder, &MediaDescriptor{
			Type:      "audio",
			URL:       audio.URL,
			Mimetype:  audio.Mimetype,
			Hash:      audio.FileSHA256,
			SizeBytes: audio.FileLength,
		}
	}

	return "", nil
}

func resolveTimestamp(event Event) time.Time {
	ts := event.Data.MessageTimestamp
	if ts == 0 {
		ts = event.MessageTimestamp
	}
	if ts <= 0 {
		return time.Now().UTC()
	}
	return time.Unix(ts, 0).UTC()
}

// IsClassifiable reports whether ingestion should enqueue a classification
// job for this message: inbound plain text only.
func (m NormalizedMessage) IsClassifiable() bool {
	return m.Direction == "in" && m.Media == nil && strings.TrimSpace(m.Text) != ""
}
