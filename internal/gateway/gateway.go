// Package gateway defines the messaging-platform contract the rest of the
// bot is written against. The Telegram implementation lives in
// gateway/telegram; tests substitute fakes.
package gateway

import (
	"context"
	"strconv"
)

// ChatID renders a numeric chat identifier as a send target.
func ChatID(id int64) string { return strconv.FormatInt(id, 10) }

type UpdateKind string

const (
	UpdateText    UpdateKind = "text"
	UpdatePhoto   UpdateKind = "photo"
	UpdateCommand UpdateKind = "command"
)

// Update is one inbound event. Events are delivered in arrival order on a
// single channel; the consumer must process one to completion before the
// next (session state is not guarded by locks).
type Update struct {
	Kind     UpdateKind
	ChatID   int64
	Username string

	// Text carries the message text for UpdateText, and the argument tail
	// for UpdateCommand.
	Text string

	// Command is the bare command ("/done"), without bot-name suffix.
	Command string

	Photo *Photo
}

// Photo describes an inbound photo at its largest resolution.
type Photo struct {
	FileID string
	URL    string
}

// Media is an outbound image: a platform-native file ID when available
// (preferred, no re-upload), otherwise raw bytes.
type Media struct {
	FileID string
	Data   []byte
}

// Keyboard is a reply keyboard; nil means no keyboard change.
type Keyboard struct {
	Rows    [][]string
	OneTime bool
}

// SendOptions carries the optional knobs of a text send.
type SendOptions struct {
	Keyboard *Keyboard
}

// Sender is the outbound half of the platform contract. Recipients are
// platform identifiers rendered as strings ("-100123..." or "@channel").
type Sender interface {
	SendText(ctx context.Context, to string, text string, opt *SendOptions) error
	SendPhoto(ctx context.Context, to string, photo Media, caption string) error
	SendAlbum(ctx context.Context, to string, photos []Media, firstCaption string) error
	SendDocument(ctx context.Context, to string, data []byte, filename, caption string) error

	// FileURL resolves a native file ID to a fetchable link.
	FileURL(ctx context.Context, fileID string) (string, error)
}
