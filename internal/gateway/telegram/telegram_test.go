package telegram

import (
	"testing"

	tele "gopkg.in/telebot.v4"

	"estatebot/internal/gateway"
)

func msg(text string) *tele.Message {
	return &tele.Message{
		Text:   text,
		Chat:   &tele.Chat{ID: 42},
		Sender: &tele.User{Username: "admin"},
	}
}

func TestClassifyText(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name    string
		text    string
		kind    gateway.UpdateKind
		command string
		tail    string
	}{
		{"plain text", "привет", gateway.UpdateText, "", "привет"},
		{"bare command", "/start", gateway.UpdateCommand, "/start", ""},
		{"command with bot name", "/done@estate_bot", gateway.UpdateCommand, "/done", ""},
		{"command with args", "/delete_abc 123", gateway.UpdateCommand, "/delete_abc", "123"},
		{"menu button", "➕ Добавить объект", gateway.UpdateText, "", "➕ Добавить объект"},
		{"slash mid-text", "цена 100/месяц", gateway.UpdateText, "", "цена 100/месяц"},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			up := classifyText(msg(tc.text))
			if up.Kind != tc.kind {
				t.Fatalf("kind = %s, want %s", up.Kind, tc.kind)
			}
			if up.Command != tc.command {
				t.Fatalf("command = %q, want %q", up.Command, tc.command)
			}
			if up.Text != tc.tail {
				t.Fatalf("text = %q, want %q", up.Text, tc.tail)
			}
			if up.ChatID != 42 || up.Username != "admin" {
				t.Fatalf("identity lost: %+v", up)
			}
		})
	}
}

func TestChatRef(t *testing.T) {
	t.Parallel()
	for _, id := range []string{"@channel", "-1001234567890", "42"} {
		if got := chatRef(id).Recipient(); got != id {
			t.Fatalf("recipient = %q, want %q", got, id)
		}
	}
}
