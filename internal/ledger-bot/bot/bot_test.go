package bot

import (
	"context"
	"errors"
	"testing"

	"github.com/mymmrac/telego"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type fakeAccounts struct {
	userID   int64
	username string
	ref      *int64
	err      error
}

func (f *fakeAccounts) ResolveUser(_ context.Context, userID int64, username string, ref *int64) (int64, error) {
	f.userID, f.username, f.ref = userID, username, ref
	return 500, f.err
}

func TestParseRef(t *testing.T) {
	tests := []struct {
		name string
		text string
		want *int64
	}{
		{name: "no argument", text: "/start"},
		{name: "numeric", text: "/start 123", want: ptr(123)},
		{name: "extra spaces", text: "/start   77  ", want: ptr(77)},
		{name: "non numeric", text: "/start abc"},
		{name: "signed", text: "/start -5"},
		{name: "self referral", text: "/start 42"},
		{name: "overflow", text: "/start 99999999999999999999"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, parseRef(tt.text, 42))
		})
	}
}

func TestWebAppURL(t *testing.T) {
	assert.Equal(t, "https://app.example", webAppURL("https://app.example", nil))
	assert.Equal(t, "https://app.example?ref=9", webAppURL("https://app.example", ptr(9)))
	assert.Equal(t, "https://app.example/play?lang=ru&ref=9", webAppURL("https://app.example/play?lang=ru", ptr(9)))
}

func TestStartReply(t *testing.T) {
	acc := &fakeAccounts{}
	b := &Bot{Accounts: acc, WebAppURL: "https://app.example", Log: zaptest.NewLogger(t)}

	msg := b.startReply(context.Background(), 100, telego.User{ID: 42, FirstName: "Ana", Username: "ana"}, "/start 7")

	assert.Equal(t, int64(42), acc.userID)
	assert.Equal(t, "ana", acc.username)
	assert.Equal(t, ptr(7), acc.ref)

	assert.Equal(t, welcomeText, msg.Text)
	assert.Equal(t, int64(100), msg.ChatID.ID)
	markup, ok := msg.ReplyMarkup.(*telego.InlineKeyboardMarkup)
	require.True(t, ok)
	require.Len(t, markup.InlineKeyboard, 1)
	require.Len(t, markup.InlineKeyboard[0], 1)
	btn := markup.InlineKeyboard[0][0]
	assert.Equal(t, playButton, btn.Text)
	require.NotNil(t, btn.WebApp)
	assert.Equal(t, "https://app.example?ref=7", btn.WebApp.URL)
}

func TestStartReplyLedgerDown(t *testing.T) {
	acc := &fakeAccounts{err: errors.New("connection refused")}
	b := &Bot{Accounts: acc, WebAppURL: "https://app.example", Log: zaptest.NewLogger(t)}

	msg := b.startReply(context.Background(), 1, telego.User{ID: 5, FirstName: "Bo"}, "/start")

	assert.Equal(t, "Bo", acc.username)
	assert.Nil(t, acc.ref)
	markup := msg.ReplyMarkup.(*telego.InlineKeyboardMarkup)
	assert.Equal(t, "https://app.example", markup.InlineKeyboard[0][0].WebApp.URL)
}

func ptr(v int64) *int64 { return &v }
