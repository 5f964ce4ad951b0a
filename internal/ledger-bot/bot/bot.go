package bot

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/mymmrac/telego"
	th "github.com/mymmrac/telego/telegohandler"
	tu "github.com/mymmrac/telego/telegoutil"
	"go.uber.org/zap"
)

const (
	welcomeText = "Добро пожаловать в Prediction Market!"
	playButton  = "Играть 🚀"
)

// Accounts registra a conta no ledger a partir do /start
type Accounts interface {
	ResolveUser(ctx context.Context, userID int64, username string, referrer *int64) (int64, error)
}

// Bot é o front-end de chat: /start [ref] abre o mini-app com o convite repassado
type Bot struct {
	Instance  *telego.Bot
	Accounts  Accounts
	WebAppURL string
	Log       *zap.Logger
}

func NewBot(token string, accounts Accounts, webAppURL string, log *zap.Logger) (*Bot, error) {
	tgBot, err := telego.NewBot(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}
	return &Bot{Instance: tgBot, Accounts: accounts, WebAppURL: webAppURL, Log: log}, nil
}

// Start faz long polling até o contexto ser cancelado
func (b *Bot) Start(ctx context.Context) error {
	updates, err := b.Instance.UpdatesViaLongPolling(ctx, nil)
	if err != nil {
		return fmt.Errorf("long polling: %w", err)
	}

	handler, err := th.NewBotHandler(b.Instance, updates)
	if err != nil {
		return fmt.Errorf("bot handler: %w", err)
	}

	handler.Handle(func(ctx *th.Context, update telego.Update) error {
		msg := update.Message
		if msg == nil || msg.From == nil {
			return nil
		}
		reply := b.startReply(ctx.Context(), msg.Chat.ID, *msg.From, msg.Text)
		if _, err := ctx.Bot().SendMessage(ctx.Context(), reply); err != nil {
			b.Log.Warn("send start reply", zap.Int64("user_id", msg.From.ID), zap.Error(err))
		}
		return nil
	}, th.CommandEqual("start"))

	b.Log.Info("bot polling started")
	return handler.Start()
}

// startReply registra a conta e monta a mensagem com o botão do mini-app.
// Falha no ledger não impede a resposta: o mini-app resolve a conta de novo ao abrir
func (b *Bot) startReply(ctx context.Context, chatID int64, from telego.User, text string) *telego.SendMessageParams {
	ref := parseRef(text, from.ID)

	if b.Accounts != nil {
		balance, err := b.Accounts.ResolveUser(ctx, from.ID, displayName(from), ref)
		if err != nil {
			b.Log.Warn("ledger resolve", zap.Int64("user_id", from.ID), zap.Error(err))
		} else {
			b.Log.Info("account resolved", zap.Int64("user_id", from.ID), zap.Int64("balance", balance), zap.Int64p("ref", ref))
		}
	}

	keyboard := tu.InlineKeyboard(
		tu.InlineKeyboardRow(
			tu.InlineKeyboardButton(playButton).WithWebApp(&telego.WebAppInfo{URL: webAppURL(b.WebAppURL, ref)}),
		),
	)
	return tu.Message(tu.ID(chatID), welcomeText).WithReplyMarkup(keyboard)
}

// parseRef extrai o id de quem convidou de "/start <id>"; aceita só dígitos e ignora auto-convite
func parseRef(text string, self int64) *int64 {
	parts := strings.Fields(text)
	if len(parts) < 2 {
		return nil
	}
	arg := parts[1]
	for _, r := range arg {
		if r < '0' || r > '9' {
			return nil
		}
	}
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id == self {
		return nil
	}
	return &id
}

// webAppURL acrescenta ?ref=<id> preservando a query já existente
func webAppURL(base string, ref *int64) string {
	if ref == nil {
		return base
	}
	u, err := url.Parse(base)
	if err != nil {
		return base
	}
	q := u.Query()
	q.Set("ref", strconv.FormatInt(*ref, 10))
	u.RawQuery = q.Encode()
	return u.String()
}

func displayName(u telego.User) string {
	if u.Username != "" {
		return u.Username
	}
	return u.FirstName
}
