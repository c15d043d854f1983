package bot

import (
	"fmt"
	"net/url"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"serotonyl.ru/labubu-roulette/internal/common"
)

var welcomeCaption = strings.Join([]string{
	"🎊 <b>LABUBU РУЛЕТКА</b> — выиграй настоящие призы!",
	"",
	"🧸 Собери 4 части или копи ЛАБУ и обменяй на игрушку.",
	"⚡ Честные шансы, красивый интерфейс, реферальные бонусы.",
}, "\n")

// Кнопки web_app появились в Bot API позже, чем в библиотеке,
// поэтому клавиатура собирается вручную.
type webAppInfo struct {
	URL string `json:"url"`
}

type inlineButton struct {
	Text   string      `json:"text"`
	URL    string      `json:"url,omitempty"`
	WebApp *webAppInfo `json:"web_app,omitempty"`
}

type inlineKeyboard struct {
	InlineKeyboard [][]inlineButton `json:"inline_keyboard"`
}

// gameURL — адрес Mini App. Промокод из /start передаётся параметром ref.
func gameURL(base, referralCode string) string {
	if referralCode == "" {
		return base
	}
	u, err := url.Parse(base)
	if err != nil {
		return base
	}
	q := u.Query()
	q.Set("ref", referralCode)
	u.RawQuery = q.Encode()
	return u.String()
}

func welcomeKeyboard(appURL, supportURL, referralCode string) inlineKeyboard {
	rules := inlineButton{Text: "📜 Правила", URL: strings.SplitN(appURL, "#", 2)[0] + "#rules"}
	second := []inlineButton{rules}
	if supportURL != "" {
		second = append(second, inlineButton{Text: "🆘 Поддержка", URL: supportURL})
	}
	return inlineKeyboard{InlineKeyboard: [][]inlineButton{
		{{Text: "🎮 Играть", WebApp: &webAppInfo{URL: gameURL(appURL, referralCode)}}},
		second,
	}}
}

// referralFromStart достаёт промокод из аргумента /start.
// Поддерживаются "CODE" и "ref_CODE".
func referralFromStart(arg string) string {
	arg = strings.TrimSpace(arg)
	arg = strings.TrimPrefix(arg, "ref_")
	if arg == "" || len(arg) > 32 || strings.ContainsAny(arg, " /?#&") {
		return ""
	}
	return strings.ToUpper(arg)
}

// sendWelcome шлёт приветствие с фото, если оно настроено, иначе текстом.
func (b *Bot) sendWelcome(chatID int64, referralCode string) error {
	params := tgbotapi.Params{}
	params.AddNonZero64("chat_id", chatID)
	params.AddNonEmpty("parse_mode", tgbotapi.ModeHTML)
	if err := params.AddInterface("reply_markup", welcomeKeyboard(b.cfg.WebAppURL, b.cfg.SupportURL, referralCode)); err != nil {
		return fmt.Errorf("ошибка сборки клавиатуры: %w", err)
	}

	endpoint := "sendMessage"
	if b.cfg.WelcomePhotoURL != "" {
		endpoint = "sendPhoto"
		params.AddNonEmpty("photo", b.cfg.WelcomePhotoURL)
		params.AddNonEmpty("caption", welcomeCaption)
	} else {
		params.AddNonEmpty("text", welcomeCaption)
	}

	if _, err := b.api.MakeRequest(endpoint, params); err != nil {
		return fmt.Errorf("%w: %s: %v", common.ErrExternalService, endpoint, err)
	}
	return nil
}
