package dialog

import (
	"fmt"
	"strings"
)

const (
	LangRU = "ru"
	LangEN = "en"
)

var catalog = map[string]map[string]string{
	"greeting_menu": {
		LangRU: "Привет! Главное меню:\n• Мои ссылки (/links)\n• Мои сообщения (/messages)\n• Статистика (/stats)",
		LangEN: "Hi! Main menu:\n• My links (/links)\n• My messages (/messages)\n• Statistics (/stats)",
	},
	"invalid_link": {
		LangRU: "Ссылка недействительна или выключена.",
		LangEN: "The link is invalid or disabled.",
	},
	"send_prompt": {
		LangRU: "Отправь анонимное сообщение.",
		LangEN: "Send an anonymous message.",
	},
	"link_prompt": {
		LangRU: "Промпт: %s",
		LangEN: "Prompt: %s",
	},
	"reveal_choice": {
		LangRU: "Выбери режим раскрытия автора:",
		LangEN: "Choose author reveal mode:",
	},
	"reveal_allow": {
		LangRU: "Разрешить раскрытие",
		LangEN: "Allow reveal",
	},
	"reveal_deny": {
		LangRU: "Запретить раскрытие",
		LangEN: "Deny reveal",
	},
	"choose_option": {
		LangRU: "Выберите один из вариантов.",
		LangEN: "Choose one of the options.",
	},
	"enter_text": {
		LangRU: "Введите текст сообщения (1–2000 символов).",
		LangEN: "Enter message text (1–2000 chars).",
	},
	"message_length": {
		LangRU: "Сообщение должно быть от 1 до 2000 символов.",
		LangEN: "Message must be 1–2000 characters.",
	},
	"session_expired": {
		LangRU: "Сессия устарела, начните заново по ссылке.",
		LangEN: "Session expired, start again via the link.",
	},
	"message_sent": {
		LangRU: "Ваше сообщение отправлено!",
		LangEN: "Your message has been sent!",
	},
	"new_message": {
		LangRU: "Новое сообщение по вашей ссылке \"%s\":\n%s",
		LangEN: "New message via your link \"%s\":\n%s",
	},
	"open_message": {
		LangRU: "Открыть сообщение",
		LangEN: "Open message",
	},
	"open_message_n": {
		LangRU: "Открыть #%d",
		LangEN: "Open #%d",
	},
	"message_body": {
		LangRU: "Сообщение по ссылке \"%s\":\n\n%s",
		LangEN: "Message via link \"%s\":\n\n%s",
	},
	"reply_button": {
		LangRU: "Ответить анонимно",
		LangEN: "Reply anonymously",
	},
	"reveal_button": {
		LangRU: "Раскрыть автора",
		LangEN: "Reveal author",
	},
	"reply_prompt": {
		LangRU: "Введите текст ответа (1–2000 символов).",
		LangEN: "Enter reply text (1–2000 chars).",
	},
	"reply_length": {
		LangRU: "Ответ должен быть от 1 до 2000 символов.",
		LangEN: "Reply must be 1–2000 characters.",
	},
	"reply_sent": {
		LangRU: "Ответ отправлен.",
		LangEN: "Reply sent.",
	},
	"reply_received": {
		LangRU: "Вам ответили на сообщение:\n%s",
		LangEN: "You got a reply to your message:\n%s",
	},
	"message_unavailable": {
		LangRU: "Сообщение недоступно.",
		LangEN: "Message is not available.",
	},
	"message_not_found": {
		LangRU: "Сообщение не найдено.",
		LangEN: "Message not found.",
	},
	"reveal_forbidden": {
		LangRU: "Автор запретил раскрытие.",
		LangEN: "The author did not allow reveal.",
	},
	"author_anonymous": {
		LangRU: "Автор анонимен.",
		LangEN: "The author is anonymous.",
	},
	"author": {
		LangRU: "Автор: %s",
		LangEN: "Author: %s",
	},
	"author_no_name": {
		LangRU: "без имени",
		LangEN: "no name",
	},
	"contact_button": {
		LangRU: "Перейти в чат",
		LangEN: "Open chat",
	},
	"stale_control": {
		LangRU: "Кнопка больше не действительна.",
		LangEN: "This button is no longer valid.",
	},
	"unknown_action": {
		LangRU: "Неизвестное действие.",
		LangEN: "Unknown action.",
	},
	"no_messages": {
		LangRU: "Сообщений не найдено по выбранным фильтрам.",
		LangEN: "No messages found for selected filters.",
	},
	"messages_header": {
		LangRU: "Мои сообщения:",
		LangEN: "My messages:",
	},
	"filter_status": {
		LangRU: "Статус: %s",
		LangEN: "Status: %s",
	},
	"filter_link": {
		LangRU: "Ссылка: %s",
		LangEN: "Link: %s",
	},
	"filter_period": {
		LangRU: "Период: с %s",
		LangEN: "Period: since %s",
	},
	"page_prev": {
		LangRU: "◀️ Предыдущие",
		LangEN: "◀️ Previous",
	},
	"page_next": {
		LangRU: "Следующие ▶️",
		LangEN: "Next ▶️",
	},
	"link_not_found": {
		LangRU: "Ссылка не найдена или недоступна.",
		LangEN: "Link not found or not available.",
	},
	"links_header": {
		LangRU: "Мои ссылки:",
		LangEN: "My links:",
	},
	"no_links": {
		LangRU: "У вас нет ссылок. Нажмите 'Создать ссылку'.",
		LangEN: "You have no links. Press 'Create link'.",
	},
	"toggle_button": {
		LangRU: "Вкл/Выкл: %s",
		LangEN: "On/Off: %s",
	},
	"create_link_button": {
		LangRU: "Создать ссылку",
		LangEN: "Create link",
	},
	"enter_link_label": {
		LangRU: "Введите название ссылки (label).",
		LangEN: "Enter link label.",
	},
	"enter_link_prompt": {
		LangRU: "Введите промпт (опционально) или отправьте '-' чтобы пропустить.",
		LangEN: "Enter prompt (optional) or send '-' to skip.",
	},
	"link_created": {
		LangRU: "Ссылка создана:\n%s\n%s",
		LangEN: "Link created:\n%s\n%s",
	},
	"link_deleted": {
		LangRU: "Ссылка «%s» удалена.",
		LangEN: "Link \"%s\" deleted.",
	},
	"delete_usage": {
		LangRU: "Использование: /delete <slug>",
		LangEN: "Usage: /delete <slug>",
	},
	"link_toggled_on": {
		LangRU: "Ссылка включена.",
		LangEN: "Link enabled.",
	},
	"link_toggled_off": {
		LangRU: "Ссылка выключена.",
		LangEN: "Link disabled.",
	},
	"stats_header": {
		LangRU: "Статистика:",
		LangEN: "Statistics:",
	},
	"stats_totals": {
		LangRU: "Всего сообщений: %d\nОтветов: %d\nРаскрытий автора: %d\nЖалоб: %d\nСсылок: %d",
		LangEN: "Messages: %d\nReplies: %d\nAuthor reveals: %d\nReports: %d\nLinks: %d",
	},
	"stats_links_header": {
		LangRU: "По ссылкам:",
		LangEN: "Per link:",
	},
	"stats_link_line": {
		LangRU: "- %s: сообщений %d, уникальных отправителей %d",
		LangEN: "- %s: %d messages, %d unique senders",
	},
	"stats_links_none": {
		LangRU: "По ссылкам: нет данных",
		LangEN: "Per-link: no data",
	},
}

// ResolveLang maps a transport language code to a catalog language.
func ResolveLang(code string) string {
	if strings.HasPrefix(strings.ToLower(code), "en") {
		return LangEN
	}
	return LangRU
}

// tr looks key up for lang, falling back to Russian, and formats args into it.
func tr(lang, key string, args ...any) string {
	entry := catalog[key]
	text, ok := entry[lang]
	if !ok {
		text = entry[LangRU]
	}
	if len(args) > 0 {
		return fmt.Sprintf(text, args...)
	}
	return text
}

// revealChoice reports whether text is one of the two reveal labels in any
// language, and which one.
func revealChoice(text string) (allowed, ok bool) {
	text = strings.TrimSpace(text)
	for _, lang := range []string{LangRU, LangEN} {
		switch text {
		case tr(lang, "reveal_allow"):
			return true, true
		case tr(lang, "reveal_deny"):
			return false, true
		}
	}
	return false, false
}
