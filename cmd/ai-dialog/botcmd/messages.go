package botcmd

// User-facing bot replies. Ukrainian is the working language of the
// helpdesk; validation reasons come localized from the ticket package and
// these strings match their register.
const (
	msgUsage = "Привіт! Опишіть вашу проблему одним повідомленням (текстом або голосом), " +
		"і я сформую заявку до служби підтримки.\n\n" +
		"Команди:\n" +
		"/start — це повідомлення\n" +
		"/cancel — скасувати поточну заявку"

	msgCancelled = "Заявку скасовано."

	msgNoPending = "Немає активної заявки. Опишіть проблему, щоб створити нову."

	msgEditPrompt = "Надішліть виправлення одним повідомленням. Можна змінити заголовок " +
		"(«змінити заголовок на ...»), доповнити опис («додай до опису ...») " +
		"або надіслати всю заявку цілком у форматі «Поле: значення»."

	msgSubmittedFmt = "✅ Заявку %s передано до служби підтримки."

	msgSubmitRetry = "⏳ Не вдалося одразу передати заявку, повторюю спробу. " +
		"Якщо відповіді не буде, зверніться до підтримки напряму."

	msgVoiceFailed = "Не вдалося розпізнати голосове повідомлення. " +
		"Спробуйте ще раз або надішліть текст."

	msgVoiceDisabled = "Голосові повідомлення наразі не підтримуються. Надішліть текст."

	msgTranscriptPrefix = "🎙 Розпізнано: "

	msgConfirmHint = "Перевірте заявку і підтвердіть створення."
)

const (
	buttonConfirm = "✅ Підтвердити"
	buttonEdit    = "✏️ Редагувати"
	buttonCancel  = "❌ Скасувати"
)

const (
	callbackConfirm = "ticket:confirm"
	callbackEdit    = "ticket:edit"
	callbackCancel  = "ticket:cancel"
)

func confirmKeyboard() *inlineKeyboardMarkup {
	return &inlineKeyboardMarkup{
		InlineKeyboard: [][]inlineKeyboardButton{{
			{Text: buttonConfirm, CallbackData: callbackConfirm},
			{Text: buttonEdit, CallbackData: callbackEdit},
			{Text: buttonCancel, CallbackData: callbackCancel},
		}},
	}
}
