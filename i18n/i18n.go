// Package i18n provides localized messages for issue codes.
package i18n

// Translator retrieves localized messages for issue codes. data provides
// optional metadata to embed in the message (for example, "expected" or
// "flag").
type Translator interface {
	Message(code string, data map[string]string) string
}

// dictTranslator is the built-in dictionary-based Translator.
type dictTranslator struct{ lang string }

func (t dictTranslator) Message(code string, data map[string]string) string {
	switch t.lang {
	case "ja":
		switch code {
		case "required":
			return "必須の引数が不足しています"
		case "parse_error":
			return "解析エラー"
		case "invalid_enum":
			return "許可されていない値です"
		case "unknown_flag":
			return "未知のフラグです"
		case "wrong_arity":
			return "引数の個数が不正です"
		case "discriminator_missing":
			return "バリアントが選択されていません"
		case "discriminator_unknown":
			return "未知のバリアントです"
		case "instantiation":
			return "値の構築に失敗しました"
		}
	default: // "en"
		switch code {
		case "required":
			return "missing required argument"
		case "parse_error":
			return "could not parse argument"
		case "invalid_enum":
			return "value is not a permitted choice"
		case "unknown_flag":
			return "unrecognized flag"
		case "wrong_arity":
			return "wrong number of tokens"
		case "discriminator_missing":
			return "no variant selected"
		case "discriminator_unknown":
			return "unknown variant"
		case "instantiation":
			return "could not construct value"
		}
	}
	return code
}

var currentTranslator Translator = dictTranslator{lang: "en"}

// SetLanguage switches the built-in Translator language ("en"/"ja").
func SetLanguage(lang string) {
	if lang != "ja" {
		lang = "en"
	}
	currentTranslator = dictTranslator{lang: lang}
}

// SetTranslator replaces the Translator implementation (not limited to the
// dictionary version).
func SetTranslator(tr Translator) {
	if tr == nil {
		currentTranslator = dictTranslator{lang: "en"}
		return
	}
	currentTranslator = tr
}

// T translates code using the current Translator.
func T(code string, data map[string]string) string {
	return currentTranslator.Message(code, data)
}
