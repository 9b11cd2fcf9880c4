package i18n_test

import (
	"testing"

	"github.com/mirceamironenco/tyro/i18n"
)

type upperTranslator struct{}

func (upperTranslator) Message(code string, data map[string]string) string {
	return "!" + code
}

func TestLanguageSwitch(t *testing.T) {
	defer i18n.SetLanguage("en")

	if got := i18n.T("required", nil); got != "missing required argument" {
		t.Fatalf("T(required) = %q", got)
	}
	i18n.SetLanguage("ja")
	if got := i18n.T("required", nil); got != "必須の引数が不足しています" {
		t.Fatalf("T(required) = %q", got)
	}
	i18n.SetLanguage("nope")
	if got := i18n.T("required", nil); got != "missing required argument" {
		t.Fatalf("unknown language should fall back to en, got %q", got)
	}
}

func TestCustomTranslator(t *testing.T) {
	i18n.SetTranslator(upperTranslator{})
	defer i18n.SetTranslator(nil)

	if got := i18n.T("parse_error", nil); got != "!parse_error" {
		t.Fatalf("T = %q", got)
	}
}

func TestUnknownCodePassesThrough(t *testing.T) {
	if got := i18n.T("some_new_code", nil); got != "some_new_code" {
		t.Fatalf("T = %q", got)
	}
}
