package ui

import "testing"

func TestLocalizationFallbacks(t *testing.T) {
	l := NewLocalization()

	if got := l.GetText(KeyDownload); got != "Download" {
		t.Errorf("Expected English default, got %q", got)
	}

	l.SetLanguage(LangRussian)
	if got := l.GetText(KeyDownload); got != "Скачать" {
		t.Errorf("Expected Russian text, got %q", got)
	}

	l.SetLanguage("de")
	if got := l.GetCurrentLanguage(); got != LangEnglish {
		t.Errorf("Unknown language should fall back to English, got %q", got)
	}

	if got := l.GetText("no_such_key"); got != "no_such_key" {
		t.Errorf("Missing key should be returned as is, got %q", got)
	}
}

func TestLocalizationSystemLanguage(t *testing.T) {
	l := NewLocalization()
	l.SetLanguage(LangSystem)

	if _, ok := l.GetAvailableLanguages()[l.GetCurrentLanguage()]; !ok {
		t.Errorf("System language resolved to unavailable %q", l.GetCurrentLanguage())
	}
}

func TestLocalizationComplete(t *testing.T) {
	l := NewLocalization()
	english := l.texts[LangEnglish]

	for code := range l.GetAvailableLanguages() {
		texts, ok := l.texts[code]
		if !ok {
			t.Errorf("No texts for language %s", code)
			continue
		}
		for key := range english {
			if _, found := texts[key]; !found {
				t.Errorf("Language %s is missing key %s", code, key)
			}
		}
	}
}
