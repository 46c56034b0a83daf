package domain

import "testing"

func TestClassifyName(t *testing.T) {
	cases := []struct {
		name string
		want Language
	}{
		{"科技新闻频道", LanguageZH},
		{"Tech News Daily", LanguageEN},
		{"Новости технологий", LanguageRU},
		{"テクノロジー速報", LanguageJA},
		{"技術ニュース", LanguageJA}, // кандзи + кана: кана решает
		{"기술 뉴스", LanguageKO},
		{"أخبار التقنية", LanguageAR},
		{"ข่าวเทคโนโลยี", LanguageTH},
		{"Tin tức công nghệ", LanguageVI},
		{"12345", LanguageOther},
		{"", LanguageOther},
		{"News Новости", LanguageRU}, // кириллица приоритетнее латиницы
	}
	for _, tc := range cases {
		if got := ClassifyName(tc.name); got != tc.want {
			t.Errorf("ClassifyName(%q) = %q, ожидалось %q", tc.name, got, tc.want)
		}
	}
}

func TestClassifyNameDeterministic(t *testing.T) {
	name := "Tech 新闻 Новости"
	first := ClassifyName(name)
	for i := 0; i < 100; i++ {
		if got := ClassifyName(name); got != first {
			t.Fatalf("классификация недетерминирована: %q и %q", first, got)
		}
	}
}

func TestLanguageValid(t *testing.T) {
	for _, l := range Languages() {
		if !l.Valid() {
			t.Errorf("метка %q должна быть валидной", l)
		}
	}
	if Language("fr").Valid() {
		t.Error("неизвестная метка прошла проверку")
	}
}
