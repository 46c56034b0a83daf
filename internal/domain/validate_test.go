package domain

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestValidUsername(t *testing.T) {
	cases := []struct {
		input string
		want  bool
	}{
		{"durov", true},
		{"tech_news_2024", true},
		{"abcd", false},  // короче 5
		{"ab-cd", false}, // дефис вне алфавита
		{"канал", false},
		{"", false},
		{"a234567890123456789012345678901234", false}, // длиннее 32
	}
	for _, tc := range cases {
		if got := ValidUsername(tc.input); got != tc.want {
			t.Errorf("ValidUsername(%q) = %v, ожидалось %v", tc.input, got, tc.want)
		}
	}
}

func TestValidFingerprint(t *testing.T) {
	cases := []struct {
		input string
		want  bool
	}{
		{"a1b2c3d4e5f6a7b8", true},
		{"short", false},
		{"a1b2c3d4e5f6a7b8!", false},
		{"", false},
	}
	for _, tc := range cases {
		if got := ValidFingerprint(tc.input); got != tc.want {
			t.Errorf("ValidFingerprint(%q) = %v, ожидалось %v", tc.input, got, tc.want)
		}
	}
}

func TestNormalizePage(t *testing.T) {
	if got := NormalizePage(0); got != 1 {
		t.Errorf("нулевая страница: %d, ожидалось 1", got)
	}
	if got := NormalizePage(MaxPage + 1); got != MaxPage {
		t.Errorf("страница сверх предела: %d, ожидалось %d", got, MaxPage)
	}
	if got := NormalizePage(7); got != 7 {
		t.Errorf("валидная страница изменена: %d", got)
	}
}

func TestNormalizePageSize(t *testing.T) {
	if got := NormalizePageSize(0); got != DefaultPageSize {
		t.Errorf("нулевой размер: %d, ожидалось %d", got, DefaultPageSize)
	}
	if got := NormalizePageSize(500); got != MaxPageSize {
		t.Errorf("размер сверх предела: %d, ожидалось %d", got, MaxPageSize)
	}
}

func TestNormalizeSortBy(t *testing.T) {
	if got := NormalizeSortBy("members"); got != "members" {
		t.Errorf("значение из белого списка изменено: %q", got)
	}
	if got := NormalizeSortBy("weight; DROP TABLE channels"); got != DefaultSortBy {
		t.Errorf("значение вне белого списка: %q, ожидалось %q", got, DefaultSortBy)
	}
}

func TestSanitizeKeyword(t *testing.T) {
	cases := []struct {
		input string
		want  string
	}{
		{"  crypto   news  ", "crypto news"},
		{"${injection}", "injection"},
		{"tab\there", "tab here"},
		{"", ""},
	}
	for _, tc := range cases {
		if got := SanitizeKeyword(tc.input); got != tc.want {
			t.Errorf("SanitizeKeyword(%q) = %q, ожидалось %q", tc.input, got, tc.want)
		}
	}
	long := make([]byte, 300)
	for i := range long {
		long[i] = 'a'
	}
	if got := SanitizeKeyword(string(long)); len(got) != MaxKeywordLength {
		t.Errorf("длинный запрос не обрезан: %d символов", len(got))
	}
}

func TestSanitizeKeywordTruncatesByRunes(t *testing.T) {
	// 80 иероглифов — 240 байт, но меньше лимита в символах: запрос
	// не должен обрезаться вовсе.
	cjk := strings.Repeat("科技频道", 20)
	if got := SanitizeKeyword(cjk); got != cjk {
		t.Fatalf("запрос в пределах лимита символов изменён: %q", got)
	}

	// 120 иероглифов обрезаются до 100 целых символов, без разрезания
	// многобайтовой руны.
	long := strings.Repeat("科技频道", 30)
	got := SanitizeKeyword(long)
	if !utf8.ValidString(got) {
		t.Fatalf("обрезка разрезала руну: %q", got[len(got)-4:])
	}
	if n := utf8.RuneCountInString(got); n != MaxKeywordLength {
		t.Errorf("символов после обрезки: %d, ожидалось %d", n, MaxKeywordLength)
	}

	cyrillic := strings.Repeat("новости ", 30)
	if got := SanitizeKeyword(cyrillic); !utf8.ValidString(got) {
		t.Errorf("кириллический запрос обрезан по байтам: %q", got)
	}
}

func TestNormalizeUsername(t *testing.T) {
	cases := []struct {
		input string
		want  string
	}{
		{"@Durov", "durov"},
		{"t.me/technews", "technews"},
		{"https://t.me/TechNews", "technews"},
		{"  plain_name  ", "plain_name"},
	}
	for _, tc := range cases {
		if got := NormalizeUsername(tc.input); got != tc.want {
			t.Errorf("NormalizeUsername(%q) = %q, ожидалось %q", tc.input, got, tc.want)
		}
	}
}

func TestLikeBonus(t *testing.T) {
	if got := LikeBonus(0); got != 0 {
		t.Errorf("бонус без лайков: %d", got)
	}
	if got := LikeBonus(7); got != 700 {
		t.Errorf("бонус за 7 лайков: %d, ожидалось 700", got)
	}
	if got := LikeBonus(50_000); got != LikeBonusCap {
		t.Errorf("бонус на границе потолка: %d, ожидалось %d", got, LikeBonusCap)
	}
	if got := LikeBonus(1_000_000); got != LikeBonusCap {
		t.Errorf("бонус выше потолка: %d, ожидалось %d", got, LikeBonusCap)
	}
}
