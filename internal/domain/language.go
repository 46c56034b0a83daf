package domain

import "unicode"

// Language — закрытый набор языковых меток каталога.
// Классификация детерминированная: пакетное понижение веса по языку
// опирается на её повторяемость.
type Language string

const (
	LanguageZH    Language = "zh"
	LanguageEN    Language = "en"
	LanguageRU    Language = "ru"
	LanguageJA    Language = "ja"
	LanguageKO    Language = "ko"
	LanguageAR    Language = "ar"
	LanguageTH    Language = "th"
	LanguageVI    Language = "vi"
	LanguageOther Language = "other"
)

// Languages перечисляет все метки в стабильном порядке.
func Languages() []Language {
	return []Language{
		LanguageZH, LanguageEN, LanguageRU, LanguageJA,
		LanguageKO, LanguageAR, LanguageTH, LanguageVI, LanguageOther,
	}
}

// Valid сообщает, входит ли метка в закрытый набор.
func (l Language) Valid() bool {
	for _, known := range Languages() {
		if l == known {
			return true
		}
	}
	return false
}

// vietnameseMarks — латинские буквы с вьетнамскими диакритиками,
// которых нет в западноевропейских языках.
var vietnameseMarks = map[rune]struct{}{
	'ă': {}, 'â': {}, 'đ': {}, 'ê': {}, 'ô': {}, 'ơ': {}, 'ư': {},
	'Ă': {}, 'Â': {}, 'Đ': {}, 'Ê': {}, 'Ô': {}, 'Ơ': {}, 'Ư': {},
}

// ClassifyName относит отображаемое имя канала к языковой метке по
// диапазонам письменностей. Кана проверяется раньше иероглифов: японские
// названия обычно содержат и кандзи, и кану.
func ClassifyName(name string) Language {
	var (
		kana, hangul, han, thai, arabic, cyrillic, viet, latin int
	)
	for _, r := range name {
		switch {
		case unicode.In(r, unicode.Hiragana, unicode.Katakana):
			kana++
		case unicode.Is(unicode.Hangul, r):
			hangul++
		case unicode.Is(unicode.Han, r):
			han++
		case unicode.Is(unicode.Thai, r):
			thai++
		case unicode.Is(unicode.Arabic, r):
			arabic++
		case unicode.Is(unicode.Cyrillic, r):
			cyrillic++
		case isVietnameseRune(r):
			viet++
		case unicode.Is(unicode.Latin, r):
			latin++
		}
	}
	switch {
	case kana > 0:
		return LanguageJA
	case hangul > 0:
		return LanguageKO
	case han > 0:
		return LanguageZH
	case thai > 0:
		return LanguageTH
	case arabic > 0:
		return LanguageAR
	case cyrillic > 0:
		return LanguageRU
	case viet > 0:
		return LanguageVI
	case latin > 0:
		return LanguageEN
	default:
		return LanguageOther
	}
}

func isVietnameseRune(r rune) bool {
	if _, ok := vietnameseMarks[r]; ok {
		return true
	}
	// Блок Latin Extended Additional: вьетнамские буквы с тонами.
	return r >= 0x1EA0 && r <= 0x1EF9
}
