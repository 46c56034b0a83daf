package domain

import (
	"regexp"
	"strings"
)

// Правила ввода каталога: username по правилам Telegram, fingerprint —
// идентификатор устройства от FingerprintJS.
var (
	usernameRegex    = regexp.MustCompile(`^[a-zA-Z0-9_]{5,32}$`)
	fingerprintRegex = regexp.MustCompile(`^[a-zA-Z0-9]{16,64}$`)
	keywordStripRe   = regexp.MustCompile(`[\x00-\x1f\x7f${}]`)
	spaceCollapseRe  = regexp.MustCompile(`\s+`)
)

// Границы параметров страницы.
const (
	MaxPage          = 10000
	DefaultPageSize  = 20
	MaxPageSize      = 100
	MaxKeywordLength = 100
	DefaultSortBy    = "weight"
)

// sortByWhitelist — допустимые поля сортировки выдачи.
var sortByWhitelist = map[string]struct{}{
	"weight":  {},
	"members": {},
	"created": {},
	"updated": {},
}

// ValidUsername проверяет формат username канала.
func ValidUsername(username string) bool {
	return usernameRegex.MatchString(username)
}

// ValidFingerprint проверяет формат отпечатка устройства.
func ValidFingerprint(fingerprint string) bool {
	return fingerprintRegex.MatchString(fingerprint)
}

// NormalizePage приводит номер страницы к допустимому диапазону.
func NormalizePage(page int) int {
	if page < 1 {
		return 1
	}
	if page > MaxPage {
		return MaxPage
	}
	return page
}

// NormalizePageSize приводит размер страницы к допустимому диапазону.
func NormalizePageSize(size int) int {
	if size < 1 {
		return DefaultPageSize
	}
	if size > MaxPageSize {
		return MaxPageSize
	}
	return size
}

// NormalizeSortBy возвращает поле сортировки из белого списка.
func NormalizeSortBy(sortBy string) string {
	if _, ok := sortByWhitelist[sortBy]; ok {
		return sortBy
	}
	return DefaultSortBy
}

// SanitizeKeyword чистит поисковый запрос: обрезает длину, убирает
// управляющие символы и служебные знаки, схлопывает пробелы.
// Обрезка идёт по рунам: срез по байтам разрезал бы многобайтовый
// символ, и битый UTF-8 дошёл бы до хранилища.
func SanitizeKeyword(keyword string) string {
	clean := strings.TrimSpace(keyword)
	if runes := []rune(clean); len(runes) > MaxKeywordLength {
		clean = string(runes[:MaxKeywordLength])
	}
	clean = keywordStripRe.ReplaceAllString(clean, "")
	clean = spaceCollapseRe.ReplaceAllString(clean, " ")
	return strings.TrimSpace(clean)
}

// NormalizeUsername приводит ввод вида @name, t.me/name или ссылки к
// каноничному username в нижнем регистре. Формат здесь не проверяется.
func NormalizeUsername(input string) string {
	clean := strings.ToLower(strings.TrimSpace(input))
	clean = strings.TrimPrefix(clean, "https://t.me/")
	clean = strings.TrimPrefix(clean, "http://t.me/")
	clean = strings.TrimPrefix(clean, "t.me/")
	return strings.TrimPrefix(clean, "@")
}
