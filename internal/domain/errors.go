package domain

import "errors"

// Классы ошибок ядра. Обработчики сопоставляют их со статусами ответа,
// сырые ошибки хранилищ наружу не выходят.
var (
	// ErrInvalidArgument — некорректный ввод; запрос отклоняется до обращения к хранилищу.
	ErrInvalidArgument = errors.New("некорректный аргумент")
	// ErrNotFound — канал или агрегат отсутствует.
	ErrNotFound = errors.New("не найдено")
	// ErrRateLimited — превышен лимит операций, вызывающий должен подождать.
	ErrRateLimited = errors.New("слишком много запросов")
	// ErrConflict — гонка на уникальной записи; разрешается повторным чтением статуса.
	ErrConflict = errors.New("конфликт записи")
	// ErrUnavailable — хранилище недоступно; кэш и лимитер деградируют, БД — нет.
	ErrUnavailable = errors.New("хранилище недоступно")
	// ErrNotDemoted — восстановление веса нечего откатывать.
	ErrNotDemoted = errors.New("канал не был понижен")
)

// BatchItem — результат по одному каналу в пакетной операции.
type BatchItem struct {
	Username string `json:"username"`
	Name     string `json:"name,omitempty"`
	Before   int64  `json:"before,omitempty"`
	After    int64  `json:"after,omitempty"`
	Reason   string `json:"reason,omitempty"`
}

// BatchResult — итог пакетной операции; сбой одного элемента не прерывает остальные.
type BatchResult struct {
	Success []BatchItem `json:"success"`
	Failed  []BatchItem `json:"failed"`
	Skipped []BatchItem `json:"skipped"`
}
