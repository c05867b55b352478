package store

import "errors"

// Ошибки доменного уровня. Хендлеры сопоставляют их с HTTP-статусами
// через errors.Is; всё остальное считается сбоем хранилища и наружу
// не раскрывается.
var (
	// ErrNotFound намеренно объединяет "не существует", "не ваше" и
	// "уже обработано", чтобы не раскрывать лишнего вызывающему.
	ErrNotFound = errors.New("запись не найдена")

	// Пользователи
	ErrUsernameTaken = errors.New("имя пользователя уже занято")

	// Предметы
	ErrInvalidName        = errors.New("название предмета не может быть пустым")
	ErrNameTooLong        = errors.New("название предмета слишком длинное")
	ErrDescriptionTooLong = errors.New("описание предмета слишком длинное")

	// Предложения обмена
	ErrSelfTrade       = errors.New("нельзя предложить обмен самому себе")
	ErrNotOwner        = errors.New("предлагаемый предмет вам не принадлежит")
	ErrItemUnavailable = errors.New("запрашиваемый предмет недоступен")
	ErrDuplicateOffer  = errors.New("такое предложение обмена уже существует")
	ErrStaleOffer      = errors.New("предметы предложения сменили владельца, предложение отменено")

	// Сообщения
	ErrEmptyContent     = errors.New("текст сообщения не может быть пустым")
	ErrContentTooLong   = errors.New("текст сообщения слишком длинный")
	ErrReceiverNotFound = errors.New("получатель не найден")
)
