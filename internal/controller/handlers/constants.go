package handlers

// Ограничения на текст, который вводит пользователь
const (
	// Причина обращения
	ReasonMinLength = 3
	ReasonMaxLength = 500

	// Комментарий пациента и заключение врача
	NotesMaxLength = 2000

	// Причина отмены
	CancelReasonMaxLength = 300

	// Профиль врача
	FullNameMinLength  = 3
	FullNameMaxLength  = 150
	SpecialtyMaxLength = 100

	// Кем приходится родственник
	RelationshipMaxLength = 50
)

// emptyMarker ответ "без текста" в необязательных полях
const emptyMarker = "-"
