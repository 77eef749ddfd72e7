package availability

// Selection выбор пользователя на шаге слотов.
// Смена фильтра или даты сбрасывает выбранный слот: он мог перестать подходить.
type Selection struct {
	filter ModeFilter
	date   *Date
	slotID *int64
}

func NewSelection() Selection {
	return Selection{filter: FilterAll}
}

func (s Selection) Filter() ModeFilter { return s.filter }

func (s Selection) Date() (Date, bool) {
	if s.date == nil {
		return Date{}, false
	}
	return *s.date, true
}

func (s Selection) SlotID() (int64, bool) {
	if s.slotID == nil {
		return 0, false
	}
	return *s.slotID, true
}

// SetFilter меняет фильтр; при смене выбранный слот сбрасывается
func (s *Selection) SetFilter(f ModeFilter) {
	if f == s.filter {
		return
	}
	s.filter = f
	s.slotID = nil
}

// SelectDate выбирает дату; при смене выбранный слот сбрасывается
func (s *Selection) SelectDate(d Date) {
	if s.date != nil && *s.date == d {
		return
	}
	s.date = &d
	s.slotID = nil
}

func (s *Selection) SelectSlot(id int64) {
	s.slotID = &id
}

func (s *Selection) ClearSlot() {
	s.slotID = nil
}
