package formatting

import "strings"

func plural(count int, one, few, many string) string {
	if count%10 == 1 && count%100 != 11 {
		return one
	}
	if count%10 >= 2 && count%10 <= 4 && (count%100 < 10 || count%100 >= 20) {
		return few
	}
	return many
}

// PluralizeSlots возвращает правильное склонение слова "слот"
func PluralizeSlots(count int) string {
	return plural(count, "слот", "слота", "слотов")
}

// PluralizeAppointments склонение слова "запись"
func PluralizeAppointments(count int) string {
	return plural(count, "запись", "записи", "записей")
}

// PluralizeWeeks возвращает правильное склонение слова "неделя"
func PluralizeWeeks(count int) string {
	return plural(count, "неделю", "недели", "недель")
}

func sameName(s, name string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return s != "" && s == strings.ToLower(name)
}
