package keyboard

import (
	"fmt"

	"github.com/go-telegram/bot/models"
)

// Page границы страницы [from, to) для total элементов
func Page(page, perPage, total int) (from, to, pages int) {
	if perPage <= 0 {
		perPage = total
	}
	if total == 0 || perPage == 0 {
		return 0, 0, 1
	}
	pages = (total + perPage - 1) / perPage
	page = max(0, min(page, pages-1))
	from = page * perPage
	to = min(from+perPage, total)
	return from, to, pages
}

// PaginationButtons создаёт ряд кнопок пагинации
// prefix - префикс для callback (например "ap_page:")
// currentPage - текущая страница (0-based)
func PaginationButtons(prefix string, currentPage, totalPages int) []models.InlineKeyboardButton {
	if totalPages <= 1 {
		return nil
	}

	var buttons []models.InlineKeyboardButton

	if currentPage > 0 {
		buttons = append(buttons, Button("⬅️", fmt.Sprintf("%s%d", prefix, currentPage-1)))
	}

	buttons = append(buttons, Label(fmt.Sprintf("📄 %d/%d", currentPage+1, totalPages)))

	if currentPage < totalPages-1 {
		buttons = append(buttons, Button("➡️", fmt.Sprintf("%s%d", prefix, currentPage+1)))
	}

	return buttons
}

// AddPagination добавляет пагинацию к builder
func (b *Builder) AddPagination(prefix string, currentPage, totalPages int) *Builder {
	return b.Row(PaginationButtons(prefix, currentPage, totalPages)...)
}
