package documents

import (
	"fmt"
	"net/url"
)

// Locator превращает подписанную ссылку в адрес документа во внешнем хранилище
type Locator struct {
	linker    *Linker
	storeURL  string
	publicURL string
}

func NewLocator(linker *Linker, storeURL, publicURL string) *Locator {
	return &Locator{linker: linker, storeURL: storeURL, publicURL: publicURL}
}

// ViewURL публичный адрес, по которому откроется документ
func (l *Locator) ViewURL(token string) string {
	return l.publicURL + "/documents/view?token=" + url.QueryEscape(token)
}

// Locate проверяет токен и возвращает адрес в хранилище
func (l *Locator) Locate(token string) (string, *ViewClaims, error) {
	claims, err := l.linker.Verify(token)
	if err != nil {
		return "", nil, err
	}
	location, err := url.JoinPath(l.storeURL, "documents", claims.DocumentID.String())
	if err != nil {
		return "", nil, fmt.Errorf("build store url: %w", err)
	}
	return location, claims, nil
}
