package models

// TokenPair — пара bearer-токенов, выдаваемая сервером магазина
// при входе и при обмене refresh-токена.
//
// Описание:
//   - AccessToken — короткоживущий JWT, прикладывается к каждому
//     аутентифицированному запросу;
//   - RefreshToken — долгоживущий секрет, предъявляемый для выпуска
//     новой пары.
//
// Инвариант: пара хранится целиком — либо оба токена присутствуют,
// либо не присутствует ни один. Частично записанная пара не переживает
// успешный SetPair.
type TokenPair struct {
	// AccessToken — JWT для авторизации запросов.
	AccessToken string
	// RefreshToken — секрет для обновления пары.
	RefreshToken string
}

// Empty сообщает, что пара отсутствует.
func (p TokenPair) Empty() bool {
	return p.AccessToken == "" && p.RefreshToken == ""
}

// Complete сообщает, что присутствуют оба токена.
func (p TokenPair) Complete() bool {
	return p.AccessToken != "" && p.RefreshToken != ""
}
