// verify — процесс подтверждения кодом с обратным отсчётом.
//
// Один параметризуемый Session обслуживает все четыре потока подтверждения
// (e-mail, телефон, восстановление логина, восстановление пароля): поток
// задаётся конфигурацией Flow — парой эндпоинтов send/confirm, валидатором
// формата цели и окном действия кода.
package verify

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/akimovaa/go-storefront-auth/internal/config"
)

// Kind — идентификатор потока подтверждения.
type Kind string

const (
	KindEmail    Kind = "email"
	KindPhone    Kind = "phone"
	KindLoginID  Kind = "login-id"
	KindPassword Kind = "password"
)

// Flow — конфигурация одного потока подтверждения.
type Flow struct {
	Kind Kind
	// SendPath — эндпоинт отправки кода на цель.
	SendPath string
	// ConfirmPath — эндпоинт проверки введённого кода.
	ConfirmPath string
	// Window — окно действия кода; по истечении сессия принудительно
	// переходит в expired независимо от запросов в полёте.
	Window time.Duration
	// Validate нормализует цель и проверяет формат до любого сетевого
	// вызова. Невалидный формат не порождает запрос.
	Validate func(target string) (string, error)
	// Authenticated — поток живёт на аутентифицированном маршруте
	// (например, смена e-mail в личном кабинете). Публичные потоки
	// (регистрация, восстановление) ходят анонимно.
	Authenticated bool
}

var validate = validator.New()

// phonePattern — нормализованный мобильный номер: 01 + 8–9 цифр.
var phonePattern = regexp.MustCompile(`^01[0-9]{8,9}$`)

// phoneSeparators — символы-разделители, отбрасываемые перед проверкой.
const phoneSeparators = "-. ()"

// ValidateEmail нормализует и проверяет адрес e-mail.
func ValidateEmail(target string) (string, error) {
	norm := strings.ToLower(strings.TrimSpace(target))

	if err := validate.Var(norm, "required,email"); err != nil {
		return "", fmt.Errorf("invalid email %q", target)
	}

	return norm, nil
}

// ValidatePhone отбрасывает разделители и проверяет номер по шаблону
// 01[0-9]{8,9}.
func ValidatePhone(target string) (string, error) {
	norm := strings.Map(func(r rune) rune {
		if strings.ContainsRune(phoneSeparators, r) {
			return -1
		}
		return r
	}, strings.TrimSpace(target))

	if !phonePattern.MatchString(norm) {
		return "", fmt.Errorf("invalid phone %q", target)
	}

	return norm, nil
}

// EmailFlow — подтверждение e-mail при регистрации.
func EmailFlow(cfg config.VerificationConfig) Flow {
	return Flow{
		Kind:        KindEmail,
		SendPath:    "/api/auth/email/send",
		ConfirmPath: "/api/auth/email/confirm",
		Window:      cfg.EmailWindow,
		Validate:    ValidateEmail,
	}
}

// PhoneFlow — подтверждение номера телефона при регистрации.
func PhoneFlow(cfg config.VerificationConfig) Flow {
	return Flow{
		Kind:        KindPhone,
		SendPath:    "/api/auth/phone/send",
		ConfirmPath: "/api/auth/phone/confirm",
		Window:      cfg.PhoneWindow,
		Validate:    ValidatePhone,
	}
}

// LoginIDFlow — восстановление логина по e-mail.
func LoginIDFlow(cfg config.VerificationConfig) Flow {
	return Flow{
		Kind:        KindLoginID,
		SendPath:    "/api/find/login-id/send",
		ConfirmPath: "/api/find/login-id/confirm",
		Window:      cfg.LoginIDWindow,
		Validate:    ValidateEmail,
	}
}

// PasswordFlow — восстановление пароля по e-mail.
func PasswordFlow(cfg config.VerificationConfig) Flow {
	return Flow{
		Kind:        KindPassword,
		SendPath:    "/api/find/password/send",
		ConfirmPath: "/api/find/password/confirm",
		Window:      cfg.PasswordWindow,
		Validate:    ValidateEmail,
	}
}
