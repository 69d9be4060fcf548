package models

const (
	// DateLayout формат дат бронирования на входе и в БД
	DateLayout = "2006-01-02"

	// DefaultSessionTTL время жизни сессии в секундах
	DefaultSessionTTL = 24 * 60 * 60 // 24 часа

	// DefaultBcryptCost стоимость bcrypt по умолчанию
	DefaultBcryptCost = 12

	// WorkerQueueSize размер очереди воркера
	WorkerQueueSize = 1000

	// LoginRateLimitRPS лимит попыток входа в секунду на клиента
	LoginRateLimitRPS = 1

	// LoginRateLimitBurst всплеск попыток входа
	LoginRateLimitBurst = 5

	// LoginAttemptLimit попыток входа на клиента за окно
	LoginAttemptLimit = 20

	// LoginAttemptWindow окно подсчёта попыток входа в секундах
	LoginAttemptWindow = 5 * 60

	// SheetsCacheTTL время жизни кэша строк Google Sheets
	SheetsCacheTTL = 60 * 60 // 1 час в секундах
)
