package entity

// UserState состояние пользователя в диалоге
type UserState string

const (
	StateMainMenu      UserState = "main_menu"      // В главном меню
	StateAwaitingMedia UserState = "awaiting_media" // Ожидание фото или видео дороги
	StateProcessing    UserState = "processing"     // Обработка загрузки
)

// User представляет пользователя бота
type User struct {
	ID     int64     // Telegram User ID
	ChatID int64     // Telegram Chat ID
	State  UserState // Текущее состояние пользователя

	// PendingLocation точка, приложенная к следующей загрузке.
	PendingLocation *Location
}

// NewUser создаёт нового пользователя с начальным состоянием
func NewUser(userID, chatID int64) *User {
	return &User{
		ID:     userID,
		ChatID: chatID,
		State:  StateMainMenu,
	}
}

// SetState обновляет состояние пользователя
func (u *User) SetState(state UserState) {
	u.State = state
}

// SetLocation запоминает координаты для следующего отчёта.
func (u *User) SetLocation(loc Location) {
	u.PendingLocation = &loc
}

// Clone копия пользователя, не разделяющая PendingLocation с оригиналом.
func (u *User) Clone() *User {
	c := *u
	if u.PendingLocation != nil {
		loc := *u.PendingLocation
		c.PendingLocation = &loc
	}
	return &c
}

// TakeLocation возвращает и сбрасывает сохранённые координаты.
func (u *User) TakeLocation() *Location {
	loc := u.PendingLocation
	u.PendingLocation = nil
	return loc
}
