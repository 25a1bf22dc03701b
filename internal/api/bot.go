package telegram

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/sync/errgroup"

	"roadwatch/config"
	app "roadwatch/internal/application"
	"roadwatch/internal/container"
	"roadwatch/internal/domain/entity"
)

const (
	msgStart = `👋 Привет! Я бот для поиска выбоин на дорогах.

📸 Отправьте фото или видео дороги, и я найду дефекты покрытия, оценю их серьёзность и сохраню отчёт.

📋 Команды:
/report — начать новый отчёт
/wallet — баланс вознаграждений
/help — справка
/cancel — отменить текущую операцию`

	msgHelp = `ℹ️ Как пользоваться ботом:

1️⃣ Отправьте геопозицию места (необязательно)
2️⃣ Отправьте фото или видео дороги, подпись станет описанием отчёта
3️⃣ Вы получите результат: число дефектов по серьёзности + кадр с подсветкой

💡 Рекомендации:
• Снимайте при дневном свете
• Держите камеру ровно, видео до 20 МБ

📋 Команды:
/report — начать новый отчёт
/wallet — баланс вознаграждений
/cancel — отменить операцию`

	msgAwaitingMedia   = "📸 Отправьте фото или видео дороги. Можно сначала прислать геопозицию."
	msgCancelled       = "❌ Операция отменена. Отправьте /report для нового отчёта."
	msgSendMedia       = "📸 Пожалуйста, отправьте фото или видео дороги."
	msgUnknownCommand  = "❓ Неизвестная команда. Используйте /help для справки."
	msgLocationSaved   = "📍 Геопозиция сохранена и будет приложена к следующему отчёту."
	msgBusy            = "⏳ Предыдущая загрузка ещё обрабатывается, подождите."
	msgProcessing      = "⏳ Обрабатываю загрузку..."
	msgNoDefects       = "✅ Выбоины не обнаружены."
	msgProcessingError = "⚠️ Не удалось прочитать файл. Попробуйте другое фото или видео."
	msgDetectorError   = "⚠️ Сервис распознавания недоступен, попробуйте позже."
	msgWalletError     = "⚠️ Не удалось получить баланс."
)

// Bot представляет Telegram-бота
type Bot struct {
	api       *tgbotapi.BotAPI
	users     *app.UserService
	reports   *app.ReportService
	mediaRoot string
	workers   int
	client    *http.Client
	log       *slog.Logger
}

// NewBot создаёт нового бота
func NewBot(token string, c *container.Container, cfg *config.Config, log *slog.Logger) (*Bot, error) {
	if log == nil {
		log = slog.Default()
	}
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}

	log.Info("authorized on account", slog.String("username", api.Self.UserName))

	return &Bot{
		api:       api,
		users:     c.UserService,
		reports:   c.ReportService,
		mediaRoot: cfg.DataDir,
		workers:   cfg.BotWorkers,
		client:    &http.Client{Timeout: 2 * time.Minute},
		log:       log,
	}, nil
}

// Run запускает основной цикл обработки сообщений до отмены ctx.
// Одновременно работают не больше workers пользователей, сообщения одного
// пользователя обрабатываются по очереди.
func (b *Bot) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.workers)
	queue := newUserQueue[*tgbotapi.Message]()

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return g.Wait()
		case update, ok := <-updates:
			if !ok {
				return g.Wait()
			}
			if update.Message == nil || update.Message.From == nil {
				continue
			}
			userID := update.Message.From.ID
			if !queue.push(userID, update.Message) {
				continue
			}
			g.Go(func() error {
				for {
					msg, ok := queue.pop(userID)
					if !ok {
						return nil
					}
					b.handleMessage(gctx, msg)
				}
			})
		}
	}
}

// handleMessage обрабатывает входящее сообщение
func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	// Обработка команд
	if msg.IsCommand() {
		b.handleCommand(ctx, msg)
		return
	}

	if msg.Location != nil {
		b.handleLocation(ctx, msg)
		return
	}

	if media, ok := mediaFromMessage(msg); ok {
		b.handleMedia(ctx, msg, media)
		return
	}

	// Текстовое сообщение (не команда)
	b.sendMessage(msg.Chat.ID, msgSendMedia)
}

// handleCommand обрабатывает команды бота
func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	userID, chatID := msg.From.ID, msg.Chat.ID

	switch msg.Command() {
	case "start":
		b.setState(ctx, userID, chatID, entity.StateMainMenu)
		b.sendMessage(chatID, msgStart)

	case "help":
		b.sendMessage(chatID, msgHelp)

	case "report":
		if _, err := b.users.BeginReport(ctx, userID, chatID); err != nil {
			b.log.Error("begin report", slog.Int64("user_id", userID), slog.Any("error", err))
		}
		b.sendMessage(chatID, msgAwaitingMedia)

	case "cancel":
		if _, err := b.users.Cancel(ctx, userID, chatID); err != nil {
			b.log.Error("cancel", slog.Int64("user_id", userID), slog.Any("error", err))
		}
		b.sendMessage(chatID, msgCancelled)

	case "wallet":
		balance, err := b.reports.Wallet(ctx)
		if err != nil {
			b.log.Error("read wallet", slog.Any("error", err))
			b.sendMessage(chatID, msgWalletError)
			return
		}
		b.sendMessage(chatID, formatWallet(balance))

	default:
		b.sendMessage(chatID, msgUnknownCommand)
	}
}

func (b *Bot) handleLocation(ctx context.Context, msg *tgbotapi.Message) {
	loc := entity.Location{Lat: msg.Location.Latitude, Lon: msg.Location.Longitude}
	if _, err := b.users.AttachLocation(ctx, msg.From.ID, msg.Chat.ID, loc); err != nil {
		b.log.Error("attach location", slog.Int64("user_id", msg.From.ID), slog.Any("error", err))
		return
	}
	b.sendMessage(msg.Chat.ID, msgLocationSaved)
}

// handleMedia скачивает фото или видео и прогоняет его через конвейер.
func (b *Bot) handleMedia(ctx context.Context, msg *tgbotapi.Message, media incomingMedia) {
	userID, chatID := msg.From.ID, msg.Chat.ID
	log := b.log.With(slog.Int64("user_id", userID), slog.String("file", media.name))

	// Устанавливаем состояние "обработка"
	loc, err := b.users.StartProcessing(ctx, userID, chatID)
	if errors.Is(err, app.ErrUserBusy) {
		b.sendMessage(chatID, msgBusy)
		return
	}
	if err != nil {
		log.Error("start processing", slog.Any("error", err))
		return
	}
	defer func() {
		if err := b.users.FinishProcessing(context.WithoutCancel(ctx), userID, chatID); err != nil {
			log.Error("finish processing", slog.Any("error", err))
		}
	}()

	b.sendMessage(chatID, msgProcessing)

	data, err := b.downloadFile(ctx, media.fileID)
	if err != nil {
		log.Error("download media", slog.Any("error", err))
		b.sendMessage(chatID, msgProcessingError)
		return
	}

	out, err := b.reports.Submit(ctx, app.Submission{
		Artifact:    entity.Artifact{Kind: media.kind, Name: media.name, Data: data},
		Location:    loc,
		Description: msg.Caption,
	})
	if out == nil {
		log.Error("pipeline failed", slog.Any("error", err))
		b.sendMessage(chatID, failureMessage(err))
		return
	}
	if err != nil {
		log.Error("report not persisted", slog.Any("error", err))
	}

	b.sendMessage(chatID, formatResult(out))

	if out.Report != nil && out.Report.AnnotatedFile != nil {
		b.sendPhoto(chatID, filepath.Join(b.mediaRoot, filepath.FromSlash(*out.Report.AnnotatedFile)))
	}
}

func (b *Bot) setState(ctx context.Context, userID, chatID int64, state entity.UserState) {
	if _, err := b.users.SetState(ctx, userID, chatID, state); err != nil {
		b.log.Error("set user state", slog.Int64("user_id", userID), slog.Any("error", err))
	}
}

// downloadFile скачивает файл из Telegram
func (b *Bot) downloadFile(ctx context.Context, fileID string) ([]byte, error) {
	file, err := b.api.GetFile(tgbotapi.FileConfig{FileID: fileID})
	if err != nil {
		return nil, fmt.Errorf("get file: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, file.Link(b.api.Token), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download file: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download file: status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	return data, nil
}

// sendMessage отправляет текстовое сообщение
func (b *Bot) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := b.api.Send(msg); err != nil {
		b.log.Error("send message", slog.Int64("chat_id", chatID), slog.Any("error", err))
	}
}

func (b *Bot) sendPhoto(chatID int64, path string) {
	photo := tgbotapi.NewPhoto(chatID, tgbotapi.FilePath(path))
	if _, err := b.api.Send(photo); err != nil {
		b.log.Error("send photo", slog.Int64("chat_id", chatID), slog.Any("error", err))
	}
}

func failureMessage(err error) string {
	var detErr *entity.DetectorError
	if errors.As(err, &detErr) {
		return msgDetectorError
	}
	return msgProcessingError
}
