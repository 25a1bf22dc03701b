package telegram

import (
	"fmt"
	"mime"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	app "roadwatch/internal/application"
	"roadwatch/internal/domain/entity"
)

// incomingMedia файл из сообщения, который можно отдать конвейеру.
type incomingMedia struct {
	fileID string
	name   string
	kind   entity.ArtifactKind
}

// mediaFromMessage достаёт фото, видео или документ из сообщения.
func mediaFromMessage(msg *tgbotapi.Message) (incomingMedia, bool) {
	switch {
	case len(msg.Photo) > 0:
		// Берём файл с максимальным разрешением
		photo := msg.Photo[len(msg.Photo)-1]
		return incomingMedia{fileID: photo.FileID, name: "photo.jpg", kind: entity.KindImage}, true

	case msg.Video != nil:
		return incomingMedia{
			fileID: msg.Video.FileID,
			name:   "video" + videoExtension(msg.Video.MimeType),
			kind:   entity.KindVideo,
		}, true

	case msg.Document != nil:
		name := msg.Document.FileName
		if name == "" {
			return incomingMedia{}, false
		}
		kind := entity.KindFromFilename(name)
		if kind == entity.KindImage && !strings.HasPrefix(msg.Document.MimeType, "image/") {
			return incomingMedia{}, false
		}
		return incomingMedia{fileID: msg.Document.FileID, name: name, kind: kind}, true
	}
	return incomingMedia{}, false
}

func videoExtension(mimeType string) string {
	switch mimeType {
	case "video/quicktime":
		return ".mov"
	case "video/x-matroska":
		return ".mkv"
	case "video/x-msvideo":
		return ".avi"
	}
	if exts, _ := mime.ExtensionsByType(mimeType); len(exts) > 0 && entity.KindFromFilename("x"+exts[0]) == entity.KindVideo {
		return exts[0]
	}
	return ".mp4"
}

func formatResult(out *app.SubmitResult) string {
	res := out.Pipeline
	if !res.HasDetections() {
		if res.Kind == entity.KindVideo {
			return fmt.Sprintf("%s\nПроверено кадров: %d из %d.", msgNoDefects, res.FramesProcessed, res.FramesRead)
		}
		return msgNoDefects
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "🕳 Найдено дефектов: %d\n", res.TotalDetections)
	for _, sev := range entity.Severities {
		fmt.Fprintf(&sb, "• %s: %d\n", severityLabel(sev), res.Breakdown.Count(sev))
	}
	if res.Kind == entity.KindVideo {
		fmt.Fprintf(&sb, "🎞 Проверено кадров: %d из %d\n", res.FramesProcessed, res.FramesRead)
	}

	if !out.Persisted {
		sb.WriteString("\n⚠️ Отчёт сохранить не удалось, вознаграждение не начислено.")
		return sb.String()
	}

	fmt.Fprintf(&sb, "\n📄 Отчёт: %s\n", out.Report.ID)
	fmt.Fprintf(&sb, "💰 Кошелёк: %d", out.Wallet)
	return sb.String()
}

func formatWallet(balance int) string {
	return fmt.Sprintf("💰 Баланс вознаграждений: %d", balance)
}

func severityLabel(s entity.Severity) string {
	switch s {
	case entity.SeverityMinor:
		return "незначительные"
	case entity.SeverityModerate:
		return "средние"
	case entity.SeverityMajor:
		return "серьёзные"
	}
	return string(s)
}
