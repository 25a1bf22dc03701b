package entity

import (
	"image"
	"path/filepath"
	"strings"
)

// ArtifactKind тип загруженного файла.
type ArtifactKind string

const (
	KindImage ArtifactKind = "image"
	KindVideo ArtifactKind = "video"
)

var videoExtensions = map[string]struct{}{
	".mp4": {}, ".avi": {}, ".mov": {}, ".mkv": {}, ".flv": {}, ".wmv": {},
}

// KindFromFilename определяет тип артефакта по расширению файла.
func KindFromFilename(name string) ArtifactKind {
	if _, ok := videoExtensions[strings.ToLower(filepath.Ext(name))]; ok {
		return KindVideo
	}
	return KindImage
}

// Artifact изображение или видео на вход конвейера.
// Для видео достаточно Path; если задан только Data, конвейер сам сохранит временный файл.
type Artifact struct {
	Kind ArtifactKind
	Name string
	Data []byte
	Path string
}

// PipelineResult итог одного прогона конвейера.
type PipelineResult struct {
	Kind            ArtifactKind
	Detections      []UniqueDetection
	Breakdown       SeverityBreakdown
	TotalDetections int
	FramesRead      int
	FramesProcessed int

	// RepresentativeFrame последний обработанный кадр, на нём рисуется подсветка.
	RepresentativeFrame image.Image
}

// HasDetections флаг наличия дефектов
func (r *PipelineResult) HasDetections() bool {
	return r != nil && r.TotalDetections > 0
}
