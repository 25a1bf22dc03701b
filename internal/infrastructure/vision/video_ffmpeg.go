//go:build !gocv
// +build !gocv

package vision

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"io"
	"os/exec"
	"strconv"
	"strings"

	"roadwatch/internal/domain/entity"
	"roadwatch/internal/domain/port"
)

const bytesPerPixel = 4

// OpenVideo запускает ffmpeg и читает из него сырые RGBA-кадры.
func (d *Decoder) OpenVideo(ctx context.Context, path string) (port.FrameStream, error) {
	width, height, err := d.probeVideoDimensions(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("%w: probe video: %v", entity.ErrArtifactDecode, err)
	}

	// ffprobe отдаёт размер до поворота. Либо масштабируем до известного размера
	// после автоповорота, либо отключаем поворот, чтобы размер совпал с ffprobe.
	scale := d.FrameWidth > 0 && d.FrameHeight > 0
	if scale {
		width, height = d.FrameWidth, d.FrameHeight
	}

	s := &ffmpegStream{}
	s.cmd = exec.CommandContext(ctx, d.FFmpegPath, ffmpegArgs(path, width, height, scale)...)
	s.cmd.Stderr = &s.stderr

	stdout, err := s.cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	if err := s.cmd.Start(); err != nil {
		return nil, fmt.Errorf("%w: start ffmpeg: %v", entity.ErrArtifactDecode, err)
	}
	s.stdout = stdout
	s.rawFrameReader = newRawFrameReader(stdout, width, height)
	return s, nil
}

func ffmpegArgs(path string, width, height int, scale bool) []string {
	args := []string{"-v", "error"}
	if !scale {
		args = append(args, "-noautorotate")
	}
	args = append(args, "-i", path)
	if scale {
		args = append(args, "-vf", "scale="+strconv.Itoa(width)+":"+strconv.Itoa(height))
	}
	return append(args,
		"-f", "image2pipe",
		"-pix_fmt", "rgba",
		"-vcodec", "rawvideo",
		"-",
	)
}

// ffmpegStream читает кадры из stdout ffmpeg. Конец потока считается нормальным,
// только если ffmpeg завершился с нулевым кодом.
type ffmpegStream struct {
	*rawFrameReader
	cmd    *exec.Cmd
	stdout io.ReadCloser
	stderr bytes.Buffer

	waited  bool
	waitErr error
}

func (s *ffmpegStream) Next() (image.Image, bool, error) {
	frame, ok, err := s.rawFrameReader.Next()
	if ok {
		return frame, true, nil
	}
	if werr := s.wait(); werr != nil {
		return nil, false, werr
	}
	return nil, false, err
}

func (s *ffmpegStream) Skip() (bool, error) {
	ok, err := s.rawFrameReader.Skip()
	if ok {
		return true, nil
	}
	if werr := s.wait(); werr != nil {
		return false, werr
	}
	return false, err
}

// wait дожидается ffmpeg после того, как stdout прочитан до конца.
func (s *ffmpegStream) wait() error {
	if !s.waited {
		s.waited = true
		if err := s.cmd.Wait(); err != nil {
			s.waitErr = fmt.Errorf("%w: ffmpeg: %v: %s",
				entity.ErrArtifactDecode, err, strings.TrimSpace(s.stderr.String()))
		}
	}
	return s.waitErr
}

// Close останавливает ffmpeg, если поток не дочитан. Ошибку уже завершившегося
// ffmpeg возвращает.
func (s *ffmpegStream) Close() error {
	if s.waited {
		return s.waitErr
	}
	s.waited = true
	s.stdout.Close()
	if s.cmd.Process != nil {
		s.cmd.Process.Kill()
	}
	s.cmd.Wait()
	return nil
}

// rawFrameReader режет поток rawvideo rgba на кадры фиксированного размера.
type rawFrameReader struct {
	r         io.Reader
	width     int
	height    int
	frameSize int
}

func newRawFrameReader(r io.Reader, width, height int) *rawFrameReader {
	return &rawFrameReader{
		r:         r,
		width:     width,
		height:    height,
		frameSize: width * height * bytesPerPixel,
	}
}

func (f *rawFrameReader) Next() (image.Image, bool, error) {
	pix := make([]byte, f.frameSize)
	if _, err := io.ReadFull(f.r, pix); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("read frame: %w", err)
	}
	return &image.RGBA{
		Pix:    pix,
		Stride: f.width * bytesPerPixel,
		Rect:   image.Rect(0, 0, f.width, f.height),
	}, true, nil
}

func (f *rawFrameReader) Skip() (bool, error) {
	n, err := io.CopyN(io.Discard, f.r, int64(f.frameSize))
	if n == 0 && errors.Is(err, io.EOF) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("skip frame: %w", err)
	}
	return true, nil
}

type probeData struct {
	Streams []struct {
		Width  int `json:"width"`
		Height int `json:"height"`
	} `json:"streams"`
}

func (d *Decoder) probeVideoDimensions(ctx context.Context, path string) (int, int, error) {
	cmd := exec.CommandContext(ctx, d.FFprobePath,
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "stream=width,height",
		"-of", "json",
		path,
	)

	output, err := cmd.Output()
	if err != nil {
		return 0, 0, err
	}
	return parseProbeOutput(output)
}

func parseProbeOutput(output []byte) (int, int, error) {
	var data probeData
	if err := json.Unmarshal(output, &data); err != nil {
		return 0, 0, err
	}
	if len(data.Streams) == 0 {
		return 0, 0, fmt.Errorf("no video streams found")
	}
	w, h := data.Streams[0].Width, data.Streams[0].Height
	if w <= 0 || h <= 0 {
		return 0, 0, fmt.Errorf("invalid video dimensions %dx%d", w, h)
	}
	return w, h, nil
}
