package service

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/ds124wfegd/wallcraft/internal/database"
	"github.com/ds124wfegd/wallcraft/internal/entity"
	"github.com/ds124wfegd/wallcraft/internal/pkg/compositor"
	"github.com/ds124wfegd/wallcraft/internal/pkg/kafka"
	"github.com/gabriel-vasile/mimetype"
	"github.com/sirupsen/logrus"
)

// RenderPathPrefix is where committed outputs are served from.
const RenderPathPrefix = "/renders/"

// Download is a ready-to-stream wallpaper. Degraded downloads carry the
// unprocessed source bytes instead of a rendered JPEG.
type Download struct {
	Body        io.ReadCloser
	ContentType string
	FileName    string
	Degraded    bool
}

type renderService struct {
	gallery  database.GalleryRepository
	files    database.FileRepository
	renderer Renderer
	opener   compositor.SourceOpener
	producer kafka.Producer
	opts     RenderOptions
}

func NewRenderService(gallery database.GalleryRepository, files database.FileRepository, renderer Renderer,
	opener compositor.SourceOpener, producer kafka.Producer, opts RenderOptions) RenderService {
	if opts.DefaultResolution == "" {
		opts.DefaultResolution = compositor.DefaultResolutionName
	}
	if opts.RenderTimeout <= 0 {
		opts.RenderTimeout = time.Minute
	}
	return &renderService{
		gallery:  gallery,
		files:    files,
		renderer: renderer,
		opener:   opener,
		producer: producer,
		opts:     opts,
	}
}

// Render composes the current spec of image id and commits the result unless
// a newer render of the same image has already been committed.
func (s *renderService) Render(ctx context.Context, id, resolution string) (entity.RenderCompleted, error) {
	if resolution == "" {
		resolution = s.opts.DefaultResolution
	}

	seq, img, err := s.gallery.BeginRender(id)
	if err != nil {
		return entity.RenderCompleted{}, err
	}

	start := time.Now()
	rctx, cancel := context.WithTimeout(ctx, s.opts.RenderTimeout)
	out := s.renderer.Render(rctx, s.opener, img, resolution)
	cancel()

	result := entity.RenderResult{
		ImageID:     id,
		Seq:         seq,
		ContentType: out.ContentType,
		Width:       out.Width,
		Height:      out.Height,
		RenderedAt:  time.Now(),
	}

	var file string
	if out.Degraded() {
		result.Ref = img.Ref
		result.Degraded = true
		result.Reason = out.Err.Error()
	} else {
		file, err = s.files.SaveOutput(id, seq, out.Data)
		if err != nil {
			return entity.RenderCompleted{}, fmt.Errorf("failed to save output: %w", err)
		}
		result.Ref = RenderPathPrefix + id + "/" + file
	}

	committed, superseded, err := s.gallery.CompleteRender(id, result)
	if err != nil {
		// картинку удалили во время рендера
		s.release(id, file)
		return entity.RenderCompleted{}, err
	}
	if !committed {
		s.release(id, file)
	}
	if superseded != nil && !superseded.Degraded {
		s.release(id, database.OutputFileName(superseded.Seq))
	}

	event := entity.RenderCompleted{
		ImageID: id,
		Seq:     seq,
		Result:  result,
		Stale:   !committed,
	}

	fields := logrus.Fields{
		"image_id":   id,
		"seq":        seq,
		"resolution": resolution,
		"stale":      event.Stale,
		"duration":   time.Since(start),
	}
	if result.Degraded {
		fields["reason"] = result.Reason
		logrus.WithFields(fields).Warn("render degraded, falling back to source")
	} else {
		logrus.WithFields(fields).Info("render completed")
	}

	if s.producer != nil && s.opts.CompletedTopic != "" {
		if err := s.producer.SendMessage(s.opts.CompletedTopic, id, event); err != nil {
			logrus.WithFields(logrus.Fields{
				"image_id": id,
				"topic":    s.opts.CompletedTopic,
				"error":    err,
			}).Error("failed to publish render event")
		}
	}

	return event, nil
}

// Enqueue publishes a render request for image id. Without a requests topic
// the request is handled in-process in the background.
func (s *renderService) Enqueue(id, resolution string) error {
	if _, err := s.gallery.Get(id); err != nil {
		return err
	}

	req := entity.RenderRequested{
		ImageID:     id,
		Resolution:  resolution,
		RequestedAt: time.Now(),
	}

	if s.producer == nil || s.opts.RequestsTopic == "" {
		data, err := json.Marshal(req)
		if err != nil {
			return err
		}
		go func() {
			_ = s.HandleMessage(context.Background(), data)
		}()
		return nil
	}

	if err := s.producer.SendMessage(s.opts.RequestsTopic, id, req); err != nil {
		return fmt.Errorf("failed to enqueue render: %w", err)
	}
	return nil
}

// HandleMessage processes one RenderRequested message. Broken or obsolete
// messages are dropped. A done context is returned as is: the rabbitmq
// consumer requeues the message and the kafka consumer leaves its offset
// uncommitted.
func (s *renderService) HandleMessage(ctx context.Context, data []byte) error {
	var req entity.RenderRequested
	if err := json.Unmarshal(data, &req); err != nil || req.ImageID == "" {
		logrus.WithField("payload", string(data)).Warn("dropping malformed render request")
		return nil
	}

	if _, err := s.Render(ctx, req.ImageID, req.Resolution); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		logrus.WithFields(logrus.Fields{
			"image_id": req.ImageID,
			"error":    err,
		}).Warn("render request dropped")
	}
	return nil
}

// Download returns the wallpaper of image id at resolution, rendering it when
// no matching committed output exists.
func (s *renderService) Download(ctx context.Context, id, resolution string) (*Download, error) {
	if resolution == "" {
		resolution = s.opts.DefaultResolution
	}
	res := compositor.ResolveResolution(resolution)

	img, err := s.gallery.Get(id)
	if err != nil {
		return nil, err
	}

	result := img.Processed
	if !reusable(result, res) {
		event, err := s.Render(ctx, id, resolution)
		if err != nil {
			return nil, err
		}
		result = &event.Result
		if event.Stale {
			// newer output already committed
			if img, err = s.gallery.Get(id); err != nil {
				return nil, err
			}
			if img.Processed != nil {
				result = img.Processed
			}
		}
	}

	if result.Degraded {
		return s.downloadSource(ctx, img)
	}

	body, err := s.files.OpenOutput(id, database.OutputFileName(result.Seq))
	if err != nil {
		return nil, err
	}
	return &Download{
		Body:        body,
		ContentType: compositor.ContentTypeJPEG,
		FileName:    img.DownloadName(),
	}, nil
}

func (s *renderService) OpenOutput(id, file string) (io.ReadCloser, error) {
	if _, err := s.gallery.Get(id); err != nil {
		return nil, err
	}
	return s.files.OpenOutput(id, file)
}

// downloadSource streams the unprocessed source of img.
func (s *renderService) downloadSource(ctx context.Context, img entity.Image) (*Download, error) {
	rc, err := s.opener.Open(ctx, img.Ref)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", entity.ErrDecode, err)
	}

	br := bufio.NewReaderSize(rc, sniffLen)
	head, err := br.Peek(sniffLen)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, bufio.ErrBufferFull) {
		rc.Close()
		return nil, err
	}

	return &Download{
		Body:        readCloser{Reader: br, Closer: rc},
		ContentType: mimetype.Detect(head).String(),
		FileName:    img.DownloadName(),
		Degraded:    true,
	}, nil
}

func reusable(result *entity.RenderResult, res compositor.Resolution) bool {
	if result == nil {
		return false
	}
	if result.Degraded {
		return false
	}
	return result.Width == res.Width && result.Height == res.Height
}

func (s *renderService) release(id, file string) {
	if file == "" {
		return
	}
	if err := s.files.DeleteOutput(id, file); err != nil {
		logrus.WithFields(logrus.Fields{
			"image_id": id,
			"file":     file,
			"error":    err,
		}).Warn("failed to release render output")
	}
}

type readCloser struct {
	io.Reader
	io.Closer
}
