// Copyright (c) 2025 Tulir Asokan
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package tgbridge

import (
	"context"
	"fmt"
	"image"
	"image/draw"
	"image/png"
	"io"
	"mime"
	"os"
	"os/exec"
	"path"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"go.mau.fi/util/exmime"
	"go.mau.fi/util/fallocate"
	"go.mau.fi/util/ffmpeg"
	_ "golang.org/x/image/webp"

	"go.mau.fi/tgbridge/types"
	"go.mau.fi/tgbridge/util/lottie"
	waLog "go.mau.fi/tgbridge/util/log"
)

// MediaResolver materializes message attachments: it downloads the
// payload behind a content handle and normalizes it into the small set
// of consumable formats.
type MediaResolver struct {
	// Client performs binary downloads for content handles.
	Client Downloader

	// ScaleWidthLimits maps a destination channel id to the maximum
	// animation width it accepts. Wider animations are downscaled during
	// GIF conversion; channels without an entry are never scaled.
	ScaleWidthLimits map[string]int

	// Conversion hooks, replaceable for tests and alternative toolchains.
	ConvertAnimation func(ctx context.Context, path string, outputArgs []string) (string, error)
	ConvertTGS       func(ctx context.Context, inputPath, outputPath string) error
	ProbeWidth       func(ctx context.Context, path string) (int, error)

	Log waLog.Logger
}

// NewMediaResolver creates a resolver with the default ffmpeg/Lottie
// conversion toolchain.
func NewMediaResolver(client Downloader, log waLog.Logger) *MediaResolver {
	if log == nil {
		log = waLog.Noop
	}
	return &MediaResolver{
		Client:           client,
		ScaleWidthLimits: make(map[string]int),
		ConvertAnimation: convertAnimation,
		ConvertTGS:       lottie.ConvertTGS,
		ProbeWidth:       probeWidth,
		Log:              log,
	}
}

func convertAnimation(ctx context.Context, path string, outputArgs []string) (string, error) {
	return ffmpeg.ConvertPath(ctx, path, ".gif", nil, outputArgs, false)
}

func probeWidth(ctx context.Context, path string) (int, error) {
	cmd := exec.CommandContext(ctx, "ffprobe", "-v", "error", "-select_streams", "v:0", "-show_entries", "stream=width", "-of", "csv=p=0", path)
	out, err := cmd.Output()
	if err != nil {
		return 0, err
	}
	width, err := strconv.Atoi(strings.TrimSpace(string(out)))
	if err != nil {
		return 0, fmt.Errorf("unexpected ffprobe output %q: %w", out, err)
	}
	return width, nil
}

func (res *MediaResolver) log() waLog.Logger {
	if res.Log == nil {
		return waLog.Noop
	}
	return res.Log
}

// resolve runs the download-and-normalize pipeline once. The resolved
// guard is only set on success, so a failed call surfaces the error and
// leaves the message retryable without partial temp files attached.
func (msg *Message) resolve(ctx context.Context) error {
	if len(msg.FileID) == 0 {
		msg.resolved = true
		return nil
	}
	res := msg.resolver
	if res == nil {
		return ErrNoResolver
	}

	reportedPath, size, stream, err := res.Client.Download(ctx, msg.FileID)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDownloadFailed, err)
	}
	defer stream.Close()

	var ext, mimeType string
	if len(msg.MIME) == 0 {
		ext = path.Ext(reportedPath)
		mimeType, _, _ = strings.Cut(mime.TypeByExtension(ext), ";")
		mimeType = strings.TrimSpace(mimeType)
	} else {
		ext = exmime.ExtensionFromMimetype(msg.MIME)
		mimeType = msg.MIME
	}

	file, err := os.CreateTemp("", "tgbridge-*"+ext)
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	success := false
	defer func() {
		if !success {
			discardFile(file)
			msg.media = resolvedMedia{}
			msg.ownsMedia = false
		}
	}()
	if size > 0 {
		if err = fallocate.Fallocate(file, int(size)); err != nil {
			return fmt.Errorf("failed to preallocate file: %w", err)
		}
	}
	if _, err = io.Copy(file, stream); err != nil {
		return fmt.Errorf("%w: %v", ErrDownloadFailed, err)
	}
	if _, err = file.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("failed to seek to start of downloaded file: %w", err)
	}
	if len(mimeType) == 0 {
		sniffed, sniffErr := mimetype.DetectFile(file.Name())
		if sniffErr != nil {
			return fmt.Errorf("failed to sniff media type: %w", sniffErr)
		}
		mimeType = sniffed.String()
	}
	msg.MIME = mimeType
	if len(msg.Filename) == 0 {
		msg.Filename = filepath.Base(file.Name())
	}
	msg.media = resolvedMedia{file: file, path: file.Name()}
	msg.ownsMedia = true

	switch msg.TelegramType {
	case types.TelegramAnimation:
		err = msg.normalizeAnimation(ctx, res)
	case types.TelegramSticker:
		err = msg.normalizeSticker()
	case types.TelegramAnimatedSticker:
		err = msg.normalizeAnimatedSticker(ctx, res)
	}
	if err != nil {
		return err
	}

	success = true
	msg.resolved = true
	res.log().Debugf("Resolved %s media of message %s as %s (%s)", msg.TelegramType, msg.ID, msg.MIME, msg.media.path)
	return nil
}

// normalizeAnimation re-encodes a video-container animation into an
// animated GIF, downscaling it first when the destination channel has a
// width limit the source exceeds.
func (msg *Message) normalizeAnimation(ctx context.Context, res *MediaResolver) error {
	var outputArgs []string
	if limit, ok := res.ScaleWidthLimits[msg.TargetChannel]; ok {
		width, err := res.ProbeWidth(ctx, msg.media.path)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrWidthProbeFailed, err)
		}
		if width > limit {
			// Height -2 keeps the aspect ratio with an even pixel count.
			outputArgs = []string{"-vf", fmt.Sprintf("scale=%d:-2", limit)}
		}
	}
	gifPath, err := res.ConvertAnimation(ctx, msg.media.path, outputArgs)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTranscodeFailed, err)
	}
	gifFile, err := os.OpenFile(gifPath, os.O_RDWR, 0o600)
	if err != nil {
		_ = os.Remove(gifPath)
		return fmt.Errorf("failed to open converted animation: %w", err)
	}
	msg.replaceMedia(gifFile)
	msg.MIME = MIMEAnimatedImage
	return nil
}

// normalizeSticker re-encodes a static sticker as a PNG with an alpha
// channel.
func (msg *Message) normalizeSticker() error {
	src, _, err := image.Decode(msg.media.file)
	if err != nil {
		return fmt.Errorf("failed to decode sticker image: %w", err)
	}
	bounds := src.Bounds()
	rgba := image.NewRGBA(bounds)
	draw.Draw(rgba, bounds, src, bounds.Min, draw.Src)
	out, err := os.CreateTemp("", "tgbridge-*.png")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	if err = png.Encode(out, rgba); err != nil {
		discardFile(out)
		return fmt.Errorf("failed to encode sticker: %w", err)
	}
	if _, err = out.Seek(0, io.SeekStart); err != nil {
		discardFile(out)
		return fmt.Errorf("failed to seek to start of converted sticker: %w", err)
	}
	msg.replaceMedia(out)
	msg.MIME = MIMEStickerImage
	msg.Filename += ".png"
	return nil
}

// normalizeAnimatedSticker converts the gzipped Lottie payload to a GIF.
// A failed conversion is the one recoverable failure of the pipeline:
// the original payload is delivered as-is with the raw MIME type.
func (msg *Message) normalizeAnimatedSticker(ctx context.Context, res *MediaResolver) error {
	out, err := os.CreateTemp("", "tgbridge-*.gif")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	// The renderer writes by path, the handle only reserves the name.
	_ = out.Close()
	if convErr := res.ConvertTGS(ctx, msg.media.path, out.Name()); convErr != nil {
		_ = os.Remove(out.Name())
		if _, err = msg.media.file.Seek(0, io.SeekStart); err != nil {
			return fmt.Errorf("failed to rewind sticker payload: %w", err)
		}
		res.log().Warnf("Failed to convert animated sticker of message %s, sending raw payload: %v", msg.ID, convErr)
		msg.MIME = MIMERawSticker
		msg.Filename += ".json"
		return nil
	}
	gifFile, err := os.OpenFile(out.Name(), os.O_RDWR, 0o600)
	if err != nil {
		_ = os.Remove(out.Name())
		return fmt.Errorf("failed to open converted sticker: %w", err)
	}
	msg.replaceMedia(gifFile)
	msg.MIME = MIMEAnimatedImage
	msg.Filename += ".gif"
	return nil
}

// replaceMedia swaps the materialized file for a converted one,
// releasing the previous temp file.
func (msg *Message) replaceMedia(file File) {
	if msg.media.file != nil {
		_ = msg.media.file.Close()
	}
	if len(msg.media.path) > 0 && msg.media.path != file.Name() {
		_ = os.Remove(msg.media.path)
	}
	msg.media = resolvedMedia{file: file, path: file.Name()}
}

func discardFile(file File) {
	if file == nil {
		return
	}
	name := file.Name()
	_ = file.Close()
	_ = os.Remove(name)
}
