// Copyright (c) 2025 Tulir Asokan
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package telegram implements the tgbridge media downloader on top of
// the Telegram Bot API.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/mymmrac/telego"
	"go.mau.fi/util/retryafter"

	"go.mau.fi/tgbridge"
	waLog "go.mau.fi/tgbridge/util/log"
)

// Errors the download client can return
var (
	ErrFileNotFound   = errors.New("download failed with status code 404")
	ErrTooManyRetries = errors.New("gave up downloading media after repeated failures")
)

// DownloadHTTPError wraps a non-OK response to a media download request.
type DownloadHTTPError struct {
	Response *http.Response
}

func (dhe DownloadHTTPError) Error() string {
	return fmt.Sprintf("download failed with status code %d", dhe.Response.StatusCode)
}

func (dhe DownloadHTTPError) Is(other error) bool {
	return other == ErrFileNotFound && dhe.Response.StatusCode == http.StatusNotFound
}

const maxDownloadRetries = 5

// Client downloads message attachments through the Bot API file
// endpoint. It implements tgbridge.Downloader.
type Client struct {
	Bot  *telego.Bot
	HTTP *http.Client
	Log  waLog.Logger
}

var _ tgbridge.Downloader = (*Client)(nil)

func NewClient(bot *telego.Bot, log waLog.Logger) *Client {
	if log == nil {
		log = waLog.Noop
	}
	return &Client{
		Bot: bot,
		Log: log,
	}
}

func (cli *Client) http() *http.Client {
	if cli.HTTP != nil {
		return cli.HTTP
	}
	return http.DefaultClient
}

// Download resolves the content handle into a file path on Telegram's
// servers and streams its content. The returned size is the reported
// content length, or -1 if the server didn't send one.
func (cli *Client) Download(ctx context.Context, fileID string) (string, int64, io.ReadCloser, error) {
	meta, err := cli.Bot.GetFile(ctx, &telego.GetFileParams{FileID: fileID})
	if err != nil {
		return "", -1, nil, fmt.Errorf("failed to get file info: %w", err)
	}
	resp, err := cli.downloadWithRetries(ctx, cli.Bot.FileDownloadURL(meta.FilePath))
	if err != nil {
		return "", -1, nil, err
	}
	return meta.FilePath, resp.ContentLength, resp.Body, nil
}

func (cli *Client) downloadWithRetries(ctx context.Context, url string) (resp *http.Response, err error) {
	for retryNum := 0; retryNum < maxDownloadRetries; retryNum++ {
		resp, err = cli.doDownloadRequest(ctx, url)
		if err == nil || !shouldRetryDownload(err) {
			return
		}
		retryDuration := time.Duration(retryNum+1) * time.Second
		var httpErr DownloadHTTPError
		if errors.As(err, &httpErr) {
			retryDuration = retryafter.Parse(httpErr.Response.Header.Get("Retry-After"), retryDuration)
		}
		cli.Log.Warnf("Failed to download media: %v, retrying in %s...", err, retryDuration)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(retryDuration):
		}
	}
	return nil, fmt.Errorf("%w: %v", ErrTooManyRetries, err)
}

func (cli *Client) doDownloadRequest(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare download request: %w", err)
	}
	resp, err := cli.http().Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute download request: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		_ = resp.Body.Close()
		return nil, DownloadHTTPError{Response: resp}
	}
	return resp, nil
}

func shouldRetryDownload(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var httpErr DownloadHTTPError
	return errors.As(err, &httpErr) &&
		(httpErr.Response.StatusCode == http.StatusRequestTimeout ||
			httpErr.Response.StatusCode == http.StatusTooManyRequests ||
			httpErr.Response.StatusCode >= 500)
}
