// Copyright (c) 2025 Tulir Asokan
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package lottie converts Telegram animated stickers (gzipped Lottie
// JSON, ".tgs") into animated GIFs using an external renderer command.
package lottie

import (
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
)

var converterPath = "lottie_convert.py"

// SetConverterPath overrides the renderer command. The command is
// invoked as <converter> <input.json> <output.gif>.
func SetConverterPath(path string) {
	converterPath = path
}

// Supported returns whether the renderer command is available in the
// current environment.
func Supported() bool {
	_, err := exec.LookPath(converterPath)
	return err == nil
}

// ConvertTGS renders the gzipped Lottie animation at inputPath into an
// animated GIF at outputPath.
func ConvertTGS(ctx context.Context, inputPath, outputPath string) error {
	input, err := os.Open(inputPath)
	if err != nil {
		return fmt.Errorf("failed to open input: %w", err)
	}
	defer input.Close()
	unzipped, err := gzip.NewReader(input)
	if err != nil {
		return fmt.Errorf("failed to ungzip sticker: %w", err)
	}
	jsonFile, err := os.CreateTemp("", "lottie-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer func() {
		_ = jsonFile.Close()
		_ = os.Remove(jsonFile.Name())
	}()
	if _, err = io.Copy(jsonFile, unzipped); err != nil {
		return fmt.Errorf("failed to extract animation data: %w", err)
	}

	cmd := exec.CommandContext(ctx, converterPath, jsonFile.Name(), outputPath)
	var stderr strings.Builder
	cmd.Stderr = &stderr
	if err = cmd.Run(); err != nil {
		return fmt.Errorf("renderer failed: %w (stderr: %s)", err, strings.TrimSpace(stderr.String()))
	}
	return nil
}
