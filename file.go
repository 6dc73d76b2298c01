// Copyright (c) 2025 Tulir Asokan
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package tgbridge

import (
	"io"
	"os"
)

// File is the subset of *os.File that resolved media is accessed
// through. Consumers read the materialized payload from it; middlewares
// may also write a replacement in place.
type File interface {
	io.Reader
	io.Writer
	io.Seeker
	io.ReaderAt
	io.Closer
	Name() string
	Stat() (os.FileInfo, error)
}

var _ File = (*os.File)(nil)
