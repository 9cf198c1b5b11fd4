/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package imagesrc loads the optional header image of a scenario. Every failure
// is classified as a resource problem so callers can skip the image and go on.
package imagesrc

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/h2non/filetype"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"shinobiwriter/internal/domain"
)

// MaxPixels bounds the longer side of an embedded header image.
const MaxPixels = 2400

// Image is a decoded header image together with bytes ready to embed.
// Format is "png" or "jpeg" and describes Data, not the source file.
type Image struct {
	Path   string
	Source string // sniffed source type, e.g. "webp"
	Format string
	Data   []byte
	Img    image.Image
	Width  int
	Height int
}

// Load reads, sniffs, decodes and normalises the image at path.
func Load(path string) (*Image, error) {
	if strings.TrimSpace(path) == "" {
		return nil, domain.Errorf(domain.KindResourceUnavailable, "load image", path, "no path")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, domain.Wrap(domain.KindResourceUnavailable, "load image", path, err)
	}
	img, err := Decode(data)
	if err != nil {
		return nil, domain.Wrap(domain.KindResourceUnavailable, "load image", path, err)
	}
	img.Path = path
	return img, nil
}

// Decode decodes data after checking its magic bytes.
func Decode(data []byte) (*Image, error) {
	kind, err := filetype.Match(data)
	if err != nil {
		return nil, fmt.Errorf("sniff image: %w", err)
	}
	if kind == filetype.Unknown || !filetype.IsImage(data) {
		return nil, fmt.Errorf("not an image (%s)", kindName(kind.Extension))
	}
	src, srcType, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", kind.Extension, err)
	}
	b := src.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 {
		return nil, fmt.Errorf("empty %s image", srcType)
	}
	if b.Dx() > MaxPixels || b.Dy() > MaxPixels {
		src = imaging.Fit(src, MaxPixels, MaxPixels, imaging.Lanczos)
	}

	out := &Image{Source: kind.Extension, Img: src, Width: src.Bounds().Dx(), Height: src.Bounds().Dy()}
	buf := new(bytes.Buffer)
	if srcType == "jpeg" {
		out.Format = "jpeg"
		err = imaging.Encode(buf, src, imaging.JPEG, imaging.JPEGQuality(90))
	} else {
		out.Format = "png"
		err = imaging.Encode(buf, src, imaging.PNG)
	}
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", out.Format, err)
	}
	out.Data = buf.Bytes()
	return out, nil
}

func kindName(ext string) string {
	if ext == "" {
		return "unknown"
	}
	return ext
}

// Fit returns the largest size with the image aspect ratio that fits into
// boxW x boxH.
func (im *Image) Fit(boxW, boxH float64) (w, h float64) {
	if im == nil || im.Width == 0 || im.Height == 0 || boxW <= 0 || boxH <= 0 {
		return 0, 0
	}
	ar := float64(im.Width) / float64(im.Height)
	w, h = boxW, boxW/ar
	if h > boxH {
		h = boxH
		w = boxH * ar
	}
	return w, h
}

// Scaled returns a copy of the image resized to fit w x h pixels, used by
// raster backends that draw the image at device resolution.
func (im *Image) Scaled(w, h int) image.Image {
	if im == nil || im.Img == nil || w <= 0 || h <= 0 {
		return nil
	}
	return imaging.Fit(im.Img, w, h, imaging.Lanczos)
}

// MIME returns the media type of Data.
func (im *Image) MIME() string {
	if im != nil && im.Format == "jpeg" {
		return "image/jpeg"
	}
	return "image/png"
}
