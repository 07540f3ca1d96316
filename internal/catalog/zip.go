// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package catalog

import (
	"archive/zip"
	"bytes"
	"errors"
	"maps"
	"slices"
)

// ErrNoCode is returned by [Project.Zip] for projects without code.
var ErrNoCode = errors.New("catalog: project has no code")

// ZipName returns the name of the archive produced by [Project.Zip].
func (p *Project) ZipName() string { return baseName(p.Title) + ".zip" }

// Zip bundles the code of every language into a ZIP archive. Files are
// ordered by language name.
func (p *Project) Zip() ([]byte, error) {
	if !p.HasCode() {
		return nil, ErrNoCode
	}
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, lang := range slices.Sorted(maps.Keys(p.Code)) {
		code := p.Code[lang]
		if code == "" {
			continue
		}
		w, err := zw.CreateHeader(&zip.FileHeader{
			Name:   p.FileName(lang),
			Method: zip.Deflate,
		})
		if err != nil {
			return nil, err
		}
		if _, err := w.Write([]byte(code)); err != nil {
			return nil, err
		}
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
