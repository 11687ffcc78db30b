// Copyright 2026 The LUCI Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package transport

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/textproto"
	"path/filepath"
	"slices"
	"strings"

	"go.chromium.org/luci/common/errors"
)

const (
	textContentType   = "text/plain; charset=utf-8"
	binaryContentType = "application/octet-stream"
)

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

// encodeMultipart builds a multipart/form-data body.
//
// fields, if not empty, is a JSON object. Each of its fields becomes a part:
// objects and arrays keep their JSON encoding with a JSON content type,
// strings are sent unquoted and other scalars in their JSON text, both as
// text. The file part comes last.
func encodeMultipart(fields []byte, file *attachment) (*bytes.Buffer, string, error) {
	buf := &bytes.Buffer{}
	w := multipart.NewWriter(buf)

	if len(fields) > 0 {
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(fields, &obj); err != nil || obj == nil {
			return nil, "", errors.New("a JSON body sent along a file must be an object")
		}
		keys := make([]string, 0, len(obj))
		for k := range obj {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		for _, k := range keys {
			value, ct, err := fieldPart(obj[k])
			if err != nil {
				return nil, "", errors.Fmt("field %q: %w", k, err)
			}
			h := textproto.MIMEHeader{}
			h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"`, quoteEscaper.Replace(k)))
			h.Set("Content-Type", ct)
			pw, err := w.CreatePart(h)
			if err != nil {
				return nil, "", err
			}
			if _, err := pw.Write(value); err != nil {
				return nil, "", err
			}
		}
	}

	if err := writeFile(w, file); err != nil {
		return nil, "", err
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return buf, w.FormDataContentType(), nil
}

func fieldPart(raw json.RawMessage) ([]byte, string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, "", errors.New("empty value")
	}
	switch raw[0] {
	case '{', '[':
		return raw, jsonContentType, nil
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, "", err
		}
		return []byte(s), textContentType, nil
	default:
		return raw, textContentType, nil
	}
}

func writeFile(w *multipart.Writer, file *attachment) error {
	src, err := file.open()
	if err != nil {
		return errors.Fmt("opening %q: %w", file.name, err)
	}
	defer func() { _ = src.Close() }()

	h := textproto.MIMEHeader{}
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
		quoteEscaper.Replace(file.field), quoteEscaper.Replace(file.name)))
	h.Set("Content-Type", fileContentType(file.name))
	pw, err := w.CreatePart(h)
	if err != nil {
		return err
	}
	if _, err := io.Copy(pw, src); err != nil {
		return errors.Fmt("reading %q: %w", file.name, err)
	}
	return nil
}

func fileContentType(name string) string {
	if ct := mime.TypeByExtension(filepath.Ext(name)); ct != "" {
		return ct
	}
	return binaryContentType
}
