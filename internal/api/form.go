package api

import (
	"bytes"
	"fmt"
	"io"
	"mime/multipart"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
)

// Form is a multipart/form-data body. Fields keep insertion order.
type Form struct {
	fields []formField
	files  []formFile
}

type formField struct {
	name, value string
}

type formFile struct {
	field       string
	filename    string
	contentType string
	open        func() (io.ReadCloser, error)
}

// NewForm returns an empty form.
func NewForm() *Form {
	return &Form{}
}

// Set adds a text field.
func (f *Form) Set(name, value string) *Form {
	f.fields = append(f.fields, formField{name: name, value: value})
	return f
}

// SetBool adds a boolean field encoded as "1" or "0".
func (f *Form) SetBool(name string, v bool) *Form {
	if v {
		return f.Set(name, "1")
	}
	return f.Set(name, "0")
}

// AddFile attaches the file at path under field. The part's content type
// is image/<ext>, or image/jpeg when the name has no extension.
func (f *Form) AddFile(field, path string) *Form {
	name := filepath.Base(path)
	if name == "." || name == string(filepath.Separator) {
		name = "avatar.jpg"
	}
	f.files = append(f.files, formFile{
		field:       field,
		filename:    name,
		contentType: imageContentType(name),
		open: func() (io.ReadCloser, error) {
			return os.Open(path)
		},
	})
	return f
}

// AddReader attaches content read from r under field.
func (f *Form) AddReader(field, filename string, r io.Reader) *Form {
	f.files = append(f.files, formFile{
		field:       field,
		filename:    filename,
		contentType: imageContentType(filename),
		open: func() (io.ReadCloser, error) {
			return io.NopCloser(r), nil
		},
	})
	return f
}

// Len returns the number of fields and files in the form.
func (f *Form) Len() int {
	return len(f.fields) + len(f.files)
}

func (f *Form) encode() ([]byte, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	for _, fld := range f.fields {
		if err := w.WriteField(fld.name, fld.value); err != nil {
			return nil, "", err
		}
	}

	for _, file := range f.files {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, file.field, file.filename))
		h.Set("Content-Type", file.contentType)
		part, err := w.CreatePart(h)
		if err != nil {
			return nil, "", err
		}
		rc, err := file.open()
		if err != nil {
			return nil, "", fmt.Errorf("open %s: %w", file.filename, err)
		}
		_, err = io.Copy(part, rc)
		rc.Close()
		if err != nil {
			return nil, "", fmt.Errorf("read %s: %w", file.filename, err)
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}

func imageContentType(filename string) string {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(filename)), ".")
	if ext == "" {
		return "image/jpeg"
	}
	return "image/" + ext
}
