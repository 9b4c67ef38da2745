package media

import (
	"errors"
	"fmt"
	"io"
	"net/http"
)

// FormFile reads the multipart file field into memory. It returns nil, nil
// when the field is absent.
func FormFile(r *http.Request, field string) (*File, error) {
	src, header, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", field, err)
	}
	defer src.Close()

	data, err := io.ReadAll(src)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", field, err)
	}
	return &File{
		Name:        header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}
