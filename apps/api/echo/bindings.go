package echoapi

import (
	"io"
	"mime/multipart"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/gymhub/contentdesk/core"
	"github.com/gymhub/contentdesk/core/submission"
)

var orderingParam = "ordering"

type Ordering struct {
	Orderings []core.DBOrdering
}

func (ord *Ordering) Bind(ctx echo.Context) {
	val := ctx.QueryParam(orderingParam)
	if val == "" {
		return
	}

	for _, field := range strings.Split(val, ",") {
		field = strings.TrimSpace(field)
		descending := strings.HasPrefix(field, "-")
		if descending {
			field = field[1:] // drop "-"
		}
		if field == "" {
			continue
		}
		ord.Orderings = append(ord.Orderings, core.DBOrdering{Field: field, Ascending: !descending})
	}
}

// boolParam reads an optional boolean query parameter; anything unparsable is ignored.
func boolParam(ctx echo.Context, name string) *bool {
	val := ctx.QueryParam(name)
	if val == "" {
		return nil
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return nil
	}
	return &b
}

// bindFiles collects the files uploaded under field.
func bindFiles(ctx echo.Context, field string) ([]submission.File, error) {
	form, err := ctx.MultipartForm()
	if err != nil {
		return nil, core.NewValidationError(errors.Wrap(err, "reading multipart form"))
	}
	headers := form.File[field]
	if len(headers) == 0 {
		return nil, errNoFiles
	}

	files := make([]submission.File, 0, len(headers))
	for _, fh := range headers {
		files = append(files, multipartFile(fh))
	}
	return files, nil
}

func multipartFile(fh *multipart.FileHeader) submission.File {
	return submission.File{
		Name: fh.Filename,
		Size: fh.Size,
		Open: func() (io.ReadCloser, error) { return fh.Open() },
	}
}
