package handler

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/kursadbilgin/fitting-request/internal/validator"
)

// parseForm reads a JSON, urlencoded or multipart body into a flat form.
// JSON numbers and booleans are rendered the way a browser would submit them.
func parseForm(c *fiber.Ctx) (validator.Form, error) {
	form := validator.Form{}

	switch {
	case isMultipart(c):
		mf, err := c.MultipartForm()
		if err != nil {
			return nil, fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		for name, values := range mf.Value {
			if len(values) > 0 {
				form[name] = values[0]
			}
		}
	case strings.HasPrefix(c.Get(fiber.HeaderContentType), fiber.MIMEApplicationJSON):
		var body map[string]any
		if err := json.Unmarshal(c.Body(), &body); err != nil {
			return nil, fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		for name, value := range body {
			if s, ok := formValue(value); ok {
				form[name] = s
			}
		}
	default:
		c.Request().PostArgs().VisitAll(func(key, value []byte) {
			form[string(key)] = string(value)
		})
	}

	return form, nil
}

func formValue(value any) (string, bool) {
	switch v := value.(type) {
	case nil:
		return "", false
	case string:
		return v, true
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), true
	case bool:
		return strconv.FormatBool(v), true
	default:
		raw, err := json.Marshal(v)
		if err != nil {
			return "", false
		}
		return string(raw), true
	}
}

// formFile opens the uploaded file under field. A request without the file
// yields a zero FileUpload, which the validator accepts as "no upload".
func formFile(c *fiber.Ctx, field string) (validator.FileUpload, func()) {
	noop := func() {}
	if !isMultipart(c) {
		return validator.FileUpload{}, noop
	}
	mf, err := c.MultipartForm()
	if err != nil || len(mf.File[field]) == 0 {
		return validator.FileUpload{}, noop
	}

	header := mf.File[field][0]
	upload := validator.FileUpload{Name: header.Filename, Size: header.Size}
	f, err := header.Open()
	if err != nil {
		upload.Err = err
		return upload, noop
	}
	upload.Content = f
	return upload, func() { _ = f.Close() }
}

func isMultipart(c *fiber.Ctx) bool {
	return strings.HasPrefix(c.Get(fiber.HeaderContentType), fiber.MIMEMultipartForm)
}
