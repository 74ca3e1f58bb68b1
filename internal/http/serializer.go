package http

import (
	"github.com/bytedance/sonic"
	"github.com/labstack/echo/v4"

	apperrors "notegrid.app/notegrid/internal/errors"
)

// sonicSerializer is echo's JSON codec backed by sonic in its
// encoding/json-compatible configuration.
type sonicSerializer struct{}

func (sonicSerializer) Serialize(c echo.Context, i interface{}, indent string) error {
	enc := sonic.ConfigStd.NewEncoder(c.Response())
	if indent != "" {
		enc.SetIndent("", indent)
	}
	return enc.Encode(i)
}

func (sonicSerializer) Deserialize(c echo.Context, i interface{}) error {
	if err := sonic.ConfigStd.NewDecoder(c.Request().Body).Decode(i); err != nil {
		return apperrors.ErrInvalidBody
	}
	return nil
}
