package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/julianpistorius/abaco/models"
	"github.com/julianpistorius/abaco/version"
)

// Envelope is the uniform success body of every response.
type Envelope struct {
	Status  string      `json:"status"`
	Message string      `json:"message"`
	Result  interface{} `json:"result"`
	Version string      `json:"version"`
}

// ok writes the success envelope. When web.case is camel, the keys of the
// result are rewritten once, here at the boundary; internal representations
// stay snake_case throughout.
func (a *API) ok(c echo.Context, result interface{}, msg string) error {
	if a.camelCase {
		result = camelize(result)
	}
	return c.JSON(http.StatusOK, Envelope{
		Status:  "success",
		Message: msg,
		Result:  result,
		Version: version.Get(),
	})
}

func camelize(result interface{}) interface{} {
	switch t := result.(type) {
	case models.Record:
		return models.DictToCamel(t)
	case []models.Record:
		out := make([]interface{}, len(t))
		for i, r := range t {
			out[i] = models.DictToCamel(r)
		}
		return out
	default:
		return result
	}
}
