package httpapi

import (
	"net/http"

	"github.com/go-chi/render"
)

type HttpErrResponse struct {
	Err            error  `json:"-"`
	HTTPStatusCode int    `json:"-"`
	ErrorText      string `json:"error"`
}

func (e *HttpErrResponse) Render(w http.ResponseWriter, r *http.Request) error {
	render.Status(r, e.HTTPStatusCode)
	return nil
}

func httpErrInvalidRequest(err error) render.Renderer {
	return &HttpErrResponse{
		Err:            err,
		HTTPStatusCode: http.StatusBadRequest,
		ErrorText:      err.Error(),
	}
}

func httpErrNotFound(msg string) render.Renderer {
	return &HttpErrResponse{
		HTTPStatusCode: http.StatusNotFound,
		ErrorText:      msg,
	}
}

func httpErrForbidden(msg string) render.Renderer {
	return &HttpErrResponse{
		HTTPStatusCode: http.StatusForbidden,
		ErrorText:      msg,
	}
}

func httpErrConflict(err error) render.Renderer {
	return &HttpErrResponse{
		Err:            err,
		HTTPStatusCode: http.StatusConflict,
		ErrorText:      err.Error(),
	}
}

func httpErrUnexpected(err error) render.Renderer {
	return &HttpErrResponse{
		Err:            err,
		HTTPStatusCode: http.StatusInternalServerError,
		ErrorText:      "internal server error",
	}
}
