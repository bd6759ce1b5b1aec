package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
)

type solveBody struct {
	Type    string  `json:"type" validate:"required,oneof=call put"`
	Spot    float64 `json:"spot" validate:"gt=0"`
	MaxIter int     `json:"max_iterations" default:"200" validate:"gt=0"`
}

func bind(t *testing.T, body string) (*solveBody, []ValidationError) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	c := e.NewContext(req, httptest.NewRecorder())
	out := &solveBody{}
	return out, ReadAndValidateRequest(c, out)
}

func TestReadAndValidateRequestFillsDefaults(t *testing.T) {
	got, verr := bind(t, `{"type":"call","spot":100}`)
	if verr != nil {
		t.Fatalf("unexpected errors %+v", verr)
	}
	if got.MaxIter != 200 {
		t.Fatalf("default not applied: %d", got.MaxIter)
	}
}

func TestReadAndValidateRequestReportsJSONNames(t *testing.T) {
	_, verr := bind(t, `{"type":"straddle","spot":-1}`)
	if len(verr) != 2 {
		t.Fatalf("want 2 errors, got %+v", verr)
	}
	byField := map[string]ValidationError{}
	for _, v := range verr {
		byField[v.Field] = v
	}
	if byField["type"].Code != "ERR_ONEOF" || byField["spot"].Code != "ERR_GT" {
		t.Fatalf("unexpected codes %+v", verr)
	}
	if byField["spot"].Params["value"] != "0" {
		t.Fatalf("missing bound param: %+v", byField["spot"])
	}
}

func TestReadAndValidateRequestMalformedBody(t *testing.T) {
	_, verr := bind(t, `{"type":`)
	if len(verr) != 1 || verr[0].Code != "ERR_MALFORMED" {
		t.Fatalf("unexpected %+v", verr)
	}
}

func TestAppErrorResponseStatus(t *testing.T) {
	e := echo.New()
	cases := []struct {
		err  error
		want int
	}{
		{BadRequestError("bad"), http.StatusBadRequest},
		{TooManyRequestsError("slow down"), http.StatusTooManyRequests},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
		if err := AppErrorResponse(c, tc.err); err != nil {
			t.Fatalf("write: %v", err)
		}
		if rec.Code != tc.want {
			t.Fatalf("%v: status %d, want %d", tc.err, rec.Code, tc.want)
		}
		var env APIResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil || env.Status != tc.want {
			t.Fatalf("envelope %+v (%v)", env, err)
		}
	}
}
