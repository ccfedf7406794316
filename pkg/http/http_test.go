package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
)

func TestSendAndParse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok":
			if r.URL.Query().Get("symbol") != "BTCUSDT" {
				t.Errorf("query %q", r.URL.RawQuery)
			}
			if r.Header.Get("User-Agent") != "sf-test" {
				t.Errorf("user agent %q", r.Header.Get("User-Agent"))
			}
			_, _ = w.Write([]byte(`{"price":42.5}`))
		case "/echo":
			if r.Header.Get("Content-Type") != "application/json" {
				t.Errorf("content type %q", r.Header.Get("Content-Type"))
			}
			var in map[string]string
			_ = json.NewDecoder(r.Body).Decode(&in)
			_ = json.NewEncoder(w).Encode(in)
		case "/busy":
			w.WriteHeader(http.StatusTooManyRequests)
		default:
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte("bad symbol"))
		}
	}))
	defer srv.Close()

	c := NewClient(WithUserAgent("sf-test"))
	ctx := context.Background()

	var got struct {
		Price float64 `json:"price"`
	}
	err := c.SendAndParse(ctx, &RequestOptions{
		Method:      MethodGet,
		URL:         srv.URL + "/ok",
		QueryParams: map[string][]string{"symbol": {"BTCUSDT"}},
	}, &got)
	if err != nil || got.Price != 42.5 {
		t.Fatalf("got %+v err=%v", got, err)
	}

	var echoed map[string]string
	if err := c.SendAndParse(ctx, &RequestOptions{Method: MethodPost, URL: srv.URL + "/echo", Body: map[string]string{"text": "up"}}, &echoed); err != nil {
		t.Fatalf("post: %v", err)
	}
	if echoed["text"] != "up" {
		t.Fatalf("echoed %v", echoed)
	}

	var se *StatusError
	err = c.SendAndParse(ctx, &RequestOptions{Method: MethodGet, URL: srv.URL + "/busy"}, nil)
	if !errors.As(err, &se) || !se.Retryable() {
		t.Fatalf("429 should be retryable, got %v", err)
	}
	err = c.SendAndParse(ctx, &RequestOptions{Method: MethodGet, URL: srv.URL + "/nope"}, nil)
	if !errors.As(err, &se) || se.Retryable() || !strings.Contains(se.Body, "bad symbol") {
		t.Fatalf("400 should not be retryable, got %v", err)
	}
}

type sampleRequest struct {
	Coin  string `param:"coin" validate:"required"`
	Limit int    `query:"limit" default:"50" validate:"gte=1,lte=500"`
}

func TestReadAndValidateRequest(t *testing.T) {
	e := echo.New()

	run := func(target string, coin string) (*sampleRequest, interface{}) {
		req := httptest.NewRequest(http.MethodGet, target, nil)
		c := e.NewContext(req, httptest.NewRecorder())
		if coin != "" {
			c.SetParamNames("coin")
			c.SetParamValues(coin)
		}
		out := &sampleRequest{}
		return out, ReadAndValidateRequest(c, out)
	}

	out, verr := run("/x", "BTC")
	if verr != nil || out.Limit != 50 {
		t.Fatalf("defaults: %+v %v", out, verr)
	}

	_, verr = run("/x?limit=900", "BTC")
	errs, ok := verr.([]ValidationError)
	if !ok || len(errs) != 1 || errs[0].Field != "limit" || errs[0].Code != "ERR_LTE" {
		t.Fatalf("limit: %+v", verr)
	}

	_, verr = run("/x", "")
	errs, ok = verr.([]ValidationError)
	if !ok || len(errs) != 1 || errs[0].Field != "coin" || errs[0].Code != "ERR_REQUIRED" {
		t.Fatalf("coin: %+v", verr)
	}
}

func TestAppErrorResponse(t *testing.T) {
	e := echo.New()
	cases := []struct {
		err  error
		want int
		code string
	}{
		{NotFoundError("no data"), http.StatusNotFound, CodeNotFound},
		{UnavailableError("binance down").WithError(errors.New("dial")), http.StatusServiceUnavailable, CodeUnavailable},
		{errors.New("boom"), http.StatusInternalServerError, CodeInternal},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
		if err := AppErrorResponse(c, tc.err); err != nil {
			t.Fatalf("write: %v", err)
		}
		var env struct {
			Status int        `json:"status"`
			Data   []AppError `json:"data"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if rec.Code != tc.want || env.Status != tc.want || len(env.Data) != 1 || env.Data[0].Code != tc.code {
			t.Fatalf("%v: code=%d env=%+v", tc.err, rec.Code, env)
		}
		if strings.Contains(rec.Body.String(), "boom") || strings.Contains(rec.Body.String(), "dial") {
			t.Fatalf("cause leaked: %s", rec.Body.String())
		}
	}
}
