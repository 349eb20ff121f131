package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestErrorClass(t *testing.T) {
	Convey("Given error statuses", t, func() {
		cases := []struct {
			status   int
			kind     string
			severity string
		}{
			{http.StatusBadGateway, "upstream", "high"},
			{http.StatusServiceUnavailable, "unavailable", "medium"},
			{http.StatusInternalServerError, "server_error", "high"},
			{http.StatusTooManyRequests, "rate_limit", "medium"},
			{http.StatusNotFound, "not_found", "low"},
			{http.StatusBadRequest, "client_error", "low"},
		}
		for _, tc := range cases {
			kind, severity := errorClass(tc.status)
			So(kind, ShouldEqual, tc.kind)
			So(severity, ShouldEqual, tc.severity)
		}
	})
}

func TestStatusRecorder(t *testing.T) {
	Convey("Given a wrapped handler that fails upstream", t, func() {
		h := MetricsMiddleware(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}, "test")

		w := httptest.NewRecorder()
		h(w, httptest.NewRequest(http.MethodGet, "/test", http.NoBody))

		Convey("Then the status passes through and a request id is set", func() {
			So(w.Code, ShouldEqual, http.StatusBadGateway)
			So(w.Header().Get(RequestIDHeader), ShouldNotBeEmpty)
		})
	})
}
