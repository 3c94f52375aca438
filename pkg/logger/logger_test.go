package logger

import (
	"bytes"
	"context"
	"errors"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestLoggerInit(t *testing.T) {
	Convey("Given the global logger", t, func() {
		Convey("When it is initialized", func() {
			So(Init(), ShouldBeNil)
			defer func() { So(Sync(), ShouldBeNil) }()

			Convey("Then Get returns a usable logger", func() {
				So(Get(), ShouldNotBeNil)
				So(Named("test"), ShouldNotBeNil)
			})
		})

		Convey("When a nil writer is supplied", func() {
			So(InitWithWriter(nil), ShouldNotBeNil)
		})
	})
}

func TestLoggerOutput(t *testing.T) {
	Convey("Given a logger writing to a buffer", t, func() {
		var buf bytes.Buffer
		So(InitWithWriter(&buf), ShouldBeNil)
		ctx := context.Background()

		Convey("When logging with fields", func() {
			Get().Info(ctx, "model loaded", String("kind", "logistic_regression"), Bool("ready", true))

			Convey("Then the record carries message, fields and source", func() {
				out := buf.String()
				So(out, ShouldContainSubstring, "model loaded")
				So(out, ShouldContainSubstring, "kind=logistic_regression")
				So(out, ShouldContainSubstring, "ready=true")
				So(out, ShouldContainSubstring, "source=")
			})
		})

		Convey("When the context carries a request id", func() {
			Named("api").Warn(WithRequestID(ctx, "req-42"), "bad payload", Error(errors.New("boom")))

			Convey("Then the id and component are logged", func() {
				out := buf.String()
				So(out, ShouldContainSubstring, "request_id=req-42")
				So(out, ShouldContainSubstring, "component=api")
				So(out, ShouldContainSubstring, "error=boom")
			})
		})

		Convey("When the level is raised to error", func() {
			So(SetLevelString("error"), ShouldBeNil)
			Get().Info(ctx, "hidden")
			Get().Error(ctx, "shown")

			Convey("Then lower levels are suppressed", func() {
				So(buf.String(), ShouldNotContainSubstring, "hidden")
				So(buf.String(), ShouldContainSubstring, "shown")
			})
		})

		Convey("When an unknown level is set", func() {
			So(SetLevelString("verbose"), ShouldNotBeNil)
		})
	})
}

func TestRequestID(t *testing.T) {
	Convey("Given contexts with and without a request id", t, func() {
		So(RequestID(context.Background()), ShouldEqual, "")
		So(RequestID(WithRequestID(context.Background(), "abc")), ShouldEqual, "abc")
	})
}

func TestNop(t *testing.T) {
	Convey("Nop logger should swallow records without panicking", t, func() {
		So(func() { Nop().Error(context.Background(), "ignored") }, ShouldNotPanic)
	})
}
