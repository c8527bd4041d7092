package mitiq

import (
	"context"
	"errors"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

func TestNewRateLimiter(t *testing.T) {
	Convey("Given a new rate limiter", t, func() {
		limiter := NewRateLimiter(100, 5)

		Convey("It should be properly initialized", func() {
			So(limiter, ShouldNotBeNil)
			So(limiter.limiter.Burst(), ShouldEqual, 5)
			So(float64(limiter.limiter.Limit()), ShouldEqual, 100.0)
			So(limiter.Throttled(), ShouldEqual, int64(0))
		})
	})
}

func TestRateLimiterLimit(t *testing.T) {
	Convey("Given a rate limiter with 2 tokens", t, func() {
		limiter := NewRateLimiter(1, 2)

		Convey("When consuming tokens", func() {
			So(limiter.Limit(), ShouldBeFalse)
			So(limiter.Limit(), ShouldBeFalse)
			So(limiter.Limit(), ShouldBeTrue)
		})
	})
}

func TestRateLimiterBurst(t *testing.T) {
	Convey("Given a rate limiter with burst capacity", t, func() {
		limiter := NewRateLimiter(10, 3)

		Convey("It should handle burst and refill", func() {
			So(limiter.Limit(), ShouldBeFalse)
			So(limiter.Limit(), ShouldBeFalse)
			So(limiter.Limit(), ShouldBeFalse)
			So(limiter.Limit(), ShouldBeTrue)

			time.Sleep(150 * time.Millisecond)

			So(limiter.Limit(), ShouldBeFalse)
		})
	})
}

func TestRateLimiterWait(t *testing.T) {
	Convey("Given a slow rate limiter", t, func() {
		limiter := NewRateLimiter(1, 1)

		Convey("The first call passes and the next one waits", func() {
			So(limiter.Wait(context.Background()), ShouldBeNil)

			ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
			defer cancel()

			err := limiter.Wait(ctx)
			So(errors.Is(err, context.DeadlineExceeded), ShouldBeTrue)
			So(limiter.Throttled(), ShouldEqual, int64(1))
		})
	})

	Convey("Given a limiter without burst", t, func() {
		err := NewRateLimiter(1, 0).Wait(context.Background())
		So(errors.Is(err, ErrConfiguration), ShouldBeTrue)
	})
}
