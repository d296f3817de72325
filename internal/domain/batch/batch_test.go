package batch_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/KevymLuccas/hbmxml/internal/domain/batch"
	"github.com/KevymLuccas/hbmxml/internal/domain/key"
	. "github.com/smartystreets/goconvey/convey"
)

// testKey produces a distinct valid 44-digit key for n.
func testKey(n int) string {
	return fmt.Sprintf("%044d", n)
}

func TestBatch(t *testing.T) {
	Convey("Given an empty batch", t, func() {
		b := batch.New()

		Convey("Adding a valid key succeeds and preserves order", func() {
			So(b.Add(testKey(1)), ShouldBeNil)
			So(b.Add(testKey(2)), ShouldBeNil)
			So(b.Len(), ShouldEqual, 2)

			keys := b.Keys()
			So(keys[0].String(), ShouldEqual, testKey(1))
			So(keys[1].String(), ShouldEqual, testKey(2))
		})

		Convey("Adding an invalid key is rejected", func() {
			err := b.Add("not-a-key")
			So(errors.Is(err, key.ErrInvalidKey), ShouldBeTrue)
			So(b.Len(), ShouldEqual, 0)
		})

		Convey("Adding a duplicate key is rejected", func() {
			So(b.Add(testKey(7)), ShouldBeNil)
			err := b.Add(testKey(7))
			So(errors.Is(err, batch.ErrDuplicateKey), ShouldBeTrue)
			So(b.Len(), ShouldEqual, 1)
		})

		Convey("The batch holds exactly MaxKeys keys", func() {
			for i := 0; i < batch.MaxKeys; i++ {
				So(b.Add(testKey(i)), ShouldBeNil)
			}
			So(b.Len(), ShouldEqual, batch.MaxKeys)

			err := b.Add(testKey(batch.MaxKeys))
			So(errors.Is(err, batch.ErrTooManyKeys), ShouldBeTrue)
			So(b.Len(), ShouldEqual, batch.MaxKeys)
		})

		Convey("Keys returns a copy", func() {
			So(b.Add(testKey(1)), ShouldBeNil)
			keys := b.Keys()
			keys[0] = key.Key("tampered")
			So(b.Keys()[0].String(), ShouldEqual, testKey(1))
		})
	})
}
