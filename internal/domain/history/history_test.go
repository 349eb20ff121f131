package history_test

import (
	"testing"

	"github.com/okian/taixiu/internal/domain/history"
	"github.com/okian/taixiu/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func sessions(outcomes string, firstID int64) []model.Session {
	out := make([]model.Session, 0, len(outcomes))
	for i, c := range outcomes {
		o := model.Low
		if c == 'T' {
			o = model.High
		}
		out = append(out, model.Session{ID: firstID + int64(i), Outcome: o})
	}
	return out
}

func TestNormalize(t *testing.T) {
	Convey("Given an empty session list", t, func() {
		_, err := history.Normalize(nil)

		Convey("Then it should fail with ErrEmptyHistory", func() {
			So(err, ShouldEqual, history.ErrEmptyHistory)
		})
	})

	Convey("Given sessions in ascending id order", t, func() {
		// ids 1..5 with outcomes X T T T T: id 5 is the latest
		in := sessions("XTTTT", 1)

		h, err := history.Normalize(in)

		Convey("Then the pattern is latest-first", func() {
			So(err, ShouldBeNil)
			So(h.Pattern.String(), ShouldEqual, "TTTTX")
			So(h.Latest().ID, ShouldEqual, 5)
		})

		Convey("And the input slice is left untouched", func() {
			So(in[0].ID, ShouldEqual, 1)
		})

		Convey("And ratios cover the whole history", func() {
			So(h.Ratios.HighPct, ShouldEqual, 80)
			So(h.Ratios.LowPct, ShouldEqual, 20)
		})
	})

	Convey("Given sessions where the upstream repeated an id", t, func() {
		in := []model.Session{
			{ID: 5, Outcome: model.High},
			{ID: 5, Outcome: model.High},
			{ID: 4, Outcome: model.Low},
		}

		h, err := history.Normalize(in)

		Convey("Then each session counts once", func() {
			So(err, ShouldBeNil)
			So(h.Pattern.String(), ShouldEqual, "TX")
			So(h.Len(), ShouldEqual, 2)
			So(h.Ratios.HighPct, ShouldEqual, 50)
			So(h.Ratios.LowPct, ShouldEqual, 50)
		})

		Convey("And the input slice is left untouched", func() {
			So(in, ShouldHaveLength, 3)
		})
	})

	Convey("Given a repeated id with conflicting outcomes", t, func() {
		h, err := history.Normalize([]model.Session{
			{ID: 9, Outcome: model.Low},
			{ID: 8, Outcome: model.High},
			{ID: 9, Outcome: model.High},
		})

		Convey("Then the first occurrence wins", func() {
			So(err, ShouldBeNil)
			So(h.Pattern.String(), ShouldEqual, "XT")
			So(h.Latest().Outcome, ShouldEqual, model.Low)
		})
	})

	Convey("Given sessions in arbitrary order", t, func() {
		in := []model.Session{
			{ID: 12, Outcome: model.Low},
			{ID: 40, Outcome: model.High},
			{ID: 3, Outcome: model.High},
			{ID: 27, Outcome: model.Low},
		}

		h, err := history.Normalize(in)

		Convey("Then sessions are sorted by descending id", func() {
			So(err, ShouldBeNil)
			So(h.Len(), ShouldEqual, 4)
			So(h.Sessions[0].ID, ShouldEqual, 40)
			So(h.Sessions[3].ID, ShouldEqual, 3)
			So(h.Pattern.String(), ShouldEqual, "TXXT")
		})
	})

	Convey("Given a single session", t, func() {
		h, err := history.Normalize(sessions("T", 9))

		Convey("Then the pattern has length one and ratios are 100/0", func() {
			So(err, ShouldBeNil)
			So(len(h.Pattern), ShouldEqual, 1)
			So(h.Ratios.HighPct, ShouldEqual, 100)
			So(h.Ratios.LowPct, ShouldEqual, 0)
		})
	})

	Convey("Given a history whose ratios do not divide evenly", t, func() {
		h, err := history.Normalize(sessions("TTXXXXX", 1))

		Convey("Then each ratio is rounded and the sum stays within tolerance", func() {
			So(err, ShouldBeNil)
			So(h.Ratios.HighPct, ShouldEqual, 28.57)
			So(h.Ratios.LowPct, ShouldEqual, 71.43)
			sum := h.Ratios.HighPct + h.Ratios.LowPct
			So(sum, ShouldBeBetweenOrEqual, 99.99, 100.01)
		})
	})

	Convey("Given histories of many sizes", t, func() {
		Convey("Then the pattern length always equals the session count", func() {
			for n := 1; n <= 60; n++ {
				outcomes := make([]byte, n)
				for i := range outcomes {
					if (i*7+n)%3 == 0 {
						outcomes[i] = 'T'
					} else {
						outcomes[i] = 'X'
					}
				}
				h, err := history.Normalize(sessions(string(outcomes), 100))
				So(err, ShouldBeNil)
				So(len(h.Pattern), ShouldEqual, n)
				sum := h.Ratios.HighPct + h.Ratios.LowPct
				So(sum, ShouldBeBetweenOrEqual, 99.99, 100.01)
			}
		})
	})
}
