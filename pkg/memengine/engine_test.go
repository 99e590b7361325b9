package memengine

import (
	"fmt"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/l7mp/deltajoin/pkg/delta"
)

var _ = Describe("Engine", func() {
	var eng *Engine

	BeforeEach(func() {
		eng = New()
	})

	Context("input frontier", func() {
		It("should reject pushes below the frontier", func() {
			src, err := eng.Source("input")
			Expect(err).NotTo(HaveOccurred())

			Expect(src.Push(delta.Insert(delta.Document{"id": int64(1)}, 0))).To(Succeed())
			Expect(eng.Run()).To(Succeed())
			Expect(eng.Frontier()).To(Equal(delta.Time(1)))

			err = src.Push(delta.Insert(delta.Document{"id": int64(2)}, 0))
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("below the frontier"))

			Expect(src.Push(delta.Insert(delta.Document{"id": int64(2)}, 1))).To(Succeed())
		})

		It("should reject changes without a document", func() {
			src, err := eng.Source("input")
			Expect(err).NotTo(HaveOccurred())
			Expect(src.Push(delta.Change{Time: 0, Mult: 1})).To(HaveOccurred())
		})
	})

	Context("graph construction", func() {
		It("should reject stream handles from a different engine", func() {
			other := New()
			src, err := other.Source("input")
			Expect(err).NotTo(HaveOccurred())

			_, err = eng.Map(src, func(doc delta.Document) (delta.Document, error) { return doc, nil })
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("different engine"))
		})

		It("should reject handles that are not memengine streams", func() {
			_, err := eng.Arrange("bogus", delta.Field("id"))
			Expect(err).To(HaveOccurred())
		})

		It("should reject extending a dataflow that already ran", func() {
			_, err := eng.Source("input")
			Expect(err).NotTo(HaveOccurred())
			Expect(eng.Run()).To(Succeed())

			_, err = eng.Source("late")
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("already ran"))
		})
	})

	Context("collector", func() {
		It("should consolidate each tick's output", func() {
			src, err := eng.Source("input")
			Expect(err).NotTo(HaveOccurred())
			sink, err := eng.Collect(src)
			Expect(err).NotTo(HaveOccurred())

			doc := delta.Document{"id": int64(1)}
			Expect(src.Push(delta.Insert(doc, 0), delta.Delete(doc, 0))).To(Succeed())
			Expect(eng.Run()).To(Succeed())

			Expect(sink.Changes()).To(BeEmpty())
		})

		It("should order a tick's changes canonically", func() {
			src, err := eng.Source("input")
			Expect(err).NotTo(HaveOccurred())
			sink, err := eng.Collect(src)
			Expect(err).NotTo(HaveOccurred())

			Expect(src.Push(
				delta.Insert(delta.Document{"id": int64(2)}, 0),
				delta.Insert(delta.Document{"id": int64(1)}, 0),
			)).To(Succeed())
			Expect(eng.Run()).To(Succeed())

			changes := sink.Changes()
			Expect(changes).To(HaveLen(2))
			Expect(changes[0].Doc["id"]).To(Equal(int64(1)))
			Expect(changes[1].Doc["id"]).To(Equal(int64(2)))
		})
	})

	Context("arrangements", func() {
		It("should index entries by the extracted key", func() {
			src, err := eng.Source("input")
			Expect(err).NotTo(HaveOccurred())

			arr, err := eng.Arrange(src, delta.Field("uid"))
			Expect(err).NotTo(HaveOccurred())

			Expect(src.Push(
				delta.Insert(userDoc(10, 1), 0),
				delta.Insert(userDoc(10, 2), 1),
				delta.Insert(userDoc(11, 1), 1),
			)).To(Succeed())
			Expect(eng.Run()).To(Succeed())

			marr := arr.(*Arrangement)
			Expect(marr.EntryCount()).To(Equal(3))

			keys := map[string]int{}
			for _, entry := range marr.Entries() {
				keys[entry.Key]++
			}
			Expect(keys).To(HaveLen(2))
			Expect(keys["10"]).To(Equal(2))
		})
	})
})

var _ = Describe("Late-materialization footprint", func() {
	// wideUserDoc carries extra non-key columns; the secondary index entry
	// size must not depend on them.
	wideUserDoc := func(uid, pid int64, cols int) delta.Document {
		doc := userDoc(uid, pid)
		for i := 0; i < cols; i++ {
			doc[fmt.Sprintf("col%d", i)] = fmt.Sprintf("value%d", i)
		}
		return doc
	}

	// userArrangementBy finds the user arrangement keyed by the given field:
	// its entries carry a uid, distinguishing them from province entries.
	userArrangementBy := func(eng *Engine, key string) *Arrangement {
		for _, arr := range eng.Arrangements() {
			if arr.Key().String() != key {
				continue
			}
			entries := arr.Entries()
			if len(entries) > 0 {
				if _, ok := entries[0].Doc["uid"]; ok {
					return arr
				}
			}
		}
		return nil
	}

	feed := func(f *joinFixture, cols int) {
		f.push("order", delta.Insert(orderDoc(100, 50, 10), 0))
		f.push("user",
			delta.Insert(wideUserDoc(10, 1, cols), 0),
			delta.Insert(wideUserDoc(11, 1, cols), 0))
		f.push("province", delta.Insert(provinceDoc(1, "Beijing"), 0))
		f.run()
	}

	It("should keep secondary entries key-only regardless of record width", func() {
		for _, cols := range []int{4, 16} {
			f := newJoinFixture(orderChain(), delta.ModeDeltaLateMaterialized)
			feed(f, cols)

			secondary := userArrangementBy(f.eng, "pid")
			Expect(secondary).NotTo(BeNil())
			for _, entry := range secondary.Entries() {
				// Exactly the (join key, primary key) pair.
				Expect(entry.Doc).To(HaveLen(2))
				Expect(entry.Doc).To(HaveKey("pid"))
				Expect(entry.Doc).To(HaveKey("uid"))
			}
		}
	})

	It("should scale full secondary arrangements with record width", func() {
		const cols = 4
		f := newJoinFixture(orderChain(), delta.ModeDelta)
		feed(f, cols)

		secondary := userArrangementBy(f.eng, "pid")
		Expect(secondary).NotTo(BeNil())
		for _, entry := range secondary.Entries() {
			Expect(entry.Doc).To(HaveLen(2 + cols))
		}
	})
})
