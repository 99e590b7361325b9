package delta

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

// stubEngine records the graph the construction asks for without executing
// anything, so the shape of the construction can be checked in isolation.
type stubEngine struct {
	maps      int
	joins     int
	concats   int
	arranged  []string // arrangement keys, in creation order
	probes    []string // half-join probe keys, in creation order
	tieViews  []bool   // per half-join: does the predicate admit a tie?
	arrKeys   []string // per half-join: key of the probed arrangement
	lastChain []Stream
}

type stubStream struct{ id int }

type stubArrangement struct{ key Extractor }

func (a *stubArrangement) Key() Extractor { return a.key }

func (e *stubEngine) Map(s Stream, fn Mapper) (Stream, error) {
	e.maps++
	return &stubStream{id: e.maps}, nil
}

func (e *stubEngine) Arrange(s Stream, key Extractor) (Arrangement, error) {
	e.arranged = append(e.arranged, key.String())
	return &stubArrangement{key: key}, nil
}

func (e *stubEngine) HalfJoin(s Stream, arr Arrangement, probe Extractor,
	frontier FrontierFunc, visible VisibleFunc, combine Combiner,
) (Stream, error) {
	e.probes = append(e.probes, probe.String())
	e.tieViews = append(e.tieViews, visible(5, 5))
	e.arrKeys = append(e.arrKeys, arr.Key().String())
	return &stubStream{}, nil
}

func (e *stubEngine) Join(left, right Stream, leftKey, rightKey Extractor, combine Combiner) (Stream, error) {
	e.joins++
	return &stubStream{}, nil
}

func (e *stubEngine) Concat(streams ...Stream) (Stream, error) {
	e.concats++
	e.lastChain = streams
	return &stubStream{}, nil
}

var _ = Describe("Delta-join construction", func() {
	var eng *stubEngine
	var chain *Chain
	var inputs map[string]Stream

	BeforeEach(func() {
		eng = &stubEngine{}

		var err error
		chain, err = NewChain(
			[]Relation{
				{Name: "order", Key: Field("oid")},
				{Name: "user", Key: Field("uid")},
				{Name: "province", Key: Field("pid")},
			},
			[]Edge{
				{Left: "order", Right: "user", LeftKey: Field("uid"), RightKey: Field("uid")},
				{Left: "user", Right: "province", LeftKey: Field("pid"), RightKey: Field("pid")},
			},
		)
		Expect(err).NotTo(HaveOccurred())

		inputs = map[string]Stream{
			"order":    &stubStream{},
			"user":     &stubStream{},
			"province": &stubStream{},
		}
	})

	Context("delta mode", func() {
		It("should arrange every relation once per join key", func() {
			_, err := Build(eng, chain, inputs, ModeDelta)
			Expect(err).NotTo(HaveOccurred())

			// order by uid, user by uid and by pid, province by pid
			Expect(eng.arranged).To(Equal([]string{"uid", "uid", "pid", "pid"}))
		})

		It("should build one two-step path per relation and concatenate them", func() {
			_, err := Build(eng, chain, inputs, ModeDelta)
			Expect(err).NotTo(HaveOccurred())

			Expect(eng.probes).To(HaveLen(6))
			Expect(eng.concats).To(Equal(1))
			Expect(eng.lastChain).To(HaveLen(3))
			Expect(eng.joins).To(BeZero())
		})

		It("should derive tie visibility from the priority order alone", func() {
			_, err := Build(eng, chain, inputs, ModeDelta)
			Expect(err).NotTo(HaveOccurred())

			// Path order: order (user, province), user (order, province),
			// province (user, order). A path sees ties exactly on
			// lower-priority targets.
			Expect(eng.tieViews).To(Equal([]bool{false, false, true, false, true, true}))
		})

		It("should probe through the covered neighbor's edge key", func() {
			_, err := Build(eng, chain, inputs, ModeDelta)
			Expect(err).NotTo(HaveOccurred())

			Expect(eng.probes).To(Equal([]string{
				"order.uid", "user.pid", // order path
				"user.uid", "user.pid", // user path
				"province.pid", "user.uid", // province path
			}))
			Expect(eng.arrKeys).To(Equal([]string{"uid", "pid", "uid", "pid", "pid", "uid"}))
		})
	})

	Context("late-materialized mode", func() {
		It("should split multi-key relations into a primary and key-only secondaries", func() {
			_, err := Build(eng, chain, inputs, ModeDeltaLateMaterialized)
			Expect(err).NotTo(HaveOccurred())

			// user's primary key uid doubles as its first join key, so the
			// arrangement count is unchanged; only the pid arrangement turned
			// into a key-only secondary fed by one extra projection.
			Expect(eng.arranged).To(Equal([]string{"uid", "uid", "pid", "pid"}))
			Expect(eng.maps).To(Equal(4)) // 3 record wraps + 1 key-ref projection
		})

		It("should add exactly one resolve step per secondary traversal", func() {
			_, err := Build(eng, chain, inputs, ModeDeltaLateMaterialized)
			Expect(err).NotTo(HaveOccurred())

			// The province path resolves the user reference through the
			// primary arrangement; the resolve step inherits the
			// province-user pair's tie visibility.
			Expect(eng.probes).To(Equal([]string{
				"order.uid", "user.pid",
				"user.uid", "user.pid",
				"province.pid", "user.uid", "user.uid",
			}))
			Expect(eng.tieViews).To(Equal([]bool{false, false, true, false, true, true, true}))
		})

		It("should hide ties on the resolve step when the pair hides them", func() {
			reversed, err := NewChain(
				[]Relation{
					{Name: "province", Key: Field("pid")},
					{Name: "user", Key: Field("uid")},
					{Name: "order", Key: Field("oid")},
				},
				[]Edge{
					{Left: "province", Right: "user", LeftKey: Field("pid"), RightKey: Field("pid")},
					{Left: "user", Right: "order", LeftKey: Field("uid"), RightKey: Field("uid")},
				},
			)
			Expect(err).NotTo(HaveOccurred())

			_, err = Build(eng, reversed, inputs, ModeDeltaLateMaterialized)
			Expect(err).NotTo(HaveOccurred())

			// The province path now traverses user's pid secondary with ties
			// hidden, so its resolve step hides them too.
			Expect(eng.probes).To(Equal([]string{
				"province.pid", "user.uid", "user.uid",
				"user.pid", "user.uid",
				"order.uid", "user.pid",
			}))
			Expect(eng.tieViews).To(Equal([]bool{false, false, false, true, false, true, true}))
		})

		It("should reject relations without named key fields", func() {
			badChain, err := NewChain(
				[]Relation{
					{Name: "order", Key: Field("oid")},
					{Name: "user", Key: TupleKey("user", Field("uid"))},
					{Name: "province", Key: Field("pid")},
				},
				[]Edge{
					{Left: "order", Right: "user", LeftKey: Field("uid"), RightKey: Field("uid")},
					{Left: "user", Right: "province", LeftKey: Field("pid"), RightKey: Field("pid")},
				},
			)
			Expect(err).NotTo(HaveOccurred())

			_, err = Build(eng, badChain, inputs, ModeDeltaLateMaterialized)
			Expect(err).To(HaveOccurred())
			Expect(err).To(BeAssignableToTypeOf(&BuildError{}))
		})
	})

	Context("baseline mode", func() {
		It("should fold the chain with ordinary pairwise joins", func() {
			_, err := Build(eng, chain, inputs, ModeBaseline)
			Expect(err).NotTo(HaveOccurred())

			Expect(eng.joins).To(Equal(2))
			Expect(eng.probes).To(BeEmpty())
			Expect(eng.arranged).To(BeEmpty())
		})
	})

	Context("construction-time failures", func() {
		It("should reject a missing input stream", func() {
			delete(inputs, "user")
			_, err := Build(eng, chain, inputs, ModeDelta)
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("user"))
		})

		It("should reject an input matching no relation", func() {
			inputs["warehouse"] = &stubStream{}
			_, err := Build(eng, chain, inputs, ModeDelta)
			Expect(err).To(HaveOccurred())
		})

		It("should reject an unknown mode", func() {
			_, err := Build(eng, chain, inputs, Mode(42))
			Expect(err).To(HaveOccurred())
		})

		It("should reject a nil engine or chain", func() {
			_, err := Build(nil, chain, inputs, ModeDelta)
			Expect(err).To(HaveOccurred())

			_, err = Build(eng, nil, inputs, ModeDelta)
			Expect(err).To(HaveOccurred())
		})
	})
})
