package tshirt_test

import (
	"errors"
	"fmt"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/tshirt/internal/et"
	"github.com/san-kum/tshirt/internal/tshirt"
)

var _ = Describe("Engine", func() {
	var (
		spec   tshirt.ParamsSpec
		params tshirt.Params
		model  *tshirt.Model
	)

	BeforeEach(func() {
		spec = tshirt.ParamsSpec{
			MaxSMC: 0.439, WltSMC: 0.066, SatDK: 1e-6, SatPsi: 0.355, Slope: 0.01,
			B: 4.05, Multiplier: 0.0, AlphaFC: 0.33, Klf: 0.01, Kn: 0.03, NashN: 2,
			Cgw: 0.01, Expon: 5.0, MaxGroundwaterStorage: 0.05,
		}
	})

	JustBeforeEach(func() {
		var err error
		params, err = tshirt.NewParams(spec)
		Expect(err).NotTo(HaveOccurred())
		model, err = tshirt.NewModel(params, params.ZeroState(), tshirt.DefaultCollaborators())
		Expect(err).NotTo(HaveOccurred())
	})

	Describe("the reference catchment", func() {
		It("derives its storage limits from the primaries", func() {
			Expect(params.MaxSoilStorage()).To(BeNumerically("~", 0.878, 1e-15))
			Expect(params.Cschaake()).To(BeNumerically("~", 1.5, 1e-12))
			Expect(params.MaxLateralFlow()).To(BeZero())
			Expect(model.FieldCapacity()).To(BeNumerically("~", 0.4872559630548285, 1e-12))
		})

		It("keeps every flux non-negative after an hour of rain", func() {
			res, err := model.Run(3600, 1e-5, et.Config{})
			Expect(err).NotTo(HaveOccurred())

			f := res.Fluxes
			Expect(f.SurfaceRunoff).To(BeNumerically(">=", 0))
			Expect(f.GroundwaterFlow).To(BeNumerically(">=", 0))
			Expect(f.SoilPercolation).To(BeNumerically(">=", 0))
			Expect(f.SoilLateralFlow).To(BeNumerically(">=", 0))
			Expect(f.ETLoss).To(BeNumerically(">=", 0))
			Expect(res.State.Soil).To(BeNumerically("<=", params.MaxSoilStorage()))
			Expect(res.State.Cascade).To(HaveLen(2))
		})

		It("closes the budget using surface runoff and baseflow alone while the soil is below field capacity", func() {
			prev := model.Current()
			res, err := model.Run(3600, 1e-5, et.Config{PET: 1e-4, MaxStorage: params.MaxSoilStorage(), B: 1})
			Expect(err).NotTo(HaveOccurred())
			Expect(res.State.Soil).To(BeNumerically("<", model.FieldCapacity()))

			stored := res.State.Total() - prev.Total()
			out := (res.Fluxes.SurfaceRunoff+res.Fluxes.GroundwaterFlow)*3600 + res.Fluxes.ETLoss
			Expect(1e-5 * 3600).To(BeNumerically("~", stored+out, 1e-9*0.036))

			bal := tshirt.CheckMassBalance(params, prev, 1e-5, res.State, res.Fluxes, 3600, tshirt.DefaultTolerance())
			Expect(bal.Err()).NotTo(HaveOccurred())
		})

		It("reports the previous and current state separately", func() {
			_, err := model.Run(3600, 1e-5, et.Config{})
			Expect(err).NotTo(HaveOccurred())
			Expect(model.Previous().Soil).To(BeZero())
			Expect(model.Current().Soil).To(BeNumerically(">", 0))
		})
	})
})

var _ = Describe("Parameter validation", func() {
	DescribeTable("rejects out-of-domain primaries",
		func(mod func(*tshirt.ParamsSpec), field string) {
			s := tshirt.ParamsSpec{
				MaxSMC: 0.439, WltSMC: 0.066, SatDK: 1e-6, SatPsi: 0.355, Slope: 0.01,
				B: 4.05, AlphaFC: 0.33, Klf: 0.01, Kn: 0.03, NashN: 2,
				Cgw: 0.01, Expon: 5.0, MaxGroundwaterStorage: 0.05,
			}
			mod(&s)

			_, err := tshirt.NewParams(s)
			Expect(err).To(MatchError(tshirt.ErrConfig))

			var ce *tshirt.ConfigError
			Expect(errors.As(err, &ce)).To(BeTrue())
			Expect(ce.Field).To(Equal(field))
		},
		Entry("b of one", func(s *tshirt.ParamsSpec) { s.B = 1 }, "b"),
		Entry("negative rate", func(s *tshirt.ParamsSpec) { s.Kn = -0.1 }, "kn"),
		Entry("zero max storage", func(s *tshirt.ParamsSpec) { s.MaxSMC, s.WltSMC = 0, 0 }, "maxsmc"),
	)
})

var _ = DescribeTable("StatusOf",
	func(err error, want tshirt.Status) {
		Expect(tshirt.StatusOf(err)).To(Equal(want))
	},
	Entry("nil", nil, tshirt.StatusOK),
	Entry("config", &tshirt.ConfigError{Field: "b", Value: 1}, tshirt.StatusConfigError),
	Entry("input", fmt.Errorf("wrapped: %w", tshirt.ErrInvalidInput), tshirt.StatusInputError),
	Entry("numerical", &tshirt.StepError{Stage: "soil", Wrapped: tshirt.ErrNumerical}, tshirt.StatusNumericalError),
	Entry("mass balance", tshirt.ErrMassBalance, tshirt.StatusMassBalanceError),
	Entry("other", errors.New("disk full"), tshirt.StatusUnknownError),
)
