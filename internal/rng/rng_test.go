package rng

import (
	"testing"

	"github.com/stretchr/testify/suite"
)

type RNGTestSuite struct {
	suite.Suite
}

func (s *RNGTestSuite) TestResetReproducesIdenticalSequence() {
	src := New(7)
	first := make([]float64, 50)
	for i := range first {
		first[i] = src.Float64()
	}

	src.Reset()
	for i := range first {
		s.InDelta(first[i], src.Float64(), 1e-12, "value %d diverged after Reset", i)
	}
}

func (s *RNGTestSuite) TestTwoSourcesWithSameSeedAgree() {
	a := New(123)
	b := New(123)
	for i := 0; i < 20; i++ {
		s.Equal(a.Float64(), b.Float64())
	}
}

func (s *RNGTestSuite) TestUniformStaysWithinBounds() {
	src := New(1)
	for i := 0; i < 500; i++ {
		v := src.Uniform(10, 20)
		s.GreaterOrEqual(v, 10.0)
		s.Less(v, 20.0)
	}
}

func (s *RNGTestSuite) TestUniformIntStaysWithinInclusiveBounds() {
	src := New(2)
	for i := 0; i < 500; i++ {
		v := src.UniformInt(5, 9)
		s.GreaterOrEqual(v, 5)
		s.LessOrEqual(v, 9)
	}
}

func (s *RNGTestSuite) TestBernoulliEdgeCases() {
	src := New(3)
	for i := 0; i < 100; i++ {
		s.False(src.Bernoulli(0))
		s.True(src.Bernoulli(1))
	}
}

func (s *RNGTestSuite) TestWeightedIndexPicksOnlyNonZeroWeight() {
	src := New(4)
	weights := []float64{0, 0, 5, 0}
	for i := 0; i < 50; i++ {
		s.Equal(2, src.WeightedIndex(weights))
	}
}

func (s *RNGTestSuite) TestWeightedIndexAllZeroFallsBackToLast() {
	src := New(5)
	idx := src.WeightedIndex([]float64{0, 0, 0})
	s.Equal(2, idx, "a degenerate all-zero weight vector never satisfies draw < cum, so the loop falls through to the last index")
}

func TestRNGTestSuite(t *testing.T) {
	suite.Run(t, new(RNGTestSuite))
}
